package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/trousev/mealcontrol/internal/budget"
	"github.com/trousev/mealcontrol/internal/service"
)

type totalsJSON struct {
	EnergyKcal   float64 `json:"energy_kcal"`
	ProteinGrams float64 `json:"protein_g"`
	FatGrams     float64 `json:"fat_g"`
	CarbGrams    float64 `json:"carb_g"`
}

type mealJSON struct {
	ID          int64           `json:"id"`
	PhotoKey    string          `json:"photo_key,omitempty"`
	Description string          `json:"description"`
	Timestamp   int64           `json:"timestamp_millis"`
	Components  []componentJSON `json:"components"`
	Totals      totalsJSON      `json:"totals"`
}

func totalsToJSON(t service.Totals) totalsJSON {
	return totalsJSON{
		EnergyKcal:   t.EnergyKcal,
		ProteinGrams: t.ProteinGrams,
		FatGrams:     t.FatGrams,
		CarbGrams:    t.CarbGrams,
	}
}

func mealToJSON(m *service.MealSummary) mealJSON {
	out := mealJSON{
		ID:          m.ID,
		PhotoKey:    m.PhotoKey,
		Description: m.Description,
		Timestamp:   m.Timestamp,
		Components:  make([]componentJSON, 0, len(m.Components)),
		Totals:      totalsToJSON(m.Totals),
	}
	for _, c := range m.Components {
		out.Components = append(out.Components, componentToJSON(c))
	}
	return out
}

func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	meals, err := s.meals.ListMeals(r.Context())
	if err != nil {
		s.logger.Error("failed to list meals", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list meals")
		return
	}

	out := make([]mealJSON, 0, len(meals))
	for _, m := range meals {
		out = append(out, mealToJSON(m))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMeal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid meal id")
		return
	}

	meal, err := s.meals.GetMeal(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get meal", "meal_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get meal")
		return
	}
	if meal == nil {
		s.writeError(w, http.StatusNotFound, "meal not found")
		return
	}
	s.writeJSON(w, http.StatusOK, mealToJSON(meal))
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid meal id")
		return
	}

	if err := s.meals.DeleteMeal(r.Context(), id); err != nil {
		s.writeError(w, http.StatusNotFound, "meal not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type budgetJSON struct {
	BMR           int `json:"bmr"`
	TDEE          int `json:"tdee"`
	DailyDeficit  int `json:"daily_deficit"`
	DailyCalories int `json:"daily_calories"`
	ProteinGrams  int `json:"protein_g"`
	FatGrams      int `json:"fat_g"`
	CarbGrams     int `json:"carb_g"`
}

func budgetToJSON(b budget.Budget) budgetJSON {
	return budgetJSON{
		BMR:           b.BMR,
		TDEE:          b.TDEE,
		DailyDeficit:  b.DailyDeficit,
		DailyCalories: b.DailyCalories,
		ProteinGrams:  b.ProteinGrams,
		FatGrams:      b.FatGrams,
		CarbGrams:     b.CarbGrams,
	}
}

type daySummaryJSON struct {
	Meals         []mealJSON  `json:"meals"`
	Consumed      totalsJSON  `json:"consumed"`
	Budget        *budgetJSON `json:"budget,omitempty"`
	RemainingKcal float64     `json:"remaining_kcal"`
}

func (s *Server) handleTodaySummary(w http.ResponseWriter, r *http.Request) {
	day, err := s.meals.DailySummary(r.Context(), time.Now(), time.Local)
	if err != nil {
		s.logger.Error("failed to build daily summary", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build daily summary")
		return
	}

	out := daySummaryJSON{
		Meals:         make([]mealJSON, 0, len(day.Meals)),
		Consumed:      totalsToJSON(day.Consumed),
		RemainingKcal: day.RemainingKcal,
	}
	for _, m := range day.Meals {
		out.Meals = append(out.Meals, mealToJSON(m))
	}
	if day.Budget != nil {
		b := budgetToJSON(*day.Budget)
		out.Budget = &b
	}
	s.writeJSON(w, http.StatusOK, out)
}
