package web

import (
	"net/http"

	"github.com/trousev/mealcontrol/internal/budget"
	"github.com/trousev/mealcontrol/internal/domain"
)

// settingsJSON carries the user profile. The API key is write-only: requests
// may set it, responses only report whether one is configured.
type settingsJSON struct {
	WeightKg             float64 `json:"weight_kg"`
	HeightCm             float64 `json:"height_cm"`
	Age                  int     `json:"age"`
	Gender               string  `json:"gender"`
	TargetWeeklyChangeKg float64 `json:"target_weekly_change_kg"`
	ActivityLevel        int     `json:"activity_level"`
	Distribution         string  `json:"distribution"`
	CustomProteinPercent int     `json:"custom_protein_percent"`
	CustomFatPercent     int     `json:"custom_fat_percent"`
	CustomCarbPercent    int     `json:"custom_carb_percent"`
	OpenAIAPIKey         string  `json:"openai_api_key,omitempty"`
}

type settingsResponse struct {
	Settings  settingsJSON `json:"settings"`
	APIKeySet bool         `json:"api_key_set"`
	Budget    *budgetJSON  `json:"budget,omitempty"`
}

func settingsResponseFrom(settings *domain.UserSettings) settingsResponse {
	resp := settingsResponse{
		Settings: settingsJSON{
			WeightKg:             settings.WeightKg,
			HeightCm:             settings.HeightCm,
			Age:                  settings.Age,
			Gender:               settings.Gender,
			TargetWeeklyChangeKg: settings.TargetWeeklyChangeKg,
			ActivityLevel:        settings.ActivityLevel,
			Distribution:         settings.Distribution,
			CustomProteinPercent: settings.CustomProteinPercent,
			CustomFatPercent:     settings.CustomFatPercent,
			CustomCarbPercent:    settings.CustomCarbPercent,
		},
		APIKeySet: settings.OpenAIAPIKey != "",
	}
	if settings.WeightKg > 0 {
		b := budget.Calculate(budget.Input{
			WeightKg:             settings.WeightKg,
			HeightCm:             settings.HeightCm,
			Age:                  settings.Age,
			Gender:               budget.Gender(settings.Gender),
			TargetWeeklyChangeKg: settings.TargetWeeklyChangeKg,
			ActivityLevel:        settings.ActivityLevel,
			Distribution:         budget.Distribution(settings.Distribution),
			CustomProteinPercent: settings.CustomProteinPercent,
			CustomFatPercent:     settings.CustomFatPercent,
			CustomCarbPercent:    settings.CustomCarbPercent,
		})
		bj := budgetToJSON(b)
		resp.Budget = &bj
	}
	return resp
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Get(r.Context())
	if err != nil {
		s.logger.Error("failed to load settings", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if settings == nil {
		settings = &domain.UserSettings{}
	}
	s.writeJSON(w, http.StatusOK, settingsResponseFrom(settings))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsJSON
	if err := readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings := &domain.UserSettings{
		WeightKg:             req.WeightKg,
		HeightCm:             req.HeightCm,
		Age:                  req.Age,
		Gender:               req.Gender,
		TargetWeeklyChangeKg: req.TargetWeeklyChangeKg,
		ActivityLevel:        req.ActivityLevel,
		Distribution:         req.Distribution,
		CustomProteinPercent: req.CustomProteinPercent,
		CustomFatPercent:     req.CustomFatPercent,
		CustomCarbPercent:    req.CustomCarbPercent,
		OpenAIAPIKey:         req.OpenAIAPIKey,
	}

	// An omitted key keeps the stored one so profile edits do not wipe the
	// credential.
	if settings.OpenAIAPIKey == "" {
		existing, err := s.settings.Get(r.Context())
		if err != nil {
			s.logger.Error("failed to load settings", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		if existing != nil {
			settings.OpenAIAPIKey = existing.OpenAIAPIKey
		}
	}

	if err := s.settings.Save(r.Context(), settings); err != nil {
		s.logger.Error("failed to save settings", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	s.writeJSON(w, http.StatusOK, settingsResponseFrom(settings))
}
