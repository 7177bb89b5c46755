package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trousev/mealcontrol/internal/budget"
	"github.com/trousev/mealcontrol/internal/domain"
)

// mealRepository is the subset of store.MealStore that MealService requires.
type mealRepository interface {
	Create(ctx context.Context, photoKey, description string, timestamp int64, components []domain.MealComponent) (*domain.Meal, error)
	GetByID(ctx context.Context, id int64) (*domain.Meal, error)
	List(ctx context.Context) ([]*domain.Meal, error)
	ListBetween(ctx context.Context, from, to int64) ([]*domain.Meal, error)
	ComponentsByMealID(ctx context.Context, mealID int64) ([]domain.MealComponent, error)
	Delete(ctx context.Context, id int64) error
}

// settingsRepository is the subset of store.SettingsStore that MealService requires.
type settingsRepository interface {
	Get(ctx context.Context) (*domain.UserSettings, error)
}

type MealService struct {
	meals    mealRepository
	settings settingsRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewMealService(meals mealRepository, settings settingsRepository, logger *slog.Logger) *MealService {
	return &MealService{meals: meals, settings: settings, logger: logger, now: time.Now}
}

// Totals is the nutrition sum over a set of components.
type Totals struct {
	EnergyKcal   float64
	ProteinGrams float64
	FatGrams     float64
	CarbGrams    float64
}

func sumComponents(comps []domain.MealComponent) Totals {
	var t Totals
	for _, c := range comps {
		t.EnergyKcal += c.EnergyKcal
		t.ProteinGrams += c.ProteinGrams
		t.FatGrams += c.FatGrams
		t.CarbGrams += c.CarbGrams
	}
	return t
}

// MealSummary bundles a meal with its components and their totals.
type MealSummary struct {
	*domain.Meal
	Components []domain.MealComponent
	Totals     Totals
}

// SaveConfirmed persists a user-accepted detection result as a meal.
func (s *MealService) SaveConfirmed(ctx context.Context, photoKey, description string, components []domain.MealComponent) (*domain.Meal, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("meal has no components")
	}

	meal, err := s.meals.Create(ctx, photoKey, description, s.now().UnixMilli(), components)
	if err != nil {
		return nil, fmt.Errorf("failed to save meal: %w", err)
	}

	s.logger.Info("meal saved", "meal_id", meal.ID, "components", len(components))
	return meal, nil
}

func (s *MealService) GetMeal(ctx context.Context, id int64) (*MealSummary, error) {
	meal, err := s.meals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		return nil, nil
	}
	return s.summarize(ctx, meal)
}

func (s *MealService) ListMeals(ctx context.Context) ([]*MealSummary, error) {
	meals, err := s.meals.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.summarizeAll(ctx, meals)
}

func (s *MealService) DeleteMeal(ctx context.Context, id int64) error {
	return s.meals.Delete(ctx, id)
}

// DaySummary reports what was consumed during one day against the computed
// budget. Budget is nil until the user has filled in body metrics.
type DaySummary struct {
	Meals         []*MealSummary
	Consumed      Totals
	Budget        *budget.Budget
	RemainingKcal float64
}

// DailySummary aggregates the meals of the day containing ts, using the
// given location for day boundaries.
func (s *MealService) DailySummary(ctx context.Context, ts time.Time, loc *time.Location) (*DaySummary, error) {
	dayStart := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	meals, err := s.meals.ListBetween(ctx, dayStart.UnixMilli(), dayEnd.UnixMilli())
	if err != nil {
		return nil, err
	}

	summaries, err := s.summarizeAll(ctx, meals)
	if err != nil {
		return nil, err
	}

	day := &DaySummary{Meals: summaries}
	for _, m := range summaries {
		day.Consumed.EnergyKcal += m.Totals.EnergyKcal
		day.Consumed.ProteinGrams += m.Totals.ProteinGrams
		day.Consumed.FatGrams += m.Totals.FatGrams
		day.Consumed.CarbGrams += m.Totals.CarbGrams
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings != nil && settings.WeightKg > 0 {
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
		day.Budget = &b
		day.RemainingKcal = float64(b.DailyCalories) - day.Consumed.EnergyKcal
	}

	return day, nil
}

func (s *MealService) summarize(ctx context.Context, meal *domain.Meal) (*MealSummary, error) {
	comps, err := s.meals.ComponentsByMealID(ctx, meal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load components for meal %d: %w", meal.ID, err)
	}
	return &MealSummary{Meal: meal, Components: comps, Totals: sumComponents(comps)}, nil
}

func (s *MealService) summarizeAll(ctx context.Context, meals []*domain.Meal) ([]*MealSummary, error) {
	summaries := make([]*MealSummary, 0, len(meals))
	for _, meal := range meals {
		summary, err := s.summarize(ctx, meal)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
