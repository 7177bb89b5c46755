package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trousev/mealcontrol/internal/db"
	"github.com/trousev/mealcontrol/internal/domain"
	"github.com/trousev/mealcontrol/internal/store"
)

func newTestService(t *testing.T) (*MealService, *store.SettingsStore) {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	settings := store.NewSettingsStore(database)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewMealService(store.NewMealStore(database), settings, logger)
	return svc, settings
}

func riceComponents() []domain.MealComponent {
	return []domain.MealComponent{
		{Name: "Rice", WeightGrams: 150, EnergyKcal: 195, ProteinGrams: 4, FatGrams: 1, CarbGrams: 42},
		{Name: "Chicken", WeightGrams: 120, EnergyKcal: 198, ProteinGrams: 37, FatGrams: 4},
	}
}

func TestSaveConfirmedRejectsEmptyComponents(t *testing.T) {
	svc, _ := newTestService(t)

	meal, err := svc.SaveConfirmed(context.Background(), "", "Rice bowl", nil)
	assert.Nil(t, meal)
	assert.ErrorContains(t, err, "no components")
}

func TestSaveConfirmedAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meal, err := svc.SaveConfirmed(ctx, "photo-key", "Rice bowl", riceComponents())
	require.NoError(t, err)

	summary, err := svc.GetMeal(ctx, meal.ID)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "Rice bowl", summary.Description)
	assert.Equal(t, "photo-key", summary.PhotoKey)
	require.Len(t, summary.Components, 2)
	assert.InDelta(t, 393, summary.Totals.EnergyKcal, 0.001)
	assert.InDelta(t, 41, summary.Totals.ProteinGrams, 0.001)
	assert.InDelta(t, 5, summary.Totals.FatGrams, 0.001)
	assert.InDelta(t, 42, summary.Totals.CarbGrams, 0.001)
}

func TestGetMealMissing(t *testing.T) {
	svc, _ := newTestService(t)

	summary, err := svc.GetMeal(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestListMeals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SaveConfirmed(ctx, "", "breakfast", riceComponents())
	require.NoError(t, err)
	_, err = svc.SaveConfirmed(ctx, "", "lunch", riceComponents())
	require.NoError(t, err)

	meals, err := svc.ListMeals(ctx)
	require.NoError(t, err)
	assert.Len(t, meals, 2)
}

func TestDeleteMealMissing(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Error(t, svc.DeleteMeal(context.Background(), 42))
}

func TestDailySummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	day := time.Date(2026, time.March, 5, 13, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return day }
	_, err := svc.SaveConfirmed(ctx, "", "lunch", riceComponents())
	require.NoError(t, err)

	// The previous evening must not count.
	svc.now = func() time.Time { return day.AddDate(0, 0, -1) }
	_, err = svc.SaveConfirmed(ctx, "", "yesterday", riceComponents())
	require.NoError(t, err)

	summary, err := svc.DailySummary(ctx, day, time.UTC)
	require.NoError(t, err)
	require.Len(t, summary.Meals, 1)
	assert.Equal(t, "lunch", summary.Meals[0].Description)
	assert.InDelta(t, 393, summary.Consumed.EnergyKcal, 0.001)
	assert.Nil(t, summary.Budget, "no budget until body metrics are set")
	assert.Zero(t, summary.RemainingKcal)
}

func TestDailySummaryWithBudget(t *testing.T) {
	svc, settings := newTestService(t)
	ctx := context.Background()

	require.NoError(t, settings.Save(ctx, &domain.UserSettings{
		WeightKg:      80,
		HeightCm:      180,
		Age:           30,
		Gender:        "male",
		ActivityLevel: 2,
		Distribution:  "high_protein",
	}))

	day := time.Date(2026, time.March, 5, 13, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }
	_, err := svc.SaveConfirmed(ctx, "", "lunch", riceComponents())
	require.NoError(t, err)

	summary, err := svc.DailySummary(ctx, day, time.UTC)
	require.NoError(t, err)
	require.NotNil(t, summary.Budget)
	assert.Equal(t, 2447, summary.Budget.DailyCalories)
	assert.InDelta(t, float64(summary.Budget.DailyCalories)-393, summary.RemainingKcal, 0.001)
}
