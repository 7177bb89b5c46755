package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trousev/mealcontrol/internal/domain"
)

func riceBowlComponents() []domain.MealComponent {
	return []domain.MealComponent{
		{Name: "Rice", WeightGrams: 150, EnergyKcal: 195, ProteinGrams: 4, FatGrams: 1, CarbGrams: 42},
		{Name: "Chicken", WeightGrams: 120, EnergyKcal: 198, ProteinGrams: 37, FatGrams: 4},
	}
}

func TestMealCreateAndGet(t *testing.T) {
	store := NewMealStore(newTestDB(t))
	ctx := context.Background()

	meal, err := store.Create(ctx, "photo-key", "Rice bowl", 1700000000000, riceBowlComponents())
	require.NoError(t, err)
	assert.Greater(t, meal.ID, int64(0))

	got, err := store.GetByID(ctx, meal.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "photo-key", got.PhotoKey)
	assert.Equal(t, "Rice bowl", got.Description)
	assert.Equal(t, int64(1700000000000), got.Timestamp)

	comps, err := store.ComponentsByMealID(ctx, meal.ID)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	assert.Equal(t, "Rice", comps[0].Name)
	assert.InDelta(t, 42, comps[0].CarbGrams, 0.001)
	assert.Equal(t, "Chicken", comps[1].Name)
	assert.Zero(t, comps[1].CarbGrams)
}

func TestMealGetMissing(t *testing.T) {
	store := NewMealStore(newTestDB(t))

	meal, err := store.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, meal)
}

func TestMealListNewestFirst(t *testing.T) {
	store := NewMealStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, "", "breakfast", 100, nil)
	require.NoError(t, err)
	_, err = store.Create(ctx, "", "dinner", 300, nil)
	require.NoError(t, err)
	_, err = store.Create(ctx, "", "lunch", 200, nil)
	require.NoError(t, err)

	meals, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, meals, 3)
	assert.Equal(t, "dinner", meals[0].Description)
	assert.Equal(t, "lunch", meals[1].Description)
	assert.Equal(t, "breakfast", meals[2].Description)
}

func TestMealListBetween(t *testing.T) {
	store := NewMealStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, "", "before", 99, nil)
	require.NoError(t, err)
	_, err = store.Create(ctx, "", "start", 100, nil)
	require.NoError(t, err)
	_, err = store.Create(ctx, "", "middle", 150, nil)
	require.NoError(t, err)
	_, err = store.Create(ctx, "", "end", 200, nil)
	require.NoError(t, err)

	meals, err := store.ListBetween(ctx, 100, 200)
	require.NoError(t, err)
	require.Len(t, meals, 2, "range is inclusive of from, exclusive of to")
	assert.Equal(t, "middle", meals[0].Description)
	assert.Equal(t, "start", meals[1].Description)
}

func TestMealDeleteCascadesComponents(t *testing.T) {
	store := NewMealStore(newTestDB(t))
	ctx := context.Background()

	meal, err := store.Create(ctx, "", "Rice bowl", 100, riceBowlComponents())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, meal.ID))

	got, err := store.GetByID(ctx, meal.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	comps, err := store.ComponentsByMealID(ctx, meal.ID)
	require.NoError(t, err)
	assert.Empty(t, comps)
}

func TestMealDeleteMissing(t *testing.T) {
	store := NewMealStore(newTestDB(t))
	assert.ErrorContains(t, store.Delete(context.Background(), 999), "meal not found")
}
