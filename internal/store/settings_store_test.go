package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trousev/mealcontrol/internal/domain"
)

func TestSettingsGetBeforeSave(t *testing.T) {
	store := NewSettingsStore(newTestDB(t))

	settings, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, settings)
}

func TestSettingsSaveAndGet(t *testing.T) {
	store := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	in := &domain.UserSettings{
		WeightKg:             82.5,
		HeightCm:             180,
		Age:                  34,
		Gender:               "male",
		TargetWeeklyChangeKg: -0.5,
		ActivityLevel:        2,
		Distribution:         "high_protein",
		OpenAIAPIKey:         "sk-test",
	}
	require.NoError(t, store.Save(ctx, in))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, in, got)
}

func TestSettingsSaveUpserts(t *testing.T) {
	store := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.UserSettings{WeightKg: 80, OpenAIAPIKey: "sk-1"}))
	require.NoError(t, store.Save(ctx, &domain.UserSettings{WeightKg: 79, OpenAIAPIKey: "sk-2"}))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 79, got.WeightKg, 0.001)
	assert.Equal(t, "sk-2", got.OpenAIAPIKey)
}

func TestSettingsAPIKey(t *testing.T) {
	store := NewSettingsStore(newTestDB(t))
	ctx := context.Background()

	key, err := store.APIKey(ctx)
	require.NoError(t, err)
	assert.Empty(t, key, "no settings row means no key")

	require.NoError(t, store.Save(ctx, &domain.UserSettings{OpenAIAPIKey: "sk-test"}))

	key, err = store.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}
