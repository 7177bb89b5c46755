package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trousev/mealcontrol/internal/domain"
)

// SettingsStore holds the single user-settings row (id fixed to 1). It also
// serves as the credential provider for the inference client.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(ctx context.Context) (*domain.UserSettings, error) {
	settings := &domain.UserSettings{}
	err := s.db.QueryRowContext(ctx, `
		SELECT weight_kg, height_cm, age, gender, target_weekly_change_kg,
		       activity_level, distribution, custom_protein_percent,
		       custom_fat_percent, custom_carb_percent, openai_api_key
		FROM user_settings WHERE id = 1
	`).Scan(
		&settings.WeightKg, &settings.HeightCm, &settings.Age, &settings.Gender,
		&settings.TargetWeeklyChangeKg, &settings.ActivityLevel, &settings.Distribution,
		&settings.CustomProteinPercent, &settings.CustomFatPercent, &settings.CustomCarbPercent,
		&settings.OpenAIAPIKey,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsStore) Save(ctx context.Context, settings *domain.UserSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (
			id, weight_kg, height_cm, age, gender, target_weekly_change_kg,
			activity_level, distribution, custom_protein_percent,
			custom_fat_percent, custom_carb_percent, openai_api_key
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			weight_kg = excluded.weight_kg,
			height_cm = excluded.height_cm,
			age = excluded.age,
			gender = excluded.gender,
			target_weekly_change_kg = excluded.target_weekly_change_kg,
			activity_level = excluded.activity_level,
			distribution = excluded.distribution,
			custom_protein_percent = excluded.custom_protein_percent,
			custom_fat_percent = excluded.custom_fat_percent,
			custom_carb_percent = excluded.custom_carb_percent,
			openai_api_key = excluded.openai_api_key
	`,
		settings.WeightKg, settings.HeightCm, settings.Age, settings.Gender,
		settings.TargetWeeklyChangeKg, settings.ActivityLevel, settings.Distribution,
		settings.CustomProteinPercent, settings.CustomFatPercent, settings.CustomCarbPercent,
		settings.OpenAIAPIKey,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// APIKey returns the configured OpenAI API key, or "" when no settings row
// exists or no key has been set.
func (s *SettingsStore) APIKey(ctx context.Context) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx, `SELECT openai_api_key FROM user_settings WHERE id = 1`).Scan(&key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get api key: %w", err)
	}
	return key, nil
}
