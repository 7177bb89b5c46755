package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/trousev/mealcontrol/internal/domain"
)

type MealStore struct {
	db *sql.DB
}

func NewMealStore(db *sql.DB) *MealStore {
	return &MealStore{db: db}
}

// Create persists a meal and its components in one transaction.
func (s *MealStore) Create(ctx context.Context, photoKey, description string, timestamp int64, components []domain.MealComponent) (*domain.Meal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("failed to roll back meal insert", "error", err)
		}
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO meals (photo_key, description, timestamp) VALUES (?, ?, ?)
	`, photoKey, description, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to create meal: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for _, c := range components {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO meal_components (meal_id, name, weight_g, energy_kcal, protein_g, fat_g, carb_g)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, c.Name, c.WeightGrams, c.EnergyKcal, c.ProteinGrams, c.FatGrams, c.CarbGrams)
		if err != nil {
			return nil, fmt.Errorf("failed to create meal component: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit meal: %w", err)
	}

	return &domain.Meal{ID: id, PhotoKey: photoKey, Description: description, Timestamp: timestamp}, nil
}

func (s *MealStore) GetByID(ctx context.Context, id int64) (*domain.Meal, error) {
	meal := &domain.Meal{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, photo_key, description, timestamp FROM meals WHERE id = ?
	`, id).Scan(&meal.ID, &meal.PhotoKey, &meal.Description, &meal.Timestamp)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}
	return meal, nil
}

func (s *MealStore) List(ctx context.Context) ([]*domain.Meal, error) {
	return s.listWhere(ctx, `SELECT id, photo_key, description, timestamp FROM meals ORDER BY timestamp DESC`)
}

// ListBetween returns meals with from <= timestamp < to, newest first.
func (s *MealStore) ListBetween(ctx context.Context, from, to int64) ([]*domain.Meal, error) {
	return s.listWhere(ctx, `
		SELECT id, photo_key, description, timestamp FROM meals
		WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp DESC
	`, from, to)
}

func (s *MealStore) listWhere(ctx context.Context, query string, args ...any) ([]*domain.Meal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var meals []*domain.Meal
	for rows.Next() {
		meal := &domain.Meal{}
		if err := rows.Scan(&meal.ID, &meal.PhotoKey, &meal.Description, &meal.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meals = append(meals, meal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meals: %w", err)
	}
	return meals, nil
}

func (s *MealStore) ComponentsByMealID(ctx context.Context, mealID int64) ([]domain.MealComponent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, weight_g, energy_kcal, protein_g, fat_g, carb_g FROM meal_components
		WHERE meal_id = ? ORDER BY id ASC
	`, mealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal components: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var comps []domain.MealComponent
	for rows.Next() {
		var c domain.MealComponent
		if err := rows.Scan(&c.Name, &c.WeightGrams, &c.EnergyKcal, &c.ProteinGrams, &c.FatGrams, &c.CarbGrams); err != nil {
			return nil, fmt.Errorf("failed to scan meal component: %w", err)
		}
		comps = append(comps, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meal components: %w", err)
	}
	return comps, nil
}

func (s *MealStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM meals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("meal not found")
	}
	return nil
}
