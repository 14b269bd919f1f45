package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/proteinpath/protein-path-go/internal/model"
)

var (
	ErrMealNotFound  = errors.New("meal not found")
	ErrDuplicateMeal = errors.New("meal id already exists")
)

// MealRepository persists meals. Every statement is scoped by user_id, so a
// caller can only ever see or touch rows owned by the user ID it passes.
type MealRepository struct {
	db *sql.DB
}

// NewMealRepository creates a new MealRepository.
func NewMealRepository(db *sql.DB) *MealRepository {
	return &MealRepository{db: db}
}

const mealColumns = `id, user_id, name, timestamp, nutrition, image_url, description, type`

// Insert stores meal under meal.OwnerID and returns the row as persisted.
func (r *MealRepository) Insert(ctx context.Context, meal model.Meal) (model.Meal, error) {
	nutrition, err := json.Marshal(meal.Nutrition)
	if err != nil {
		return model.Meal{}, fmt.Errorf("encoding nutrition: %w", err)
	}

	query := `INSERT INTO meals (` + mealColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		meal.ID,
		meal.OwnerID,
		meal.Name,
		meal.Timestamp,
		string(nutrition),
		nullString(meal.ImageURL),
		nullString(meal.Description),
		string(meal.Type),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return model.Meal{}, ErrDuplicateMeal
		}
		return model.Meal{}, err
	}

	return r.GetByID(ctx, meal.OwnerID, meal.ID)
}

// GetByID retrieves one meal owned by userID.
func (r *MealRepository) GetByID(ctx context.Context, userID, id string) (model.Meal, error) {
	query := `SELECT ` + mealColumns + ` FROM meals WHERE id = ? AND user_id = ?`

	m, err := scanMeal(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Meal{}, ErrMealNotFound
		}
		return model.Meal{}, err
	}
	return m, nil
}

// ListByUser retrieves all meals owned by userID, newest first.
func (r *MealRepository) ListByUser(ctx context.Context, userID string) ([]model.Meal, error) {
	query := `SELECT ` + mealColumns + ` FROM meals WHERE user_id = ? ORDER BY timestamp DESC`
	return r.query(ctx, query, userID)
}

// ListBetween retrieves meals owned by userID with from <= timestamp <= to, newest first.
func (r *MealRepository) ListBetween(ctx context.Context, userID string, from, to int64) ([]model.Meal, error) {
	query := `SELECT ` + mealColumns + ` FROM meals
		WHERE user_id = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp DESC`
	return r.query(ctx, query, userID, from, to)
}

// Delete removes the meal with id if, and only if, userID owns it.
// It returns the number of rows removed (0 or 1).
func (r *MealRepository) Delete(ctx context.Context, userID, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM meals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *MealRepository) query(ctx context.Context, query string, args ...any) ([]model.Meal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meals := []model.Meal{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}

	return meals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeal(row rowScanner) (model.Meal, error) {
	var (
		m           model.Meal
		nutrition   []byte
		imageURL    sql.NullString
		description sql.NullString
		mealType    string
	)
	if err := row.Scan(
		&m.ID, &m.OwnerID, &m.Name, &m.Timestamp,
		&nutrition, &imageURL, &description, &mealType,
	); err != nil {
		return model.Meal{}, err
	}

	if err := json.Unmarshal(nutrition, &m.Nutrition); err != nil {
		return model.Meal{}, fmt.Errorf("decoding nutrition for meal %s: %w", m.ID, err)
	}
	m.ImageURL = imageURL.String
	m.Description = description.String
	m.Type = model.MealType(mealType)

	return m, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
