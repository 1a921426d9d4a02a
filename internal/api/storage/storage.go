package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fitstack/wodqueue/internal/api/model"
	"github.com/fitstack/wodqueue/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// Storage handles database reads for the API service
type Storage struct {
	db *sqlx.DB
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// ListUserEmails returns the emails of all registered users. The fan-out
// trigger enqueues one WOD job per email.
func (s *Storage) ListUserEmails(ctx context.Context) ([]string, error) {
	query := `SELECT email FROM users ORDER BY email`

	var emails []string
	if err := s.db.SelectContext(ctx, &emails, query); err != nil {
		return nil, fmt.Errorf("failed to list user emails: %w", err)
	}

	return emails, nil
}

// HistoryForUser returns the user's exercise history at or after the cutoff
// time, newest first
func (s *Storage) HistoryForUser(ctx context.Context, email string, since time.Time) ([]model.HistoryItem, error) {
	query := `
		SELECT h.id, h.user_email, h.exercise_id, e.name AS exercise_name,
		       h.performed_at, h.suggested_weight, h.suggested_reps
		FROM user_exercise_history h
		JOIN exercises e ON e.id = h.exercise_id
		WHERE h.user_email = $1
		  AND h.performed_at >= $2
		ORDER BY h.performed_at DESC
	`

	var items []model.HistoryItem
	if err := s.db.SelectContext(ctx, &items, query, email, since); err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}

	return items, nil
}
