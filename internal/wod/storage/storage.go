package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitstack/wodqueue/internal/wod"
	"github.com/fitstack/wodqueue/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// Storage implements wod.Store on PostgreSQL
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// RecentExerciseIDs returns the distinct exercise IDs the user performed at
// or after the cutoff time
func (s *Storage) RecentExerciseIDs(ctx context.Context, userEmail string, since time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT exercise_id
		FROM user_exercise_history
		WHERE user_email = $1
		  AND performed_at >= $2
	`

	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, query, userEmail, since); err != nil {
		return nil, fmt.Errorf("failed to select recent exercise ids: %w", err)
	}

	return ids, nil
}

// ListExercises returns the exercise catalog, excluding the given IDs
func (s *Storage) ListExercises(ctx context.Context, excludeIDs []int64) ([]wod.Exercise, error) {
	query := `
		SELECT id, name, COALESCE(description, '') AS description, difficulty,
		       COALESCE(equipment, '') AS equipment, COALESCE(instructions, '') AS instructions
		FROM exercises
	`
	var args []interface{}

	if len(excludeIDs) > 0 {
		var err error
		query, args, err = sqlx.In(query+" WHERE id NOT IN (?)", excludeIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to build exercise query: %w", err)
		}
		query = s.db.Rebind(query)
	}

	var exercises []wod.Exercise
	if err := s.db.SelectContext(ctx, &exercises, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select exercises: %w", err)
	}

	return exercises, nil
}

// muscleGroupRow scans the muscle-group join for one exercise
type muscleGroupRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	BodyPart  string `db:"body_part"`
	IsPrimary bool   `db:"is_primary"`
}

// MuscleGroupsForExercise returns the muscle groups associated with an
// exercise, each flagged primary or secondary
func (s *Storage) MuscleGroupsForExercise(ctx context.Context, exerciseID int64) ([]wod.MuscleGroupRole, error) {
	query := `
		SELECT mg.id, mg.name, mg.body_part, emg.is_primary
		FROM muscle_groups mg
		JOIN exercise_muscle_groups emg ON mg.id = emg.muscle_group_id
		WHERE emg.exercise_id = $1
		ORDER BY emg.is_primary DESC, mg.name
	`

	var rows []muscleGroupRow
	if err := s.db.SelectContext(ctx, &rows, query, exerciseID); err != nil {
		return nil, fmt.Errorf("failed to select muscle groups: %w", err)
	}

	roles := make([]wod.MuscleGroupRole, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, wod.MuscleGroupRole{
			Group: wod.MuscleGroup{
				ID:       row.ID,
				Name:     row.Name,
				BodyPart: row.BodyPart,
			},
			Primary: row.IsPrimary,
		})
	}

	return roles, nil
}

// ExerciseNames resolves exercise IDs to their names
func (s *Storage) ExerciseNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT name FROM exercises WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build name query: %w", err)
	}
	query = s.db.Rebind(query)

	var names []string
	if err := s.db.SelectContext(ctx, &names, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select exercise names: %w", err)
	}

	return names, nil
}

// AppendHistory appends one history entry. Entries are append-only.
func (s *Storage) AppendHistory(ctx context.Context, entry *wod.HistoryEntry) error {
	query := `
		INSERT INTO user_exercise_history (user_email, exercise_id, performed_at, suggested_weight, suggested_reps)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		entry.UserEmail,
		entry.ExerciseID,
		entry.PerformedAt,
		entry.SuggestedWeight,
		entry.SuggestedReps,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	s.logger.Debug("History entry appended",
		slog.String("user_email", entry.UserEmail),
		slog.Int64("exercise_id", entry.ExerciseID),
	)

	return nil
}
