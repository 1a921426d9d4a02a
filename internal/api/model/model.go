package model

import "time"

// User is the subset of the users table the API reads. Account management
// and credentials live in a separate service.
type User struct {
	Email string `db:"email"`
	Name  string `db:"name"`
	Role  string `db:"role"`
}

// HistoryItem is one row of a user's exercise history joined with the
// exercise name for display
type HistoryItem struct {
	ID              int64     `db:"id"`
	UserEmail       string    `db:"user_email"`
	ExerciseID      int64     `db:"exercise_id"`
	ExerciseName    string    `db:"exercise_name"`
	PerformedAt     time.Time `db:"performed_at"`
	SuggestedWeight float64   `db:"suggested_weight"`
	SuggestedReps   int       `db:"suggested_reps"`
}
