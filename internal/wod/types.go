package wod

import "time"

// Exercise is an immutable catalog entry. The catalog is reference data
// seeded outside this service; the engine only reads it.
type Exercise struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	Description  string `db:"description"`
	Difficulty   int    `db:"difficulty"`
	Equipment    string `db:"equipment"`
	Instructions string `db:"instructions"`
}

// MuscleGroup describes a muscle group associated with an exercise
type MuscleGroup struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	BodyPart string `db:"body_part"`
}

// MuscleGroupRole pairs a muscle group with its primary/secondary flag for
// a given exercise
type MuscleGroupRole struct {
	Group   MuscleGroup
	Primary bool
}

// SelectedExercise is one entry of a generated WOD: the exercise, its
// muscle groups, and the suggested progression for this session
type SelectedExercise struct {
	Exercise        Exercise
	MuscleGroups    []MuscleGroupRole
	SuggestedWeight float64
	SuggestedReps   int
}

// Result is a generated workout of the day. It is ephemeral: the only
// persisted trace of a generation are the history entries it appends.
// Order follows the random sampling order.
type Result struct {
	UserEmail   string
	Exercises   []SelectedExercise
	GeneratedAt time.Time
}

// HistoryEntry records one suggested exercise for a user. Entries are
// append-only; the engine never updates or deletes them.
type HistoryEntry struct {
	ID              int64     `db:"id"`
	UserEmail       string    `db:"user_email"`
	ExerciseID      int64     `db:"exercise_id"`
	PerformedAt     time.Time `db:"performed_at"`
	SuggestedWeight float64   `db:"suggested_weight"`
	SuggestedReps   int       `db:"suggested_reps"`
}
