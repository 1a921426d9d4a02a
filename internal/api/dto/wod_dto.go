package dto

// GenerateWODRequest asks for a synchronous WOD generation for one user
type GenerateWODRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// MuscleGroupDTO is a muscle group with its primary/secondary flag
type MuscleGroupDTO struct {
	Name      string `json:"name"`
	BodyPart  string `json:"body_part"`
	IsPrimary bool   `json:"is_primary"`
}

// WODExerciseDTO is one exercise of a generated WOD
type WODExerciseDTO struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Equipment       string           `json:"equipment,omitempty"`
	SuggestedWeight float64          `json:"suggested_weight"`
	SuggestedReps   int              `json:"suggested_reps"`
	MuscleGroups    []MuscleGroupDTO `json:"muscle_groups"`
}

// GenerateWODResponse is a generated WOD
type GenerateWODResponse struct {
	Email     string           `json:"email"`
	Exercises []WODExerciseDTO `json:"exercises"`
}

// HistoryItemDTO is one exercise history entry
type HistoryItemDTO struct {
	ExerciseID      int64   `json:"exercise_id"`
	ExerciseName    string  `json:"exercise_name"`
	PerformedAt     string  `json:"performed_at"`
	SuggestedWeight float64 `json:"suggested_weight"`
	SuggestedReps   int     `json:"suggested_reps"`
}

// EnqueueJobsResponse reports how many jobs the fan-out trigger enqueued
type EnqueueJobsResponse struct {
	Enqueued int `json:"enqueued"`
}
