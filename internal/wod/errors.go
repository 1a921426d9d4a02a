package wod

import "errors"

var (
	// ErrNoExercisesAvailable is returned when the catalog is empty and no
	// selection can be made at all
	ErrNoExercisesAvailable = errors.New("no exercises available")
)
