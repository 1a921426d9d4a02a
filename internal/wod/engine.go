package wod

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Store is the storage surface the selection engine depends on. The engine
// only needs these operations, not full schema access.
type Store interface {
	// RecentExerciseIDs returns the distinct exercise IDs the user
	// performed at or after the cutoff time.
	RecentExerciseIDs(ctx context.Context, userEmail string, since time.Time) ([]int64, error)

	// ListExercises returns the catalog, excluding the given IDs. An empty
	// exclusion list returns the full catalog.
	ListExercises(ctx context.Context, excludeIDs []int64) ([]Exercise, error)

	// MuscleGroupsForExercise returns the muscle groups associated with an
	// exercise, each flagged primary or secondary.
	MuscleGroupsForExercise(ctx context.Context, exerciseID int64) ([]MuscleGroupRole, error)

	// ExerciseNames resolves exercise IDs to their names.
	ExerciseNames(ctx context.Context, ids []int64) ([]string, error)

	// AppendHistory appends one history entry.
	AppendHistory(ctx context.Context, entry *HistoryEntry) error
}

// EngineConfig holds selection engine tuning
type EngineConfig struct {
	// Size is the target number of exercises per WOD
	Size int
	// LookbackDays is the recency-exclusion window
	LookbackDays int
	// Suggested progression ranges (placeholder heuristic, not a model)
	MinWeight float64
	MaxWeight float64
	MinReps   int
	MaxReps   int
	// ComputeDelayMin/Max bound the simulated CPU-bound work that runs
	// before each selection. Zero max disables the delay entirely.
	ComputeDelayMin time.Duration
	ComputeDelayMax time.Duration
}

// Engine selects a bounded set of exercises for a user, avoiding recent
// repeats on a best-effort basis, and records each pick in the user's
// history as a side effect.
type Engine struct {
	store  Store
	cfg    EngineConfig
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewEngine creates a selection engine. A nil rng gets a time-seeded source;
// tests pass a seeded one for reproducible sampling.
func NewEngine(store Store, cfg EngineConfig, logger *slog.Logger, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		rng:    rng,
	}
}

// Select generates a WOD for the user. It samples min(Size, available)
// exercises uniformly without replacement from the catalog minus the
// recency exclusion set, dropping the exclusion when it would leave fewer
// than Size candidates. Each selected exercise appends exactly one history
// entry.
func (e *Engine) Select(ctx context.Context, userEmail string) (*Result, error) {
	e.simulateComputation()

	cutoff := e.now().AddDate(0, 0, -e.cfg.LookbackDays)

	recentIDs, err := e.store.RecentExerciseIDs(ctx, userEmail, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent exercises: %w", err)
	}

	available, err := e.store.ListExercises(ctx, recentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query exercise catalog: %w", err)
	}

	// Recency avoidance is best-effort: if the exclusion starves the
	// selection below the target size, fall back to the full catalog.
	if len(available) < e.cfg.Size && len(recentIDs) > 0 {
		e.logger.Debug("Recency exclusion dropped, falling back to full catalog",
			slog.String("user_email", userEmail),
			slog.Int("available", len(available)),
			slog.Int("excluded", len(recentIDs)),
		)

		available, err = e.store.ListExercises(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to query exercise catalog: %w", err)
		}
	}

	if len(available) == 0 {
		return nil, ErrNoExercisesAvailable
	}

	selected := e.sample(available)

	result := &Result{
		UserEmail:   userEmail,
		Exercises:   make([]SelectedExercise, 0, len(selected)),
		GeneratedAt: e.now(),
	}

	for _, exercise := range selected {
		groups, err := e.store.MuscleGroupsForExercise(ctx, exercise.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query muscle groups for exercise %d: %w", exercise.ID, err)
		}

		weight, reps := e.suggestProgression()

		entry := &HistoryEntry{
			UserEmail:       userEmail,
			ExerciseID:      exercise.ID,
			PerformedAt:     e.now(),
			SuggestedWeight: weight,
			SuggestedReps:   reps,
		}

		if err := e.store.AppendHistory(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to append history entry: %w", err)
		}

		result.Exercises = append(result.Exercises, SelectedExercise{
			Exercise:        exercise,
			MuscleGroups:    groups,
			SuggestedWeight: weight,
			SuggestedReps:   reps,
		})
	}

	e.logger.Info("WOD selected",
		slog.String("user_email", userEmail),
		slog.Int("exercise_count", len(result.Exercises)),
		slog.Int("excluded_recent", len(recentIDs)),
	)

	return result, nil
}

// RecentExerciseNames returns the names of exercises the user performed
// within the lookback window. Used by the delegating generator to build the
// exclusion list sent to the external coach service.
func (e *Engine) RecentExerciseNames(ctx context.Context, userEmail string) ([]string, error) {
	cutoff := e.now().AddDate(0, 0, -e.cfg.LookbackDays)

	ids, err := e.store.RecentExerciseIDs(ctx, userEmail, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent exercises: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	names, err := e.store.ExerciseNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve exercise names: %w", err)
	}

	return names, nil
}

// sample picks min(Size, len(available)) exercises uniformly without
// replacement. Result order is the sampling order, not catalog order.
func (e *Engine) sample(available []Exercise) []Exercise {
	count := e.cfg.Size
	if len(available) < count {
		count = len(available)
	}

	e.mu.Lock()
	perm := e.rng.Perm(len(available))
	e.mu.Unlock()

	selected := make([]Exercise, 0, count)
	for _, idx := range perm[:count] {
		selected = append(selected, available[idx])
	}

	return selected
}

// suggestProgression draws a random weight and rep count from the
// configured ranges
func (e *Engine) suggestProgression() (float64, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	weight := e.cfg.MinWeight + e.rng.Float64()*(e.cfg.MaxWeight-e.cfg.MinWeight)
	reps := e.cfg.MinReps + e.rng.Intn(e.cfg.MaxReps-e.cfg.MinReps+1)
	return weight, reps
}

// simulateComputation burns CPU for a random duration within the configured
// bounds to shape load like the heavier generation it stands in for
func (e *Engine) simulateComputation() {
	if e.cfg.ComputeDelayMax <= 0 {
		return
	}

	delay := e.cfg.ComputeDelayMin
	if spread := e.cfg.ComputeDelayMax - e.cfg.ComputeDelayMin; spread > 0 {
		e.mu.Lock()
		delay += time.Duration(e.rng.Int63n(int64(spread)))
		e.mu.Unlock()
	}

	deadline := time.Now().Add(delay)
	for time.Now().Before(deadline) {
		for i := 0; i < 1_000_000; i++ {
			_ = i
		}
	}
}
