package wod

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	exercises []Exercise
	groups    map[int64][]MuscleGroupRole
	recent    []int64
	history   []HistoryEntry

	listCalls [][]int64
	appendErr error
}

func (f *fakeStore) RecentExerciseIDs(ctx context.Context, userEmail string, since time.Time) ([]int64, error) {
	return f.recent, nil
}

func (f *fakeStore) ListExercises(ctx context.Context, excludeIDs []int64) ([]Exercise, error) {
	f.listCalls = append(f.listCalls, excludeIDs)

	excluded := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var out []Exercise
	for _, ex := range f.exercises {
		if !excluded[ex.ID] {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (f *fakeStore) MuscleGroupsForExercise(ctx context.Context, exerciseID int64) ([]MuscleGroupRole, error) {
	if roles, ok := f.groups[exerciseID]; ok {
		return roles, nil
	}
	return []MuscleGroupRole{
		{Group: MuscleGroup{ID: exerciseID, Name: fmt.Sprintf("group-%d", exerciseID), BodyPart: "upper"}, Primary: true},
	}, nil
}

func (f *fakeStore) ExerciseNames(ctx context.Context, ids []int64) ([]string, error) {
	byID := make(map[int64]string, len(f.exercises))
	for _, ex := range f.exercises {
		byID[ex.ID] = ex.Name
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (f *fakeStore) AppendHistory(ctx context.Context, entry *HistoryEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	entry.ID = int64(len(f.history) + 1)
	f.history = append(f.history, *entry)
	return nil
}

func catalog(n int) []Exercise {
	exercises := make([]Exercise, 0, n)
	for i := 1; i <= n; i++ {
		exercises = append(exercises, Exercise{
			ID:         int64(i),
			Name:       fmt.Sprintf("exercise-%d", i),
			Difficulty: 1 + i%5,
		})
	}
	return exercises
}

func testEngineConfig() EngineConfig {
	return EngineConfig{
		Size:         6,
		LookbackDays: 3,
		MinWeight:    5.0,
		MaxWeight:    50.0,
		MinReps:      8,
		MaxReps:      15,
		// Compute delay disabled for tests
	}
}

func newTestEngine(store Store, seed int64) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(store, testEngineConfig(), logger, rand.New(rand.NewSource(seed)))
}

func TestEngine_Select_NoHistoryReturnsFullSizedWOD(t *testing.T) {
	store := &fakeStore{exercises: catalog(10)}
	engine := newTestEngine(store, 1)

	result, err := engine.Select(context.Background(), "user@example.com")
	require.NoError(t, err)

	assert.Len(t, result.Exercises, 6)

	// All distinct
	seen := make(map[int64]bool)
	for _, sel := range result.Exercises {
		assert.False(t, seen[sel.Exercise.ID], "exercise %d selected twice", sel.Exercise.ID)
		seen[sel.Exercise.ID] = true
	}
}

func TestEngine_Select_SmallCatalogReturnsAll(t *testing.T) {
	// Catalog has exactly 6 exercises and the user has no history: all 6
	// come back, each with at least one muscle group.
	store := &fakeStore{exercises: catalog(6)}
	engine := newTestEngine(store, 1)

	result, err := engine.Select(context.Background(), "user@example.com")
	require.NoError(t, err)

	require.Len(t, result.Exercises, 6)
	for _, sel := range result.Exercises {
		assert.NotEmpty(t, sel.MuscleGroups)
	}
}

func TestEngine_Select_HistoryEntriesMatchSelection(t *testing.T) {
	store := &fakeStore{exercises: catalog(10)}
	engine := newTestEngine(store, 7)

	result, err := engine.Select(context.Background(), "user@example.com")
	require.NoError(t, err)

	require.Len(t, store.history, len(result.Exercises))
	for i, sel := range result.Exercises {
		assert.Equal(t, "user@example.com", store.history[i].UserEmail)
		assert.Equal(t, sel.Exercise.ID, store.history[i].ExerciseID)
		assert.Equal(t, sel.SuggestedWeight, store.history[i].SuggestedWeight)
		assert.Equal(t, sel.SuggestedReps, store.history[i].SuggestedReps)
	}
}

func TestEngine_Select_RecencyExclusionApplied(t *testing.T) {
	// 10 in the catalog, 3 recent: 7 remain, which is enough, so the
	// exclusion holds and none of the recent exercises come back.
	store := &fakeStore{
		exercises: catalog(10),
		recent:    []int64{1, 2, 3},
	}
	engine := newTestEngine(store, 3)

	result, err := engine.Select(context.Background(), "user@example.com")
	require.NoError(t, err)

	require.Len(t, result.Exercises, 6)
	for _, sel := range result.Exercises {
		assert.NotContains(t, []int64{1, 2, 3}, sel.Exercise.ID)
	}
}

func TestEngine_Select_ExclusionDroppedWhenStarving(t *testing.T) {
	// 8 in the catalog, 3 excluded by recency, 5 remain (<6): the
	// exclusion is dropped and the selection draws from all 8.
	store := &fakeStore{
		exercises: catalog(8),
		recent:    []int64{1, 2, 3},
	}
	engine := newTestEngine(store, 5)

	result, err := engine.Select(context.Background(), "user@example.com")
	require.NoError(t, err)

	assert.Len(t, result.Exercises, 6)

	// The catalog was re-queried without exclusions
	require.Len(t, store.listCalls, 2)
	assert.Equal(t, []int64{1, 2, 3}, store.listCalls[0])
	assert.Empty(t, store.listCalls[1])
}

func TestEngine_Select_EmptyCatalog(t *testing.T) {
	store := &fakeStore{}
	engine := newTestEngine(store, 1)

	result, err := engine.Select(context.Background(), "user@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoExercisesAvailable)
	assert.Nil(t, result)
	assert.Empty(t, store.history)
}

func TestEngine_Select_ProgressionWithinRanges(t *testing.T) {
	store := &fakeStore{exercises: catalog(20)}
	engine := newTestEngine(store, 11)

	result, err := engine.Select(context.Background(), "user@example.com")
	require.NoError(t, err)

	for _, sel := range result.Exercises {
		assert.GreaterOrEqual(t, sel.SuggestedWeight, 5.0)
		assert.Less(t, sel.SuggestedWeight, 50.0)
		assert.GreaterOrEqual(t, sel.SuggestedReps, 8)
		assert.LessOrEqual(t, sel.SuggestedReps, 15)
	}
}

func TestEngine_Select_DeterministicWithSeed(t *testing.T) {
	storeA := &fakeStore{exercises: catalog(12)}
	storeB := &fakeStore{exercises: catalog(12)}

	resultA, err := newTestEngine(storeA, 42).Select(context.Background(), "user@example.com")
	require.NoError(t, err)
	resultB, err := newTestEngine(storeB, 42).Select(context.Background(), "user@example.com")
	require.NoError(t, err)

	require.Len(t, resultB.Exercises, len(resultA.Exercises))
	for i := range resultA.Exercises {
		assert.Equal(t, resultA.Exercises[i].Exercise.ID, resultB.Exercises[i].Exercise.ID)
	}
}

func TestEngine_Select_AppendFailureAborts(t *testing.T) {
	store := &fakeStore{
		exercises: catalog(10),
		appendErr: errors.New("insert failed"),
	}
	engine := newTestEngine(store, 1)

	result, err := engine.Select(context.Background(), "user@example.com")
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestEngine_RecentExerciseNames(t *testing.T) {
	store := &fakeStore{
		exercises: catalog(5),
		recent:    []int64{2, 4},
	}
	engine := newTestEngine(store, 1)

	names, err := engine.RecentExerciseNames(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"exercise-2", "exercise-4"}, names)
}

func TestEngine_RecentExerciseNames_Empty(t *testing.T) {
	store := &fakeStore{exercises: catalog(5)}
	engine := newTestEngine(store, 1)

	names, err := engine.RecentExerciseNames(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Empty(t, names)
}
