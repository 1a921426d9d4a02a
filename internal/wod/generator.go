package wod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Generator produces a WOD for a user. The worker and the API both depend
// on this interface rather than on a concrete generation path.
type Generator interface {
	Generate(ctx context.Context, userEmail string) (*Result, error)
}

// LocalGenerator runs the in-process selection engine
type LocalGenerator struct {
	engine *Engine
}

// NewLocalGenerator creates a generator backed by the local engine
func NewLocalGenerator(engine *Engine) *LocalGenerator {
	return &LocalGenerator{engine: engine}
}

// Generate delegates directly to the selection engine
func (g *LocalGenerator) Generate(ctx context.Context, userEmail string) (*Result, error) {
	return g.engine.Select(ctx, userEmail)
}

// DelegatingGenerator routes generation to the external coach service while
// keeping the local engine as fallback and as the source of truth for the
// returned result and the recorded history. The external call is a shadow:
// its response validates the new path but is not yet trusted, so even a
// successful call is followed by a local generation. Any delegation failure
// is logged and absorbed, never surfaced to the caller.
type DelegatingGenerator struct {
	fallback *LocalGenerator
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewDelegatingGenerator creates a generator that shadow-calls the external
// coach service at the given endpoint with the given timeout, falling back
// to (and always returning from) the wrapped local generator.
func NewDelegatingGenerator(fallback *LocalGenerator, endpoint string, timeout time.Duration, logger *slog.Logger) *DelegatingGenerator {
	return &DelegatingGenerator{
		fallback: fallback,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// generateWODRequest is the wire request for the external coach service
type generateWODRequest struct {
	UserEmail         string   `json:"user_email"`
	ExcludedExercises []string `json:"excluded_exercises"`
}

// generateWODResponse is the subset of the coach response we inspect
type generateWODResponse struct {
	Exercises []json.RawMessage `json:"exercises"`
}

// Generate shadow-calls the external service and then performs the
// canonical local generation. The local result is returned in all cases.
func (g *DelegatingGenerator) Generate(ctx context.Context, userEmail string) (*Result, error) {
	if err := g.delegate(ctx, userEmail); err != nil {
		g.logger.Warn("Coach service delegation failed, falling back to local generation",
			slog.String("user_email", userEmail),
			slog.Any("error", err),
		)
	}

	return g.fallback.Generate(ctx, userEmail)
}

// delegate posts the generation request to the external coach service. The
// response body is only inspected for logging; the local engine remains
// authoritative.
func (g *DelegatingGenerator) delegate(ctx context.Context, userEmail string) error {
	excluded, err := g.fallback.engine.RecentExerciseNames(ctx, userEmail)
	if err != nil {
		return fmt.Errorf("failed to build exclusion list: %w", err)
	}

	payload := generateWODRequest{
		UserEmail:         userEmail,
		ExcludedExercises: excluded,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal coach request: %w", err)
	}

	url := g.endpoint + "/generate-wod"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build coach request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("coach service call failed: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("coach service returned status %d", resp.StatusCode)
	}

	var coachWOD generateWODResponse
	if err := json.NewDecoder(resp.Body).Decode(&coachWOD); err != nil {
		return fmt.Errorf("failed to decode coach response: %w", err)
	}

	g.logger.Info("Coach service returned WOD",
		slog.String("user_email", userEmail),
		slog.Int("exercise_count", len(coachWOD.Exercises)),
	)

	return nil
}
