package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/fitstack/wodqueue/internal/wod"
	"github.com/fitstack/wodqueue/shared/rabbitmq"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrInjectedFailure is the synthetic processing failure used to exercise
// the retry path under load. The injection rate is configurable and should
// be zero in production.
var ErrInjectedFailure = errors.New("injected synthetic failure")

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	RabbitClient *rabbitmq.Client
	Generator    wod.Generator
	// PrefetchCount bounds in-flight deliveries per consumer. The retry
	// state machine assumes one message at a time, so this should be 1.
	PrefetchCount int
	MaxRetries    int
	FailureRate   float64
}

// republisher is the publishing surface used for retry re-publishes
type republisher interface {
	Publish(ctx context.Context, body []byte, headers amqp.Table) error
}

// acknowledger is the slice of amqp.Delivery the state machine needs
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Worker consumes WOD generation jobs and drives each delivery through an
// acknowledge / retry / dead-letter lifecycle. Each instance processes one
// message at a time; multiple instances may run concurrently.
type Worker struct {
	logger       *slog.Logger
	rabbitClient *rabbitmq.Client
	generator    wod.Generator
	republisher  republisher

	prefetchCount int
	maxRetries    int
	failureRate   float64
	chance        func() float64

	workerID string
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		generator:     cfg.Generator,
		republisher:   cfg.RabbitClient,
		prefetchCount: cfg.PrefetchCount,
		maxRetries:    cfg.MaxRetries,
		failureRate:   cfg.FailureRate,
		chance:        rand.Float64,
		workerID:      fmt.Sprintf("wod-worker-%s", uuid.New().String()[:8]),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and blocks until the context is canceled or Stop
// is called
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("prefetch_count", w.prefetchCount),
		slog.Int("max_retries", w.maxRetries),
		slog.Float64("failure_rate", w.failureRate),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.wg.Add(1)
	w.consumeLoop(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...",
		slog.String("worker_id", w.workerID),
	)
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
