package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrInvalidJob is returned when a job payload fails validation. Invalid
// jobs are rejected at publish time and never enter the queue.
var ErrInvalidJob = errors.New("invalid job")

// broker is the publishing surface the producer needs
type broker interface {
	Publish(ctx context.Context, body []byte, headers amqp.Table) error
}

// Producer publishes WOD generation jobs onto the work queue. Publishing is
// fire-and-forget: no acknowledgment is awaited from the consumer side.
type Producer struct {
	broker broker
	logger *slog.Logger
}

// NewProducer creates a new Producer
func NewProducer(b broker, logger *slog.Logger) *Producer {
	return &Producer{
		broker: b,
		logger: logger,
	}
}

// Publish validates and enqueues one job with persistent delivery mode and
// no retry metadata (the retry count starts at zero, implicit).
func (p *Producer) Publish(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.Email) == "" {
		return fmt.Errorf("%w: user email is required", ErrInvalidJob)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}

	if err := p.broker.Publish(ctx, body, nil); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	p.logger.Debug("Job published",
		slog.String("user_email", job.Email),
	)

	return nil
}
