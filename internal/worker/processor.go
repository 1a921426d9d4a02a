package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fitstack/wodqueue/internal/jobqueue"
	amqp "github.com/rabbitmq/amqp091-go"
)

// handleDelivery drives one delivered message through its lifecycle:
// success acknowledges, failure rejects the delivery and either re-publishes
// a fresh attempt with an incremented retry counter or, once the retry
// budget is exhausted, lets the rejection stand as the terminal dead-letter
// state.
func (w *Worker) handleDelivery(ctx context.Context, body []byte, headers amqp.Table, ack acknowledger) {
	retries := jobqueue.RetryCountFromHeaders(headers)

	err := w.process(ctx, body, headers)
	if err == nil {
		if ackErr := ack.Ack(false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_id", w.workerID),
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	w.logger.Error("Job processing failed",
		slog.String("worker_id", w.workerID),
		slog.Int("retry_count", retries.Int()),
		slog.String("error", err.Error()),
	)

	// Reject without requeueing the original delivery: retries travel as
	// fresh publishes so each attempt is an independently-inspectable
	// message and the counter stays in metadata.
	if nackErr := ack.Nack(false, false); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_id", w.workerID),
			slog.String("error", nackErr.Error()),
		)
	}

	if retries.Int() < w.maxRetries {
		w.republish(ctx, body, retries.Next())
		return
	}

	w.logger.Warn("Job exhausted retries, dead-lettered",
		slog.String("worker_id", w.workerID),
		slog.Int("retry_count", retries.Int()),
		slog.Int("max_retries", w.maxRetries),
		slog.String("body", string(body)),
	)
}

// process decodes and executes one job. A deserialization failure is an
// ordinary processing failure, not a fatal consumer error, so it takes the
// same retry path.
func (w *Worker) process(ctx context.Context, body []byte, headers amqp.Table) error {
	env, err := jobqueue.Decode(body, headers)
	if err != nil {
		return err
	}

	if strings.TrimSpace(env.Job.Email) == "" {
		return fmt.Errorf("%w: missing user email", jobqueue.ErrInvalidJob)
	}

	if w.failureRate > 0 && w.chance() < w.failureRate {
		return ErrInjectedFailure
	}

	result, err := w.generator.Generate(ctx, env.Job.Email)
	if err != nil {
		return fmt.Errorf("failed to generate WOD: %w", err)
	}

	w.logger.Info("WOD generated",
		slog.String("worker_id", w.workerID),
		slog.String("user_email", env.Job.Email),
		slog.Int("exercise_count", len(result.Exercises)),
		slog.Int("retry_count", env.Retries.Int()),
	)

	return nil
}

// republish publishes a fresh message with the same body and the
// incremented retry counter in its headers, persistent delivery mode
func (w *Worker) republish(ctx context.Context, body []byte, retries int) {
	if err := w.republisher.Publish(ctx, body, jobqueue.RetryHeaders(retries)); err != nil {
		w.logger.Error("Failed to re-publish job for retry",
			slog.String("worker_id", w.workerID),
			slog.Int("retry_count", retries),
			slog.String("error", err.Error()),
		)
		return
	}

	w.logger.Info("Job re-published for retry",
		slog.String("worker_id", w.workerID),
		slog.Int("retry_count", retries),
	)
}
