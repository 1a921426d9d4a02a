package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/fitstack/wodqueue/internal/jobqueue"
	"github.com/fitstack/wodqueue/internal/wod"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	calls   []string
	errs    []error // consumed in order; nil entries mean success
	callIdx int
}

func (f *fakeGenerator) Generate(ctx context.Context, userEmail string) (*wod.Result, error) {
	f.calls = append(f.calls, userEmail)

	var err error
	if f.callIdx < len(f.errs) {
		err = f.errs[f.callIdx]
	}
	f.callIdx++

	if err != nil {
		return nil, err
	}
	return &wod.Result{UserEmail: userEmail}, nil
}

type fakeRepublisher struct {
	published []publishedMessage
	err       error
}

type publishedMessage struct {
	body    []byte
	headers amqp.Table
}

func (f *fakeRepublisher) Publish(ctx context.Context, body []byte, headers amqp.Table) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedMessage{body: body, headers: headers})
	return nil
}

type fakeAcknowledger struct {
	acks  int
	nacks []bool // requeue flag per nack
}

func (f *fakeAcknowledger) Ack(multiple bool) error {
	f.acks++
	return nil
}

func (f *fakeAcknowledger) Nack(multiple, requeue bool) error {
	f.nacks = append(f.nacks, requeue)
	return nil
}

func newTestWorker(gen wod.Generator, pub republisher) *Worker {
	return &Worker{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		generator:   gen,
		republisher: pub,
		maxRetries:  3,
		chance:      func() float64 { return 1 }, // never triggers injection
		workerID:    "wod-worker-test",
		stopChan:    make(chan struct{}),
	}
}

func TestHandleDelivery_Success(t *testing.T) {
	gen := &fakeGenerator{}
	pub := &fakeRepublisher{}
	w := newTestWorker(gen, pub)
	ack := &fakeAcknowledger{}

	w.handleDelivery(context.Background(), []byte(`{"email":"user@example.com"}`), nil, ack)

	assert.Equal(t, []string{"user@example.com"}, gen.calls)
	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, ack.nacks)
	assert.Empty(t, pub.published)
}

func TestHandleDelivery_FailureRepublishesWithIncrementedRetries(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("boom")}}
	pub := &fakeRepublisher{}
	w := newTestWorker(gen, pub)
	ack := &fakeAcknowledger{}

	body := []byte(`{"email":"user@example.com"}`)
	w.handleDelivery(context.Background(), body, jobqueue.RetryHeaders(1), ack)

	assert.Zero(t, ack.acks)
	// Original delivery is rejected without requeue
	require.Equal(t, []bool{false}, ack.nacks)

	// Exactly one fresh publish with the same body and retries+1
	require.Len(t, pub.published, 1)
	assert.Equal(t, body, pub.published[0].body)
	assert.Equal(t, 2, jobqueue.RetryCountFromHeaders(pub.published[0].headers).Int())
}

func TestHandleDelivery_FirstFailureStartsRetryCounterAtOne(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("boom")}}
	pub := &fakeRepublisher{}
	w := newTestWorker(gen, pub)
	ack := &fakeAcknowledger{}

	// No retry header on the first delivery: absent means zero
	w.handleDelivery(context.Background(), []byte(`{"email":"user@example.com"}`), nil, ack)

	require.Len(t, pub.published, 1)
	assert.Equal(t, 1, jobqueue.RetryCountFromHeaders(pub.published[0].headers).Int())
}

func TestHandleDelivery_ExhaustedRetriesDeadLetters(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("boom")}}
	pub := &fakeRepublisher{}
	w := newTestWorker(gen, pub)
	ack := &fakeAcknowledger{}

	w.handleDelivery(context.Background(), []byte(`{"email":"user@example.com"}`), jobqueue.RetryHeaders(3), ack)

	// Rejected without requeue and no 4th attempt published
	assert.Zero(t, ack.acks)
	require.Equal(t, []bool{false}, ack.nacks)
	assert.Empty(t, pub.published)
}

func TestHandleDelivery_MalformedBodyTakesRetryPath(t *testing.T) {
	gen := &fakeGenerator{}
	pub := &fakeRepublisher{}
	w := newTestWorker(gen, pub)
	ack := &fakeAcknowledger{}

	body := []byte(`not json`)
	w.handleDelivery(context.Background(), body, nil, ack)

	// Generator never invoked, but the failure is retried like any other
	assert.Empty(t, gen.calls)
	require.Equal(t, []bool{false}, ack.nacks)
	require.Len(t, pub.published, 1)
	assert.Equal(t, body, pub.published[0].body)
	assert.Equal(t, 1, jobqueue.RetryCountFromHeaders(pub.published[0].headers).Int())
}

func TestHandleDelivery_MissingEmailTakesRetryPath(t *testing.T) {
	gen := &fakeGenerator{}
	pub := &fakeRepublisher{}
	w := newTestWorker(gen, pub)
	ack := &fakeAcknowledger{}

	w.handleDelivery(context.Background(), []byte(`{}`), nil, ack)

	assert.Empty(t, gen.calls)
	require.Equal(t, []bool{false}, ack.nacks)
	require.Len(t, pub.published, 1)
}

func TestHandleDelivery_InjectedFailure(t *testing.T) {
	gen := &fakeGenerator{}
	pub := &fakeRepublisher{}
	w := newTestWorker(gen, pub)
	w.failureRate = 0.2
	w.chance = func() float64 { return 0.1 } // below the rate: always fails
	ack := &fakeAcknowledger{}

	w.handleDelivery(context.Background(), []byte(`{"email":"user@example.com"}`), nil, ack)

	// The chaos gate fires before the generator runs
	assert.Empty(t, gen.calls)
	require.Equal(t, []bool{false}, ack.nacks)
	require.Len(t, pub.published, 1)
}

func TestHandleDelivery_FailTwiceThenSucceed(t *testing.T) {
	// Simulates the full lifecycle of one job that fails twice and then
	// succeeds: exactly two retry re-publishes, final state acknowledged,
	// one successful generation.
	gen := &fakeGenerator{errs: []error{errors.New("boom"), errors.New("boom"), nil}}
	pub := &fakeRepublisher{}
	w := newTestWorker(gen, pub)

	body := []byte(`{"email":"user@example.com"}`)

	acks := make([]*fakeAcknowledger, 3)
	headers := amqp.Table(nil)
	for attempt := 0; attempt < 3; attempt++ {
		acks[attempt] = &fakeAcknowledger{}
		w.handleDelivery(context.Background(), body, headers, acks[attempt])

		if len(pub.published) > attempt {
			headers = pub.published[attempt].headers
		}
	}

	require.Len(t, pub.published, 2)
	assert.Equal(t, 1, jobqueue.RetryCountFromHeaders(pub.published[0].headers).Int())
	assert.Equal(t, 2, jobqueue.RetryCountFromHeaders(pub.published[1].headers).Int())

	assert.Equal(t, []bool{false}, acks[0].nacks)
	assert.Equal(t, []bool{false}, acks[1].nacks)
	assert.Equal(t, 1, acks[2].acks)
	assert.Empty(t, acks[2].nacks)

	// One generation per attempt, same user each time
	assert.Equal(t, []string{"user@example.com", "user@example.com", "user@example.com"}, gen.calls)
}
