package jobqueue

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RetryHeader is the message header carrying the retry counter. It travels
// in metadata rather than the payload so the payload schema stays stable
// across attempts.
const RetryHeader = "x-retries"

// Job is the wire payload of a WOD generation request. The field name
// "email" is fixed for compatibility with existing publishers. Jobs carry
// no dedup key: multiple jobs for the same user may coexist.
type Job struct {
	Email string `json:"email"`
}

// RetryCount models the optional retry counter carried in message headers.
// An absent header means zero attempts so far.
type RetryCount struct {
	count   int
	present bool
}

// NewRetryCount builds an explicitly-present retry counter
func NewRetryCount(count int) RetryCount {
	return RetryCount{count: count, present: true}
}

// Int returns the counter value, zero when absent
func (r RetryCount) Int() int {
	return r.count
}

// Present reports whether the header was carried on the message
func (r RetryCount) Present() bool {
	return r.present
}

// Next returns the counter for the next attempt
func (r RetryCount) Next() int {
	return r.count + 1
}

// RetryCountFromHeaders reads the retry counter from AMQP headers. The
// broker may hand the value back in any integer width.
func RetryCountFromHeaders(headers amqp.Table) RetryCount {
	if headers == nil {
		return RetryCount{}
	}

	v, ok := headers[RetryHeader]
	if !ok {
		return RetryCount{}
	}

	switch n := v.(type) {
	case int:
		return NewRetryCount(n)
	case int8:
		return NewRetryCount(int(n))
	case int16:
		return NewRetryCount(int(n))
	case int32:
		return NewRetryCount(int(n))
	case int64:
		return NewRetryCount(int(n))
	default:
		return RetryCount{}
	}
}

// RetryHeaders builds the headers for a re-published attempt
func RetryHeaders(count int) amqp.Table {
	return amqp.Table{RetryHeader: int32(count)}
}

// Envelope is a decoded job message with its retry metadata
type Envelope struct {
	Job     Job
	Retries RetryCount
}

// Decode parses a message body and headers into an Envelope
func Decode(body []byte, headers amqp.Table) (*Envelope, error) {
	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job message: %w", err)
	}

	return &Envelope{
		Job:     job,
		Retries: RetryCountFromHeaders(headers),
	}, nil
}
