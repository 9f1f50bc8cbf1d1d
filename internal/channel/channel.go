// Package channel implements the asynchronous publish/consume channel the
// services use to hand create requests to their processors.
//
// Delivery is at-least-once: a consumer receives a message, processes it and
// commits it. A released message is handed out again by the same consumer
// before anything newer. A group's stored offset never passes a message that
// was handed out and not committed, so a fresh consumer of the group sees
// every such message again.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoMessage is returned when a bounded receive finds nothing to
	// deliver before its wait expires.
	ErrNoMessage = errors.New("no message available")
	// ErrClosed is returned by operations on a closed channel.
	ErrClosed = errors.New("channel closed")
	// ErrUnknownDelivery is returned when committing a delivery the consumer
	// did not hand out.
	ErrUnknownDelivery = errors.New("unknown delivery")
	// ErrMalformedPayload is returned when a payload cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Ack acknowledges a published message.
type Ack struct {
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
	Offset    int64  `json:"offset"`
}

func (a Ack) String() string {
	return fmt.Sprintf("%s[%d]@%d", a.Topic, a.Partition, a.Offset)
}

// Delivery is a single message handed to a consumer.
type Delivery struct {
	Topic     string
	Partition int32
	Offset    int64
	Payload   []byte
	Published time.Time
}

// Publisher publishes payloads to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (Ack, error)
}

// Consumer pulls one message per call. Consume blocks until a message is
// available or ctx is done. Release hands a delivery back for redelivery
// instead of committing it.
type Consumer interface {
	Consume(ctx context.Context, topic string) (*Delivery, error)
	Commit(ctx context.Context, d *Delivery) error
	Release(ctx context.Context, d *Delivery) error
}

// PublishJSON marshals v and publishes it to topic.
func PublishJSON(ctx context.Context, p Publisher, topic string, v any) (Ack, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Ack{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return p.Publish(ctx, topic, payload)
}

// Receive consumes one message from topic, waiting at most wait. A wait of
// zero or less blocks until ctx is done. When the wait expires before a
// message arrives, ErrNoMessage is returned rather than a context error.
func Receive(ctx context.Context, c Consumer, topic string, wait time.Duration) (*Delivery, error) {
	if wait <= 0 {
		return c.Consume(ctx, topic)
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	d, err := c.Consume(waitCtx, topic)
	if err != nil {
		// Only the local wait expiring maps to ErrNoMessage; the caller's
		// own cancellation is reported as is.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrNoMessage
		}
		return nil, err
	}
	return d, nil
}

// DecodeJSON unmarshals payload into v. Failures wrap ErrMalformedPayload.
func DecodeJSON(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// ProcessOne receives a single message from topic, decodes it into a T and
// hands it to fn.
//
// The delivery is committed when fn succeeds, and also when the payload is
// malformed or fn rejects it with ErrMalformedPayload, since redelivering it
// can never succeed. When fn fails, or the commit does, the delivery is
// released and the consumer hands it out again on its next call.
func ProcessOne[T, R any](
	ctx context.Context,
	c Consumer,
	topic string,
	wait time.Duration,
	fn func(context.Context, T) (R, error),
) (R, error) {
	var zero R
	d, err := Receive(ctx, c, topic, wait)
	if err != nil {
		return zero, fmt.Errorf("failed to consume from %s: %w", topic, err)
	}
	var msg T
	if err := DecodeJSON(d.Payload, &msg); err != nil {
		return zero, commitPoison(ctx, c, d, err)
	}
	res, err := fn(ctx, msg)
	if errors.Is(err, ErrMalformedPayload) {
		return zero, commitPoison(ctx, c, d, err)
	}
	if err != nil {
		return zero, release(ctx, c, d, err)
	}
	if err := c.Commit(ctx, d); err != nil {
		return zero, release(ctx, c, d,
			fmt.Errorf("failed to commit delivery %d on %s: %w", d.Offset, topic, err))
	}
	return res, nil
}

func release(ctx context.Context, c Consumer, d *Delivery, cause error) error {
	if err := c.Release(context.WithoutCancel(ctx), d); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to release delivery %d: %w", d.Offset, err))
	}
	return cause
}

func commitPoison(ctx context.Context, c Consumer, d *Delivery, cause error) error {
	if err := c.Commit(ctx, d); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to commit malformed delivery: %w", err))
	}
	return cause
}
