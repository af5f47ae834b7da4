package queue

import (
	"context"
	"errors"
)

// Common errors returned by work channel implementations.
var (
	ErrQueueClosed = errors.New("work channel is closed")
	ErrQueueFull   = errors.New("work channel is full")
)

// Publisher provides the producer side of the work channel, allowing the
// lifecycle manager to enqueue serialized task payloads without the
// ability to consume them.
type Publisher interface {
	// Publish enqueues a payload for delivery to exactly one active worker.
	// Returns an error if the channel is full, closed, or unreachable.
	Publish(ctx context.Context, body []byte) error
}

// Delivery is a single message handed to a worker. The worker must call
// exactly one of Ack or Nack once it is done with the message; Ack must
// happen only after the terminal status write succeeds so a crash in
// between causes redelivery rather than silent loss.
type Delivery interface {
	// Body returns the serialized task payload.
	Body() []byte

	// Ack confirms the message was fully handled and must not be redelivered.
	Ack() error

	// Nack rejects the message. With requeue set, the channel redelivers it
	// to another (or the same) worker.
	Nack(requeue bool) error
}

// Consumer provides the worker side of the work channel.
type Consumer interface {
	// Consume returns a channel of deliveries. The channel is closed when
	// the context is cancelled or the underlying connection goes away.
	Consume(ctx context.Context) (<-chan Delivery, error)
}
