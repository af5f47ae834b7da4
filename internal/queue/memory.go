package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryQueue implements a buffered in-process work channel that satisfies
// both the Publisher and Consumer interfaces. It provides at-least-once
// delivery within a single process: a nacked delivery with requeue set
// goes back on the channel.
type MemoryQueue struct {
	mu       sync.Mutex
	messages chan []byte
	logger   *slog.Logger
	closed   bool
}

var (
	_ Publisher = (*MemoryQueue)(nil)
	_ Consumer  = (*MemoryQueue)(nil)
)

// NewMemoryQueue creates a new in-process work channel with the specified
// buffer size.
func NewMemoryQueue(size int, logger *slog.Logger) *MemoryQueue {
	return &MemoryQueue{
		messages: make(chan []byte, size),
		logger:   logger,
	}
}

// Publish enqueues a payload. Returns ErrQueueFull when the buffer is at
// capacity and ErrQueueClosed after Close.
func (q *MemoryQueue) Publish(ctx context.Context, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.messages <- append([]byte(nil), body...):
		q.logger.Debug("payload enqueued",
			"queue_len", len(q.messages),
			"queue_cap", cap(q.messages))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.messages))
	}
}

// Consume returns a channel of deliveries backed by the queue buffer. The
// returned channel closes when ctx is cancelled or the queue is closed.
func (q *MemoryQueue) Consume(ctx context.Context) (<-chan Delivery, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q.mu.Unlock()

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case body, ok := <-q.messages:
				if !ok {
					return
				}
				select {
				case out <- &memoryDelivery{queue: q, body: body}:
				case <-ctx.Done():
					// Consumer went away mid-handoff; requeue so the
					// message is not lost.
					q.requeue(body)
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the work channel, preventing further publishes.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.messages)
		q.logger.Info("work channel closed")
	}
}

// Len reports the number of buffered, undelivered messages.
func (q *MemoryQueue) Len() int {
	return len(q.messages)
}

func (q *MemoryQueue) requeue(body []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.messages <- body:
	default:
		q.logger.Error("failed to requeue message, queue is full")
	}
}

// memoryDelivery is a single in-process message with ack/nack semantics.
type memoryDelivery struct {
	queue *MemoryQueue
	body  []byte
	once  sync.Once
}

func (d *memoryDelivery) Body() []byte {
	return d.body
}

func (d *memoryDelivery) Ack() error {
	d.once.Do(func() {})
	return nil
}

func (d *memoryDelivery) Nack(requeue bool) error {
	if requeue {
		d.once.Do(func() {
			d.queue.requeue(d.body)
		})
	} else {
		d.once.Do(func() {})
	}
	return nil
}
