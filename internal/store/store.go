package store

import (
	"context"
	"time"
)

// StatusStore defines the interface for durable, keyed, time-limited
// storage of serialized task records. Implementations carry no business
// logic: keys map to opaque values that expire after their TTL, and an
// expired key is indistinguishable from one that never existed.
type StatusStore interface {
	// Set writes a value under the given key with the given TTL, replacing
	// any previous value and resetting its expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get reads the value stored under the given key. It returns
	// ErrNotFound when the key is absent or expired, and an error wrapping
	// ErrUnavailable when the store itself cannot be reached.
	Get(ctx context.Context, key string) ([]byte, error)
}

// TaskKeyPrefix is prepended to task ids to form status store keys. Both
// producer and worker processes derive keys the same way.
const TaskKeyPrefix = "task:"

// TaskKey returns the status store key for a task id.
func TaskKey(taskID string) string {
	return TaskKeyPrefix + taskID
}
