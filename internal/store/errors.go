package store

import "errors"

// Common store errors used across all status store implementations.
var (
	// ErrNotFound is returned when a key is absent or its record has
	// expired. Callers must treat both cases identically.
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable is returned (wrapped) when the underlying store cannot
	// be reached. It is distinguishable from ErrNotFound so callers can
	// tell "task unknown or expired" apart from "store down".
	ErrUnavailable = errors.New("status store unavailable")
)

// IsNotFound checks if the error indicates an absent or expired record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable checks if the error indicates an unreachable store.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
