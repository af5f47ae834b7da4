package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a task record fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when wire data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrEmptyPrompt is returned when a submission carries no prompt text.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
)
