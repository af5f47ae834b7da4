package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when text generation fails for any
	// general reason
	ErrGenerationFailed = errors.New("failed to generate text from prompt")

	// ErrInvalidResponse is returned when the model response cannot be
	// parsed or is empty
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrTransientFailure is returned for temporary errors that might
	// resolve on retry
	ErrTransientFailure = errors.New("transient error during text generation")

	// ErrInvalidConfig is returned when the generator configuration is
	// invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
