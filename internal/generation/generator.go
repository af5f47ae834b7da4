package generation

import "context"

// Generator defines the interface for producing text from a prompt. It is
// the boundary between the lifecycle core and whatever model actually does
// the work: the core has zero dependency on any specific model or external
// API.
type Generator interface {
	// Generate produces text for the given prompt. It returns the
	// generated output or an error if generation fails for any reason
	// (see errors.go for specific types). Implementations must honor
	// context cancellation.
	Generate(ctx context.Context, prompt string) (string, error)
}
