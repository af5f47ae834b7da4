package generation

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// MockGenerator simulates a language model by sleeping for a random delay
// inside a configured window and fabricating a response. It stands in for
// a real model during development and demos.
type MockGenerator struct {
	minDelay time.Duration
	maxDelay time.Duration
}

var _ Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock generator whose simulated latency is
// uniformly distributed between minDelay and maxDelay. Swapped or
// non-positive bounds collapse to a single fixed delay.
func NewMockGenerator(minDelay, maxDelay time.Duration) *MockGenerator {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &MockGenerator{minDelay: minDelay, maxDelay: maxDelay}
}

// Generate waits out the simulated latency and returns canned text that
// echoes the prompt. Cancellation during the wait is honored.
func (g *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	delay := g.minDelay
	if spread := g.maxDelay - g.minDelay; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Sprintf("Mock response to: %q (generated in %s)", prompt, delay.Round(time.Millisecond)), nil
}
