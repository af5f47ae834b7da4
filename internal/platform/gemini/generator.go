// Package gemini implements the generation interface using Google's
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"google.golang.org/genai"

	"github.com/tolaton/genqueue/internal/config"
	"github.com/tolaton/genqueue/internal/generation"
)

// Generator implements the generation.Generator interface by sending the
// prompt to the Gemini API and returning the model's text response.
type Generator struct {
	logger *slog.Logger
	client *genai.Client
	model  string

	// maxRetries bounds additional attempts after a transient failure.
	maxRetries int
	baseDelay  time.Duration
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed generator from the LLM
// configuration.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:     logger,
		client:     client,
		model:      cfg.ModelName,
		maxRetries: 3,
		baseDelay:  2 * time.Second,
	}, nil
}

// Generate sends the prompt to the model and returns the generated text.
// Transient API failures are retried with exponential backoff and jitter;
// empty or blocked responses are returned immediately as permanent errors.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", generation.ErrGenerationFailed)
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"model", g.model,
			"attempt", attempt+1,
			"max_attempts", g.maxRetries+1)

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			// API-level failures are treated as transient and retried.
			lastErr = fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
			g.logger.ErrorContext(ctx, "Gemini API call failed",
				"attempt", attempt+1,
				"error", err)

			if attempt == g.maxRetries {
				break
			}
			if err := g.backoff(ctx, attempt); err != nil {
				return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
			}
			continue
		}

		text, err := extractText(resp)
		if err != nil {
			// Malformed or blocked responses do not improve on retry.
			return "", err
		}

		g.logger.InfoContext(ctx, "Gemini API call successful",
			"attempt", attempt+1,
			"response_len", len(text))
		return text, nil
	}

	return "", lastErr
}

// backoff waits out an exponentially growing, jittered delay or returns
// early when ctx is cancelled.
func (g *Generator) backoff(ctx context.Context, attempt int) error {
	delay := g.baseDelay << uint(attempt)
	delay += time.Duration(rand.Int63n(int64(g.baseDelay)))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// extractText pulls the generated text out of a response, classifying the
// ways a response can be unusable.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrInvalidResponse)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return text, nil
}
