package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tolaton/genqueue/internal/domain"
	"github.com/tolaton/genqueue/internal/lifecycle"
)

// Common errors returned by the poller.
var (
	ErrNilManager = errors.New("lifecycle manager cannot be nil")
	ErrNilLogger  = errors.New("logger cannot be nil")

	// ErrTimeout is returned when the polling budget is exhausted while
	// the task remained non-terminal. Callers decide whether to keep
	// polling with GetStatus, submit a new task, or give up.
	ErrTimeout = errors.New("polling budget exhausted")
)

// PollConfig controls the polling loop. The effective timeout is
// PollInterval * MaxAttempts; there is no separate wall-clock deadline.
type PollConfig struct {
	// PollInterval is the wait between consecutive status reads.
	PollInterval time.Duration

	// MaxAttempts is the number of status reads before giving up.
	MaxAttempts int
}

// DefaultPollConfig returns a PollConfig matching the interactive client's
// historical defaults: one read per second for a minute.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		PollInterval: time.Second,
		MaxAttempts:  60,
	}
}

// Poller submits tasks and waits for their outcome by repeatedly reading
// the status store through the lifecycle manager. Polling is a pure read
// loop with no side effects on the task record.
type Poller struct {
	manager *lifecycle.Manager
	logger  *slog.Logger
}

// NewPoller creates a poller over the given lifecycle manager.
func NewPoller(manager *lifecycle.Manager, logger *slog.Logger) (*Poller, error) {
	if manager == nil {
		return nil, ErrNilManager
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	return &Poller{manager: manager, logger: logger}, nil
}

// SubmitAndWait creates a task and polls its status until a terminal state
// is observed, the attempt budget runs out (ErrTimeout), or the task
// disappears or the store errors, which are propagated immediately without
// further retries. A task that FAILED is a successful protocol outcome:
// the terminal record is returned with a nil error and the caller reads
// the failure from the task itself.
//
// The wait between polls is cancellable through ctx; a single in-flight
// status read is not interrupted.
func (p *Poller) SubmitAndWait(ctx context.Context, prompt string, metadata map[string]any, cfg PollConfig) (*domain.Task, error) {
	if cfg.PollInterval <= 0 || cfg.MaxAttempts <= 0 {
		cfg = DefaultPollConfig()
	}

	taskID, err := p.manager.Create(ctx, prompt, metadata)
	if err != nil {
		return nil, err
	}

	return p.Wait(ctx, taskID, cfg)
}

// Wait polls an already-created task until a terminal state, timeout, or
// error. Split out from SubmitAndWait so callers holding a task id from an
// earlier submission can resume waiting.
func (p *Poller) Wait(ctx context.Context, taskID string, cfg PollConfig) (*domain.Task, error) {
	if cfg.PollInterval <= 0 || cfg.MaxAttempts <= 0 {
		cfg = DefaultPollConfig()
	}

	logger := p.logger.With("task_id", taskID)

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		task, err := p.manager.GetStatus(ctx, taskID)
		if err != nil {
			// NotFound and store failures abort the loop; retrying a
			// vanished task cannot succeed and retrying against a broken
			// store belongs to the caller.
			return nil, err
		}

		logger.Debug("poll attempt",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"status", task.Status)

		if task.Status.IsTerminal() {
			return task, nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		if err := sleep(ctx, cfg.PollInterval); err != nil {
			return nil, err
		}
	}

	logger.Info("polling timed out", "max_attempts", cfg.MaxAttempts)
	return nil, fmt.Errorf("%w: task %s still pending after %d attempts",
		ErrTimeout, taskID, cfg.MaxAttempts)
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
