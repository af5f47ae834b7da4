package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tolaton/genqueue/internal/domain"
	"github.com/tolaton/genqueue/internal/queue"
	"github.com/tolaton/genqueue/internal/store"
)

// Common errors returned by the lifecycle manager.
var (
	ErrNilStore     = errors.New("status store cannot be nil")
	ErrNilPublisher = errors.New("publisher cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")

	// ErrEnqueueFailed is returned when the status store write succeeded
	// but the payload could not be published to the work channel. The
	// record is left PENDING and will expire; the caller must treat the
	// creation as not having fully succeeded.
	ErrEnqueueFailed = errors.New("task stored but enqueue failed")
)

// DefaultTaskTTL is used when the manager is constructed with a
// non-positive TTL. It must exceed the maximum expected end-to-end
// processing time plus the client polling window, or completed results can
// expire before being read.
const DefaultTaskTTL = time.Hour

// Manager owns the task lifecycle state machine. It creates tasks, writes
// their initial state, enqueues work, and applies worker-reported
// transitions to the status store. Both the producer process and the
// worker process hold a Manager over their own store and channel handles;
// the handles are injected at construction and the manager holds no
// connection management logic of its own.
type Manager struct {
	store     store.StatusStore
	publisher queue.Publisher
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates a lifecycle manager over the given status store and
// work channel publisher. Records are written with the given TTL; a
// non-positive TTL falls back to DefaultTaskTTL.
func NewManager(st store.StatusStore, pub queue.Publisher, ttl time.Duration, logger *slog.Logger) (*Manager, error) {
	if st == nil {
		return nil, ErrNilStore
	}
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}

	return &Manager{
		store:     st,
		publisher: pub,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// NewWorkerManager creates a manager for worker processes, which apply
// status transitions but never enqueue new work.
func NewWorkerManager(st store.StatusStore, ttl time.Duration, logger *slog.Logger) (*Manager, error) {
	return NewManager(st, nopPublisher{}, ttl, logger)
}

// nopPublisher rejects publishes. Worker-side managers never create tasks.
type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, body []byte) error {
	return errors.New("publisher not configured")
}

// Create generates a new unique task id, persists a PENDING record with
// the configured TTL, and enqueues the same payload onto the work channel.
// If the store write fails the task is never enqueued. If the enqueue
// fails after a successful store write, the error wraps ErrEnqueueFailed
// and the orphaned PENDING record is left to expire.
func (m *Manager) Create(ctx context.Context, prompt string, metadata map[string]any) (string, error) {
	if prompt == "" {
		return "", domain.ErrEmptyPrompt
	}

	task := domain.NewTask(prompt, metadata)
	payload, err := task.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	if err := m.store.Set(ctx, store.TaskKey(task.TaskID), payload, m.ttl); err != nil {
		return "", fmt.Errorf("failed to persist task: %w", err)
	}

	if err := m.publisher.Publish(ctx, payload); err != nil {
		m.logger.Error("task persisted but not enqueued, record will expire",
			"task_id", task.TaskID,
			"error", err)
		return "", fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}

	m.logger.Info("task created",
		"task_id", task.TaskID,
		"prompt_len", len(prompt))
	return task.TaskID, nil
}

// GetStatus reads and deserializes the task record. It returns an error
// wrapping store.ErrNotFound when the id is unknown or the record has
// expired, and an error wrapping store.ErrUnavailable when the read itself
// fails; the two remain distinguishable with errors.Is.
func (m *Manager) GetStatus(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := m.store.Get(ctx, store.TaskKey(taskID))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read task %s: %w", taskID, err)
	}

	task, err := domain.UnmarshalTask(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", taskID, err)
	}
	return task, nil
}

// MarkProcessing transitions a PENDING task to PROCESSING. Workers call it
// immediately after claiming a delivery, before doing any work. A missing
// record means the task expired before pickup and is a no-op success, as
// is a record that is already PROCESSING or terminal: the transition never
// regresses state.
func (m *Manager) MarkProcessing(ctx context.Context, taskID string) error {
	task, err := m.GetStatus(ctx, taskID)
	if err != nil {
		if store.IsNotFound(err) {
			m.logger.Warn("task expired before pickup", "task_id", taskID)
			return nil
		}
		return err
	}

	if task.Status != domain.StatusPending {
		m.logger.Debug("skipping processing transition",
			"task_id", taskID,
			"status", task.Status)
		return nil
	}

	task.Status = domain.StatusProcessing
	if err := m.write(ctx, task); err != nil {
		return err
	}

	m.logger.Info("task processing", "task_id", taskID)
	return nil
}

// MarkCompleted records a successful terminal outcome with the generated
// result. The full record is rewritten with a fresh TTL so a client still
// polling sees the terminal state before it can expire mid-flight.
// Repeating the call with the same result leaves the record identical.
func (m *Manager) MarkCompleted(ctx context.Context, taskID, result string) error {
	return m.markTerminal(ctx, taskID, domain.StatusCompleted, result, "")
}

// MarkFailed records a failed terminal outcome with a human-readable
// error description. Same TTL and idempotency behavior as MarkCompleted.
func (m *Manager) MarkFailed(ctx context.Context, taskID, errMsg string) error {
	return m.markTerminal(ctx, taskID, domain.StatusFailed, "", errMsg)
}

// markTerminal applies a terminal transition by full-record overwrite.
// Terminal-to-terminal rewrites are accepted last-writer-wins (a
// redelivered message may report completion twice); completed_at is set
// only on the first terminal write and preserved afterwards.
func (m *Manager) markTerminal(ctx context.Context, taskID string, status domain.Status, result, errMsg string) error {
	task, err := m.GetStatus(ctx, taskID)
	if err != nil {
		if store.IsNotFound(err) {
			m.logger.Warn("task expired before terminal write",
				"task_id", taskID,
				"status", status)
			return nil
		}
		return err
	}

	task.Status = status
	task.Result = result
	task.Error = errMsg
	if task.CompletedAt == nil {
		done := m.now().UTC()
		task.CompletedAt = &done
	}

	if err := m.write(ctx, task); err != nil {
		return err
	}

	m.logger.Info("task finished",
		"task_id", taskID,
		"status", status)
	return nil
}

// write serializes and stores the record with a fresh TTL.
func (m *Manager) write(ctx context.Context, task *domain.Task) error {
	payload, err := task.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize task %s: %w", task.TaskID, err)
	}
	if err := m.store.Set(ctx, store.TaskKey(task.TaskID), payload, m.ttl); err != nil {
		return fmt.Errorf("failed to persist task %s: %w", task.TaskID, err)
	}
	return nil
}
