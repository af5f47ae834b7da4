package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolaton/genqueue/internal/domain"
	"github.com/tolaton/genqueue/internal/lifecycle"
	"github.com/tolaton/genqueue/internal/queue"
	"github.com/tolaton/genqueue/internal/store"
	"github.com/tolaton/genqueue/internal/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// generatorFunc adapts a function to the generation.Generator interface.
type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// harness is a full single-process wiring: memory store, memory queue,
// one lifecycle manager shared by producer and workers.
type harness struct {
	store   *store.MemoryStore
	queue   *queue.MemoryQueue
	manager *lifecycle.Manager
	pool    *worker.Pool
}

func newHarness(t *testing.T, gen generatorFunc, workers int) *harness {
	t.Helper()

	st := store.NewMemoryStore()
	q := queue.NewMemoryQueue(16, testLogger())
	m, err := lifecycle.NewManager(st, q, time.Hour, testLogger())
	require.NoError(t, err)

	pool, err := worker.NewPool(q, m, gen, worker.PoolConfig{WorkerCount: workers}, testLogger())
	require.NoError(t, err)

	return &harness{store: st, queue: q, manager: m, pool: pool}
}

// waitForStatus polls until the task reaches the wanted status or the
// deadline passes.
func waitForStatus(t *testing.T, m *lifecycle.Manager, taskID string, want domain.Status) *domain.Task {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		task, err := m.GetStatus(context.Background(), taskID)
		if err == nil && task.Status == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached status %s", taskID, want)
	return nil
}

// TestEndToEndCompletion covers the full happy path: create, worker
// claims, worker completes, status shows COMPLETED with the result and a
// completion time no earlier than creation.
func TestEndToEndCompletion(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(ctx context.Context, prompt string) (string, error) {
		return "An old silent pond / A frog jumps into the pond / Splash! Silence again", nil
	}, 2)

	require.NoError(t, h.pool.Start())
	defer h.pool.Stop()

	taskID, err := h.manager.Create(context.Background(), "Write a haiku", map[string]any{"source": "test"})
	require.NoError(t, err)

	task := waitForStatus(t, h.manager, taskID, domain.StatusCompleted)
	assert.Equal(t, "An old silent pond / A frog jumps into the pond / Splash! Silence again", task.Result)
	assert.Empty(t, task.Error)
	require.NotNil(t, task.CompletedAt)
	assert.False(t, task.CompletedAt.Before(task.CreatedAt))

	// The delivery was acknowledged; nothing is left to redeliver.
	assert.Equal(t, 0, h.queue.Len())
}

// TestGenerationFailureIsRecorded verifies that a failing generator
// resolves to a FAILED record instead of a task stuck in PROCESSING.
func TestGenerationFailureIsRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("model quota exhausted")
	}, 1)

	require.NoError(t, h.pool.Start())
	defer h.pool.Stop()

	taskID, err := h.manager.Create(context.Background(), "x", nil)
	require.NoError(t, err)

	task := waitForStatus(t, h.manager, taskID, domain.StatusFailed)
	assert.Equal(t, "model quota exhausted", task.Error)
	assert.Empty(t, task.Result)
	require.NotNil(t, task.CompletedAt)
}

// TestGeneratorPanicIsRecorded verifies that even a panicking generator
// never abandons a claimed task.
func TestGeneratorPanicIsRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(ctx context.Context, prompt string) (string, error) {
		panic("nil pointer in model client")
	}, 1)

	require.NoError(t, h.pool.Start())
	defer h.pool.Stop()

	taskID, err := h.manager.Create(context.Background(), "x", nil)
	require.NoError(t, err)

	task := waitForStatus(t, h.manager, taskID, domain.StatusFailed)
	assert.Contains(t, task.Error, "generator panic")
}

// TestExpiredTaskIsStillProcessed verifies the worker contract for a task
// whose record expired before pickup: MarkProcessing is a no-op success
// and the delivery is acknowledged rather than treated as fatal.
func TestExpiredTaskIsStillProcessed(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	q := queue.NewMemoryQueue(16, testLogger())
	m, err := lifecycle.NewManager(st, q, time.Hour, testLogger())
	require.NoError(t, err)

	generated := make(chan string, 1)
	pool, err := worker.NewPool(q, m, generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		generated <- prompt
		return "late output", nil
	}), worker.PoolConfig{WorkerCount: 1}, testLogger())
	require.NoError(t, err)

	// Enqueue a payload for a task that no longer exists in the store.
	orphan := domain.NewTask("orphaned prompt", nil)
	payload, err := orphan.Marshal()
	require.NoError(t, err)
	require.NoError(t, q.Publish(context.Background(), payload))

	require.NoError(t, pool.Start())
	defer pool.Stop()

	select {
	case prompt := <-generated:
		assert.Equal(t, "orphaned prompt", prompt)
	case <-time.After(3 * time.Second):
		t.Fatal("worker never processed the orphaned delivery")
	}

	// The record stays gone; the terminal write was a no-op.
	require.Eventually(t, func() bool { return q.Len() == 0 }, 3*time.Second, 5*time.Millisecond)
	_, err = m.GetStatus(context.Background(), orphan.TaskID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// TestUndecodablePayloadIsDropped verifies that a poison message is
// removed from the queue instead of being redelivered forever.
func TestUndecodablePayloadIsDropped(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(ctx context.Context, prompt string) (string, error) {
		t.Error("generator must not run for an undecodable payload")
		return "", nil
	}, 1)

	require.NoError(t, h.queue.Publish(context.Background(), []byte("not json")))

	require.NoError(t, h.pool.Start())
	defer h.pool.Stop()

	require.Eventually(t, func() bool { return h.queue.Len() == 0 }, 3*time.Second, 5*time.Millisecond)
}

func TestNewPoolValidatesDependencies(t *testing.T) {
	t.Parallel()

	st := store.NewMemoryStore()
	q := queue.NewMemoryQueue(1, testLogger())
	m, err := lifecycle.NewManager(st, q, time.Hour, testLogger())
	require.NoError(t, err)
	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) { return "", nil })

	_, err = worker.NewPool(nil, m, gen, worker.DefaultPoolConfig(), testLogger())
	assert.ErrorIs(t, err, worker.ErrNilConsumer)

	_, err = worker.NewPool(q, nil, gen, worker.DefaultPoolConfig(), testLogger())
	assert.ErrorIs(t, err, worker.ErrNilManager)

	_, err = worker.NewPool(q, m, nil, worker.DefaultPoolConfig(), testLogger())
	assert.ErrorIs(t, err, worker.ErrNilGenerator)

	_, err = worker.NewPool(q, m, gen, worker.DefaultPoolConfig(), nil)
	assert.ErrorIs(t, err, worker.ErrNilLogger)
}
