package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tolaton/genqueue/internal/domain"
	"github.com/tolaton/genqueue/internal/generation"
	"github.com/tolaton/genqueue/internal/lifecycle"
	"github.com/tolaton/genqueue/internal/queue"
)

// Common errors returned when constructing a pool.
var (
	ErrNilConsumer  = errors.New("consumer cannot be nil")
	ErrNilManager   = errors.New("lifecycle manager cannot be nil")
	ErrNilGenerator = errors.New("generator cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
)

// PoolConfig holds configuration options for the worker pool
type PoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultPoolConfig returns a PoolConfig with reasonable defaults
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		WorkerCount: 2,
	}
}

// Pool manages a set of worker goroutines that claim task deliveries from
// the work channel, run the generator, and report the outcome through the
// lifecycle manager. Each delivery is acknowledged only after its terminal
// status write succeeds, so a crash between the two causes redelivery and
// a second idempotent terminal write rather than silent loss.
type Pool struct {
	consumer    queue.Consumer
	manager     *lifecycle.Manager
	generator   generation.Generator
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is used for cancellation and shutdown signaling
	ctx    context.Context
	cancel context.CancelFunc

	logger *slog.Logger
}

// NewPool creates a new worker pool with the specified configuration.
func NewPool(
	consumer queue.Consumer,
	manager *lifecycle.Manager,
	generator generation.Generator,
	config PoolConfig,
	logger *slog.Logger,
) (*Pool, error) {
	if consumer == nil {
		return nil, ErrNilConsumer
	}
	if manager == nil {
		return nil, ErrNilManager
	}
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		consumer:    consumer,
		manager:     manager,
		generator:   generator,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}, nil
}

// Start opens the consumer and launches the worker goroutines. All workers
// compete over the same delivery stream.
func (p *Pool) Start() error {
	deliveries, err := p.consumer.Consume(p.ctx)
	if err != nil {
		return fmt.Errorf("failed to open consumer: %w", err)
	}

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, deliveries)
	}

	p.logger.Info("worker pool started", "worker_count", p.workerCount)
	return nil
}

// Stop cancels all workers and waits for in-flight deliveries to finish.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// worker consumes deliveries until the stream closes or the pool stops.
func (p *Pool) worker(id int, deliveries <-chan queue.Delivery) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return
		case d, ok := <-deliveries:
			if !ok {
				p.logger.Debug("delivery channel closed, stopping worker", "worker_id", id)
				return
			}
			p.handleDelivery(d, id)
		}
	}
}

// handleDelivery runs the worker contract for one message: claim the task,
// generate, report exactly one terminal outcome, then acknowledge.
func (p *Pool) handleDelivery(d queue.Delivery, workerID int) {
	ctx := p.ctx

	task, err := domain.UnmarshalTask(d.Body())
	if err != nil {
		// A payload that cannot be decoded will never become decodable;
		// drop it instead of cycling it through the queue forever.
		p.logger.Error("discarding undecodable payload",
			"worker_id", workerID,
			"error", err)
		if nackErr := d.Nack(false); nackErr != nil {
			p.logger.Error("failed to nack undecodable payload", "error", nackErr)
		}
		return
	}

	logger := p.logger.With(
		"task_id", task.TaskID,
		"worker_id", workerID,
	)

	if err := p.manager.MarkProcessing(ctx, task.TaskID); err != nil {
		// The status store is unreachable; requeue so another worker can
		// claim the task once the store is back.
		logger.Error("failed to mark task processing, requeueing", "error", err)
		if nackErr := d.Nack(true); nackErr != nil {
			logger.Error("failed to nack delivery", "error", nackErr)
		}
		return
	}

	logger.Info("processing task")

	result, genErr := p.generate(ctx, task.Prompt)

	var writeErr error
	if genErr != nil {
		logger.Error("generation failed", "error", genErr)
		writeErr = p.manager.MarkFailed(ctx, task.TaskID, genErr.Error())
	} else {
		writeErr = p.manager.MarkCompleted(ctx, task.TaskID, result)
	}

	if writeErr != nil {
		// The terminal outcome is not durable yet; keep the message so it
		// is redelivered and the write retried.
		logger.Error("failed to write terminal status, requeueing", "error", writeErr)
		if nackErr := d.Nack(true); nackErr != nil {
			logger.Error("failed to nack delivery", "error", nackErr)
		}
		return
	}

	if err := d.Ack(); err != nil {
		logger.Error("failed to ack delivery", "error", err)
		return
	}

	if genErr != nil {
		logger.Info("task failed and outcome recorded")
	} else {
		logger.Info("task completed successfully")
	}
}

// generate invokes the generator, converting a panic into an error so an
// exploding model integration resolves to a FAILED task instead of an
// abandoned PROCESSING record.
func (p *Pool) generate(ctx context.Context, prompt string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: generator panic: %v", generation.ErrGenerationFailed, r)
		}
	}()
	return p.generator.Generate(ctx, prompt)
}
