// Package main implements the worker process: it claims task deliveries
// from the work channel, runs the configured generator, and reports each
// task's terminal outcome before acknowledging the message.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tolaton/genqueue/internal/config"
	"github.com/tolaton/genqueue/internal/generation"
	"github.com/tolaton/genqueue/internal/lifecycle"
	"github.com/tolaton/genqueue/internal/platform/gemini"
	"github.com/tolaton/genqueue/internal/platform/logger"
	"github.com/tolaton/genqueue/internal/platform/rabbitmq"
	redisstore "github.com/tolaton/genqueue/internal/platform/redis"
	"github.com/tolaton/genqueue/internal/redact"
	"github.com/tolaton/genqueue/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("worker configuration loaded",
		"worker_count", cfg.Worker.Count,
		"queue", cfg.Queue.Name,
		"llm_provider", cfg.LLM.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statusStore, err := redisstore.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() {
		if err := statusStore.Close(); err != nil {
			appLogger.Error("failed to close redis client", "error", err)
		}
	}()

	workChannel, err := rabbitmq.Connect(cfg.RabbitMQ, cfg.Queue)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	appLogger.Info("connected to broker", "url", redact.URL(cfg.RabbitMQ.URL()))
	defer func() {
		if err := workChannel.Close(); err != nil {
			appLogger.Error("failed to close work channel", "error", err)
		}
	}()

	manager, err := lifecycle.NewWorkerManager(statusStore, cfg.Task.TTL(), appLogger)
	if err != nil {
		return fmt.Errorf("failed to create lifecycle manager: %w", err)
	}

	generator, err := buildGenerator(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	pool, err := worker.NewPool(workChannel, manager, generator,
		worker.PoolConfig{WorkerCount: cfg.Worker.Count}, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}

	if err := pool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	<-ctx.Done()
	appLogger.Info("shutting down")
	pool.Stop()

	return nil
}

// buildGenerator selects the generator implementation from configuration.
func buildGenerator(ctx context.Context, cfg *config.Config, appLogger *slog.Logger) (generation.Generator, error) {
	switch cfg.LLM.Provider {
	case "gemini":
		g, err := gemini.NewGenerator(ctx, appLogger, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini generator: %w", err)
		}
		return g, nil
	default:
		return generation.NewMockGenerator(cfg.LLM.MockMinDelay(), cfg.LLM.MockMaxDelay()), nil
	}
}
