// Package main implements the producer API server: it accepts text
// generation requests, persists their initial state, enqueues them for
// the workers, and serves status lookups for polling clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tolaton/genqueue/internal/api"
	"github.com/tolaton/genqueue/internal/config"
	"github.com/tolaton/genqueue/internal/lifecycle"
	"github.com/tolaton/genqueue/internal/platform/logger"
	"github.com/tolaton/genqueue/internal/platform/rabbitmq"
	redisstore "github.com/tolaton/genqueue/internal/platform/redis"
	"github.com/tolaton/genqueue/internal/redact"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue", cfg.Queue.Name,
		"task_ttl", cfg.Task.TTL())

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
	defer func() {
		if err := workChannel.Close(); err != nil {
			appLogger.Error("failed to close work channel", "error", err)
		}
	}()
	appLogger.Info("connected to broker", "url", redact.URL(cfg.RabbitMQ.URL()))

	manager, err := lifecycle.NewManager(statusStore, workChannel, cfg.Task.TTL(), appLogger)
	if err != nil {
		return fmt.Errorf("failed to create lifecycle manager: %w", err)
	}

	handler := api.NewTaskHandler(manager, appLogger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	appLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
