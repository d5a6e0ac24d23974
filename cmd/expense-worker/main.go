package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pratik-sharma-25/expenseTracker/internal/amqp"
	"github.com/pratik-sharma-25/expenseTracker/internal/config"
	"github.com/pratik-sharma-25/expenseTracker/internal/log"
	"github.com/pratik-sharma-25/expenseTracker/internal/storage"
	"github.com/pratik-sharma-25/expenseTracker/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	var (
		store storage.Store
		err   error
	)
	switch cfg.DataBackend {
	case "memory":
		store = storage.NewMemoryStore()
		logger.Info("Initialized memory backend")
	default:
		store, err = storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	}
	defer store.Close()

	bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logger.Error("Failed to connect to message broker", "error", err, "exchange", cfg.AMQPExchange)
		os.Exit(1)
	}
	defer bus.Close()

	engine := worker.NewApplyEngine(store, bus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Apply worker starting", "exchange", cfg.AMQPExchange, "queues", amqp.Channels)
	if err := bus.Consume(ctx, engine.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Apply worker stopped gracefully")
}
