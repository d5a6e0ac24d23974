package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/pratik-sharma-25/expenseTracker/internal/amqp"
	"github.com/pratik-sharma-25/expenseTracker/internal/auth"
	"github.com/pratik-sharma-25/expenseTracker/internal/config"
	apphttp "github.com/pratik-sharma-25/expenseTracker/internal/http"
	"github.com/pratik-sharma-25/expenseTracker/internal/log"
	"github.com/pratik-sharma-25/expenseTracker/internal/services"
	"github.com/pratik-sharma-25/expenseTracker/internal/storage"
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

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenDuration)
	authn := auth.NewAuthenticator(store, tokens)
	expenses := services.NewExpenseService(store, bus)
	server := apphttp.NewServer(cfg.Port, expenses, authn, tokens)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutdown signal received")
		return server.Stop(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
