package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/quizbank/reshape/internal/config"
	"github.com/quizbank/reshape/internal/core"
	"github.com/quizbank/reshape/internal/logging"
	"github.com/quizbank/reshape/internal/suggest"
	"github.com/quizbank/reshape/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"suggest_enabled", cfg.Suggest.Enabled,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	service := core.NewService()

	var suggester web.Suggester
	if cfg.Suggest.Enabled {
		suggester = suggest.NewClient(suggest.Config{
			BaseURL: cfg.Suggest.BaseURL,
			Model:   cfg.Suggest.Model,
			Timeout: cfg.Suggest.Timeout,
		})
	}

	server := web.NewServer(service, suggester, cfg)

	// Start the server in a goroutine so we can handle shutdown signals
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.Server.Addr())
		errCh <- server.Start(cfg.Server.Addr())
	}()

	// Wait for interrupt signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
