package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/tendant/venue-admin/pkg/portal/api"
	"github.com/tendant/venue-admin/pkg/portal/config"
)

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Println("venue-admin server\n\nEnvironment variables:")
		fmt.Println(config.EnvUsage())
		return
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.ServerConfig) *slog.Logger {
	if cfg.Environment == "development" {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.SlogLevel(),
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func run(cfg *config.ServerConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := cfg.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer components.Close()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(components.Service, components.RouterOptions(cfg)...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Venue admin server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"database", cfg.DatabaseType,
			"storage", cfg.Storage.Type,
			"public_base_url", cfg.ResolvedPublicBaseURL())

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Waiting for pending attachment deletes")
	return nil
}
