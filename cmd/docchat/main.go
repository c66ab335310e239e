package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/docchat/internal/api"
	"github.com/MikeSquared-Agency/docchat/internal/backend"
	"github.com/MikeSquared-Agency/docchat/internal/config"
	"github.com/MikeSquared-Agency/docchat/internal/hermes"
	"github.com/MikeSquared-Agency/docchat/internal/relay"
	"github.com/MikeSquared-Agency/docchat/internal/session"
	"github.com/MikeSquared-Agency/docchat/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("docchat starting", "port", cfg.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A missing backend is a deployment error; requests fail at the network layer.
	if cfg.BackendURL == "" {
		slog.Warn("BACKEND_URL is not set, questions and uploads will fail")
	}
	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	relayClient := backend.NewRelayClient(cfg.RelayURL, cfg.BackendTimeout)
	slog.Info("backend configured", "backend_url", cfg.BackendURL, "relay_url", cfg.RelayURL)

	// Events (optional)
	var events hermes.Publisher
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		events = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without events")
	}

	// Upload audit (optional)
	relayOpts := []relay.Option{relay.WithMaxMemory(cfg.UploadMemoryBytes)}
	apiOpts := []api.Option{api.WithMaxMemory(cfg.UploadMemoryBytes)}
	if events != nil {
		relayOpts = append(relayOpts, relay.WithPublisher(events))
	}
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		relayOpts = append(relayOpts, relay.WithRecorder(db))
		apiOpts = append(apiOpts, api.WithUploadLister(db))
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, upload audit disabled")
	}

	relayHandler := relay.New(backendClient, slog.Default(), relayOpts...)

	sessions := session.NewRegistry(cfg.Greeting, backendClient, relayClient, events, cfg.SessionIdleTTL, slog.Default())
	go sessions.Run(ctx)

	srv := api.NewServer(cfg.Port, sessions, relayHandler, slog.Default(), apiOpts...)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	slog.Info("docchat ready", "port", cfg.Port)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		// Start triggers a graceful Shutdown on ctx; wait for it to return.
		select {
		case err := <-errCh:
			if err != nil {
				slog.Error("HTTP server error", "error", err)
			}
		case <-time.After(15 * time.Second):
			slog.Warn("shutdown timed out")
		}
	case err := <-errCh:
		if err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}
	slog.Info("docchat stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
