package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/sentinel/internal/api"
	"github.com/MikeSquared-Agency/sentinel/internal/config"
	"github.com/MikeSquared-Agency/sentinel/internal/engine"
	"github.com/MikeSquared-Agency/sentinel/internal/events"
	"github.com/MikeSquared-Agency/sentinel/internal/openai"
	"github.com/MikeSquared-Agency/sentinel/internal/reasoner"
	"github.com/MikeSquared-Agency/sentinel/internal/reporter"
	"github.com/MikeSquared-Agency/sentinel/internal/session"
	"github.com/MikeSquared-Agency/sentinel/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("sentinel starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session storage: Postgres when configured, otherwise a local file.
	var sessionStore session.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		sessionStore = pg
		slog.Info("database connected")
	} else {
		sessionStore = store.NewFile(cfg.SessionsFile)
		slog.Info("file store ready", "path", cfg.SessionsFile)
	}

	manager := session.NewManager(ctx, sessionStore, slog.Default())

	// Reasoning provider chain: operator key, then the low-cost fallback.
	var defaultProvider, fallbackProvider reasoner.Reasoner
	if cfg.OpenAIAPIKey != "" {
		defaultProvider = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		slog.Info("reasoning provider ready", "model", cfg.OpenAIModel)
	}
	if cfg.FallbackAPIKey != "" {
		fallbackProvider = openai.NewClient(cfg.FallbackAPIKey, cfg.FallbackModel)
	}
	if defaultProvider == nil && fallbackProvider == nil {
		slog.Warn("no reasoning provider configured, persona-only mode")
	}

	perRequest := func(credential string) reasoner.Reasoner {
		if !openai.ValidKey(credential) {
			return nil
		}
		return openai.NewClient(credential, cfg.OpenAIModel)
	}

	gateway := reasoner.NewGateway(defaultProvider, fallbackProvider, perRequest, cfg.ReasonerTimeout, slog.Default())

	// Event bus (optional).
	var publisher reporter.Publisher
	if cfg.NatsURL != "" {
		bus, err := events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		publisher = bus
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	rep := reporter.New(cfg.CallbackURL, publisher, manager.RecordReport, slog.Default())
	rep.Start()
	defer rep.Stop()

	eng := engine.New(manager, gateway, rep, publisher, slog.Default())

	srv := api.NewServer(cfg.Port, cfg.MasterAPIKey, eng, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("sentinel ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", "error", err)
	}

	manager.Flush(shutdownCtx)
	slog.Info("sentinel stopped")
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
