package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/telexorg/summarizebot/internal/bot"
	"github.com/telexorg/summarizebot/internal/config"
	"github.com/telexorg/summarizebot/internal/extract"
	"github.com/telexorg/summarizebot/internal/httpapi"
	"github.com/telexorg/summarizebot/internal/llm"
	"github.com/telexorg/summarizebot/internal/logging"
	"github.com/telexorg/summarizebot/internal/memory"
	"github.com/telexorg/summarizebot/internal/observability"
)

func main() {
	// A local .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; completion calls will fail")
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := memory.NewStore(ctx, cfg.DatabaseURL, cfg.StoragePath)
	if err != nil {
		logger.Error("memory store init failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	client := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
	})

	fetcher := extract.NewFetcher(cfg.FetchTimeout, cfg.DownloadTimeout, cfg.MaxDownloadBytes)

	handler := bot.New(store, client, fetcher, metrics, logger, bot.Options{
		TriggerPhrase:  cfg.TriggerPhrase,
		ScrapeMaxChars: cfg.ScrapeMaxChars,
		PromptMaxChars: cfg.PromptMaxChars,
	})

	api := httpapi.New(cfg, handler, metrics, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr(),
		Handler: api.Router(),
	}

	go func() {
		logger.Info("server listening", "addr", cfg.BindAddr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}
