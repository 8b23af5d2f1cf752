// Package main is the entrypoint for the alertsage alert-analysis server.
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

	"github.com/kiranshivaraju/alertsage/internal/ai"
	"github.com/kiranshivaraju/alertsage/internal/ai/chat"
	"github.com/kiranshivaraju/alertsage/internal/api"
	"github.com/kiranshivaraju/alertsage/internal/api/handler"
	mw "github.com/kiranshivaraju/alertsage/internal/api/middleware"
	"github.com/kiranshivaraju/alertsage/internal/cache"
	"github.com/kiranshivaraju/alertsage/internal/collect"
	"github.com/kiranshivaraju/alertsage/internal/config"
	"github.com/kiranshivaraju/alertsage/internal/loki"
	"github.com/kiranshivaraju/alertsage/internal/notify"
	"github.com/kiranshivaraju/alertsage/internal/pipeline"
	"github.com/kiranshivaraju/alertsage/internal/prometheus"
	"github.com/kiranshivaraju/alertsage/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

var logLevel = new(slog.LevelVar)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logLevel.Set(parseLevel(cfg.Server.LogLevel))
	slog.Info("config loaded",
		"prometheus_url", cfg.Prometheus.URL,
		"loki_url", cfg.Loki.BaseURL,
		"llm_model", cfg.LLM.Model,
		"time_window_minutes", cfg.Collect.TimeWindowMinutes,
	)
	if cfg.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY is not set; requests will be sent without credentials")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.New()

	// 2. Optional Redis cache
	var queryCache cache.Cache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		queryCache = redisCache
		slog.Info("redis connected")
	}

	// 3. Backend clients
	promClient, err := newPrometheusClient(cfg, queryCache)
	if err != nil {
		return fmt.Errorf("create prometheus client: %w", err)
	}
	lokiClient := newLokiClient(cfg, queryCache)

	// 4. Pipeline
	gatherer := collect.NewGatherer(
		collect.NewMetricCollector(promClient, cfg.Collect.MetricStep, metrics),
		collect.NewLogCollector(lokiClient, cfg.Collect.MaxLogLines, metrics),
		cfg.Collect.TimeWindowMinutes,
	)

	provider := chat.NewProvider(chat.Config{
		URL:         cfg.LLM.APIURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		TopP:        cfg.LLM.TopP,
		TopK:        cfg.LLM.TopK,
	})
	analyzer := ai.NewAnalyzer(provider, ai.Options{
		SystemPrompt: cfg.LLM.SystemPrompt,
		Timeout:      cfg.LLM.Timeout,
		Retry: ai.RetryPolicy{
			MaxAttempts: cfg.LLM.MaxAttempts,
			Multiplier:  cfg.LLM.RetryMultiplier,
			MinWait:     cfg.LLM.RetryMin,
			MaxWait:     cfg.LLM.RetryMax,
		},
		Recorder: metrics,
	})

	dispatcher := notify.NewDispatcher(cfg.Notify.Timeout, metrics, notificationChannels(cfg.Notify)...)
	slog.Info("notification channels configured", "count", dispatcher.Channels())

	coordinator := pipeline.NewCoordinator(gatherer, analyzer, dispatcher, pipeline.Options{
		PrometheusURL: cfg.Prometheus.URL,
		ErrorBackoff:  cfg.Pipeline.ErrorBackoff,
		Recorder:      metrics,
	})

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = coordinator.Run(ctx)
	}()

	// 5. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(queryCache, cfg.Server.RateLimitPerMinute),

		RootHandler: handler.NewRootHandler(),
		HealthHandler: handler.NewHealthHandler(
			handler.Services{Prometheus: cfg.Prometheus.URL, Loki: cfg.Loki.BaseURL, LLMModel: cfg.LLM.Model},
			coordinator,
			healthChecks(promClient, lokiClient, queryCache),
		),
		WebhookHandler: handler.NewWebhookHandler(coordinator, metrics),
		AnalyzeHandler: handler.NewAnalyzeHandler(coordinator, metrics),
		QueueHandler:   handler.NewQueueHandler(coordinator),
		MetricsHandler: metrics.Handler(),
	}

	router := api.NewRouter(deps)

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// POST /api/v1/analyze waits for gathering, retries and delivery
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		stop()
		<-workerDone
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		slog.Warn("pipeline worker did not stop before shutdown timeout")
	}

	slog.Info("server stopped gracefully")
	return nil
}

func newPrometheusClient(cfg *config.Config, c cache.Cache) (prometheus.Client, error) {
	client, err := prometheus.NewAPIClient(cfg.Prometheus.URL, cfg.Prometheus.Timeout)
	if err != nil {
		return nil, err
	}
	if c != nil && cfg.Redis.CacheTTL > 0 {
		return prometheus.NewCachedClient(client, c, cfg.Redis.CacheTTL), nil
	}
	return client, nil
}

func newLokiClient(cfg *config.Config, c cache.Cache) loki.Client {
	client := loki.NewHTTPClient(cfg.Loki.BaseURL, cfg.Loki.Username, cfg.Loki.Password, cfg.Loki.OrgID, cfg.Loki.Timeout)
	if c != nil && cfg.Redis.CacheTTL > 0 {
		return loki.NewCachedClient(client, c, cfg.Redis.CacheTTL)
	}
	return client
}

func notificationChannels(cfg config.NotifyConfig) []notify.Channel {
	var channels []notify.Channel
	for _, u := range cfg.SlackWebhookURLs {
		channels = append(channels, notify.NewSlackChannel(u))
	}
	for _, u := range cfg.GenericWebhookURLs {
		channels = append(channels, notify.NewWebhookChannel(u))
	}
	return channels
}

// healthChecks probes both backends and, when configured, the cache.
func healthChecks(p prometheus.Client, l loki.Client, c cache.Cache) map[string]handler.Check {
	checks := map[string]handler.Check{
		"prometheus": p.Ready,
		"loki":       l.Ready,
	}
	if c != nil {
		checks["cache"] = c.Ping
	}
	return checks
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
