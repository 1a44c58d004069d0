package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jaspers-market/chatbridge/internal/api/router"
	"github.com/jaspers-market/chatbridge/internal/app/bootstrap"
	"github.com/jaspers-market/chatbridge/internal/channels/messenger"
	appconfig "github.com/jaspers-market/chatbridge/internal/config"
	"github.com/jaspers-market/chatbridge/internal/conversation"
	"github.com/jaspers-market/chatbridge/internal/dedup"
	"github.com/jaspers-market/chatbridge/internal/observability/metrics"
	"github.com/jaspers-market/chatbridge/pkg/logging"
)

func main() {
	// Local development convenience; production sets real env vars.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting chatbridge API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bridgeMetrics := metrics.NewBridgeMetrics(registry)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	dedupCache := dedup.NewCache(redisClient, logger.Component("dedup"),
		dedup.WithTTL(cfg.DedupTTL),
		dedup.WithMaxReconnects(cfg.DedupMaxReconnects),
	)
	defer dedupCache.Close()

	appender := bootstrap.BuildOrderAppender(ctx, cfg, logger.Component("orders"))
	knowledgeStore := bootstrap.BuildKnowledgeStore(cfg, logger)

	if cfg.GroqAPIKey == "" {
		logger.Error("GROQ_API_KEY is required")
		os.Exit(1)
	}
	if cfg.PageAccessToken == "" || cfg.VerifyToken == "" {
		logger.Error("PAGE_ACCESS_TOKEN and VERIFY_TOKEN are required")
		os.Exit(1)
	}

	responder := conversation.NewResponder(
		conversation.NewGroqClient(cfg.GroqAPIKey),
		appender,
		cfg.GroqModel,
		logger.Component("conversation"),
		conversation.WithRetriever(knowledgeStore),
		conversation.WithMetrics(bridgeMetrics),
		conversation.WithSampling(float32(cfg.GroqTemperature), cfg.GroqMaxTokens),
	)

	var bridge *conversation.Bridge
	adapter := messenger.NewAdapter(cfg.PageAccessToken, cfg.PageID, cfg.VerifyToken,
		logger.Component("messenger"),
		func(msg messenger.ParsedInboundMessage) {
			// The webhook must ack within Meta's deadline; processing
			// happens off the request goroutine.
			go bridge.HandleInbound(context.Background(), msg)
		},
	)
	if cfg.GraphAPIBase != "" {
		adapter.SetGraphAPIBase(cfg.GraphAPIBase)
	}
	bridge = conversation.NewBridge(dedupCache, responder, adapter,
		logger.Component("bridge"), bridgeMetrics)

	r := router.New(&router.Config{
		Logger:         logger,
		Messenger:      adapter,
		Dedup:          dedupCache,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
