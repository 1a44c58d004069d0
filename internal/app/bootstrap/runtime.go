// Package bootstrap builds the runtime dependencies of the bridge from
// configuration. Everything here degrades instead of failing: a missing
// redis or spreadsheet leaves the service running on its local fallbacks.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	appconfig "github.com/jaspers-market/chatbridge/internal/config"
	"github.com/jaspers-market/chatbridge/internal/knowledge"
	"github.com/jaspers-market/chatbridge/internal/orders"
	"github.com/jaspers-market/chatbridge/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, an eager ping surfaces connectivity problems at
// startup; the client is still returned so the dedup cache can recover
// once redis comes up. A nil client means permanently local-only dedup.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, dedup falls back to local store", "error", err)
		return client
	}
	return client
}

// BuildOrderAppender returns the Google Sheets sink, or the log-only sink
// when Sheets is not configured or fails to initialize.
func BuildOrderAppender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) orders.Appender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.SheetsSpreadsheetID) == "" {
		logger.Warn("no spreadsheet configured, orders will only be logged")
		return orders.NewLogAppender(logger)
	}

	var opts []option.ClientOption
	if cfg.SheetsCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.SheetsCredentialsFile))
	}
	appender, err := orders.NewSheetsAppender(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsRange, logger, opts...)
	if err != nil {
		logger.Error("sheets client init failed, orders will only be logged", "error", err)
		return orders.NewLogAppender(logger)
	}
	return appender
}

// BuildKnowledgeStore loads the store knowledge base if one is configured.
// A missing or malformed file leaves the store empty; replies then run on
// the base prompt alone.
func BuildKnowledgeStore(cfg *appconfig.Config, logger *logging.Logger) *knowledge.Store {
	if logger == nil {
		logger = logging.Default()
	}
	store := knowledge.NewStore(logger.Component("knowledge"))
	if cfg == nil || strings.TrimSpace(cfg.KnowledgeFile) == "" {
		return store
	}
	if err := store.LoadFile(cfg.KnowledgeFile); err != nil {
		logger.Warn("knowledge base not loaded", "error", err)
	}
	return store
}
