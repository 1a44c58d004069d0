// Package router assembles the HTTP surface: the Messenger webhook pair,
// health, and metrics.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jaspers-market/chatbridge/internal/channels/messenger"
	"github.com/jaspers-market/chatbridge/internal/dedup"
	httpmiddleware "github.com/jaspers-market/chatbridge/internal/http/middleware"
	"github.com/jaspers-market/chatbridge/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Messenger      *messenger.Adapter
	Dedup          *dedup.Cache
	MetricsHandler http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.Dedup))

	if cfg.Messenger != nil {
		r.Get("/webhook", cfg.Messenger.HandleVerification)
		r.Post("/webhook", cfg.Messenger.HandleWebhook)
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}

// healthHandler reports liveness plus the dedup backend state. A degraded
// cache is not a failure: the service keeps answering on the local store.
func healthHandler(cache *dedup.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok"}
		if cache != nil {
			body["dedup"] = cache.State().String()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	}
}
