// Package httpapi assembles the public HTTP surface: middleware chain,
// operational endpoints, and the case routes. Complaint intake is the only
// route open to anonymous callers; everything else sits behind bearer auth.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	casehandler "casefile/internal/cases/handler"
	"casefile/internal/platform/metrics"
	"casefile/internal/platform/middleware"
)

// Options carries the router's cross-cutting dependencies.
type Options struct {
	Cases          *casehandler.Handler
	TokenValidator middleware.TokenValidator
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
}

// NewRouter wires the full middleware chain and mounts every endpoint.
func NewRouter(opts Options) http.Handler {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Metadata)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Latency(opts.Metrics))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Intake stays open to the public; a valid token still attributes the
	// complaint to its caller.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.OptionalAuth(opts.TokenValidator))
		opts.Cases.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(opts.TokenValidator, opts.Logger))
		opts.Cases.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
