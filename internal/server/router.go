// Package server assembles the HTTP router from the overlay and stream handlers.
package server

import (
	"log/slog"
	"net/http"

	"camera-overlay/internal/overlay"
	"camera-overlay/internal/platform/logger"
	"camera-overlay/internal/platform/metrics"
	"camera-overlay/internal/platform/respond"
	"camera-overlay/internal/stream"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Overlays       *overlay.Service
	Launcher       *stream.Launcher
	Log            *slog.Logger
	Metrics        *metrics.Metrics
	AllowedOrigins []string
}

// NewRouter returns the service's chi router. Metrics may be nil, which also
// disables GET /metrics.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(d.Log))
	// Outside Recoverer so recovered panics are counted as 500s.
	if d.Metrics != nil {
		r.Use(metrics.RequestMiddleware(d.Metrics))
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	overlay.NewHandler(d.Overlays, d.Log, d.Metrics).Routes(r)
	stream.NewHandler(d.Launcher, d.Log).Routes(r)

	return r
}
