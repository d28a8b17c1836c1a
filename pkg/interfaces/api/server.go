// Package api exposes planning, capacity and three-way match operations over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger zerolog.Logger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/mrp", func(r chi.Router) {
			r.Post("/runs", h.RunMRP)
			r.Get("/runs", h.ListRuns)
			r.Get("/plan", h.GetLatestPlan)
			r.Get("/plan/{version}", h.GetPlan)
			r.Post("/actions/{id}/review", h.ReviewAction)
			r.Post("/actions/{id}/implement", h.ImplementAction)
		})

		r.Get("/capacity", h.GetCapacity)

		r.Route("/matches", func(r chi.Router) {
			r.Post("/", h.OpenMatchLine)
			r.Get("/{id}", h.GetMatchLine)
			r.Post("/{id}/receipts", h.RecordReceipt)
			r.Post("/{id}/invoices", h.RecordInvoice)
			r.Post("/{id}/reversals", h.ReverseEvent)
			r.Post("/{id}/resolve", h.ResolveVariance)
			r.Post("/{id}/release", h.ReleaseForPayment)
			r.Post("/{id}/pay", h.MarkPaid)
		})

		r.Get("/purchase-orders/{poID}/match-status", h.GetHeaderStatus)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// requestLogger logs one line per request with zerolog
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "http").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				event := logger.Info()
				if ww.Status() >= http.StatusInternalServerError {
					event = logger.Error()
				}
				event.
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
