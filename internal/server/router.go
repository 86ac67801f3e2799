package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hookline-systems/hookline/common/logging"
	"github.com/hookline-systems/hookline/common/middleware"
	"github.com/hookline-systems/hookline/internal/handlers"
)

// NewRouter constructs the relay's HTTP handler chain. Request IDs are
// assigned outermost so even panic responses carry one.
func NewRouter(h *handlers.WebhookHandler, logger *logging.Logger) http.Handler {
	mux := http.NewServeMux()

	// Webhook intake
	mux.HandleFunc("/events", h.HandleWebhook)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = requestLogger(logger)(handler)
	handler = middleware.Recover(logger.Logger)(handler)
	return middleware.RequestID(handler)
}

// statusWriter records the status code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func requestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.InfoContext(r.Context(), "http request",
				logging.Method(r.Method),
				logging.Path(r.URL.Path),
				logging.Status(sw.status),
				logging.Duration(time.Since(start).Milliseconds()),
			)
		})
	}
}
