package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hookline-systems/hookline/common/httputil"
	"github.com/hookline-systems/hookline/common/logging"
	"github.com/hookline-systems/hookline/common/middleware"
	"github.com/hookline-systems/hookline/internal/metrics"
	"github.com/hookline-systems/hookline/internal/ratelimit"
	"github.com/hookline-systems/hookline/internal/service"
)

// SignatureHeader is the header Tailscale signs each delivery with.
const SignatureHeader = "Tailscale-Webhook-Signature"

// rejectionDetail is the one body every 401 carries. Verification and decode
// failures are deliberately indistinguishable to the caller.
const rejectionDetail = "Invalid webhook signature or timestamp"

// WebhookProcessor is the slice of the processing service the handler needs.
type WebhookProcessor interface {
	Process(ctx context.Context, header string, body []byte) service.Result
}

type WebhookHandler struct {
	processor WebhookProcessor
	limiter   ratelimit.RateLimiter
	logger    *logging.Logger
}

func NewWebhookHandler(processor WebhookProcessor, limiter ratelimit.RateLimiter, logger *logging.Logger) *WebhookHandler {
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		processor: processor,
		limiter:   limiter,
		logger:    logger,
	}
}

// HandleWebhook receives one signed Tailscale delivery on POST /events and
// maps the processing result onto the retry contract: 202 acknowledges the
// batch, 401 rejects it without detail, 500 asks the sender to redeliver.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	clientIP := getClientIP(r)
	allowed, err := h.limiter.Allow(r.Context(), clientIP)
	if err != nil {
		// A broken limiter must not take webhook intake down with it.
		h.logger.ErrorContext(r.Context(), "rate limiter check failed", logging.Error(err))
		allowed = true
	}
	if !allowed {
		h.logger.WarnContext(r.Context(), "rate limited webhook request", logging.IP(clientIP))
		httputil.WriteDetail(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	// The raw bytes feed signature verification; nothing may re-serialize
	// them first.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read request body", logging.Error(err))
		httputil.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer r.Body.Close()
	metrics.WebhookBytesTotal.Add(float64(len(body)))

	result := h.processor.Process(r.Context(), r.Header.Get(SignatureHeader), body)
	metrics.WebhooksTotal.WithLabelValues(result.Outcome.String()).Inc()

	requestID := middleware.GetRequestID(r.Context())

	switch result.Outcome {
	case service.OutcomeAccepted:
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
			"status":     "accepted",
			"message":    fmt.Sprintf("Received %d webhook event(s), processed successfully", result.Count),
			"request_id": requestID,
		})
	case service.OutcomeVerificationFailed, service.OutcomeDecodeFailed:
		h.logger.WarnContext(r.Context(), "webhook rejected",
			"outcome", result.Outcome.String(),
			logging.IP(clientIP),
		)
		httputil.WriteDetail(w, http.StatusUnauthorized, rejectionDetail)
	default:
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"status":     "failed",
			"message":    "Failed to process one or more events",
			"request_id": requestID,
		})
	}
}

// Health reports liveness.
func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready reports readiness.
func (h *WebhookHandler) Ready(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
