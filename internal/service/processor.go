// Package service orchestrates webhook processing: authenticate, decode,
// deliver.
package service

import (
	"context"
	"time"

	"github.com/hookline-systems/hookline/common/logging"
	"github.com/hookline-systems/hookline/internal/metrics"
	"github.com/hookline-systems/hookline/internal/models"
	"github.com/hookline-systems/hookline/internal/signature"
)

// NotificationChannel delivers one formatted alert. Implementations apply
// their own bounded timeout and return an error for ordinary delivery
// failures; duplicates must be tolerated because the upstream retry contract
// redelivers whole batches.
type NotificationChannel interface {
	Send(ctx context.Context, payload models.NotificationPayload) error
}

// Outcome classifies a processed webhook request.
type Outcome int

const (
	// OutcomeAccepted means every event in the batch was delivered
	// (vacuously true for an empty batch or an unconfigured channel).
	OutcomeAccepted Outcome = iota
	// OutcomeVerificationFailed covers malformed headers, stale timestamps,
	// bad signatures and a missing secret alike.
	OutcomeVerificationFailed
	// OutcomeDecodeFailed means the body failed to parse as an event batch.
	OutcomeDecodeFailed
	// OutcomeDeliveryFailed means at least one event could not be delivered;
	// the whole batch should be redelivered by the sender.
	OutcomeDeliveryFailed
)

// String returns the metrics label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeVerificationFailed:
		return "verification_failed"
	case OutcomeDecodeFailed:
		return "decode_failed"
	case OutcomeDeliveryFailed:
		return "delivery_failed"
	default:
		return "unknown"
	}
}

// Result is what a processed webhook request collapses to. Count is the
// number of events in the batch and is only meaningful for OutcomeAccepted.
// Err carries decode detail for logging; it is never echoed to the caller.
type Result struct {
	Outcome Outcome
	Count   int
	Err     error
}

// Processor runs the verify → decode → dispatch pipeline for one request at
// a time. It holds no per-request state, so a single instance is shared by
// all concurrent requests.
type Processor struct {
	secret           []byte
	toleranceSeconds int
	channel          NotificationChannel
	logger           *logging.Logger
}

// NewProcessor wires a processor with the shared webhook secret, the replay
// tolerance and the (possibly nil) notification channel.
func NewProcessor(secret string, toleranceSeconds int, channel NotificationChannel, logger *logging.Logger) *Processor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{
		secret:           []byte(secret),
		toleranceSeconds: toleranceSeconds,
		channel:          channel,
		logger:           logger,
	}
}

// Process authenticates and dispatches one webhook request.
func (p *Processor) Process(ctx context.Context, header string, body []byte) Result {
	// An unconfigured secret is reported exactly like a bad signature so a
	// caller cannot probe for misconfiguration.
	if len(p.secret) == 0 {
		p.logger.ErrorContext(ctx, "webhook secret not configured, rejecting request")
		return Result{Outcome: OutcomeVerificationFailed}
	}

	if !signature.Verify(header, body, p.secret, p.toleranceSeconds) {
		return Result{Outcome: OutcomeVerificationFailed}
	}

	events, err := models.ParseEvents(body)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to parse webhook events", logging.Error(err))
		return Result{Outcome: OutcomeDecodeFailed, Err: err}
	}

	if p.channel == nil {
		p.logger.WarnContext(ctx, "notification channel not configured, skipping notifications")
		return Result{Outcome: OutcomeAccepted, Count: len(events)}
	}

	p.logger.InfoContext(ctx, "processing webhook events", "count", len(events))

	// Events are delivered sequentially, in array order, on the one shared
	// channel. A failed send marks the batch failed but never stops the
	// loop; the remaining events still get their delivery attempt.
	allOK := true
	for _, event := range events {
		payload := models.NewNotificationPayload(event)

		start := time.Now()
		err := p.channel.Send(ctx, payload)
		metrics.DeliveryDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			p.logger.ErrorContext(ctx, "failed to send notification",
				logging.EventType(event.Type),
				logging.Tailnet(event.Tailnet),
				logging.Error(err),
			)
			metrics.DeliveryErrors.Inc()
			metrics.EventsTotal.WithLabelValues("failed").Inc()
			allOK = false
			continue
		}

		p.logger.InfoContext(ctx, "notification sent",
			logging.EventType(event.Type),
			logging.Tailnet(event.Tailnet),
		)
		metrics.EventsTotal.WithLabelValues("delivered").Inc()
	}

	if !allOK {
		return Result{Outcome: OutcomeDeliveryFailed, Count: len(events)}
	}
	return Result{Outcome: OutcomeAccepted, Count: len(events)}
}
