package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"weave/internal/observability"
	"weave/internal/service"
)

const emitTimeout = 5 * time.Second

// ConnectionEmitter publishes connection events to the participants' Redis
// channels. Delivery is fire-and-forget: publishing happens on a detached
// goroutine with its own timeout, failures are counted and logged, and
// nothing is ever reported back to the mutation that triggered the event.
type ConnectionEmitter struct {
	notifier *Notifier
	logger   *slog.Logger
}

// NewConnectionEmitter returns an emitter backed by the given notifier.
func NewConnectionEmitter(notifier *Notifier, logger *slog.Logger) *ConnectionEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionEmitter{notifier: notifier, logger: logger}
}

// Emit implements service.EventEmitter.
func (e *ConnectionEmitter) Emit(_ context.Context, recipients []uint, event service.ConnectionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("marshal connection event",
			slog.String("type", event.Type),
			slog.String("error", err.Error()))
		return
	}

	observability.ConnectionEventsTotal.WithLabelValues(event.Type).Inc()

	for _, userID := range recipients {
		userID := userID
		go func() {
			// Detached from the request context: a slow transport
			// must not block or fail the mutation.
			ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
			defer cancel()

			if err := e.notifier.PublishUser(ctx, userID, string(payload)); err != nil {
				observability.EventPublishFailures.WithLabelValues(event.Type).Inc()
				e.logger.Warn("connection event delivery failed",
					slog.String("type", event.Type),
					slog.Uint64("user_id", uint64(userID)),
					slog.String("error", err.Error()))
			}
		}()
	}
}
