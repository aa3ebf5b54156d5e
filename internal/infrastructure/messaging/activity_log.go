// Package messaging implements the in-process event bus.
package messaging

import (
	"log/slog"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY LOG SUBSCRIBER
// ══════════════════════════════════════════════════════════════════════════════

// ActivityLogSubscriber writes a structured log line for every domain
// event. It is the engine's audit trail of gamification activity.
type ActivityLogSubscriber struct {
	logger *slog.Logger
}

// NewActivityLogSubscriber creates the subscriber.
func NewActivityLogSubscriber(logger *slog.Logger) *ActivityLogSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityLogSubscriber{logger: logger}
}

// Register attaches the subscriber to the bus.
func (s *ActivityLogSubscriber) Register(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(s.handle)
}

// handle logs one event. Degraded attempts are warnings so operators
// can spot a failing scoring service in the log stream.
func (s *ActivityLogSubscriber) handle(event shared.Event) error {
	attrs := []any{
		"event_type", event.EventType(),
		"aggregate_id", event.AggregateID(),
		"occurred_at", event.OccurredAt(),
	}
	for k, v := range event.Payload() {
		attrs = append(attrs, k, v)
	}

	switch event.EventType() {
	case shared.EventAttemptDegraded:
		s.logger.Warn("domain event", attrs...)
	default:
		s.logger.Info("domain event", attrs...)
	}

	return nil
}
