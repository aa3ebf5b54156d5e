// Package eventhandler contains subscribers for domain events.
// Handlers are the reactive part of the system: they react to
// aggregation results and run side effects like cache invalidation,
// keeping the submission pipeline itself free of read-model concerns.
package eventhandler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ATTEMPT SCORED HANDLER
// ═══════════════════════════════════════════════════════════════════════════

// PayloadInvalidator drops cached leaderboard payloads so the next read
// rebuilds them from the current standings.
type PayloadInvalidator interface {
	InvalidatePayloads(ctx context.Context) error
}

// OnAttemptScoredHandler invalidates cached leaderboard payloads when an
// attempt changes a learner's total score. The sorted-set ranking is
// updated synchronously by the submission pipeline; only the assembled
// JSON payloads go stale and need dropping here.
type OnAttemptScoredHandler struct {
	invalidator PayloadInvalidator
	logger      *slog.Logger
	config      AttemptScoredConfig

	mu              sync.Mutex
	lastInvalidated time.Time
}

// AttemptScoredConfig contains configuration for the handler.
type AttemptScoredConfig struct {
	// Cooldown bounds how often payloads are dropped. A burst of
	// submissions only needs one invalidation; the payload TTL covers
	// the rest.
	Cooldown time.Duration

	// Timeout bounds the invalidation call against Redis.
	Timeout time.Duration
}

// DefaultAttemptScoredConfig returns sensible defaults.
func DefaultAttemptScoredConfig() AttemptScoredConfig {
	return AttemptScoredConfig{
		Cooldown: 10 * time.Second,
		Timeout:  3 * time.Second,
	}
}

// NewOnAttemptScoredHandler creates a new handler.
func NewOnAttemptScoredHandler(
	invalidator PayloadInvalidator,
	logger *slog.Logger,
	config AttemptScoredConfig,
) *OnAttemptScoredHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnAttemptScoredHandler{
		invalidator: invalidator,
		logger:      logger.With("handler", "on_attempt_scored"),
		config:      config,
	}
}

// Register subscribes the handler to the events that move scores.
func (h *OnAttemptScoredHandler) Register(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventAttemptScored, h.Handle); err != nil {
		return err
	}
	// Degraded attempts record a zero score; totals do not move, but the
	// attempt count shown alongside leaderboard entries does.
	return bus.Subscribe(shared.EventAttemptDegraded, h.Handle)
}

// Handle implements shared.EventHandler.
func (h *OnAttemptScoredHandler) Handle(event shared.Event) error {
	if h.invalidator == nil {
		return nil
	}

	h.mu.Lock()
	if time.Since(h.lastInvalidated) < h.config.Cooldown {
		h.mu.Unlock()
		return nil
	}
	h.lastInvalidated = time.Now()
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if err := h.invalidator.InvalidatePayloads(ctx); err != nil {
		// Stale payloads expire on their own; log and move on.
		h.logger.Warn("failed to invalidate leaderboard payloads",
			"learner_id", event.AggregateID(),
			"error", err,
		)
		return nil
	}

	h.logger.Debug("leaderboard payloads invalidated",
		"event_type", event.EventType(),
		"learner_id", event.AggregateID(),
	)

	return nil
}
