package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types published by the aggregation pipeline.
const (
	// EventAttemptScored - a recitation attempt was scored and aggregated.
	EventAttemptScored EventType = "attempt.scored"

	// EventAttemptDegraded - the oracle failed and a zero-score attempt
	// was recorded instead.
	EventAttemptDegraded EventType = "attempt.degraded"

	// EventBadgeAwarded - a badge was unlocked for the first time.
	EventBadgeAwarded EventType = "badge.awarded"

	// EventStreakExtended - the daily streak grew by one.
	EventStreakExtended EventType = "streak.extended"

	// EventStreakBroken - a gap in activity reset the streak.
	EventStreakBroken EventType = "streak.broken"

	// EventLevelUp - the learner's derived level changed.
	EventLevelUp EventType = "learner.level_up"
)

// Event is the interface all domain events implement.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate (learner) the event belongs to.
	AggregateID() string

	// Payload returns the event data for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	Type        EventType
	Timestamp   time.Time
	Aggregate   string
	Correlation string
}

// EventType returns the type of the event.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the aggregate ID.
func (e BaseEvent) AggregateID() string {
	return e.Aggregate
}

// NewBaseEvent creates a base event with the current timestamp.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Aggregate: aggregateID,
	}
}

// WithCorrelationID attaches a correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.Correlation = id
	return e
}

// AttemptScoredEvent is published after a submission is fully aggregated.
type AttemptScoredEvent struct {
	BaseEvent
	AttemptID    string
	ContentRef   string
	OverallScore int
	Degraded     bool
	NewStreak    int
	NewTotal     int
}

// Payload returns the event data.
func (e AttemptScoredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"attempt_id":    e.AttemptID,
		"content_ref":   e.ContentRef,
		"overall_score": e.OverallScore,
		"degraded":      e.Degraded,
		"new_streak":    e.NewStreak,
		"new_total":     e.NewTotal,
	}
}

// NewAttemptScoredEvent creates an AttemptScoredEvent.
func NewAttemptScoredEvent(learnerID, attemptID, contentRef string, overallScore int, degraded bool, newStreak, newTotal int) AttemptScoredEvent {
	eventType := EventAttemptScored
	if degraded {
		eventType = EventAttemptDegraded
	}
	return AttemptScoredEvent{
		BaseEvent:    NewBaseEvent(eventType, learnerID),
		AttemptID:    attemptID,
		ContentRef:   contentRef,
		OverallScore: overallScore,
		Degraded:     degraded,
		NewStreak:    newStreak,
		NewTotal:     newTotal,
	}
}

// BadgeAwardedEvent is published when a badge is unlocked for the first time.
type BadgeAwardedEvent struct {
	BaseEvent
	BadgeID   string
	BadgeName string
}

// Payload returns the event data.
func (e BadgeAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"badge_id":   e.BadgeID,
		"badge_name": e.BadgeName,
	}
}

// NewBadgeAwardedEvent creates a BadgeAwardedEvent.
func NewBadgeAwardedEvent(learnerID, badgeID, badgeName string) BadgeAwardedEvent {
	return BadgeAwardedEvent{
		BaseEvent: NewBaseEvent(EventBadgeAwarded, learnerID),
		BadgeID:   badgeID,
		BadgeName: badgeName,
	}
}

// StreakBrokenEvent is published when a gap in activity resets the streak.
type StreakBrokenEvent struct {
	BaseEvent
	PreviousStreak int
	DaysMissed     int
}

// Payload returns the event data.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a StreakBrokenEvent.
func NewStreakBrokenEvent(learnerID string, previousStreak, daysMissed int) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, learnerID),
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// LevelUpEvent is published when the derived level changes.
type LevelUpEvent struct {
	BaseEvent
	OldLevel string
	NewLevel string
	Total    int
}

// Payload returns the event data.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"total":     e.Total,
	}
}

// NewLevelUpEvent creates a LevelUpEvent.
func NewLevelUpEvent(learnerID, oldLevel, newLevel string, total int) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, learnerID),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		Total:     total,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
