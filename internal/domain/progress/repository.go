package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// SkillRepository defines persistence for per-skill mastery state.
type SkillRepository interface {
	// Get returns the mastery state for one (learner, skill) pair, or
	// nil when the skill has never been scored for this learner.
	Get(ctx context.Context, learnerID string, skill Skill) (*SkillProgress, error)

	// Upsert writes the mastery state, creating the row on first score.
	Upsert(ctx context.Context, p *SkillProgress) error

	// GetAll returns every scored skill for the learner, in canonical
	// skill order.
	GetAll(ctx context.Context, learnerID string) ([]*SkillProgress, error)
}

// WeeklyRepository defines persistence for the weekly activity grid.
type WeeklyRepository interface {
	// UpsertBest records a score for the entry's (learner, week,
	// weekday) key, keeping the maximum of the stored and new score.
	// Returns the score actually stored after the upsert.
	UpsertBest(ctx context.Context, e *WeeklyEntry) (int, error)

	// GetWeek returns all entries for one learner and week start.
	GetWeek(ctx context.Context, learnerID string, weekStart time.Time) ([]*WeeklyEntry, error)
}
