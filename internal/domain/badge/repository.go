package badge

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines persistence for badge awards.
type Repository interface {
	// AwardOnce inserts the award unless one already exists for the
	// (learner, badge) pair. Returns true when this call created the
	// award; false means another submission won the race or the badge
	// was earned earlier - not an error either way.
	AwardOnce(ctx context.Context, award Award) (bool, error)

	// GetAwards returns every award held by the learner.
	GetAwards(ctx context.Context, learnerID string) ([]Award, error)

	// CountAwards returns how many badges the learner holds.
	CountAwards(ctx context.Context, learnerID string) (int, error)
}
