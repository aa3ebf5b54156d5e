package learner

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the storage contract for the learner aggregate.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the persistence operations for learners.
type Repository interface {
	// Create registers a new learner.
	// Returns ErrLearnerAlreadyExists if the ID is taken.
	Create(ctx context.Context, l *Learner) error

	// GetByID returns a learner by internal ID.
	// Returns ErrLearnerNotFound if no such learner exists.
	GetByID(ctx context.Context, id string) (*Learner, error)

	// GetByIDForUpdate loads a learner while taking a row-level lock,
	// serializing concurrent submissions for the same learner. Must be
	// called inside a transaction.
	// Returns ErrLearnerNotFound if no such learner exists.
	GetByIDForUpdate(ctx context.Context, id string) (*Learner, error)

	// UpdateLedger persists the streak/score ledger fields after an
	// attempt has been applied.
	// Returns ErrLearnerNotFound if no such learner exists.
	UpdateLedger(ctx context.Context, l *Learner) error

	// UpdateProfile persists display name and visibility changes.
	// Returns ErrLearnerNotFound if no such learner exists.
	UpdateProfile(ctx context.Context, l *Learner) error

	// Exists reports whether a learner with the given ID exists.
	Exists(ctx context.Context, id string) (bool, error)

	// Count returns the total number of learners.
	Count(ctx context.Context) (int, error)

	// ListPublicByTotalScore returns public learners ordered by total
	// score descending, for the leaderboard.
	ListPublicByTotalScore(ctx context.Context, opts ListOptions) ([]*Learner, error)

	// PublicRank returns the 1-based leaderboard position of a public
	// learner, counting only public learners.
	// Returns ErrLearnerNotFound if no such learner exists.
	PublicRank(ctx context.Context, id string) (int, error)
}

// ListOptions contains pagination parameters.
type ListOptions struct {
	// Offset - number of rows to skip.
	Offset int

	// Limit - maximum number of rows to return.
	Limit int
}

// DefaultListOptions returns the default pagination.
func DefaultListOptions() ListOptions {
	return ListOptions{Offset: 0, Limit: 50}
}

// WithOffset sets the offset.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit sets the limit.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Cache defines short-lived caching for learner snapshots and the
// read-model payloads built from them.
type Cache interface {
	// Get returns a cached learner, or nil when absent.
	Get(ctx context.Context, learnerID string) (*Learner, error)

	// Set stores a learner snapshot with a TTL.
	Set(ctx context.Context, l *Learner, ttl time.Duration) error

	// Invalidate drops every cached entry for the learner. Called
	// after each committed submission.
	Invalidate(ctx context.Context, learnerID string) error
}
