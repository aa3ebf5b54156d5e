package attempt

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines persistence for the immutable attempt log.
type Repository interface {
	// Create appends one attempt row.
	// Returns ErrDuplicateSubmission when the submission key was
	// already recorded.
	Create(ctx context.Context, a *Attempt) error

	// GetByID returns one attempt.
	// Returns ErrAttemptNotFound if no such attempt exists.
	GetByID(ctx context.Context, id string) (*Attempt, error)

	// GetBySubmissionKey returns the attempt recorded under an
	// idempotency key, for replayed submissions.
	// Returns ErrAttemptNotFound if the key is unknown.
	GetBySubmissionKey(ctx context.Context, key string) (*Attempt, error)

	// ListByLearner returns the learner's attempts, newest first.
	ListByLearner(ctx context.Context, learnerID string, opts ListOptions) ([]*Attempt, error)

	// CountByLearner returns the learner's lifetime attempt count.
	CountByLearner(ctx context.Context, learnerID string) (int, error)

	// ScoreStats returns aggregate score figures over the learner's
	// non-degraded attempts.
	ScoreStats(ctx context.Context, learnerID string) (ScoreStats, error)
}

// ListOptions contains pagination parameters for the attempt log.
type ListOptions struct {
	Offset int
	Limit  int
}

// DefaultListOptions returns the default pagination.
func DefaultListOptions() ListOptions {
	return ListOptions{Offset: 0, Limit: 20}
}

// ScoreStats is the aggregate view over a learner's scored attempts.
type ScoreStats struct {
	// TotalAttempts counts every attempt, degraded included.
	TotalAttempts int

	// AverageScore is the mean overall score across non-degraded
	// attempts, 0 when there are none.
	AverageScore float64

	// BestScore is the highest overall score ever reached.
	BestScore int
}
