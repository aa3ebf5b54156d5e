// Package query contains read operations (CQRS - Queries).
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"time"
)

// RankingView is the read side of the leaderboard projection. The redis
// sorted-set cache implements it; every method is best-effort and the
// handlers fall back to postgres when the projection is cold.
type RankingView interface {
	// Rank returns the 1-based position of a learner in the projection.
	// Returns an error when the learner is not ranked.
	Rank(ctx context.Context, learnerID string) (int, error)

	// GetPayload loads a cached rendered leaderboard page into dest.
	GetPayload(ctx context.Context, limit int, dest interface{}) error

	// SetPayload stores a rendered leaderboard page with a TTL.
	SetPayload(ctx context.Context, limit int, payload interface{}, ttl time.Duration) error
}
