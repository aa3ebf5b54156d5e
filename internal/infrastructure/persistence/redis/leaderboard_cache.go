package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// scoresKey is the sorted set of public learners by lifetime total.
const scoresKey = PrefixLeaderboard + "scores"

// LeaderboardCache keeps the public ranking hot: a sorted set of
// (learner, total score) for rank lookups plus cached JSON payloads of
// the assembled leaderboard pages. Postgres remains the source of
// truth; everything here can be rebuilt from it.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// RankedEntry is one row of the cached ranking.
type RankedEntry struct {
	LearnerID  string
	TotalScore int
}

// UpdateScore writes one learner's total into the sorted set.
func (c *LeaderboardCache) UpdateScore(ctx context.Context, learnerID string, totalScore int) error {
	err := c.cache.Client().ZAdd(ctx, scoresKey, goredis.Z{
		Score:  float64(totalScore),
		Member: learnerID,
	}).Err()
	if err != nil {
		return fmt.Errorf("leaderboard cache update: %w", err)
	}
	return nil
}

// RemoveLearner drops a learner from the ranking (visibility turned off).
func (c *LeaderboardCache) RemoveLearner(ctx context.Context, learnerID string) error {
	if err := c.cache.Client().ZRem(ctx, scoresKey, learnerID).Err(); err != nil {
		return fmt.Errorf("leaderboard cache remove: %w", err)
	}
	return nil
}

// Rebuild replaces the whole sorted set in one pipeline.
func (c *LeaderboardCache) Rebuild(ctx context.Context, entries []RankedEntry) error {
	pipe := c.cache.Client().TxPipeline()
	pipe.Del(ctx, scoresKey)

	if len(entries) > 0 {
		members := make([]goredis.Z, len(entries))
		for i, e := range entries {
			members[i] = goredis.Z{Score: float64(e.TotalScore), Member: e.LearnerID}
		}
		pipe.ZAdd(ctx, scoresKey, members...)
		pipe.Expire(ctx, scoresKey, TTLLeaderboardCache)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard cache rebuild: %w", err)
	}
	return nil
}

// Top returns the highest-scoring learners, best first.
func (c *LeaderboardCache) Top(ctx context.Context, limit int) ([]RankedEntry, error) {
	results, err := c.cache.Client().ZRevRangeWithScores(ctx, scoresKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard cache top: %w", err)
	}

	entries := make([]RankedEntry, 0, len(results))
	for _, z := range results {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, RankedEntry{LearnerID: id, TotalScore: int(z.Score)})
	}

	return entries, nil
}

// Rank returns the 1-based position of a learner, or 0 when the learner
// is not in the cached ranking.
func (c *LeaderboardCache) Rank(ctx context.Context, learnerID string) (int, error) {
	rank, err := c.cache.Client().ZRevRank(ctx, scoresKey, learnerID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("leaderboard cache rank: %w", err)
	}
	return int(rank) + 1, nil
}

// Size returns how many learners the cached ranking holds.
func (c *LeaderboardCache) Size(ctx context.Context) (int, error) {
	n, err := c.cache.Client().ZCard(ctx, scoresKey).Result()
	if err != nil {
		return 0, fmt.Errorf("leaderboard cache size: %w", err)
	}
	return int(n), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Assembled payload caching
// ─────────────────────────────────────────────────────────────────────────────

// GetPayload loads a cached leaderboard page into dest.
// Returns ErrCacheMiss when no page is cached for the limit.
func (c *LeaderboardCache) GetPayload(ctx context.Context, limit int, dest interface{}) error {
	return c.cache.Get(ctx, LeaderboardPayloadKey(limit), dest)
}

// SetPayload stores an assembled leaderboard page.
func (c *LeaderboardCache) SetPayload(ctx context.Context, limit int, payload interface{}, ttl time.Duration) error {
	return c.cache.Set(ctx, LeaderboardPayloadKey(limit), payload, ttl)
}

// InvalidatePayloads drops every cached page.
func (c *LeaderboardCache) InvalidatePayloads(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, PrefixLeaderboard+"payload:*")
}
