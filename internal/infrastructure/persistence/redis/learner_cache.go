package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LearnerCache implements learner.Cache on Redis. Snapshots serve the
// hot read views between submissions; a committed submission drops
// every learner-scoped key.
type LearnerCache struct {
	cache *Cache
}

// NewLearnerCache creates a new LearnerCache.
func NewLearnerCache(cache *Cache) *LearnerCache {
	return &LearnerCache{cache: cache}
}

// cachedLearner is the wire form of a learner snapshot in Redis.
type cachedLearner struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	Email          string    `json:"email"`
	IsPublic       bool      `json:"is_public"`
	CurrentStreak  int       `json:"current_streak"`
	BestStreak     int       `json:"best_streak"`
	TotalScore     int       `json:"total_score"`
	LastActiveDate time.Time `json:"last_active_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Get returns a cached learner, or nil on a miss.
func (c *LearnerCache) Get(ctx context.Context, learnerID string) (*learner.Learner, error) {
	var cached cachedLearner
	err := c.cache.Get(ctx, LearnerKey(learnerID), &cached)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("learner cache get: %w", err)
	}

	return &learner.Learner{
		ID:             cached.ID,
		DisplayName:    cached.DisplayName,
		Email:          cached.Email,
		IsPublic:       cached.IsPublic,
		CurrentStreak:  cached.CurrentStreak,
		BestStreak:     cached.BestStreak,
		TotalScore:     learner.TotalScore(cached.TotalScore),
		LastActiveDate: cached.LastActiveDate,
		CreatedAt:      cached.CreatedAt,
		UpdatedAt:      cached.UpdatedAt,
	}, nil
}

// Set stores a learner snapshot with a TTL.
func (c *LearnerCache) Set(ctx context.Context, l *learner.Learner, ttl time.Duration) error {
	cached := cachedLearner{
		ID:             l.ID,
		DisplayName:    l.DisplayName,
		Email:          l.Email,
		IsPublic:       l.IsPublic,
		CurrentStreak:  l.CurrentStreak,
		BestStreak:     l.BestStreak,
		TotalScore:     int(l.TotalScore),
		LastActiveDate: l.LastActiveDate,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}

	if err := c.cache.Set(ctx, LearnerKey(l.ID), cached, ttl); err != nil {
		return fmt.Errorf("learner cache set: %w", err)
	}
	return nil
}

// Invalidate drops every cached entry scoped to the learner, plus the
// shared leaderboard payloads (the learner's total just changed).
func (c *LearnerCache) Invalidate(ctx context.Context, learnerID string) error {
	if err := c.cache.Delete(ctx, LearnerKey(learnerID), StatsKey(learnerID)); err != nil {
		return fmt.Errorf("learner cache invalidate: %w", err)
	}
	if err := c.cache.DeleteByPattern(ctx, PrefixWeekly+learnerID+":*"); err != nil {
		return fmt.Errorf("learner cache invalidate weekly: %w", err)
	}
	if err := c.cache.DeleteByPattern(ctx, PrefixLeaderboard+"payload:*"); err != nil {
		return fmt.Errorf("learner cache invalidate leaderboard: %w", err)
	}
	return nil
}
