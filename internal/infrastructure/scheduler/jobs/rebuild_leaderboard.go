// Package jobs contains implementations of scheduled background jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildLeaderboardJob reloads the Redis ranking projection from
// postgres. The projection is updated incrementally on every scored
// attempt; the periodic rebuild repairs drift after Redis restarts,
// missed updates, or visibility changes applied while Redis was down.
type RebuildLeaderboardJob struct {
	learnerRepo learner.Repository
	ranking     *redis.LeaderboardCache
	logger      *slog.Logger
	config      RebuildLeaderboardConfig

	lastStats atomic.Value // *RebuildStats
}

// RebuildLeaderboardConfig contains configuration for the rebuild job.
type RebuildLeaderboardConfig struct {
	// BatchSize is how many learners are read from postgres per page.
	BatchSize int

	// MaxEntries caps the rebuilt projection. Learners below the cap
	// still get ranks through the postgres fallback.
	MaxEntries int
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		BatchSize:  500,
		MaxEntries: 10000,
	}
}

// RebuildStats describes the outcome of one rebuild run.
type RebuildStats struct {
	Entries     int
	Pages       int
	Duration    time.Duration
	CompletedAt time.Time
}

// NewRebuildLeaderboardJob creates a new rebuild job.
func NewRebuildLeaderboardJob(
	learnerRepo learner.Repository,
	ranking *redis.LeaderboardCache,
	logger *slog.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 10000
	}

	return &RebuildLeaderboardJob{
		learnerRepo: learnerRepo,
		ranking:     ranking,
		logger:      logger.With("job", "rebuild_leaderboard"),
		config:      config,
	}
}

// Name implements scheduler.Job.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description implements scheduler.Job.
func (j *RebuildLeaderboardJob) Description() string {
	return "Rebuilds the Redis leaderboard projection from postgres"
}

// Run implements scheduler.Job. It pages through public learners in
// score order and replaces the sorted set in one shot, then drops the
// cached payloads built from the old standings.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	started := time.Now()

	entries := make([]redis.RankedEntry, 0, j.config.BatchSize)
	pages := 0

	for offset := 0; len(entries) < j.config.MaxEntries; offset += j.config.BatchSize {
		batch, err := j.learnerRepo.ListPublicByTotalScore(ctx, learner.ListOptions{
			Offset: offset,
			Limit:  j.config.BatchSize,
		})
		if err != nil {
			return fmt.Errorf("list public learners: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		pages++

		for _, l := range batch {
			entries = append(entries, redis.RankedEntry{
				LearnerID:  l.ID,
				TotalScore: int(l.TotalScore),
			})
			if len(entries) >= j.config.MaxEntries {
				break
			}
		}

		if len(batch) < j.config.BatchSize {
			break
		}
	}

	if err := j.ranking.Rebuild(ctx, entries); err != nil {
		return fmt.Errorf("rebuild ranking: %w", err)
	}

	if err := j.ranking.InvalidatePayloads(ctx); err != nil {
		// Payloads expire on their own shortly.
		j.logger.Warn("failed to invalidate leaderboard payloads", "error", err)
	}

	stats := &RebuildStats{
		Entries:     len(entries),
		Pages:       pages,
		Duration:    time.Since(started),
		CompletedAt: time.Now(),
	}
	j.lastStats.Store(stats)

	j.logger.Info("leaderboard projection rebuilt",
		"entries", stats.Entries,
		"pages", stats.Pages,
		"duration", stats.Duration.String(),
	)

	return nil
}

// LastStats returns the stats of the most recent completed run, or nil.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	stats, _ := j.lastStats.Load().(*RebuildStats)
	return stats
}
