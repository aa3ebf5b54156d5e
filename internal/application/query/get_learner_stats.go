package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/attempt"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/badge"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEARNER STATS QUERY
// The profile header in one call: ledger, attempt stats, badge count.
// The three reads are independent, so they fan out concurrently.
// ══════════════════════════════════════════════════════════════════════════════

// learnerCacheTTL bounds staleness of the cached ledger snapshot. The
// cache is invalidated on every submission, so the TTL only covers
// missed invalidations.
const learnerCacheTTL = 5 * time.Minute

// GetLearnerStatsQuery contains the parameters of the stats lookup.
type GetLearnerStatsQuery struct {
	// LearnerID is the internal ID of the learner.
	LearnerID string
}

// Validate validates the query.
func (q GetLearnerStatsQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_learner_stats: learner_id is required")
	}
	return nil
}

// GetLearnerStatsResult is the aggregate profile snapshot.
type GetLearnerStatsResult struct {
	// LearnerID echoes the queried learner.
	LearnerID string `json:"learner_id"`

	// DisplayName is the learner's display name.
	DisplayName string `json:"display_name"`

	// CurrentStreak is the live consecutive-day streak.
	CurrentStreak int `json:"current_streak"`

	// BestStreak is the longest streak ever reached.
	BestStreak int `json:"best_streak"`

	// TotalScore is the lifetime score sum.
	TotalScore int `json:"total_score"`

	// Level is derived from TotalScore.
	Level string `json:"level"`

	// NextLevelAt is the total needed for the next level, 0 at the top.
	NextLevelAt int `json:"next_level_at"`

	// TotalAttempts counts every recorded attempt, degraded included.
	TotalAttempts int `json:"total_attempts"`

	// AverageScore is the mean over non-degraded attempts, one decimal.
	AverageScore float64 `json:"average_score"`

	// BestScore is the highest non-degraded score.
	BestScore int `json:"best_score"`

	// BadgesEarned is the number of unlocked badges.
	BadgesEarned int `json:"badges_earned"`

	// MemberSince is the registration time.
	MemberSince time.Time `json:"member_since"`
}

// GetLearnerStatsHandler handles the GetLearnerStatsQuery.
type GetLearnerStatsHandler struct {
	learnerRepo learner.Repository
	attemptRepo attempt.Repository
	badgeRepo   badge.Repository
	cache       learner.Cache
}

// NewGetLearnerStatsHandler creates a new GetLearnerStatsHandler.
func NewGetLearnerStatsHandler(
	learnerRepo learner.Repository,
	attemptRepo attempt.Repository,
	badgeRepo badge.Repository,
	cache learner.Cache,
) *GetLearnerStatsHandler {
	return &GetLearnerStatsHandler{
		learnerRepo: learnerRepo,
		attemptRepo: attemptRepo,
		badgeRepo:   badgeRepo,
		cache:       cache,
	}
}

// Handle assembles the profile snapshot from three concurrent reads.
func (h *GetLearnerStatsHandler) Handle(ctx context.Context, q GetLearnerStatsQuery) (*GetLearnerStatsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLearnerStats", shared.ErrInvalidInput, "validation failed", err)
	}

	var (
		l          *learner.Learner
		stats      attempt.ScoreStats
		badgeCount int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		l, err = h.getLearner(gctx, q.LearnerID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = h.attemptRepo.ScoreStats(gctx, q.LearnerID)
		return err
	})
	g.Go(func() error {
		var err error
		badgeCount, err = h.badgeRepo.CountAwards(gctx, q.LearnerID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, learner.ErrLearnerNotFound) {
			return nil, shared.WrapError("query", "GetLearnerStats", shared.ErrNotFound, "learner not found", err)
		}
		return nil, fmt.Errorf("get_learner_stats: %w", err)
	}

	return &GetLearnerStatsResult{
		LearnerID:   l.ID,
		DisplayName: l.DisplayName,
		// The stored streak survives a lapse until the next submission
		// resets it; the view must not show it as unbroken.
		CurrentStreak: l.EffectiveStreak(timeutil.Now()),
		BestStreak:    l.BestStreak,
		TotalScore:    int(l.TotalScore),
		Level:         string(l.Level()),
		NextLevelAt:   int(learner.NextLevelAt(l.TotalScore)),
		TotalAttempts: stats.TotalAttempts,
		AverageScore:  math.Round(stats.AverageScore*10) / 10,
		BestScore:     stats.BestScore,
		BadgesEarned:  badgeCount,
		MemberSince:   l.CreatedAt,
	}, nil
}

// getLearner reads through the cache: hit returns the snapshot, miss
// loads from postgres and backfills.
func (h *GetLearnerStatsHandler) getLearner(ctx context.Context, learnerID string) (*learner.Learner, error) {
	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, learnerID); err == nil && cached != nil {
			return cached, nil
		}
	}

	l, err := h.learnerRepo.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		// Backfill failures are invisible to the caller.
		_ = h.cache.Set(ctx, l, learnerCacheTTL)
	}

	return l, nil
}
