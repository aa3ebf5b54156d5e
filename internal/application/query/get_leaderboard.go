package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Public ranking by total score. The rendered page is cached in redis
// and rebuilt lazily from postgres; submissions invalidate it.
// ══════════════════════════════════════════════════════════════════════════════

// leaderboardPayloadTTL bounds staleness of a cached page.
const leaderboardPayloadTTL = time.Minute

// GetLeaderboardQuery contains the parameters of the ranking lookup.
type GetLeaderboardQuery struct {
	// Limit is the number of rows (default 20, maximum 100).
	Limit int
}

// Validate validates the query and normalizes the limit.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("get_leaderboard: limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// LeaderboardEntryDTO is one ranking row.
type LeaderboardEntryDTO struct {
	// Rank is the 1-based position.
	Rank int `json:"rank"`

	// LearnerID is the internal ID of the learner.
	LearnerID string `json:"learner_id"`

	// DisplayName is the learner's display name.
	DisplayName string `json:"display_name"`

	// TotalScore is the lifetime score sum.
	TotalScore int `json:"total_score"`

	// CurrentStreak is the live consecutive-day streak.
	CurrentStreak int `json:"current_streak"`

	// Level is derived from TotalScore.
	Level string `json:"level"`
}

// GetLeaderboardResult contains the ranking page.
type GetLeaderboardResult struct {
	// Entries holds the page, best first.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// GeneratedAt is when this page was built (cached pages keep the
	// original build time).
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler handles the GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	learnerRepo learner.Repository
	ranking     RankingView
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
func NewGetLeaderboardHandler(learnerRepo learner.Repository, ranking RankingView) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{learnerRepo: learnerRepo, ranking: ranking}
}

// Handle returns the top of the public ranking, cache first.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrInvalidInput, "validation failed", err)
	}

	if h.ranking != nil {
		var cached GetLeaderboardResult
		if err := h.ranking.GetPayload(ctx, q.Limit, &cached); err == nil && len(cached.Entries) > 0 {
			return &cached, nil
		}
	}

	learners, err := h.learnerRepo.ListPublicByTotalScore(ctx, learner.ListOptions{Limit: q.Limit})
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	result := &GetLeaderboardResult{
		Entries:     make([]LeaderboardEntryDTO, 0, len(learners)),
		GeneratedAt: time.Now().UTC(),
	}
	now := timeutil.Now()
	for i, l := range learners {
		result.Entries = append(result.Entries, LeaderboardEntryDTO{
			Rank:        i + 1,
			LearnerID:   l.ID,
			DisplayName: l.DisplayName,
			TotalScore:  int(l.TotalScore),
			// A lapsed learner's stored streak is stale until their
			// next submission; render the live value.
			CurrentStreak: l.EffectiveStreak(now),
			Level:         string(l.Level()),
		})
	}

	if h.ranking != nil {
		// Cache write failures cost a rebuild on the next read, nothing more.
		_ = h.ranking.SetPayload(ctx, q.Limit, result, leaderboardPayloadTTL)
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET LEARNER RANK QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetLearnerRankResult is one learner's position in the public ranking.
type GetLearnerRankResult struct {
	// LearnerID echoes the queried learner.
	LearnerID string `json:"learner_id"`

	// Rank is the 1-based position among public learners.
	Rank int `json:"rank"`

	// TotalScore is the lifetime score sum.
	TotalScore int `json:"total_score"`
}

// GetLearnerRankHandler resolves a single learner's rank.
type GetLearnerRankHandler struct {
	learnerRepo learner.Repository
	ranking     RankingView
}

// NewGetLearnerRankHandler creates a new GetLearnerRankHandler.
func NewGetLearnerRankHandler(learnerRepo learner.Repository, ranking RankingView) *GetLearnerRankHandler {
	return &GetLearnerRankHandler{learnerRepo: learnerRepo, ranking: ranking}
}

// Handle returns the learner's rank. Private learners are not ranked.
func (h *GetLearnerRankHandler) Handle(ctx context.Context, learnerID string) (*GetLearnerRankResult, error) {
	if learnerID == "" {
		return nil, shared.WrapError("query", "GetLearnerRank", shared.ErrInvalidInput, "validation failed",
			errors.New("get_leaderboard: learner_id is required"))
	}

	l, err := h.learnerRepo.GetByID(ctx, learnerID)
	if err != nil {
		if errors.Is(err, learner.ErrLearnerNotFound) {
			return nil, shared.WrapError("query", "GetLearnerRank", shared.ErrNotFound, "learner not found", err)
		}
		return nil, fmt.Errorf("get_leaderboard: rank: %w", err)
	}
	if !l.IsPublic {
		return nil, shared.WrapError("query", "GetLearnerRank", shared.ErrNotFound, "learner is not on the public leaderboard", learner.ErrLearnerNotFound)
	}

	// The sorted-set projection answers in O(log n); postgres is the
	// fallback while the projection is cold.
	if h.ranking != nil {
		if rank, err := h.ranking.Rank(ctx, learnerID); err == nil && rank > 0 {
			return &GetLearnerRankResult{LearnerID: learnerID, Rank: rank, TotalScore: int(l.TotalScore)}, nil
		}
	}

	rank, err := h.learnerRepo.PublicRank(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: rank: %w", err)
	}

	return &GetLearnerRankResult{LearnerID: learnerID, Rank: rank, TotalScore: int(l.TotalScore)}, nil
}
