// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/attempt"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// Interfaces the command handlers depend on. Implementations live in
// infrastructure; tests supply in-memory fakes.
// ══════════════════════════════════════════════════════════════════════════════

// Stores bundles the repositories bound to one database transaction.
type Stores struct {
	Learners learner.Repository
	Attempts attempt.Repository
	Skills   progress.SkillRepository
	Weekly   progress.WeeklyRepository
}

// UnitOfWork runs a function with every store bound to a single
// transaction. The function's error rolls everything back.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// ScoringRequest is the recording handed to the scorer.
type ScoringRequest struct {
	ContentRef      string
	DurationSeconds int
	AudioFilename   string
	Audio           []byte
}

// ScoringResult is the scorer's judgement in domain terms.
type ScoringResult struct {
	OverallScore int
	SkillScores  map[progress.Skill]int
	Feedback     string
	Degraded     bool
}

// RecitationScorer scores a recording. Implementations never fail:
// when the scoring service is unreachable they return the degraded
// result (zero score, zeroed skills) so the pipeline always completes.
type RecitationScorer interface {
	Score(ctx context.Context, req ScoringRequest) ScoringResult
}

// RankProjector keeps the leaderboard ranking in sync with committed
// totals. Projection failures are logged, never surfaced: the ranking
// is derived state and rebuildable from the primary store.
type RankProjector interface {
	UpdateScore(ctx context.Context, learnerID string, totalScore int) error
	RemoveLearner(ctx context.Context, learnerID string) error
}
