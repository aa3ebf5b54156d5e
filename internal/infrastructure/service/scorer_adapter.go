package service

import (
	"context"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/application/command"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/infrastructure/external/oracle"
)

// ScorerAdapter adapts the oracle.Client to the command.RecitationScorer
// interface. It never returns an error: when the oracle is unusable the
// degraded zero-score evaluation comes back instead, and the submission
// pipeline records the attempt with the degraded flag set.
type ScorerAdapter struct {
	client *oracle.Client
}

// NewScorerAdapter creates a new ScorerAdapter.
func NewScorerAdapter(client *oracle.Client) *ScorerAdapter {
	return &ScorerAdapter{client: client}
}

// Score evaluates one recording, falling back to the degraded result on
// any oracle failure.
func (a *ScorerAdapter) Score(ctx context.Context, req command.ScoringRequest) command.ScoringResult {
	eval := a.client.EvaluateOrDegrade(ctx, oracle.EvaluationRequest{
		ContentRef:      req.ContentRef,
		DurationSeconds: req.DurationSeconds,
		AudioFilename:   req.AudioFilename,
		Audio:           req.Audio,
	})

	return command.ScoringResult{
		OverallScore: eval.OverallScore,
		SkillScores:  eval.SkillScores,
		Feedback:     eval.Feedback,
		Degraded:     eval.Degraded,
	}
}
