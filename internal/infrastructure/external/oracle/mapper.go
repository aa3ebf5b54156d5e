// Package oracle implements the client for the external recitation
// scoring service.
package oracle

import (
	"errors"
	"fmt"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"
)

// DegradedFeedback is the feedback text recorded when the scoring
// service could not analyse the recording.
const DegradedFeedback = "Analysis unavailable. Please retry with clearer audio."

// ErrNilDTO is returned when the mapper receives a nil DTO.
var ErrNilDTO = errors.New("nil dto")

// Evaluation is the scoring result in domain terms, ready for the
// submission pipeline. Degraded evaluations carry a zero score and
// zeroed skill scores.
type Evaluation struct {
	OverallScore int
	SkillScores  map[progress.Skill]int
	Feedback     string
	Degraded     bool
}

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to domain transformations
// ══════════════════════════════════════════════════════════════════════════════

// Mapper translates scoring service DTOs into domain evaluations.
// It shields the domain from external payload changes: any shape the
// service returns that the domain cannot accept becomes a mapping
// error, which the client collapses into the degraded evaluation.
type Mapper struct{}

// NewMapper creates a new Mapper instance.
func NewMapper() *Mapper {
	return &Mapper{}
}

// EvaluationFromDTO validates and converts a scoring response.
// Scores outside 0-100 and skills outside the tracked set are rejected,
// never clamped.
func (m *Mapper) EvaluationFromDTO(dto *EvaluationResponseDTO) (*Evaluation, error) {
	if dto == nil {
		return nil, ErrNilDTO
	}

	if dto.OverallScore < 0 || dto.OverallScore > 100 {
		return nil, fmt.Errorf("overall score %d out of range", dto.OverallScore)
	}

	skills := make(map[progress.Skill]int, len(dto.SkillScores))
	for name, score := range dto.SkillScores {
		skill, ok := progress.ParseSkill(name)
		if !ok {
			return nil, fmt.Errorf("unknown skill %q in response", name)
		}
		if score < 0 || score > 100 {
			return nil, fmt.Errorf("skill %q score %d out of range", name, score)
		}
		skills[skill] = score
	}

	return &Evaluation{
		OverallScore: dto.OverallScore,
		SkillScores:  skills,
		Feedback:     dto.Feedback,
		Degraded:     false,
	}, nil
}

// DegradedEvaluation builds the fallback result used when the service
// is unreachable, times out, or returns an unusable payload. Every
// tracked skill scores zero so the submission pipeline still runs.
func (m *Mapper) DegradedEvaluation() *Evaluation {
	skills := make(map[progress.Skill]int, len(progress.AllSkills()))
	for _, skill := range progress.AllSkills() {
		skills[skill] = 0
	}

	return &Evaluation{
		OverallScore: 0,
		SkillScores:  skills,
		Feedback:     DegradedFeedback,
		Degraded:     true,
	}
}
