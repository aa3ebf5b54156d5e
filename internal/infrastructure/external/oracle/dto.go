// Package oracle implements the client for the external recitation
// scoring service. It submits a recorded recitation and receives the
// overall score, per-skill scores, and textual feedback.
package oracle

import "fmt"

// ══════════════════════════════════════════════════════════════════════════════
// API RESPONSE WRAPPERS
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse represents the generic response envelope the scoring
// service wraps every payload in.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// APIErrorDTO is the structured error body the scoring service returns
// on non-2xx responses.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return fmt.Sprintf("oracle api error %s: %s", e.Code, e.Message)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION DTOs
// ══════════════════════════════════════════════════════════════════════════════

// EvaluationResponseDTO is the scoring result as the service returns it.
// Skill names arrive as strings and are validated against the tracked
// skill set by the mapper.
type EvaluationResponseDTO struct {
	// OverallScore is the 0-100 judgement of the whole recitation.
	OverallScore int `json:"overall_score"`

	// SkillScores maps tajweed rule name to a 0-100 score.
	SkillScores map[string]int `json:"skill_scores"`

	// Feedback is free-text guidance for the learner.
	Feedback string `json:"feedback"`

	// Confidence is the service's own confidence in the analysis.
	Confidence float64 `json:"confidence,omitempty"`

	// ProcessingMs is how long the analysis took on the service side.
	ProcessingMs int64 `json:"processing_ms,omitempty"`
}
