package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/attempt"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ATTEMPT HISTORY QUERY
// Paged history, newest first, plus single-attempt detail.
// ══════════════════════════════════════════════════════════════════════════════

// GetAttemptHistoryQuery contains the parameters of the history lookup.
type GetAttemptHistoryQuery struct {
	// LearnerID is the internal ID of the learner.
	LearnerID string

	// Limit is the page size (default 20, maximum 100).
	Limit int

	// Offset is the number of attempts to skip.
	Offset int
}

// Validate validates the query and normalizes pagination.
func (q *GetAttemptHistoryQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_attempt_history: learner_id is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return errors.New("get_attempt_history: pagination cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// AttemptDTO is one history row.
type AttemptDTO struct {
	// ID is the attempt identifier.
	ID string `json:"id"`

	// ContentRef identifies the recited passage.
	ContentRef string `json:"content_ref"`

	// ContentName is the display name of the passage.
	ContentName string `json:"content_name,omitempty"`

	// OverallScore is the 0-100 overall judgement.
	OverallScore int `json:"overall_score"`

	// Grade is the human label for the score.
	Grade string `json:"grade"`

	// Duration is the recording length formatted M:SS.
	Duration string `json:"duration"`

	// Degraded marks attempts recorded after a scoring failure.
	Degraded bool `json:"degraded"`

	// CreatedAt is the submission time.
	CreatedAt time.Time `json:"created_at"`
}

// AttemptDetailDTO adds the per-skill breakdown to the history row.
type AttemptDetailDTO struct {
	AttemptDTO

	// SkillScores maps skill name to the oracle's 0-100 score.
	SkillScores map[string]int `json:"skill_scores"`

	// Feedback is the oracle's free-text feedback.
	Feedback string `json:"feedback"`
}

// GetAttemptHistoryResult contains one page of history.
type GetAttemptHistoryResult struct {
	// LearnerID echoes the queried learner.
	LearnerID string `json:"learner_id"`

	// Attempts holds the page, newest first.
	Attempts []AttemptDTO `json:"attempts"`

	// TotalCount is the learner's lifetime attempt count.
	TotalCount int `json:"total_count"`

	// HasMore reports whether attempts exist past this page.
	HasMore bool `json:"has_more"`
}

// GetAttemptHistoryHandler handles history and detail lookups.
type GetAttemptHistoryHandler struct {
	attemptRepo attempt.Repository
	learnerRepo learner.Repository
}

// NewGetAttemptHistoryHandler creates a new GetAttemptHistoryHandler.
func NewGetAttemptHistoryHandler(attemptRepo attempt.Repository, learnerRepo learner.Repository) *GetAttemptHistoryHandler {
	return &GetAttemptHistoryHandler{attemptRepo: attemptRepo, learnerRepo: learnerRepo}
}

// Handle returns one page of the learner's attempt history.
func (h *GetAttemptHistoryHandler) Handle(ctx context.Context, q GetAttemptHistoryQuery) (*GetAttemptHistoryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetAttemptHistory", shared.ErrInvalidInput, "validation failed", err)
	}

	exists, err := h.learnerRepo.Exists(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_attempt_history: %w", err)
	}
	if !exists {
		return nil, shared.WrapError("query", "GetAttemptHistory", shared.ErrNotFound, "learner not found", learner.ErrLearnerNotFound)
	}

	attempts, err := h.attemptRepo.ListByLearner(ctx, q.LearnerID, attempt.ListOptions{
		Offset: q.Offset,
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get_attempt_history: %w", err)
	}

	total, err := h.attemptRepo.CountByLearner(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_attempt_history: %w", err)
	}

	result := &GetAttemptHistoryResult{
		LearnerID:  q.LearnerID,
		Attempts:   make([]AttemptDTO, 0, len(attempts)),
		TotalCount: total,
		HasMore:    q.Offset+len(attempts) < total,
	}
	for _, a := range attempts {
		result.Attempts = append(result.Attempts, toAttemptDTO(a))
	}

	return result, nil
}

// HandleDetail returns one attempt with its per-skill breakdown. The
// attempt must belong to the given learner.
func (h *GetAttemptHistoryHandler) HandleDetail(ctx context.Context, learnerID, attemptID string) (*AttemptDetailDTO, error) {
	if learnerID == "" || attemptID == "" {
		return nil, shared.WrapError("query", "GetAttemptDetail", shared.ErrInvalidInput, "validation failed",
			errors.New("get_attempt_history: learner_id and attempt_id are required"))
	}

	a, err := h.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, attempt.ErrAttemptNotFound) {
			return nil, shared.WrapError("query", "GetAttemptDetail", shared.ErrNotFound, "attempt not found", err)
		}
		return nil, fmt.Errorf("get_attempt_history: detail: %w", err)
	}
	if a.LearnerID != learnerID {
		// Another learner's attempt is indistinguishable from a missing one.
		return nil, shared.WrapError("query", "GetAttemptDetail", shared.ErrNotFound, "attempt not found", attempt.ErrAttemptNotFound)
	}

	detail := &AttemptDetailDTO{
		AttemptDTO:  toAttemptDTO(a),
		SkillScores: make(map[string]int, len(a.SkillScores)),
		Feedback:    a.Feedback,
	}
	for skill, score := range a.SkillScores {
		detail.SkillScores[skill.String()] = score
	}

	return detail, nil
}

func toAttemptDTO(a *attempt.Attempt) AttemptDTO {
	return AttemptDTO{
		ID:           a.ID,
		ContentRef:   a.ContentRef,
		ContentName:  a.ContentName,
		OverallScore: a.OverallScore,
		Grade:        string(a.Grade),
		Duration:     timeutil.FormatClockDuration(a.DurationSeconds),
		Degraded:     a.Degraded,
		CreatedAt:    a.CreatedAt,
	}
}
