package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SKILL PROGRESS QUERY
// The full mastery table: one row per tajwid skill, scored or not.
// ══════════════════════════════════════════════════════════════════════════════

// GetSkillProgressQuery contains the parameters of the mastery lookup.
type GetSkillProgressQuery struct {
	// LearnerID is the internal ID of the learner.
	LearnerID string
}

// Validate validates the query.
func (q GetSkillProgressQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_skill_progress: learner_id is required")
	}
	return nil
}

// SkillProgressDTO is one row of the mastery table.
type SkillProgressDTO struct {
	// Skill is the canonical skill name.
	Skill string `json:"skill"`

	// Mastery is the smoothed 0-100 estimate, 0 for never-scored skills.
	Mastery int `json:"mastery"`

	// AttemptCount is how many scored attempts touched this skill.
	AttemptCount int `json:"attempt_count"`

	// UpdatedAt is the last scoring time, nil for never-scored skills.
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// GetSkillProgressResult contains the mastery table.
type GetSkillProgressResult struct {
	// LearnerID echoes the queried learner.
	LearnerID string `json:"learner_id"`

	// Skills lists all skills in canonical order, including the
	// never-scored ones at mastery zero.
	Skills []SkillProgressDTO `json:"skills"`
}

// GetSkillProgressHandler handles the GetSkillProgressQuery.
type GetSkillProgressHandler struct {
	skillRepo   progress.SkillRepository
	learnerRepo learner.Repository
}

// NewGetSkillProgressHandler creates a new GetSkillProgressHandler.
func NewGetSkillProgressHandler(skillRepo progress.SkillRepository, learnerRepo learner.Repository) *GetSkillProgressHandler {
	return &GetSkillProgressHandler{skillRepo: skillRepo, learnerRepo: learnerRepo}
}

// Handle returns the learner's mastery table.
func (h *GetSkillProgressHandler) Handle(ctx context.Context, q GetSkillProgressQuery) (*GetSkillProgressResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetSkillProgress", shared.ErrInvalidInput, "validation failed", err)
	}

	exists, err := h.learnerRepo.Exists(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_skill_progress: %w", err)
	}
	if !exists {
		return nil, shared.WrapError("query", "GetSkillProgress", shared.ErrNotFound, "learner not found", learner.ErrLearnerNotFound)
	}

	stored, err := h.skillRepo.GetAll(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_skill_progress: %w", err)
	}

	byName := make(map[progress.Skill]*progress.SkillProgress, len(stored))
	for _, sp := range stored {
		byName[sp.Skill] = sp
	}

	result := &GetSkillProgressResult{LearnerID: q.LearnerID}
	for _, skill := range progress.AllSkills() {
		dto := SkillProgressDTO{Skill: skill.String()}
		if sp, ok := byName[skill]; ok {
			dto.Mastery = int(sp.Mastery)
			dto.AttemptCount = sp.AttemptCount
			updatedAt := sp.UpdatedAt
			dto.UpdatedAt = &updatedAt
		}
		result.Skills = append(result.Skills, dto)
	}

	return result, nil
}
