package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/badge"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET BADGES QUERY
// The full catalogue with earned flags, so the client renders locked
// and unlocked badges from one response.
// ══════════════════════════════════════════════════════════════════════════════

// GetBadgesQuery contains the parameters of the badge lookup.
type GetBadgesQuery struct {
	// LearnerID is the internal ID of the learner.
	LearnerID string
}

// Validate validates the query.
func (q GetBadgesQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_badges: learner_id is required")
	}
	return nil
}

// BadgeDTO is one catalogue entry with the learner's earned state.
type BadgeDTO struct {
	// ID is the stable badge identifier.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Description explains how to earn the badge.
	Description string `json:"description"`

	// Earned reports whether this learner has unlocked it.
	Earned bool `json:"earned"`

	// EarnedAt is the unlock time, nil while locked.
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

// GetBadgesResult contains the catalogue view.
type GetBadgesResult struct {
	// LearnerID echoes the queried learner.
	LearnerID string `json:"learner_id"`

	// Badges lists the catalogue in its stable order.
	Badges []BadgeDTO `json:"badges"`

	// EarnedCount is the number of unlocked badges.
	EarnedCount int `json:"earned_count"`
}

// GetBadgesHandler handles the GetBadgesQuery.
type GetBadgesHandler struct {
	badgeRepo   badge.Repository
	catalog     *badge.Catalog
	learnerRepo learner.Repository
}

// NewGetBadgesHandler creates a new GetBadgesHandler.
func NewGetBadgesHandler(badgeRepo badge.Repository, catalog *badge.Catalog, learnerRepo learner.Repository) *GetBadgesHandler {
	return &GetBadgesHandler{badgeRepo: badgeRepo, catalog: catalog, learnerRepo: learnerRepo}
}

// Handle returns the catalogue annotated with this learner's unlocks.
func (h *GetBadgesHandler) Handle(ctx context.Context, q GetBadgesQuery) (*GetBadgesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetBadges", shared.ErrInvalidInput, "validation failed", err)
	}

	exists, err := h.learnerRepo.Exists(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_badges: %w", err)
	}
	if !exists {
		return nil, shared.WrapError("query", "GetBadges", shared.ErrNotFound, "learner not found", learner.ErrLearnerNotFound)
	}

	awards, err := h.badgeRepo.GetAwards(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_badges: %w", err)
	}

	earnedAt := make(map[badge.ID]time.Time, len(awards))
	for _, a := range awards {
		earnedAt[a.BadgeID] = a.AwardedAt
	}

	result := &GetBadgesResult{LearnerID: q.LearnerID}
	for _, def := range h.catalog.All() {
		dto := BadgeDTO{
			ID:          string(def.ID),
			Name:        def.Name,
			Description: def.Description,
		}
		if at, ok := earnedAt[def.ID]; ok {
			dto.Earned = true
			awarded := at
			dto.EarnedAt = &awarded
			result.EarnedCount++
		}
		result.Badges = append(result.Badges, dto)
	}

	return result, nil
}
