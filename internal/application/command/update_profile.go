// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE PROFILE COMMAND
// Display name and leaderboard visibility. Toggling visibility also
// adds or removes the learner from the public ranking.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateProfileCommand contains the profile fields to change. Nil
// pointers mean "leave unchanged".
type UpdateProfileCommand struct {
	// LearnerID is the internal ID of the learner.
	LearnerID string

	// DisplayName replaces the display name when non-nil.
	DisplayName *string

	// IsPublic replaces leaderboard visibility when non-nil.
	IsPublic *bool
}

// Validate validates the command.
func (c UpdateProfileCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("update_profile: learner_id is required")
	}
	if c.DisplayName == nil && c.IsPublic == nil {
		return errors.New("update_profile: nothing to update")
	}
	return nil
}

// UpdateProfileResult contains the updated learner.
type UpdateProfileResult struct {
	Learner *learner.Learner
}

// UpdateProfileHandler handles the UpdateProfileCommand.
type UpdateProfileHandler struct {
	learnerRepo learner.Repository
	cache       learner.Cache
	ranks       RankProjector
	logger      *slog.Logger
}

// NewUpdateProfileHandler creates a new UpdateProfileHandler.
func NewUpdateProfileHandler(
	learnerRepo learner.Repository,
	cache learner.Cache,
	ranks RankProjector,
	logger *slog.Logger,
) *UpdateProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdateProfileHandler{
		learnerRepo: learnerRepo,
		cache:       cache,
		ranks:       ranks,
		logger:      logger,
	}
}

// Handle applies the profile changes.
func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (*UpdateProfileResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("learner", "UpdateProfile", shared.ErrInvalidInput, "validation failed", err)
	}

	l, err := h.learnerRepo.GetByID(ctx, cmd.LearnerID)
	if err != nil {
		if errors.Is(err, learner.ErrLearnerNotFound) {
			return nil, shared.WrapError("learner", "UpdateProfile", shared.ErrNotFound, "learner not found", err)
		}
		return nil, fmt.Errorf("update_profile: %w", err)
	}

	if cmd.DisplayName != nil {
		if err := l.Rename(*cmd.DisplayName); err != nil {
			return nil, shared.WrapError("learner", "UpdateProfile", shared.ErrInvalidInput, "invalid display name", err)
		}
	}

	visibilityChanged := false
	if cmd.IsPublic != nil && *cmd.IsPublic != l.IsPublic {
		l.SetVisibility(*cmd.IsPublic)
		visibilityChanged = true
	}

	if err := h.learnerRepo.UpdateProfile(ctx, l); err != nil {
		return nil, fmt.Errorf("update_profile: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, l.ID); err != nil {
			h.logger.Warn("cache invalidation failed", "learner_id", l.ID, "error", err)
		}
	}

	if visibilityChanged && h.ranks != nil {
		var rankErr error
		if l.IsPublic {
			rankErr = h.ranks.UpdateScore(ctx, l.ID, int(l.TotalScore))
		} else {
			rankErr = h.ranks.RemoveLearner(ctx, l.ID)
		}
		if rankErr != nil {
			h.logger.Warn("rank projection failed", "learner_id", l.ID, "error", rankErr)
		}
	}

	return &UpdateProfileResult{Learner: l}, nil
}
