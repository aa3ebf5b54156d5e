// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER LEARNER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterLearnerCommand contains the data to register a learner.
type RegisterLearnerCommand struct {
	// DisplayName is shown on leaderboards and profiles.
	DisplayName string

	// Email is the unique contact address.
	Email string

	// IsPublic controls leaderboard visibility from the start.
	IsPublic bool
}

// Validate validates the command. Full validation happens in the
// domain factory; this only rejects the obviously empty.
func (c RegisterLearnerCommand) Validate() error {
	if c.DisplayName == "" {
		return errors.New("register_learner: display_name is required")
	}
	if c.Email == "" {
		return errors.New("register_learner: email is required")
	}
	return nil
}

// RegisterLearnerResult contains the registered learner.
type RegisterLearnerResult struct {
	Learner *learner.Learner
}

// RegisterLearnerHandler handles the RegisterLearnerCommand.
type RegisterLearnerHandler struct {
	learnerRepo learner.Repository
}

// NewRegisterLearnerHandler creates a new RegisterLearnerHandler.
func NewRegisterLearnerHandler(learnerRepo learner.Repository) *RegisterLearnerHandler {
	return &RegisterLearnerHandler{learnerRepo: learnerRepo}
}

// Handle registers the learner with a fresh ID and an empty ledger.
func (h *RegisterLearnerHandler) Handle(ctx context.Context, cmd RegisterLearnerCommand) (*RegisterLearnerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("learner", "Register", shared.ErrInvalidInput, "validation failed", err)
	}

	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID:          uuid.NewString(),
		DisplayName: cmd.DisplayName,
		Email:       cmd.Email,
		IsPublic:    cmd.IsPublic,
	})
	if err != nil {
		return nil, shared.WrapError("learner", "Register", shared.ErrInvalidInput, "invalid learner", err)
	}

	if err := h.learnerRepo.Create(ctx, l); err != nil {
		if errors.Is(err, learner.ErrLearnerAlreadyExists) {
			return nil, shared.WrapError("learner", "Register", shared.ErrAlreadyExists, "email already registered", err)
		}
		return nil, fmt.Errorf("register_learner: %w", err)
	}

	return &RegisterLearnerResult{Learner: l}, nil
}
