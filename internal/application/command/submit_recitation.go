// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/attempt"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/badge"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT RECITATION COMMAND
// The central pipeline: one scored attempt updates the attempt log,
// skill mastery, the weekly grid, and the streak/score ledger in a
// single transaction, then evaluates badges post-commit.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitRecitationCommand contains one recitation submission.
type SubmitRecitationCommand struct {
	// LearnerID is the internal ID of the submitting learner.
	LearnerID string

	// ContentRef identifies the recited passage (e.g. "2:255").
	ContentRef string

	// ContentName is the display name of the passage.
	ContentName string

	// DurationSeconds is the recording length.
	DurationSeconds int

	// AudioFilename is the original upload filename.
	AudioFilename string

	// Audio is the raw recording.
	Audio []byte

	// SubmissionKey is the caller's optional idempotency key. A replay
	// of a known key returns the original attempt without changing any
	// state.
	SubmissionKey string

	// Timestamp is when the submission arrived (defaults to now if zero).
	Timestamp time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SubmitRecitationCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("submit_recitation: learner_id is required")
	}
	if c.ContentRef == "" {
		return errors.New("submit_recitation: content_ref is required")
	}
	if c.DurationSeconds < 0 {
		return errors.New("submit_recitation: duration cannot be negative")
	}
	if len(c.Audio) == 0 {
		return errors.New("submit_recitation: audio recording is required")
	}
	return nil
}

// SubmitRecitationResult is everything the caller needs to render the
// post-submission screen.
type SubmitRecitationResult struct {
	// Attempt is the recorded attempt (the original one on replays).
	Attempt *attempt.Attempt

	// Ledger describes what the attempt did to the streak and total.
	// Zero-valued on replays.
	Ledger learner.LedgerChange

	// WeekdayBest is the stored best-of-day score after this attempt.
	WeekdayBest int

	// SkillProgress is the post-update mastery state for the skills
	// this attempt touched.
	SkillProgress []*progress.SkillProgress

	// NewBadges lists badges unlocked by this submission, in catalogue
	// order. Empty on replays.
	NewBadges []badge.Definition

	// Level is the learner's level after the update.
	Level learner.Level

	// Replayed marks a duplicate submission key: nothing changed, the
	// original attempt is returned.
	Replayed bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SubmitRecitationHandler handles the SubmitRecitationCommand.
type SubmitRecitationHandler struct {
	uow            UnitOfWork
	scorer         RecitationScorer
	attemptReader  attempt.Repository
	learnerReader  learner.Repository
	badgeRepo      badge.Repository
	catalog        *badge.Catalog
	cache          learner.Cache
	ranks          RankProjector
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewSubmitRecitationHandler creates a new SubmitRecitationHandler.
// attemptReader and learnerReader are non-transactional repositories
// used for the idempotent-replay read path.
func NewSubmitRecitationHandler(
	uow UnitOfWork,
	scorer RecitationScorer,
	attemptReader attempt.Repository,
	learnerReader learner.Repository,
	badgeRepo badge.Repository,
	catalog *badge.Catalog,
	cache learner.Cache,
	ranks RankProjector,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *SubmitRecitationHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SubmitRecitationHandler{
		uow:            uow,
		scorer:         scorer,
		attemptReader:  attemptReader,
		learnerReader:  learnerReader,
		badgeRepo:      badgeRepo,
		catalog:        catalog,
		cache:          cache,
		ranks:          ranks,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Handle executes the submission pipeline:
//
//  1. Replay check on the submission key (no scoring for known keys).
//  2. Score the recording; a failed scorer degrades, never aborts.
//  3. One transaction, learner row locked first: attempt insert,
//     per-skill mastery updates, ledger update, weekly best-of-day.
//  4. Post-commit: badge evaluation, cache invalidation, rank
//     projection, event publication.
func (h *SubmitRecitationHandler) Handle(ctx context.Context, cmd SubmitRecitationCommand) (*SubmitRecitationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("attempt", "Submit", shared.ErrInvalidInput, "validation failed", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	// Replay of a known submission key returns the original attempt
	// before any scoring work happens.
	if cmd.SubmissionKey != "" {
		if result, ok, err := h.replay(ctx, cmd.LearnerID, cmd.SubmissionKey); err != nil {
			return nil, err
		} else if ok {
			return result, nil
		}
	}

	// The scoring call happens outside the transaction: it can take
	// seconds, and the learner row lock must not be held that long.
	scoring := h.scorer.Score(ctx, ScoringRequest{
		ContentRef:      cmd.ContentRef,
		DurationSeconds: cmd.DurationSeconds,
		AudioFilename:   cmd.AudioFilename,
		Audio:           cmd.Audio,
	})

	newAttempt, err := attempt.NewAttempt(attempt.NewAttemptParams{
		ID:              uuid.NewString(),
		LearnerID:       cmd.LearnerID,
		ContentRef:      cmd.ContentRef,
		ContentName:     cmd.ContentName,
		OverallScore:    scoring.OverallScore,
		DurationSeconds: cmd.DurationSeconds,
		SkillScores:     scoring.SkillScores,
		Feedback:        scoring.Feedback,
		Degraded:        scoring.Degraded,
		SubmissionKey:   cmd.SubmissionKey,
	})
	if err != nil {
		return nil, shared.WrapError("attempt", "Submit", shared.ErrInvalidInput, "build attempt", err)
	}

	result := &SubmitRecitationResult{Attempt: newAttempt}
	var (
		ledger       learner.LedgerChange
		attemptCount int
		isPublic     bool
	)

	txErr := h.uow.WithinTx(ctx, func(ctx context.Context, s Stores) error {
		// Row lock serializes concurrent submissions for this learner.
		l, err := s.Learners.GetByIDForUpdate(ctx, cmd.LearnerID)
		if err != nil {
			return err
		}

		if err := s.Attempts.Create(ctx, newAttempt); err != nil {
			return err
		}

		// Per-skill mastery in canonical order for deterministic writes.
		result.SkillProgress = result.SkillProgress[:0]
		for _, skill := range progress.AllSkills() {
			score, scored := scoring.SkillScores[skill]
			if !scored {
				continue
			}

			sp, err := s.Skills.Get(ctx, cmd.LearnerID, skill)
			if err != nil {
				return err
			}
			if sp == nil {
				sp, err = progress.NewSkillProgress(cmd.LearnerID, skill)
				if err != nil {
					return err
				}
			}
			if err := sp.Apply(score, timestamp); err != nil {
				return err
			}
			if err := s.Skills.Upsert(ctx, sp); err != nil {
				return err
			}
			result.SkillProgress = append(result.SkillProgress, sp)
		}

		ledger, err = l.ApplyAttempt(learner.Score(scoring.OverallScore), timestamp)
		if err != nil {
			return err
		}
		if err := s.Learners.UpdateLedger(ctx, l); err != nil {
			return err
		}

		entry, err := progress.NewWeeklyEntry(cmd.LearnerID, timestamp, scoring.OverallScore)
		if err != nil {
			return err
		}
		stored, err := s.Weekly.UpsertBest(ctx, entry)
		if err != nil {
			return err
		}
		result.WeekdayBest = stored

		attemptCount, err = s.Attempts.CountByLearner(ctx, cmd.LearnerID)
		if err != nil {
			return err
		}

		isPublic = l.IsPublic
		return nil
	})
	if txErr != nil {
		// Another submission with the same key won the race; hand back
		// the attempt it recorded.
		if cmd.SubmissionKey != "" && errors.Is(txErr, attempt.ErrDuplicateSubmission) {
			if result, ok, err := h.replay(ctx, cmd.LearnerID, cmd.SubmissionKey); err == nil && ok {
				return result, nil
			}
			// The key is recorded for a different learner, so the replay
			// cannot serve it. Surface the conflict instead of a generic
			// failure.
			return nil, shared.WrapError("attempt", "Submit", shared.ErrAlreadyExists,
				"submission key is already in use", txErr)
		}
		if errors.Is(txErr, learner.ErrLearnerNotFound) {
			return nil, shared.WrapError("learner", "Submit", shared.ErrNotFound, "learner not found", txErr)
		}
		return nil, fmt.Errorf("submit_recitation: %w", txErr)
	}

	result.Ledger = ledger
	result.Level = ledger.NewLevel

	// Badges evaluate after commit: AwardOnce is idempotent, so a crash
	// between commit and here only delays an award until the learner's
	// next submission re-satisfies the predicate state.
	result.NewBadges = h.awardBadges(ctx, cmd.LearnerID, badge.EvaluationInput{
		AttemptCount:  attemptCount,
		CurrentStreak: ledger.NewStreak,
		AttemptScore:  scoring.OverallScore,
		TotalScore:    int(ledger.NewTotal),
	})

	h.refreshDerivedState(ctx, cmd.LearnerID, int(ledger.NewTotal), isPublic)
	h.publishEvents(cmd, newAttempt, ledger, result.NewBadges)

	return result, nil
}

// replay looks up an existing attempt for the submission key and, when
// found, assembles the read-only result. The key is scoped to the
// learner: a key recorded by someone else is treated as unknown.
func (h *SubmitRecitationHandler) replay(ctx context.Context, learnerID, key string) (*SubmitRecitationResult, bool, error) {
	existing, err := h.attemptReader.GetBySubmissionKey(ctx, key)
	if err != nil {
		if errors.Is(err, attempt.ErrAttemptNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("submit_recitation: replay lookup: %w", err)
	}
	if existing.LearnerID != learnerID {
		return nil, false, nil
	}

	l, err := h.learnerReader.GetByID(ctx, learnerID)
	if err != nil {
		return nil, false, fmt.Errorf("submit_recitation: replay learner: %w", err)
	}

	return &SubmitRecitationResult{
		Attempt:  existing,
		Level:    l.Level(),
		Replayed: true,
	}, true, nil
}

// awardBadges runs the catalogue predicates over the post-update state
// and records first-time unlocks. Storage decides "newly awarded";
// racing submissions cannot double-award.
func (h *SubmitRecitationHandler) awardBadges(ctx context.Context, learnerID string, in badge.EvaluationInput) []badge.Definition {
	var awarded []badge.Definition
	for _, def := range h.catalog.Evaluate(in) {
		isNew, err := h.badgeRepo.AwardOnce(ctx, badge.NewAward(learnerID, def.ID))
		if err != nil {
			h.logger.Error("badge award failed",
				"learner_id", learnerID, "badge_id", def.ID, "error", err)
			continue
		}
		if isNew {
			awarded = append(awarded, def)
		}
	}
	return awarded
}

// refreshDerivedState drops stale cache entries and projects the new
// total into the leaderboard ranking. Both are rebuildable, so
// failures are logged and swallowed.
func (h *SubmitRecitationHandler) refreshDerivedState(ctx context.Context, learnerID string, newTotal int, isPublic bool) {
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, learnerID); err != nil {
			h.logger.Warn("cache invalidation failed", "learner_id", learnerID, "error", err)
		}
	}

	if h.ranks == nil {
		return
	}
	var err error
	if isPublic {
		err = h.ranks.UpdateScore(ctx, learnerID, newTotal)
	} else {
		err = h.ranks.RemoveLearner(ctx, learnerID)
	}
	if err != nil {
		h.logger.Warn("rank projection failed", "learner_id", learnerID, "error", err)
	}
}

// publishEvents emits the domain events for a committed submission.
func (h *SubmitRecitationHandler) publishEvents(cmd SubmitRecitationCommand, a *attempt.Attempt, ledger learner.LedgerChange, newBadges []badge.Definition) {
	if h.eventPublisher == nil {
		return
	}

	events := make([]shared.Event, 0, 3+len(newBadges))

	scored := shared.NewAttemptScoredEvent(
		cmd.LearnerID, a.ID, a.ContentRef,
		a.OverallScore, a.Degraded,
		ledger.NewStreak, int(ledger.NewTotal),
	)
	if cmd.CorrelationID != "" {
		scored.BaseEvent = scored.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	events = append(events, scored)

	if ledger.Kind == learner.StreakReset && ledger.PreviousStreak > 0 {
		events = append(events, shared.NewStreakBrokenEvent(cmd.LearnerID, ledger.PreviousStreak, ledger.DaysMissed))
	}
	if ledger.LeveledUp() {
		events = append(events, shared.NewLevelUpEvent(
			cmd.LearnerID, string(ledger.PreviousLevel), string(ledger.NewLevel), int(ledger.NewTotal)))
	}
	for _, def := range newBadges {
		events = append(events, shared.NewBadgeAwardedEvent(cmd.LearnerID, string(def.ID), def.Name))
	}

	for _, event := range events {
		if err := h.eventPublisher.Publish(event); err != nil {
			h.logger.Warn("event publish failed", "event_type", event.EventType(), "error", err)
		}
	}
}
