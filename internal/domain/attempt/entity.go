// Package attempt contains the immutable scored-recitation record.
// An attempt is written exactly once per submission and never mutated.
package attempt

import (
	"errors"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE
// ══════════════════════════════════════════════════════════════════════════════

// Grade is the human-facing letter grade derived from the overall score.
type Grade string

const (
	GradePerfect   Grade = "Perfect"
	GradeExcellent Grade = "Excellent"
	GradeVeryGood  Grade = "Very Good"
	GradeGood      Grade = "Good"
	GradeFair      Grade = "Fair"
	GradePassable  Grade = "Passable"
	GradeNeedsWork Grade = "Needs Work"

	// GradeError marks an attempt recorded through the degraded path
	// after the scoring oracle failed.
	GradeError Grade = "Error"
)

// GradeFor maps an overall score to its grade.
func GradeFor(score int) Grade {
	switch {
	case score >= 95:
		return GradePerfect
	case score >= 90:
		return GradeExcellent
	case score >= 80:
		return GradeVeryGood
	case score >= 70:
		return GradeGood
	case score >= 60:
		return GradeFair
	case score >= 50:
		return GradePassable
	default:
		return GradeNeedsWork
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ATTEMPT
// ══════════════════════════════════════════════════════════════════════════════

// Attempt is one scored recitation as the oracle judged it.
type Attempt struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// LearnerID references the submitting learner.
	LearnerID string

	// ContentRef identifies the recited passage (e.g. "2:255" or a
	// content slug).
	ContentRef string

	// ContentName is the display name of the passage.
	ContentName string

	// OverallScore is the oracle's 0-100 overall judgement; 0 for
	// degraded attempts.
	OverallScore int

	// Grade is derived from OverallScore, or GradeError when degraded.
	Grade Grade

	// DurationSeconds is the recording length.
	DurationSeconds int

	// SkillScores holds the oracle's per-skill scores.
	SkillScores map[progress.Skill]int

	// Feedback is the oracle's free-text feedback.
	Feedback string

	// Degraded marks attempts recorded after an oracle failure.
	Degraded bool

	// SubmissionKey is the caller-supplied idempotency key, empty when
	// the caller did not send one.
	SubmissionKey string

	// CreatedAt is the submission time.
	CreatedAt time.Time
}

// NewAttemptParams contains the parameters for recording an attempt.
type NewAttemptParams struct {
	ID              string
	LearnerID       string
	ContentRef      string
	ContentName     string
	OverallScore    int
	DurationSeconds int
	SkillScores     map[progress.Skill]int
	Feedback        string
	Degraded        bool
	SubmissionKey   string
}

// NewAttempt creates a validated attempt record. Scores outside 0-100
// are rejected, never clamped; the degraded fallback result is built by
// the oracle layer before it reaches this constructor.
func NewAttempt(params NewAttemptParams) (*Attempt, error) {
	if params.ID == "" {
		return nil, errors.New("attempt id is required")
	}
	if params.LearnerID == "" {
		return nil, errors.New("learner id is required")
	}
	if params.ContentRef == "" {
		return nil, ErrMissingContentRef
	}
	if params.OverallScore < 0 || params.OverallScore > 100 {
		return nil, ErrScoreOutOfRange
	}
	if params.DurationSeconds < 0 {
		return nil, ErrInvalidDuration
	}

	scores := make(map[progress.Skill]int, len(params.SkillScores))
	for skill, score := range params.SkillScores {
		if !skill.IsValid() {
			return nil, ErrUnknownSkill
		}
		if score < 0 || score > 100 {
			return nil, ErrScoreOutOfRange
		}
		scores[skill] = score
	}

	grade := GradeFor(params.OverallScore)
	if params.Degraded {
		grade = GradeError
	}

	return &Attempt{
		ID:              params.ID,
		LearnerID:       params.LearnerID,
		ContentRef:      params.ContentRef,
		ContentName:     params.ContentName,
		OverallScore:    params.OverallScore,
		Grade:           grade,
		DurationSeconds: params.DurationSeconds,
		SkillScores:     scores,
		Feedback:        params.Feedback,
		Degraded:        params.Degraded,
		SubmissionKey:   params.SubmissionKey,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// FormattedDuration returns the recording length as M:SS.
func (a *Attempt) FormattedDuration() string {
	return timeutil.FormatClockDuration(a.DurationSeconds)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrMissingContentRef - the submission named no content to recite.
	ErrMissingContentRef = errors.New("content reference is required")

	// ErrScoreOutOfRange - a score fell outside 0-100.
	ErrScoreOutOfRange = errors.New("score must be between 0 and 100")

	// ErrInvalidDuration - the recording duration is negative.
	ErrInvalidDuration = errors.New("duration must be non-negative")

	// ErrUnknownSkill - the oracle reported a skill outside the tracked set.
	ErrUnknownSkill = errors.New("unknown skill in score map")

	// ErrAttemptNotFound - no attempt with the given ID exists.
	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrDuplicateSubmission - the submission key was already recorded.
	ErrDuplicateSubmission = errors.New("submission already recorded")
)
