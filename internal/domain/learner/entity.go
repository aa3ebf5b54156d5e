// Package learner contains the core domain model of a learner and the
// streak/score ledger that every scored attempt feeds into. It has no
// external dependencies.
package learner

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Score is a recitation score on the 0-100 scale.
type Score int

// IsValid reports whether the score is within the 0-100 range.
func (s Score) IsValid() bool {
	return s >= 0 && s <= 100
}

// TotalScore is the lifetime sum of all attempt scores.
type TotalScore int

// IsValid reports whether the total is non-negative.
func (t TotalScore) IsValid() bool {
	return t >= 0
}

// Add accumulates an attempt score into the total.
func (t TotalScore) Add(s Score) TotalScore {
	return t + TotalScore(s)
}

// Level is the learner's proficiency tier, derived from the total score.
// It is never stored; always recompute from the current total.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
	LevelExpert       Level = "Expert"
)

// Level thresholds on the lifetime total score.
const (
	expertThreshold       = 5000
	advancedThreshold     = 2000
	intermediateThreshold = 500
)

// CalculateLevel derives the level from a lifetime total score.
func CalculateLevel(total TotalScore) Level {
	switch {
	case total >= expertThreshold:
		return LevelExpert
	case total >= advancedThreshold:
		return LevelAdvanced
	case total >= intermediateThreshold:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}

// NextLevelAt returns the total score needed for the next level,
// or 0 when the learner is already at the top tier.
func NextLevelAt(total TotalScore) TotalScore {
	switch {
	case total >= expertThreshold:
		return 0
	case total >= advancedThreshold:
		return expertThreshold
	case total >= intermediateThreshold:
		return advancedThreshold
	default:
		return intermediateThreshold
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: LEARNER
// ══════════════════════════════════════════════════════════════════════════════

// Learner is the central aggregate of the progress engine. One row per
// learner holds the streak/score ledger that submissions mutate.
type Learner struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// DisplayName is the name shown on leaderboards and profiles.
	DisplayName string

	// Email is the unique contact address used at registration.
	Email string

	// IsPublic controls whether the learner appears on the public leaderboard.
	IsPublic bool

	// CurrentStreak is the number of consecutive active days including
	// the most recent one.
	CurrentStreak int

	// BestStreak is the longest streak ever reached.
	BestStreak int

	// TotalScore is the lifetime sum of all attempt scores.
	TotalScore TotalScore

	// LastActiveDate is the calendar date of the most recent attempt,
	// zero if the learner has never submitted.
	LastActiveDate time.Time

	// CreatedAt is the registration time.
	CreatedAt time.Time

	// UpdatedAt is the time of the last ledger mutation.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewLearnerParams contains the parameters for registering a learner.
type NewLearnerParams struct {
	ID          string
	DisplayName string
	Email       string
	IsPublic    bool
}

// NewLearner creates a learner with all fields validated.
func NewLearner(params NewLearnerParams) (*Learner, error) {
	if params.ID == "" {
		return nil, errors.New("learner id is required")
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if len(displayName) == 0 || len(displayName) > 100 {
		return nil, ErrInvalidDisplayName
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if !isPlausibleEmail(email) {
		return nil, ErrInvalidEmail
	}

	now := time.Now().UTC()

	return &Learner{
		ID:          params.ID,
		DisplayName: displayName,
		Email:       email,
		IsPublic:    params.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// isPlausibleEmail does a shallow shape check; real deliverability
// checks belong elsewhere.
func isPlausibleEmail(s string) bool {
	if len(s) < 3 || len(s) > 254 {
		return false
	}
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\n\r")
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Level returns the learner's current derived level.
func (l *Learner) Level() Level {
	return CalculateLevel(l.TotalScore)
}

// HasEverSubmitted reports whether the learner has at least one attempt.
func (l *Learner) HasEverSubmitted() bool {
	return !l.LastActiveDate.IsZero()
}

// SetVisibility toggles leaderboard visibility.
func (l *Learner) SetVisibility(isPublic bool) {
	l.IsPublic = isPublic
	l.UpdatedAt = time.Now().UTC()
}

// Rename changes the display name.
func (l *Learner) Rename(name string) error {
	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 100 {
		return ErrInvalidDisplayName
	}
	l.DisplayName = name
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// String returns a compact representation for logging.
func (l *Learner) String() string {
	return fmt.Sprintf(
		"Learner{ID: %s, Streak: %d, Total: %d, Level: %s}",
		l.ID, l.CurrentStreak, l.TotalScore, l.Level(),
	)
}

// Clone creates a copy of the learner.
func (l *Learner) Clone() *Learner {
	if l == nil {
		return nil
	}

	clone := *l
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidDisplayName - the display name is empty or too long.
	ErrInvalidDisplayName = errors.New("invalid display name: must be 1-100 chars")

	// ErrInvalidEmail - the email address does not look like an email.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidScore - the score is outside the 0-100 range.
	ErrInvalidScore = errors.New("invalid score: must be between 0 and 100")

	// ErrLearnerNotFound - no learner with the given ID exists.
	ErrLearnerNotFound = errors.New("learner not found")

	// ErrLearnerAlreadyExists - a learner with the given ID already exists.
	ErrLearnerAlreadyExists = errors.New("learner already exists")
)
