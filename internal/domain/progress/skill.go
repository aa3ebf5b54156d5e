// Package progress contains the per-skill mastery model and the weekly
// activity grid. Like the rest of the domain layer it is pure: no I/O,
// no external dependencies.
package progress

import (
	"errors"
	"math"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SKILLS
// ══════════════════════════════════════════════════════════════════════════════

// Skill identifies one tajweed rule tracked by the engine.
type Skill string

// The fixed set of tracked tajweed skills. The oracle scores every
// attempt against exactly this set.
const (
	SkillMadd    Skill = "Madd"
	SkillGhunna  Skill = "Ghunna"
	SkillQalqala Skill = "Qalqala"
	SkillIdgham  Skill = "Idgham"
	SkillIkhfa   Skill = "Ikhfa"
	SkillIqlab   Skill = "Iqlab"
	SkillIzhar   Skill = "Izhar"
	SkillWaqf    Skill = "Waqf"
	SkillHamza   Skill = "Hamza"
	SkillTafkhim Skill = "Tafkhim"
)

// allSkills is the canonical ordering used everywhere skills are listed.
var allSkills = []Skill{
	SkillMadd, SkillGhunna, SkillQalqala, SkillIdgham, SkillIkhfa,
	SkillIqlab, SkillIzhar, SkillWaqf, SkillHamza, SkillTafkhim,
}

// AllSkills returns the tracked skills in canonical order.
func AllSkills() []Skill {
	out := make([]Skill, len(allSkills))
	copy(out, allSkills)
	return out
}

// IsValid reports whether the skill is one of the tracked set.
func (s Skill) IsValid() bool {
	for _, known := range allSkills {
		if s == known {
			return true
		}
	}
	return false
}

// String returns the skill name.
func (s Skill) String() string {
	return string(s)
}

// ParseSkill resolves a wire-format skill name to the tracked skill.
// Matching is case-insensitive since external payloads use lowercase.
func ParseSkill(name string) (Skill, bool) {
	for _, known := range allSkills {
		if strings.EqualFold(name, string(known)) {
			return known, true
		}
	}
	return "", false
}

// ══════════════════════════════════════════════════════════════════════════════
// MASTERY (EMA)
// ══════════════════════════════════════════════════════════════════════════════

// Mastery is the smoothed 0-100 proficiency estimate for one skill.
type Mastery int

// IsValid reports whether mastery is within the 0-100 range.
func (m Mastery) IsValid() bool {
	return m >= 0 && m <= 100
}

// Exponential-moving-average weights: the running estimate keeps most
// of its history so a single bad day cannot wipe out weeks of work,
// while a string of good attempts still moves it up quickly.
const (
	emaRetention = 0.7
	emaLearning  = 0.3
)

// NextMastery folds one attempt's skill score into the running estimate.
// The result is rounded to the nearest integer and stays in 0-100 as
// long as both inputs do.
func NextMastery(current Mastery, attemptScore int) Mastery {
	next := emaRetention*float64(current) + emaLearning*float64(attemptScore)
	return Mastery(math.Round(next))
}

// ══════════════════════════════════════════════════════════════════════════════
// SKILL PROGRESS ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// SkillProgress is the persisted mastery state of one (learner, skill) pair.
type SkillProgress struct {
	LearnerID    string
	Skill        Skill
	Mastery      Mastery
	AttemptCount int
	UpdatedAt    time.Time
}

// NewSkillProgress creates the initial state for a skill the learner
// has never been scored on. Mastery starts at zero, so the first
// attempt blends against zero like any other update.
func NewSkillProgress(learnerID string, skill Skill) (*SkillProgress, error) {
	if learnerID == "" {
		return nil, errors.New("learner id is required")
	}
	if !skill.IsValid() {
		return nil, ErrUnknownSkill
	}

	return &SkillProgress{
		LearnerID: learnerID,
		Skill:     skill,
	}, nil
}

// Apply folds one attempt's score for this skill into the estimate.
func (p *SkillProgress) Apply(attemptScore int, at time.Time) error {
	if attemptScore < 0 || attemptScore > 100 {
		return ErrScoreOutOfRange
	}

	p.Mastery = NextMastery(p.Mastery, attemptScore)
	p.AttemptCount++
	p.UpdatedAt = at.UTC()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUnknownSkill - the skill is not in the tracked set.
	ErrUnknownSkill = errors.New("unknown skill")

	// ErrScoreOutOfRange - a skill score fell outside 0-100.
	ErrScoreOutOfRange = errors.New("skill score must be between 0 and 100")

	// ErrInvalidWeekday - a weekday index fell outside 0-6.
	ErrInvalidWeekday = errors.New("weekday index must be between 0 and 6")
)
