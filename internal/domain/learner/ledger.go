package learner

import (
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK & SCORE LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// StreakKind classifies what a scored attempt did to the streak.
type StreakKind string

const (
	// StreakStarted - first ever attempt, streak begins at 1.
	StreakStarted StreakKind = "started"
	// StreakExtended - attempt on the day after the last active day.
	StreakExtended StreakKind = "extended"
	// StreakUnchanged - another attempt on an already-active day.
	StreakUnchanged StreakKind = "unchanged"
	// StreakReset - a gap of at least one full day, streak restarts at 1.
	StreakReset StreakKind = "reset"
)

// LedgerChange describes the outcome of applying one attempt to the ledger.
type LedgerChange struct {
	Kind           StreakKind
	PreviousStreak int
	NewStreak      int
	DaysMissed     int
	PreviousTotal  TotalScore
	NewTotal       TotalScore
	PreviousLevel  Level
	NewLevel       Level
}

// LeveledUp reports whether the attempt pushed the learner across a
// level threshold.
func (c LedgerChange) LeveledUp() bool {
	return c.PreviousLevel != c.NewLevel
}

// ApplyAttempt folds a scored attempt into the learner's streak and
// total-score ledger. The streak transition depends only on the calendar
// day of the attempt relative to the last active day:
//
//	no prior activity      -> streak 1
//	same day               -> streak unchanged
//	exactly the next day   -> streak + 1
//	any longer gap         -> streak resets to 1
//
// The total score always grows by the attempt score, including score 0
// from degraded scoring.
func (l *Learner) ApplyAttempt(score Score, at time.Time) (LedgerChange, error) {
	if !score.IsValid() {
		return LedgerChange{}, ErrInvalidScore
	}

	day := timeutil.DateOnly(at)

	change := LedgerChange{
		PreviousStreak: l.CurrentStreak,
		PreviousTotal:  l.TotalScore,
		PreviousLevel:  l.Level(),
	}

	switch {
	case !l.HasEverSubmitted():
		change.Kind = StreakStarted
		l.CurrentStreak = 1

	case timeutil.IsSameDay(l.LastActiveDate, day):
		change.Kind = StreakUnchanged

	case timeutil.IsNextDay(l.LastActiveDate, day):
		change.Kind = StreakExtended
		l.CurrentStreak++

	default:
		change.Kind = StreakReset
		change.DaysMissed = timeutil.DaysBetween(l.LastActiveDate, day) - 1
		l.CurrentStreak = 1
	}

	if l.CurrentStreak > l.BestStreak {
		l.BestStreak = l.CurrentStreak
	}

	l.TotalScore = l.TotalScore.Add(score)
	l.LastActiveDate = day
	l.UpdatedAt = time.Now().UTC()

	change.NewStreak = l.CurrentStreak
	change.NewTotal = l.TotalScore
	change.NewLevel = l.Level()

	return change, nil
}

// EffectiveStreak returns the streak as it should be displayed at the
// given time: a streak whose last active day is neither today nor
// yesterday has already lapsed even though no attempt has recorded the
// reset yet.
func (l *Learner) EffectiveStreak(now time.Time) int {
	if !l.HasEverSubmitted() {
		return 0
	}

	today := timeutil.DateOnly(now)
	if timeutil.IsSameDay(l.LastActiveDate, today) || timeutil.IsNextDay(l.LastActiveDate, today) {
		return l.CurrentStreak
	}

	return 0
}
