package progress

import (
	"errors"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY ACTIVITY
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyEntry is the best score observed on one weekday of one ISO week.
// Keyed by (learner, week start, weekday); the stored score only ever
// goes up within the key.
type WeeklyEntry struct {
	LearnerID string

	// WeekStart is the Monday on or before the attempt date.
	WeekStart time.Time

	// Weekday is the ISO index within the week: Monday=0 .. Sunday=6.
	Weekday int

	// BestScore is the highest overall score recorded that day.
	BestScore int

	UpdatedAt time.Time
}

// NewWeeklyEntry builds the entry for one attempt at the given moment.
func NewWeeklyEntry(learnerID string, at time.Time, score int) (*WeeklyEntry, error) {
	if learnerID == "" {
		return nil, errors.New("learner id is required")
	}
	if score < 0 || score > 100 {
		return nil, ErrScoreOutOfRange
	}

	return &WeeklyEntry{
		LearnerID: learnerID,
		WeekStart: timeutil.WeekStart(at),
		Weekday:   timeutil.WeekdayIndex(at),
		BestScore: score,
		UpdatedAt: at.UTC(),
	}, nil
}

// Improves reports whether a new score would raise the stored best.
func (e *WeeklyEntry) Improves(score int) bool {
	return score > e.BestScore
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEK VIEW
// ══════════════════════════════════════════════════════════════════════════════

// DaySlot is one weekday cell of the reconstructed week view.
type DaySlot struct {
	Date    time.Time
	Weekday int
	Score   int
	IsToday bool
}

// WeekView is the full 7-slot grid for one week, absent days filled
// with zero.
type WeekView struct {
	WeekStart time.Time
	Days      [timeutil.WeekSlots]DaySlot
}

// BuildWeekView reconstructs the 7-day grid for the week containing
// `now` from whatever entries exist. Entries from other weeks are
// ignored; out-of-range weekday indexes are skipped rather than
// trusted.
func BuildWeekView(now time.Time, entries []*WeeklyEntry) WeekView {
	weekStart := timeutil.WeekStart(now)
	todayIdx := timeutil.WeekdayIndex(now)

	view := WeekView{WeekStart: weekStart}
	for i := range view.Days {
		view.Days[i] = DaySlot{
			Date:    weekStart.AddDate(0, 0, i),
			Weekday: i,
			IsToday: i == todayIdx,
		}
	}

	for _, e := range entries {
		// Compare calendar days, not instants: a week start loaded from
		// storage arrives as midnight in some other location.
		if e == nil || !timeutil.CalendarDate(e.WeekStart).Equal(weekStart) {
			continue
		}
		if e.Weekday < 0 || e.Weekday >= timeutil.WeekSlots {
			continue
		}
		view.Days[e.Weekday].Score = e.BestScore
	}

	return view
}

// TotalScore sums the week's daily bests.
func (v WeekView) TotalScore() int {
	total := 0
	for _, d := range v.Days {
		total += d.Score
	}
	return total
}

// ActiveDays counts weekdays with a non-zero best.
func (v WeekView) ActiveDays() int {
	n := 0
	for _, d := range v.Days {
		if d.Score > 0 {
			n++
		}
	}
	return n
}
