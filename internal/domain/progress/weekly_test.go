package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

func TestNewWeeklyEntry_KeysOnMondayWeek(t *testing.T) {
	// Wednesday 2026-03-11.
	at := time.Date(2026, time.March, 11, 15, 30, 0, 0, time.UTC)

	e, err := NewWeeklyEntry("learner-1", at, 85)
	require.NoError(t, err)

	assert.True(t, e.WeekStart.Equal(time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, e.Weekday, "Wednesday is index 2 in a Monday-based week")
	assert.Equal(t, 85, e.BestScore)
}

func TestNewWeeklyEntry_SundayIsLastSlot(t *testing.T) {
	at := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC) // Sunday

	e, err := NewWeeklyEntry("learner-1", at, 40)
	require.NoError(t, err)

	assert.Equal(t, 6, e.Weekday)
	assert.True(t, e.WeekStart.Equal(time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)),
		"Sunday belongs to the week that started the previous Monday")
}

func TestWeeklyEntry_Improves(t *testing.T) {
	e := &WeeklyEntry{BestScore: 70}

	assert.True(t, e.Improves(71))
	assert.False(t, e.Improves(70), "equal score does not improve")
	assert.False(t, e.Improves(30))
}

func TestBuildWeekView(t *testing.T) {
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC) // Wednesday
	weekStart := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

	entries := []*WeeklyEntry{
		{LearnerID: "l1", WeekStart: weekStart, Weekday: 0, BestScore: 80},
		{LearnerID: "l1", WeekStart: weekStart, Weekday: 2, BestScore: 95},
		// Entry from a previous week must be ignored.
		{LearnerID: "l1", WeekStart: weekStart.AddDate(0, 0, -7), Weekday: 4, BestScore: 99},
	}

	view := BuildWeekView(now, entries)

	assert.True(t, view.WeekStart.Equal(weekStart))
	assert.Equal(t, 80, view.Days[0].Score)
	assert.Equal(t, 0, view.Days[1].Score)
	assert.Equal(t, 95, view.Days[2].Score)
	assert.Equal(t, 0, view.Days[4].Score, "entry from another week ignored")
	assert.True(t, view.Days[2].IsToday)
	assert.False(t, view.Days[0].IsToday)

	assert.Equal(t, 175, view.TotalScore())
	assert.Equal(t, 2, view.ActiveDays())
}

func TestBuildWeekView_StoredWeekStartInOtherLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	prev := timeutil.DayBoundaryZone
	timeutil.DayBoundaryZone = ny
	defer func() { timeutil.DayBoundaryZone = prev }()

	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, ny) // Wednesday

	// Storage hands week starts back as midnight UTC. The view must still
	// match them against the locally computed week.
	storedWeekStart := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

	entries := []*WeeklyEntry{
		{LearnerID: "l1", WeekStart: storedWeekStart, Weekday: 0, BestScore: 80},
		{LearnerID: "l1", WeekStart: storedWeekStart, Weekday: 2, BestScore: 95},
	}

	view := BuildWeekView(now, entries)

	assert.Equal(t, 80, view.Days[0].Score)
	assert.Equal(t, 95, view.Days[2].Score)
	assert.Equal(t, 2, view.ActiveDays())
}

func TestBuildWeekView_EmptyEntries(t *testing.T) {
	now := time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC)

	view := BuildWeekView(now, nil)

	assert.Equal(t, 0, view.TotalScore())
	assert.Equal(t, 0, view.ActiveDays())
	for i, d := range view.Days {
		assert.Equal(t, i, d.Weekday)
		assert.Equal(t, 0, d.Score)
	}
}
