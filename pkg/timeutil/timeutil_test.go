package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOnly(t *testing.T) {
	late := time.Date(2026, time.March, 10, 23, 59, 59, 0, time.UTC)

	got := DateOnly(late)

	assert.Equal(t, Date(2026, 3, 10), got)
	assert.Equal(t, 0, got.Hour())
}

func TestCalendarDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	prev := DayBoundaryZone
	DayBoundaryZone = ny
	defer func() { DayBoundaryZone = prev }()

	// A DATE column scans back as midnight UTC. West of UTC that instant
	// is still the previous local evening, so the raw value must not feed
	// day math directly.
	scanned := time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)

	got := CalendarDate(scanned)
	assert.Equal(t, Date(2026, 8, 29), got)
	assert.Equal(t, ny.String(), got.Location().String())

	// An afternoon submission on the same local day classifies as
	// same-day against the re-anchored value, not next-day.
	afternoon := time.Date(2026, time.August, 29, 15, 0, 0, 0, ny)
	assert.True(t, IsSameDay(got, afternoon))
	assert.False(t, IsNextDay(got, afternoon))

	// Without re-anchoring the raw scan value lands on August 28 locally.
	assert.False(t, IsSameDay(scanned, afternoon))

	// Zero passes through, NULL dates stay zero.
	assert.True(t, CalendarDate(time.Time{}).IsZero())
}

func TestIsSameDay(t *testing.T) {
	morning := time.Date(2026, time.March, 10, 6, 0, 0, 0, time.UTC)
	night := time.Date(2026, time.March, 10, 23, 30, 0, 0, time.UTC)
	nextDay := time.Date(2026, time.March, 11, 0, 0, 1, 0, time.UTC)

	assert.True(t, IsSameDay(morning, night))
	assert.False(t, IsSameDay(night, nextDay))
}

func TestIsNextDay(t *testing.T) {
	day := time.Date(2026, time.March, 10, 22, 0, 0, 0, time.UTC)

	assert.True(t, IsNextDay(day, time.Date(2026, time.March, 11, 1, 0, 0, 0, time.UTC)))
	assert.False(t, IsNextDay(day, time.Date(2026, time.March, 10, 23, 0, 0, 0, time.UTC)))
	assert.False(t, IsNextDay(day, time.Date(2026, time.March, 12, 1, 0, 0, 0, time.UTC)))

	// Month boundary.
	assert.True(t, IsNextDay(Date(2026, 2, 28), Date(2026, 3, 1)))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, time.March, 10, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, time.March, 13, 1, 0, 0, 0, time.UTC)

	// Midnight to midnight, clock times do not matter.
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, 3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestWeekStart(t *testing.T) {
	// 2026-03-09 is a Monday.
	monday := Date(2026, 3, 9)

	tests := []struct {
		name string
		in   time.Time
	}{
		{"monday itself", monday},
		{"tuesday", Date(2026, 3, 10)},
		{"sunday ends the week", Date(2026, 3, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, monday, WeekStart(tt.in))
		})
	}

	// The following Monday opens a new week.
	assert.Equal(t, Date(2026, 3, 16), WeekStart(Date(2026, 3, 16)))
}

func TestWeekdayIndex(t *testing.T) {
	// Monday = 0 through Sunday = 6.
	assert.Equal(t, 0, WeekdayIndex(Date(2026, 3, 9)))
	assert.Equal(t, 1, WeekdayIndex(Date(2026, 3, 10)))
	assert.Equal(t, 6, WeekdayIndex(Date(2026, 3, 15)))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, Date(2026, 3, 10), got)

	_, err = ParseDate("10.03.2026")
	assert.Error(t, err)
}

func TestFormatClockDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{-5, "0:00"},
		{7, "0:07"},
		{65, "1:05"},
		{125, "2:05"},
		{600, "10:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatClockDuration(tt.seconds))
	}
}

func TestFormatRelativeDay(t *testing.T) {
	now := Date(2026, 3, 10)

	assert.Equal(t, "today", FormatRelativeDay(now, now))
	assert.Equal(t, "yesterday", FormatRelativeDay(Date(2026, 3, 9), now))
	assert.Equal(t, "4 days ago", FormatRelativeDay(Date(2026, 3, 6), now))
}
