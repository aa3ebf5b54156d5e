// Package timeutil provides calendar-day and ISO-week utilities for the
// progress engine. Streaks and weekly activity are defined over calendar days
// at the learner's day boundary, so every helper here normalizes to a single
// configured location before comparing dates.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DayBoundaryZone is the location used to decide where one activity day ends
// and the next begins. Streak math, weekly slots and "today" all resolve
// against this zone. Defaults to UTC; main overrides it from configuration.
var DayBoundaryZone = time.UTC

// Now returns the current time in the day-boundary zone.
func Now() time.Time {
	return time.Now().In(DayBoundaryZone)
}

// ToLocal converts a time to the day-boundary zone.
func ToLocal(t time.Time) time.Time {
	return t.In(DayBoundaryZone)
}

// DateOnly truncates a time to midnight in the day-boundary zone.
// All persisted calendar dates (last_active_date, week_start) go through this.
func DateOnly(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, DayBoundaryZone)
}

// Date creates a midnight time in the day-boundary zone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, DayBoundaryZone)
}

// CalendarDate re-anchors a date-valued time to midnight in the
// day-boundary zone, reading the calendar components in the value's own
// location. DATE columns scan back from the database as midnight UTC;
// for zones west of UTC that instant falls on the previous local day,
// so comparing it directly against zone-local days shifts every date
// by one. Zero times pass through unchanged (NULL dates).
func CalendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return Date(t.Year(), int(t.Month()), t.Day())
}

// IsSameDay checks whether two times fall on the same calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	a, b := ToLocal(t1), ToLocal(t2)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// IsNextDay checks whether t2 falls on the calendar day right after t1.
func IsNextDay(t1, t2 time.Time) bool {
	return IsSameDay(ToLocal(t1).AddDate(0, 0, 1), t2)
}

// DaysBetween returns the absolute number of whole calendar days between two
// times, measured midnight to midnight.
func DaysBetween(t1, t2 time.Time) int {
	a := DateOnly(t1)
	b := DateOnly(t2)
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// WeekStart returns the Monday on or before t, at midnight.
// Weeks follow the ISO convention: Monday opens the week.
func WeekStart(t time.Time) time.Time {
	local := ToLocal(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return DateOnly(local.AddDate(0, 0, -(weekday - 1)))
}

// WeekdayIndex maps a time's weekday to the ISO slot index:
// Monday=0 through Sunday=6. Go's native Sunday=0 is shifted by (wd+6)%7.
func WeekdayIndex(t time.Time) int {
	return (int(ToLocal(t).Weekday()) + 6) % 7
}

// WeekSlots is the fixed number of weekday slots in a week view.
const WeekSlots = 7

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in the
// day-boundary zone.
func FormatDateStr(t time.Time) string {
	return ToLocal(t).Format(FormatDate)
}

// ParseDate parses a date string (YYYY-MM-DD) in the day-boundary zone.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, DayBoundaryZone)
}

// FormatClockDuration renders a recitation duration as M:SS for attempt
// history views.
func FormatClockDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatRelativeDay returns a short human label for how long ago a date was:
// "today", "yesterday", or "N days ago".
func FormatRelativeDay(t, now time.Time) string {
	days := DaysBetween(t, now)
	switch days {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
