package helper

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by every record.
const DateLayout = "2006-01-02"

// fallbackLayouts are tried when a date is not a plain YYYY-MM-DD string.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate turns a YYYY-MM-DD string into midnight of that day in loc.
//
// The string is decomposed into explicit year/month/day components so the
// result never shifts across a timezone boundary. When decomposition fails
// a direct parse with a few common layouts is attempted. The bool is false
// when nothing matched; callers skip such values instead of failing.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}

	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) == 3 {
		year, errY := strconv.Atoi(parts[0])
		month, errM := strconv.Atoi(parts[1])
		day, errD := strconv.Atoi(parts[2])
		if errY == nil && errM == nil && errD == nil && year != 0 && month != 0 && day != 0 {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), true
		}
	}

	for _, layout := range fallbackLayouts {
		t, err := time.ParseInLocation(layout, strings.TrimSpace(value), loc)
		if err == nil {
			t = t.In(loc)
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
		}
	}

	return time.Time{}, false
}

// FormatDate renders t as YYYY-MM-DD in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns now's calendar date in now's location.
func Today(now time.Time) string {
	return FormatDate(now)
}

// DayStart returns midnight of t's day.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayEnd returns 23:59:59 of t's day.
func DayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// AddDays shifts a YYYY-MM-DD date by n days. Unparseable input is
// returned unchanged.
func AddDays(date string, n int, loc *time.Location) string {
	t, ok := ParseDate(date, loc)
	if !ok {
		return date
	}
	return FormatDate(t.AddDate(0, 0, n))
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MondayOffset is the number of days between the Monday that starts t's
// week and t itself.
func MondayOffset(weekday time.Weekday) int {
	return (int(weekday) + 6) % 7
}

// StartOfWeek returns the Monday of t's week at midnight.
func StartOfWeek(t time.Time) time.Time {
	day := DayStart(t)
	return day.AddDate(0, 0, -MondayOffset(day.Weekday()))
}
