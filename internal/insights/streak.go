package insights

import (
	"time"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/helper"
)

// CompletionDates returns the distinct days on which an assignment was
// completed. UpdatedAt, read in loc, is used when set, otherwise DueDate.
func CompletionDates(assignments []domain.Assignment, loc *time.Location) map[string]struct{} {
	days := make(map[string]struct{})
	for _, a := range assignments {
		if !a.Completed {
			continue
		}
		if !a.UpdatedAt.IsZero() {
			days[helper.FormatDate(a.UpdatedAt.In(loc))] = struct{}{}
		} else if a.DueDate != "" {
			days[a.DueDate] = struct{}{}
		}
	}
	return days
}

// CompletionStreak counts consecutive days with a completion, walking back
// from today. It is 0 when nothing was completed today.
func CompletionStreak(assignments []domain.Assignment, today time.Time) int {
	days := CompletionDates(assignments, today.Location())
	y, m, d := today.Date()

	streak := 0
	for {
		day := time.Date(y, m, d-streak, 0, 0, 0, 0, today.Location())
		if _, ok := days[helper.FormatDate(day)]; !ok {
			return streak
		}
		streak++
	}
}
