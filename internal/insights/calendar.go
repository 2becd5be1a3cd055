package insights

import (
	"time"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/helper"
)

// MonthView is a Monday-first month grid
type MonthView struct {
	Year          int        `json:"year"`
	Month         time.Month `json:"month"`
	LeadingBlanks int        `json:"leadingBlanks"`
	Days          int        `json:"days"`
	// Cells holds LeadingBlanks empty strings followed by one YYYY-MM-DD
	// date per day of the month.
	Cells []string `json:"cells"`
}

// MonthGrid lays out a month with weeks starting on Monday. Dates are built
// from explicit components in loc so no timezone shift can move a day.
func MonthGrid(year int, month time.Month, loc *time.Location) MonthView {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	days := helper.DaysInMonth(year, month)
	blanks := helper.MondayOffset(first.Weekday())

	cells := make([]string, blanks, blanks+days)
	for day := 1; day <= days; day++ {
		cells = append(cells, helper.FormatDate(time.Date(year, month, day, 0, 0, 0, 0, loc)))
	}

	return MonthView{
		Year:          year,
		Month:         month,
		LeadingBlanks: blanks,
		Days:          days,
		Cells:         cells,
	}
}

// WeekDays returns the seven dates, Monday first, of the week containing
// cursor.
func WeekDays(cursor time.Time) []string {
	start := helper.StartOfWeek(cursor)
	days := make([]string, 7)
	for i := range days {
		days[i] = helper.FormatDate(time.Date(start.Year(), start.Month(), start.Day()+i, 0, 0, 0, 0, start.Location()))
	}
	return days
}

// ByDate groups assignments by their exact due-date string, preserving
// snapshot order within each day.
func ByDate(assignments []domain.Assignment) map[string][]domain.Assignment {
	out := make(map[string][]domain.Assignment)
	for _, a := range assignments {
		out[a.DueDate] = append(out[a.DueDate], a)
	}
	return out
}

// OnDate returns the assignments due on date.
func OnDate(assignments []domain.Assignment, date string) []domain.Assignment {
	var out []domain.Assignment
	for _, a := range assignments {
		if a.DueDate == date {
			out = append(out, a)
		}
	}
	return out
}

// Conflict is a day with more than one assignment due
type Conflict struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Conflicts lists every due date shared by more than one assignment, in
// order of first appearance. Time of day is ignored.
func Conflicts(assignments []domain.Assignment) []Conflict {
	counts := make(map[string]int)
	var order []string
	for _, a := range assignments {
		if _, seen := counts[a.DueDate]; !seen {
			order = append(order, a.DueDate)
		}
		counts[a.DueDate]++
	}

	var out []Conflict
	for _, date := range order {
		if counts[date] > 1 {
			out = append(out, Conflict{Date: date, Count: counts[date]})
		}
	}
	return out
}
