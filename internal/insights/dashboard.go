package insights

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/helper"
)

// ClassMinutes is total study time logged against one class
type ClassMinutes struct {
	ClassID   string `json:"classId"`
	ClassName string `json:"className"`
	Minutes   int    `json:"minutes"`
}

// Dashboard is the home summary computed from a snapshot
type Dashboard struct {
	Today        string              `json:"today"`
	DueToday     []domain.Assignment `json:"dueToday"`
	UpcomingWeek []domain.Assignment `json:"upcomingWeek"`
	Conflicts    []Conflict          `json:"conflicts"`
	StudyMinutes int                 `json:"studyMinutes"`
	StudyByClass []ClassMinutes      `json:"studyByClass"`
	ActiveTerm   *domain.Term        `json:"activeTerm,omitempty"`
	TermEnded    bool                `json:"termEnded"`
	Streak       int                 `json:"streak"`
	GPA          float64             `json:"gpa"`
}

// BuildDashboard summarizes state as of now.
func BuildDashboard(state domain.State, now time.Time) Dashboard {
	today := helper.FormatDate(now)
	weekEnd := helper.AddDays(today, 7, now.Location())

	d := Dashboard{
		Today:        today,
		Conflicts:    Conflicts(state.Assignments),
		StudyByClass: StudyByClass(state.Classes, state.Assignments),
		Streak:       CompletionStreak(state.Assignments, now),
		GPA:          OverallGPA(ClassGrades(state.Classes, state.Assignments)),
	}
	for _, a := range state.Assignments {
		if a.DueDate == today {
			d.DueToday = append(d.DueToday, a)
		}
		if a.DueDate >= today && a.DueDate <= weekEnd {
			d.UpcomingWeek = append(d.UpcomingWeek, a)
		}
		d.StudyMinutes += StudyMinutes(a)
	}
	if term, ok := state.ActiveTerm(); ok {
		d.ActiveTerm = &term
		d.TermEnded = term.EndDate < today
	}
	return d
}

// StudyMinutes is the total time logged on an assignment.
func StudyMinutes(a domain.Assignment) int {
	minutes := make([]int, len(a.StudyLogs))
	for i, log := range a.StudyLogs {
		minutes[i] = log.Minutes
	}
	return helper.Sum(minutes)
}

// StudyByClass totals logged minutes per class in order of first appearance.
// Assignments whose class is unknown are grouped under their raw class ID.
func StudyByClass(classes []domain.ClassItem, assignments []domain.Assignment) []ClassMinutes {
	names := make(map[string]string, len(classes))
	for _, c := range classes {
		names[c.ID] = c.Name
	}

	index := make(map[string]int)
	var out []ClassMinutes
	for _, a := range assignments {
		i, ok := index[a.ClassID]
		if !ok {
			i = len(out)
			index[a.ClassID] = i
			out = append(out, ClassMinutes{ClassID: a.ClassID, ClassName: names[a.ClassID]})
		}
		out[i].Minutes += StudyMinutes(a)
	}
	return out
}

// TimeUntil renders the countdown to a due date and HH:MM time, or "due now"
// once it has passed.
func TimeUntil(date, clock string, now time.Time) string {
	day, ok := helper.ParseDate(date, now.Location())
	if !ok {
		return "due now"
	}
	hours, minutes := splitClock(clock)
	due := day.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute)

	diff := due.Sub(now)
	if diff <= 0 {
		return "due now"
	}
	return fmt.Sprintf("%dh %dm", int(diff/time.Hour), int(diff%time.Hour/time.Minute))
}

func splitClock(clock string) (int, int) {
	h, m, _ := strings.Cut(clock, ":")
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	return hours, minutes
}
