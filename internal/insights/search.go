package insights

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pbaille/pulsetrack/internal/domain"
)

// AssignmentFilter narrows the assignment list
type AssignmentFilter string

const (
	FilterAll        AssignmentFilter = "all"
	FilterOverdue    AssignmentFilter = "overdue"
	FilterIncomplete AssignmentFilter = "incomplete"
	FilterUrgent     AssignmentFilter = "urgent"
	FilterPriority   AssignmentFilter = "priority"
)

// FilterAssignments applies an assignment list filter. "all" shows open
// work only; completed assignments are listed separately.
func FilterAssignments(assignments []domain.Assignment, filter AssignmentFilter, today string) []domain.Assignment {
	var out []domain.Assignment
	for _, a := range assignments {
		if a.Completed {
			continue
		}
		switch filter {
		case FilterOverdue:
			if a.DueDate >= today {
				continue
			}
		case FilterUrgent:
			if a.Status != domain.StatusUrgent {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// CompletedAssignments returns finished work.
func CompletedAssignments(assignments []domain.Assignment) []domain.Assignment {
	var out []domain.Assignment
	for _, a := range assignments {
		if a.Completed {
			out = append(out, a)
		}
	}
	return out
}

// SearchResult is one hit from Search
type SearchResult struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ParseFilter validates a search or list filter name. Empty means all.
func ParseFilter(s string) (AssignmentFilter, error) {
	switch f := AssignmentFilter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterOverdue, FilterIncomplete, FilterUrgent, FilterPriority:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Search matches query case-insensitively against assignment titles, note
// titles and contents, and class names. Every filter other than all
// restricts results to assignments: overdue keeps those due before today,
// priority sorts High to Low, incomplete drops completed work.
func Search(state domain.State, query string, filter AssignmentFilter, today string) []SearchResult {
	q := strings.ToLower(query)
	matches := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }

	var assignments []domain.Assignment
	for _, a := range state.Assignments {
		if matches(a.Title) {
			assignments = append(assignments, a)
		}
	}

	switch filter {
	case FilterOverdue:
		var out []domain.Assignment
		for _, a := range assignments {
			if a.DueDate < today {
				out = append(out, a)
			}
		}
		return assignmentResults(out)
	case FilterPriority:
		sorted := append([]domain.Assignment(nil), assignments...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Priority.Rank() > sorted[j].Priority.Rank()
		})
		return assignmentResults(sorted)
	case FilterIncomplete, FilterUrgent:
		var out []domain.Assignment
		for _, a := range assignments {
			if !a.Completed && (filter != FilterUrgent || a.Status == domain.StatusUrgent) {
				out = append(out, a)
			}
		}
		return assignmentResults(out)
	}

	results := assignmentResults(assignments)
	for _, n := range state.Notes {
		if matches(n.Title) || matches(n.Content) {
			results = append(results, SearchResult{Type: "Note", ID: n.ID, Title: n.Title, Detail: strings.Join(n.Tags, ", ")})
		}
	}
	for _, c := range state.Classes {
		if matches(c.Name) {
			results = append(results, SearchResult{Type: "Class", ID: c.ID, Title: c.Name, Detail: c.Instructor})
		}
	}
	return results
}

func assignmentResults(assignments []domain.Assignment) []SearchResult {
	results := make([]SearchResult, 0, len(assignments))
	for _, a := range assignments {
		results = append(results, SearchResult{Type: "Assignment", ID: a.ID, Title: a.Title, Detail: a.DueDate})
	}
	return results
}
