package remote

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pbaille/pulsetrack/internal/domain"
)

// Read defaults for columns that are NULL or absent.
const (
	DefaultClassColor = "#38bdf8"
	DefaultCredits    = 3
	DefaultCategory   = "General"
	DefaultScaleName  = "Scale"
	DefaultUserName   = "Student"
)

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timestamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func termRow(userID string, t domain.Term) Row {
	return Row{
		"id":         t.ID,
		"user_id":    userID,
		"name":       t.Name,
		"start_date": t.StartDate,
		"end_date":   t.EndDate,
		"active":     t.Active,
	}
}

func classRow(userID string, c domain.ClassItem) Row {
	return Row{
		"id":           c.ID,
		"user_id":      userID,
		"term_id":      nullable(c.TermID),
		"name":         c.Name,
		"color":        c.Color,
		"instructor":   c.Instructor,
		"office_hours": c.OfficeHours,
		"location":     c.Location,
		"credits":      c.Credits,
	}
}

func assignmentRow(userID string, a domain.Assignment) Row {
	var grade any
	if a.Grade != nil {
		grade = *a.Grade
	}
	return Row{
		"id":               a.ID,
		"user_id":          userID,
		"class_id":         a.ClassID,
		"title":            a.Title,
		"description":      a.Description,
		"due_date":         nullable(a.DueDate),
		"due_time":         nullable(a.DueTime),
		"category":         a.Category,
		"status":           string(a.Status),
		"priority":         string(a.Priority),
		"tags":             jsonText(nonNil(a.Tags)),
		"reminder_offsets": jsonText(nonNil(a.ReminderOffsets)),
		"weight":           a.Weight,
		"grade":            grade,
		"completed":        a.Completed,
		"subtasks":         jsonText(nonNil(a.Subtasks)),
		"created_at":       timestamp(a.CreatedAt),
		"updated_at":       timestamp(a.UpdatedAt),
	}
}

func noteRow(userID string, n domain.NoteItem) Row {
	return Row{
		"id":         n.ID,
		"user_id":    userID,
		"title":      n.Title,
		"content":    n.Content,
		"tags":       jsonText(nonNil(n.Tags)),
		"created_at": timestamp(n.CreatedAt),
		"updated_at": timestamp(n.UpdatedAt),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case []byte:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

func asInt(v any, fallback int) int {
	f, ok := asFloat(v)
	if !ok {
		return fallback
	}
	return int(f)
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case int:
		return x != 0
	case []byte:
		b, _ := strconv.ParseBool(string(x))
		return b
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	}
	return false
}

func asTime(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	t, err := time.Parse(time.RFC3339Nano, asString(v))
	if err != nil {
		return time.Time{}
	}
	return t
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// decodeJSON fills out from a JSON text column, leaving it unchanged when
// the column is empty or malformed.
func decodeJSON[T any](v any, out *[]T) {
	s := asString(v)
	if s == "" {
		return
	}
	var decoded []T
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		*out = decoded
	}
}

func termFromRow(r Row) domain.Term {
	return domain.Term{
		ID:        asString(r["id"]),
		Name:      asString(r["name"]),
		StartDate: asString(r["start_date"]),
		EndDate:   asString(r["end_date"]),
		Active:    asBool(r["active"]),
	}
}

func classFromRow(r Row) domain.ClassItem {
	return domain.ClassItem{
		ID:              asString(r["id"]),
		Name:            asString(r["name"]),
		Color:           orDefault(asString(r["color"]), DefaultClassColor),
		Instructor:      asString(r["instructor"]),
		OfficeHours:     asString(r["office_hours"]),
		Location:        asString(r["location"]),
		Credits:         asInt(r["credits"], DefaultCredits),
		TermID:          asString(r["term_id"]),
		Resources:       []domain.ResourceLink{},
		SyllabusUploads: []domain.SyllabusUpload{},
	}
}

func assignmentFromRow(r Row) domain.Assignment {
	a := domain.Assignment{
		ID:              asString(r["id"]),
		ClassID:         asString(r["class_id"]),
		Title:           asString(r["title"]),
		Description:     asString(r["description"]),
		DueDate:         asString(r["due_date"]),
		DueTime:         asString(r["due_time"]),
		Category:        orDefault(asString(r["category"]), DefaultCategory),
		Status:          domain.StatusTag(orDefault(asString(r["status"]), string(domain.StatusOnTrack))),
		Priority:        domain.Priority(orDefault(asString(r["priority"]), string(domain.PriorityMedium))),
		Tags:            []string{},
		ReminderOffsets: []int{},
		Completed:       asBool(r["completed"]),
		Subtasks:        []domain.Subtask{},
		StudyLogs:       []domain.StudyLog{},
		CreatedAt:       asTime(r["created_at"]),
		UpdatedAt:       asTime(r["updated_at"]),
	}
	a.Weight, _ = asFloat(r["weight"])
	if g, ok := asFloat(r["grade"]); ok {
		a.Grade = &g
	}
	decodeJSON(r["tags"], &a.Tags)
	decodeJSON(r["reminder_offsets"], &a.ReminderOffsets)
	decodeJSON(r["subtasks"], &a.Subtasks)
	return a
}

func noteFromRow(r Row) domain.NoteItem {
	n := domain.NoteItem{
		ID:        asString(r["id"]),
		Title:     asString(r["title"]),
		Content:   asString(r["content"]),
		Tags:      []string{},
		CreatedAt: asTime(r["created_at"]),
		UpdatedAt: asTime(r["updated_at"]),
	}
	decodeJSON(r["tags"], &n.Tags)
	return n
}
