// Package remote defines the row-store and auth contract the record store
// persists through, and the gateway that maps planner records to rows.
package remote

import (
	"context"
	"time"
)

// Row is one table row keyed by column name
type Row map[string]any

// Filter is an equality condition on a column
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Order sorts results by a column
type Order struct {
	Column string
	Desc   bool
}

// Query selects rows matching every filter, in the given order
type Query struct {
	Filters []Filter
	OrderBy []Order
}

// Adapter is a generic row store. Upsert writes full rows keyed by id.
type Adapter interface {
	Upsert(ctx context.Context, table string, rows ...Row) error
	Update(ctx context.Context, table string, values Row, filters ...Filter) error
	DeleteWhere(ctx context.Context, table string, filters ...Filter) error
	SelectAll(ctx context.Context, table string, q Query) ([]Row, error)
}

// Session identifies the authenticated user
type Session struct {
	AccessToken string    `json:"accessToken"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Auth manages the current session. GetSession returns nil, nil when
// nobody is signed in.
type Auth interface {
	GetSession(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, name, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn func(*Session)) (unsubscribe func())
}

// Table names
const (
	TableProfiles         = "profiles"
	TableTerms            = "terms"
	TableClasses          = "classes"
	TableClassResources   = "class_resources"
	TableSyllabusUploads  = "syllabus_uploads"
	TableSyllabusItems    = "syllabus_items"
	TableAssignments      = "assignments"
	TableStudyLogs        = "study_logs"
	TableNotes            = "notes"
	TableGradeScales      = "grade_scales"
	TableGradeRanges      = "grade_ranges"
	TableWeightCategories = "weight_categories"
	TableChangelog        = "changelog"
	TableWorkloadPulses   = "workload_pulses"
)

// Tables lists every table and its columns. Adapters reject names not
// listed here.
var Tables = map[string][]string{
	TableProfiles:         {"id", "user_id", "name", "email"},
	TableTerms:            {"id", "user_id", "name", "start_date", "end_date", "active"},
	TableClasses:          {"id", "user_id", "term_id", "name", "color", "instructor", "office_hours", "location", "credits", "created_at"},
	TableClassResources:   {"id", "user_id", "class_id", "label", "url"},
	TableSyllabusUploads:  {"id", "user_id", "class_id", "file_name", "object_url"},
	TableSyllabusItems:    {"id", "user_id", "class_id", "upload_id", "type", "title", "date", "time", "ambiguous", "notes"},
	TableAssignments:      {"id", "user_id", "class_id", "title", "description", "due_date", "due_time", "category", "status", "priority", "tags", "reminder_offsets", "weight", "grade", "completed", "subtasks", "created_at", "updated_at"},
	TableStudyLogs:        {"id", "user_id", "assignment_id", "minutes", "date"},
	TableNotes:            {"id", "user_id", "title", "content", "tags", "created_at", "updated_at"},
	TableGradeScales:      {"id", "user_id", "name", "active"},
	TableGradeRanges:      {"id", "user_id", "scale_id", "position", "label", "min", "max"},
	TableWeightCategories: {"id", "user_id", "label", "weight"},
	TableChangelog:        {"id", "user_id", "type", "message", "at"},
	TableWorkloadPulses:   {"id", "user_id", "level", "date", "created_at"},
}
