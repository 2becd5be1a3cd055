package domain

import "time"

// StatusTag is the progress label shown on an assignment
type StatusTag string

const (
	StatusUrgent     StatusTag = "Urgent"
	StatusInProgress StatusTag = "In Progress"
	StatusBlocked    StatusTag = "Blocked"
	StatusOnTrack    StatusTag = "On Track"
	StatusCompleted  StatusTag = "Completed"
)

// Priority ranks assignments against each other
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Rank orders priorities High > Medium > Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// WorkloadLevel is a self-reported workload check-in value
type WorkloadLevel string

const (
	WorkloadLight      WorkloadLevel = "Light"
	WorkloadManageable WorkloadLevel = "Manageable"
	WorkloadOverloaded WorkloadLevel = "Overloaded"
)

// WorkloadLevels lists levels from lightest to heaviest.
var WorkloadLevels = []WorkloadLevel{WorkloadLight, WorkloadManageable, WorkloadOverloaded}

// ChangeType categorizes changelog entries
type ChangeType string

const (
	ChangeClass      ChangeType = "class"
	ChangeAssignment ChangeType = "assignment"
	ChangeNote       ChangeType = "note"
	ChangeGrade      ChangeType = "grade"
	ChangeTerm       ChangeType = "term"
	ChangeSystem     ChangeType = "system"
)

// ExtractedKind is the kind of item found in a syllabus
type ExtractedKind string

const (
	ExtractedAssignment  ExtractedKind = "assignment"
	ExtractedReading     ExtractedKind = "reading"
	ExtractedExam        ExtractedKind = "exam"
	ExtractedOfficeHours ExtractedKind = "office-hours"
)

// Term is an academic term. At most one term is active.
type Term struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"startDate" validate:"required,datestr"`
	EndDate   string `json:"endDate" validate:"required,datestr"`
	Active    bool   `json:"active"`
}

// ResourceLink is a labeled URL attached to a class
type ResourceLink struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	URL   string `json:"url" validate:"required,url"`
}

// ExtractedItem is one dated entry pulled from a syllabus upload
type ExtractedItem struct {
	ID        string        `json:"id"`
	Type      ExtractedKind `json:"type"`
	Title     string        `json:"title"`
	Date      string        `json:"date"`
	Time      string        `json:"time,omitempty"`
	Ambiguous bool          `json:"ambiguous,omitempty"`
	Notes     string        `json:"notes,omitempty"`
}

// SyllabusUpload is an uploaded syllabus and the items extracted from it
type SyllabusUpload struct {
	ID             string          `json:"id"`
	FileName       string          `json:"fileName"`
	ObjectURL      string          `json:"objectUrl,omitempty"`
	ExtractedItems []ExtractedItem `json:"extractedItems"`
}

// ClassItem is a course taken during a term
type ClassItem struct {
	ID              string           `json:"id"`
	Name            string           `json:"name" validate:"required"`
	Color           string           `json:"color"`
	Instructor      string           `json:"instructor"`
	OfficeHours     string           `json:"officeHours"`
	Location        string           `json:"location"`
	Credits         int              `json:"credits" validate:"min=1,max=10"`
	TermID          string           `json:"termId"`
	Resources       []ResourceLink   `json:"resources" validate:"dive"`
	SyllabusUploads []SyllabusUpload `json:"syllabusUploads"`
}

// Subtask is a checklist item inside an assignment
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// StudyLog records minutes spent on an assignment on a given day
type StudyLog struct {
	ID      string `json:"id"`
	Minutes int    `json:"minutes" validate:"min=0"`
	Date    string `json:"date"`
}

// Assignment is a graded piece of work belonging to a class
type Assignment struct {
	ID              string     `json:"id"`
	ClassID         string     `json:"classId"`
	Title           string     `json:"title" validate:"required"`
	Description     string     `json:"description"`
	DueDate         string     `json:"dueDate" validate:"omitempty,datestr"`
	DueTime         string     `json:"dueTime" validate:"omitempty,clock"`
	Category        string     `json:"category"`
	Status          StatusTag  `json:"status" validate:"oneof=Urgent 'In Progress' Blocked 'On Track' Completed"`
	Priority        Priority   `json:"priority" validate:"oneof=Low Medium High"`
	Tags            []string   `json:"tags"`
	ReminderOffsets []int      `json:"reminderOffsets"`
	Weight          float64    `json:"weight" validate:"min=0,max=100"`
	Grade           *float64   `json:"grade,omitempty" validate:"omitempty,min=0,max=100"`
	Completed       bool       `json:"completed"`
	Subtasks        []Subtask  `json:"subtasks"`
	StudyLogs       []StudyLog `json:"studyLogs" validate:"dive"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// GradeOrZero returns the grade, treating a missing grade as 0.
func (a Assignment) GradeOrZero() float64 {
	if a.Grade == nil {
		return 0
	}
	return *a.Grade
}

// GradeRange maps an inclusive percentage range to a label
type GradeRange struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// GradeScale is a named, ordered list of grade ranges
type GradeScale struct {
	ID     string       `json:"id"`
	Name   string       `json:"name" validate:"required"`
	Ranges []GradeRange `json:"ranges"`
}

// WeightCategory is a template weight used when creating assignments
type WeightCategory struct {
	ID     string  `json:"id"`
	Label  string  `json:"label" validate:"required"`
	Weight float64 `json:"weight" validate:"min=0,max=100"`
}

// NoteItem is a free-form note
type NoteItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" validate:"required"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChangelogItem is an append-only audit record
type ChangelogItem struct {
	ID      string     `json:"id"`
	Type    ChangeType `json:"type"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// WorkloadPulse is one workload check-in for a calendar day
type WorkloadPulse struct {
	ID        string        `json:"id"`
	Level     WorkloadLevel `json:"level" validate:"oneof=Light Manageable Overloaded"`
	Date      string        `json:"date" validate:"required,datestr"`
	CreatedAt time.Time     `json:"createdAt"`
}

// UserProfile identifies the signed-in student
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Badge is a locally awarded achievement
type Badge struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	EarnedAt time.Time `json:"earnedAt"`
}

// State is the full collection of records held by the planner
type State struct {
	User               UserProfile      `json:"user"`
	Classes            []ClassItem      `json:"classes"`
	Assignments        []Assignment     `json:"assignments"`
	Notes              []NoteItem       `json:"notes"`
	GradeScales        []GradeScale     `json:"gradeScales"`
	ActiveGradeScaleID string           `json:"activeGradeScaleId"`
	WeightCategories   []WeightCategory `json:"weightCategories"`
	Terms              []Term           `json:"terms"`
	Changelog          []ChangelogItem  `json:"changelog"`
	WorkloadPulses     []WorkloadPulse  `json:"workloadPulses"`
	Badges             []Badge          `json:"badges"`
}

// ActiveGradeScale returns the scale the active pointer refers to.
func (s State) ActiveGradeScale() (GradeScale, bool) {
	for _, scale := range s.GradeScales {
		if scale.ID == s.ActiveGradeScaleID {
			return scale, true
		}
	}
	return GradeScale{}, false
}

// ActiveTerm returns the first term flagged active.
func (s State) ActiveTerm() (Term, bool) {
	for _, t := range s.Terms {
		if t.Active {
			return t, true
		}
	}
	return Term{}, false
}

// ClassByID finds a class by ID.
func (s State) ClassByID(id string) (ClassItem, bool) {
	for _, c := range s.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return ClassItem{}, false
}

// AssignmentByID finds an assignment by ID.
func (s State) AssignmentByID(id string) (Assignment, bool) {
	for _, a := range s.Assignments {
		if a.ID == id {
			return a, true
		}
	}
	return Assignment{}, false
}

// Valid reports whether s is a known status.
func (s StatusTag) Valid() bool {
	switch s {
	case StatusUrgent, StatusInProgress, StatusBlocked, StatusOnTrack, StatusCompleted:
		return true
	}
	return false
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool { return p.Rank() > 0 }

// Valid reports whether l is a known workload level.
func (l WorkloadLevel) Valid() bool {
	return l == WorkloadLight || l == WorkloadManageable || l == WorkloadOverloaded
}

// Valid reports whether c is a known changelog category.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeClass, ChangeAssignment, ChangeNote, ChangeGrade, ChangeTerm, ChangeSystem:
		return true
	}
	return false
}
