package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/pbaille/pulsetrack/internal/domain"
)

// Class colors handed out in rotation by SetupSemester.
var ClassPalette = []string{"#38bdf8", "#f59e0b", "#a78bfa", "#22c55e"}

// DefaultReminderOffsets are the reminder lead times, in minutes, given to
// imported assignments.
var DefaultReminderOffsets = []int{2880, 1440}

func (s *Store) assignment(id string) (domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.AssignmentByID(id)
	if !ok {
		return domain.Assignment{}, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	return a, nil
}

func (s *Store) class(id string) (domain.ClassItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.ClassByID(id)
	if !ok {
		return domain.ClassItem{}, fmt.Errorf("class %s: %w", id, ErrNotFound)
	}
	return c, nil
}

// SetAssignmentCompleted toggles completion, moving status to Completed or
// back to On Track.
func (s *Store) SetAssignmentCompleted(id string, completed bool) (domain.Assignment, error) {
	a, err := s.assignment(id)
	if err != nil {
		return a, err
	}
	a.Completed = completed
	a.Status = domain.StatusOnTrack
	if completed {
		a.Status = domain.StatusCompleted
	}
	a.UpdatedAt = s.now()
	s.UpdateAssignment(a)
	return a, nil
}

// RescheduleAssignment moves an assignment to a new due date.
func (s *Store) RescheduleAssignment(id, date string) (domain.Assignment, error) {
	a, err := s.assignment(id)
	if err != nil {
		return a, err
	}
	a.DueDate = date
	a.UpdatedAt = s.now()
	s.UpdateAssignment(a)
	return a, nil
}

// LogStudyTime appends a study session to an assignment.
func (s *Store) LogStudyTime(id string, minutes int, date string) (domain.Assignment, error) {
	a, err := s.assignment(id)
	if err != nil {
		return a, err
	}
	a.StudyLogs = append(slices.Clone(a.StudyLogs), domain.StudyLog{ID: domain.NewID(), Minutes: minutes, Date: date})
	a.UpdatedAt = s.now()
	s.UpdateAssignment(a)
	return a, nil
}

// AddSubtask appends a checklist item to an assignment.
func (s *Store) AddSubtask(id, title string) (domain.Assignment, error) {
	a, err := s.assignment(id)
	if err != nil {
		return a, err
	}
	a.Subtasks = append(slices.Clone(a.Subtasks), domain.Subtask{ID: domain.NewID(), Title: title})
	a.UpdatedAt = s.now()
	s.UpdateAssignment(a)
	return a, nil
}

// ToggleSubtask flips a subtask's completed flag.
func (s *Store) ToggleSubtask(id, subtaskID string) (domain.Assignment, error) {
	a, err := s.assignment(id)
	if err != nil {
		return a, err
	}
	i := slices.IndexFunc(a.Subtasks, func(t domain.Subtask) bool { return t.ID == subtaskID })
	if i < 0 {
		return a, fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
	}
	a.Subtasks = slices.Clone(a.Subtasks)
	a.Subtasks[i].Completed = !a.Subtasks[i].Completed
	a.UpdatedAt = s.now()
	s.UpdateAssignment(a)
	return a, nil
}

// UpdateGradeScaleRange edits the bounds of the range at index, keeping
// range order.
func (s *Store) UpdateGradeScaleRange(id string, index int, min, max float64) (domain.GradeScale, error) {
	s.mu.RLock()
	i := slices.IndexFunc(s.state.GradeScales, func(g domain.GradeScale) bool { return g.ID == id })
	var scale domain.GradeScale
	if i >= 0 {
		scale = s.state.GradeScales[i]
	}
	s.mu.RUnlock()
	if i < 0 {
		return scale, fmt.Errorf("grade scale %s: %w", id, ErrNotFound)
	}
	if index < 0 || index >= len(scale.Ranges) {
		return scale, fmt.Errorf("range %d of %s: %w", index, scale.Name, ErrNotFound)
	}

	scale.Ranges = slices.Clone(scale.Ranges)
	scale.Ranges[index].Min = min
	scale.Ranges[index].Max = max
	s.UpdateGradeScale(scale)
	return scale, nil
}

// ImportPresetScale adds an independent copy of a preset and activates it.
func (s *Store) ImportPresetScale(key string) (domain.GradeScale, error) {
	preset, ok := domain.FindPreset(key)
	if !ok {
		return domain.GradeScale{}, fmt.Errorf("preset %q: %w", key, ErrNotFound)
	}
	scale := domain.CloneScale(preset)

	s.apply("import_preset_scale", func(st *domain.State) {
		st.GradeScales = prepend(st.GradeScales, scale)
		st.ActiveGradeScaleID = scale.ID
	})
	s.logChange(domain.ChangeGrade, "Added grade scale "+scale.Name)
	s.persist("import_preset_scale", func(ctx context.Context, userID string) error {
		if err := s.backend.SaveGradeScale(ctx, userID, scale, true); err != nil {
			return err
		}
		return s.backend.SetActiveGradeScale(ctx, userID, scale.ID)
	})
	return scale, nil
}

// SemesterSetup describes a new term and the classes taken in it
type SemesterSetup struct {
	TermName   string
	StartDate  string
	EndDate    string
	Categories []domain.WeightCategory
	Classes    []string
}

// SetupSemester adds an active term, replaces the weight categories and
// bulk-adds classes with rotating palette colors and 3 credits.
func (s *Store) SetupSemester(setup SemesterSetup) (domain.Term, []domain.ClassItem) {
	term := domain.Term{
		ID:        domain.NewID(),
		Name:      setup.TermName,
		StartDate: setup.StartDate,
		EndDate:   setup.EndDate,
		Active:    true,
	}
	s.AddTerm(term)
	s.SetWeightCategories(setup.Categories)

	classes := make([]domain.ClassItem, 0, len(setup.Classes))
	for i, name := range setup.Classes {
		class := domain.ClassItem{
			ID:              domain.NewID(),
			Name:            name,
			Color:           ClassPalette[i%len(ClassPalette)],
			Credits:         3,
			TermID:          term.ID,
			Resources:       []domain.ResourceLink{},
			SyllabusUploads: []domain.SyllabusUpload{},
		}
		s.AddClass(class)
		classes = append(classes, class)
	}
	return term, classes
}

// AddResource appends a link to a class.
func (s *Store) AddResource(classID string, link domain.ResourceLink) (domain.ClassItem, error) {
	c, err := s.class(classID)
	if err != nil {
		return c, err
	}
	if link.ID == "" {
		link.ID = domain.NewID()
	}
	c.Resources = append(slices.Clone(c.Resources), link)
	s.UpdateClass(c)
	return c, nil
}

// AddSyllabusUpload records an upload and its extracted items on a class,
// newest first.
func (s *Store) AddSyllabusUpload(classID string, upload domain.SyllabusUpload) (domain.ClassItem, error) {
	c, err := s.class(classID)
	if err != nil {
		return c, err
	}
	c.SyllabusUploads = prepend(c.SyllabusUploads, upload)
	s.UpdateClass(c)
	return c, nil
}

// ImportExtractedAssignments creates an assignment for every assignment or
// exam item extracted from the class's uploads. Calling it twice imports
// twice.
func (s *Store) ImportExtractedAssignments(classID string) ([]domain.Assignment, error) {
	c, err := s.class(classID)
	if err != nil {
		return nil, err
	}

	var created []domain.Assignment
	for _, upload := range c.SyllabusUploads {
		for _, item := range upload.ExtractedItems {
			if item.Type != domain.ExtractedAssignment && item.Type != domain.ExtractedExam {
				continue
			}
			a := domain.Assignment{
				ID:              domain.NewID(),
				ClassID:         c.ID,
				Title:           item.Title,
				Description:     "Imported from " + upload.FileName,
				DueDate:         item.Date,
				DueTime:         item.Time,
				Category:        "Homework",
				Status:          domain.StatusOnTrack,
				Priority:        domain.PriorityMedium,
				Tags:            []string{"Imported"},
				ReminderOffsets: slices.Clone(DefaultReminderOffsets),
				Weight:          10,
				Subtasks:        []domain.Subtask{},
				StudyLogs:       []domain.StudyLog{},
				CreatedAt:       s.now(),
			}
			a.UpdatedAt = a.CreatedAt
			if a.DueTime == "" {
				a.DueTime = "23:59"
			}
			if item.Type == domain.ExtractedExam {
				a.Category = "Exam"
				a.Weight = 30
			}
			s.AddAssignment(a)
			created = append(created, a)
		}
	}
	return created, nil
}
