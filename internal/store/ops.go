package store

import (
	"context"
	"slices"

	"github.com/pbaille/pulsetrack/internal/domain"
)

func prepend[T any](items []T, item T) []T {
	return append([]T{item}, items...)
}

// replace swaps in item wherever idOf matches. Unknown IDs leave the slice
// unchanged.
func replace[T any](items []T, item T, idOf func(T) string) {
	id := idOf(item)
	for i := range items {
		if idOf(items[i]) == id {
			items[i] = item
		}
	}
}

func remove[T any](items []T, id string, idOf func(T) string) []T {
	return slices.DeleteFunc(slices.Clone(items), func(v T) bool { return idOf(v) == id })
}

func termID(t domain.Term) string            { return t.ID }
func classID(c domain.ClassItem) string       { return c.ID }
func assignmentID(a domain.Assignment) string { return a.ID }
func noteID(n domain.NoteItem) string         { return n.ID }
func scaleID(g domain.GradeScale) string      { return g.ID }
func pulseID(p domain.WorkloadPulse) string   { return p.ID }

// AddChangelog prepends an entry and persists it.
func (s *Store) AddChangelog(item domain.ChangelogItem) {
	s.apply("add_changelog", func(st *domain.State) {
		st.Changelog = prepend(st.Changelog, item)
	})
	s.persist("add_changelog", func(ctx context.Context, userID string) error {
		return s.backend.AppendChangelog(ctx, userID, item)
	})
}

func (s *Store) logChange(kind domain.ChangeType, message string) {
	s.AddChangelog(domain.ChangelogItem{
		ID:      domain.NewID(),
		Type:    kind,
		Message: message,
		At:      s.now(),
	})
}

// SetUser replaces the user profile.
func (s *Store) SetUser(user domain.UserProfile) {
	s.apply("set_user", func(st *domain.State) { st.User = user })
	s.persist("set_user", func(ctx context.Context, userID string) error {
		return s.backend.SaveProfile(ctx, userID, user)
	})
}

// AddTerm prepends a term. An active term deactivates every other term.
func (s *Store) AddTerm(term domain.Term) {
	s.apply("add_term", func(st *domain.State) {
		if term.Active {
			clearActiveTerms(st)
		}
		st.Terms = prepend(st.Terms, term)
	})
	s.logChange(domain.ChangeTerm, "Added term "+term.Name)
	s.persistTerm("add_term", term)
}

// UpdateTerm replaces a term by ID. It is not logged.
func (s *Store) UpdateTerm(term domain.Term) {
	s.apply("update_term", func(st *domain.State) {
		if term.Active {
			clearActiveTerms(st)
		}
		replace(st.Terms, term, termID)
	})
	s.persistTerm("update_term", term)
}

func clearActiveTerms(st *domain.State) {
	for i := range st.Terms {
		st.Terms[i].Active = false
	}
}

func (s *Store) persistTerm(op string, term domain.Term) {
	s.persist(op, func(ctx context.Context, userID string) error {
		if err := s.backend.SaveTerm(ctx, userID, term); err != nil {
			return err
		}
		if term.Active {
			return s.backend.SetActiveTerm(ctx, userID, term.ID)
		}
		return nil
	})
}

// SetActiveTerm makes id the only active term.
func (s *Store) SetActiveTerm(id string) error {
	s.mu.RLock()
	found := slices.ContainsFunc(s.state.Terms, func(t domain.Term) bool { return t.ID == id })
	s.mu.RUnlock()
	if !found {
		return ErrNotFound
	}

	s.apply("set_active_term", func(st *domain.State) {
		for i := range st.Terms {
			st.Terms[i].Active = st.Terms[i].ID == id
		}
	})
	s.persist("set_active_term", func(ctx context.Context, userID string) error {
		return s.backend.SetActiveTerm(ctx, userID, id)
	})
	return nil
}

// DeleteTerm removes a term.
func (s *Store) DeleteTerm(id string) {
	s.apply("delete_term", func(st *domain.State) { st.Terms = remove(st.Terms, id, termID) })
	s.persist("delete_term", func(ctx context.Context, userID string) error {
		return s.backend.DeleteTerm(ctx, userID, id)
	})
}

// AddClass prepends a class.
func (s *Store) AddClass(class domain.ClassItem) {
	s.apply("add_class", func(st *domain.State) { st.Classes = prepend(st.Classes, class) })
	s.logChange(domain.ChangeClass, "Created "+class.Name)
	s.persistClass("add_class", class)
}

// UpdateClass replaces a class by ID.
func (s *Store) UpdateClass(class domain.ClassItem) {
	s.apply("update_class", func(st *domain.State) { replace(st.Classes, class, classID) })
	s.logChange(domain.ChangeClass, "Updated "+class.Name)
	s.persistClass("update_class", class)
}

func (s *Store) persistClass(op string, class domain.ClassItem) {
	s.persist(op, func(ctx context.Context, userID string) error {
		return s.backend.SaveClass(ctx, userID, class)
	})
}

// DeleteClass removes a class. Its assignments are kept.
func (s *Store) DeleteClass(id string) {
	s.apply("delete_class", func(st *domain.State) { st.Classes = remove(st.Classes, id, classID) })
	s.persist("delete_class", func(ctx context.Context, userID string) error {
		return s.backend.DeleteClass(ctx, userID, id)
	})
}

// AddAssignment prepends an assignment, stamping missing timestamps.
func (s *Store) AddAssignment(a domain.Assignment) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	s.apply("add_assignment", func(st *domain.State) { st.Assignments = prepend(st.Assignments, a) })
	s.logChange(domain.ChangeAssignment, "Created "+a.Title)
	s.persistAssignment("add_assignment", a)
}

// UpdateAssignment replaces an assignment by ID exactly as given.
func (s *Store) UpdateAssignment(a domain.Assignment) {
	s.apply("update_assignment", func(st *domain.State) { replace(st.Assignments, a, assignmentID) })
	s.logChange(domain.ChangeAssignment, "Updated "+a.Title)
	s.persistAssignment("update_assignment", a)
}

func (s *Store) persistAssignment(op string, a domain.Assignment) {
	s.persist(op, func(ctx context.Context, userID string) error {
		return s.backend.SaveAssignment(ctx, userID, a)
	})
}

// DeleteAssignment removes an assignment.
func (s *Store) DeleteAssignment(id string) {
	s.apply("delete_assignment", func(st *domain.State) {
		st.Assignments = remove(st.Assignments, id, assignmentID)
	})
	s.persist("delete_assignment", func(ctx context.Context, userID string) error {
		return s.backend.DeleteAssignment(ctx, userID, id)
	})
}

// AddNote prepends a note, stamping missing timestamps.
func (s *Store) AddNote(note domain.NoteItem) {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = s.now()
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = note.CreatedAt
	}
	s.apply("add_note", func(st *domain.State) { st.Notes = prepend(st.Notes, note) })
	s.logChange(domain.ChangeNote, "Added note: "+note.Title)
	s.persistNote("add_note", note)
}

// UpdateNote replaces a note by ID.
func (s *Store) UpdateNote(note domain.NoteItem) {
	s.apply("update_note", func(st *domain.State) { replace(st.Notes, note, noteID) })
	s.logChange(domain.ChangeNote, "Updated note: "+note.Title)
	s.persistNote("update_note", note)
}

func (s *Store) persistNote(op string, note domain.NoteItem) {
	s.persist(op, func(ctx context.Context, userID string) error {
		return s.backend.SaveNote(ctx, userID, note)
	})
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(id string) {
	s.apply("delete_note", func(st *domain.State) { st.Notes = remove(st.Notes, id, noteID) })
	s.persist("delete_note", func(ctx context.Context, userID string) error {
		return s.backend.DeleteNote(ctx, userID, id)
	})
}

// AddGradeScale prepends a scale without activating it.
func (s *Store) AddGradeScale(scale domain.GradeScale) {
	var active bool
	s.apply("add_grade_scale", func(st *domain.State) {
		st.GradeScales = prepend(st.GradeScales, scale)
		active = st.ActiveGradeScaleID == scale.ID
	})
	s.logChange(domain.ChangeGrade, "Added grade scale "+scale.Name)
	s.persistScale("add_grade_scale", scale, active)
}

// UpdateGradeScale replaces a scale by ID, keeping its active flag.
func (s *Store) UpdateGradeScale(scale domain.GradeScale) {
	var active bool
	s.apply("update_grade_scale", func(st *domain.State) {
		replace(st.GradeScales, scale, scaleID)
		active = st.ActiveGradeScaleID == scale.ID
	})
	s.logChange(domain.ChangeGrade, "Updated grade scale "+scale.Name)
	s.persistScale("update_grade_scale", scale, active)
}

func (s *Store) persistScale(op string, scale domain.GradeScale, active bool) {
	s.persist(op, func(ctx context.Context, userID string) error {
		return s.backend.SaveGradeScale(ctx, userID, scale, active)
	})
}

// SetActiveGradeScale points the active scale at id.
func (s *Store) SetActiveGradeScale(id string) {
	s.apply("set_active_grade_scale", func(st *domain.State) { st.ActiveGradeScaleID = id })
	s.persist("set_active_grade_scale", func(ctx context.Context, userID string) error {
		return s.backend.SetActiveGradeScale(ctx, userID, id)
	})
}

// DeleteGradeScale removes a scale, clearing the active pointer if it
// referred to it.
func (s *Store) DeleteGradeScale(id string) {
	s.apply("delete_grade_scale", func(st *domain.State) {
		st.GradeScales = remove(st.GradeScales, id, scaleID)
		if st.ActiveGradeScaleID == id {
			st.ActiveGradeScaleID = ""
		}
	})
	s.persist("delete_grade_scale", func(ctx context.Context, userID string) error {
		return s.backend.DeleteGradeScale(ctx, userID, id)
	})
}

// SetWeightCategories replaces the weight category list.
func (s *Store) SetWeightCategories(categories []domain.WeightCategory) {
	categories = slices.Clone(categories)
	s.apply("set_weight_categories", func(st *domain.State) { st.WeightCategories = categories })
	s.persist("set_weight_categories", func(ctx context.Context, userID string) error {
		return s.backend.SaveWeightCategories(ctx, userID, categories)
	})
}

// AddWorkloadPulse prepends a workload check-in. It is not logged.
func (s *Store) AddWorkloadPulse(p domain.WorkloadPulse) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.apply("add_workload_pulse", func(st *domain.State) { st.WorkloadPulses = prepend(st.WorkloadPulses, p) })
	s.persist("add_workload_pulse", func(ctx context.Context, userID string) error {
		return s.backend.SaveWorkloadPulse(ctx, userID, p)
	})
}

// DeleteWorkloadPulse removes a workload check-in.
func (s *Store) DeleteWorkloadPulse(id string) {
	s.apply("delete_workload_pulse", func(st *domain.State) {
		st.WorkloadPulses = remove(st.WorkloadPulses, id, pulseID)
	})
	s.persist("delete_workload_pulse", func(ctx context.Context, userID string) error {
		return s.backend.DeleteWorkloadPulse(ctx, userID, id)
	})
}

// AddBadge awards a badge. Badges live only in memory.
func (s *Store) AddBadge(label string) domain.Badge {
	badge := domain.Badge{ID: domain.NewID(), Label: label, EarnedAt: s.now()}
	s.apply("add_badge", func(st *domain.State) { st.Badges = prepend(st.Badges, badge) })
	return badge
}
