package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/observability"
	"github.com/pbaille/pulsetrack/internal/remote"
)

// fakeBackend records calls and keeps the last saved copy of each record
type fakeBackend struct {
	mu          sync.Mutex
	session     *remote.Session
	fail        error
	calls       []string
	assignments map[string]domain.Assignment
	scales      map[string]bool
	changelog   []domain.ChangelogItem
	load        func(ctx context.Context) (domain.State, error)
	listeners   []func(*remote.Session)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		session:     &remote.Session{UserID: "u1"},
		assignments: map[string]domain.Assignment{},
		scales:      map[string]bool{},
	}
}

func (f *fakeBackend) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.fail
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Session(context.Context) (*remote.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeBackend) OnAuthStateChange(fn func(*remote.Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
	return func() {}
}

func (f *fakeBackend) fireAuth(sess *remote.Session) {
	f.mu.Lock()
	f.session = sess
	fns := slices.Clone(f.listeners)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(sess)
	}
}

func (f *fakeBackend) LoadSnapshot(ctx context.Context, _ *remote.Session) (domain.State, error) {
	return f.load(ctx)
}

func (f *fakeBackend) SaveProfile(context.Context, string, domain.UserProfile) error {
	return f.record("SaveProfile")
}
func (f *fakeBackend) SaveTerm(_ context.Context, _ string, t domain.Term) error {
	return f.record("SaveTerm " + t.ID)
}
func (f *fakeBackend) DeleteTerm(_ context.Context, _, id string) error {
	return f.record("DeleteTerm " + id)
}
func (f *fakeBackend) SetActiveTerm(_ context.Context, _, id string) error {
	return f.record("SetActiveTerm " + id)
}
func (f *fakeBackend) SaveClass(_ context.Context, _ string, c domain.ClassItem) error {
	return f.record("SaveClass " + c.ID)
}
func (f *fakeBackend) DeleteClass(_ context.Context, _, id string) error {
	return f.record("DeleteClass " + id)
}
func (f *fakeBackend) SaveAssignment(_ context.Context, _ string, a domain.Assignment) error {
	if err := f.record("SaveAssignment " + a.ID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments[a.ID] = a
	return nil
}
func (f *fakeBackend) DeleteAssignment(_ context.Context, _, id string) error {
	return f.record("DeleteAssignment " + id)
}
func (f *fakeBackend) SaveNote(_ context.Context, _ string, n domain.NoteItem) error {
	return f.record("SaveNote " + n.ID)
}
func (f *fakeBackend) DeleteNote(_ context.Context, _, id string) error {
	return f.record("DeleteNote " + id)
}
func (f *fakeBackend) SaveGradeScale(_ context.Context, _ string, g domain.GradeScale, active bool) error {
	if err := f.record("SaveGradeScale " + g.ID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scales[g.ID] = active
	return nil
}
func (f *fakeBackend) DeleteGradeScale(_ context.Context, _, id string) error {
	return f.record("DeleteGradeScale " + id)
}
func (f *fakeBackend) SetActiveGradeScale(_ context.Context, _, id string) error {
	if err := f.record("SetActiveGradeScale " + id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.scales {
		f.scales[k] = k == id
	}
	return nil
}
func (f *fakeBackend) SaveWeightCategories(context.Context, string, []domain.WeightCategory) error {
	return f.record("SaveWeightCategories")
}
func (f *fakeBackend) AppendChangelog(_ context.Context, _ string, item domain.ChangelogItem) error {
	if err := f.record("AppendChangelog"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changelog = append(f.changelog, item)
	return nil
}
func (f *fakeBackend) SaveWorkloadPulse(_ context.Context, _ string, p domain.WorkloadPulse) error {
	return f.record("SaveWorkloadPulse " + p.ID)
}
func (f *fakeBackend) DeleteWorkloadPulse(_ context.Context, _, id string) error {
	return f.record("DeleteWorkloadPulse " + id)
}

var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, backend Backend, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s := New(backend, opts...)
	t.Cleanup(s.Wait)
	return s
}

func messages(st domain.State) []string {
	var out []string
	for _, c := range st.Changelog {
		out = append(out, c.Message)
	}
	return out
}

func TestUpdateAssignmentTwiceIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	a := domain.Assignment{ID: "a1", ClassID: "c1", Title: "Lab", Weight: 10, Status: domain.StatusOnTrack, Priority: domain.PriorityMedium}
	s := newTestStore(t, backend, WithState(domain.State{Assignments: []domain.Assignment{a}}))

	a.Title = "Lab report"
	s.UpdateAssignment(a)
	s.Wait()
	first := backend.assignments["a1"]

	s.UpdateAssignment(a)
	s.Wait()

	snap := s.Snapshot()
	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, a, snap.Assignments[0])
	assert.Equal(t, []string{"Updated Lab report", "Updated Lab report"}, messages(snap))
	assert.Len(t, backend.assignments, 1)
	assert.Equal(t, first, backend.assignments["a1"])
	assert.Len(t, backend.changelog, 2)
}

func TestMutationsApplySynchronouslyAndNotify(t *testing.T) {
	s := newTestStore(t, nil)

	var seen []int
	unsubscribe := s.Subscribe(func(st domain.State) { seen = append(seen, len(st.Classes)) })

	s.AddClass(domain.ClassItem{ID: "c1", Name: "Biology"})
	assert.Len(t, s.Snapshot().Classes, 1, "visible before any persistence")

	unsubscribe()
	s.AddClass(domain.ClassItem{ID: "c2", Name: "Chemistry"})

	// the class mutation and its changelog entry each notify
	assert.Equal(t, []int{1, 1}, seen)
	assert.Equal(t, "c2", s.Snapshot().Classes[0].ID, "creates prepend")
}

func TestChangelogCoverage(t *testing.T) {
	s := newTestStore(t, nil)

	s.AddClass(domain.ClassItem{ID: "c1", Name: "Biology"})
	s.UpdateClass(domain.ClassItem{ID: "c1", Name: "Biology II"})
	s.AddAssignment(domain.Assignment{ID: "a1", Title: "Lab"})
	s.UpdateAssignment(domain.Assignment{ID: "a1", Title: "Lab 2"})
	s.AddNote(domain.NoteItem{ID: "n1", Title: "Ideas"})
	s.UpdateNote(domain.NoteItem{ID: "n1", Title: "Ideas 2"})
	s.AddGradeScale(domain.GradeScale{ID: "g1", Name: "Mine"})
	s.UpdateGradeScale(domain.GradeScale{ID: "g1", Name: "Mine 2"})
	s.AddTerm(domain.Term{ID: "t1", Name: "Spring"})
	s.UpdateTerm(domain.Term{ID: "t1", Name: "Spring 2"})

	// silent operations
	s.DeleteClass("c1")
	s.DeleteAssignment("a1")
	s.DeleteNote("n1")
	s.DeleteGradeScale("g1")
	s.DeleteTerm("t1")
	s.AddWorkloadPulse(domain.WorkloadPulse{ID: "p1", Level: domain.WorkloadLight, Date: "2026-03-10"})
	s.AddBadge("First week")
	s.SetActiveGradeScale("g1")
	s.SetWeightCategories([]domain.WeightCategory{{ID: "w1", Label: "Exam", Weight: 40}})
	s.SetUser(domain.UserProfile{Name: "Ada"})

	assert.Equal(t, []string{
		"Added term Spring",
		"Updated grade scale Mine 2",
		"Added grade scale Mine",
		"Updated note: Ideas 2",
		"Added note: Ideas",
		"Updated Lab 2",
		"Created Lab",
		"Updated Biology II",
		"Created Biology",
	}, messages(s.Snapshot()))

	snap := s.Snapshot()
	assert.Equal(t, fixedNow, snap.Changelog[0].At)
	assert.Equal(t, domain.ChangeTerm, snap.Changelog[0].Type)
	assert.Len(t, snap.Badges, 1)
	assert.Len(t, snap.WorkloadPulses, 1)
}

func TestPersistenceFailureKeepsLocalChange(t *testing.T) {
	backend := newFakeBackend()
	backend.fail = errors.New("network down")
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	s := newTestStore(t, backend, WithMetrics(metrics))

	s.AddNote(domain.NoteItem{ID: "n1", Title: "Ideas"})
	s.Wait()

	assert.Len(t, s.Snapshot().Notes, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PersistOps.WithLabelValues("add_note", observability.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PersistOps.WithLabelValues("add_changelog", observability.ResultError)))
}

func TestPersistenceSkippedWithoutSession(t *testing.T) {
	backend := newFakeBackend()
	backend.session = nil
	s := newTestStore(t, backend)

	s.AddWorkloadPulse(domain.WorkloadPulse{ID: "p1", Level: domain.WorkloadOverloaded, Date: "2026-03-10"})
	s.Wait()

	assert.Empty(t, backend.Calls())
	require.Len(t, s.Snapshot().WorkloadPulses, 1)
	assert.Equal(t, fixedNow, s.Snapshot().WorkloadPulses[0].CreatedAt)
}

func TestActiveTermIsExclusive(t *testing.T) {
	backend := newFakeBackend()
	s := newTestStore(t, backend)

	s.AddTerm(domain.Term{ID: "t1", Name: "Fall", Active: true})
	s.AddTerm(domain.Term{ID: "t2", Name: "Spring", Active: true})
	s.Wait()

	snap := s.Snapshot()
	assert.False(t, snap.Terms[1].Active)
	assert.True(t, snap.Terms[0].Active)
	assert.Contains(t, backend.Calls(), "SetActiveTerm t2")

	require.NoError(t, s.SetActiveTerm("t1"))
	active, ok := s.Snapshot().ActiveTerm()
	require.True(t, ok)
	assert.Equal(t, "t1", active.ID)

	assert.ErrorIs(t, s.SetActiveTerm("missing"), ErrNotFound)
}

func TestImportPresetScale(t *testing.T) {
	backend := newFakeBackend()
	s := newTestStore(t, backend)

	scale, err := s.ImportPresetScale("Plus/Minus")
	require.NoError(t, err)
	s.Wait()

	snap := s.Snapshot()
	assert.Equal(t, scale.ID, snap.ActiveGradeScaleID)
	assert.NotEqual(t, "scale-plus", scale.ID)
	assert.Equal(t, []string{"Added grade scale Plus/Minus"}, messages(snap))
	assert.True(t, backend.scales[scale.ID])

	_, err = s.UpdateGradeScaleRange(scale.ID, 1, 89, 92)
	require.NoError(t, err)
	preset, _ := domain.FindPreset("Plus/Minus")
	assert.Equal(t, 90.0, preset.Ranges[1].Min, "presets are never mutated")

	updated, _ := s.Snapshot().ActiveGradeScale()
	assert.Equal(t, "A-", updated.Ranges[1].Label)
	assert.Equal(t, 89.0, updated.Ranges[1].Min)

	_, err = s.UpdateGradeScaleRange(scale.ID, 42, 0, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ImportPresetScale("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteActiveScaleClearsPointer(t *testing.T) {
	s := newTestStore(t, nil)
	scale, err := s.ImportPresetScale("scale-standard")
	require.NoError(t, err)

	s.DeleteGradeScale(scale.ID)
	assert.Empty(t, s.Snapshot().ActiveGradeScaleID)
}

func TestAssignmentHelpers(t *testing.T) {
	s := newTestStore(t, nil, WithState(domain.State{Assignments: []domain.Assignment{
		{ID: "a1", Title: "Essay", Status: domain.StatusUrgent, Subtasks: []domain.Subtask{{ID: "st1", Title: "Outline"}}},
	}}))

	a, err := s.SetAssignmentCompleted("a1", true)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, a.Status)
	assert.Equal(t, fixedNow, a.UpdatedAt)

	a, err = s.SetAssignmentCompleted("a1", false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnTrack, a.Status)

	a, err = s.RescheduleAssignment("a1", "2026-04-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-04-01", a.DueDate)

	a, err = s.LogStudyTime("a1", 45, "2026-03-10")
	require.NoError(t, err)
	require.Len(t, a.StudyLogs, 1)
	assert.Equal(t, 45, a.StudyLogs[0].Minutes)

	before := s.Snapshot()
	a, err = s.ToggleSubtask("a1", "st1")
	require.NoError(t, err)
	assert.True(t, a.Subtasks[0].Completed)
	assert.False(t, before.Assignments[0].Subtasks[0].Completed, "earlier snapshots are not mutated")

	a, err = s.AddSubtask("a1", "Draft")
	require.NoError(t, err)
	assert.Len(t, a.Subtasks, 2)

	_, err = s.ToggleSubtask("a1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.RescheduleAssignment("missing", "2026-04-01")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, "2026-04-01", s.Snapshot().Assignments[0].DueDate)
}

func TestSetupSemester(t *testing.T) {
	s := newTestStore(t, nil)

	term, classes := s.SetupSemester(SemesterSetup{
		TermName:   "Spring 2026",
		StartDate:  "2026-01-12",
		EndDate:    "2026-05-08",
		Categories: []domain.WeightCategory{{ID: "w1", Label: "Exams", Weight: 40}},
		Classes:    []string{"Biology", "Chemistry", "Calculus", "History", "Art"},
	})

	require.Len(t, classes, 5)
	assert.Equal(t, "#38bdf8", classes[0].Color)
	assert.Equal(t, "#22c55e", classes[3].Color)
	assert.Equal(t, "#38bdf8", classes[4].Color)
	for _, c := range classes {
		assert.Equal(t, 3, c.Credits)
		assert.Equal(t, term.ID, c.TermID)
	}

	snap := s.Snapshot()
	active, ok := snap.ActiveTerm()
	require.True(t, ok)
	assert.Equal(t, "Spring 2026", active.Name)
	assert.Len(t, snap.WeightCategories, 1)
}

func TestImportExtractedAssignments(t *testing.T) {
	s := newTestStore(t, nil, WithState(domain.State{Classes: []domain.ClassItem{{ID: "c1", Name: "Biology"}}}))

	_, err := s.AddSyllabusUpload("c1", domain.SyllabusUpload{
		ID:       "s1",
		FileName: "bio.pdf",
		ExtractedItems: []domain.ExtractedItem{
			{ID: "i1", Type: domain.ExtractedAssignment, Title: "Reading Response", Date: "2026-02-20", Time: "18:00"},
			{ID: "i2", Type: domain.ExtractedExam, Title: "Unit Exam", Date: "2026-03-08", Ambiguous: true},
			{ID: "i3", Type: domain.ExtractedOfficeHours, Title: "Office Hours", Date: "2026-02-13", Time: "14:00"},
		},
	})
	require.NoError(t, err)

	created, err := s.ImportExtractedAssignments("c1")
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.Equal(t, "Homework", created[0].Category)
	assert.Equal(t, 10.0, created[0].Weight)
	assert.Equal(t, "18:00", created[0].DueTime)
	assert.Equal(t, "Exam", created[1].Category)
	assert.Equal(t, 30.0, created[1].Weight)
	assert.Equal(t, "23:59", created[1].DueTime)
	assert.Equal(t, "Imported from bio.pdf", created[1].Description)
	assert.Equal(t, []string{"Imported"}, created[1].Tags)
	assert.Equal(t, []int{2880, 1440}, created[1].ReminderOffsets)

	assert.Len(t, s.Snapshot().Assignments, 2)

	_, err = s.ImportExtractedAssignments("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddResource(t *testing.T) {
	s := newTestStore(t, nil, WithState(domain.State{Classes: []domain.ClassItem{{ID: "c1", Name: "Biology"}}}))

	c, err := s.AddResource("c1", domain.ResourceLink{Label: "Portal", URL: "https://example.edu"})
	require.NoError(t, err)
	require.Len(t, c.Resources, 1)
	assert.NotEmpty(t, c.Resources[0].ID)
	assert.Equal(t, []string{"Updated Biology"}, messages(s.Snapshot()))
}

func TestHydrateReplacesCollections(t *testing.T) {
	backend := newFakeBackend()
	backend.load = func(context.Context) (domain.State, error) {
		return domain.State{
			User:               domain.UserProfile{ID: "u1", Name: "Ada"},
			Notes:              []domain.NoteItem{{ID: "remote-note"}},
			ActiveGradeScaleID: "",
		}, nil
	}
	s := newTestStore(t, backend, WithState(domain.State{
		Notes:              []domain.NoteItem{{ID: "local-note"}},
		Classes:            []domain.ClassItem{{ID: "local-class"}},
		Badges:             []domain.Badge{{ID: "b1"}},
		ActiveGradeScaleID: "g1",
	}))

	require.NoError(t, s.Hydrate(context.Background()))

	snap := s.Snapshot()
	require.Len(t, snap.Notes, 1)
	assert.Equal(t, "remote-note", snap.Notes[0].ID)
	assert.Empty(t, snap.Classes)
	assert.Len(t, snap.Badges, 1, "badges are local only")
	assert.Equal(t, "g1", snap.ActiveGradeScaleID)
	assert.Equal(t, "Ada", snap.User.Name)
}

func TestHydrateWithoutSessionOrBackend(t *testing.T) {
	seed := domain.State{Notes: []domain.NoteItem{{ID: "n1"}}}

	s := newTestStore(t, nil, WithState(seed))
	require.NoError(t, s.Hydrate(context.Background()))
	assert.Len(t, s.Snapshot().Notes, 1)

	backend := newFakeBackend()
	backend.session = nil
	backend.load = func(context.Context) (domain.State, error) {
		t.Fatal("must not load without a session")
		return domain.State{}, nil
	}
	s = newTestStore(t, backend, WithState(seed))
	require.NoError(t, s.Hydrate(context.Background()))
	assert.Len(t, s.Snapshot().Notes, 1)
}

func TestHydrateErrorLeavesState(t *testing.T) {
	backend := newFakeBackend()
	backend.load = func(context.Context) (domain.State, error) {
		return domain.State{}, errors.New("timeout")
	}
	s := newTestStore(t, backend, WithState(domain.State{Notes: []domain.NoteItem{{ID: "n1"}}}))

	assert.ErrorContains(t, s.Hydrate(context.Background()), "timeout")
	assert.Len(t, s.Snapshot().Notes, 1)
}

func TestStaleHydrationIsDiscarded(t *testing.T) {
	backend := newFakeBackend()
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int
	var mu sync.Mutex
	backend.load = func(context.Context) (domain.State, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
			return domain.State{Notes: []domain.NoteItem{{ID: "old"}}}, nil
		}
		return domain.State{Notes: []domain.NoteItem{{ID: "new"}}}, nil
	}
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	s := newTestStore(t, backend, WithMetrics(metrics))

	done := make(chan error)
	go func() { done <- s.Hydrate(context.Background()) }()
	<-started

	require.NoError(t, s.Hydrate(context.Background()))
	close(release)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	require.Len(t, snap.Notes, 1)
	assert.Equal(t, "new", snap.Notes[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Hydrations.WithLabelValues(observability.ResultStale)))
}

func TestStartRehydratesOnAuthChange(t *testing.T) {
	backend := newFakeBackend()
	backend.session = nil
	backend.load = func(context.Context) (domain.State, error) {
		return domain.State{User: domain.UserProfile{ID: "u2", Name: "Grace"}}, nil
	}
	s := newTestStore(t, backend)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Empty(t, s.Snapshot().User.ID)

	backend.fireAuth(&remote.Session{UserID: "u2"})
	s.Wait()
	assert.Equal(t, "Grace", s.Snapshot().User.Name)
}

func TestAuthChangesWhileWaiting(t *testing.T) {
	backend := newFakeBackend()
	var loads atomic.Int32
	backend.load = func(context.Context) (domain.State, error) {
		loads.Add(1)
		return domain.State{User: domain.UserProfile{ID: "u1", Name: "Ada"}}, nil
	}
	s := newTestStore(t, backend)
	require.NoError(t, s.Start(context.Background()))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			backend.fireAuth(&remote.Session{UserID: "u1"})
		}()
		go func() {
			defer wg.Done()
			s.Wait()
		}()
	}
	wg.Wait()
	s.Wait()
	assert.Equal(t, int32(21), loads.Load())

	s.Stop()
	backend.fireAuth(&remote.Session{UserID: "u1"})
	s.Wait()
	assert.Equal(t, int32(21), loads.Load(), "auth changes after Stop do not rehydrate")
}
