package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/observability"
	"github.com/pbaille/pulsetrack/internal/store"
)

var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, seed domain.State) (*store.Store, http.Handler) {
	t.Helper()
	reg := prometheus.NewRegistry()
	clock := func() time.Time { return testNow }
	st := store.New(nil, store.WithState(seed), store.WithClock(clock), store.WithMetrics(observability.NewMetrics(reg)))
	srv := New(st, ":0", WithGatherer(reg), WithClock(clock))
	return st, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func grade(v float64) *float64 { return &v }

func seedState() domain.State {
	return domain.State{
		Classes: []domain.ClassItem{{ID: "c1", Name: "Biology", Credits: 3}},
		Assignments: []domain.Assignment{
			{ID: "a1", ClassID: "c1", Title: "Lab report", DueDate: "2026-03-09", Weight: 50, Grade: grade(90), Status: domain.StatusOnTrack, Priority: domain.PriorityHigh},
			{ID: "a2", ClassID: "c1", Title: "Quiz", DueDate: "2026-03-12", Weight: 50, Grade: grade(70), Status: domain.StatusUrgent, Priority: domain.PriorityLow},
		},
	}
}

func TestHealthAndCORS(t *testing.T) {
	_, h := newTestServer(t, domain.State{})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, h, http.MethodOptions, "/assignments", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddAssignment(t *testing.T) {
	st, h := newTestServer(t, domain.State{})

	rec := do(t, h, http.MethodPost, "/assignments", `{"title":"Essay","classId":"c1","dueDate":"2026-03-20","weight":20}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[domain.Assignment](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.StatusOnTrack, created.Status)
	assert.Equal(t, domain.PriorityMedium, created.Priority)
	assert.Equal(t, testNow, created.CreatedAt)

	snap := st.Snapshot()
	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, "Created Essay", snap.Changelog[0].Message)
}

func TestAddAssignmentValidation(t *testing.T) {
	_, h := newTestServer(t, domain.State{})

	rec := do(t, h, http.MethodPost, "/assignments", `{"title":"","dueDate":"03/20/2026"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Contains(t, body["error"], "Title is required")
	assert.Contains(t, body["error"], "DueDate must be a YYYY-MM-DD date")

	rec = do(t, h, http.MethodPost, "/assignments", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUnknownAssignment(t *testing.T) {
	_, h := newTestServer(t, domain.State{})
	rec := do(t, h, http.MethodPut, "/assignments/nope", `{"title":"x","status":"On Track","priority":"Low"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompleteAssignment(t *testing.T) {
	st, h := newTestServer(t, seedState())

	rec := do(t, h, http.MethodPost, "/assignments/a2/complete", "")
	require.Equal(t, http.StatusOK, rec.Code)
	a, _ := st.Snapshot().AssignmentByID("a2")
	assert.Equal(t, domain.StatusCompleted, a.Status)
	assert.True(t, a.Completed)

	rec = do(t, h, http.MethodPost, "/assignments/a2/complete", `{"completed":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	a, _ = st.Snapshot().AssignmentByID("a2")
	assert.Equal(t, domain.StatusOnTrack, a.Status)

	rec = do(t, h, http.MethodPost, "/assignments/missing/complete", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAssignmentsFilters(t *testing.T) {
	_, h := newTestServer(t, seedState())

	rec := do(t, h, http.MethodGet, "/assignments?filter=overdue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Assignments []domain.Assignment `json:"assignments"`
	}](t, rec)
	require.Len(t, body.Assignments, 1)
	assert.Equal(t, "a1", body.Assignments[0].ID)

	rec = do(t, h, http.MethodGet, "/assignments?filter=sideways", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrades(t *testing.T) {
	st, h := newTestServer(t, seedState())
	_, err := st.ImportPresetScale("Standard A-F")
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/grades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[GradeReport](t, rec)
	require.Len(t, report.Classes, 1)
	assert.Equal(t, 80.0, report.Classes[0].WeightedAverage)
	assert.Equal(t, "B", report.Classes[0].Letter)
	assert.Equal(t, 3.0, report.GPA)
}

func TestCalendar(t *testing.T) {
	_, h := newTestServer(t, seedState())

	rec := do(t, h, http.MethodGet, "/calendar?month=2026-06", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cal := decode[CalendarResponse](t, rec)
	assert.Equal(t, 0, cal.Month.LeadingBlanks)
	assert.Len(t, cal.ByDate["2026-03-12"], 1)

	rec = do(t, h, http.MethodGet, "/calendar?month=June", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkload(t *testing.T) {
	_, h := newTestServer(t, domain.State{})

	rec := do(t, h, http.MethodPost, "/pulses", `{"level":"Overloaded"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pulse := decode[domain.WorkloadPulse](t, rec)
	assert.Equal(t, "2026-03-10", pulse.Date)

	rec = do(t, h, http.MethodPost, "/pulses", `{"level":"Exhausted"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/workload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[WorkloadResponse](t, rec)
	require.Len(t, resp.Buckets, 7)
	assert.Equal(t, 1, resp.Buckets[6].Overloaded)
	require.NotNil(t, resp.Peak)
	assert.Equal(t, "2026-03-10", resp.Peak.Period.Key)
}

func TestSearch(t *testing.T) {
	_, h := newTestServer(t, seedState())

	rec := do(t, h, http.MethodGet, "/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/search?q=BIO", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"Class"`)
}

func TestExport(t *testing.T) {
	_, h := newTestServer(t, seedState())

	rec := do(t, h, http.MethodGet, "/export?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Assignment,Class,Due Date"))

	rec = do(t, h, http.MethodGet, "/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotesAndClasses(t *testing.T) {
	st, h := newTestServer(t, domain.State{})

	rec := do(t, h, http.MethodPost, "/classes", `{"name":"Chemistry"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	class := decode[domain.ClassItem](t, rec)
	assert.Equal(t, 3, class.Credits)

	rec = do(t, h, http.MethodPost, "/notes", `{"title":"Ideas","content":"x"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	note := decode[domain.NoteItem](t, rec)

	rec = do(t, h, http.MethodDelete, "/notes/"+note.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, st.Snapshot().Notes)

	rec = do(t, h, http.MethodDelete, "/classes/"+class.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, st.Snapshot().Classes)
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := newTestServer(t, domain.State{})
	do(t, h, http.MethodPost, "/notes", `{"title":"Ideas"}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pulsetrack_store_mutations_total{op="add_note"} 1`)
}
