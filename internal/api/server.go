package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/export"
	"github.com/pbaille/pulsetrack/internal/helper"
	"github.com/pbaille/pulsetrack/internal/insights"
	"github.com/pbaille/pulsetrack/internal/store"
)

// Server handles HTTP requests for the planner API
type Server struct {
	store    *store.Store
	addr     string
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithGatherer exposes metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces time.Now for "today" computations.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a new API server
func New(s *store.Store, addr string, opts ...Option) *Server {
	srv := &Server{store: s, addr: addr, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Snapshot and derived views
	mux.HandleFunc("GET /state", s.getState)
	mux.HandleFunc("GET /dashboard", s.getDashboard)
	mux.HandleFunc("GET /grades", s.getGrades)
	mux.HandleFunc("GET /calendar", s.getCalendar)
	mux.HandleFunc("GET /workload", s.getWorkload)
	mux.HandleFunc("GET /search", s.search)
	mux.HandleFunc("GET /changelog", s.getChangelog)
	mux.HandleFunc("GET /export", s.exportState)

	// Assignments
	mux.HandleFunc("GET /assignments", s.listAssignments)
	mux.HandleFunc("POST /assignments", s.addAssignment)
	mux.HandleFunc("PUT /assignments/{id}", s.updateAssignment)
	mux.HandleFunc("DELETE /assignments/{id}", s.deleteAssignment)
	mux.HandleFunc("POST /assignments/{id}/complete", s.completeAssignment)

	// Classes
	mux.HandleFunc("GET /classes", s.listClasses)
	mux.HandleFunc("POST /classes", s.addClass)
	mux.HandleFunc("PUT /classes/{id}", s.updateClass)
	mux.HandleFunc("DELETE /classes/{id}", s.deleteClass)

	// Notes
	mux.HandleFunc("GET /notes", s.listNotes)
	mux.HandleFunc("POST /notes", s.addNote)
	mux.HandleFunc("DELETE /notes/{id}", s.deleteNote)

	// Workload check-ins
	mux.HandleFunc("POST /pulses", s.addPulse)

	mux.HandleFunc("GET /health", s.health)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return withCORS(mux)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) today() string {
	return helper.Today(s.now())
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insights.BuildDashboard(s.store.Snapshot(), s.now()))
}

// GradeReport is the response for GET /grades
type GradeReport struct {
	Classes []ClassGradeView `json:"classes"`
	GPA     float64          `json:"gpa"`
}

// ClassGradeView is one class's average and, with an active scale, its letter
type ClassGradeView struct {
	ClassID         string  `json:"classId"`
	ClassName       string  `json:"className"`
	WeightedAverage float64 `json:"weightedAverage"`
	Points          float64 `json:"points"`
	Letter          string  `json:"letter,omitempty"`
}

func (s *Server) getGrades(w http.ResponseWriter, r *http.Request) {
	st := s.store.Snapshot()
	grades := insights.ClassGrades(st.Classes, st.Assignments)
	scale, hasScale := st.ActiveGradeScale()

	report := GradeReport{Classes: make([]ClassGradeView, 0, len(grades)), GPA: insights.OverallGPA(grades)}
	for _, g := range grades {
		view := ClassGradeView{
			ClassID:         g.Class.ID,
			ClassName:       g.Class.Name,
			WeightedAverage: helper.Round(g.WeightedAverage, 1),
			Points:          g.Points,
		}
		if hasScale {
			view.Letter, _ = insights.LetterFor(scale, g.WeightedAverage)
		}
		report.Classes = append(report.Classes, view)
	}
	writeJSON(w, http.StatusOK, report)
}

// CalendarResponse is the response for GET /calendar
type CalendarResponse struct {
	Month     insights.MonthView             `json:"month"`
	ByDate    map[string][]domain.Assignment `json:"byDate"`
	Conflicts []insights.Conflict            `json:"conflicts"`
}

func (s *Server) getCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	year, month := now.Year(), now.Month()
	if m := r.URL.Query().Get("month"); m != "" {
		t, err := time.ParseInLocation("2006-01", m, now.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		year, month = t.Year(), t.Month()
	}

	st := s.store.Snapshot()
	writeJSON(w, http.StatusOK, CalendarResponse{
		Month:     insights.MonthGrid(year, month, now.Location()),
		ByDate:    insights.ByDate(st.Assignments),
		Conflicts: insights.Conflicts(st.Assignments),
	})
}

// WorkloadResponse is the response for GET /workload
type WorkloadResponse struct {
	View     insights.HistoryView `json:"view"`
	Buckets  []insights.Bucket    `json:"buckets"`
	Peak     *insights.Bucket     `json:"peak,omitempty"`
	MaxTotal int                  `json:"maxTotal"`
}

func (s *Server) getWorkload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("view")
	if name == "" {
		name = string(insights.Weekly)
	}
	view, err := insights.ParseHistoryView(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	buckets := insights.History(s.store.Snapshot().WorkloadPulses, view, s.now())
	resp := WorkloadResponse{View: view, Buckets: buckets, MaxTotal: insights.MaxTotal(buckets)}
	if peak, ok := insights.PeakOverloaded(buckets); ok {
		resp.Peak = &peak
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	filter, err := insights.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": insights.Search(s.store.Snapshot(), query, filter, s.today()),
		"query":   query,
		"filter":  filter,
	})
}

func (s *Server) getChangelog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"changelog": s.store.Snapshot().Changelog})
}

func (s *Server) exportState(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(export.JSON)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName()))
	if err := export.Write(w, format, s.store.Snapshot()); err != nil {
		s.logger.Warn("export failed", "format", format, "error", err)
	}
}

func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request) {
	st := s.store.Snapshot()
	if r.URL.Query().Get("completed") == "true" {
		writeJSON(w, http.StatusOK, map[string]any{"assignments": insights.CompletedAssignments(st.Assignments)})
		return
	}
	filter, err := insights.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assignments": insights.FilterAssignments(st.Assignments, filter, s.today()),
		"filter":      filter,
	})
}

// decodeRecord reads and validates a JSON record body, writing the error
// response itself when it fails.
func decodeRecord[T any](w http.ResponseWriter, r *http.Request, v *T) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := domain.Validate(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func withAssignmentDefaults(a *domain.Assignment) {
	if a.ID == "" {
		a.ID = domain.NewID()
	}
	if a.Status == "" {
		a.Status = domain.StatusOnTrack
	}
	if a.Priority == "" {
		a.Priority = domain.PriorityMedium
	}
}

func (s *Server) addAssignment(w http.ResponseWriter, r *http.Request) {
	var a domain.Assignment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	withAssignmentDefaults(&a)
	if err := domain.Validate(a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.store.AddAssignment(a)
	created, _ := s.store.Snapshot().AssignmentByID(a.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateAssignment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.store.Snapshot().AssignmentByID(id); !ok {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}
	var a domain.Assignment
	if !decodeRecord(w, r, &a) {
		return
	}
	a.ID = id
	a.UpdatedAt = s.now()
	s.store.UpdateAssignment(a)
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) deleteAssignment(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteAssignment(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeAssignment(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Completed *bool `json:"completed"`
	}{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	completed := req.Completed == nil || *req.Completed

	a, err := s.store.SetAssignmentCompleted(r.PathValue("id"), completed)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) listClasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"classes": s.store.Snapshot().Classes})
}

func withClassDefaults(c *domain.ClassItem) {
	if c.ID == "" {
		c.ID = domain.NewID()
	}
	if c.Color == "" {
		c.Color = store.ClassPalette[0]
	}
	if c.Credits == 0 {
		c.Credits = 3
	}
	if c.Resources == nil {
		c.Resources = []domain.ResourceLink{}
	}
	if c.SyllabusUploads == nil {
		c.SyllabusUploads = []domain.SyllabusUpload{}
	}
}

func (s *Server) addClass(w http.ResponseWriter, r *http.Request) {
	var c domain.ClassItem
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	withClassDefaults(&c)
	if err := domain.Validate(c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.store.AddClass(c)
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateClass(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.store.Snapshot().ClassByID(id); !ok {
		writeError(w, http.StatusNotFound, "class not found")
		return
	}
	var c domain.ClassItem
	if !decodeRecord(w, r, &c) {
		return
	}
	c.ID = id
	s.store.UpdateClass(c)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteClass(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteClass(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notes": s.store.Snapshot().Notes})
}

func (s *Server) addNote(w http.ResponseWriter, r *http.Request) {
	var n domain.NoteItem
	if !decodeRecord(w, r, &n) {
		return
	}
	if n.ID == "" {
		n.ID = domain.NewID()
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	n.Title = strings.TrimSpace(n.Title)
	s.store.AddNote(n)
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteNote(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addPulse(w http.ResponseWriter, r *http.Request) {
	var p domain.WorkloadPulse
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.ID == "" {
		p.ID = domain.NewID()
	}
	if p.Date == "" {
		p.Date = s.today()
	}
	if err := domain.Validate(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.store.AddWorkloadPulse(p)
	writeJSON(w, http.StatusCreated, p)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
