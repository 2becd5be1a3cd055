// Package store is the planner's single in-memory source of truth.
//
// Every mutation updates the snapshot synchronously, notifies subscribers
// and then hands persistence to a background goroutine. Persistence is
// fire-and-forget: failures are logged and counted but never rolled back
// or retried, and concurrent writes to the same record resolve
// last-write-wins at the backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pbaille/pulsetrack/internal/domain"
	"github.com/pbaille/pulsetrack/internal/observability"
	"github.com/pbaille/pulsetrack/internal/remote"
)

// ErrNotFound is returned by operations that must look a record up first.
var ErrNotFound = errors.New("not found")

// Backend persists records for a signed-in user. remote.Gateway
// implements it.
type Backend interface {
	Session(ctx context.Context) (*remote.Session, error)
	OnAuthStateChange(fn func(*remote.Session)) (unsubscribe func())
	LoadSnapshot(ctx context.Context, sess *remote.Session) (domain.State, error)

	SaveProfile(ctx context.Context, userID string, user domain.UserProfile) error
	SaveTerm(ctx context.Context, userID string, term domain.Term) error
	DeleteTerm(ctx context.Context, userID, id string) error
	SetActiveTerm(ctx context.Context, userID, id string) error
	SaveClass(ctx context.Context, userID string, class domain.ClassItem) error
	DeleteClass(ctx context.Context, userID, id string) error
	SaveAssignment(ctx context.Context, userID string, a domain.Assignment) error
	DeleteAssignment(ctx context.Context, userID, id string) error
	SaveNote(ctx context.Context, userID string, note domain.NoteItem) error
	DeleteNote(ctx context.Context, userID, id string) error
	SaveGradeScale(ctx context.Context, userID string, scale domain.GradeScale, active bool) error
	DeleteGradeScale(ctx context.Context, userID, id string) error
	SetActiveGradeScale(ctx context.Context, userID, id string) error
	SaveWeightCategories(ctx context.Context, userID string, categories []domain.WeightCategory) error
	AppendChangelog(ctx context.Context, userID string, item domain.ChangelogItem) error
	SaveWorkloadPulse(ctx context.Context, userID string, p domain.WorkloadPulse) error
	DeleteWorkloadPulse(ctx context.Context, userID, id string) error
}

// Store holds the planner state
type Store struct {
	backend        Backend
	logger         *slog.Logger
	metrics        *observability.Metrics
	now            func() time.Time
	persistTimeout time.Duration

	mu    sync.RWMutex
	state domain.State

	subMu   sync.Mutex
	subs    map[int]func(domain.State)
	nextSub int

	pending    tasks
	hydrateSeq atomic.Uint64
	stopped    atomic.Bool
	stopAuth   func()
}

// tasks counts background goroutines. Unlike sync.WaitGroup it may gain
// tasks while a waiter is blocked.
type tasks struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int
}

func (t *tasks) init() {
	t.mu.Lock()
	if t.cond == nil {
		t.cond = sync.NewCond(&t.mu)
	}
	t.mu.Unlock()
}

// Go runs fn on a new goroutine and tracks it until it returns.
func (t *tasks) Go(fn func()) {
	t.init()
	t.mu.Lock()
	t.n++
	t.mu.Unlock()
	go func() {
		defer func() {
			t.mu.Lock()
			t.n--
			if t.n == 0 {
				t.cond.Broadcast()
			}
			t.mu.Unlock()
		}()
		fn()
	}()
}

// Wait blocks until no task is running.
func (t *tasks) Wait() {
	t.init()
	t.mu.Lock()
	for t.n > 0 {
		t.cond.Wait()
	}
	t.mu.Unlock()
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics records store activity.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock replaces time.Now for timestamps and changelog entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPersistTimeout bounds each background persistence task.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) { s.persistTimeout = d }
}

// WithState seeds the snapshot, for tests and local-only runs.
func WithState(state domain.State) Option {
	return func(s *Store) { s.state = state }
}

// New creates a store. A nil backend keeps everything in memory: mutations
// still apply locally and hydration is a no-op.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:        backend,
		logger:         slog.Default(),
		now:            time.Now,
		persistTimeout: 10 * time.Second,
		subs:           make(map[int]func(domain.State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state. Collections are copied;
// records inside them are values and are never mutated in place by the
// store.
func (s *Store) Snapshot() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

func cloneState(st domain.State) domain.State {
	st.Classes = slices.Clone(st.Classes)
	st.Assignments = slices.Clone(st.Assignments)
	st.Notes = slices.Clone(st.Notes)
	st.GradeScales = slices.Clone(st.GradeScales)
	st.WeightCategories = slices.Clone(st.WeightCategories)
	st.Terms = slices.Clone(st.Terms)
	st.Changelog = slices.Clone(st.Changelog)
	st.WorkloadPulses = slices.Clone(st.WorkloadPulses)
	st.Badges = slices.Clone(st.Badges)
	return st
}

// Subscribe registers fn to receive the new snapshot after every change.
// fn runs on the mutating goroutine and must not call back into mutations.
func (s *Store) Subscribe(fn func(domain.State)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// apply runs fn on the state under the write lock, then notifies
// subscribers with the resulting snapshot.
func (s *Store) apply(op string, fn func(st *domain.State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.metrics.RecordMutation(op)
	s.notify(snap)
}

func (s *Store) notify(snap domain.State) {
	s.subMu.Lock()
	fns := make([]func(domain.State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// persist runs fn in the background for the current session user. It never
// blocks the caller and never reports back.
func (s *Store) persist(op string, fn func(ctx context.Context, userID string) error) {
	if s.backend == nil {
		return
	}
	s.pending.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()

		sess, err := s.backend.Session(ctx)
		if err != nil {
			s.logger.Warn("persist: resolve session", "op", op, "error", err)
			s.metrics.RecordPersist(op, observability.ResultError)
			return
		}
		if sess == nil {
			s.metrics.RecordPersist(op, observability.ResultSkipped)
			return
		}

		if err := fn(ctx, sess.UserID); err != nil {
			s.logger.Warn("persist failed", "op", op, "user", sess.UserID, "error", err)
			s.metrics.RecordPersist(op, observability.ResultError)
			return
		}
		s.logger.Debug("persisted", "op", op)
		s.metrics.RecordPersist(op, observability.ResultOK)
	})
}

// Wait blocks until every background task started so far has finished.
func (s *Store) Wait() {
	s.pending.Wait()
}

// Hydrate replaces every stored collection with the backend's copy for the
// signed-in user. With no backend or no session the state is left as is.
// A response that is overtaken by a later Hydrate call is discarded.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	seq := s.hydrateSeq.Add(1)
	start := time.Now()

	sess, err := s.backend.Session(ctx)
	if err != nil {
		s.metrics.RecordHydration(observability.ResultError, 0)
		return fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		s.metrics.RecordHydration(observability.ResultSkipped, 0)
		return nil
	}

	loaded, err := s.backend.LoadSnapshot(ctx, sess)
	if err != nil {
		s.metrics.RecordHydration(observability.ResultError, 0)
		return fmt.Errorf("load snapshot: %w", err)
	}

	s.mu.Lock()
	if s.hydrateSeq.Load() != seq {
		s.mu.Unlock()
		s.logger.Debug("discarding stale hydration", "seq", seq)
		s.metrics.RecordHydration(observability.ResultStale, 0)
		return nil
	}
	prev := s.state
	loaded.Badges = prev.Badges
	if loaded.ActiveGradeScaleID == "" {
		loaded.ActiveGradeScaleID = prev.ActiveGradeScaleID
	}
	s.state = loaded
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.metrics.RecordHydration(observability.ResultOK, time.Since(start))
	s.notify(snap)
	return nil
}

// Start hydrates once and re-hydrates on every auth state change until
// Stop is called.
func (s *Store) Start(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	s.stopped.Store(false)
	s.stopAuth = s.backend.OnAuthStateChange(func(*remote.Session) {
		if s.stopped.Load() {
			return
		}
		s.pending.Go(func() {
			if err := s.Hydrate(ctx); err != nil {
				s.logger.Warn("hydrate after auth change", "error", err)
			}
		})
	})
	return s.Hydrate(ctx)
}

// Stop detaches from auth state changes. Changes reported after Stop are
// ignored even if the backend still delivers them.
func (s *Store) Stop() {
	s.stopped.Store(true)
	if s.stopAuth != nil {
		s.stopAuth()
		s.stopAuth = nil
	}
}
