// Package session runs one catalog browsing session: the filter store, the
// sync controller, the fetch orchestrator and an address bar history, all
// driven from a single event-loop goroutine.
//
// Every state transition runs to completion on the loop. Fetch completions
// and address bar echoes are queued as later events, so no component below
// this package needs a lock.
package session

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"storefront-catalog/internal/domain"
	"storefront-catalog/internal/fetch"
	"storefront-catalog/internal/filterstore"
	"storefront-catalog/internal/pills"
	"storefront-catalog/internal/syncctl"

	"go.uber.org/zap"
)

var (
	ErrSessionClosed   = errors.New("session closed")
	ErrSessionNotFound = errors.New("session not found")
	ErrNoHistory       = errors.New("no history entry in that direction")
)

const eventBuffer = 64

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Products  fetch.ProductFetcher
	Facets    fetch.FacetFetcher
	Projector *pills.Projector
	Logger    *zap.Logger
}

// Options configure a session.
type Options struct {
	Locale        string
	AutoApplySort bool
}

// Snapshot is a consistent view of a session taken on its event loop.
type Snapshot struct {
	ID           string                  `json:"id"`
	Query        string                  `json:"query"`
	State        string                  `json:"state"`
	Committed    domain.FilterSet        `json:"committed"`
	Draft        domain.DraftFilterState `json:"draft"`
	Pills        []domain.FilterPill     `json:"pills"`
	Result       *domain.ResultPage      `json:"result"`
	Loading      bool                    `json:"loading"`
	Error        string                  `json:"error,omitempty"`
	FacetsLoaded bool                    `json:"facetsLoaded"`
	FacetsError  string                  `json:"facetsError,omitempty"`
	Generation   uint64                  `json:"generation"`
	Fetches      int                     `json:"fetches"`
	Discarded    int                     `json:"discarded"`
	CanGoBack    bool                    `json:"canGoBack"`
	CanGoForward bool                    `json:"canGoForward"`
	// Version counts applied fetch results. Pollers compare it to skip
	// unchanged snapshots.
	Version uint64 `json:"version"`
}

// Session owns the state of one catalog page.
type Session struct {
	id     string
	locale string
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan func()
	done   chan struct{}

	history   *history
	store     *filterstore.Store
	ctrl      *syncctl.Controller
	orch      *fetch.Orchestrator
	projector *pills.Projector

	echoes     []string
	version    uint64
	lastActive atomic.Int64
}

// New mounts a session on initialQuery and starts its event loop. The loop
// stops when ctx is cancelled or Close is called.
func New(ctx context.Context, id, initialQuery string, deps Deps, opts Options) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session_id", id))

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:        id,
		locale:    opts.Locale,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan func(), eventBuffer),
		done:      make(chan struct{}),
		store:     filterstore.New(),
		projector: deps.Projector,
	}
	if s.projector == nil {
		s.projector = pills.NewProjector(opts.Locale, 0)
	}
	s.touch()

	s.history = newHistory(initialQuery, s.queueEcho)
	s.orch = fetch.New(ctx, deps.Products, deps.Facets, s.post, logger)
	s.orch.OnUpdate(func() { s.version++ })
	s.ctrl = syncctl.New(s.store, s.history, s.orch, logger, syncctl.Options{
		AutoApplySort: opts.AutoApplySort,
	})

	go s.run()

	_ = s.do(func() {
		s.orch.LoadFacets()
		s.ctrl.Mount(initialQuery)
	})
	logger.Debug("Session mounted", zap.String("query", initialQuery))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LastActive is the time of the last caller interaction.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Done is closed once the event loop has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close stops the event loop. Requests still in flight are abandoned.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.events:
			fn()
			s.drainEchoes()
		case <-s.ctx.Done():
			return
		}
	}
}

// post queues fn from any goroutine without waiting for it to run.
func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.ctx.Done():
	}
}

// do runs fn on the loop and waits until it and the echoes it caused have
// been processed.
func (s *Session) do(fn func()) error {
	s.touch()
	finished := make(chan struct{})
	event := func() {
		defer close(finished)
		fn()
		s.drainEchoes()
	}

	select {
	case s.events <- event:
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
	select {
	case <-finished:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// queueEcho records an address bar write. It runs on the loop, so it must
// not block on the events channel; the echo is delivered after the current
// event finishes.
func (s *Session) queueEcho(query string) {
	s.echoes = append(s.echoes, query)
}

func (s *Session) drainEchoes() {
	for len(s.echoes) > 0 {
		query := s.echoes[0]
		s.echoes = s.echoes[1:]
		s.ctrl.HandleURL(query)
	}
}

// Navigate is an address bar change from outside the catalog page, such as
// following a link. It adds a history entry.
func (s *Session) Navigate(query string) error {
	return s.do(func() {
		s.history.Visit(query)
		s.ctrl.HandleURL(query)
	})
}

// Back moves one entry back in history.
func (s *Session) Back() error {
	return s.travel((*history).Back)
}

// Forward moves one entry forward in history.
func (s *Session) Forward() error {
	return s.travel((*history).Forward)
}

func (s *Session) travel(step func(*history) (string, bool)) error {
	var moved bool
	err := s.do(func() {
		var query string
		query, moved = step(s.history)
		if moved {
			s.ctrl.HandleURL(query)
		}
	})
	if err != nil {
		return err
	}
	if !moved {
		return ErrNoHistory
	}
	return nil
}

// EditDraft applies a user edit to the draft.
func (s *Session) EditDraft(edit func(d *domain.DraftFilterState)) error {
	return s.do(func() { s.ctrl.EditDraft(edit) })
}

// OpenDrawer opens the filter drawer with a fresh draft.
func (s *Session) OpenDrawer() error {
	return s.do(s.ctrl.OpenDrawer)
}

// CloseDrawer closes the drawer without applying.
func (s *Session) CloseDrawer() error {
	return s.do(s.ctrl.CloseDrawer)
}

// Apply commits the draft.
func (s *Session) Apply() error {
	return s.do(func() { s.ctrl.Apply() })
}

// SetPage changes the page.
func (s *Session) SetPage(n int) error {
	return s.do(func() { s.ctrl.SetPage(n) })
}

// SetSort changes the ordering.
func (s *Session) SetSort(token domain.SortToken) error {
	return s.do(func() { s.ctrl.SetSort(token) })
}

// Clear drops every filter.
func (s *Session) Clear() error {
	return s.do(func() { s.ctrl.Clear() })
}

// RemoveDimension dismisses one pill.
func (s *Session) RemoveDimension(key domain.Dimension) error {
	var removeErr error
	err := s.do(func() {
		_, removeErr = s.ctrl.RemoveDimension(key)
	})
	if err != nil {
		return err
	}
	return removeErr
}

// Retry re-issues failed requests.
func (s *Session) Retry() error {
	return s.do(s.orch.Retry)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := s.do(func() {
		st := s.orch.State()
		stats := s.orch.Stats()
		committed := s.store.Committed()
		snap = Snapshot{
			ID:           s.id,
			Query:        s.history.Current(),
			State:        s.ctrl.State().String(),
			Committed:    committed,
			Draft:        sanitizeDraft(s.store.Draft()),
			Pills:        s.projector.Project(committed, st.Facets, s.locale),
			Result:       st.Result,
			Loading:      st.Loading,
			FacetsLoaded: st.FacetsLoaded,
			Generation:   st.Generation,
			Fetches:      stats.Issued,
			Discarded:    stats.Discarded,
			CanGoBack:    s.history.CanGoBack(),
			CanGoForward: s.history.CanGoForward(),
			Version:      s.version,
		}
		if st.Err != nil {
			snap.Error = st.Err.Error()
		}
		if st.FacetsErr != nil {
			snap.FacetsError = st.FacetsErr.Error()
		}
	})
	return snap, err
}

// sanitizeDraft drops bounds JSON cannot represent.
func sanitizeDraft(d domain.DraftFilterState) domain.DraftFilterState {
	clean := func(v *float64) *float64 {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil
		}
		return v
	}
	d.Price.Min = clean(d.Price.Min)
	d.Price.Max = clean(d.Price.Max)
	return d
}
