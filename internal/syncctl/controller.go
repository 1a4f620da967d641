// Package syncctl keeps the address bar and the committed FilterSet in step.
//
// The controller is a two-state machine. In Idle every commit is encoded and
// written to the address bar. While a URL that the controller did not write
// is being applied it is SyncingFromExternal, and commits that fire as a side
// effect of re-deriving the draft are dropped: an external URL change must
// never be overwritten by a stale draft.
//
// The controller does not deduplicate the echo of its own writes. Re-applying
// a FilterSet equal to the committed one is a no-op, which is what stops the
// write, observe, apply cycle.
package syncctl

import (
	"fmt"

	"storefront-catalog/internal/domain"
	"storefront-catalog/internal/filterstore"
	"storefront-catalog/internal/urlcodec"

	"go.uber.org/zap"
)

// State of the controller
type State int

const (
	Idle State = iota
	SyncingFromExternal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SyncingFromExternal:
		return "syncing_from_external"
	}
	return "unknown"
}

// Navigator writes the address bar. Push adds a history entry, Replace
// rewrites the current one. Implementations report the new location back
// through HandleURL, usually asynchronously.
type Navigator interface {
	Push(query string)
	Replace(query string)
}

// FetchTrigger receives every committed FilterSet. It is expected to ignore
// a set equal to the one it already holds.
type FetchTrigger interface {
	Trigger(f domain.FilterSet)
}

// Options tune optional behaviors of the controller.
type Options struct {
	// AutoApplySort commits a draft sort change immediately.
	AutoApplySort bool
}

// Controller mediates between the address bar, the filter store and the
// fetch orchestrator. It is not safe for concurrent use.
type Controller struct {
	store  *filterstore.Store
	nav    Navigator
	fetch  FetchTrigger
	logger *zap.Logger
	opts   Options

	state      State
	location   string
	suppressed int
}

// New creates a controller and subscribes it to draft changes of store.
func New(store *filterstore.Store, nav Navigator, fetch FetchTrigger, logger *zap.Logger, opts Options) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		store:  store,
		nav:    nav,
		fetch:  fetch,
		logger: logger,
		opts:   opts,
		state:  Idle,
	}
	store.OnDraftChange(c.onDraftChange)
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Location is the query string the controller believes is in the address bar.
func (c *Controller) Location() string {
	return c.location
}

// SuppressedCommits counts commits dropped by the re-entrancy guard.
func (c *Controller) SuppressedCommits() int {
	return c.suppressed
}

// Mount applies the initial URL and issues the first fetch even when the URL
// carries no filters.
func (c *Controller) Mount(rawQuery string) {
	if !c.syncFromURL(rawQuery) {
		c.fetch.Trigger(c.store.Committed())
	}
}

// HandleURL reacts to an address bar change, including the echo of the
// controller's own writes.
func (c *Controller) HandleURL(rawQuery string) {
	c.syncFromURL(rawQuery)
}

func (c *Controller) syncFromURL(rawQuery string) bool {
	c.state = SyncingFromExternal
	defer func() { c.state = Idle }()

	decoded := urlcodec.Decode(rawQuery)
	c.location = urlcodec.Encode(decoded)

	changed := c.store.ApplyExternal(decoded)
	committed := c.store.Committed()

	// The URL said something the committed set cannot hold, e.g. an inverted
	// price range. Rewrite it in place so the address bar matches the fetch.
	if canonical := urlcodec.Encode(committed); canonical != c.location {
		c.logger.Debug("Canonicalizing address bar",
			zap.String("from", c.location),
			zap.String("to", canonical),
		)
		c.location = canonical
		c.nav.Replace(canonical)
	}

	if changed {
		c.logger.Debug("Applied external URL", zap.String("query", c.location))
		c.fetch.Trigger(committed)
	}
	return changed
}

// EditDraft applies a user edit to the draft.
func (c *Controller) EditDraft(edit func(d *domain.DraftFilterState)) {
	c.store.EditDraft(edit)
}

// OpenDrawer re-syncs the draft with the committed set and opens the drawer.
func (c *Controller) OpenDrawer() {
	c.store.ResetDraft()
	c.store.SetDrawer(true)
}

// CloseDrawer closes the drawer and discards uncommitted edits.
func (c *Controller) CloseDrawer() {
	c.store.SetDrawer(false)
	c.store.ResetDraft()
}

// Apply commits the draft and closes the drawer.
func (c *Controller) Apply() domain.FilterSet {
	return c.commit("apply", func() domain.FilterSet {
		d := c.store.Draft()
		d.DrawerOpen = false
		return c.store.Commit(d)
	})
}

// SetPage moves to page n keeping every filter.
func (c *Controller) SetPage(n int) domain.FilterSet {
	return c.commit("set_page", func() domain.FilterSet {
		return c.store.SetPage(n)
	})
}

// SetSort changes the ordering and returns to the first page.
func (c *Controller) SetSort(token domain.SortToken) domain.FilterSet {
	return c.commit("set_sort", func() domain.FilterSet {
		return c.store.SetSort(token)
	})
}

// Clear drops every filter.
func (c *Controller) Clear() domain.FilterSet {
	return c.commit("clear", c.store.Clear)
}

// RemoveDimension drops one filter dimension, as when a pill is dismissed.
func (c *Controller) RemoveDimension(key domain.Dimension) (domain.FilterSet, error) {
	if _, ok := domain.ParseDimension(string(key)); !ok {
		return c.store.Committed(), fmt.Errorf("failed to remove %q: %w", key, filterstore.ErrUnknownDimension)
	}
	return c.commit("remove_dimension", func() domain.FilterSet {
		f, _ := c.store.RemoveDimension(key)
		return f
	}), nil
}

func (c *Controller) commit(op string, run func() domain.FilterSet) domain.FilterSet {
	if c.state == SyncingFromExternal {
		c.suppressed++
		c.logger.Debug("Commit suppressed while syncing from external URL", zap.String("op", op))
		return c.store.Committed()
	}

	next := run()
	if query := urlcodec.Encode(next); query != c.location {
		c.location = query
		c.nav.Push(query)
	}
	c.fetch.Trigger(next)
	return next
}

func (c *Controller) onDraftChange(prev, next domain.DraftFilterState) {
	if !c.opts.AutoApplySort || prev.Sort.Normalize() == next.Sort.Normalize() {
		return
	}
	c.SetSort(next.Sort)
}
