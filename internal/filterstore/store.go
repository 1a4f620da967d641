// Package filterstore holds the committed FilterSet next to the draft filter
// input of the UI and implements every transition between them.
package filterstore

import (
	"errors"
	"fmt"

	"storefront-catalog/internal/domain"
)

var (
	ErrUnknownDimension = errors.New("unknown filter dimension")
)

// DraftListener observes user edits of the draft and its re-derivation from
// the committed set. Transitions that write the draft as a side effect of a
// commit do not notify.
type DraftListener func(prev, next domain.DraftFilterState)

// Store owns the committed FilterSet and the DraftFilterState. It is not safe
// for concurrent use; callers serialize access (see internal/session).
type Store struct {
	committed domain.FilterSet
	draft     domain.DraftFilterState
	listeners []DraftListener
}

// New creates a store in the cleared state.
func New() *Store {
	return &Store{
		committed: domain.NewFilterSet(),
		draft:     domain.NewDraft(),
	}
}

// Committed returns a copy of the committed FilterSet.
func (s *Store) Committed() domain.FilterSet {
	return s.committed.Clone()
}

// Draft returns a copy of the draft.
func (s *Store) Draft() domain.DraftFilterState {
	return s.draft.Clone()
}

// OnDraftChange registers a listener for user edits and re-derivations.
func (s *Store) OnDraftChange(fn DraftListener) {
	s.listeners = append(s.listeners, fn)
}

// EditDraft applies a user edit to the draft.
func (s *Store) EditDraft(edit func(d *domain.DraftFilterState)) {
	next := s.draft.Clone()
	edit(&next)
	s.replaceDraft(next, true)
}

// ResetDraft discards uncommitted edits by re-deriving the draft from the
// committed set. The drawer flag is kept.
func (s *Store) ResetDraft() {
	next := domain.DraftFrom(s.committed)
	next.DrawerOpen = s.draft.DrawerOpen
	s.replaceDraft(next, true)
}

// SetDrawer opens or closes the filter drawer. The flag is UI-only.
func (s *Store) SetDrawer(open bool) {
	next := s.draft.Clone()
	next.DrawerOpen = open
	s.replaceDraft(next, false)
}

// Commit validates and normalizes d into the new committed FilterSet:
//   - a blank search becomes absent
//   - empty id selections become absent
//   - price bounds clamp to non-negative; an inverted pair drops both
//   - the page resets to 1, the page size is kept
//
// The draft is re-derived from the result so it shows what was applied.
func (s *Store) Commit(d domain.DraftFilterState) domain.FilterSet {
	field, order := d.Sort.Split()
	next := domain.FilterSet{
		Page:        domain.DefaultPage,
		Limit:       s.committed.Limit,
		SearchQuery: d.Search,
		CategoryIDs: d.CategoryIDs,
		BrandIDs:    d.BrandIDs,
		SkinTypeID:  d.SkinTypeID,
		MinPrice:    d.Price.Min,
		MaxPrice:    d.Price.Max,
		SortBy:      field,
		SortOrder:   order,
	}.Normalize()

	s.committed = next
	derived := domain.DraftFrom(next)
	derived.DrawerOpen = d.DrawerOpen
	s.replaceDraft(derived, false)
	return next.Clone()
}

// ApplyExternal overwrites the committed set with f, typically decoded from
// a URL the store did not produce, and re-derives the draft. Applying a set
// equal to the committed one is a no-op and reports false.
func (s *Store) ApplyExternal(f domain.FilterSet) bool {
	next := f.Normalize()
	if next.Equal(s.committed) {
		return false
	}

	s.committed = next
	derived := domain.DraftFrom(next)
	derived.DrawerOpen = s.draft.DrawerOpen
	s.replaceDraft(derived, true)
	return true
}

// SetPage changes only the page of the committed set.
func (s *Store) SetPage(n int) domain.FilterSet {
	if n < 1 {
		n = domain.DefaultPage
	}
	s.committed.Page = n
	return s.committed.Clone()
}

// SetSort changes the ordering of the committed set and resets the page,
// since an old page number may be out of range after re-ordering.
func (s *Store) SetSort(token domain.SortToken) domain.FilterSet {
	field, order := token.Split()
	next := s.committed.Clone()
	next.SortBy, next.SortOrder = field, order
	next.Page = domain.DefaultPage
	s.committed = next.Normalize()

	draft := s.draft.Clone()
	draft.Sort = s.committed.Sort()
	s.replaceDraft(draft, false)
	return s.committed.Clone()
}

// Clear resets the committed set to the first page of the default size and
// empties the draft.
func (s *Store) Clear() domain.FilterSet {
	s.committed = domain.NewFilterSet()
	s.replaceDraft(domain.NewDraft(), false)
	return s.committed.Clone()
}

// RemoveDimension drops one filter dimension from the committed set and
// resets the page. Removing price drops both bounds.
func (s *Store) RemoveDimension(key domain.Dimension) (domain.FilterSet, error) {
	next := s.committed.Clone()
	draft := s.draft.Clone()

	switch key {
	case domain.DimensionSearch:
		next.SearchQuery = ""
		draft.Search = ""
	case domain.DimensionCategories:
		next.CategoryIDs = nil
		draft.CategoryIDs = nil
	case domain.DimensionBrands:
		next.BrandIDs = nil
		draft.BrandIDs = nil
	case domain.DimensionPrice:
		next.MinPrice, next.MaxPrice = nil, nil
		draft.Price = domain.PriceRange{}
	default:
		return s.committed.Clone(), fmt.Errorf("failed to remove %q: %w", key, ErrUnknownDimension)
	}

	next.Page = domain.DefaultPage
	s.committed = next
	s.replaceDraft(draft, false)
	return next.Clone(), nil
}

func (s *Store) replaceDraft(next domain.DraftFilterState, notify bool) {
	prev := s.draft
	s.draft = next
	if !notify || prev.Equal(next) {
		return
	}
	for _, fn := range s.listeners {
		fn(prev.Clone(), next.Clone())
	}
}
