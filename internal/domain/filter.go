package domain

import (
	"math"
	"slices"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// FilterSet is the canonical, serializable description of the active filters. It drives
// the product fetch and is mirrored in the address bar.
//
// Absent optional values are the zero value for strings and slices and nil
// for pointers. A FilterSet with every optional field absent is cleared.
type FilterSet struct {
	Page        int       `json:"page" validate:"min=1"`
	Limit       int       `json:"limit" validate:"min=1,max=100"`
	SearchQuery string    `json:"searchQuery,omitempty"`
	CategoryIDs []int     `json:"categoryIds,omitempty"`
	BrandIDs    []int     `json:"brandIds,omitempty"`
	SkinTypeID  *int      `json:"skinTypeId,omitempty"`
	MinPrice    *float64  `json:"minPrice,omitempty" validate:"omitempty,gte=0"`
	MaxPrice    *float64  `json:"maxPrice,omitempty" validate:"omitempty,gte=0"`
	SortBy      SortField `json:"sortBy,omitempty"`
	SortOrder   SortOrder `json:"sortOrder,omitempty"`
}

// NewFilterSet returns the cleared filter set.
func NewFilterSet() FilterSet {
	return FilterSet{Page: DefaultPage, Limit: DefaultLimit}
}

// Normalize returns a copy with pagination defaulted, the search trimmed,
// id sets deduplicated and sorted, price bounds validated and the sort pair
// made consistent. Normalize is idempotent.
func (f FilterSet) Normalize() FilterSet {
	out := FilterSet{
		Page:        f.Page,
		Limit:       f.Limit,
		SearchQuery: strings.TrimSpace(f.SearchQuery),
		CategoryIDs: NormalizeIDs(f.CategoryIDs),
		BrandIDs:    NormalizeIDs(f.BrandIDs),
		SkinTypeID:  cloneInt(f.SkinTypeID),
	}
	if out.Page < 1 {
		out.Page = DefaultPage
	}
	if out.Limit < 1 {
		out.Limit = DefaultLimit
	} else if out.Limit > MaxLimit {
		out.Limit = MaxLimit
	}
	out.MinPrice, out.MaxPrice = NormalizePrice(f.MinPrice, f.MaxPrice)
	if f.SortBy.IsExplicit() {
		out.SortBy = f.SortBy
		out.SortOrder = f.SortOrder
		if out.SortOrder != SortOrderAsc && out.SortOrder != SortOrderDesc {
			out.SortOrder = f.SortBy.DefaultOrder()
		}
	}
	return out
}

// IsCleared reports whether no filter dimension is active.
func (f FilterSet) IsCleared() bool {
	return f.SearchQuery == "" &&
		len(f.CategoryIDs) == 0 &&
		len(f.BrandIDs) == 0 &&
		f.SkinTypeID == nil &&
		f.MinPrice == nil &&
		f.MaxPrice == nil &&
		!f.SortBy.IsExplicit()
}

// HasPrice reports whether at least one price bound is present.
func (f FilterSet) HasPrice() bool {
	return f.MinPrice != nil || f.MaxPrice != nil
}

// Sort returns the UI sort token for the set.
func (f FilterSet) Sort() SortToken {
	return TokenFor(f.SortBy, f.SortOrder)
}

// Equal compares by value. Id sets are compared unordered.
func (f FilterSet) Equal(o FilterSet) bool {
	return f.Page == o.Page &&
		f.Limit == o.Limit &&
		f.SearchQuery == o.SearchQuery &&
		sameIDSet(f.CategoryIDs, o.CategoryIDs) &&
		sameIDSet(f.BrandIDs, o.BrandIDs) &&
		equalIntPtr(f.SkinTypeID, o.SkinTypeID) &&
		equalFloatPtr(f.MinPrice, o.MinPrice) &&
		equalFloatPtr(f.MaxPrice, o.MaxPrice) &&
		f.Sort() == o.Sort()
}

// Clone returns a deep copy.
func (f FilterSet) Clone() FilterSet {
	out := f
	out.CategoryIDs = slices.Clone(f.CategoryIDs)
	out.BrandIDs = slices.Clone(f.BrandIDs)
	out.SkinTypeID = cloneInt(f.SkinTypeID)
	out.MinPrice = cloneFloat(f.MinPrice)
	out.MaxPrice = cloneFloat(f.MaxPrice)
	return out
}

// NormalizeIDs deduplicates and sorts ids. An empty selection becomes nil.
func NormalizeIDs(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// NormalizePrice validates a price pair. Negative bounds clamp to zero,
// NaN or infinite bounds are treated as absent and an inverted pair drops
// both bounds.
func NormalizePrice(minPrice, maxPrice *float64) (*float64, *float64) {
	lo := cleanBound(minPrice)
	hi := cleanBound(maxPrice)
	if lo != nil && hi != nil && *lo > *hi {
		return nil, nil
	}
	return lo, hi
}

func cleanBound(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	n := *v
	if n < 0 {
		n = 0
	}
	return &n
}

func sameIDSet(a, b []int) bool {
	return slices.Equal(NormalizeIDs(a), NormalizeIDs(b))
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
