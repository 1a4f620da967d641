package domain

import (
	"math"
	"slices"
)

// PriceRange is the unvalidated price input of the filter drawer. Bounds may
// be nil, NaN, negative or out of order until the draft is committed.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// DraftFilterState is the in-progress filter input owned by the UI. It is
// never written to the URL directly; it becomes a FilterSet only through
// a commit.
type DraftFilterState struct {
	Search      string     `json:"search"`
	CategoryIDs []int      `json:"categoryIds"`
	BrandIDs    []int      `json:"brandIds"`
	SkinTypeID  *int       `json:"skinTypeId,omitempty"`
	Price       PriceRange `json:"price"`
	Sort        SortToken  `json:"sort"`
	DrawerOpen  bool       `json:"drawerOpen"`
}

// NewDraft returns an empty draft with relevance ordering.
func NewDraft() DraftFilterState {
	return DraftFilterState{Sort: TokenRelevance}
}

// DraftFrom mirrors a FilterSet into draft form. The values are copied as
// they are so that an invalid set still shows what the URL said.
func DraftFrom(f FilterSet) DraftFilterState {
	return DraftFilterState{
		Search:      f.SearchQuery,
		CategoryIDs: slices.Clone(f.CategoryIDs),
		BrandIDs:    slices.Clone(f.BrandIDs),
		SkinTypeID:  cloneInt(f.SkinTypeID),
		Price: PriceRange{
			Min: cloneFloat(f.MinPrice),
			Max: cloneFloat(f.MaxPrice),
		},
		Sort: f.Sort(),
	}
}

// Clone returns a deep copy.
func (d DraftFilterState) Clone() DraftFilterState {
	out := d
	out.CategoryIDs = slices.Clone(d.CategoryIDs)
	out.BrandIDs = slices.Clone(d.BrandIDs)
	out.SkinTypeID = cloneInt(d.SkinTypeID)
	out.Price = PriceRange{Min: cloneFloat(d.Price.Min), Max: cloneFloat(d.Price.Max)}
	return out
}

// Equal compares two drafts field by field. Id lists compare as sets and
// NaN bounds compare equal to each other.
func (d DraftFilterState) Equal(o DraftFilterState) bool {
	return d.Search == o.Search &&
		sameIDSet(d.CategoryIDs, o.CategoryIDs) &&
		sameIDSet(d.BrandIDs, o.BrandIDs) &&
		equalIntPtr(d.SkinTypeID, o.SkinTypeID) &&
		sameBound(d.Price.Min, o.Price.Min) &&
		sameBound(d.Price.Max, o.Price.Max) &&
		d.Sort.Normalize() == o.Sort.Normalize() &&
		d.DrawerOpen == o.DrawerOpen
}

func sameBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	if math.IsNaN(*a) && math.IsNaN(*b) {
		return true
	}
	return *a == *b
}
