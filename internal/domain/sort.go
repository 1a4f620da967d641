package domain

import "strings"

// SortField is the product attribute a result page is ordered by.
type SortField string

const (
	SortRelevance SortField = "relevance"
	SortPrice     SortField = "price"
	SortRating    SortField = "rating"
	SortNewest    SortField = "newest"
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortToken is the compound "field-order" value the sort control works with,
// e.g. "price-asc". The zero value and "relevance" both mean implicit ordering.
type SortToken string

const TokenRelevance SortToken = "relevance"

var validSortFields = map[SortField]bool{
	SortPrice:  true,
	SortRating: true,
	SortNewest: true,
}

// IsExplicit reports whether the field produces a sortBy/sortOrder pair.
func (f SortField) IsExplicit() bool {
	return validSortFields[f]
}

// DefaultOrder is the direction used when a field arrives without one.
func (f SortField) DefaultOrder() SortOrder {
	if f == SortPrice {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// ParseSortField maps raw text to a known field, anything else is relevance.
func ParseSortField(raw string) SortField {
	f := SortField(strings.ToLower(strings.TrimSpace(raw)))
	if f.IsExplicit() {
		return f
	}
	return SortRelevance
}

// ParseSortOrder returns the order and whether raw named one.
func ParseSortOrder(raw string) (SortOrder, bool) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case SortOrderAsc:
		return SortOrderAsc, true
	case SortOrderDesc:
		return SortOrderDesc, true
	}
	return "", false
}

// Split breaks a token into its field and order. Unknown tokens are relevance.
func (t SortToken) Split() (SortField, SortOrder) {
	raw := strings.TrimSpace(string(t))
	fieldPart, orderPart := raw, ""
	if i := strings.LastIndex(raw, "-"); i >= 0 {
		fieldPart, orderPart = raw[:i], raw[i+1:]
	}

	field := ParseSortField(fieldPart)
	if !field.IsExplicit() {
		return SortRelevance, ""
	}

	order, ok := ParseSortOrder(orderPart)
	if !ok {
		if orderPart != "" {
			return SortRelevance, ""
		}
		order = field.DefaultOrder()
	}
	return field, order
}

// Normalize rewrites the token into its canonical spelling.
func (t SortToken) Normalize() SortToken {
	return TokenFor(t.Split())
}

// TokenFor builds the UI token for a field/order pair.
func TokenFor(field SortField, order SortOrder) SortToken {
	if !field.IsExplicit() {
		return TokenRelevance
	}
	if order != SortOrderAsc && order != SortOrderDesc {
		order = field.DefaultOrder()
	}
	return SortToken(string(field) + "-" + string(order))
}
