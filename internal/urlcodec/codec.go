// Package urlcodec converts a FilterSet to and from its query-string form.
//
// The grammar is the shareable state of the catalog page:
//
//	page=2&limit=24&search=rose+oil&categoryIds=3,4&brandIds=7&skinTypeId=2&minPrice=10&maxPrice=50&sortBy=price&sortOrder=asc
//
// Keys are written in that fixed order. Defaults (page 1, limit 12) and absent
// dimensions are omitted, so the cleared FilterSet encodes to "". Decoding is
// total: malformed values are dropped, never reported.
package urlcodec

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"storefront-catalog/internal/domain"
)

const (
	KeyPage        = "page"
	KeyLimit       = "limit"
	KeySearch      = "search"
	KeyCategoryIDs = "categoryIds"
	KeyBrandIDs    = "brandIds"
	KeySkinTypeID  = "skinTypeId"
	KeyMinPrice    = "minPrice"
	KeyMaxPrice    = "maxPrice"
	KeySortBy      = "sortBy"
	KeySortOrder   = "sortOrder"
)

type pair struct {
	key   string
	value string
}

// Encode serializes f into a query string without the leading "?".
func Encode(f domain.FilterSet) string {
	return join(pairs(f, false))
}

// EncodeRequest is Encode with page and limit always present, the form the
// catalog API expects.
func EncodeRequest(f domain.FilterSet) string {
	return join(pairs(f, true))
}

func pairs(f domain.FilterSet, withPagination bool) []pair {
	var out []pair

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = domain.DefaultPage
	}
	if limit < 1 {
		limit = domain.DefaultLimit
	}
	if withPagination || page != domain.DefaultPage {
		out = append(out, pair{KeyPage, strconv.Itoa(page)})
	}
	if withPagination || limit != domain.DefaultLimit {
		out = append(out, pair{KeyLimit, strconv.Itoa(limit)})
	}

	if q := strings.TrimSpace(f.SearchQuery); q != "" {
		out = append(out, pair{KeySearch, url.QueryEscape(q)})
	}
	if ids := domain.NormalizeIDs(f.CategoryIDs); len(ids) > 0 {
		out = append(out, pair{KeyCategoryIDs, joinIDs(ids)})
	}
	if ids := domain.NormalizeIDs(f.BrandIDs); len(ids) > 0 {
		out = append(out, pair{KeyBrandIDs, joinIDs(ids)})
	}
	if f.SkinTypeID != nil {
		out = append(out, pair{KeySkinTypeID, strconv.Itoa(*f.SkinTypeID)})
	}
	if v, ok := finite(f.MinPrice); ok {
		out = append(out, pair{KeyMinPrice, formatPrice(v)})
	}
	if v, ok := finite(f.MaxPrice); ok {
		out = append(out, pair{KeyMaxPrice, formatPrice(v)})
	}
	if f.SortBy.IsExplicit() {
		field, order := f.Sort().Split()
		out = append(out, pair{KeySortBy, string(field)}, pair{KeySortOrder, string(order)})
	}
	return out
}

func join(ps []pair) string {
	var b strings.Builder
	for i, p := range ps {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	return b.String()
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func finite(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}

// Decode parses a query string, with or without the leading "?", into a
// FilterSet. It never fails: unparseable fields are treated as absent.
//
// Decode does not reorder an inverted price pair; that is left to
// FilterSet.Normalize so the raw URL intent stays visible to callers.
func Decode(raw string) domain.FilterSet {
	values := parseQuery(raw)
	f := domain.NewFilterSet()

	if n, ok := parseInt(values.Get(KeyPage)); ok && n >= 1 {
		f.Page = n
	}
	if n, ok := parseInt(values.Get(KeyLimit)); ok && n >= 1 {
		f.Limit = min(n, domain.MaxLimit)
	}

	f.SearchQuery = strings.TrimSpace(values.Get(KeySearch))
	f.CategoryIDs = parseIDs(values[KeyCategoryIDs])
	f.BrandIDs = parseIDs(values[KeyBrandIDs])

	if n, ok := parseInt(values.Get(KeySkinTypeID)); ok {
		f.SkinTypeID = &n
	}
	if v, ok := parseFloat(values.Get(KeyMinPrice)); ok {
		f.MinPrice = &v
	}
	if v, ok := parseFloat(values.Get(KeyMaxPrice)); ok {
		f.MaxPrice = &v
	}

	if field := domain.ParseSortField(values.Get(KeySortBy)); field.IsExplicit() {
		order, ok := domain.ParseSortOrder(values.Get(KeySortOrder))
		if !ok {
			order = field.DefaultOrder()
		}
		f.SortBy, f.SortOrder = field, order
	}
	return f
}

// DecodeSort returns the UI sort token a query string selects.
func DecodeSort(raw string) domain.SortToken {
	return Decode(raw).Sort()
}

// parseQuery keeps whatever pairs url.ParseQuery managed to read before a
// malformed escape.
func parseQuery(raw string) url.Values {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "?")
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	values, _ := url.ParseQuery(raw)
	if values == nil {
		values = url.Values{}
	}
	return values
}

func parseIDs(raw []string) []int {
	var ids []int
	for _, chunk := range raw {
		for _, token := range strings.Split(chunk, ",") {
			if n, ok := parseInt(token); ok {
				ids = append(ids, n)
			}
		}
	}
	return domain.NormalizeIDs(ids)
}

func parseInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFloat(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
