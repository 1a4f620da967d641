package urlcodec

import (
	"testing"

	"storefront-catalog/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

var sortTokens = []domain.SortToken{
	domain.TokenRelevance,
	"price-asc",
	"price-desc",
	"rating-asc",
	"rating-desc",
	"newest-asc",
	"newest-desc",
}

// Property 1: decoding the encoding of a normalized FilterSet yields an equal FilterSet
func TestProperty_RoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("decode(encode(F)) is set-equal to F", prop.ForAll(
		func(page, limit int, search string, cats, brands []int, skin int, lo, hi float64, priceMode, sortIdx int) bool {
			f := domain.FilterSet{
				Page:        page,
				Limit:       limit,
				SearchQuery: search,
				CategoryIDs: cats,
				BrandIDs:    brands,
			}
			if skin >= 0 {
				f.SkinTypeID = domain.Int(skin)
			}
			switch priceMode {
			case 1:
				f.MinPrice = domain.Float(lo)
			case 2:
				f.MaxPrice = domain.Float(hi)
			case 3:
				f.MinPrice, f.MaxPrice = domain.Float(lo), domain.Float(hi)
			}
			f.SortBy, f.SortOrder = sortTokens[sortIdx].Split()
			f = f.Normalize()

			encoded := Encode(f)
			got := Decode(encoded)
			if !got.Equal(f) {
				t.Logf("FAIL: %q decoded to %+v, want %+v", encoded, got, f)
				return false
			}
			return true
		},
		gen.IntRange(1, 500),
		gen.IntRange(1, domain.MaxLimit),
		gen.AnyString(),
		gen.SliceOf(gen.IntRange(0, 2000)),
		gen.SliceOf(gen.IntRange(0, 2000)),
		gen.IntRange(-1, 20),
		gen.Float64Range(0, 100000),
		gen.Float64Range(0, 100000),
		gen.IntRange(0, 3),
		gen.IntRange(0, len(sortTokens)-1),
	))

	properties.TestingRun(t)
}

// Property 2: decoding never panics and always yields valid pagination
func TestProperty_DecodeIsTotal(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("any query string decodes to a usable FilterSet", prop.ForAll(
		func(raw string) bool {
			f := Decode(raw)
			return f.Page >= 1 && f.Limit >= 1 && f.Limit <= domain.MaxLimit
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestEncode_ClearedIsEmpty(t *testing.T) {
	assert.Equal(t, "", Encode(domain.NewFilterSet()))
	assert.Equal(t, "", Encode(domain.FilterSet{}))
	assert.Equal(t, "", Encode(domain.FilterSet{
		Page:        1,
		Limit:       12,
		SearchQuery: "   ",
		CategoryIDs: []int{},
		SortBy:      domain.SortRelevance,
		SortOrder:   domain.SortOrderDesc,
	}))
}

func TestEncode_FixedKeyOrder(t *testing.T) {
	f := domain.FilterSet{
		Page:        3,
		Limit:       24,
		SearchQuery: "rose oil",
		CategoryIDs: []int{4, 3, 4},
		BrandIDs:    []int{7},
		SkinTypeID:  domain.Int(2),
		MinPrice:    domain.Float(10),
		MaxPrice:    domain.Float(49.5),
		SortBy:      domain.SortPrice,
		SortOrder:   domain.SortOrderAsc,
	}

	assert.Equal(t,
		"page=3&limit=24&search=rose+oil&categoryIds=3,4&brandIds=7&skinTypeId=2&minPrice=10&maxPrice=49.5&sortBy=price&sortOrder=asc",
		Encode(f),
	)
}

func TestEncodeRequest_AlwaysCarriesPagination(t *testing.T) {
	assert.Equal(t, "page=1&limit=12", EncodeRequest(domain.NewFilterSet()))
}

func TestDecode_DropsMalformedValues(t *testing.T) {
	f := Decode("?page=x&limit=-3&brandIds=&skinTypeId=dry&minPrice=NaN&maxPrice=Inf&sortBy=color&sortOrder=up")

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 12, f.Limit)
	assert.Nil(t, f.BrandIDs)
	assert.Nil(t, f.SkinTypeID)
	assert.Nil(t, f.MinPrice)
	assert.Nil(t, f.MaxPrice)
	assert.Equal(t, domain.TokenRelevance, f.Sort())
	assert.True(t, f.IsCleared())
}

func TestDecode_KeepsValidIDsAmongMalformed(t *testing.T) {
	f := Decode("?categoryIds=1,abc,,2,1")

	assert.Equal(t, []int{1, 2}, f.CategoryIDs)
	assert.False(t, f.IsCleared())
	assert.Equal(t, "categoryIds=1,2", Encode(f))
}

func TestDecode_KeepsInvertedPriceForCommit(t *testing.T) {
	f := Decode("?categoryIds=3,4&minPrice=100&maxPrice=0")

	assert.Equal(t, []int{3, 4}, f.CategoryIDs)
	if assert.NotNil(t, f.MinPrice) && assert.NotNil(t, f.MaxPrice) {
		assert.Equal(t, 100.0, *f.MinPrice)
		assert.Equal(t, 0.0, *f.MaxPrice)
	}
}

func TestDecode_Sort(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  domain.SortToken
	}{
		{"absent", "", domain.TokenRelevance},
		{"explicit", "sortBy=rating&sortOrder=asc", "rating-asc"},
		{"missing order uses field default", "sortBy=price", "price-asc"},
		{"relevance never pairs", "sortBy=relevance&sortOrder=asc", domain.TokenRelevance},
		{"case insensitive", "sortBy=NEWEST&sortOrder=DESC", "newest-desc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeSort(tt.query))
		})
	}
}

func TestDecode_RepeatedKeysAndFragment(t *testing.T) {
	f := Decode("brandIds=5&brandIds=6,7&search=%20serum%20#top")

	assert.Equal(t, []int{5, 6, 7}, f.BrandIDs)
	assert.Equal(t, "serum", f.SearchQuery)
}

func TestDecode_ClampsLimit(t *testing.T) {
	assert.Equal(t, domain.MaxLimit, Decode("limit=5000").Limit)
}
