// Package pills derives the removable "active filter" chips shown above the
// product list.
package pills

import (
	"slices"
	"strconv"
	"strings"

	"storefront-catalog/internal/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultPriceCeiling is shown as the upper bound of an open price range.
const DefaultPriceCeiling = 1000000

var labels = map[string]map[domain.Dimension]string{
	"en": {
		domain.DimensionSearch:     "Search",
		domain.DimensionCategories: "Categories",
		domain.DimensionBrands:     "Brands",
		domain.DimensionPrice:      "Price",
	},
	"ru": {
		domain.DimensionSearch:     "Поиск",
		domain.DimensionCategories: "Категории",
		domain.DimensionBrands:     "Бренды",
		domain.DimensionPrice:      "Цена",
	},
	"uz": {
		domain.DimensionSearch:     "Qidiruv",
		domain.DimensionCategories: "Kategoriyalar",
		domain.DimensionBrands:     "Brendlar",
		domain.DimensionPrice:      "Narx",
	},
}

var supported = []language.Tag{language.English, language.Russian, language.Uzbek}

// Projector turns a committed FilterSet into pills. It holds only
// configuration; Project is a pure function of its arguments.
type Projector struct {
	fallback     language.Tag
	matcher      language.Matcher
	priceCeiling float64
}

// NewProjector creates a projector. defaultLocale is used when a request
// locale cannot be matched; priceCeiling is displayed for a missing maximum.
func NewProjector(defaultLocale string, priceCeiling float64) *Projector {
	if priceCeiling <= 0 {
		priceCeiling = DefaultPriceCeiling
	}
	matcher := language.NewMatcher(supported)
	fallback, _, _ := matcher.Match(language.Make(defaultLocale))
	return &Projector{
		fallback:     baseTag(fallback),
		matcher:      matcher,
		priceCeiling: priceCeiling,
	}
}

// Project returns one pill per active dimension in the fixed order search,
// categories, brands, price.
func (p *Projector) Project(f domain.FilterSet, catalog domain.FacetCatalog, locale string) []domain.FilterPill {
	tag := p.resolve(locale)
	text, ok := labels[tag.String()]
	if !ok {
		text = labels["en"]
	}
	pills := make([]domain.FilterPill, 0, len(domain.Dimensions))

	if q := strings.TrimSpace(f.SearchQuery); q != "" {
		pills = append(pills, domain.FilterPill{
			Key:   domain.DimensionSearch,
			Label: text[domain.DimensionSearch],
			Value: q,
		})
	}

	if ids := domain.NormalizeIDs(f.CategoryIDs); len(ids) > 0 {
		pills = append(pills, domain.FilterPill{
			Key:   domain.DimensionCategories,
			Label: text[domain.DimensionCategories],
			Value: joinNames(ids, func(id int) (domain.LocalizedNames, bool) {
				c, ok := catalog.FindCategory(id)
				return c.Names, ok
			}, tag, p.fallback),
		})
	}

	if ids := domain.NormalizeIDs(f.BrandIDs); len(ids) > 0 {
		pills = append(pills, domain.FilterPill{
			Key:   domain.DimensionBrands,
			Label: text[domain.DimensionBrands],
			Value: joinNames(ids, func(id int) (domain.LocalizedNames, bool) {
				b, ok := catalog.FindBrand(id)
				return b.Names, ok
			}, tag, p.fallback),
		})
	}

	if f.HasPrice() {
		// Display defaults only; f is not modified.
		lo, hi := 0.0, p.priceCeiling
		if f.MinPrice != nil {
			lo = *f.MinPrice
		}
		if f.MaxPrice != nil {
			hi = *f.MaxPrice
		}
		printer := message.NewPrinter(tag)
		pills = append(pills, domain.FilterPill{
			Key:   domain.DimensionPrice,
			Label: text[domain.DimensionPrice],
			Value: printer.Sprintf("%v - %v", number.Decimal(lo), number.Decimal(hi)),
		})
	}

	return pills
}

func (p *Projector) resolve(locale string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return p.fallback
	}
	tag, _, confidence := p.matcher.Match(tags...)
	if confidence == language.No {
		return p.fallback
	}
	return baseTag(tag)
}

// baseTag strips region and script so the tag can index the label table.
func baseTag(tag language.Tag) language.Tag {
	base, _ := tag.Base()
	t, err := language.Compose(base)
	if err != nil {
		return language.English
	}
	return t
}

// joinNames lists names in id order. When no id resolves to a name the raw
// ids are joined by bare commas, matching their query-string form.
func joinNames(ids []int, lookup func(int) (domain.LocalizedNames, bool), tag, fallback language.Tag) string {
	parts := make([]string, 0, len(ids))
	resolved := 0
	for _, id := range ids {
		names, ok := lookup(id)
		name := ""
		if ok {
			name = localized(names, tag, fallback)
		}
		if name == "" {
			name = strconv.Itoa(id)
		} else {
			resolved++
		}
		parts = append(parts, name)
	}
	if resolved == 0 {
		return strings.Join(parts, ",")
	}
	return strings.Join(parts, ", ")
}

// localized picks the name for tag, then fallback, then the first name in
// key order.
func localized(names domain.LocalizedNames, tag, fallback language.Tag) string {
	for _, t := range []language.Tag{tag, fallback} {
		if n := names[t.String()]; n != "" {
			return n
		}
	}
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if names[k] != "" {
			return names[k]
		}
	}
	return ""
}
