package domain

// Dimension names one removable filter dimension.
type Dimension string

const (
	DimensionSearch     Dimension = "search"
	DimensionCategories Dimension = "categories"
	DimensionBrands     Dimension = "brands"
	DimensionPrice      Dimension = "price"
)

// Dimensions lists the removable dimensions in display order.
var Dimensions = []Dimension{
	DimensionSearch,
	DimensionCategories,
	DimensionBrands,
	DimensionPrice,
}

// ParseDimension validates a dimension key.
func ParseDimension(raw string) (Dimension, bool) {
	for _, d := range Dimensions {
		if string(d) == raw {
			return d, true
		}
	}
	return "", false
}

// FilterPill is a removable chip summarizing one active filter dimension.
type FilterPill struct {
	Key   Dimension `json:"key"`
	Label string    `json:"label"`
	Value string    `json:"value"`
}
