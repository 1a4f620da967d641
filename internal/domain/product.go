package domain

import "time"

// Product represents a product card in a result page
type Product struct {
	ID         int            `json:"id"`
	Names      LocalizedNames `json:"names"`
	Price      float64        `json:"price"`
	Rating     float64        `json:"rating"`
	CategoryID int            `json:"categoryId"`
	BrandID    int            `json:"brandId"`
	SkinTypeID *int           `json:"skinTypeId,omitempty"`
	ImageURL   string         `json:"imageUrl,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// ProductList is the raw answer of a product list request.
type ProductList struct {
	Items []Product `json:"items"`
	Total int       `json:"total"`
}

// ResultPage is a product list bound to the FilterSet that produced it.
type ResultPage struct {
	Filter FilterSet `json:"filter"`
	Items  []Product `json:"items"`
	Total  int       `json:"total"`
}
