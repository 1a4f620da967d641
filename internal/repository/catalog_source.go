package repository

import (
	"context"

	"storefront-catalog/internal/domain"
)

// CatalogSource serves product lists and facets straight from Postgres. It
// satisfies the fetchers a session needs when no remote catalog is configured.
type CatalogSource struct {
	products ProductRepository
	facets   FacetRepository
}

// NewCatalogSource creates a CatalogSource.
func NewCatalogSource(products ProductRepository, facets FacetRepository) *CatalogSource {
	return &CatalogSource{products: products, facets: facets}
}

// FetchProducts lists the products matching f.
func (s *CatalogSource) FetchProducts(ctx context.Context, f domain.FilterSet) (domain.ProductList, error) {
	items, total, err := s.products.List(ctx, f)
	if err != nil {
		return domain.ProductList{}, err
	}
	return domain.ProductList{Items: items, Total: total}, nil
}

// FetchFacets loads the category tree and brand list.
func (s *CatalogSource) FetchFacets(ctx context.Context) (domain.FacetCatalog, error) {
	categories, err := s.facets.CategoryTree(ctx)
	if err != nil {
		return domain.FacetCatalog{}, err
	}
	brands, err := s.facets.ListBrands(ctx)
	if err != nil {
		return domain.FacetCatalog{}, err
	}
	return domain.FacetCatalog{Categories: categories, Brands: brands}, nil
}
