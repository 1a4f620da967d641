package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"storefront-catalog/internal/domain"
)

// FacetRepository defines the interface for category and brand data access
type FacetRepository interface {
	CreateCategory(ctx context.Context, category *domain.Category) error
	CreateBrand(ctx context.Context, brand *domain.Brand) error
	CategoryTree(ctx context.Context) ([]domain.Category, error)
	ListBrands(ctx context.Context) ([]domain.Brand, error)
}

type facetRepository struct {
	db *sql.DB
}

// NewFacetRepository creates a new instance of FacetRepository
func NewFacetRepository(db *sql.DB) FacetRepository {
	return &facetRepository{db: db}
}

// CreateCategory inserts a category under category.ParentID
func (r *facetRepository) CreateCategory(ctx context.Context, category *domain.Category) error {
	names, err := json.Marshal(category.Names)
	if err != nil {
		return fmt.Errorf("failed to encode category names: %w", err)
	}

	query := `INSERT INTO categories (parent_id, names) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, category.ParentID, names).Scan(&category.ID); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// CreateBrand inserts a brand
func (r *facetRepository) CreateBrand(ctx context.Context, brand *domain.Brand) error {
	names, err := json.Marshal(brand.Names)
	if err != nil {
		return fmt.Errorf("failed to encode brand names: %w", err)
	}

	query := `INSERT INTO brands (names) VALUES ($1) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, names).Scan(&brand.ID); err != nil {
		return fmt.Errorf("failed to create brand: %w", err)
	}
	return nil
}

// CategoryTree loads every category and nests children under their parents.
// Categories whose parent is missing are returned as roots.
func (r *facetRepository) CategoryTree(ctx context.Context) ([]domain.Category, error) {
	query := `
		SELECT id, parent_id, names
		FROM categories
		ORDER BY position ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	flat := []domain.Category{}
	for rows.Next() {
		var (
			category domain.Category
			parentID sql.NullInt64
			names    []byte
		)
		if err := rows.Scan(&category.ID, &parentID, &names); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if category.Names, err = decodeNames(names); err != nil {
			return nil, err
		}
		if parentID.Valid {
			category.ParentID = domain.Int(int(parentID.Int64))
		}
		flat = append(flat, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return buildTree(flat), nil
}

// ListBrands retrieves all brands
func (r *facetRepository) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, names FROM brands ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	brands := []domain.Brand{}
	for rows.Next() {
		var (
			brand domain.Brand
			names []byte
		)
		if err := rows.Scan(&brand.ID, &names); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		if brand.Names, err = decodeNames(names); err != nil {
			return nil, err
		}
		brands = append(brands, brand)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating brands: %w", err)
	}

	return brands, nil
}

// buildTree nests a flat, ordered category list. Sibling order follows the
// input order.
func buildTree(flat []domain.Category) []domain.Category {
	known := make(map[int]bool, len(flat))
	children := make(map[int][]domain.Category)
	for _, c := range flat {
		known[c.ID] = true
	}

	var roots []domain.Category
	for _, c := range flat {
		if c.ParentID != nil && known[*c.ParentID] && *c.ParentID != c.ID {
			children[*c.ParentID] = append(children[*c.ParentID], c)
			continue
		}
		roots = append(roots, c)
	}

	var attach func(nodes []domain.Category, depth int) []domain.Category
	attach = func(nodes []domain.Category, depth int) []domain.Category {
		if depth > len(flat) {
			return nodes
		}
		for i := range nodes {
			if kids, ok := children[nodes[i].ID]; ok {
				nodes[i].Children = attach(kids, depth+1)
			}
		}
		return nodes
	}

	if roots == nil {
		return []domain.Category{}
	}
	return attach(roots, 0)
}
