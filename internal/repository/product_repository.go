package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"storefront-catalog/internal/domain"
)

// sortColumns whitelists the columns a FilterSet may order by.
var sortColumns = map[domain.SortField]string{
	domain.SortPrice:  "p.price",
	domain.SortRating: "p.rating",
	domain.SortNewest: "p.created_at",
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	List(ctx context.Context, f domain.FilterSet) ([]domain.Product, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a product and stores the generated id on it
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	names, err := json.Marshal(product.Names)
	if err != nil {
		return fmt.Errorf("failed to encode product names: %w", err)
	}

	query := `
		INSERT INTO products (names, price, rating, category_id, brand_id, skin_type_id, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		RETURNING id, created_at
	`

	var createdAt any
	if !product.CreatedAt.IsZero() {
		createdAt = product.CreatedAt
	}

	err = r.db.QueryRowContext(
		ctx,
		query,
		names,
		product.Price,
		product.Rating,
		product.CategoryID,
		product.BrandID,
		product.SkinTypeID,
		nullString(product.ImageURL),
		createdAt,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// List returns one page of products matching f and the total match count.
// Selecting a category includes its descendants.
func (r *productRepository) List(ctx context.Context, f domain.FilterSet) ([]domain.Product, int, error) {
	f = f.Normalize()
	where, args := buildProductFilter(f)

	countQuery := "SELECT COUNT(*) FROM products p " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset, ok := pageOffset(f.Page, f.Limit)
	if !ok {
		return []domain.Product{}, total, nil
	}
	query := fmt.Sprintf(`
		SELECT p.id, p.names, p.price, p.rating, p.category_id, p.brand_id, p.skin_type_id,
		       COALESCE(p.image_url, ''), p.created_at
		FROM products p
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, orderClause(f), len(args)+1, len(args)+2)
	args = append(args, f.Limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var (
			product    domain.Product
			names      []byte
			skinTypeID sql.NullInt64
		)
		err := rows.Scan(
			&product.ID,
			&names,
			&product.Price,
			&product.Rating,
			&product.CategoryID,
			&product.BrandID,
			&skinTypeID,
			&product.ImageURL,
			&product.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		if product.Names, err = decodeNames(names); err != nil {
			return nil, 0, err
		}
		if skinTypeID.Valid {
			product.SkinTypeID = domain.Int(int(skinTypeID.Int64))
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

// pageOffset returns the row offset of page. It reports false when the offset
// does not fit in an int, which no result set can reach.
func pageOffset(page, limit int) (int, bool) {
	if page < 1 || limit < 1 {
		return 0, false
	}
	if page-1 > math.MaxInt/limit {
		return 0, false
	}
	return (page - 1) * limit, true
}

func buildProductFilter(f domain.FilterSet) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.SearchQuery != "" {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_each_text(p.names) n WHERE n.value ILIKE %s)",
			arg("%"+escapeLike(f.SearchQuery)+"%"),
		))
	}
	if len(f.CategoryIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf(`p.category_id IN (
			WITH RECURSIVE subtree AS (
				SELECT id FROM categories WHERE id = ANY(%s)
				UNION
				SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
			)
			SELECT id FROM subtree
		)`, arg(f.CategoryIDs)))
	}
	if len(f.BrandIDs) > 0 {
		conditions = append(conditions, "p.brand_id = ANY("+arg(f.BrandIDs)+")")
	}
	if f.SkinTypeID != nil {
		conditions = append(conditions, "p.skin_type_id = "+arg(*f.SkinTypeID))
	}
	if f.MinPrice != nil {
		conditions = append(conditions, "p.price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conditions = append(conditions, "p.price <= "+arg(*f.MaxPrice))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func orderClause(f domain.FilterSet) string {
	column, ok := sortColumns[f.SortBy]
	if !ok {
		return "p.created_at DESC, p.id ASC"
	}
	direction := "ASC"
	if f.SortOrder == domain.SortOrderDesc {
		direction = "DESC"
	}
	return column + " " + direction + ", p.id ASC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func decodeNames(raw []byte) (domain.LocalizedNames, error) {
	names := domain.LocalizedNames{}
	if len(raw) == 0 {
		return names, nil
	}
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("failed to decode names: %w", err)
	}
	return names, nil
}
