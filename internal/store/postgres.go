package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/storefront-edge-go/internal/catalog"
)

const productColumns = `id, name, name_ar, description, description_ar, price, original_price, image_url, category_id, created_at`

// PostgresStore is a PostgreSQL implementation of catalog.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed catalog store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}

		return nil, err
	}

	return &product, nil
}

func (p *PostgresStore) ListProductsByCategory(ctx context.Context, categoryID string) ([]catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE category_id = $1`

	return p.queryProducts(ctx, query, categoryID)
}

func (p *PostgresStore) ListNewArrivals(ctx context.Context, limit int) ([]catalog.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY created_at DESC
		LIMIT $1
	`

	return p.queryProducts(ctx, query, limit)
}

func (p *PostgresStore) ListCategories(ctx context.Context, limit int) ([]catalog.Category, error) {
	query := `
		SELECT id, name, name_ar, description, description_ar, image_url
		FROM categories
		LIMIT $1
	`

	rows, err := p.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var (
			c                              catalog.Category
			nameAR, desc, descAR, imageURL *string
		)

		err := row.Scan(&c.ID, &c.Name, &nameAR, &desc, &descAR, &imageURL)
		c.NameAR = deref(nameAR)
		c.Description = deref(desc)
		c.DescriptionAR = deref(descAR)
		c.ImageURL = deref(imageURL)

		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return categories, nil
}

func (p *PostgresStore) queryProducts(ctx context.Context, query string, args ...any) ([]catalog.Product, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	return products, nil
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var (
		product                               catalog.Product
		nameAR, desc, descAR, imageURL, catID *string
		originalPrice                         *float64
	)

	err := row.Scan(
		&product.ID,
		&product.Name,
		&nameAR,
		&desc,
		&descAR,
		&product.Price,
		&originalPrice,
		&imageURL,
		&catID,
		&product.CreatedAt,
	)
	if err != nil {
		return catalog.Product{}, err
	}

	product.NameAR = deref(nameAR)
	product.Description = deref(desc)
	product.DescriptionAR = deref(descAR)
	product.ImageURL = deref(imageURL)
	product.CategoryID = deref(catID)

	if originalPrice != nil {
		product.OriginalPrice = *originalPrice
	}

	return product, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

var _ catalog.Repository = (*PostgresStore)(nil)
