package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a product or category does not exist.
var ErrNotFound = errors.New("not found")

// Product is a catalog item with English and Arabic copy.
type Product struct {
	ID            string
	Name          string
	NameAR        string
	Description   string
	DescriptionAR string
	Price         float64
	OriginalPrice float64 // zero when the product is not discounted
	ImageURL      string
	CategoryID    string
	CreatedAt     time.Time
}

// Category groups products.
type Category struct {
	ID            string
	Name          string
	NameAR        string
	Description   string
	DescriptionAR string
	ImageURL      string
}

// Home holds the sections of the storefront landing page.
type Home struct {
	NewArrivals []Product
	Categories  []Category
}

// Repository reads the catalog.
type Repository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProductsByCategory(ctx context.Context, categoryID string) ([]Product, error)
	// ListNewArrivals returns the most recently created products first.
	ListNewArrivals(ctx context.Context, limit int) ([]Product, error)
	ListCategories(ctx context.Context, limit int) ([]Category, error)
}
