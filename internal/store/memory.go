package store

import (
	"context"
	"sort"
	"sync"

	"github.com/serroba/storefront-edge-go/internal/catalog"
)

// MemoryStore is an in-memory implementation of catalog.Repository.
// Used when no database is configured and in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	products   map[string]catalog.Product
	categories []catalog.Category
}

// NewMemoryStore creates a new in-memory catalog store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]catalog.Product),
	}
}

// SaveProduct inserts or replaces a product.
func (m *MemoryStore) SaveProduct(_ context.Context, p catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products[p.ID] = p

	return nil
}

// SaveCategory inserts or replaces a category. Categories keep insertion order.
func (m *MemoryStore) SaveCategory(_ context.Context, c catalog.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.categories {
		if m.categories[i].ID == c.ID {
			m.categories[i] = c

			return nil
		}
	}

	m.categories = append(m.categories, c)

	return nil
}

func (m *MemoryStore) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}

	return &p, nil
}

func (m *MemoryStore) ListProductsByCategory(_ context.Context, categoryID string) ([]catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]catalog.Product, 0)

	for _, p := range m.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *MemoryStore) ListNewArrivals(_ context.Context, limit int) ([]catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]catalog.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}

		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (m *MemoryStore) ListCategories(_ context.Context, limit int) ([]catalog.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.categories)
	if limit >= 0 && n > limit {
		n = limit
	}

	out := make([]catalog.Category, n)
	copy(out, m.categories)

	return out, nil
}

var _ catalog.Repository = (*MemoryStore)(nil)
