package catalog_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serroba/storefront-edge-go/internal/catalog"
	"github.com/serroba/storefront-edge-go/internal/datacache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepository struct {
	products    map[string]*catalog.Product
	arrivals    []catalog.Product
	categories  []catalog.Category
	arrivalsErr error

	arrivalCalls  atomic.Int32
	categoryCalls atomic.Int32
	lastLimits    [2]atomic.Int32
}

func (m *mockRepository) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}

	return nil, catalog.ErrNotFound
}

func (m *mockRepository) ListProductsByCategory(_ context.Context, categoryID string) ([]catalog.Product, error) {
	var out []catalog.Product

	for _, p := range m.products {
		if p.CategoryID == categoryID {
			out = append(out, *p)
		}
	}

	return out, nil
}

func (m *mockRepository) ListNewArrivals(_ context.Context, limit int) ([]catalog.Product, error) {
	m.arrivalCalls.Add(1)
	m.lastLimits[0].Store(int32(limit))

	if m.arrivalsErr != nil {
		return nil, m.arrivalsErr
	}

	return m.arrivals, nil
}

func (m *mockRepository) ListCategories(_ context.Context, limit int) ([]catalog.Category, error) {
	m.categoryCalls.Add(1)
	m.lastLimits[1].Store(int32(limit))

	return m.categories, nil
}

func testConfig() catalog.QueryConfig {
	return catalog.QueryConfig{TTL: time.Minute, MaxRetries: 1, RetryDelay: time.Millisecond}
}

func newHomeRepo() *mockRepository {
	return &mockRepository{
		arrivals:   []catalog.Product{{ID: "p1", Name: "Lamp"}, {ID: "p2", Name: "Rug"}},
		categories: []catalog.Category{{ID: "c1", Name: "Living"}},
	}
}

func TestService_Home(t *testing.T) {
	t.Run("loads both sections with their limits", func(t *testing.T) {
		repo := newHomeRepo()
		svc := catalog.NewService(repo, datacache.NewStore(), testConfig(), zap.NewNop())

		home, err := svc.Home(context.Background())

		require.NoError(t, err)
		assert.Equal(t, repo.arrivals, home.NewArrivals)
		assert.Equal(t, repo.categories, home.Categories)
		assert.Equal(t, int32(catalog.NewArrivalsLimit), repo.lastLimits[0].Load())
		assert.Equal(t, int32(catalog.HomeCategoriesLimit), repo.lastLimits[1].Load())
	})

	t.Run("serves repeat loads from the cache", func(t *testing.T) {
		repo := newHomeRepo()
		cache := datacache.NewStore()
		svc := catalog.NewService(repo, cache, testConfig(), zap.NewNop())

		_, err := svc.Home(context.Background())
		require.NoError(t, err)

		home, err := svc.Home(context.Background())

		require.NoError(t, err)
		assert.Len(t, home.NewArrivals, 2)
		assert.Equal(t, int32(1), repo.arrivalCalls.Load())
		assert.Equal(t, int32(1), repo.categoryCalls.Load())
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("reloads a section after its key is evicted", func(t *testing.T) {
		repo := newHomeRepo()
		cache := datacache.NewStore()
		svc := catalog.NewService(repo, cache, testConfig(), zap.NewNop())

		_, _ = svc.Home(context.Background())
		cache.Delete(catalog.CategoriesKey)

		_, err := svc.Home(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int32(1), repo.arrivalCalls.Load())
		assert.Equal(t, int32(2), repo.categoryCalls.Load())
	})

	t.Run("fails after retries are exhausted", func(t *testing.T) {
		repo := newHomeRepo()
		repo.arrivalsErr = errors.New("connection refused")
		cache := datacache.NewStore()
		svc := catalog.NewService(repo, cache, testConfig(), zap.NewNop())

		home, err := svc.Home(context.Background())

		assert.Nil(t, home)
		require.ErrorIs(t, err, datacache.ErrFetchFailed)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, int32(2), repo.arrivalCalls.Load())

		_, cachedArrivals := cache.Get(catalog.NewArrivalsKey)
		assert.False(t, cachedArrivals)
	})
}

func TestService_Product(t *testing.T) {
	repo := &mockRepository{products: map[string]*catalog.Product{
		"p1": {ID: "p1", Name: "Lamp", CategoryID: "c1"},
		"p2": {ID: "p2", Name: "Rug", CategoryID: "c2"},
	}}
	svc := catalog.NewService(repo, datacache.NewStore(), testConfig(), zap.NewNop())

	t.Run("returns the product", func(t *testing.T) {
		p, err := svc.Product(context.Background(), "p1")

		require.NoError(t, err)
		assert.Equal(t, "Lamp", p.Name)
	})

	t.Run("returns ErrNotFound for unknown ids", func(t *testing.T) {
		_, err := svc.Product(context.Background(), "nope")

		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("lists products of a category", func(t *testing.T) {
		products, err := svc.CategoryProducts(context.Background(), "c2")

		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "p2", products[0].ID)
	})
}

func TestDefaultQueryConfig(t *testing.T) {
	cfg := catalog.DefaultQueryConfig()

	assert.Equal(t, 5*time.Minute, cfg.TTL)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
}
