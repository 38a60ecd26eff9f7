package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/serroba/storefront-edge-go/internal/datacache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Cache keys of the home page sections. Everything under HomeKeyPrefix
// can be evicted at once.
const (
	HomeKeyPrefix  = "home:"
	NewArrivalsKey = HomeKeyPrefix + "new-arrivals"
	CategoriesKey  = HomeKeyPrefix + "categories"

	NewArrivalsLimit    = 8
	HomeCategoriesLimit = 6
)

// QueryConfig tunes how cached sections are loaded.
type QueryConfig struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultQueryConfig mirrors datacache.DefaultOptions.
func DefaultQueryConfig() QueryConfig {
	d := datacache.DefaultOptions[any]()

	return QueryConfig{
		TTL:        d.TTL,
		MaxRetries: d.MaxRetries,
		RetryDelay: d.RetryDelay,
	}
}

// Service serves catalog reads. Home page sections go through the shared cache;
// single product and category listings always hit the repository.
type Service struct {
	repo   Repository
	cache  *datacache.Store
	config QueryConfig
	logger *zap.Logger
}

// NewService creates a new catalog service.
func NewService(repo Repository, cache *datacache.Store, config QueryConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		config: config,
		logger: logger,
	}
}

func (s *Service) Product(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CategoryProducts(ctx context.Context, categoryID string) ([]Product, error) {
	return s.repo.ListProductsByCategory(ctx, categoryID)
}

// Home loads the new arrivals and category sections concurrently.
func (s *Service) Home(ctx context.Context) (*Home, error) {
	var home Home

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		products, err := cached(gctx, s, NewArrivalsKey, func(ctx context.Context) ([]Product, error) {
			return s.repo.ListNewArrivals(ctx, NewArrivalsLimit)
		})
		if err != nil {
			return fmt.Errorf("load new arrivals: %w", err)
		}

		home.NewArrivals = products

		return nil
	})

	g.Go(func() error {
		categories, err := cached(gctx, s, CategoriesKey, func(ctx context.Context) ([]Category, error) {
			return s.repo.ListCategories(ctx, HomeCategoriesLimit)
		})
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}

		home.Categories = categories

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &home, nil
}

// cached runs fetch through a one-shot query bound to key.
func cached[T any](ctx context.Context, s *Service, key string, fetch datacache.Fetcher[T]) (T, error) {
	q := datacache.New(s.cache, fetch, s.logger, datacache.Options[T]{
		CacheKey:   key,
		TTL:        s.config.TTL,
		MaxRetries: s.config.MaxRetries,
		RetryDelay: s.config.RetryDelay,
	})
	defer q.Close()

	q.Load()

	return q.Await(ctx)
}
