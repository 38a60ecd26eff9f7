package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/storefront-edge-go/internal/catalog"
	"github.com/serroba/storefront-edge-go/internal/datacache"
	"github.com/serroba/storefront-edge-go/internal/invalidation"
	"github.com/serroba/storefront-edge-go/internal/messaging"
	"github.com/serroba/storefront-edge-go/internal/metrics"
	"github.com/serroba/storefront-edge-go/internal/ratelimit"
	"github.com/serroba/storefront-edge-go/internal/store"
	"go.uber.org/zap"
)

const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"

	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

//nolint:lll
type Options struct {
	Port             int    `default:"8888"           help:"Port to listen on"                                              short:"p"`
	RedisAddr        string `default:"localhost:6379" help:"Redis server address"                                           short:"r"`
	DatabaseURL      string `default:""               help:"PostgreSQL URL; empty serves the catalog from memory"          short:"d"`
	LogFormat        string `default:"console"        help:"Log format: console or json"`
	RateLimitStore   string `default:"memory"         help:"Rate limit counters: memory (per process) or redis (shared)"`
	RateLimitMaxKeys int    `default:"100000"         help:"Client keys kept by the memory rate limit store"`
	CacheTTLSeconds  int    `default:"300"            help:"Seconds a cached home page section is served"`
	FetchRetries     int    `default:"3"              help:"Retries after a failed catalog fetch"`
	FetchRetryDelay  int    `default:"1000"           help:"Milliseconds between fetch retries"`
	Invalidation     bool   `default:"true"           help:"Subscribe to catalog cache invalidation events"`
}

// InvalidateOptions configures the invalidation publisher command.
//
//nolint:lll
type InvalidateOptions struct {
	RedisAddr string `default:"localhost:6379" help:"Redis server address"                 short:"r"`
	LogFormat string `default:"console"        help:"Log format: console or json"`
	Source    string `default:"cli"            help:"Who is asking for the invalidation"   short:"s"`
	Keys      string `default:""               help:"Comma-separated cache keys to evict"  short:"k"`
	Prefixes  string `default:""               help:"Comma-separated key prefixes to evict"`
}

// QueryConfig converts the fetch options for the catalog service.
func (o *Options) QueryConfig() catalog.QueryConfig {
	return catalog.QueryConfig{
		TTL:        time.Duration(o.CacheTTLSeconds) * time.Second,
		MaxRetries: o.FetchRetries,
		RetryDelay: time.Duration(o.FetchRetryDelay) * time.Millisecond,
	}
}

// RedisClient owns the shared Redis connection pool.
type RedisClient struct {
	*redis.Client
}

func (r *RedisClient) Shutdown() error {
	return r.Close()
}

// PostgresPool owns the catalog connection pool.
type PostgresPool struct {
	*pgxpool.Pool
}

func (p *PostgresPool) Shutdown() error {
	p.Close()

	return nil
}

// LoggerPackage provides the process logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.LogFormat {
		case LogFormatJSON:
			return zap.NewProduction()
		case LogFormatConsole, "":
			return zap.NewDevelopment()
		default:
			return nil, fmt.Errorf("unknown log format %q", opts.LogFormat)
		}
	})
}

func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)

		pool, err := pgxpool.New(context.Background(), opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return &PostgresPool{Pool: pool}, nil
	})
}

// RepositoryPackage provides the catalog repository: PostgreSQL when a
// database URL is configured, memory otherwise.
func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (catalog.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.DatabaseURL == "" {
			do.MustInvoke[*zap.Logger](i).Warn("no database configured, serving catalog from memory")

			return store.NewMemoryStore(), nil
		}

		pool, err := do.Invoke[*PostgresPool](i)
		if err != nil {
			return nil, err
		}

		return store.NewPostgresStore(pool.Pool), nil
	})
}

func MetricsPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(), nil
	})
}

// DataCachePackage provides the process-wide data cache and the catalog service reading through it.
func DataCachePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*datacache.Store, error) {
		m := do.MustInvoke[*metrics.Metrics](i)

		return datacache.NewStore(datacache.WithObserver(m)), nil
	})

	do.Provide(i, func(i *do.Injector) (*catalog.Service, error) {
		opts := do.MustInvoke[*Options](i)

		return catalog.NewService(
			do.MustInvoke[catalog.Repository](i),
			do.MustInvoke[*datacache.Store](i),
			opts.QueryConfig(),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// RateLimitPackage provides the edge limiter with the fixed window and request budget.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Store, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.RateLimitStore {
		case RateLimitStoreRedis:
			client := do.MustInvoke[*RedisClient](i)

			return store.NewRateLimitRedisStore(client.Client), nil
		case RateLimitStoreMemory, "":
			return store.NewRateLimitMemoryStore(
				ratelimit.DefaultWindow,
				store.WithMaxKeys(opts.RateLimitMaxKeys),
			), nil
		default:
			return nil, fmt.Errorf("unknown rate limit store %q", opts.RateLimitStore)
		}
	})

	do.Provide(i, func(i *do.Injector) (ratelimit.Limiter, error) {
		return ratelimit.NewFixedWindowLimiter(
			do.MustInvoke[ratelimit.Store](i),
			ratelimit.DefaultMaxRequests,
			ratelimit.DefaultWindow,
		), nil
	})
}

// PublisherGroupPackage provides the Redis stream publisher and the invalidation publisher on top of it.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*RedisClient](i)

		publisher, err := messaging.NewRedisPublisher(client.Client, do.MustInvoke[*zap.Logger](i))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (*invalidation.Publisher, error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return invalidation.NewPublisher(group.Publisher(), do.MustInvoke[*InvalidateOptions](i).Source), nil
	})
}

// ConsumerGroupPackage subscribes this process to invalidation events under its own consumer group.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		groupName, err := invalidation.ConsumerGroupName()
		if err != nil {
			return nil, err
		}

		subscriber, err := messaging.NewRedisSubscriber(client.Client, groupName, logger)
		if err != nil {
			return nil, err
		}

		handler := invalidation.NewHandler(
			do.MustInvoke[*datacache.Store](i),
			logger,
			invalidation.WithEvictionObserver(do.MustInvoke[*metrics.Metrics](i)),
		)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, invalidation.TopicCacheInvalidated, handler, logger))

		logger.Info("invalidation consumer group configured", zap.String("group", groupName))

		return group, nil
	})
}
