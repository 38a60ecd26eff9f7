package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/storefront-edge-go/internal/catalog"
	"github.com/serroba/storefront-edge-go/internal/handlers"
	"github.com/serroba/storefront-edge-go/internal/health"
	"github.com/serroba/storefront-edge-go/internal/metrics"
	"github.com/serroba/storefront-edge-go/internal/middleware"
	"github.com/serroba/storefront-edge-go/internal/ratelimit"
	"go.uber.org/zap"
)

// HTTPPackage provides the router with the edge chain installed and the huma API on top of it.
// Invoking huma.API registers every route.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*chi.Mux, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		m := do.MustInvoke[*metrics.Metrics](i)

		router := chi.NewMux()
		router.Use(
			middleware.RateLimit(do.MustInvoke[ratelimit.Limiter](i), m, logger),
			middleware.BlockSensitiveFiles,
			middleware.SecurityHeaders,
		)
		router.Handle("/metrics", m.Handler())

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)

		api := humachi.New(router, huma.DefaultConfig("Storefront", "1.0.0"))

		catalogHandler := handlers.NewCatalogHandler(do.MustInvoke[*catalog.Service](i), logger)
		handlers.RegisterRoutes(api, catalogHandler)
		health.RegisterRoutes(api, health.NewHandler(healthDependencies(i)...))

		return api, nil
	})
}

func healthDependencies(i *do.Injector) []health.Dependency {
	opts := do.MustInvoke[*Options](i)
	redisClient := do.MustInvoke[*RedisClient](i)

	deps := []health.Dependency{
		{Name: "redis", Checker: health.NewRedisChecker(redisClient.Client)},
	}

	if opts.DatabaseURL != "" {
		deps = append(deps, health.Dependency{Name: "postgres", Checker: do.MustInvoke[*PostgresPool](i).Pool})
	}

	return deps
}
