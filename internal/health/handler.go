package health

import (
	"context"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	healthy        = "healthy"
	unhealthy      = "unhealthy"

	checkTimeout = 2 * time.Second
)

// Checker defines the interface for checking service health.
// *pgxpool.Pool satisfies it directly.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts redis.Client to Checker interface.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Dependency is a named backing service.
type Dependency struct {
	Name    string
	Checker Checker
}

// Handler handles health check operations.
type Handler struct {
	deps []Dependency
}

// NewHandler creates a new health handler over deps.
func NewHandler(deps ...Dependency) *Handler {
	return &Handler{deps: deps}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status string            `doc:"ok when every dependency answers, degraded otherwise" json:"status"`
		Checks map[string]string `doc:"healthy or unhealthy per dependency"                  json:"checks"`
	}
}

// Check pings every dependency concurrently. The endpoint itself always answers 200.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		g      errgroup.Group
		checks = make(map[string]string, len(h.deps))
	)

	for _, dep := range h.deps {
		g.Go(func() error {
			result := healthy
			if err := dep.Checker.Ping(ctx); err != nil {
				result = unhealthy
			}

			mu.Lock()
			checks[dep.Name] = result
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	resp := &Response{}
	resp.Body.Status = statusOK
	resp.Body.Checks = checks

	for _, result := range checks {
		if result == unhealthy {
			resp.Body.Status = statusDegraded
		}
	}

	return resp, nil
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Service health",
		Tags:        []string{"Health"},
	}, h.Check)
}
