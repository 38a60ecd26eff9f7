package main

import (
	"context"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/samber/do"
	"github.com/serroba/storefront-edge-go/internal/container"
	"github.com/serroba/storefront-edge-go/internal/invalidation"
	"go.uber.org/zap"
)

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *container.InvalidateOptions) {
		hooks.OnStart(func() {
			injector := do.New()
			do.ProvideValue(injector, options)
			do.ProvideValue(injector, &container.Options{
				RedisAddr: options.RedisAddr,
				LogFormat: options.LogFormat,
			})
			container.LoggerPackage(injector)
			container.RedisPackage(injector)
			container.PublisherGroupPackage(injector)

			logger := do.MustInvoke[*zap.Logger](injector)
			publisher := do.MustInvoke[*invalidation.Publisher](injector)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			event, err := publisher.Invalidate(ctx, splitList(options.Keys), splitList(options.Prefixes))
			if err != nil {
				logger.Fatal("failed to publish invalidation", zap.Error(err))
			}

			logger.Info("invalidation published",
				zap.String("event_id", event.ID),
				zap.Strings("keys", event.Keys),
				zap.Strings("prefixes", event.Prefixes),
			)

			if err := injector.Shutdown(); err != nil {
				logger.Error("shutdown error", zap.Error(err))
			}
		})
	})

	cli.Run()
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
