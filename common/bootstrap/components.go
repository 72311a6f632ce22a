package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/cache"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/config"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/db"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/logger"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/ratelimit"
	"github.com/thatAverageGuy/configurable-agents-sub001/common/telemetry"
)

// Components holds all initialized service dependencies. This swaps the
// teacher's Queue field for this domain's RateLimiter (fronting the
// Webhook Ingress's per-provider limiting) and Breaker (a gobreaker.Settings
// template built from the orchestrator config; orchestrator.Service builds
// its own per-connection breakers and does not read this field), since this
// spec has no distributed-worker dispatch to queue onto.
type Components struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *db.DB
	Redis       *redis.Client
	RateLimiter *ratelimit.RateLimiter
	Breaker     gobreaker.Settings
	Cache       cache.Cache
	Telemetry   *telemetry.Telemetry

	// Internal
	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errors []error

	// Run cleanup functions in reverse order (LIFO)
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errors = append(errors, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("shutdown errors: %v", errors)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks health of all components
func (c *Components) Health(ctx context.Context) error {
	// Check database
	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return fmt.Errorf("database unhealthy: %w", err)
		}
	}

	// Redis health check
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}
	// Cache health check (memory cache is always healthy)

	return nil
}

// addCleanup registers a cleanup function
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
