package webhooks

import (
	"context"

	"github.com/thatAverageGuy/configurable-agents-sub001/common/ratelimit"
)

// Limiter bounds webhook ingress throughput per provider. Grounded on the
// teacher's common/ratelimit.RateLimiter (Lua-scripted, Redis-backed),
// reused here keyed by provider name instead of by username.
type Limiter struct {
	rl        *ratelimit.RateLimiter
	perMinute int64
}

// NewLimiter wraps an existing RateLimiter with a fixed per-minute budget.
func NewLimiter(rl *ratelimit.RateLimiter, perMinute int) *Limiter {
	return &Limiter{rl: rl, perMinute: int64(perMinute)}
}

// Allow reports whether provider is within its per-minute budget. A nil
// Limiter always allows (rate limiting is optional, §4.11 config surface).
func (l *Limiter) Allow(ctx context.Context, provider string) (bool, error) {
	if l == nil || l.rl == nil {
		return true, nil
	}
	result, err := l.rl.CheckUserLimit(ctx, "webhook:"+provider, l.perMinute, 60)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}
