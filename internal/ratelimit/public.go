package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/karat/internal/config"
)

const keyPublicAction = "karat:public:%s:%s"

// PublicLimiter throttles anonymous storefront actions per client address.
type PublicLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewPublicLimiter returns nil when throttling is disabled or redis is absent.
func NewPublicLimiter(cfg config.Config, client *redis.Client) *PublicLimiter {
	if !cfg.RateLimit.Enabled || client == nil {
		return nil
	}
	if cfg.RateLimit.PublicRate <= 0 || cfg.RateLimit.PublicBurst <= 0 {
		return nil
	}
	return &PublicLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.PublicRate,
		burst:  cfg.RateLimit.PublicBurst,
	}
}

func (l *PublicLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one token for the action from the given client.
func (l *PublicLimiter) Allow(ctx context.Context, action, clientIP string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyPublicAction, strings.TrimSpace(action), strings.TrimSpace(clientIP))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
