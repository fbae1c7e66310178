package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	"github.com/smallbiznis/karat/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	HeaderCartSubtotal = "X-Cart-Subtotal"
	queryCartSubtotal  = "cart_subtotal"
)

// CartSubtotal places the shopper's cart subtotal on the request context for
// order_total rules. A missing or malformed value counts as an empty cart.
func CartSubtotal() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderCartSubtotal))
		if raw == "" {
			raw = strings.TrimSpace(c.Query(queryCartSubtotal))
		}
		if raw != "" {
			subtotal, err := decimal.NewFromString(raw)
			if err == nil && !subtotal.IsNegative() {
				ctx := catalogdomain.WithCartSubtotal(c.Request.Context(), subtotal)
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	}
}

// throttle spends one public token bucket slot per request for the action,
// keyed by client address.
func (s *Server) throttle(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.publicLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.publicLimiter.Allow(ctx, action, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("public rate limit check failed", zap.String("action", action), zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retry := int(result.RetryAfter.Seconds())
			if retry < 1 {
				retry = 1
			}
			logger.FromContext(ctx).Warn("public rate limit exceeded",
				zap.String("action", action),
				zap.String("endpoint", c.FullPath()),
			)
			c.Header("Retry-After", strconv.Itoa(retry))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
