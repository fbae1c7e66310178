package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/smallbiznis/karat/internal/apikey/domain"
	"github.com/smallbiznis/karat/internal/auditcontext"
)

type contextKey string

const (
	contextAPIKeyIDKey   contextKey = "api_key_id"
	contextAPIKeyRoleKey contextKey = "api_key_role"
)

// APIKeyRequired resolves a Bearer API key against the stored hashes and
// attributes the rest of the request to it.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		key, err := s.apiKeySvc.Authenticate(ctx, parts[1])
		if err != nil {
			if errors.Is(err, apikeydomain.ErrInvalidAPIKey) {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			AbortWithError(c, err)
			return
		}
		if key == nil || subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(apikeydomain.HashAPIKey(parts[1]))) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx = context.WithValue(ctx, contextAPIKeyIDKey, key.ID.String())
		ctx = context.WithValue(ctx, contextAPIKeyRoleKey, key.Role)
		ctx = auditcontext.WithActor(ctx, auditcontext.ActorTypeAPIKey, key.ID.String())

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func apiKeyFromContext(ctx context.Context) (string, string, bool) {
	if ctx == nil {
		return "", "", false
	}
	id, _ := ctx.Value(contextAPIKeyIDKey).(string)
	role, _ := ctx.Value(contextAPIKeyRoleKey).(string)
	if strings.TrimSpace(id) == "" {
		return "", "", false
	}
	return id, role, true
}
