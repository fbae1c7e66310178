package auditcontext

import (
	"context"
	"strconv"
	"strings"
)

const (
	ActorTypeSystem = "system"
	ActorTypeAPIKey = "api_key"
)

type actorKey struct{}
type requestIDKey struct{}
type ipAddressKey struct{}

type actor struct {
	Type string
	ID   string
}

// WithActor attributes subsequent audit entries to the given actor.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{
		Type: strings.TrimSpace(actorType),
		ID:   strings.TrimSpace(actorID),
	})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	if value, ok := ctx.Value(actorKey{}).(actor); ok {
		return value.Type, value.ID
	}
	return "", ""
}

// ActorIDFromContext returns the numeric actor id, 0 for system or unknown actors.
func ActorIDFromContext(ctx context.Context) int64 {
	actorType, actorID := ActorFromContext(ctx)
	if actorType == "" || actorType == ActorTypeSystem || actorID == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(actorID, 10, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipAddressKey{}, strings.TrimSpace(ip))
}

func IPAddressFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(ipAddressKey{}).(string)
	return value
}
