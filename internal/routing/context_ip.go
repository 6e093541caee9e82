package routing

import (
	"context"
)

// clientIPKey carries the webhook sender's address down to the screen so a
// blocked call can be traced back to the trunk that sent it.
type clientIPKey struct{}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFromContext(ctx context.Context) string {
	v := ctx.Value(clientIPKey{})
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
