package blogauth

import "context"

type ctxKey int

const clientIPKey ctxKey = iota

// WithClientIP attaches the caller's IP address to ctx. The Engine copies it
// into every audit event emitted for the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if ip, ok := ctx.Value(clientIPKey).(string); ok {
		return ip
	}
	return ""
}
