package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/target/mmk-admin-console/internal/adapters/flash"
)

// requestIDKey is an unexported context key type to avoid collisions across packages.
type requestIDKey struct{}

// WithRequestID stores the request correlation id in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request correlation id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// applyFlash copies a scope's redirect and notices onto response headers.
func applyFlash(h http.Header, scope *flash.Scope) {
	if scope == nil {
		return
	}
	if target := scope.Redirect(); target != "" {
		h.Set(HeaderRedirect, target)
	}
	for _, n := range scope.Notices() {
		b, err := json.Marshal(n)
		if err != nil {
			continue
		}
		h.Add(HeaderNotice, string(b))
	}
}
