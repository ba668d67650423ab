package testutil

import (
	"context"
	"net/http"
	"time"

	id "purposepay/pkg/domain"
	"purposepay/pkg/requestcontext"
)

// WithCaller adds an authenticated caller to the request context.
// This simulates what the admin or bearer middleware would do.
// If hex is not a valid address, the request is returned unchanged.
func WithCaller(req *http.Request, hex string) *http.Request {
	addr, err := id.ParseAddress(hex)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), addr))
}

// CallerContext returns ctx carrying addr as the caller.
func CallerContext(ctx context.Context, addr id.Address) context.Context {
	return requestcontext.WithCaller(ctx, addr)
}

// FixedTimeContext pins requestcontext.Now for deterministic timestamps.
func FixedTimeContext(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
