package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purposepay/internal/ratelimit/models"
	"purposepay/internal/ratelimit/store/bucket"
	"purposepay/pkg/platform/circuit"
)

type failingStore struct {
	failing bool
	calls   int
	next    BucketStore
}

func (f *failingStore) Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	f.calls++
	if f.failing {
		return nil, errors.New("redis: connection refused")
	}
	return f.next.Allow(ctx, key, limit)
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.RemoteAddr = ip + ":41000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func limits(n int) map[models.Class]models.Limit {
	return map[models.Class]models.Limit{
		models.ClassRead: {RequestsPerWindow: n, Window: time.Minute},
	}
}

func TestRateLimit(t *testing.T) {
	m := New(bucket.NewInMemoryBucketStore(), limits(2), discard())
	h := m.RateLimit(models.ClassRead)(okHandler)

	rr := serve(h, "10.0.0.1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2", rr.Header().Get(HeaderLimit))
	assert.Equal(t, "1", rr.Header().Get(HeaderRemaining))

	serve(h, "10.0.0.1")
	rr = serve(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "rate_limit_exceeded")

	assert.Equal(t, http.StatusOK, serve(h, "10.0.0.2").Code, "other clients unaffected")
}

func TestUnconfiguredClassAndDisabledPassThrough(t *testing.T) {
	m := New(bucket.NewInMemoryBucketStore(), limits(1), discard())
	h := m.RateLimit(models.ClassWrite)(okHandler)
	for range 3 {
		assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1").Code)
	}

	off := New(bucket.NewInMemoryBucketStore(), limits(1), discard(), WithDisabled(true))
	h = off.RateLimit(models.ClassRead)(okHandler)
	for range 3 {
		assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1").Code)
	}
}

func TestAllowlist(t *testing.T) {
	m := New(bucket.NewInMemoryBucketStore(), limits(1), discard(), WithAllowlist("10.9.9.9"))
	h := m.RateLimit(models.ClassRead)(okHandler)
	for range 3 {
		rr := serve(h, "10.9.9.9")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Header().Get(HeaderLimit))
	}
}

func TestFailsOpenWithoutFallback(t *testing.T) {
	store := &failingStore{failing: true}
	m := New(store, limits(1), discard())
	h := m.RateLimit(models.ClassRead)(okHandler)
	for range 3 {
		assert.Equal(t, http.StatusOK, serve(h, "10.0.0.1").Code)
	}
}

func TestFallbackWhileCircuitOpen(t *testing.T) {
	primary := &failingStore{failing: true, next: bucket.NewInMemoryBucketStore()}
	m := New(primary, limits(2), discard(),
		WithFallback(bucket.NewInMemoryBucketStore()),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(1))),
	)
	h := m.RateLimit(models.ClassRead)(okHandler)

	rr := serve(h, "10.0.0.1")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "degraded", rr.Header().Get(HeaderStatus))

	serve(h, "10.0.0.1")
	rr = serve(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code, "fallback still enforces the limit")

	primary.failing = false
	serve(h, "10.0.0.3")
	rr = serve(h, "10.0.0.4")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get(HeaderStatus), "circuit closed after a primary success")
}
