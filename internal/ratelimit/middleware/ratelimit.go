// Package middleware enforces per-client request limits on HTTP routes.
//
// The primary store is normally Redis. After repeated store failures the
// circuit opens and requests are counted by an in-memory fallback instead,
// with X-RateLimit-Status: degraded on responses. The circuit closes after
// consecutive successful primary checks.
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	ratemetrics "purposepay/internal/ratelimit/metrics"
	"purposepay/internal/ratelimit/models"
	"purposepay/pkg/platform/circuit"
	"purposepay/pkg/platform/httputil"
)

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderStatus    = "X-RateLimit-Status"
)

// BucketStore counts requests per key in a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

type Middleware struct {
	primary   BucketStore
	fallback  BucketStore
	breaker   *circuit.Breaker
	limits    map[models.Class]models.Limit
	allowlist map[string]struct{}
	logger    *slog.Logger
	metrics   *ratemetrics.Metrics
	disabled  bool
}

type Option func(*Middleware)

// WithFallback sets the store used while the primary circuit is open.
func WithFallback(store BucketStore) Option {
	return func(m *Middleware) {
		m.fallback = store
	}
}

func WithAllowlist(ips ...string) Option {
	return func(m *Middleware) {
		for _, ip := range ips {
			m.allowlist[ip] = struct{}{}
		}
	}
}

func WithMetrics(metrics *ratemetrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.breaker = b
	}
}

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(primary BucketStore, limits map[models.Class]models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary:   primary,
		limits:    limits,
		allowlist: map[string]struct{}{},
		logger:    logger,
		breaker:   circuit.New("ratelimit"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit limits requests per client IP within class.
func (m *Middleware) RateLimit(class models.Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limit, configured := m.limits[class]
		if m.disabled || !configured {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)
			if _, ok := m.allowlist[ip]; ok {
				next.ServeHTTP(w, r)
				return
			}

			result, degraded := m.check(ctx, models.Key(class, ip), limit)
			if result == nil {
				// No store could answer; fail open.
				next.ServeHTTP(w, r)
				return
			}
			if degraded {
				w.Header().Set(HeaderStatus, "degraded")
			}
			addHeaders(w, result)
			m.metrics.IncrementDecision(string(class), result.Allowed)

			if !result.Allowed {
				m.logger.InfoContext(ctx, "rate limit exceeded",
					"class", class,
					"ip", ip,
				)
				writeExceeded(w, result)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.Result, bool) {
	if !m.breaker.IsOpen() || m.fallback == nil {
		result, err := m.primary.Allow(ctx, key, limit)
		if err == nil {
			m.breaker.RecordSuccess()
			return result, false
		}
		m.metrics.IncrementStoreErrors()
		useFallback, change := m.breaker.RecordFailure()
		if change.Opened {
			m.metrics.SetDegraded(true)
			m.logger.WarnContext(ctx, "rate limit store failing, using in-memory fallback", "error", err)
		} else {
			m.logger.ErrorContext(ctx, "rate limit check failed", "error", err)
		}
		if !useFallback || m.fallback == nil {
			return nil, false
		}
		return m.fromFallback(ctx, key, limit)
	}

	// Open: try the primary so the circuit can close, but answer from the
	// fallback until it does.
	if _, err := m.primary.Allow(ctx, key, limit); err != nil {
		m.breaker.RecordFailure()
	} else if usePrimary, change := m.breaker.RecordSuccess(); usePrimary {
		if change.Closed {
			m.metrics.SetDegraded(false)
			m.logger.InfoContext(ctx, "rate limit store recovered")
		}
	}
	return m.fromFallback(ctx, key, limit)
}

func (m *Middleware) fromFallback(ctx context.Context, key string, limit models.Limit) (*models.Result, bool) {
	result, err := m.fallback.Allow(ctx, key, limit)
	if err != nil {
		m.logger.ErrorContext(ctx, "fallback rate limit check failed", "error", err)
		return nil, true
	}
	return result, true
}

// clientIP uses RemoteAddr, which chi's RealIP middleware has already
// rewritten from X-Forwarded-For / X-Real-IP when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func addHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set(HeaderLimit, strconv.Itoa(result.Limit))
	w.Header().Set(HeaderRemaining, strconv.Itoa(result.Remaining))
	w.Header().Set(HeaderReset, strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "too many requests from this address, try again later",
		RetryAfter:       result.RetryAfter,
	})
}
