package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	id "purposepay/pkg/domain"
	request "purposepay/pkg/platform/middleware/request"
	"purposepay/pkg/requestcontext"
)

// HeaderAdminToken carries the shared administrator secret.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken admits requests presenting the administrator token and
// binds the configured administrator address as the request caller.
func RequireAdminToken(expectedToken string, adminAddr id.Address, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(HeaderAdminToken)
			// Use constant-time comparison to prevent timing attacks
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			ctx := requestcontext.WithCaller(r.Context(), adminAddr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
