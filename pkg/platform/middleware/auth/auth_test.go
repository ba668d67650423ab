package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	id "purposepay/pkg/domain"
	"purposepay/pkg/requestcontext"
)

type stubValidator map[string]id.Address

func (s stubValidator) ValidateCaller(token string) (id.Address, error) {
	addr, ok := s[token]
	if !ok {
		return id.Address{}, errors.New("token is expired")
	}
	return addr, nil
}

func TestRequireCaller(t *testing.T) {
	ledger := id.MustParseAddress("0x1ed0000000000000000000000000000000000001")
	validator := stubValidator{"good": ledger}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen id.Address
	h := RequireCaller(validator, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = requestcontext.Caller(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid bearer", header: "Bearer good", status: http.StatusOK},
		{name: "missing header", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", status: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = id.Address{}
			req := httptest.NewRequest(http.MethodPost, "/hooks/transfers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, ledger, seen)
			} else {
				assert.True(t, seen.IsZero())
			}
		})
	}
}
