package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/platform/audit/publisher"
	"purposepay/pkg/platform/audit/store/memory"
	"purposepay/pkg/testutil"
)

const (
	beneficiary = "0xb100000000000000000000000000000000000001"
	merchant    = "0x3100000000000000000000000000000000000001"
)

func newAuditRouter(t *testing.T, reader Reader) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	New(reader, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterAdmin(r)
	return r
}

func seededPublisher(t *testing.T) *publisher.Publisher {
	t.Helper()
	p := publisher.NewPublisher(memory.NewInMemoryStore())
	ctx := context.Background()
	for _, e := range []audit.Event{
		{Action: string(audit.EventBeneficiaryAdded), Subject: beneficiary},
		{Action: string(audit.EventMerchantAdded), Subject: merchant, Reason: "FOOD"},
		{Action: string(audit.EventDistributionRecorded), Subject: beneficiary, Amount: "100"},
		{Action: string(audit.EventTransferRecorded), Subject: beneficiary, Counterpart: merchant, Amount: "40"},
	} {
		require.NoError(t, p.Emit(ctx, e))
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestListEvents(t *testing.T) {
	router := newAuditRouter(t, seededPublisher(t))

	testutil.Given(t, "no subject", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/audit?limit=2"))
		require.Equal(t, http.StatusOK, rr.Code)
		events := testutil.UnmarshalResponse[EventListResponse](t, rr).Events
		require.Len(t, events, 2)
		assert.Equal(t, string(audit.EventTransferRecorded), events[0].Action)
		assert.Equal(t, audit.CategoryOperations, events[0].Category)
		assert.Equal(t, string(audit.EventDistributionRecorded), events[1].Action)
	})

	testutil.Given(t, "a lower-case subject", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/audit?subject="+strings.ToLower(beneficiary)))
		require.Equal(t, http.StatusOK, rr.Code)
		events := testutil.UnmarshalResponse[EventListResponse](t, rr).Events
		require.Len(t, events, 3)
		for _, e := range events {
			assert.True(t, strings.EqualFold(beneficiary, e.Subject))
		}
		assert.Equal(t, "40", events[0].Amount)
	})

	testutil.Given(t, "a subject with a limit", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/audit?subject="+beneficiary+"&limit=1"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, testutil.UnmarshalResponse[EventListResponse](t, rr).Events, 1)
	})

	testutil.Given(t, "a subject with no events", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/audit?subject=0x0700000000000000000000000000000000000001"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"events":[]}`, rr.Body.String())
	})
}

func TestListEventsRejectsBadQuery(t *testing.T) {
	router := newAuditRouter(t, seededPublisher(t))
	for _, query := range []string{"limit=0", "limit=-3", "limit=ten"} {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/audit?"+query))
		testutil.AssertError(t, rr, http.StatusBadRequest, "bad_request")
	}
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/audit?subject=nope"))
	testutil.AssertError(t, rr, http.StatusBadRequest, "invalid_input")
}

type failingReader struct{}

func (failingReader) List(context.Context, string) ([]audit.Event, error) {
	return nil, errors.New("connection refused")
}

func (failingReader) Recent(context.Context, int) ([]audit.Event, error) {
	return nil, errors.New("connection refused")
}

func TestListEventsHidesStoreErrors(t *testing.T) {
	router := newAuditRouter(t, failingReader{})
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/audit"))
	testutil.AssertError(t, rr, http.StatusInternalServerError, "internal_error")
	assert.NotContains(t, rr.Body.String(), "connection refused")
}
