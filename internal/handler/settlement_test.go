package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/pratyushn/auction-house/internal/auction"
	"github.com/pratyushn/auction-house/internal/payment"
	"github.com/pratyushn/auction-house/internal/repository"
)

func newTestEcho(t *testing.T) (*echo.Echo, *SettlementHandler) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	store := repository.NewMemoryStore()
	gw := payment.NewFake()
	gw.AutoSucceed = true
	eng := auction.New(store, store, store, gw, nil, auction.DefaultConfig())
	return e, NewSettlementHandler(eng)
}

func TestEngineErrorStatusMapping(t *testing.T) {
	e := echo.New()
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", auction.ErrNotFound, http.StatusNotFound},
		{"duplicate token", auction.ErrDuplicateToken, http.StatusBadRequest},
		{"bid too low", auction.ErrBidTooLow, http.StatusBadRequest},
		{"token expired", auction.ErrTokenExpired, http.StatusBadRequest},
		{"token mismatch", auction.ErrTokenMismatch, http.StatusBadRequest},
		{"not winner", auction.ErrNotWinner, http.StatusBadRequest},
		{"no bidders", auction.ErrNoBidders, http.StatusBadRequest},
		{"no refund targets", auction.ErrNoRefundTargets, http.StatusBadRequest},
		{"already settled", auction.ErrAlreadySettled, http.StatusConflict},
		{"concurrency conflict", auction.ErrConcurrencyConflict, http.StatusConflict},
		{"external payment", auction.ErrExternalPayment, http.StatusPaymentRequired},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			require.NoError(t, engineError(c, tc.err))
			require.Equal(t, tc.status, rec.Code)
			require.Contains(t, rec.Body.String(), "error")
		})
	}

	// Wrapped sentinels map the same as bare ones.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	wrapped := errors.Join(errors.New("item 7"), auction.ErrAlreadySettled)
	require.NoError(t, engineError(c, wrapped))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefundSlipCodeValidation(t *testing.T) {
	e, h := newTestEcho(t)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/admin/refunds", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		require.NoError(t, h.Refund(e.NewContext(req, rec)))
		return rec
	}

	rec := post(`{"slip_code":"12"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "4-digit slip_code required")

	rec = post(`{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Well-formed but unknown codes fall through to the engine.
	rec = post(`{"slip_code":"1234"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmStepRequiresPaymentRef(t *testing.T) {
	e, h := newTestEcho(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/items/1/settlement/confirm", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	c.Set("email", "alice@test.dev")

	require.NoError(t, h.ConfirmStep(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "payment_ref required")
}
