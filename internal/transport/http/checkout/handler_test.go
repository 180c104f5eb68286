package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/storefront/internal/entity"
	"github.com/Additional-Code/storefront/internal/identity"
	"github.com/Additional-Code/storefront/internal/presentation/http/response"
	service "github.com/Additional-Code/storefront/internal/service/checkout"
	"github.com/Additional-Code/storefront/pkg/errorbank"
)

type fakePayments struct {
	input      service.CheckoutInput
	checkedOut bool
	confirmed  string
	aborted    string
	err        error
}

func (f *fakePayments) Checkout(_ context.Context, in service.CheckoutInput) (*service.CheckoutResult, error) {
	f.input = in
	f.checkedOut = true
	if f.err != nil {
		return nil, f.err
	}
	return &service.CheckoutResult{URL: "https://webpay3gint.transbank.cl/webpayserver/initTransaction", Token: "T1", BuyOrder: "01J0000000000000000000000A"}, nil
}

func (f *fakePayments) Confirm(_ context.Context, token string) (*service.ConfirmResult, error) {
	f.confirmed = token
	if f.err != nil {
		return nil, f.err
	}
	code := 0
	return &service.ConfirmResult{
		Status:            "AUTHORIZED",
		Amount:            45990,
		BuyOrder:          "01J0000000000000000000000A",
		SessionID:         "4f9c1d2e3a4b5c6d7e8f9a0b1c",
		VCI:               "TSY",
		ResponseCode:      &code,
		AuthorizationCode: "1213",
		PaymentTypeCode:   "VN",
		CardNumber:        "6623",
		OrderStatus:       entity.OrderStatusPaid,
		Applied:           true,
	}, nil
}

func (f *fakePayments) Abort(_ context.Context, token string) (*service.ConfirmResult, error) {
	f.aborted = token
	return &service.ConfirmResult{Status: "FAILED", Amount: 45990, BuyOrder: "01J0000000000000000000000A", OrderStatus: entity.OrderStatusFailed, Applied: true}, nil
}

type fakeIdentities map[string]int64

func (f fakeIdentities) Resolve(_ context.Context, authorization string) (int64, error) {
	if authorization == "" {
		return 0, identity.ErrAnonymous
	}
	if id, ok := f[authorization]; ok {
		return id, nil
	}
	return 0, identity.ErrInvalidCredential
}

type envelope = response.Envelope[json.RawMessage]

func serve(t *testing.T, h *Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	Register(e, h)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_Checkout(t *testing.T) {
	t.Run("guest checkout returns the redirect target", func(t *testing.T) {
		payments := &fakePayments{}
		h := newHandler(payments, fakeIdentities{}, nil)

		rec, body := serve(t, h, jsonRequest(http.MethodPost, "/checkout",
			`{"total_amount":45990,"guest_email":"cat@example.com","guest_address":"Av. Siempre Viva 742"}`))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/orders/01J0000000000000000000000A", rec.Header().Get(echo.HeaderLocation))
		assert.True(t, body.Success)
		assert.JSONEq(t, `{"url":"https://webpay3gint.transbank.cl/webpayserver/initTransaction","token":"T1","buy_order":"01J0000000000000000000000A"}`, string(body.Data))
		assert.Equal(t, entity.GuestOwner{Email: "cat@example.com", Address: "Av. Siempre Viva 742"}, payments.input.Owner)
		assert.Equal(t, int64(45990), payments.input.Amount)
	})

	t.Run("bearer credential attributes the order to the user", func(t *testing.T) {
		payments := &fakePayments{}
		h := newHandler(payments, fakeIdentities{"Bearer abc": 42}, nil)

		req := jsonRequest(http.MethodPost, "/checkout", `{"items":[{"product_id":1,"variation_id":3,"quantity":2}]}`)
		req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
		rec, _ := serve(t, h, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, entity.AuthenticatedOwner{UserID: 42}, payments.input.Owner)
		assert.Equal(t, []service.LineItem{{ProductID: 1, VariationID: 3, Quantity: 2}}, payments.input.Items)
	})

	t.Run("unknown credential is unauthorized", func(t *testing.T) {
		payments := &fakePayments{}
		h := newHandler(payments, fakeIdentities{}, nil)

		req := jsonRequest(http.MethodPost, "/checkout", `{"total_amount":1000}`)
		req.Header.Set(echo.HeaderAuthorization, "Bearer stale")
		rec, body := serve(t, h, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, string(errorbank.KindUnauthorized), body.Error.Kind)
		assert.False(t, payments.checkedOut)
	})

	t.Run("service errors map to their status", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
		}{
			{errorbank.BadRequest("amount must be a positive integer", errorbank.WithCause(service.ErrInvalidAmount)), http.StatusBadRequest},
			{errorbank.Unavailable("payment gateway unavailable"), http.StatusServiceUnavailable},
			{errorbank.GatewayRejected("payment gateway rejected the transaction"), http.StatusBadGateway},
		}
		for _, tc := range cases {
			h := newHandler(&fakePayments{err: tc.err}, fakeIdentities{}, nil)

			rec, body := serve(t, h, jsonRequest(http.MethodPost, "/checkout", `{"total_amount":0,"guest_email":"cat@example.com"}`))
			assert.Equal(t, tc.status, rec.Code)
			assert.False(t, body.Success)
			assert.Empty(t, body.Data)
		}
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		h := newHandler(&fakePayments{}, fakeIdentities{}, nil)

		rec, _ := serve(t, h, jsonRequest(http.MethodPost, "/checkout", `{"total_amount":`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Confirm(t *testing.T) {
	t.Run("token_ws on the query relays the gateway payload", func(t *testing.T) {
		payments := &fakePayments{}
		h := newHandler(payments, fakeIdentities{}, nil)

		rec, body := serve(t, h, httptest.NewRequest(http.MethodGet, "/checkout/confirm?token_ws=T1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "T1", payments.confirmed)
		assert.JSONEq(t, `{
			"status":"AUTHORIZED","amount":45990,"buy_order":"01J0000000000000000000000A",
			"session_id":"4f9c1d2e3a4b5c6d7e8f9a0b1c","vci":"TSY","response_code":0,
			"authorization_code":"1213","payment_type_code":"VN","card_detail":{"card_number":"6623"},
			"order_status":"paid"
		}`, string(body.Data))
	})

	t.Run("token_ws in a posted form commits", func(t *testing.T) {
		payments := &fakePayments{}
		h := newHandler(payments, fakeIdentities{}, nil)

		form := url.Values{"token_ws": {"T2"}}
		req := httptest.NewRequest(http.MethodPost, "/checkout/confirm", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec, _ := serve(t, h, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "T2", payments.confirmed)
	})

	t.Run("TBK_TOKEN aborts without committing", func(t *testing.T) {
		payments := &fakePayments{}
		h := newHandler(payments, fakeIdentities{}, nil)

		rec, body := serve(t, h, httptest.NewRequest(http.MethodGet, "/checkout/confirm?TBK_TOKEN=T3&TBK_ORDEN_COMPRA=01J0000000000000000000000A", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "T3", payments.aborted)
		assert.Empty(t, payments.confirmed)
		assert.Contains(t, string(body.Data), `"status":"FAILED"`)
		assert.Contains(t, string(body.Data), `"order_status":"failed"`)
	})

	t.Run("charged payment on a failed order needs reconciliation", func(t *testing.T) {
		err := errorbank.Conflict("payment requires manual reconciliation", errorbank.WithCause(service.ErrReconciliationRequired))
		h := newHandler(&fakePayments{err: err}, fakeIdentities{}, nil)

		rec, body := serve(t, h, httptest.NewRequest(http.MethodGet, "/checkout/confirm?token_ws=T1", nil))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.False(t, body.Success)
		require.NotNil(t, body.Error)
		assert.Equal(t, string(errorbank.KindConflict), body.Error.Kind)
	})

	t.Run("unknown token is a generic not found", func(t *testing.T) {
		err := errorbank.NotFound("transaction not found", errorbank.WithCause(service.ErrUnknownToken))
		h := newHandler(&fakePayments{err: err}, fakeIdentities{}, nil)

		rec, body := serve(t, h, httptest.NewRequest(http.MethodGet, "/checkout/confirm?token_ws=forged", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, body.Error)
		assert.Equal(t, "transaction not found", body.Error.Message)
		assert.NotContains(t, rec.Body.String(), "forged")
	})
}
