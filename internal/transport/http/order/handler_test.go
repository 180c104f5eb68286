package order

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Additional-Code/storefront/internal/entity"
	"github.com/Additional-Code/storefront/pkg/errorbank"
)

type fakeReader map[string]*entity.Order

func (f fakeReader) Order(_ context.Context, buyOrder string) (*entity.Order, error) {
	if o, ok := f[buyOrder]; ok {
		return o, nil
	}
	return nil, errorbank.NotFound("order not found")
}

func TestHandler_GetByBuyOrder(t *testing.T) {
	email := "cat@example.com"
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := &Handler{svc: fakeReader{
		"BO-1": {BuyOrder: "BO-1", Status: entity.OrderStatusPending, TotalAmount: 45990, PaymentType: "webpay_plus", GuestEmail: &email, CreatedAt: created, UpdatedAt: created},
	}}
	e := echo.New()
	Register(e, h)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/BO-1", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true,"data":{"buy_order":"BO-1","status":"pending","amount":45990,"payment_type":"webpay_plus","guest":true,"created_at":"2024-05-01T12:00:00Z","updated_at":"2024-05-01T12:00:00Z"}}`, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), email)
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/BO-404", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("too long", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/012345678901234567890123456789", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
