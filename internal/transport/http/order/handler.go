package order

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/storefront/internal/dto"
	"github.com/Additional-Code/storefront/internal/entity"
	"github.com/Additional-Code/storefront/internal/presentation/http/response"
	service "github.com/Additional-Code/storefront/internal/service/checkout"
	"github.com/Additional-Code/storefront/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/storefront/transport/http/order")

// Reader looks orders up by buy order.
type Reader interface {
	Order(ctx context.Context, buyOrder string) (*entity.Order, error)
}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc Reader
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("/:buyOrder", h.getByBuyOrder)
}

func (h *Handler) getByBuyOrder(c echo.Context) error {
	b := response.New(c)

	buyOrder := c.Param("buyOrder")
	if buyOrder == "" || len(buyOrder) > 26 {
		return b.WithError(errorbank.BadRequest("invalid buy order")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByBuyOrder", trace.WithAttributes(attribute.String("order.buy_order", buyOrder)))
	defer span.End()

	order, err := h.svc.Order(ctx, buyOrder)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func toDTO(order *entity.Order) dto.OrderResponse {
	return dto.OrderResponse{
		BuyOrder:     order.BuyOrder,
		Status:       order.Status.String(),
		Amount:       order.TotalAmount,
		PaymentType:  order.PaymentType,
		Guest:        order.UserID == nil,
		ResponseCode: order.ResponseCode,
		VCI:          order.VCI,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}
