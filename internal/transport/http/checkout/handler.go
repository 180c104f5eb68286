package checkout

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/dto"
	"github.com/Additional-Code/storefront/internal/entity"
	"github.com/Additional-Code/storefront/internal/identity"
	"github.com/Additional-Code/storefront/internal/presentation/http/response"
	service "github.com/Additional-Code/storefront/internal/service/checkout"
	"github.com/Additional-Code/storefront/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/storefront/transport/http/checkout")

// Webpay return parameters. token_ws arrives after a completed form; TBK_TOKEN alone
// means the payer cancelled or the form timed out.
const (
	paramToken      = "token_ws"
	paramAbortToken = "TBK_TOKEN"
)

// Payments is the slice of the checkout service this transport drives.
type Payments interface {
	Checkout(ctx context.Context, in service.CheckoutInput) (*service.CheckoutResult, error)
	Confirm(ctx context.Context, token string) (*service.ConfirmResult, error)
	Abort(ctx context.Context, token string) (*service.ConfirmResult, error)
}

// Identities resolves the Authorization header of a checkout request.
type Identities interface {
	Resolve(ctx context.Context, authorization string) (int64, error)
}

// Handler exposes checkout endpoints over HTTP.
type Handler struct {
	svc        Payments
	identities Identities
	logger     *zap.Logger
}

// NewHandler constructs a checkout Handler.
func NewHandler(svc *service.Service, resolver *identity.Resolver, logger *zap.Logger) *Handler {
	return newHandler(svc, resolver, logger)
}

func newHandler(svc Payments, identities Identities, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, identities: identities, logger: logger}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/checkout")
	g.POST("", h.checkout)
	g.GET("/confirm", h.confirm)
	g.POST("/confirm", h.confirm)
}

func (h *Handler) checkout(c echo.Context) error {
	b := response.New(c)

	var payload dto.CheckoutRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "checkout.create")
	defer span.End()

	owner, err := h.owner(ctx, c.Request().Header.Get(echo.HeaderAuthorization), payload)
	if err != nil {
		return b.WithError(err).Build()
	}

	items := make([]service.LineItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, service.LineItem{
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			Quantity:    item.Quantity,
		})
	}

	res, err := h.svc.Checkout(ctx, service.CheckoutInput{
		Owner:     owner,
		Amount:    payload.TotalAmount,
		Items:     items,
		ReturnURL: payload.ReturnURL,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	span.SetAttributes(attribute.String("order.buy_order", res.BuyOrder))

	return b.WithStatus(http.StatusCreated).WithLocation("/orders/" + res.BuyOrder).WithData(dto.CheckoutResponse{
		URL:      res.URL,
		Token:    res.Token,
		BuyOrder: res.BuyOrder,
	}).Build()
}

// owner prefers the bearer identity; without one the request must carry guest contact details.
func (h *Handler) owner(ctx context.Context, authorization string, payload dto.CheckoutRequest) (entity.Owner, error) {
	userID, err := h.identities.Resolve(ctx, authorization)
	switch {
	case err == nil:
		return entity.AuthenticatedOwner{UserID: userID}, nil
	case errors.Is(err, identity.ErrAnonymous):
		return entity.GuestOwner{Email: payload.GuestEmail, Address: payload.GuestAddress}, nil
	case errors.Is(err, identity.ErrInvalidCredential):
		return nil, errorbank.Unauthorized("invalid credentials", errorbank.WithCause(err))
	default:
		h.logger.Error("identity lookup failed", zap.Error(err))
		return nil, errorbank.Unavailable("identity lookup failed", errorbank.WithCause(err))
	}
}

func (h *Handler) confirm(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "checkout.confirm")
	defer span.End()

	var (
		res *service.ConfirmResult
		err error
	)
	if abortToken := param(c, paramAbortToken); abortToken != "" {
		span.SetAttributes(attribute.Bool("checkout.aborted", true))
		res, err = h.svc.Abort(ctx, abortToken)
	} else {
		res, err = h.svc.Confirm(ctx, param(c, paramToken))
	}
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toConfirmResponse(res)).Build()
}

func toConfirmResponse(res *service.ConfirmResult) dto.ConfirmResponse {
	out := dto.ConfirmResponse{
		Status:            res.Status,
		Amount:            res.Amount,
		BuyOrder:          res.BuyOrder,
		SessionID:         res.SessionID,
		VCI:               res.VCI,
		ResponseCode:      res.ResponseCode,
		AuthorizationCode: res.AuthorizationCode,
		PaymentTypeCode:   res.PaymentTypeCode,
		OrderStatus:       res.OrderStatus.String(),
	}
	if res.CardNumber != "" {
		out.CardDetail = &dto.CardDetail{CardNumber: res.CardNumber}
	}
	return out
}

func param(c echo.Context, name string) string {
	if v := c.QueryParam(name); v != "" {
		return v
	}
	return c.FormValue(name)
}
