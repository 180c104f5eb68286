package checkout

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/entity"
	"github.com/Additional-Code/storefront/internal/gateway"
	catalogrepo "github.com/Additional-Code/storefront/internal/repository/catalog"
	orderrepo "github.com/Additional-Code/storefront/internal/repository/order"
	"github.com/Additional-Code/storefront/pkg/errorbank"
)

// LineItem is a cart line priced from the catalog.
type LineItem struct {
	ProductID   int64
	VariationID int64
	Quantity    int64
}

// CheckoutInput describes one checkout attempt. When Items is non-empty the total is priced from
// the catalog and Amount is ignored.
type CheckoutInput struct {
	Owner     entity.Owner
	Amount    int64
	Items     []LineItem
	ReturnURL string
}

// CheckoutResult is the redirect target produced by the gateway.
type CheckoutResult struct {
	URL      string
	Token    string
	BuyOrder string
}

// Checkout creates a gateway transaction and then records the pending order. A gateway
// failure aborts before anything is written.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	ctx, span := serviceTracer.Start(ctx, "CheckoutService.Checkout")
	defer span.End()

	if in.Owner == nil || in.Owner.Validate() != nil {
		s.record(ctx, s.metrics.CheckoutAttempts, "invalid")
		return nil, errorbank.BadRequest("a registered user or a guest email is required", errorbank.WithCause(entity.ErrInvalidOwner))
	}

	amount, err := s.total(ctx, in)
	if err != nil {
		s.record(ctx, s.metrics.CheckoutAttempts, "invalid")
		return nil, err
	}
	if amount <= 0 {
		s.record(ctx, s.metrics.CheckoutAttempts, "invalid")
		return nil, errorbank.BadRequest("amount must be a positive integer", errorbank.WithCause(ErrInvalidAmount))
	}
	if s.maxAmount > 0 && amount > s.maxAmount {
		s.record(ctx, s.metrics.CheckoutAttempts, "invalid")
		return nil, errorbank.BadRequest("amount exceeds the checkout limit",
			errorbank.WithCause(ErrInvalidAmount),
			errorbank.WithDetail("max_amount", s.maxAmount),
		)
	}

	buyOrder, sessionID := s.newIDs()
	returnURL := in.ReturnURL
	if returnURL == "" {
		returnURL = s.returnURL
	}
	span.SetAttributes(
		attribute.String("order.buy_order", buyOrder),
		attribute.Int64("order.amount", amount),
	)

	started := time.Now()
	created, err := s.gateway.CreateTransaction(ctx, gateway.CreateRequest{
		BuyOrder:  buyOrder,
		SessionID: sessionID,
		Amount:    amount,
		ReturnURL: returnURL,
	})
	s.metrics.ObserveGateway(ctx, "create", started, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway create failed")
		s.record(ctx, s.metrics.CheckoutAttempts, "gateway_error")
		s.logger.Warn("gateway create failed",
			zap.String("buy_order", buyOrder),
			zap.Int64("amount", amount),
			zap.Bool("timeout", gateway.IsTimeout(err)),
			zap.Error(err),
		)
		return nil, gatewayError(err)
	}

	order := &entity.Order{
		BuyOrder:    buyOrder,
		SessionID:   sessionID,
		Token:       created.Token,
		TotalAmount: amount,
		PaymentType: s.paymentType,
	}
	order.SetOwner(in.Owner)

	if err := s.ledger.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger create failed")
		s.record(ctx, s.metrics.CheckoutAttempts, "ledger_error")
		// The gateway transaction stays uncommitted and expires on the processor side.
		s.logger.Error("order not recorded after gateway create",
			zap.String("buy_order", buyOrder),
			zap.Bool("duplicate_buy_order", errors.Is(err, orderrepo.ErrDuplicateBuyOrder)),
			zap.Error(err),
		)
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	s.record(ctx, s.metrics.CheckoutAttempts, "created")
	s.logger.Info("checkout started",
		zap.String("buy_order", order.BuyOrder),
		zap.Int64("amount", order.TotalAmount),
		zap.Bool("guest", order.UserID == nil),
	)
	s.publish(ctx, EventOrderCreated, order)

	return &CheckoutResult{URL: created.URL, Token: created.Token, BuyOrder: order.BuyOrder}, nil
}

func (s *Service) total(ctx context.Context, in CheckoutInput) (int64, error) {
	if len(in.Items) == 0 {
		return in.Amount, nil
	}
	if s.prices == nil {
		return 0, errorbank.Internal("catalog pricing is not configured")
	}

	var total int64
	for i, item := range in.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return 0, errorbank.BadRequest("cart items need a product and a positive quantity",
				errorbank.WithCause(ErrInvalidItem),
				errorbank.WithDetail("index", i),
			)
		}
		price, err := s.prices.Price(ctx, item.ProductID, item.VariationID)
		if errors.Is(err, catalogrepo.ErrNotFound) {
			return 0, errorbank.BadRequest("unknown product",
				errorbank.WithCause(ErrInvalidItem),
				errorbank.WithDetail("product_id", item.ProductID),
				errorbank.WithDetail("variation_id", item.VariationID),
			)
		}
		if err != nil {
			return 0, errorbank.Internal("failed to price cart", errorbank.WithCause(err))
		}
		if price > 0 && item.Quantity > (math.MaxInt64-total)/price {
			return 0, errorbank.BadRequest("cart total is too large", errorbank.WithCause(ErrInvalidAmount))
		}
		total += price * item.Quantity
	}
	return total, nil
}
