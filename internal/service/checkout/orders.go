package checkout

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/cache"
	"github.com/Additional-Code/storefront/internal/entity"
	orderrepo "github.com/Additional-Code/storefront/internal/repository/order"
	"github.com/Additional-Code/storefront/pkg/errorbank"
)

// Order retrieves an order by buy order, consulting cache when available. Only resolved
// orders are cached since a pending one may change at any moment.
func (s *Service) Order(ctx context.Context, buyOrder string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "CheckoutService.Order", trace.WithAttributes(attribute.String("order.buy_order", buyOrder)))
	defer span.End()

	if order, err := s.getFromCache(ctx, buyOrder); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("buy_order", buyOrder), zap.Error(err))
	}

	order, err := s.ledger.GetByBuyOrder(ctx, buyOrder)
	if err != nil {
		if errors.Is(err, orderrepo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if order.Status.IsTerminal() {
		if err := s.storeInCache(ctx, order); err != nil {
			s.logger.Warn("orders cache write failed", zap.String("buy_order", buyOrder), zap.Error(err))
		}
	}

	return order, nil
}

func cacheKey(buyOrder string) string {
	return "orders:" + buyOrder
}

func (s *Service) getFromCache(ctx context.Context, buyOrder string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	return cache.GetJSON[entity.Order](ctx, s.cache, cacheKey(buyOrder))
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	return cache.SetJSON(ctx, s.cache, cacheKey(order.BuyOrder), order, s.cacheTTL)
}

func (s *Service) invalidate(ctx context.Context, buyOrder string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(buyOrder)); err != nil {
		s.logger.Warn("orders cache delete failed", zap.String("buy_order", buyOrder), zap.Error(err))
	}
}
