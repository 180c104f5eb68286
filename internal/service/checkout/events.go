package checkout

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/entity"
	"github.com/Additional-Code/storefront/internal/messaging"
)

// Event types carried in the messaging.HeaderEventType header.
const (
	EventOrderCreated  = "order.created"
	EventOrderResolved = "order.resolved"
)

// OrderEvent is emitted when an order is recorded and again when it resolves.
type OrderEvent struct {
	BuyOrder     string             `json:"buy_order"`
	Status       entity.OrderStatus `json:"status"`
	Amount       int64              `json:"amount"`
	UserID       *int64             `json:"user_id,omitempty"`
	Guest        bool               `json:"guest"`
	ResponseCode *int               `json:"response_code,omitempty"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

func newOrderEvent(order *entity.Order) OrderEvent {
	occurred := order.UpdatedAt
	if occurred.IsZero() {
		occurred = order.CreatedAt
	}
	return OrderEvent{
		BuyOrder:     order.BuyOrder,
		Status:       order.Status,
		Amount:       order.TotalAmount,
		UserID:       order.UserID,
		Guest:        order.UserID == nil,
		ResponseCode: order.ResponseCode,
		OccurredAt:   occurred,
	}
}

// publish is best effort: the ledger is the source of truth, so failures are only logged.
func (s *Service) publish(ctx context.Context, eventType string, order *entity.Order) {
	if !s.messaging || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(newOrderEvent(order))
	if err != nil {
		s.logger.Error("marshal order event", zap.String("event", eventType), zap.Error(err))
		return
	}
	headers := map[string]string{messaging.HeaderEventType: eventType}
	if err := s.publisher.Publish(ctx, []byte(order.BuyOrder), payload, headers); err != nil {
		s.logger.Error("publish order event",
			zap.String("event", eventType),
			zap.String("buy_order", order.BuyOrder),
			zap.Error(err),
		)
	}
}
