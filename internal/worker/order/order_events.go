package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/config"
	"github.com/Additional-Code/storefront/internal/messaging"
	"github.com/Additional-Code/storefront/internal/service/checkout"
	"github.com/Additional-Code/storefront/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/storefront/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderCreatedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
		fx.Annotate(
			NewOrderResolvedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderCreatedHandler sets up a worker handler that logs new pending orders.
func NewOrderCreatedHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:     cfg.Messaging.Kafka.Topic,
		EventType: checkout.EventOrderCreated,
		Handler: orderEventHandler(logger, func(event checkout.OrderEvent, fields []zap.Field) {
			logger.Info("order created event processed", fields...)
		}),
	}
}

// NewOrderResolvedHandler sets up a worker handler that keeps an audit line for every
// order that reached paid or failed.
func NewOrderResolvedHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:     cfg.Messaging.Kafka.Topic,
		EventType: checkout.EventOrderResolved,
		Handler: orderEventHandler(logger, func(event checkout.OrderEvent, fields []zap.Field) {
			if event.ResponseCode != nil {
				fields = append(fields, zap.Int("response_code", *event.ResponseCode))
			}
			if !event.Status.IsTerminal() {
				logger.Warn("resolved event carries a non terminal status", fields...)
				return
			}
			logger.Info("order resolved event processed", fields...)
		}),
	}
}

func orderEventHandler(logger *zap.Logger, process func(checkout.OrderEvent, []zap.Field)) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		eventType := msg.Headers[messaging.HeaderEventType]
		_, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.String("messaging.event_type", eventType),
		))
		defer span.End()

		var event checkout.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.String("event", eventType), zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(attribute.String("order.buy_order", event.BuyOrder))

		process(event, []zap.Field{
			zap.String("buy_order", event.BuyOrder),
			zap.String("status", event.Status.String()),
			zap.Int64("amount", event.Amount),
			zap.Bool("guest", event.Guest),
			zap.Time("occurred_at", event.OccurredAt),
		})
		return nil
	}
}
