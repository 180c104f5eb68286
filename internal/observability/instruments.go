package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// InstrumentationName scopes the storefront meters.
const InstrumentationName = "github.com/Additional-Code/storefront"

// Instruments are the storefront business metrics. Any instrument the SDK refuses is
// replaced by a noop so callers never nil-check.
type Instruments struct {
	CheckoutAttempts metric.Int64Counter
	Confirmations    metric.Int64Counter
	GatewayDuration  metric.Float64Histogram
}

// NewInstruments registers the storefront instruments on meter.
func NewInstruments(meter metric.Meter, logger *zap.Logger) *Instruments {
	if logger == nil {
		logger = zap.NewNop()
	}
	in := &Instruments{}

	var err error
	if in.CheckoutAttempts, err = meter.Int64Counter("storefront.checkout.attempts",
		metric.WithDescription("Checkout attempts by outcome")); err != nil {
		logger.Warn("checkout counter unavailable", zap.Error(err))
		in.CheckoutAttempts = noop.Int64Counter{}
	}
	if in.Confirmations, err = meter.Int64Counter("storefront.confirmations",
		metric.WithDescription("Payment confirmations by outcome")); err != nil {
		logger.Warn("confirmation counter unavailable", zap.Error(err))
		in.Confirmations = noop.Int64Counter{}
	}
	if in.GatewayDuration, err = meter.Float64Histogram("storefront.gateway.duration",
		metric.WithDescription("Payment gateway call latency"),
		metric.WithUnit("s")); err != nil {
		logger.Warn("gateway histogram unavailable", zap.Error(err))
		in.GatewayDuration = noop.Float64Histogram{}
	}
	return in
}

// ObserveGateway records the latency of one gateway operation.
func (in *Instruments) ObserveGateway(ctx context.Context, operation string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	in.GatewayDuration.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
