package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/config"
)

func TestInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	in := NewInstruments(provider.Meter(InstrumentationName), zap.NewNop())
	ctx := context.Background()

	in.CheckoutAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "created")))
	in.Confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "paid")))
	in.ObserveGateway(ctx, "create", time.Now().Add(-50*time.Millisecond), nil)
	in.ObserveGateway(ctx, "commit", time.Now(), errors.New("timeout"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}
	require.Contains(t, byName, "storefront.checkout.attempts")
	require.Contains(t, byName, "storefront.confirmations")
	require.Contains(t, byName, "storefront.gateway.duration")

	hist, ok := byName["storefront.gateway.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 2)
	for _, dp := range hist.DataPoints {
		op, _ := dp.Attributes.Value("operation")
		outcome, _ := dp.Attributes.Value("outcome")
		switch op.AsString() {
		case "create":
			assert.Equal(t, "ok", outcome.AsString())
			assert.GreaterOrEqual(t, dp.Sum, 0.05)
		case "commit":
			assert.Equal(t, "error", outcome.AsString())
		default:
			t.Fatalf("unexpected operation %q", op.AsString())
		}
	}
}

func TestManager_Instruments(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	mgr, err := NewManager(lc, config.Config{}, zap.NewNop())
	require.NoError(t, err)

	in := mgr.Instruments()
	require.NotNil(t, in)
	assert.NotPanics(t, func() {
		in.ObserveGateway(context.Background(), "create", time.Now(), nil)
	})
}
