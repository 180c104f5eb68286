package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/storefront/internal/config"
	"github.com/Additional-Code/storefront/internal/messaging"
	"github.com/Additional-Code/storefront/internal/service/checkout"
	"github.com/Additional-Code/storefront/internal/worker"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs, config.Config) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := config.Config{}
	cfg.Messaging.Kafka.Topic = "storefront.orders"
	return zap.New(core), logs, cfg
}

func TestOrderEventHandlers_Registration(t *testing.T) {
	logger, _, cfg := newObservedLogger()

	for _, reg := range []worker.HandlerRegistration{
		NewOrderCreatedHandler(logger, cfg),
		NewOrderResolvedHandler(logger, cfg),
	} {
		assert.Equal(t, "storefront.orders", reg.Topic)
		assert.NotNil(t, reg.Handler)
	}
	assert.Equal(t, checkout.EventOrderCreated, NewOrderCreatedHandler(logger, cfg).EventType)
	assert.Equal(t, checkout.EventOrderResolved, NewOrderResolvedHandler(logger, cfg).EventType)
}

func TestOrderResolvedHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("logs the resolution", func(t *testing.T) {
		logger, logs, cfg := newObservedLogger()
		handler := NewOrderResolvedHandler(logger, cfg).Handler

		err := handler(ctx, messaging.Message{
			Topic:   "storefront.orders",
			Key:     []byte("01J0000000000000000000000A"),
			Value:   []byte(`{"buy_order":"01J0000000000000000000000A","status":"paid","amount":45990,"guest":true,"response_code":0,"occurred_at":"2024-05-01T12:00:00Z"}`),
			Headers: map[string]string{messaging.HeaderEventType: checkout.EventOrderResolved},
		})
		require.NoError(t, err)

		entries := logs.FilterMessage("order resolved event processed").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "01J0000000000000000000000A", fields["buy_order"])
		assert.Equal(t, "paid", fields["status"])
		assert.Equal(t, int64(0), fields["response_code"])
	})

	t.Run("flags a pending status", func(t *testing.T) {
		logger, logs, cfg := newObservedLogger()
		handler := NewOrderResolvedHandler(logger, cfg).Handler

		require.NoError(t, handler(ctx, messaging.Message{Value: []byte(`{"buy_order":"BO-1","status":"pending"}`)}))
		assert.Equal(t, 1, logs.FilterMessage("resolved event carries a non terminal status").Len())
	})

	t.Run("rejects undecodable payloads for retry", func(t *testing.T) {
		logger, logs, cfg := newObservedLogger()
		handler := NewOrderResolvedHandler(logger, cfg).Handler

		require.Error(t, handler(ctx, messaging.Message{Value: []byte(`not-json`)}))
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	})
}

func TestOrderCreatedHandler(t *testing.T) {
	logger, logs, cfg := newObservedLogger()
	handler := NewOrderCreatedHandler(logger, cfg).Handler

	err := handler(context.Background(), messaging.Message{
		Value:   []byte(`{"buy_order":"BO-1","status":"pending","amount":1000,"guest":false,"user_id":7}`),
		Headers: map[string]string{messaging.HeaderEventType: checkout.EventOrderCreated},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("order created event processed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1000), entries[0].ContextMap()["amount"])
}
