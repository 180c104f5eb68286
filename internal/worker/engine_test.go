package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/config"
	"github.com/Additional-Code/storefront/internal/messaging"
)

// replayClient hands each queued message to the handler once, then blocks until cancelled.
type replayClient struct {
	mu       sync.Mutex
	messages []messaging.Message
}

func (c *replayClient) Publish(context.Context, []byte, []byte, map[string]string) error {
	return nil
}

func (c *replayClient) Consume(ctx context.Context, handler messaging.Handler) error {
	for {
		c.mu.Lock()
		if len(c.messages) == 0 {
			c.mu.Unlock()
			break
		}
		msg := c.messages[0]
		c.messages = c.messages[1:]
		c.mu.Unlock()
		_ = handler(ctx, msg)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *replayClient) Topic() string { return "storefront.orders" }

type recorder struct {
	mu  sync.Mutex
	got map[string][]string
}

func (r *recorder) handler(name string) messaging.Handler {
	return func(_ context.Context, msg messaging.Message) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.got[name] = append(r.got[name], string(msg.Key))
		return nil
	}
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got[name])
}

func enabledConfig() config.Config {
	cfg := config.Config{}
	cfg.Messaging.Enabled = true
	cfg.Messaging.Workers.Enabled = true
	cfg.Messaging.Workers.Concurrency = 1
	return cfg
}

func TestEngine_DispatchesByEventType(t *testing.T) {
	client := &replayClient{messages: []messaging.Message{
		{Topic: "storefront.orders", Key: []byte("a"), Headers: map[string]string{messaging.HeaderEventType: "order.created"}},
		{Topic: "storefront.orders", Key: []byte("b"), Headers: map[string]string{messaging.HeaderEventType: "order.resolved"}},
		{Topic: "storefront.orders", Key: []byte("c"), Headers: map[string]string{messaging.HeaderEventType: "order.refunded"}},
		{Topic: "other", Key: []byte("d")},
	}}
	rec := &recorder{got: map[string][]string{}}

	engine := NewEngine(Params{
		Client: client,
		Logger: zap.NewNop(),
		Config: enabledConfig(),
		Registrations: []HandlerRegistration{
			{Topic: "storefront.orders", EventType: "order.created", Handler: rec.handler("created")},
			{Topic: "storefront.orders", EventType: "order.resolved", Handler: rec.handler("resolved")},
			{Topic: "storefront.orders", Handler: rec.handler("fallback")},
			{Topic: "", Handler: rec.handler("ignored")},
		},
	})

	require.NoError(t, engine.start(context.Background()))
	assert.Eventually(t, func() bool {
		return rec.count("created")+rec.count("resolved")+rec.count("fallback") == 3
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, engine.stop(context.Background()))

	assert.Equal(t, 1, rec.count("created"))
	assert.Equal(t, 1, rec.count("resolved"))
	assert.Equal(t, []string{"c"}, rec.got["fallback"])
	assert.Zero(t, rec.count("ignored"))
}

func TestEngine_DisabledDoesNotConsume(t *testing.T) {
	client := &replayClient{messages: []messaging.Message{{Topic: "storefront.orders"}}}
	cfg := enabledConfig()
	cfg.Messaging.Workers.Enabled = false

	engine := NewEngine(Params{Client: client, Logger: zap.NewNop(), Config: cfg})
	require.NoError(t, engine.start(context.Background()))
	require.NoError(t, engine.stop(context.Background()))
	assert.Len(t, client.messages, 1)
}
