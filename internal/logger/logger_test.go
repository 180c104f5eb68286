package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/storefront/internal/config"
)

func TestZapConfig(t *testing.T) {
	t.Run("json by default", func(t *testing.T) {
		cfg := zapConfig(config.Observability{LogLevel: "debug"})
		assert.Equal(t, "json", cfg.Encoding)
		assert.Equal(t, "ts", cfg.EncoderConfig.TimeKey)
		assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())
	})

	t.Run("console for local runs", func(t *testing.T) {
		cfg := zapConfig(config.Observability{LogLevel: "WARN", LogEncoding: "console"})
		assert.Equal(t, "console", cfg.Encoding)
		assert.Equal(t, zapcore.WarnLevel, cfg.Level.Level())
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		cfg := zapConfig(config.Observability{LogLevel: "chatty"})
		assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
	})
}

func TestBuild_AddsServiceFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger, err := build(config.Observability{ServiceName: "storefront", Environment: "test"},
		zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))
	require.NoError(t, err)

	logger.Info("checkout started")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "storefront", entries[0].ContextMap()["service"])
	assert.Equal(t, "test", entries[0].ContextMap()["environment"])
}

func TestNew_SyncsOnStop(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	logger, err := New(lc, config.Config{Observability: config.Observability{LogLevel: "info"}})
	require.NoError(t, err)
	require.NotNil(t, logger)

	lc.RequireStart()
	lc.RequireStop()
}
