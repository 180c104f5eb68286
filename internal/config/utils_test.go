package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SF_CHOICE", "  Kafka ")
	t.Setenv("SF_BLANK", "   ")
	t.Setenv("SF_URL", " https://webpay3g.transbank.cl// ")
	t.Setenv("SF_INT64", "9007199254740993")
	t.Setenv("SF_BAD_INT", "ten")
	t.Setenv("SF_DURATION", "250ms")
	t.Setenv("SF_LIST", "a, ,b,")

	assert.Equal(t, "kafka", getEnvAsChoice("SF_CHOICE", "noop"))
	assert.Equal(t, "noop", getEnvAsChoice("SF_BLANK", "noop"))
	assert.Equal(t, "noop", getEnvAsChoice("SF_UNSET", "noop"))
	assert.Equal(t, "https://webpay3g.transbank.cl", getEnvAsURL("SF_URL", ""))
	assert.Equal(t, int64(9007199254740993), getEnvAsInt64("SF_INT64", 0))
	assert.Equal(t, 7, getEnvAsInt("SF_BAD_INT", 7))
	assert.Equal(t, 250*time.Millisecond, getEnvAsDuration("SF_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b"}, getEnvAsStringSlice("SF_LIST", nil))
	assert.Equal(t, []string{"x"}, getEnvAsStringSlice("SF_UNSET", []string{"x"}))
}
