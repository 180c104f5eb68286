package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
		code   codes.Code
	}{
		{BadRequest("x"), http.StatusBadRequest, codes.InvalidArgument},
		{NotFound("x"), http.StatusNotFound, codes.NotFound},
		{Conflict("x"), http.StatusConflict, codes.AlreadyExists},
		{Unauthorized("x"), http.StatusUnauthorized, codes.Unauthenticated},
		{Unavailable("x"), http.StatusServiceUnavailable, codes.Unavailable},
		{GatewayRejected("x"), http.StatusBadGateway, codes.Aborted},
		{Internal("x"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range cases {
		t.Run(string(tc.err.Kind()), func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.StatusCode())
			assert.Equal(t, tc.code, tc.err.GRPCCode())
		})
	}
}

func TestCauseIsReachable(t *testing.T) {
	sentinel := errors.New("gateway down")
	err := fmt.Errorf("checkout: %w", Unavailable("payment gateway unavailable", WithCause(sentinel)))

	require.ErrorIs(t, err, sentinel)
	assert.True(t, Is(err, KindUnavailable))
	assert.False(t, Is(err, KindInternal))
	assert.Equal(t, KindUnavailable, From(err).Kind())
	assert.Contains(t, err.Error(), "gateway down")
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	appErr := From(errors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, KindInternal, appErr.Kind())
	assert.Equal(t, "internal error", appErr.Message())
	assert.Nil(t, From(nil))
}

func TestDetails(t *testing.T) {
	err := GatewayRejected("rejected",
		WithDetail("gateway_message", "invalid amount"),
		WithDetails(map[string]any{"http_status": 422}),
	)
	assert.Equal(t, "invalid amount", err.Details()["gateway_message"])
	assert.Equal(t, 422, err.Details()["http_status"])
}
