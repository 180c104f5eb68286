package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/cache"
	"github.com/Additional-Code/storefront/internal/config"
)

func TestResolver_Resolve(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set("sessions:good", "42"))
	require.NoError(t, mr.Set("sessions:junk", "not-a-number"))

	r := NewResolver(cache.NewRedisStore(client, time.Minute), config.Config{
		Identity: config.Identity{SessionPrefix: "sessions:"},
	}, zap.NewNop())
	ctx := context.Background()

	cases := []struct {
		name   string
		header string
		userID int64
		err    error
	}{
		{"known credential", "Bearer good", 42, nil},
		{"scheme is case insensitive", "bearer good", 42, nil},
		{"no header", "", 0, ErrAnonymous},
		{"unknown credential", "Bearer nope", 0, ErrInvalidCredential},
		{"malformed entry", "Bearer junk", 0, ErrInvalidCredential},
		{"wrong scheme", "Basic Zm9vOmJhcg==", 0, ErrInvalidCredential},
		{"empty credential", "Bearer ", 0, ErrInvalidCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userID, err := r.Resolve(ctx, tc.header)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.userID, userID)
		})
	}
}
