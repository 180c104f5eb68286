package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/cache"
	"github.com/Additional-Code/storefront/internal/config"
)

var (
	// ErrAnonymous means the request carried no bearer credential.
	ErrAnonymous = errors.New("no bearer credential")
	// ErrInvalidCredential means the credential is unknown, expired or malformed.
	ErrInvalidCredential = errors.New("invalid bearer credential")
)

// Module provides the identity resolver to Fx.
var Module = fx.Provide(NewResolver)

// Resolver maps bearer credentials onto user ids. Credentials are issued elsewhere and
// stored as "<prefix><credential>" -> "<user id>".
type Resolver struct {
	store  cache.Store
	prefix string
	logger *zap.Logger
}

// NewResolver wires a Resolver over the shared cache store.
func NewResolver(store cache.Store, cfg config.Config, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, prefix: cfg.Identity.SessionPrefix, logger: logger}
}

// Resolve returns the user id for an Authorization header value.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (int64, error) {
	credential, ok := bearer(authorization)
	if !ok {
		if strings.TrimSpace(authorization) == "" {
			return 0, ErrAnonymous
		}
		return 0, ErrInvalidCredential
	}

	raw, err := r.store.Get(ctx, r.prefix+credential)
	if errors.Is(err, cache.ErrCacheMiss) {
		return 0, ErrInvalidCredential
	}
	if err != nil {
		return 0, err
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil || userID <= 0 {
		r.logger.Warn("malformed session entry", zap.Error(err))
		return 0, ErrInvalidCredential
	}
	return userID, nil
}

func bearer(header string) (string, bool) {
	scheme, credential, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	credential = strings.TrimSpace(credential)
	return credential, credential != ""
}
