package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/config"
)

// StatusAuthorized is the only commit status that means the payer was charged.
const StatusAuthorized = "AUTHORIZED"

var (
	// ErrUnavailable means the processor could not be reached or did not answer in time.
	ErrUnavailable = errors.New("payment gateway unavailable")
	// ErrRejected means the processor refused the request.
	ErrRejected = errors.New("payment gateway rejected request")
)

// Client creates and commits card transactions with the payment processor.
type Client interface {
	CreateTransaction(ctx context.Context, req CreateRequest) (*CreateResult, error)
	CommitTransaction(ctx context.Context, token string) (*CommitResult, error)
	// TransactionStatus reads the processor's view of a transaction without changing it.
	TransactionStatus(ctx context.Context, token string) (*CommitResult, error)
}

// DefaultTimeout bounds gateway calls when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// CreateRequest describes a new transaction.
type CreateRequest struct {
	BuyOrder  string
	SessionID string
	Amount    int64
	ReturnURL string
}

// CreateResult is where the payer must be sent, and the token that identifies the attempt.
type CreateResult struct {
	URL   string
	Token string
}

// CommitResult is the processor's verdict for a transaction.
type CommitResult struct {
	Status            string
	Amount            int64
	BuyOrder          string
	SessionID         string
	VCI               string
	ResponseCode      *int
	AuthorizationCode string
	PaymentTypeCode   string
	CardNumber        string
}

// Authorized reports whether the processor charged the payer.
func (r *CommitResult) Authorized() bool {
	return r != nil && r.Status == StatusAuthorized
}

// Error carries the processor response behind ErrUnavailable or ErrRejected.
type Error struct {
	Kind       error
	HTTPStatus int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.HTTPStatus != 0:
		return fmt.Sprintf("%v: http %d", e.Kind, e.HTTPStatus)
	default:
		return e.Kind.Error()
	}
}

// Is matches the ErrUnavailable/ErrRejected sentinels.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Module provides the configured gateway client to Fx.
var Module = fx.Provide(New)

// New builds the gateway client selected by configuration.
func New(cfg config.Config, logger *zap.Logger) (Client, error) {
	switch cfg.Gateway.Driver {
	case "webpay":
		logger.Info("payment gateway configured",
			zap.String("driver", cfg.Gateway.Driver),
			zap.String("environment", cfg.Gateway.Environment),
			zap.String("base_url", cfg.Gateway.BaseURL),
		)
		return NewWebpay(cfg.Gateway), nil
	default:
		return nil, fmt.Errorf("unsupported gateway driver: %s", cfg.Gateway.Driver)
	}
}
