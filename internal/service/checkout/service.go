package checkout

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/cache"
	"github.com/Additional-Code/storefront/internal/config"
	"github.com/Additional-Code/storefront/internal/entity"
	"github.com/Additional-Code/storefront/internal/gateway"
	"github.com/Additional-Code/storefront/internal/messaging"
	"github.com/Additional-Code/storefront/internal/observability"
	catalogrepo "github.com/Additional-Code/storefront/internal/repository/catalog"
	orderrepo "github.com/Additional-Code/storefront/internal/repository/order"
	"github.com/Additional-Code/storefront/pkg/errorbank"
)

const instrumentationName = "github.com/Additional-Code/storefront/service/checkout"

var serviceTracer = otel.Tracer(instrumentationName)

var (
	// ErrInvalidAmount is returned for a zero, negative or over-limit checkout total.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidItem is returned for a cart line that cannot be priced.
	ErrInvalidItem = errors.New("invalid cart item")
	// ErrUnknownToken is returned when a confirmation names a token this ledger never issued.
	ErrUnknownToken = errors.New("unknown transaction token")
	// ErrReconciliationRequired is returned when the processor charged the payer for an
	// order the ledger already recorded as failed.
	ErrReconciliationRequired = errors.New("payment requires reconciliation")
)

// Ledger is the order store the checkout flow writes to.
type Ledger interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByToken(ctx context.Context, token string) (*entity.Order, error)
	GetByBuyOrder(ctx context.Context, buyOrder string) (*entity.Order, error)
	TransitionStatus(ctx context.Context, order *entity.Order, status entity.OrderStatus, audit entity.PaymentAudit) (*entity.Order, bool, error)
}

// PriceLookup resolves catalog unit prices.
type PriceLookup interface {
	Price(ctx context.Context, productID, variationID int64) (int64, error)
}

// Service converts carts into gateway-backed pending orders and reconciles the
// gateway's verdict back into the ledger.
type Service struct {
	ledger      Ledger
	gateway     gateway.Client
	prices      PriceLookup
	cache       cache.Store
	cacheTTL    time.Duration
	publisher   messaging.Client
	messaging   bool
	logger      *zap.Logger
	returnURL   string
	paymentType string
	maxAmount   int64
	newIDs      func() (buyOrder, sessionID string)

	metrics *observability.Instruments
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Ledger    Ledger
	Gateway   gateway.Client
	Prices    PriceLookup
	Cache     cache.Store
	Publisher messaging.Client
	Config    config.Config
	Logger    *zap.Logger
	Metrics   *observability.Instruments `optional:"true"`
}

// Module provides the checkout service and binds the concrete repositories to its ports.
var Module = fx.Provide(
	NewService,
	func(r *orderrepo.Repository) Ledger { return r },
	func(r *catalogrepo.Repository) PriceLookup { return r },
)

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics := p.Metrics
	if metrics == nil {
		metrics = observability.NewInstruments(otel.Meter(observability.InstrumentationName), logger)
	}

	return &Service{
		ledger:      p.Ledger,
		gateway:     p.Gateway,
		prices:      p.Prices,
		cache:       p.Cache,
		cacheTTL:    p.Config.Cache.DefaultTTL,
		publisher:   p.Publisher,
		messaging:   p.Config.Messaging.Enabled,
		logger:      logger,
		returnURL:   p.Config.Checkout.ReturnURL,
		paymentType: p.Config.Checkout.PaymentType,
		maxAmount:   p.Config.Checkout.MaxAmount,
		newIDs:      newIdentifiers,
		metrics:     metrics,
	}
}

// gatewayError maps gateway failures onto transport-neutral application errors.
func gatewayError(err error) error {
	if !errors.Is(err, gateway.ErrRejected) {
		return errorbank.Unavailable("payment gateway unavailable", errorbank.WithCause(err))
	}
	opts := []errorbank.Option{errorbank.WithCause(err)}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		opts = append(opts, errorbank.WithDetail("gateway_message", gwErr.Message))
	}
	return errorbank.GatewayRejected("payment gateway rejected the transaction", opts...)
}

func (s *Service) record(ctx context.Context, counter metric.Int64Counter, outcome string) {
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
