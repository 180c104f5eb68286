package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/storefront/internal/database"
	"github.com/Additional-Code/storefront/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/storefront/repository/order")

var (
	// ErrNotFound is returned when an order is missing.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateBuyOrder means the generated buy order already exists in the ledger.
	ErrDuplicateBuyOrder = errors.New("duplicate buy order")
	// ErrDuplicateToken means another order already holds the gateway token.
	ErrDuplicateToken = errors.New("duplicate gateway token")
	// ErrInvalidTransition is returned when the requested status is not terminal.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Repository is the order ledger. Reads that feed a status transition use the writer so
// they never observe replica lag.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
	now    func() time.Time
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new pending order. It never overwrites an existing row.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.buy_order", order.BuyOrder)))
	defer span.End()

	now := r.now()
	order.Status = entity.OrderStatusPending
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err == nil {
		return nil
	}

	span.RecordError(err)
	switch {
	case database.ViolatedColumn(err, "buy_order"):
		span.SetStatus(codes.Error, "duplicate buy order")
		return ErrDuplicateBuyOrder
	case database.ViolatedColumn(err, "token"):
		span.SetStatus(codes.Error, "duplicate token")
		return ErrDuplicateToken
	default:
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
}

// GetByToken fetches the order holding the gateway token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByToken")
	defer span.End()

	return r.selectOne(ctx, span, r.writer, "token = ?", token)
}

// GetByBuyOrder fetches an order by its public identifier using the read replica.
func (r *Repository) GetByBuyOrder(ctx context.Context, buyOrder string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByBuyOrder", trace.WithAttributes(attribute.String("order.buy_order", buyOrder)))
	defer span.End()

	return r.selectOne(ctx, span, r.reader, "buy_order = ?", buyOrder)
}

// TransitionStatus moves a pending order to a terminal status with a single conditional
// update. When the order is already resolved the stored row is returned unchanged and
// applied is false.
func (r *Repository) TransitionStatus(ctx context.Context, order *entity.Order, status entity.OrderStatus, audit entity.PaymentAudit) (*entity.Order, bool, error) {
	if order == nil {
		return nil, false, errors.New("nil order")
	}
	if !status.IsTerminal() {
		return nil, false, ErrInvalidTransition
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.TransitionStatus", trace.WithAttributes(
		attribute.String("order.buy_order", order.BuyOrder),
		attribute.String("order.status", status.String()),
	))
	defer span.End()

	q := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", r.now()).
		Where("id = ?", order.ID).
		Where("status = ?", entity.OrderStatusPending)
	if audit.GatewayStatus != "" {
		q = q.Set("gateway_status = ?", audit.GatewayStatus)
	}
	if audit.ResponseCode != nil {
		q = q.Set("response_code = ?", *audit.ResponseCode)
	}
	if audit.VCI != "" {
		q = q.Set("vci = ?", audit.VCI)
	}
	if audit.AuthorizationCode != "" {
		q = q.Set("authorization_code = ?", audit.AuthorizationCode)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rows affected")
		return nil, false, err
	}

	current, err := r.selectOne(ctx, span, r.writer, "id = ?", order.ID)
	if err != nil {
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("order.transition_applied", affected > 0))
	return current, affected > 0, nil
}

func (r *Repository) selectOne(ctx context.Context, span trace.Span, db *bun.DB, where string, arg any) (*entity.Order, error) {
	order := new(entity.Order)
	err := db.NewSelect().Model(order).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}
