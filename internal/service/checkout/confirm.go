package checkout

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/entity"
	"github.com/Additional-Code/storefront/internal/gateway"
	orderrepo "github.com/Additional-Code/storefront/internal/repository/order"
	"github.com/Additional-Code/storefront/pkg/errorbank"
)

// ConfirmResult is what the payer's browser is told after the gateway redirect. The
// gateway fields are the processor's payload as reported; OrderStatus is the ledger's
// verdict.
type ConfirmResult struct {
	Status            string
	Amount            int64
	BuyOrder          string
	SessionID         string
	VCI               string
	ResponseCode      *int
	AuthorizationCode string
	PaymentTypeCode   string
	CardNumber        string

	OrderStatus entity.OrderStatus
	// Applied is false when the order had already been resolved by an earlier confirmation.
	Applied bool
}

// Confirm commits the transaction behind token and records the verdict. Repeated
// confirmations leave the first recorded status untouched. An authorized commit for an
// order already recorded as failed is reported as ErrReconciliationRequired.
func (s *Service) Confirm(ctx context.Context, token string) (*ConfirmResult, error) {
	ctx, span := serviceTracer.Start(ctx, "CheckoutService.Confirm")
	defer span.End()

	order, err := s.orderByToken(ctx, token)
	if err != nil {
		s.record(ctx, s.metrics.Confirmations, "unknown_token")
		return nil, err
	}
	span.SetAttributes(attribute.String("order.buy_order", order.BuyOrder))

	started := time.Now()
	commit, err := s.gateway.CommitTransaction(ctx, token)
	s.metrics.ObserveGateway(ctx, "commit", started, err)
	if err != nil && order.Status.IsTerminal() && errors.Is(err, gateway.ErrRejected) {
		// The processor refuses a second commit of the same token.
		s.record(ctx, s.metrics.Confirmations, "duplicate")
		s.logger.Info("commit rejected for resolved order",
			zap.String("buy_order", order.BuyOrder),
			zap.String("status", order.Status.String()),
			zap.Error(err),
		)
		return storedResult(order), nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway commit failed")
		s.record(ctx, s.metrics.Confirmations, "gateway_error")
		s.logger.Warn("gateway commit failed",
			zap.String("buy_order", order.BuyOrder),
			zap.String("token", token),
			zap.Error(err),
		)
		return nil, gatewayError(err)
	}

	if (commit.BuyOrder != "" && commit.BuyOrder != order.BuyOrder) || (commit.Amount != 0 && commit.Amount != order.TotalAmount) {
		s.logger.Error("gateway commit does not match order",
			zap.String("buy_order", order.BuyOrder),
			zap.String("gateway_buy_order", commit.BuyOrder),
			zap.Int64("amount", order.TotalAmount),
			zap.Int64("gateway_amount", commit.Amount),
		)
	}

	resolved, applied, err := s.resolve(ctx, order, verdict(commit), auditOf(commit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger update failed")
		s.record(ctx, s.metrics.Confirmations, "ledger_error")
		return nil, err
	}
	span.SetAttributes(attribute.String("order.status", resolved.Status.String()))

	if commit.Authorized() && resolved.Status != entity.OrderStatusPaid {
		// The payer was charged but the ledger kept an earlier failed verdict.
		span.SetStatus(codes.Error, "reconciliation required")
		s.record(ctx, s.metrics.Confirmations, "reconciliation_required")
		s.logger.Error("authorized payment recorded against a failed order",
			zap.String("buy_order", resolved.BuyOrder),
			zap.String("recorded", resolved.Status.String()),
			zap.String("authorization_code", commit.AuthorizationCode),
			zap.Int64("amount", commit.Amount),
		)
		return nil, errorbank.Conflict("payment requires manual reconciliation",
			errorbank.WithCause(ErrReconciliationRequired),
			errorbank.WithDetail("buy_order", resolved.BuyOrder),
		)
	}

	return commitResult(commit, resolved.Status, applied), nil
}

// Abort handles the payer returning without a commit token, which the gateway does when
// the payment form is cancelled or times out. The processor is asked for the
// transaction's state first: an authorized transaction is committed instead, anything
// else resolves the order as failed.
func (s *Service) Abort(ctx context.Context, token string) (*ConfirmResult, error) {
	ctx, span := serviceTracer.Start(ctx, "CheckoutService.Abort")
	defer span.End()

	order, err := s.orderByToken(ctx, token)
	if err != nil {
		s.record(ctx, s.metrics.Confirmations, "unknown_token")
		return nil, err
	}
	span.SetAttributes(attribute.String("order.buy_order", order.BuyOrder))

	if order.Status.IsTerminal() {
		s.record(ctx, s.metrics.Confirmations, "duplicate")
		return storedResult(order), nil
	}

	started := time.Now()
	state, err := s.gateway.TransactionStatus(ctx, token)
	s.metrics.ObserveGateway(ctx, "status", started, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway status failed")
		s.record(ctx, s.metrics.Confirmations, "gateway_error")
		s.logger.Warn("gateway status failed on abort",
			zap.String("buy_order", order.BuyOrder),
			zap.String("token", token),
			zap.Error(err),
		)
		return nil, gatewayError(err)
	}

	if state.Authorized() {
		s.logger.Warn("abort return for an authorized transaction; committing",
			zap.String("buy_order", order.BuyOrder),
		)
		return s.Confirm(ctx, token)
	}

	audit := auditOf(state)
	if audit.GatewayStatus == "" {
		audit.GatewayStatus = gatewayStatusFailed
	}
	resolved, applied, err := s.resolve(ctx, order, entity.OrderStatusFailed, audit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger update failed")
		s.record(ctx, s.metrics.Confirmations, "ledger_error")
		return nil, err
	}

	result := storedResult(resolved)
	result.Applied = applied
	return result, nil
}

// gatewayStatusFailed stands in for orders resolved without a processor status.
const gatewayStatusFailed = "FAILED"

func verdict(commit *gateway.CommitResult) entity.OrderStatus {
	if commit.Authorized() {
		return entity.OrderStatusPaid
	}
	return entity.OrderStatusFailed
}

func auditOf(res *gateway.CommitResult) entity.PaymentAudit {
	return entity.PaymentAudit{
		GatewayStatus:     res.Status,
		ResponseCode:      res.ResponseCode,
		VCI:               res.VCI,
		AuthorizationCode: res.AuthorizationCode,
	}
}

func commitResult(commit *gateway.CommitResult, status entity.OrderStatus, applied bool) *ConfirmResult {
	return &ConfirmResult{
		Status:            commit.Status,
		Amount:            commit.Amount,
		BuyOrder:          commit.BuyOrder,
		SessionID:         commit.SessionID,
		VCI:               commit.VCI,
		ResponseCode:      commit.ResponseCode,
		AuthorizationCode: commit.AuthorizationCode,
		PaymentTypeCode:   commit.PaymentTypeCode,
		CardNumber:        commit.CardNumber,
		OrderStatus:       status,
		Applied:           applied,
	}
}

// storedResult rebuilds the gateway view of a resolved order from the ledger, for when
// the processor will not answer again.
func storedResult(order *entity.Order) *ConfirmResult {
	res := &ConfirmResult{
		Amount:       order.TotalAmount,
		BuyOrder:     order.BuyOrder,
		SessionID:    order.SessionID,
		ResponseCode: order.ResponseCode,
		OrderStatus:  order.Status,
	}
	switch {
	case order.GatewayStatus != nil:
		res.Status = *order.GatewayStatus
	case order.Status == entity.OrderStatusPaid:
		res.Status = gateway.StatusAuthorized
	case order.Status == entity.OrderStatusFailed:
		res.Status = gatewayStatusFailed
	}
	if order.VCI != nil {
		res.VCI = *order.VCI
	}
	if order.AuthorizationCode != nil {
		res.AuthorizationCode = *order.AuthorizationCode
	}
	return res
}

func (s *Service) orderByToken(ctx context.Context, token string) (*entity.Order, error) {
	if token == "" {
		return nil, errorbank.BadRequest("token_ws is required", errorbank.WithCause(ErrUnknownToken))
	}
	order, err := s.ledger.GetByToken(ctx, token)
	if errors.Is(err, orderrepo.ErrNotFound) {
		s.logger.Warn("confirmation for unknown token", zap.String("token", token))
		return nil, errorbank.NotFound("transaction not found", errorbank.WithCause(ErrUnknownToken))
	}
	if err != nil {
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

func (s *Service) resolve(ctx context.Context, order *entity.Order, status entity.OrderStatus, audit entity.PaymentAudit) (*entity.Order, bool, error) {
	resolved, applied, err := s.ledger.TransitionStatus(ctx, order, status, audit)
	if err != nil {
		s.logger.Error("order transition failed",
			zap.String("buy_order", order.BuyOrder),
			zap.String("status", status.String()),
			zap.Error(err),
		)
		return nil, false, errorbank.Internal("failed to record payment result", errorbank.WithCause(err))
	}

	if !applied {
		s.record(ctx, s.metrics.Confirmations, "duplicate")
		if resolved.Status != status {
			s.logger.Warn("order already resolved with a different status",
				zap.String("buy_order", resolved.BuyOrder),
				zap.String("recorded", resolved.Status.String()),
				zap.String("incoming", status.String()),
			)
		}
		return resolved, false, nil
	}

	s.record(ctx, s.metrics.Confirmations, resolved.Status.String())
	s.logger.Info("order resolved",
		zap.String("buy_order", resolved.BuyOrder),
		zap.String("status", resolved.Status.String()),
	)
	s.invalidate(ctx, resolved.BuyOrder)
	s.publish(ctx, EventOrderResolved, resolved)
	return resolved, true, nil
}
