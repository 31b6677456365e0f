package payments

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storepay/internal/gateway"
	"storepay/internal/models"
)

// ErrRefundInProgress is returned when another refund holds the order lock.
var ErrRefundInProgress = fmt.Errorf("another refund for this order is in progress")

// RefundOrder reverses everything a COMPLETED order settled: the card
// transaction through the provider and any points it consumed. The whole
// flow runs under a per-order lock so concurrent requests cannot both
// pass the refundability check.
func (p *Processor) RefundOrder(ctx context.Context, orderNo, reason, clientIP string) error {
	return p.withOrderLock(ctx, orderNo, func() error {
		order, err := p.repos.Order.FindByOrderNo(orderNo)
		if err != nil {
			return fmt.Errorf("order lookup failed: %w", err)
		}
		if err := canRefund(order); err != nil {
			return err
		}

		if order.CardAmount > 0 {
			if err := p.refundCardLocked(ctx, order, reason, clientIP); err != nil {
				return err
			}
		}
		if order.PointsUsed > 0 {
			if err := p.refundPointsLocked(order, reason); err != nil {
				return err
			}
		}

		return p.recomputeOrderStatus(orderNo)
	})
}

// RefundPoints returns only the points an order consumed.
func (p *Processor) RefundPoints(ctx context.Context, orderNo, reason string) error {
	return p.withOrderLock(ctx, orderNo, func() error {
		order, err := p.repos.Order.FindByOrderNo(orderNo)
		if err != nil {
			return fmt.Errorf("order lookup failed: %w", err)
		}
		if err := canRefund(order); err != nil {
			return err
		}
		if order.PointsUsed <= 0 {
			return fmt.Errorf("order used no points")
		}
		if err := p.refundPointsLocked(order, reason); err != nil {
			return err
		}
		return p.recomputeOrderStatus(orderNo)
	})
}

// RefundTid reverses a single card transaction by its tid.
func (p *Processor) RefundTid(ctx context.Context, orderNo, tid, reason, clientIP string) error {
	return p.withOrderLock(ctx, orderNo, func() error {
		order, err := p.repos.Order.FindByOrderNo(orderNo)
		if err != nil {
			return fmt.Errorf("order lookup failed: %w", err)
		}
		if err := canRefund(order); err != nil {
			return err
		}
		if err := p.refundCardTidLocked(ctx, order, tid, reason, clientIP); err != nil {
			return err
		}
		return p.recomputeOrderStatus(orderNo)
	})
}

func canRefund(order *models.Order) error {
	if order.Status != models.OrderStatusCompleted {
		return fmt.Errorf("order %s is not refundable in status %s", order.OrderNo, order.Status)
	}
	if order.TotalAmount <= 0 {
		return fmt.Errorf("order %s has nothing to refund", order.OrderNo)
	}
	return nil
}

func (p *Processor) refundCardLocked(ctx context.Context, order *models.Order, reason, clientIP string) error {
	cardRow, err := p.repos.Payment.FindCompleted(order.OrderNo, models.PaymentTypeCard)
	if err != nil {
		cardRow, err = p.repos.Payment.FindCompleted(order.OrderNo, models.PaymentTypeNicepayCard)
	}
	if err != nil {
		return fmt.Errorf("no settled card transaction for order %s", order.OrderNo)
	}
	return p.reverseCardRow(ctx, order, cardRow, reason, clientIP)
}

func (p *Processor) refundCardTidLocked(ctx context.Context, order *models.Order, tid, reason, clientIP string) error {
	rows, err := p.repos.Payment.FindByOrderNo(order.OrderNo)
	if err != nil {
		return fmt.Errorf("payment lookup failed: %w", err)
	}
	for i := range rows {
		row := &rows[i]
		if row.Tid == tid && !row.IsRefund() && row.Status == models.PaymentStatusCompleted {
			return p.reverseCardRow(ctx, order, row, reason, clientIP)
		}
	}
	return fmt.Errorf("no settled transaction %s for order %s", tid, order.OrderNo)
}

func (p *Processor) reverseCardRow(ctx context.Context, order *models.Order, cardRow *models.Payment, reason, clientIP string) error {
	if refunded, _ := p.repos.Payment.HasRefund(order.OrderNo, models.PaymentTypeCardRefund); refunded {
		return fmt.Errorf("card payment for order %s is already refunded", order.OrderNo)
	}

	provider := cardRow.Provider
	if provider == "" {
		provider = order.Provider
	}
	gw, err := p.selector.ByName(provider)
	if err != nil {
		return fmt.Errorf("gateway resolve failed: %w", err)
	}

	result, err := gw.Refund(ctx, &gateway.RefundRequest{
		OrderNo:  order.OrderNo,
		Tid:      cardRow.Tid,
		Amount:   cardRow.Amount,
		Reason:   reason,
		ClientIP: clientIP,
	})
	if err != nil {
		return fmt.Errorf("gateway refund failed: %w", err)
	}
	p.logGatewayCall(order.OrderNo, provider, "REFUND", result.RequestURL, result.RawRequest, result.RawResponse, result.Refunded, result.ResultMsg, cardRow.Tid)

	if !result.Refunded {
		return fmt.Errorf("gateway refused the refund: %s (%s)", result.ResultMsg, result.ResultCode)
	}

	refundRow := &models.Payment{
		OrderNo:     order.OrderNo,
		Tid:         cardRow.Tid, // refunds keep the original tid
		Amount:      -cardRow.Amount,
		Status:      models.PaymentStatusRefunded,
		ResultCode:  result.ResultCode,
		ResultMsg:   result.ResultMsg,
		PaymentType: models.PaymentTypeCardRefund,
		Provider:    provider,
	}
	if err := p.repos.Payment.Create(refundRow); err != nil {
		return fmt.Errorf("refund row create failed: %w", err)
	}
	if err := p.repos.Payment.MarkRefunded(order.OrderNo, cardRow.Tid); err != nil {
		p.logger.Error("mark refunded failed", zap.String("order_no", order.OrderNo), zap.Error(err))
	}

	p.logger.Info("card refund completed",
		zap.String("order_no", order.OrderNo),
		zap.String("tid", cardRow.Tid),
		zap.Int64("amount", cardRow.Amount))
	return nil
}

func (p *Processor) refundPointsLocked(order *models.Order, reason string) error {
	if refunded, _ := p.repos.Payment.HasRefund(order.OrderNo, models.PaymentTypePointRefund); refunded {
		return fmt.Errorf("points for order %s are already refunded", order.OrderNo)
	}

	pointRow, err := p.repos.Payment.FindCompleted(order.OrderNo, models.PaymentTypePoint)
	if err != nil {
		return fmt.Errorf("no point usage recorded for order %s", order.OrderNo)
	}

	if err := p.repos.User.AddPoints(order.UserID, pointRow.Amount); err != nil {
		return fmt.Errorf("point restore failed: %w", err)
	}

	if reason == "" {
		reason = "points refunded"
	}
	refundRow := &models.Payment{
		OrderNo:     order.OrderNo,
		Tid:         pointRow.Tid,
		Amount:      -pointRow.Amount,
		Status:      models.PaymentStatusRefunded,
		ResultCode:  "0000",
		ResultMsg:   reason,
		PaymentType: models.PaymentTypePointRefund,
	}
	if err := p.repos.Payment.Create(refundRow); err != nil {
		return fmt.Errorf("point refund row create failed: %w", err)
	}
	if err := p.repos.Payment.MarkRefunded(order.OrderNo, pointRow.Tid); err != nil {
		p.logger.Error("mark refunded failed", zap.String("order_no", order.OrderNo), zap.Error(err))
	}

	p.logger.Info("point refund completed",
		zap.String("order_no", order.OrderNo),
		zap.Int64("points", pointRow.Amount))
	return nil
}

// recomputeOrderStatus derives the order status from its payment rows:
// when nothing active remains and at least one refund exists, the order
// is CANCELLED.
func (p *Processor) recomputeOrderStatus(orderNo string) error {
	activeSum, err := p.repos.Payment.SumActiveByOrderNo(orderNo)
	if err != nil {
		return fmt.Errorf("active sum failed: %w", err)
	}
	refunds, err := p.repos.Payment.CountRefunds(orderNo)
	if err != nil {
		return fmt.Errorf("refund count failed: %w", err)
	}
	if activeSum == 0 && refunds > 0 {
		return p.repos.Order.UpdateByOrderNo(orderNo, map[string]interface{}{
			"status":            models.OrderStatusCancelled,
			"payment_completed": false,
		})
	}
	return nil
}

func (p *Processor) withOrderLock(ctx context.Context, orderNo string, fn func() error) error {
	if p.locker != nil {
		ok, err := p.locker.Acquire(ctx, "refund:"+orderNo)
		if err != nil {
			p.logger.Warn("refund lock acquire error", zap.String("order_no", orderNo), zap.Error(err))
		} else if !ok {
			return ErrRefundInProgress
		}
		defer func() {
			_ = p.locker.Release(ctx, "refund:"+orderNo)
		}()
	}
	return fn()
}

// ── Stale order expiry ───────────────────────────────────────────────

// ExpireStale fails orders that never received a gateway result and
// returns the points they hold. Runs from the scheduler.
func (p *Processor) ExpireStale(ctx context.Context, cutoff time.Time) (int, error) {
	orders, err := p.repos.Order.FindStalePending(cutoff)
	if err != nil {
		return 0, fmt.Errorf("stale order lookup failed: %w", err)
	}
	for i := range orders {
		order := &orders[i]
		p.failOrder(order, "EXPIRED", "no payment result received in time", "")
	}
	return len(orders), nil
}
