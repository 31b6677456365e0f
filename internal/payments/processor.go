package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storepay/internal/gateway"
	"storepay/internal/models"
	"storepay/internal/pkg/utils"
)

// Outcome statuses reported back to result pages and the opener window.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeError   = "error"
)

// Outcome is the terminal verdict of one payment attempt.
type Outcome struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	OrderNo string `json:"orderNo"`
	Amount  int64  `json:"amount"`
	Tid     string `json:"tid"`
}

// OrderLocker serializes refund processing per order number.
type OrderLocker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Persistence seams the processor works through. The concrete
// repository types satisfy them.

type UserStore interface {
	FindByID(id uint) (*models.User, error)
	AddPoints(id uint, delta int64) error
}

type OrderStore interface {
	FindByOrderNo(orderNo string) (*models.Order, error)
	FindByUserID(userID uint, limit, page int) ([]models.Order, int64, error)
	Create(order *models.Order) error
	UpdateByOrderNo(orderNo string, updates map[string]interface{}) error
	FindStalePending(cutoff time.Time) ([]models.Order, error)
}

type PaymentStore interface {
	Create(payment *models.Payment) error
	FindByOrderNo(orderNo string) ([]models.Payment, error)
	FindByOrderNos(orderNos []string) ([]models.Payment, error)
	FindCompleted(orderNo, paymentType string) (*models.Payment, error)
	HasRefund(orderNo, refundType string) (bool, error)
	ExistsByOrderNoAndTid(orderNo, tid string) (bool, error)
	SumActiveByOrderNo(orderNo string) (int64, error)
	CountRefunds(orderNo string) (int64, error)
	MarkRefunded(orderNo, tid string) error
}

type GatewayLogStore interface {
	CreateGatewayLog(log *models.GatewayLog) error
}

// Repos bundles the stores the processor works with.
type Repos struct {
	User    UserStore
	Order   OrderStore
	Payment PaymentStore
	Log     GatewayLogStore
}

// Processor owns the order/payment lifecycle: order creation with point
// clamping, gateway reconciliation, refunds and stale-order expiry.
type Processor struct {
	repos         *Repos
	selector      *gateway.Selector
	locker        OrderLocker
	logger        *zap.Logger
	minCardAmount int64
}

func NewProcessor(repos *Repos, selector *gateway.Selector, locker OrderLocker, minCardAmount int64, logger *zap.Logger) *Processor {
	if minCardAmount <= 0 {
		minCardAmount = 100
	}
	return &Processor{
		repos:         repos,
		selector:      selector,
		locker:        locker,
		logger:        logger,
		minCardAmount: minCardAmount,
	}
}

// ── Order creation ───────────────────────────────────────────────────

// CreateOrder validates and persists a new order. Requested points are
// clamped to what the user holds and to the order total; a card amount
// below the minimum is rejected before anything is written.
func (p *Processor) CreateOrder(ctx context.Context, userID uint, totalAmount, requestedPoints int64) (*models.Order, error) {
	if totalAmount <= 0 {
		return nil, fmt.Errorf("order total must be positive")
	}

	user, err := p.repos.User.FindByID(userID)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	pointsUsed := ClampPoints(requestedPoints, user.Points, totalAmount)
	cardAmount := totalAmount - pointsUsed

	if cardAmount > 0 && cardAmount < p.minCardAmount {
		return nil, fmt.Errorf("card amount %d is below the minimum of %d", cardAmount, p.minCardAmount)
	}

	order := &models.Order{
		OrderNo:     utils.GenerateOrderNo(),
		UserID:      userID,
		TotalAmount: totalAmount,
		PointsUsed:  pointsUsed,
		CardAmount:  cardAmount,
		Status:      models.OrderStatusPending,
		Provider:    p.selector.Pick().Name(),
	}
	if err := p.repos.Order.Create(order); err != nil {
		return nil, fmt.Errorf("order create failed: %w", err)
	}

	if pointsUsed > 0 {
		if err := p.repos.User.AddPoints(userID, -pointsUsed); err != nil {
			// No points left the account. The order must not stay
			// PENDING claiming it holds them, or expiry would hand the
			// user points that were never taken.
			if uerr := p.repos.Order.UpdateByOrderNo(order.OrderNo, map[string]interface{}{
				"status":      models.OrderStatusFailed,
				"points_used": int64(0),
			}); uerr != nil {
				p.logger.Error("order cleanup after failed point deduction failed",
					zap.String("order_no", order.OrderNo), zap.Error(uerr))
			}
			return nil, fmt.Errorf("point deduction failed: %w", err)
		}
		pointRow := &models.Payment{
			OrderNo:     order.OrderNo,
			Tid:         utils.GeneratePointsTid(),
			Amount:      pointsUsed,
			Status:      models.PaymentStatusCompleted,
			ResultCode:  "0000",
			ResultMsg:   "points applied",
			PaymentType: models.PaymentTypePoint,
		}
		if err := p.repos.Payment.Create(pointRow); err != nil {
			p.logger.Error("point payment row create failed", zap.String("order_no", order.OrderNo), zap.Error(err))
		}
	}

	// Fully covered by points: no gateway round-trip needed.
	if cardAmount == 0 && pointsUsed > 0 {
		updates := map[string]interface{}{
			"status":            models.OrderStatusCompleted,
			"payment_completed": true,
			"payment_method":    models.PaymentMethodPointsOnly,
		}
		if err := p.repos.Order.UpdateByOrderNo(order.OrderNo, updates); err != nil {
			return nil, fmt.Errorf("points-only completion failed: %w", err)
		}
		order.Status = models.OrderStatusCompleted
		order.PaymentCompleted = true
		order.PaymentMethod = models.PaymentMethodPointsOnly
	}

	return order, nil
}

// ClampPoints bounds a point request by the user's balance and the order
// total. Negative requests count as zero.
func ClampPoints(requested, balance, total int64) int64 {
	if requested > balance {
		requested = balance
	}
	if requested > total {
		requested = total
	}
	if requested < 0 {
		return 0
	}
	return requested
}

// ── Reconciliation ───────────────────────────────────────────────────

// ProcessResult reconciles a gateway result against the backend. A
// success verdict is only issued after the provider's approval call
// settles the money; the window's own claim is never trusted.
func (p *Processor) ProcessResult(ctx context.Context, fields *gateway.CallbackFields) *Outcome {
	order, err := p.repos.Order.FindByOrderNo(fields.OrderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Outcome{Status: OutcomeError, Message: "order not found", OrderNo: fields.OrderNo}
		}
		p.logger.Error("order lookup failed", zap.String("order_no", fields.OrderNo), zap.Error(err))
		return &Outcome{Status: OutcomeError, Message: "order lookup failed", OrderNo: fields.OrderNo}
	}

	// Duplicate delivery of an already settled result is answered with
	// the stored verdict instead of reprocessing.
	if order.PaymentCompleted {
		return &Outcome{
			Status:  OutcomeSuccess,
			Message: "payment already completed",
			OrderNo: order.OrderNo,
			Amount:  order.TotalAmount,
			Tid:     fields.Tid,
		}
	}
	if fields.Tid != "" {
		if seen, _ := p.repos.Payment.ExistsByOrderNoAndTid(order.OrderNo, fields.Tid); seen {
			return &Outcome{
				Status:  OutcomeSuccess,
				Message: "transaction already recorded",
				OrderNo: order.OrderNo,
				Amount:  order.TotalAmount,
				Tid:     fields.Tid,
			}
		}
	}
	if order.IsTerminal() {
		return &Outcome{Status: OutcomeFailed, Message: "order is no longer payable", OrderNo: order.OrderNo}
	}

	if !fields.Succeeded(order.Provider) {
		msg := fields.ResultMsg
		if msg == "" {
			msg = "payment was not completed"
		}
		p.failOrder(order, fields.ResultCode, msg, fields.Tid)
		return &Outcome{Status: OutcomeFailed, Message: msg, OrderNo: order.OrderNo, Tid: fields.Tid}
	}

	gw, err := p.selector.ByName(order.Provider)
	if err != nil {
		p.logger.Error("gateway resolve failed", zap.String("provider", order.Provider), zap.Error(err))
		p.failOrder(order, "GWERR", "payment provider unavailable", fields.Tid)
		return &Outcome{Status: OutcomeFailed, Message: "payment provider unavailable", OrderNo: order.OrderNo}
	}

	_ = p.repos.Order.UpdateByOrderNo(order.OrderNo, map[string]interface{}{
		"status": models.OrderStatusPendingApproval,
	})

	approve, err := gw.Approve(ctx, fields)
	if err != nil {
		p.logger.Error("gateway approve failed",
			zap.String("order_no", order.OrderNo),
			zap.String("provider", order.Provider),
			zap.Error(err))
		p.failOrder(order, "APPROVE_ERR", "payment approval failed", fields.Tid)
		return &Outcome{Status: OutcomeFailed, Message: "payment approval failed", OrderNo: order.OrderNo, Tid: fields.Tid}
	}
	p.logGatewayCall(order.OrderNo, gw.Name(), "APPROVE", approve.RequestURL, approve.RawRequest, approve.RawResponse, approve.Approved, approve.ResultMsg, approve.Tid)

	if !approve.Approved {
		msg := approve.ResultMsg
		if msg == "" {
			msg = "payment approval rejected"
		}
		p.failOrder(order, approve.ResultCode, msg, approve.Tid)
		return &Outcome{Status: OutcomeFailed, Message: msg, OrderNo: order.OrderNo, Tid: approve.Tid}
	}
	if approve.Amount > 0 && approve.Amount != order.CardAmount {
		p.logger.Warn("approved amount mismatch",
			zap.String("order_no", order.OrderNo),
			zap.Int64("expected", order.CardAmount),
			zap.Int64("approved", approve.Amount))
		p.failOrder(order, "AMT_MISMATCH", "approved amount does not match the order", approve.Tid)
		return &Outcome{Status: OutcomeFailed, Message: "approved amount does not match the order", OrderNo: order.OrderNo, Tid: approve.Tid}
	}

	// The provider holds the money now; record that before the local
	// settlement bookkeeping runs.
	_ = p.repos.Order.UpdateByOrderNo(order.OrderNo, map[string]interface{}{
		"status": models.OrderStatusApproved,
	})

	return p.completeOrder(order, gw.Name(), approve)
}

// CurrentOutcome reads the stored verdict for an order without touching
// the gateway. Used when a duplicate result delivery is suppressed.
func (p *Processor) CurrentOutcome(orderNo string) *Outcome {
	order, err := p.repos.Order.FindByOrderNo(orderNo)
	if err != nil {
		return &Outcome{Status: OutcomeError, Message: "order not found", OrderNo: orderNo}
	}
	if order.PaymentCompleted {
		return &Outcome{
			Status:  OutcomeSuccess,
			Message: "payment already completed",
			OrderNo: order.OrderNo,
			Amount:  order.TotalAmount,
		}
	}
	if order.IsTerminal() {
		return &Outcome{Status: OutcomeFailed, Message: "payment did not complete", OrderNo: order.OrderNo}
	}
	return &Outcome{Status: OutcomeFailed, Message: "payment result is still being processed", OrderNo: order.OrderNo}
}

func (p *Processor) completeOrder(order *models.Order, provider string, approve *gateway.ApproveResult) *Outcome {
	paymentType := models.PaymentTypeCard
	if provider == gateway.ProviderNicepay {
		paymentType = models.PaymentTypeNicepayCard
	}

	row := &models.Payment{
		OrderNo:     order.OrderNo,
		Tid:         approve.Tid,
		Amount:      order.CardAmount,
		Status:      models.PaymentStatusCompleted,
		ResultCode:  approve.ResultCode,
		ResultMsg:   approve.ResultMsg,
		PaymentType: paymentType,
		Provider:    provider,
		CardName:    approve.CardName,
		CardCode:    approve.CardCode,
		ApplNum:     approve.ApplNum,
	}
	if err := p.repos.Payment.Create(row); err != nil {
		p.logger.Error("payment row create failed", zap.String("order_no", order.OrderNo), zap.Error(err))
	}

	updates := map[string]interface{}{
		"status":            models.OrderStatusCompleted,
		"payment_completed": true,
		"payment_method":    models.PaymentMethodCard,
	}
	if err := p.repos.Order.UpdateByOrderNo(order.OrderNo, updates); err != nil {
		p.logger.Error("order completion update failed", zap.String("order_no", order.OrderNo), zap.Error(err))
	}

	// Purchase reward: 1% of the total, at least one point.
	bonus := order.TotalAmount / 100
	if bonus < 1 {
		bonus = 1
	}
	if err := p.repos.User.AddPoints(order.UserID, bonus); err != nil {
		p.logger.Error("bonus point award failed", zap.Uint("user_id", order.UserID), zap.Error(err))
	}

	p.logger.Info("payment completed",
		zap.String("order_no", order.OrderNo),
		zap.String("provider", provider),
		zap.String("tid", approve.Tid),
		zap.Int64("amount", order.CardAmount))

	return &Outcome{
		Status:  OutcomeSuccess,
		Message: "payment completed",
		OrderNo: order.OrderNo,
		Amount:  order.TotalAmount,
		Tid:     approve.Tid,
	}
}

// failOrder marks the order FAILED, returns the points it held and
// records the failed attempt.
func (p *Processor) failOrder(order *models.Order, resultCode, resultMsg, tid string) {
	if order.PointsUsed > 0 {
		if err := p.repos.User.AddPoints(order.UserID, order.PointsUsed); err != nil {
			p.logger.Error("point restore failed", zap.String("order_no", order.OrderNo), zap.Error(err))
		}
	}

	row := &models.Payment{
		OrderNo:     order.OrderNo,
		Tid:         tid,
		Amount:      order.CardAmount,
		Status:      models.PaymentStatusFailed,
		ResultCode:  resultCode,
		ResultMsg:   resultMsg,
		PaymentType: models.PaymentTypeCard,
		Provider:    order.Provider,
	}
	if err := p.repos.Payment.Create(row); err != nil {
		p.logger.Error("failed payment row create failed", zap.String("order_no", order.OrderNo), zap.Error(err))
	}

	if err := p.repos.Order.UpdateByOrderNo(order.OrderNo, map[string]interface{}{
		"status": models.OrderStatusFailed,
	}); err != nil {
		p.logger.Error("order failure update failed", zap.String("order_no", order.OrderNo), zap.Error(err))
	}

	p.logger.Info("payment failed",
		zap.String("order_no", order.OrderNo),
		zap.String("result_code", resultCode),
		zap.String("result_msg", resultMsg))
}

func (p *Processor) logGatewayCall(orderNo, provider, requestType, url, rawReq, rawResp string, ok bool, errMsg, tid string) {
	row := &models.GatewayLog{
		OrderNo:       orderNo,
		Provider:      provider,
		RequestType:   requestType,
		RequestURL:    url,
		RequestData:   rawReq,
		ResponseData:  rawResp,
		IsSuccess:     ok,
		TransactionID: tid,
	}
	if !ok {
		row.ErrorMessage = errMsg
	}
	if err := p.repos.Log.CreateGatewayLog(row); err != nil {
		p.logger.Warn("gateway log write failed", zap.String("order_no", orderNo), zap.Error(err))
	}
}
