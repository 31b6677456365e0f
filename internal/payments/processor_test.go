package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storepay/internal/gateway"
	"storepay/internal/models"
)

func TestClampPointsRespectsBalance(t *testing.T) {
	assert.Equal(t, int64(3000), ClampPoints(5000, 3000, 10000))
}

func TestClampPointsRespectsOrderTotal(t *testing.T) {
	assert.Equal(t, int64(10000), ClampPoints(20000, 50000, 10000))
}

func TestClampPointsTakesRequestWhenAffordable(t *testing.T) {
	assert.Equal(t, int64(1500), ClampPoints(1500, 5000, 10000))
}

func TestClampPointsNeverNegative(t *testing.T) {
	assert.Equal(t, int64(0), ClampPoints(-100, 5000, 10000))
	assert.Equal(t, int64(0), ClampPoints(100, -5, 10000))
	assert.Equal(t, int64(0), ClampPoints(0, 5000, 10000))
}

func TestClampPointsFullCoverage(t *testing.T) {
	// Requested points covering the whole order leave no card amount.
	assert.Equal(t, int64(10000), ClampPoints(10000, 10000, 10000))
}

// ── In-memory stores ─────────────────────────────────────────────────

type fakeUserStore struct {
	users     map[uint]*models.User
	deductErr error
}

func (s *fakeUserStore) FindByID(id uint) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *fakeUserStore) AddPoints(id uint, delta int64) error {
	if delta < 0 && s.deductErr != nil {
		return s.deductErr
	}
	user, ok := s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.Points += delta
	return nil
}

type fakeOrderStore struct {
	orders map[string]*models.Order
}

func (s *fakeOrderStore) FindByOrderNo(orderNo string) (*models.Order, error) {
	order, ok := s.orders[orderNo]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *fakeOrderStore) FindByUserID(userID uint, limit, page int) ([]models.Order, int64, error) {
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeOrderStore) Create(order *models.Order) error {
	s.orders[order.OrderNo] = order
	return nil
}

func (s *fakeOrderStore) UpdateByOrderNo(orderNo string, updates map[string]interface{}) error {
	order, ok := s.orders[orderNo]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["status"]; ok {
		order.Status = v.(string)
	}
	if v, ok := updates["points_used"]; ok {
		order.PointsUsed = v.(int64)
	}
	if v, ok := updates["payment_completed"]; ok {
		order.PaymentCompleted = v.(bool)
	}
	if v, ok := updates["payment_method"]; ok {
		order.PaymentMethod = v.(string)
	}
	return nil
}

func (s *fakeOrderStore) FindStalePending(cutoff time.Time) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		stale := o.Status == models.OrderStatusPending || o.Status == models.OrderStatusPendingApproval
		if stale && o.CreatedAt.Before(cutoff) {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakePaymentStore struct {
	rows []models.Payment
}

func (s *fakePaymentStore) Create(payment *models.Payment) error {
	s.rows = append(s.rows, *payment)
	return nil
}

func (s *fakePaymentStore) FindByOrderNo(orderNo string) ([]models.Payment, error) {
	var out []models.Payment
	for _, row := range s.rows {
		if row.OrderNo == orderNo {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *fakePaymentStore) FindByOrderNos(orderNos []string) ([]models.Payment, error) {
	var out []models.Payment
	for _, no := range orderNos {
		rows, _ := s.FindByOrderNo(no)
		out = append(out, rows...)
	}
	return out, nil
}

func (s *fakePaymentStore) FindCompleted(orderNo, paymentType string) (*models.Payment, error) {
	for i := range s.rows {
		row := s.rows[i]
		if row.OrderNo == orderNo && row.PaymentType == paymentType && row.Status == models.PaymentStatusCompleted {
			return &row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakePaymentStore) HasRefund(orderNo, refundType string) (bool, error) {
	for _, row := range s.rows {
		if row.OrderNo == orderNo && row.PaymentType == refundType {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePaymentStore) ExistsByOrderNoAndTid(orderNo, tid string) (bool, error) {
	for _, row := range s.rows {
		if row.OrderNo == orderNo && row.Tid == tid && row.Status == models.PaymentStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePaymentStore) SumActiveByOrderNo(orderNo string) (int64, error) {
	var sum int64
	for _, row := range s.rows {
		if row.OrderNo == orderNo && row.Status == models.PaymentStatusCompleted && !row.IsRefund() {
			sum += row.Amount
		}
	}
	return sum, nil
}

func (s *fakePaymentStore) CountRefunds(orderNo string) (int64, error) {
	var count int64
	for _, row := range s.rows {
		if row.OrderNo == orderNo && row.IsRefund() {
			count++
		}
	}
	return count, nil
}

func (s *fakePaymentStore) MarkRefunded(orderNo, tid string) error {
	for i := range s.rows {
		row := &s.rows[i]
		if row.OrderNo == orderNo && row.Tid == tid && !row.IsRefund() {
			row.Status = models.PaymentStatusRefunded
		}
	}
	return nil
}

type fakeGatewayLogStore struct {
	logs []models.GatewayLog
}

func (s *fakeGatewayLogStore) CreateGatewayLog(log *models.GatewayLog) error {
	s.logs = append(s.logs, *log)
	return nil
}

type stubGateway struct {
	name string
}

func (g *stubGateway) Name() string { return g.name }

func (g *stubGateway) BuildPaymentForm(ctx context.Context, req *gateway.FormRequest) (*gateway.PaymentForm, error) {
	return &gateway.PaymentForm{Provider: g.name}, nil
}

func (g *stubGateway) Approve(ctx context.Context, cb *gateway.CallbackFields) (*gateway.ApproveResult, error) {
	return &gateway.ApproveResult{Approved: true, Tid: cb.Tid, ResultCode: "0000"}, nil
}

func (g *stubGateway) Refund(ctx context.Context, req *gateway.RefundRequest) (*gateway.RefundResult, error) {
	return &gateway.RefundResult{Refunded: true, ResultCode: "2001"}, nil
}

type testEnv struct {
	users    *fakeUserStore
	orders   *fakeOrderStore
	payments *fakePaymentStore
	proc     *Processor
}

func newTestEnv(points int64) *testEnv {
	env := &testEnv{
		users: &fakeUserStore{users: map[uint]*models.User{
			1: {ID: 1, Email: "test@example.com", Name: "Test User", Points: points},
		}},
		orders:   &fakeOrderStore{orders: map[string]*models.Order{}},
		payments: &fakePaymentStore{},
	}
	selector := gateway.NewSelector("stub", &stubGateway{name: "stub"})
	env.proc = NewProcessor(&Repos{
		User:    env.users,
		Order:   env.orders,
		Payment: env.payments,
		Log:     &fakeGatewayLogStore{},
	}, selector, nil, 100, zap.NewNop())
	return env
}

// ── CreateOrder ──────────────────────────────────────────────────────

func TestCreateOrderRejectsCardAmountBelowMinimum(t *testing.T) {
	env := newTestEnv(5000)

	// 1050 total minus 1000 points leaves a 50 won card amount.
	_, err := env.proc.CreateOrder(context.Background(), 1, 1050, 1000)
	require.Error(t, err)

	assert.Empty(t, env.orders.orders, "no order row may be written")
	assert.Empty(t, env.payments.rows, "no payment row may be written")
	assert.Equal(t, int64(5000), env.users.users[1].Points, "no points may move")
}

func TestCreateOrderCardPlusPoints(t *testing.T) {
	env := newTestEnv(5000)

	order, err := env.proc.CreateOrder(context.Background(), 1, 10000, 500)
	require.NoError(t, err)

	assert.Equal(t, int64(500), order.PointsUsed)
	assert.Equal(t, int64(9500), order.CardAmount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "stub", order.Provider)
	assert.Equal(t, int64(4500), env.users.users[1].Points)

	require.Len(t, env.payments.rows, 1)
	assert.Equal(t, models.PaymentTypePoint, env.payments.rows[0].PaymentType)
	assert.Equal(t, int64(500), env.payments.rows[0].Amount)
}

func TestCreateOrderPointsOnlyCompletesImmediately(t *testing.T) {
	env := newTestEnv(5000)

	order, err := env.proc.CreateOrder(context.Background(), 1, 1000, 1000)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.True(t, order.PaymentCompleted)
	assert.Equal(t, models.PaymentMethodPointsOnly, order.PaymentMethod)
	assert.Equal(t, int64(0), order.CardAmount)
	assert.Equal(t, int64(4000), env.users.users[1].Points)
}

func TestCreateOrderFailedDeductionLeavesNoPointClaim(t *testing.T) {
	// A concurrent spend can empty the balance between the clamp and the
	// deduction. The order must not keep claiming points it never took,
	// or expiry would later hand them out as a restore.
	env := newTestEnv(5000)
	env.users.deductErr = fmt.Errorf("insufficient points")

	_, err := env.proc.CreateOrder(context.Background(), 1, 10000, 500)
	require.Error(t, err)

	require.Len(t, env.orders.orders, 1)
	for _, order := range env.orders.orders {
		assert.Equal(t, models.OrderStatusFailed, order.Status)
		assert.Equal(t, int64(0), order.PointsUsed)
	}

	// The stranded order is terminal, so expiry has nothing to restore.
	count, err := env.proc.ExpireStale(context.Background(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, int64(5000), env.users.users[1].Points)
}

func TestExpireStaleRestoresHeldPoints(t *testing.T) {
	env := newTestEnv(5000)

	order, err := env.proc.CreateOrder(context.Background(), 1, 10000, 500)
	require.NoError(t, err)
	require.Equal(t, int64(4500), env.users.users[1].Points)

	count, err := env.proc.ExpireStale(context.Background(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, models.OrderStatusFailed, env.orders.orders[order.OrderNo].Status)
	assert.Equal(t, int64(5000), env.users.users[1].Points, "held points come back on expiry")
}
