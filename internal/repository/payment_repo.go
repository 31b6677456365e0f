package repository

import (
	"gorm.io/gorm"

	"storepay/internal/models"
)

// PaymentRepository handles payment row database operations.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create creates a new payment row.
func (r *PaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// FindByOrderNo returns all payment rows for an order, oldest first.
func (r *PaymentRepository) FindByOrderNo(orderNo string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("order_no = ?", orderNo).Order("created_at ASC").Find(&payments).Error
	return payments, err
}

// FindByOrderNos returns payment rows for a set of orders.
func (r *PaymentRepository) FindByOrderNos(orderNos []string) ([]models.Payment, error) {
	var payments []models.Payment
	if len(orderNos) == 0 {
		return payments, nil
	}
	err := r.db.Where("order_no IN ?", orderNos).Order("created_at ASC").Find(&payments).Error
	return payments, err
}

// FindCompleted returns the COMPLETED row of the given type for an order.
func (r *PaymentRepository) FindCompleted(orderNo, paymentType string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.
		Where("order_no = ? AND payment_type = ? AND status = ?", orderNo, paymentType, models.PaymentStatusCompleted).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// HasRefund reports whether a refund row of the given type exists for an order.
func (r *PaymentRepository) HasRefund(orderNo, refundType string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("order_no = ? AND payment_type = ?", orderNo, refundType).
		Count(&count).Error
	return count > 0, err
}

// ExistsByOrderNoAndTid reports whether a settlement for this tid was
// already recorded, for duplicate callback suppression.
func (r *PaymentRepository) ExistsByOrderNoAndTid(orderNo, tid string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("order_no = ? AND tid = ? AND status = ?", orderNo, tid, models.PaymentStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

// SumActiveByOrderNo sums amounts of non-refund rows that have not been
// refunded, i.e. the money still held for the order.
func (r *PaymentRepository) SumActiveByOrderNo(orderNo string) (int64, error) {
	var sum int64
	err := r.db.Model(&models.Payment{}).
		Where("order_no = ? AND status = ? AND payment_type NOT IN ?",
			orderNo, models.PaymentStatusCompleted,
			[]string{models.PaymentTypeCardRefund, models.PaymentTypePointRefund}).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error
	return sum, err
}

// CountRefunds counts refund rows for an order.
func (r *PaymentRepository) CountRefunds(orderNo string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("order_no = ? AND payment_type IN ?",
			orderNo, []string{models.PaymentTypeCardRefund, models.PaymentTypePointRefund}).
		Count(&count).Error
	return count, err
}

// MarkRefunded flips the original row for a tid to REFUNDED.
func (r *PaymentRepository) MarkRefunded(orderNo, tid string) error {
	return r.db.Model(&models.Payment{}).
		Where("order_no = ? AND tid = ? AND payment_type NOT IN ?",
			orderNo, tid,
			[]string{models.PaymentTypeCardRefund, models.PaymentTypePointRefund}).
		Update("status", models.PaymentStatusRefunded).Error
}
