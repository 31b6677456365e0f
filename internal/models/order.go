package models

import "time"

// Order lifecycle statuses.
const (
	OrderStatusPending         = "PENDING"
	OrderStatusPendingApproval = "PENDING_APPROVAL"
	OrderStatusApproved        = "APPROVED"
	OrderStatusCompleted       = "COMPLETED"
	OrderStatusCancelled       = "CANCELLED"
	OrderStatusFailed          = "FAILED"
)

// Payment method recorded on the order once it settles.
const (
	PaymentMethodCard       = "CARD"
	PaymentMethodPointsOnly = "POINTS_ONLY"
)

// Order maps to the `orders` table.
type Order struct {
	ID               uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderNo          string    `gorm:"column:order_no;size:64;uniqueIndex" json:"orderNo"`
	UserID           uint      `gorm:"column:user_id;index" json:"userId"`
	TotalAmount      int64     `gorm:"column:total_amount" json:"totalAmount"`
	PointsUsed       int64     `gorm:"column:points_used;default:0" json:"pointsUsed"`
	CardAmount       int64     `gorm:"column:card_amount" json:"cardAmount"`
	Status           string    `gorm:"column:status;size:32;index" json:"status"`
	Provider         string    `gorm:"column:provider;size:32" json:"provider"`
	PaymentMethod    string    `gorm:"column:payment_method;size:32" json:"paymentMethod"`
	PaymentCompleted bool      `gorm:"column:payment_completed;default:false" json:"paymentCompleted"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Order) TableName() string {
	return "orders"
}

// IsTerminal reports whether no further payment activity is expected.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}
