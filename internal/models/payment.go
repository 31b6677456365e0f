package models

import "time"

// Payment types. Refund rows carry a *_REFUND type and a negative amount.
const (
	PaymentTypeCard        = "CARD"
	PaymentTypeNicepayCard = "NICEPAY_CARD"
	PaymentTypePoint       = "POINT"
	PaymentTypeCardRefund  = "CARD_REFUND"
	PaymentTypePointRefund = "POINT_REFUND"
)

// Payment statuses.
const (
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusRefunded  = "REFUNDED"
)

// Payment maps to the `payments` table. One row per settlement event;
// refunds keep the tid of the original transaction.
type Payment struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderNo     string    `gorm:"column:order_no;size:64;index" json:"orderNo"`
	Tid         string    `gorm:"column:tid;size:100;index" json:"tid"`
	Amount      int64     `gorm:"column:amount" json:"amount"`
	Status      string    `gorm:"column:status;size:32" json:"status"`
	ResultCode  string    `gorm:"column:result_code;size:16" json:"resultCode"`
	ResultMsg   string    `gorm:"column:result_msg;size:500" json:"resultMsg"`
	PaymentType string    `gorm:"column:payment_type;size:32" json:"paymentType"`
	Provider    string    `gorm:"column:provider;size:32" json:"provider"`
	CardName    string    `gorm:"column:card_name;size:100" json:"cardName"`
	CardCode    string    `gorm:"column:card_code;size:16" json:"cardCode"`
	ApplNum     string    `gorm:"column:appl_num;size:32" json:"applNum"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsRefund reports whether this row reverses an earlier payment.
func (p *Payment) IsRefund() bool {
	return p.PaymentType == PaymentTypeCardRefund || p.PaymentType == PaymentTypePointRefund
}
