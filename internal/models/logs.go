package models

import "time"

// PaymentLog maps to the `payment_logs` table. Rows come from the
// fire-and-forget log-request endpoint the checkout pages call before
// opening the gateway window; losing one must never block a payment.
type PaymentLog struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderNo     string    `gorm:"column:order_no;size:64;index" json:"orderNo"`
	RequestType string    `gorm:"column:request_type;size:64" json:"requestType"`
	RequestURL  string    `gorm:"column:request_url;size:500" json:"requestUrl"`
	RequestData string    `gorm:"column:request_data;type:text" json:"requestData"`
	ClientIP    string    `gorm:"column:client_ip;size:64" json:"clientIp"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (PaymentLog) TableName() string {
	return "payment_logs"
}

// GatewayLog maps to the `gateway_logs` table. Every outbound call to a
// payment provider is recorded with its request and response payloads.
type GatewayLog struct {
	ID            uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderNo       string    `gorm:"column:order_no;size:64;index" json:"orderNo"`
	Provider      string    `gorm:"column:provider;size:32" json:"provider"`
	RequestType   string    `gorm:"column:request_type;size:64" json:"requestType"`
	RequestURL    string    `gorm:"column:request_url;size:500" json:"requestUrl"`
	RequestData   string    `gorm:"column:request_data;type:text" json:"requestData"`
	ResponseData  string    `gorm:"column:response_data;type:text" json:"responseData"`
	IsSuccess     bool      `gorm:"column:is_success;default:false" json:"isSuccess"`
	ErrorMessage  string    `gorm:"column:error_message;size:500" json:"errorMessage"`
	TransactionID string    `gorm:"column:transaction_id;size:100" json:"transactionId"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (GatewayLog) TableName() string {
	return "gateway_logs"
}
