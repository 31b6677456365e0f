package repository

import (
	"encoding/json"

	"gorm.io/gorm"

	"storepay/internal/models"
)

// LogRepository handles payment and gateway audit logs.
type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

// CreatePaymentLog records a browser-side payment request log.
func (r *LogRepository) CreatePaymentLog(orderNo, requestType, requestURL string, requestData interface{}, clientIP string) error {
	data, _ := json.Marshal(requestData)
	row := models.PaymentLog{
		OrderNo:     orderNo,
		RequestType: requestType,
		RequestURL:  requestURL,
		RequestData: string(data),
		ClientIP:    clientIP,
	}
	return r.db.Create(&row).Error
}

// CreateGatewayLog records an outbound gateway call.
func (r *LogRepository) CreateGatewayLog(log *models.GatewayLog) error {
	return r.db.Create(log).Error
}

// FindGatewayLogs returns gateway logs for an order, oldest first.
func (r *LogRepository) FindGatewayLogs(orderNo string) ([]models.GatewayLog, error) {
	var logs []models.GatewayLog
	err := r.db.Where("order_no = ?", orderNo).Order("created_at ASC").Find(&logs).Error
	return logs, err
}
