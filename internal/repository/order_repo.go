package repository

import (
	"time"

	"gorm.io/gorm"

	"storepay/internal/models"
)

// OrderRepository handles order database operations.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByOrderNo returns an order by its order number.
func (r *OrderRepository) FindByOrderNo(orderNo string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUserID returns a user's orders, newest first.
func (r *OrderRepository) FindByUserID(userID uint, limit, page int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	db := r.db.Model(&models.Order{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Create creates a new order.
func (r *OrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// UpdateByOrderNo updates an order by order number.
func (r *OrderRepository) UpdateByOrderNo(orderNo string, updates map[string]interface{}) error {
	return r.db.Model(&models.Order{}).Where("order_no = ?", orderNo).Updates(updates).Error
}

// FindStalePending returns non-terminal orders older than the cutoff that
// still wait for a gateway result.
func (r *OrderRepository) FindStalePending(cutoff time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.
		Where("status IN ?", []string{models.OrderStatusPending, models.OrderStatusPendingApproval}).
		Where("created_at < ?", cutoff).
		Find(&orders).Error
	return orders, err
}
