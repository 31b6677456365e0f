package repository

import (
	"gorm.io/gorm"

	"storepay/internal/models"
)

// UserRepository handles user database operations.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by primary key.
func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns a user by email.
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user.
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// AddPoints adjusts the user's point balance by delta (negative to deduct).
// The guard keeps a concurrent deduction from pushing the balance negative.
func (r *UserRepository) AddPoints(id uint, delta int64) error {
	tx := r.db.Model(&models.User{}).Where("id = ?", id)
	if delta < 0 {
		tx = tx.Where("points >= ?", -delta)
	}
	res := tx.Update("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
