package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"storepay/internal/models"
)

// MigrateAndSeed ensures required tables exist and inserts the demo
// storefront accounts.
func MigrateAndSeed(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := seedDefaults(db); err != nil {
		return fmt.Errorf("seed defaults failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Order{},
		&models.Payment{},
		&models.PaymentLog{},
		&models.GatewayLog{},
	}
}

func seedDefaults(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return ensureDemoUsers(tx)
	})
}

func ensureDemoUsers(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	users := []models.User{
		{
			Email:       "test@example.com",
			Name:        "Test User",
			PhoneNumber: "010-1234-5678",
			Points:      5000,
		},
		{
			Email:       "demo@example.com",
			Name:        "Demo User",
			PhoneNumber: "010-9876-5432",
			Points:      1000,
		},
	}
	for i := range users {
		if err := tx.Create(&users[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
