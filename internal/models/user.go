package models

import "time"

// User maps to the `users` table.
type User struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement" json:"userId"`
	Email       string    `gorm:"column:email;size:255;uniqueIndex" json:"email"`
	Name        string    `gorm:"column:name;size:100" json:"name"`
	PhoneNumber string    `gorm:"column:phone_number;size:30" json:"phoneNumber"`
	Points      int64     `gorm:"column:points;default:0" json:"points"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
