package models

import "time"

// VerificationCode -> baris audit; pengecekan hot-path ada di ephemeral store
type VerificationCode struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;index" json:"restaurant_id"`
	TableID      uint       `gorm:"not null;index" json:"table_id"`
	Phone        string     `gorm:"type:varchar(20);not null;index" json:"phone"`
	Code         string     `gorm:"type:varchar(10);not null" json:"-"`
	ExpiresAt    time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
}
