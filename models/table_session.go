package models

import "time"

// TableSession -> konteks pemesanan satu rombongan customer pada satu device
type TableSession struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	RestaurantID      uint       `gorm:"not null;index" json:"restaurant_id"`
	TableID           uint       `gorm:"not null;index" json:"table_id"`
	Table             Table      `gorm:"foreignKey:TableID" json:"-"`
	CustomerName      string     `gorm:"type:varchar(100)" json:"customer_name"`
	CustomerPhone     string     `gorm:"type:varchar(20);not null;index" json:"customer_phone"`
	DeviceFingerprint string     `gorm:"type:varchar(128);not null;index" json:"device_fingerprint"`
	IP                string     `gorm:"type:varchar(45)" json:"-"`
	UserAgent         string     `gorm:"type:varchar(255)" json:"-"`
	Verified          bool       `gorm:"not null;default:false" json:"verified"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	Active            bool       `gorm:"not null;default:true" json:"active"`
	ExpiresAt         time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
}

// Expired -> sesi kadaluarsa harus diperlakukan invalid walau masih active
func (s *TableSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Usable -> sesi boleh dipakai untuk order
func (s *TableSession) Usable(now time.Time) bool {
	return s.Active && s.Verified && !s.Expired(now)
}
