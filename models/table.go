package models

import "time"

// Status meja
const (
	TableInactive      = "inactive"
	TableActive        = "active"
	TableOccupied      = "occupied"
	TableBillRequested = "bill_requested"
	TableClosed        = "closed"
)

type Table struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;index;uniqueIndex:idx_restaurant_table_number" json:"restaurant_id"`
	Restaurant   Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
	Number       int        `gorm:"not null;uniqueIndex:idx_restaurant_table_number" json:"number"`
	Capacity     int        `gorm:"not null;default:1" json:"capacity"`
	Status       string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	QRID         string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"qr_id"`
	QRURL        string     `gorm:"type:varchar(255)" json:"qr_url"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

// Joinable -> meja bisa menerima sesi baru hanya pada status ini
func (t *Table) Joinable() bool {
	return t.Status == TableActive || t.Status == TableOccupied
}
