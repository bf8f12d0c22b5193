package models

import "time"

// Aksi audit order
const (
	LogOrderCreated      = "CREATED"
	LogStatusChanged     = "STATUS_CHANGED"
	LogItemStatusChanged = "ITEM_STATUS_CHANGED"
	LogOrderCancelled    = "CANCELLED"
	LogOrderPaid         = "PAID"
)

// OrderLog -> jejak audit append-only, tidak pernah diubah atau dihapus
type OrderLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RestaurantID uint      `gorm:"not null;index" json:"restaurant_id"`
	OrderID      uint      `gorm:"not null;index" json:"order_id"`
	Action       string    `gorm:"type:varchar(40);not null" json:"action"`
	Detail       string    `gorm:"type:text" json:"detail"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}
