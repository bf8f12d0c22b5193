package models

import "time"

// Status item (granularitas dapur per-item)
const (
	ItemPending   = "pending"
	ItemPreparing = "preparing"
	ItemReady     = "ready"
	ItemCancelled = "cancelled"
)

// OrderItem -> satu baris order, harga di-snapshot saat dibuat sehingga
// perubahan harga menu tidak pernah mengubah order yang sudah masuk.
type OrderItem struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	Order      Order       `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MenuItemID uint        `gorm:"not null" json:"menu_item_id"`
	Name       string      `gorm:"type:varchar(100);not null" json:"name"`
	Quantity   int         `gorm:"not null" json:"quantity"`
	UnitPrice  float64     `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Extras     []MenuExtra `gorm:"serializer:json" json:"extras,omitempty"`
	Price      float64     `gorm:"type:decimal(10,2);not null" json:"price"`
	Notes      string      `gorm:"type:text" json:"notes"`
	Status     string      `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt  time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"not null" json:"updated_at"`
}

// LinePrice -> (harga satuan + total extras) x qty
func LinePrice(unit float64, extras []MenuExtra, qty int) float64 {
	total := unit
	for _, e := range extras {
		total += e.Price
	}
	return total * float64(qty)
}
