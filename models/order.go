package models

import "time"

// Status order
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"
)

// legalTransitions -> edge yang diizinkan pada state machine order.
// pending -> preparing (lompati confirmed) legal: staff bisa "accept & start"
// dalam satu aksi. ready -> paid hanya lewat release meja, tetap tercantum di
// sini karena release memakai jalur transisi yang sama.
var legalTransitions = map[string][]string{
	OrderPending:   {OrderConfirmed, OrderPreparing, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderPaid},
	OrderPaid:      {},
	OrderCancelled: {},
}

// CanTransition -> cek edge status order
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderTerminal -> paid dan cancelled permanen
func OrderTerminal(status string) bool {
	return status == OrderPaid || status == OrderCancelled
}

type Order struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	RestaurantID uint         `gorm:"not null;index" json:"restaurant_id"`
	TableID      uint         `gorm:"not null;index" json:"table_id"`
	Table        Table        `gorm:"foreignKey:TableID" json:"-"`
	SessionID    uint         `gorm:"not null;index" json:"session_id"`
	Session      TableSession `gorm:"foreignKey:SessionID" json:"-"`
	OrderNumber  int          `gorm:"not null" json:"order_number"`
	Status       string       `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Subtotal     float64      `gorm:"type:decimal(10,2);not null;default:0.00" json:"subtotal"`
	Discount     float64      `gorm:"type:decimal(10,2);not null;default:0.00" json:"discount"`
	Total        float64      `gorm:"type:decimal(10,2);not null;default:0.00" json:"total"`
	Notes        string       `gorm:"type:text" json:"notes"`
	ConfirmedAt  *time.Time   `json:"confirmed_at,omitempty"`
	PreparingAt  *time.Time   `json:"preparing_at,omitempty"`
	ReadyAt      *time.Time   `json:"ready_at,omitempty"`
	PaidAt       *time.Time   `json:"paid_at,omitempty"`
	CancelledAt  *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
	Items        []OrderItem  `gorm:"foreignKey:OrderID" json:"items"`
}

// StampStatus mengisi kolom timestamp yang sesuai dengan status baru.
func (o *Order) StampStatus(status string, now time.Time) {
	switch status {
	case OrderConfirmed:
		o.ConfirmedAt = &now
	case OrderPreparing:
		o.PreparingAt = &now
	case OrderReady:
		o.ReadyAt = &now
	case OrderPaid:
		o.PaidAt = &now
	case OrderCancelled:
		o.CancelledAt = &now
	}
}
