package fanout

import "fmt"

// Katalog event real-time
const (
	EventOrderCreated   = "order:created"
	EventOrderUpdated   = "order:updated"
	EventOrderItem      = "order:item:updated"
	EventOrderCancelled = "order:cancelled"
	EventSessionClosed  = "session:closed"
	EventTableUpdated   = "table:updated"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Room helpers -> alamat logis untuk delivery
func RestaurantRoom(id uint) string { return fmt.Sprintf("restaurant:%d", id) }
func StaffRoom(id uint) string      { return fmt.Sprintf("staff:%d", id) }
func KitchenRoom(id uint) string    { return fmt.Sprintf("kitchen:%d", id) }
func TableRoom(id uint) string      { return fmt.Sprintf("table:%d", id) }
func SessionRoom(id uint) string    { return fmt.Sprintf("session:%d", id) }
