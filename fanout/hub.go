package fanout

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/qrdine/utils"
)

// Publisher -> dipakai services untuk menyiarkan perubahan state.
// Delivery best-effort: kegagalan tidak pernah membatalkan mutasi state.
type Publisher interface {
	Publish(ctx context.Context, restaurantID uint, rooms []string, event string, data interface{})
}

// Hub menampung koneksi websocket per logical room (restaurant, staff,
// kitchen, table, session) dan menyiarkan pesan ke room yang dituju.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*websocket.Conn]struct{}
	broker Broker // nil berarti single-process, tanpa bridge
}

func NewHub(broker Broker) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*websocket.Conn]struct{}),
		broker: broker,
	}
}

var _ Publisher = (*Hub)(nil)

// Join -> daftarkan koneksi ke satu room
func (h *Hub) Join(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*websocket.Conn]struct{})
	}
	h.rooms[room][conn] = struct{}{}
}

// Leave -> lepaskan koneksi dari semua room dan tutup
func (h *Hub) Leave(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, conns := range h.rooms {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
	conn.Close()
}

// RoomSize -> jumlah koneksi pada satu room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish menyiarkan event ke room lokal lalu meneruskan lewat broker supaya
// instance lain ikut menyiarkan ke socket mereka.
func (h *Hub) Publish(ctx context.Context, restaurantID uint, rooms []string, event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("fanout: marshal event %s: %v", event, err)
		return
	}

	h.emitLocal(rooms, payload)

	if h.broker == nil {
		return
	}
	if err := h.broker.Broadcast(ctx, restaurantID, rooms, payload); err != nil {
		// Store of record sudah commit; notifikasi tidak boleh menggagalkan caller
		utils.ErrorLogger.Printf("fanout: broadcast %s: %v", event, err)
	}
}

// emitLocal menulis payload ke setiap koneksi anggota rooms. Lock penuh
// dipegang selama menulis: gorilla melarang dua goroutine menulis ke satu
// koneksi bersamaan, dan Publish bisa berjalan paralel dengan listener bridge.
func (h *Hub) emitLocal(rooms []string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[*websocket.Conn]struct{})
	for _, room := range rooms {
		for conn := range h.rooms[room] {
			if _, dup := seen[conn]; dup {
				continue
			}
			seen[conn] = struct{}{}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				utils.ErrorLogger.Printf("fanout: write: %v", err)
			}
		}
	}
}
