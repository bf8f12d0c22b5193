package fanout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/qrdine/utils"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// dialRooms membuka pasangan websocket asli: sisi server di-join ke rooms,
// sisi client dikembalikan untuk membaca siaran.
func dialRooms(t *testing.T, hub *Hub, rooms ...string) (client, server *websocket.Conn) {
	t.Helper()
	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		for _, room := range rooms {
			hub.Join(room, ws)
		}
		connCh <- ws
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, <-connCh
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHubRoomDelivery(t *testing.T) {
	utils.InitLogger()
	hub := NewHub(nil)

	tableClient, _ := dialRooms(t, hub, TableRoom(1))
	otherClient, _ := dialRooms(t, hub, TableRoom(2))

	assert.Equal(t, 1, hub.RoomSize(TableRoom(1)))
	assert.Equal(t, 1, hub.RoomSize(TableRoom(2)))

	hub.Publish(context.Background(), 1, []string{TableRoom(1)}, EventOrderCreated,
		map[string]interface{}{"order_number": 7})

	msg := readMessage(t, tableClient)
	assert.Equal(t, EventOrderCreated, msg.Event)
	data := msg.Data.(map[string]interface{})
	assert.EqualValues(t, 7, data["order_number"])

	// Room lain tidak menerima apa-apa
	expectSilence(t, otherClient)
}

func TestHubDeduplicatesAcrossRooms(t *testing.T) {
	utils.InitLogger()
	hub := NewHub(nil)

	// Satu koneksi di dua room yang sama-sama dituju: pesan tetap satu
	client, _ := dialRooms(t, hub, RestaurantRoom(1), KitchenRoom(1))

	hub.Publish(context.Background(), 1,
		[]string{RestaurantRoom(1), KitchenRoom(1)},
		EventOrderUpdated, map[string]interface{}{"status": "ready"})

	msg := readMessage(t, client)
	assert.Equal(t, EventOrderUpdated, msg.Event)
	expectSilence(t, client)
}

func TestHubLeaveRemovesFromAllRooms(t *testing.T) {
	utils.InitLogger()
	hub := NewHub(nil)

	_, server := dialRooms(t, hub, RestaurantRoom(1), StaffRoom(1))
	require.Equal(t, 1, hub.RoomSize(RestaurantRoom(1)))

	hub.Leave(server)
	assert.Equal(t, 0, hub.RoomSize(RestaurantRoom(1)))
	assert.Equal(t, 0, hub.RoomSize(StaffRoom(1)))
}

func TestHubSerializesConcurrentWrites(t *testing.T) {
	utils.InitLogger()
	hub := NewHub(nil)
	client, _ := dialRooms(t, hub, TableRoom(1))

	// Publish paralel menuju satu koneksi; tanpa serialisasi tulis, gorilla
	// panic "concurrent write to websocket connection".
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			hub.Publish(context.Background(), 1, []string{TableRoom(1)}, EventOrderUpdated,
				map[string]interface{}{"seq": seq})
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		msg := readMessage(t, client)
		assert.Equal(t, EventOrderUpdated, msg.Event)
	}
}

func TestBridgeSkipsOwnInstance(t *testing.T) {
	utils.InitLogger()
	hub := NewHub(nil)
	client, _ := dialRooms(t, hub, TableRoom(9))

	bridge := &RedisBridge{instance: "instance-a"}

	frame := func(instance, source string) string {
		payload, err := json.Marshal(Message{Event: EventSessionClosed, Data: map[string]interface{}{"source": source}})
		require.NoError(t, err)
		raw, err := json.Marshal(envelope{Instance: instance, Rooms: []string{TableRoom(9)}, Payload: payload})
		require.NoError(t, err)
		return string(raw)
	}

	// Frame dari instance sendiri sudah di-emit lokal (jangan diduplikasi),
	// channel di luar prefix diabaikan; hanya frame instance lain yang lewat.
	bridge.dispatch(hub, &redis.Message{Channel: channelPrefix + "1", Payload: frame("instance-a", "self")})
	bridge.dispatch(hub, &redis.Message{Channel: "other", Payload: frame("instance-b", "wrong-channel")})
	bridge.dispatch(hub, &redis.Message{Channel: channelPrefix + "1", Payload: frame("instance-b", "peer")})

	msg := readMessage(t, client)
	assert.Equal(t, EventSessionClosed, msg.Event)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "peer", data["source"])

	// Dua frame yang dilewati tidak menyusul belakangan
	expectSilence(t, client)
}

func TestBridgeRunStopsCleanlyOnCancel(t *testing.T) {
	utils.InitLogger()
	// Alamat tidak tercapai: listener tetap harus berhenti bersih saat shutdown
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })
	bridge := NewRedisBridge(client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx, NewHub(nil)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop after cancel")
	}
}
