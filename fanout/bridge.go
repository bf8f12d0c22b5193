package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yeremiapane/qrdine/utils"
)

// Broker menjembatani fanout lintas proses. Payload yang sama dipublish pada
// channel broadcast per-restoran; setiap instance server men-subscribe dengan
// pattern lalu menyiarkan ulang ke socket lokalnya.
type Broker interface {
	Broadcast(ctx context.Context, restaurantID uint, rooms []string, payload []byte) error
}

const channelPrefix = "fanout:"

// envelope -> frame yang lewat di channel redis; instance id dipakai untuk
// melewati pesan yang berasal dari proses sendiri (sudah di-emit lokal).
type envelope struct {
	Instance string          `json:"instance"`
	Rooms    []string        `json:"rooms"`
	Payload  json.RawMessage `json:"payload"`
}

type RedisBridge struct {
	client   *redis.Client
	instance string
}

func NewRedisBridge(client *redis.Client) *RedisBridge {
	return &RedisBridge{
		client:   client,
		instance: uuid.NewString(),
	}
}

var _ Broker = (*RedisBridge)(nil)

func (b *RedisBridge) Broadcast(ctx context.Context, restaurantID uint, rooms []string, payload []byte) error {
	frame, err := json.Marshal(envelope{
		Instance: b.instance,
		Rooms:    rooms,
		Payload:  payload,
	})
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("%s%d", channelPrefix, restaurantID)
	return b.client.Publish(ctx, channel, frame).Err()
}

// Run menjalankan listener background: PSubscribe ke semua channel fanout dan
// emit ulang frame dari instance lain ke hub lokal. ctx selesai berarti
// shutdown normal, bukan kegagalan; Run mengembalikan nil.
func (b *RedisBridge) Run(ctx context.Context, hub *Hub) error {
	sub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(hub, msg)
		}
	}
}

func (b *RedisBridge) dispatch(hub *Hub, msg *redis.Message) {
	if !strings.HasPrefix(msg.Channel, channelPrefix) {
		return
	}
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		utils.ErrorLogger.Printf("fanout: bad envelope on %s: %v", msg.Channel, err)
		return
	}
	if env.Instance == b.instance {
		return
	}
	hub.emitLocal(env.Rooms, env.Payload)
}
