package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomIndex marks discoverable rooms with liveness keys. All writes are
// best-effort; the in-memory room map stays authoritative, so errors are
// swallowed rather than surfaced into game flow.
type RoomIndex struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomIndex(client *redis.Client, ttl time.Duration) *RoomIndex {
	return &RoomIndex{client: client, ttl: ttl}
}

func (i *RoomIndex) MarkOpen(roomID string) {
	_ = i.client.Set(context.Background(), i.key(roomID), "1", i.ttl).Err()
}

func (i *RoomIndex) Clear(roomID string) {
	_ = i.client.Del(context.Background(), i.key(roomID)).Err()
}

func (i *RoomIndex) key(roomID string) string {
	return "room:open:" + roomID
}
