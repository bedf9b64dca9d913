package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RoomChannel is the pub/sub channel room clients subscribe to.
func RoomChannel(scrimID uuid.UUID) string {
	return fmt.Sprintf("scrim:%s:room", scrimID)
}

// RedisRoomNotifier publishes membership changes on the scrim's room channel. Other event types
// are ignored.
type RedisRoomNotifier struct {
	client *redis.Client
}

func NewRedisRoomNotifier(client *redis.Client) *RedisRoomNotifier {
	return &RedisRoomNotifier{client: client}
}

func (n *RedisRoomNotifier) Notify(ctx context.Context, event Event) error {
	if !event.Type.IsRoomEvent() {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := n.client.Publish(ctx, RoomChannel(event.ScrimID), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
