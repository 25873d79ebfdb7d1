package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"concord-gateway/internal/database"

	"github.com/google/uuid"
)

const busChannel = "gateway:rooms"

// busEnvelope carries a room broadcast across instances. Origin lets each
// instance skip its own publishes, which it already delivered locally.
type busEnvelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Event  json.RawMessage `json:"event"`
}

// EventBus mirrors room broadcasts over Redis pub/sub so that a user's
// sessions on another gateway instance receive them too.
type EventBus struct {
	client     *database.RedisClient
	instanceID string
}

func NewEventBus(client *database.RedisClient) *EventBus {
	return &EventBus{
		client:     client,
		instanceID: uuid.NewString(),
	}
}

func (b *EventBus) Publish(ctx context.Context, room string, event []byte) error {
	env := busEnvelope{Origin: b.instanceID, Room: room, Event: event}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal bus envelope: %w", err)
	}
	if err := b.client.GetClient().Publish(ctx, busChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to event bus: %w", err)
	}
	return nil
}

// Listen delivers remote broadcasts until ctx is cancelled. deliver receives
// the room name and the raw event bytes exactly as published.
func (b *EventBus) Listen(ctx context.Context, deliver func(room string, event []byte)) {
	pubsub := b.client.GetClient().Subscribe(ctx, busChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env busEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Error("Failed to unmarshal bus envelope", "error", err)
				continue
			}
			if env.Origin == b.instanceID {
				continue
			}
			deliver(env.Room, env.Event)
		case <-ctx.Done():
			return
		}
	}
}
