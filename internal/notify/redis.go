package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis publishes events on a pub/sub channel. The payload is the JSON
// encoded Event with its text under "text".
type Redis struct {
	client  *redis.Client
	channel string
}

// NewRedis returns a notifier publishing on channel.
func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

type redisPayload struct {
	Event
	Text string `json:"text"`
}

func (r *Redis) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(redisPayload{Event: event, Text: event.Text()})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Kind, err)
	}
	return nil
}
