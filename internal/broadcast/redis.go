package broadcast

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "storefront:cart-events"

// RedisRelay publishes signals on a redis channel and replays everything it
// receives there into a local Broadcaster, so every instance behind the load
// balancer notifies its own subscribers.
type RedisRelay struct {
	client  *redis.Client
	local   *Broadcaster
	channel string
	log     *zap.Logger
}

func NewRedisRelay(client *redis.Client, local *Broadcaster, log *zap.Logger) *RedisRelay {
	return &RedisRelay{client: client, local: local, channel: DefaultChannel, log: log}
}

// Publish falls back to local delivery when redis is unreachable.
func (r *RedisRelay) Publish(ctx context.Context, topic string) error {
	if err := r.client.Publish(ctx, r.channel, topic).Err(); err != nil {
		_ = r.local.Publish(ctx, topic)
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (r *RedisRelay) Subscribe(topic string) (<-chan struct{}, func()) {
	return r.local.Subscribe(topic)
}

// Run relays redis messages until ctx is done. ready is closed once the
// subscription is confirmed.
func (r *RedisRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe failed: %w", err)
	}
	if ready != nil {
		close(ready)
	}
	r.log.Info("relaying cart events", zap.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			_ = r.local.Publish(ctx, msg.Payload)
		}
	}
}
