// README: Redis Pub/Sub implementation of the change-feed bus.
package realtime

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisBus struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisBus(client *redis.Client, log *zap.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, topic string) error {
	// The payload is a bare marker; receivers re-fetch, never merge.
	return b.client.Publish(ctx, topic, "1").Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string, h Handler) (func(), error) {
	ps := b.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	go func() {
		for range ps.Channel() {
			h()
		}
	}()

	return func() {
		if err := ps.Close(); err != nil {
			b.log.Warn("closing subscription", zap.String("topic", topic), zap.Error(err))
		}
	}, nil
}
