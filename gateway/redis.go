package gateway

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const slotChannelPrefix = "schedboard:slot:"

// RedisNotifier fans committed slot documents out over Redis pub/sub so
// concurrent editor sessions converge on the last committed snapshot.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier creates a notifier over an open Redis client.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Publish(ctx context.Context, slot string, doc []byte) error {
	return n.client.Publish(ctx, slotChannelPrefix+slot, doc).Err()
}

func (n *RedisNotifier) Subscribe(ctx context.Context, slot string, fn func(doc []byte)) (func(), error) {
	sub := n.client.Subscribe(ctx, slotChannelPrefix+slot)
	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	ch := sub.Channel()
	go func() {
		for msg := range ch {
			fn([]byte(msg.Payload))
		}
	}()

	stop := func() {
		if err := sub.Close(); err != nil {
			logrus.WithError(err).WithField("slot", slot).Warn("Failed to close slot subscription")
		}
	}
	return stop, nil
}
