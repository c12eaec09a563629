package broker

import (
	"context"
	"fasolink-chat/domain"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBroker uses Redis pub/sub, one channel per group.
type RedisBroker struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisBroker(addr string, log *slog.Logger) *RedisBroker {
	return &RedisBroker{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		log:    log,
	}
}

// Ping checks the server is reachable, used at startup.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBroker) Publish(ctx context.Context, group domain.GroupName, payload []byte) error {
	return b.client.Publish(ctx, Subject(group), payload).Err()
}

// Subscribe listens to every group channel until ctx is done or the subscription drops.
func (b *RedisBroker) Subscribe(ctx context.Context, handler func(payload []byte)) error {
	pubsub := b.client.PSubscribe(ctx, subjectPattern)
	defer pubsub.Close()

	// Wait for confirmation so a bad address fails here and not silently later
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			if _, ok := GroupFromSubject(msg.Channel); !ok {
				b.log.Debug("Ignoring redis message on unknown channel", "channel", msg.Channel)
				continue
			}
			handler([]byte(msg.Payload))
		}
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
