package broker

import (
	"context"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis fans out over a single pub/sub channel.
type Redis struct {
	client  redis.UniversalClient
	channel string
	log     *zap.Logger
}

func NewRedis(client redis.UniversalClient, channel string, log *zap.Logger) *Redis {
	return &Redis{client: client, channel: channel, log: log.Named("broker.redis")}
}

func (b *Redis) Publish(ctx context.Context, d domain.Delivery) error {
	data, err := encode(d)
	if err != nil {
		return errors.Wrap(err, "encode delivery")
	}
	return errors.Wrap(b.client.Publish(ctx, b.channel, data).Err(), "redis publish")
}

func (b *Redis) Subscribe(ctx context.Context, h Handler, ready func()) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrapf(err, "subscribe %s", b.channel)
	}
	b.log.Info("subscribed", zap.String("channel", b.channel))
	signal(ready)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			d, err := decode([]byte(msg.Payload))
			if err != nil {
				b.log.Warn("dropping undecodable delivery", zap.Error(err))
				continue
			}
			h(d)
		}
	}
}

// Close is a no-op; the shared client is closed by its owner.
func (b *Redis) Close() error { return nil }
