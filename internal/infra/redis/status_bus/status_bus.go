package infra_redis_status_bus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/gamenight/internal/model"
)

// Bus fans status projections out to every server instance over redis
// pub/sub, one channel per session.
type Bus struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func New(
	client *redis.Client,
	prefix string,
) *Bus {
	return &Bus{
		client: client,
		prefix: prefix,
		logger: slog.Default(),
	}
}

func (b *Bus) channel(sessionID string) string {
	return b.prefix + ":" + sessionID
}

func (b *Bus) Publish(_ context.Context, projection model.StatusProjection) error {
	payload, err := json.Marshal(projection)
	if err != nil {
		return err
	}
	return b.client.Publish(b.channel(projection.SessionID), payload).Err()
}

// Run delivers every projection published by any instance to handle
// until ctx is cancelled.
func (b *Bus) Run(ctx context.Context, handle func(model.StatusProjection)) error {
	ps := b.client.PSubscribe(b.channel("*"))
	defer ps.Close()

	if _, err := ps.Receive(); err != nil {
		return err
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var projection model.StatusProjection
			if err := json.Unmarshal([]byte(msg.Payload), &projection); err != nil {
				b.logger.Warn("dropping malformed status message",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()))
				continue
			}
			handle(projection)
		}
	}
}
