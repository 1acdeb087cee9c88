package infra_redis_snapshot_cache

import (
	"encoding/json"
	"time"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/gamenight/internal/model"
)

// Driver keeps short-lived JSON snapshots of aggregates for reads.
// It is never consulted inside a transaction.
type Driver struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func New(
	client *redis.Client,
	key string,
	ttl time.Duration,
) *Driver {
	return &Driver{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (d *Driver) Set(agg *model.Aggregate) error {
	value, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	return d.client.Set(d.getFullKey(agg.Session.ID), value, d.ttl).Err()
}

// Get returns nil on a miss.
func (d *Driver) Get(sessionID string) (*model.Aggregate, error) {
	val, err := d.client.Get(d.getFullKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	agg := model.NewAggregate(model.Session{})
	if err := json.Unmarshal(val, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

func (d *Driver) Invalidate(sessionID string) error {
	return d.client.Del(d.getFullKey(sessionID)).Err()
}

func (d *Driver) getFullKey(key string) string {
	if d.key != "" {
		return d.key + ":" + key
	}
	return key
}
