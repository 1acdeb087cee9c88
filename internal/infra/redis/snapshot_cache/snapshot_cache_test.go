package infra_redis_snapshot_cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis"
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T) (*Driver, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "snapshot", 3*time.Second), srv
}

func TestSetGetInvalidate(t *testing.T) {
	d, srv := newDriver(t)

	miss, err := d.Get("s1")
	require.NoError(t, err)
	assert.Nil(t, miss)

	agg := model.NewAggregate(model.Session{ID: "s1", Title: "Game night", StoredStatus: model.StatusOpen})
	agg.AddParticipant(model.Participant{ID: model.HostParticipantID, Claimed: true})
	require.NoError(t, d.Set(agg))
	assert.True(t, srv.Exists("snapshot:s1"))

	got, err := d.Get("s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Game night", got.Session.Title)
	assert.True(t, got.Participants[model.HostParticipantID].Claimed)
	assert.Empty(t, got.Mutations())

	require.NoError(t, d.Invalidate("s1"))
	miss, err = d.Get("s1")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestSnapshotsExpire(t *testing.T) {
	d, srv := newDriver(t)
	require.NoError(t, d.Set(model.NewAggregate(model.Session{ID: "s1"})))

	srv.FastForward(4 * time.Second)

	miss, err := d.Get("s1")
	require.NoError(t, err)
	assert.Nil(t, miss)
}
