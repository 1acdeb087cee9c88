package storage_session

import (
	"context"
	"errors"
	"sync"
	"testing"

	infra_memory_session "github.com/humanbelnik/gamenight/internal/infra/memory/session"
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakeCache struct {
	mu          sync.Mutex
	snapshots   map[string]*model.Aggregate
	gets        int
	invalidated []string
	failGet     bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{snapshots: make(map[string]*model.Aggregate)}
}

func (c *fakeCache) Get(id string) (*model.Aggregate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, errors.New("connection refused")
	}
	if agg, ok := c.snapshots[id]; ok {
		return agg.Clone(), nil
	}
	return nil, nil
}

func (c *fakeCache) Set(agg *model.Aggregate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[agg.Session.ID] = agg.Clone()
	return nil
}

func (c *fakeCache) Invalidate(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

func setup(t *testing.T) (*Storage, *infra_memory_session.Store, *fakeCache, *tracetest.SpanRecorder) {
	t.Helper()
	repo := infra_memory_session.New()
	cache := newFakeCache()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	s := New(repo, WithSnapshotCache(cache), WithTracer(tp.Tracer("test")))

	agg := model.NewAggregate(model.Session{ID: "s1", Title: "Friday", StoredStatus: model.StatusOpen})
	_, err := s.Create(context.Background(), agg, nil)
	require.NoError(t, err)
	return s, repo, cache, recorder
}

func TestLoadFillsCacheOnMiss(t *testing.T) {
	s, _, cache, _ := setup(t)
	ctx := context.Background()

	first, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Friday", first.Session.Title)
	assert.Contains(t, cache.snapshots, "s1")

	second, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Friday", second.Session.Title)
	assert.Equal(t, 2, cache.gets)
}

func TestUpdateInvalidatesSnapshot(t *testing.T) {
	s, _, cache, _ := setup(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "s1", func(agg *model.Aggregate) error {
		agg.Session.Title = "Saturday"
		agg.RequireOpen()
		agg.MarkHostSynced(agg.Session.CreatedAt)
		return nil
	}))
	assert.NotContains(t, cache.snapshots, "s1")

	got, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Saturday", got.Session.Title)
}

func TestFailedUpdateStillInvalidates(t *testing.T) {
	s, _, cache, _ := setup(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Update(ctx, "s1", func(*model.Aggregate) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"s1"}, cache.invalidated)
}

func TestDeleteInvalidatesSnapshot(t *testing.T) {
	s, _, cache, _ := setup(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "s1"))

	_, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NotContains(t, cache.snapshots, "s1")
}

func TestCacheFailureFallsThrough(t *testing.T) {
	s, _, cache, _ := setup(t)
	cache.failGet = true

	got, err := s.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Friday", got.Session.Title)
}

func TestWithoutCache(t *testing.T) {
	repo := infra_memory_session.New()
	s := New(repo)
	ctx := context.Background()

	_, err := s.Create(ctx, model.NewAggregate(model.Session{ID: "s2"}), nil)
	require.NoError(t, err)
	got, err := s.Load(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", got.Session.ID)
	require.NoError(t, s.Delete(ctx, "s2"))
}

func TestSpansCarrySessionID(t *testing.T) {
	s, _, _, recorder := setup(t)

	_, err := s.Load(context.Background(), "missing")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "storage.session.create", spans[0].Name())

	load := spans[1]
	assert.Equal(t, "storage.session.load", load.Name())
	var found bool
	for _, kv := range load.Attributes() {
		if string(kv.Key) == "session.id" {
			found = kv.Value.AsString() == "missing"
		}
	}
	assert.True(t, found)
	assert.Equal(t, "Error", load.Status().Code.String())
}
