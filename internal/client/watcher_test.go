package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/humanbelnik/gamenight/internal/apperr"
	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func receive(t *testing.T, ch <-chan model.StatusProjection) model.StatusProjection {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "stream closed")
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no projection received")
		return model.StatusProjection{}
	}
}

func requireClosed(t *testing.T, ch <-chan model.StatusProjection) {
	t.Helper()
	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed")
	}
}

func TestPollWatcherEmitsChangesOnly(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	var calls atomic.Int32
	backend := &fakeBackend{preview: func(_ context.Context, id string) (Preview, error) {
		switch calls.Add(1) {
		case 1, 2:
			return Preview{SessionID: id, Status: model.StatusOpen, ExpiresAt: expires}, nil
		case 3:
			return Preview{SessionID: id, Status: model.StatusClosed, ExpiresAt: expires}, nil
		default:
			return Preview{}, apperr.NotFound("session not found")
		}
	}}
	// A tiny TTL lets every tick reach the backend.
	svc := NewService(backend,
		WithRetryPolicy(fastRetry()),
		WithPreviewCache(NewPreviewCache(time.Nanosecond)))
	w := NewPollWatcher(svc, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := w.Watch(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, model.StatusOpen, receive(t, ch).Status)
	assert.Equal(t, model.StatusClosed, receive(t, ch).Status)
	assert.True(t, receive(t, ch).Deleted)
	requireClosed(t, ch)
}

func TestPollWatcherDerivesExpiry(t *testing.T) {
	backend := &fakeBackend{preview: func(_ context.Context, id string) (Preview, error) {
		return Preview{SessionID: id, Status: model.StatusOpen, ExpiresAt: time.Now().Add(-time.Minute)}, nil
	}}
	w := NewPollWatcher(NewService(backend), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := w.Watch(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, model.StatusExpired, receive(t, ch).Status)
	cancel()
	requireClosed(t, ch)
}

func newPushServer(t *testing.T, frames ...string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/sessions/s1", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the stream open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestPushWatcherStreamsUntilDeleted(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	srv := newPushServer(t,
		`{"type":"session_status","payload":{"sessionId":"s1","status":"open","expiresAt":"`+expires+`"}}`,
		`not json`,
		`{"type":"other"}`,
		`{"type":"session_status","payload":{"sessionId":"s1","status":"closed","expiresAt":"`+expires+`"}}`,
		`{"type":"session_status","payload":{"sessionId":"s1","status":"closed","expiresAt":"`+expires+`","deleted":true}}`,
	)
	defer srv.Close()

	w := NewPushWatcher(NewAPI(srv.URL))
	ch, err := w.Watch(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, model.StatusOpen, receive(t, ch).Status)
	assert.Equal(t, model.StatusClosed, receive(t, ch).Status)
	assert.True(t, receive(t, ch).Deleted)
	requireClosed(t, ch)
}

func TestPushWatcherDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewPushWatcher(NewAPI(srv.URL)).Watch(context.Background(), "s1")
	assert.Equal(t, codes.Unavailable, apperr.KindOf(err))
}

type stubWatcher struct {
	err    error
	frames []model.StatusProjection
	calls  atomic.Int32
}

func (s *stubWatcher) Watch(ctx context.Context, _ string) (<-chan model.StatusProjection, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan model.StatusProjection, len(s.frames))
	for _, f := range s.frames {
		ch <- f
	}
	close(ch)
	return ch, nil
}

func TestFallbackWatcher(t *testing.T) {
	open := model.StatusProjection{SessionID: "s1", Status: model.StatusOpen}
	closed := model.StatusProjection{SessionID: "s1", Status: model.StatusClosed}
	deleted := model.StatusProjection{SessionID: "s1", Deleted: true}

	t.Run("dial failure polls", func(t *testing.T) {
		push := &stubWatcher{err: apperr.New(codes.Unavailable, "down")}
		poll := &stubWatcher{frames: []model.StatusProjection{closed}}

		ch, err := NewFallbackWatcher(push, poll).Watch(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusClosed, receive(t, ch).Status)
		requireClosed(t, ch)
		assert.EqualValues(t, 1, poll.calls.Load())
	})

	t.Run("dropped stream polls", func(t *testing.T) {
		push := &stubWatcher{frames: []model.StatusProjection{open}}
		poll := &stubWatcher{frames: []model.StatusProjection{closed}}

		ch, err := NewFallbackWatcher(push, poll).Watch(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, model.StatusOpen, receive(t, ch).Status)
		assert.Equal(t, model.StatusClosed, receive(t, ch).Status)
		requireClosed(t, ch)
	})

	t.Run("deletion ends the stream", func(t *testing.T) {
		push := &stubWatcher{frames: []model.StatusProjection{open, deleted}}
		poll := &stubWatcher{}

		ch, err := NewFallbackWatcher(push, poll).Watch(context.Background(), "s1")
		require.NoError(t, err)
		receive(t, ch)
		assert.True(t, receive(t, ch).Deleted)
		requireClosed(t, ch)
		assert.Zero(t, poll.calls.Load())
	})
}

func TestWithDerivedStatusKeepsServerExpiry(t *testing.T) {
	p := model.StatusProjection{Status: model.StatusExpired, ExpiresAt: time.Now().Add(time.Hour)}
	assert.Equal(t, model.StatusExpired, withDerivedStatus(p, time.Now()).Status)
}
