package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/humanbelnik/gamenight/internal/apperr"
	"github.com/humanbelnik/gamenight/internal/model"
	"google.golang.org/grpc/codes"
)

const (
	DefaultPollInterval = 5 * time.Second

	// The server pings well within this window; silence past it means the
	// stream is dead.
	pushIdleTimeout = 90 * time.Second
)

// SessionWatcher streams status projections of one session. The channel
// is closed when ctx is done, the session is deleted, or the source gives up.
type SessionWatcher interface {
	Watch(ctx context.Context, sessionID string) (<-chan model.StatusProjection, error)
}

type statusMessage struct {
	Type    string                 `json:"type"`
	Payload model.StatusProjection `json:"payload"`
}

// withDerivedStatus turns an open projection past its expiry into an
// expired one, since expiry is never pushed.
func withDerivedStatus(p model.StatusProjection, now time.Time) model.StatusProjection {
	if p.Status == model.StatusOpen {
		p.Status = model.DeriveStatus(p.Status, p.ExpiresAt, now)
	}
	return p
}

// PushWatcher listens on the server's websocket change stream.
type PushWatcher struct {
	urlFor func(sessionID string) (string, error)
	dialer *websocket.Dialer
	now    func() time.Time
	logger *slog.Logger
}

func NewPushWatcher(api *API) *PushWatcher {
	return &PushWatcher{
		urlFor: api.WatchURL,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		now:    time.Now,
		logger: slog.Default(),
	}
}

func (w *PushWatcher) Watch(ctx context.Context, sessionID string) (<-chan model.StatusProjection, error) {
	u, err := w.urlFor(sessionID)
	if err != nil {
		return nil, err
	}
	conn, _, err := w.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, apperr.New(codes.Unavailable, "change stream unavailable").With(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(pushIdleTimeout))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pushIdleTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	out := make(chan model.StatusProjection)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					w.logger.Info("change stream closed",
						slog.String("session_id", sessionID),
						slog.String("error", err.Error()))
				}
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(pushIdleTimeout))

			var msg statusMessage
			if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "session_status" {
				continue
			}
			select {
			case out <- withDerivedStatus(msg.Payload, w.now()):
			case <-ctx.Done():
				return
			}
			if msg.Payload.Deleted {
				return
			}
		}
	}()
	return out, nil
}

// PollWatcher reads the preview at a fixed interval and reports changes.
type PollWatcher struct {
	service  *Service
	interval time.Duration
	now      func() time.Time
}

func NewPollWatcher(service *Service, interval time.Duration) *PollWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollWatcher{service: service, interval: interval, now: time.Now}
}

func (w *PollWatcher) Watch(ctx context.Context, sessionID string) (<-chan model.StatusProjection, error) {
	out := make(chan model.StatusProjection)
	go func() {
		defer close(out)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		var last *model.StatusProjection
		for {
			p, err := w.service.Preview(ctx, sessionID, false)
			switch {
			case err == nil:
				current := withDerivedStatus(p.Projection(), w.now())
				if last == nil || !last.Equal(current) {
					last = &current
					select {
					case out <- current:
					case <-ctx.Done():
						return
					}
				}
			case apperr.KindOf(err) == codes.NotFound:
				select {
				case out <- model.StatusProjection{SessionID: sessionID, Deleted: true}:
				case <-ctx.Done():
				}
				return
			case ctx.Err() != nil:
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// FallbackWatcher prefers push and switches to polling when the push
// stream cannot be opened or drops. Consumers see one stream either way.
type FallbackWatcher struct {
	push   SessionWatcher
	poll   SessionWatcher
	logger *slog.Logger
}

func NewFallbackWatcher(push SessionWatcher, poll SessionWatcher) *FallbackWatcher {
	return &FallbackWatcher{push: push, poll: poll, logger: slog.Default()}
}

func (w *FallbackWatcher) Watch(ctx context.Context, sessionID string) (<-chan model.StatusProjection, error) {
	pushed, err := w.push.Watch(ctx, sessionID)
	if err != nil {
		w.logger.Info("push unavailable, polling",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		return w.poll.Watch(ctx, sessionID)
	}

	out := make(chan model.StatusProjection)
	go func() {
		defer close(out)

		if deleted, err := forward(ctx, pushed, out); deleted || err != nil || ctx.Err() != nil {
			return
		}

		w.logger.Info("push stream dropped, polling", slog.String("session_id", sessionID))
		polled, err := w.poll.Watch(ctx, sessionID)
		if err != nil {
			return
		}
		_, _ = forward(ctx, polled, out)
	}()
	return out, nil
}

var errStopped = errors.New("watch stopped")

// forward copies in to out until in closes. It reports whether a deletion
// went through.
func forward(ctx context.Context, in <-chan model.StatusProjection, out chan<- model.StatusProjection) (bool, error) {
	for p := range in {
		select {
		case out <- p:
		case <-ctx.Done():
			return false, errStopped
		}
		if p.Deleted {
			return true, nil
		}
	}
	return false, nil
}
