package usecase_session

import (
	"context"
	"log/slog"
	"time"

	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/oklog/ulid/v2"
)

//go:generate mockery --name=Repository --structname=SessionRepository --output=../../../mocks/repository --filename=session.go
type Repository interface {
	// Create writes the whole aggregate atomically and adds the catalog games
	// that are not there yet. It returns how many catalog games it created.
	Create(ctx context.Context, agg *model.Aggregate, catalog []model.SharedGame) (int, error)
	Load(ctx context.Context, sessionID string) (*model.Aggregate, error)
	// Update runs fn on a private copy and commits the mutations it records
	// in one transaction. Errors returned by fn abort it unchanged.
	Update(ctx context.Context, sessionID string, fn func(agg *model.Aggregate) error) error
	// Delete removes every child document before the session document.
	Delete(ctx context.Context, sessionID string) error
	CatalogGames(ctx context.Context, ids []string) ([]model.SharedGame, error)
}

//go:generate mockery --name=HostPolicy --output=../../../mocks/host --filename=host.go
type HostPolicy interface {
	EnsureHost(ctx context.Context, uid string) error
}

//go:generate mockery --name=StatusPublisher --output=../../../mocks/publisher --filename=publisher.go
type StatusPublisher interface {
	Publish(ctx context.Context, projection model.StatusProjection) error
}

type Usecase struct {
	repo      Repository
	hosts     HostPolicy
	publisher StatusPublisher
	logger    *slog.Logger

	ttl   time.Duration
	now   func() time.Time
	newID func() string
}

type Option func(*Usecase)

func WithTTL(ttl time.Duration) Option {
	return func(u *Usecase) {
		if ttl > 0 {
			u.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *Usecase) { u.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(u *Usecase) { u.newID = newID }
}

func WithLogger(logger *slog.Logger) Option {
	return func(u *Usecase) { u.logger = logger }
}

func New(
	repo Repository,
	hosts HostPolicy,
	publisher StatusPublisher,
	opts ...Option,
) *Usecase {
	u := &Usecase{
		repo:      repo,
		hosts:     hosts,
		publisher: publisher,
		logger:    slog.Default(),
		ttl:       model.DefaultSessionTTL,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func requireCaller(uid string) error {
	if uid == "" {
		return ErrUnauthenticated
	}
	return nil
}

func requireOpen(s model.Session, now time.Time) error {
	switch s.Status(now) {
	case model.StatusClosed:
		return ErrSessionClosed
	case model.StatusExpired:
		return ErrSessionExpired
	}
	return nil
}

func requireNotExpired(s model.Session, now time.Time) error {
	if s.Status(now) == model.StatusExpired {
		return ErrSessionExpired
	}
	return nil
}

func requireHost(agg *model.Aggregate, uid string) error {
	if agg.Session.HostUID != uid {
		return ErrNotHost
	}
	return nil
}

func requireMember(agg *model.Aggregate, uid string) (*model.Member, error) {
	m, ok := agg.Members[uid]
	if !ok {
		return nil, ErrNotMember
	}
	return m, nil
}

func (u *Usecase) load(ctx context.Context, sessionID string) (*model.Aggregate, error) {
	agg, err := u.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, storeError(err)
	}
	return agg, nil
}

// Notifications are best effort: a failed publish never fails the handler,
// watchers fall back to polling.
func (u *Usecase) publish(ctx context.Context, projection model.StatusProjection) {
	if u.publisher == nil {
		return
	}
	if err := u.publisher.Publish(ctx, projection); err != nil {
		u.logger.Warn("failed to publish session status",
			slog.String("session_id", projection.SessionID),
			slog.String("error", err.Error()))
	}
}

// Projection is the current status view sent to change listeners.
func (u *Usecase) Projection(ctx context.Context, sessionID string) (model.StatusProjection, error) {
	agg, err := u.load(ctx, sessionID)
	if err != nil {
		return model.StatusProjection{}, err
	}
	return agg.Session.Projection(u.now()), nil
}
