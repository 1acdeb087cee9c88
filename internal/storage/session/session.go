package storage_session

import (
	"context"
	"log/slog"

	"github.com/humanbelnik/gamenight/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Repository interface {
	Create(ctx context.Context, agg *model.Aggregate, catalog []model.SharedGame) (int, error)
	Load(ctx context.Context, sessionID string) (*model.Aggregate, error)
	Update(ctx context.Context, sessionID string, fn func(agg *model.Aggregate) error) error
	Delete(ctx context.Context, sessionID string) error
	CatalogGames(ctx context.Context, ids []string) ([]model.SharedGame, error)

	GetUser(ctx context.Context, uid string) (*model.User, error)
	ProvisionUser(ctx context.Context, user model.User) error
}

// SnapshotCache serves reads only. Get returns nil on a miss.
type SnapshotCache interface {
	Get(sessionID string) (*model.Aggregate, error)
	Set(agg *model.Aggregate) error
	Invalidate(sessionID string) error
}

type Storage struct {
	repo   Repository
	cache  SnapshotCache
	tracer trace.Tracer
	logger *slog.Logger
}

type Option func(*Storage)

func WithSnapshotCache(cache SnapshotCache) Option {
	return func(s *Storage) { s.cache = cache }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Storage) { s.tracer = tracer }
}

func New(repo Repository, opts ...Option) *Storage {
	s := &Storage{
		repo:   repo,
		tracer: otel.Tracer("gamenight/storage/session"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) start(ctx context.Context, op string, sessionID string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "storage.session."+op)
	if sessionID != "" {
		span.SetAttributes(attribute.String("session.id", sessionID))
	}
	return ctx, span
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Storage) Create(ctx context.Context, agg *model.Aggregate, catalog []model.SharedGame) (n int, err error) {
	ctx, span := s.start(ctx, "create", agg.Session.ID)
	defer func() { finish(span, err) }()

	n, err = s.repo.Create(ctx, agg, catalog)
	span.SetAttributes(attribute.Int("catalog.created", n))
	return n, err
}

// Load prefers a cached snapshot. Cache failures fall through to the repository.
func (s *Storage) Load(ctx context.Context, sessionID string) (agg *model.Aggregate, err error) {
	ctx, span := s.start(ctx, "load", sessionID)
	defer func() { finish(span, err) }()

	if s.cache != nil {
		cached, cerr := s.cache.Get(sessionID)
		if cerr != nil {
			s.logger.Warn("snapshot cache read failed",
				slog.String("session_id", sessionID),
				slog.String("error", cerr.Error()))
		}
		if cached != nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	agg, err = s.repo.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if cerr := s.cache.Set(agg); cerr != nil {
			s.logger.Warn("snapshot cache write failed",
				slog.String("session_id", sessionID),
				slog.String("error", cerr.Error()))
		}
	}
	return agg, nil
}

// Update always goes to the repository and drops the snapshot whatever
// the outcome.
func (s *Storage) Update(ctx context.Context, sessionID string, fn func(agg *model.Aggregate) error) (err error) {
	ctx, span := s.start(ctx, "update", sessionID)
	defer func() { finish(span, err) }()
	defer s.invalidate(sessionID)

	return s.repo.Update(ctx, sessionID, fn)
}

func (s *Storage) Delete(ctx context.Context, sessionID string) (err error) {
	ctx, span := s.start(ctx, "delete", sessionID)
	defer func() { finish(span, err) }()
	defer s.invalidate(sessionID)

	return s.repo.Delete(ctx, sessionID)
}

func (s *Storage) CatalogGames(ctx context.Context, ids []string) (games []model.SharedGame, err error) {
	ctx, span := s.start(ctx, "catalog_games", "")
	defer func() { finish(span, err) }()

	span.SetAttributes(attribute.Int("catalog.requested", len(ids)))
	return s.repo.CatalogGames(ctx, ids)
}

func (s *Storage) GetUser(ctx context.Context, uid string) (*model.User, error) {
	return s.repo.GetUser(ctx, uid)
}

func (s *Storage) ProvisionUser(ctx context.Context, user model.User) error {
	return s.repo.ProvisionUser(ctx, user)
}

func (s *Storage) invalidate(sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(sessionID); err != nil {
		s.logger.Warn("snapshot cache invalidate failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
	}
}
