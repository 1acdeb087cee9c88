package client

import (
	"context"
	"log/slog"

	"github.com/humanbelnik/gamenight/internal/model"
	"golang.org/x/sync/singleflight"
)

// Backend is what the service needs from the transport.
type Backend interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (CreateSessionResult, error)
	Preview(ctx context.Context, sessionID string) (Preview, error)
	Claim(ctx context.Context, sessionID string, displayName string, participantID string) (ClaimResult, error)
	SetReady(ctx context.Context, sessionID string) error
	Games(ctx context.Context, sessionID string) ([]model.SharedGame, error)
	Members(ctx context.Context, sessionID string) ([]Member, error)
	RemoveGuest(ctx context.Context, sessionID string, guestUID string) error
	SubmitPreferences(ctx context.Context, sessionID string, prefs []model.PreferenceEntry, local *model.LocalUser) (int, error)
	ReadyPreferences(ctx context.Context, sessionID string) ([]ReadyParticipant, error)
	SetSelectedGame(ctx context.Context, sessionID string, pick model.GamePick) (StatusChange, error)
	Close(ctx context.Context, sessionID string, result *model.GamePick) (StatusChange, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Service is the client-side session API: cached previews, retried reads
// and single-shot writes. Every write drops the session's cached preview,
// and a preview fetched while a write was in flight is not cached.
type Service struct {
	backend  Backend
	previews *PreviewCache
	retry    RetryPolicy
	flights  singleflight.Group
	logger   *slog.Logger
}

type ServiceOption func(*Service)

func WithPreviewCache(cache *PreviewCache) ServiceOption {
	return func(s *Service) { s.previews = cache }
}

func WithRetryPolicy(p RetryPolicy) ServiceOption {
	return func(s *Service) { s.retry = p }
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func NewService(backend Backend, opts ...ServiceOption) *Service {
	s := &Service{
		backend:  backend,
		previews: NewPreviewCache(DefaultPreviewTTL),
		retry:    DefaultRetryPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview serves from the cache unless skipCache is set. Concurrent misses
// for the same session share one backend call.
func (s *Service) Preview(ctx context.Context, sessionID string, skipCache bool) (Preview, error) {
	if !skipCache {
		if p, ok := s.previews.Get(sessionID); ok {
			return p, nil
		}
	}

	key := sessionID
	if skipCache {
		key = "fresh:" + sessionID
	}
	v, err, _ := s.flights.Do(key, func() (any, error) {
		token := s.previews.Token()
		p, err := retryRead(ctx, s.retry, func(ctx context.Context) (Preview, error) {
			return s.backend.Preview(ctx, sessionID)
		})
		if err != nil {
			return Preview{}, err
		}
		if !s.previews.SetIfCurrent(sessionID, p, token) {
			s.logger.Debug("preview overlapped a write, not cached", slog.String("session_id", sessionID))
		}
		return p, nil
	})
	if err != nil {
		return Preview{}, err
	}
	return v.(Preview), nil
}

func (s *Service) Members(ctx context.Context, sessionID string) ([]Member, error) {
	return retryRead(ctx, s.retry, func(ctx context.Context) ([]Member, error) {
		return s.backend.Members(ctx, sessionID)
	})
}

func (s *Service) ReadyPreferences(ctx context.Context, sessionID string) ([]ReadyParticipant, error) {
	return retryRead(ctx, s.retry, func(ctx context.Context) ([]ReadyParticipant, error) {
		return s.backend.ReadyPreferences(ctx, sessionID)
	})
}

func (s *Service) Games(ctx context.Context, sessionID string) ([]model.SharedGame, error) {
	return retryRead(ctx, s.retry, func(ctx context.Context) ([]model.SharedGame, error) {
		return s.backend.Games(ctx, sessionID)
	})
}

func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (CreateSessionResult, error) {
	return s.backend.CreateSession(ctx, req)
}

// Claim is attempted exactly once. A failure must be retried by the user.
func (s *Service) Claim(ctx context.Context, sessionID string, displayName string, participantID string) (ClaimResult, error) {
	defer s.previews.Invalidate(sessionID)
	return s.backend.Claim(ctx, sessionID, displayName, participantID)
}

func (s *Service) SetReady(ctx context.Context, sessionID string) error {
	defer s.previews.Invalidate(sessionID)
	return s.backend.SetReady(ctx, sessionID)
}

func (s *Service) RemoveGuest(ctx context.Context, sessionID string, guestUID string) error {
	defer s.previews.Invalidate(sessionID)
	return s.backend.RemoveGuest(ctx, sessionID, guestUID)
}

func (s *Service) SubmitBoard(ctx context.Context, sessionID string, board *Board, local *model.LocalUser) (int, error) {
	return s.backend.SubmitPreferences(ctx, sessionID, board.Entries(), local)
}

func (s *Service) SetSelectedGame(ctx context.Context, sessionID string, pick model.GamePick) (StatusChange, error) {
	defer s.previews.Invalidate(sessionID)
	return s.backend.SetSelectedGame(ctx, sessionID, pick)
}

func (s *Service) Close(ctx context.Context, sessionID string, result *model.GamePick) (StatusChange, error) {
	defer s.previews.Invalidate(sessionID)
	return s.backend.Close(ctx, sessionID, result)
}

func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	defer s.previews.Invalidate(sessionID)
	return s.backend.DeleteSession(ctx, sessionID)
}
