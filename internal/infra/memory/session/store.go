package infra_memory_session

import (
	"context"
	"sync"

	"github.com/humanbelnik/gamenight/internal/model"
)

// Store keeps aggregates in process. Every Update runs under one lock,
// so transactions are serialized and guards are re-checked against the
// committed state before the working copy replaces it.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*model.Aggregate
	catalog  map[string]model.SharedGame
	users    map[string]model.User
}

func New() *Store {
	return &Store{
		sessions: make(map[string]*model.Aggregate),
		catalog:  make(map[string]model.SharedGame),
		users:    make(map[string]model.User),
	}
}

func (s *Store) Create(_ context.Context, agg *model.Aggregate, catalog []model.SharedGame) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[agg.Session.ID]; ok {
		return 0, model.ErrAlreadyExists
	}
	stored := agg.Clone()
	s.sessions[stored.Session.ID] = stored

	created := 0
	for _, g := range catalog {
		if _, ok := s.catalog[g.ID]; ok {
			continue
		}
		s.catalog[g.ID] = g
		created++
	}
	return created, nil
}

func (s *Store) Load(_ context.Context, sessionID string) (*model.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, ok := s.sessions[sessionID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return agg.Clone(), nil
}

func (s *Store) Update(ctx context.Context, sessionID string, fn func(agg *model.Aggregate) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	stored, ok := s.sessions[sessionID]
	if !ok {
		return model.ErrNotFound
	}

	working := stored.Clone()
	if err := fn(working); err != nil {
		return err
	}
	for _, m := range working.Mutations() {
		if !guardHolds(stored, m) {
			return m.Conflict()
		}
	}

	working.ResetMutations()
	s.sessions[sessionID] = working
	return nil
}

func guardHolds(stored *model.Aggregate, m model.Mutation) bool {
	switch m.Guard {
	case model.GuardSessionOpen:
		return stored.Session.StoredStatus == model.StatusOpen
	case model.GuardUnclaimed:
		p, ok := stored.Participants[m.Key]
		return ok && !p.Claimed
	case model.GuardAbsent:
		return !exists(stored, m.Collection, m.Key)
	}
	return true
}

func exists(agg *model.Aggregate, col model.Collection, key string) bool {
	var ok bool
	switch col {
	case model.CollectionParticipants:
		_, ok = agg.Participants[key]
	case model.CollectionMembers:
		_, ok = agg.Members[key]
	case model.CollectionSessionGames:
		_, ok = agg.Games[key]
	case model.CollectionSharedPreferences:
		_, ok = agg.SharedPreferences[key]
	case model.CollectionGuestPreferences:
		_, ok = agg.GuestPreferences[key]
	case model.CollectionSessions:
		ok = true
	}
	return ok
}

func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return model.ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *Store) CatalogGames(_ context.Context, ids []string) ([]model.SharedGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.SharedGame, 0, len(ids))
	for _, id := range ids {
		if g, ok := s.catalog[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Store) GetUser(_ context.Context, uid string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) ProvisionUser(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.UID]; ok {
		return model.ErrAlreadyExists
	}
	s.users[user.UID] = user
	return nil
}

// PutUser replaces the account record. Used to seed invites.
func (s *Store) PutUser(user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.UID] = user
}
