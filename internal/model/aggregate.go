package model

import (
	"sort"
	"time"
)

// Aggregate is the session root together with every child document.
// Mutating methods record document-level mutations that a repository
// replays inside one transaction.
type Aggregate struct {
	Session           Session                      `json:"session"`
	Participants      map[string]*Participant      `json:"participants"`
	Members           map[string]*Member           `json:"members"`
	Games             map[string]*SessionGame      `json:"games"`
	SharedPreferences map[string]*SharedPreference `json:"sharedPreferences"`
	GuestPreferences  map[string]*GuestPreference  `json:"guestPreferences"`

	mutations []Mutation
}

func NewAggregate(session Session) *Aggregate {
	return &Aggregate{
		Session:           session,
		Participants:      make(map[string]*Participant),
		Members:           make(map[string]*Member),
		Games:             make(map[string]*SessionGame),
		SharedPreferences: make(map[string]*SharedPreference),
		GuestPreferences:  make(map[string]*GuestPreference),
	}
}

// Clone returns a copy that shares nothing mutable with a.
// The mutation log is not carried over.
func (a *Aggregate) Clone() *Aggregate {
	c := NewAggregate(a.Session)
	for k, v := range a.Participants {
		p := *v
		c.Participants[k] = &p
	}
	for k, v := range a.Members {
		m := *v
		c.Members[k] = &m
	}
	for k, v := range a.Games {
		g := *v
		c.Games[k] = &g
	}
	for k, v := range a.SharedPreferences {
		sp := *v
		sp.Preferences = append([]PreferenceEntry(nil), v.Preferences...)
		c.SharedPreferences[k] = &sp
	}
	for k, v := range a.GuestPreferences {
		gp := *v
		gp.Preferences = append([]PreferenceEntry(nil), v.Preferences...)
		c.GuestPreferences[k] = &gp
	}
	return c
}

func (a *Aggregate) Mutations() []Mutation {
	return compact(a.mutations)
}

func (a *Aggregate) ResetMutations() {
	a.mutations = nil
}

func (a *Aggregate) record(op MutationOp, col Collection, key string, guard Guard) {
	a.mutations = append(a.mutations, Mutation{Op: op, Collection: col, Key: key, Guard: guard})
}

func (a *Aggregate) touchSession() {
	a.record(OpPut, CollectionSessions, a.Session.ID, GuardNone)
}

// RequireOpen makes the transaction fail if the stored status
// is no longer open when it commits.
func (a *Aggregate) RequireOpen() {
	a.record(OpCheck, CollectionSessions, a.Session.ID, GuardSessionOpen)
}

func (a *Aggregate) AddParticipant(p Participant) {
	a.Participants[p.ID] = &p
	a.record(OpPut, CollectionParticipants, p.ID, GuardNone)
}

func (a *Aggregate) AddGame(g SessionGame) {
	a.Games[g.GameID] = &g
	a.record(OpPut, CollectionSessionGames, g.GameID, GuardNone)
}

// ClaimSlot stamps the seat as taken by uid. The claimed flag and
// the claimer are always written together.
func (a *Aggregate) ClaimSlot(participantID string, uid string, displayName string, now time.Time) (*Participant, error) {
	p, ok := a.Participants[participantID]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Claimed {
		return nil, ErrSlotAlreadyClaimed
	}

	claimer := uid
	claimedAt := now
	p.Claimed = true
	p.ClaimedByUID = &claimer
	p.ClaimedAt = &claimedAt
	if p.SlotType == SlotOpen {
		name := displayName
		p.DisplayName = &name
	}
	a.record(OpPut, CollectionParticipants, p.ID, GuardUnclaimed)
	return p, nil
}

// ReleaseSlot makes the seat claimable again. Open seats lose their name,
// named seats keep the one the host gave them.
func (a *Aggregate) ReleaseSlot(participantID string) {
	p, ok := a.Participants[participantID]
	if !ok {
		return
	}
	p.Claimed = false
	p.ClaimedByUID = nil
	p.ClaimedAt = nil
	if p.SlotType == SlotOpen {
		p.DisplayName = nil
	}
	a.record(OpPut, CollectionParticipants, p.ID, GuardNone)
}

func (a *Aggregate) AddMember(m Member) error {
	if _, exists := a.Members[m.UID]; exists {
		return ErrMemberAlreadyExists
	}
	a.Members[m.UID] = &m
	a.record(OpPut, CollectionMembers, m.UID, GuardAbsent)
	return nil
}

// MarkReady is monotonic: a ready member stays ready.
func (a *Aggregate) MarkReady(uid string, now time.Time) {
	m, ok := a.Members[uid]
	if !ok || m.Ready {
		return
	}
	readyAt := now
	m.Ready = true
	m.ReadyAt = &readyAt
	a.record(OpPut, CollectionMembers, uid, GuardNone)
}

func (a *Aggregate) RemoveMember(uid string) {
	if _, ok := a.Members[uid]; !ok {
		return
	}
	delete(a.Members, uid)
	a.record(OpDelete, CollectionMembers, uid, GuardNone)
}

func (a *Aggregate) ShareSlotPreferences(sp SharedPreference) {
	a.SharedPreferences[sp.ParticipantID] = &sp
	a.record(OpPut, CollectionSharedPreferences, sp.ParticipantID, GuardNone)
}

func (a *Aggregate) RemoveSharedPreference(participantID string) {
	if _, ok := a.SharedPreferences[participantID]; !ok {
		return
	}
	delete(a.SharedPreferences, participantID)
	a.record(OpDelete, CollectionSharedPreferences, participantID, GuardNone)
}

func (a *Aggregate) RecordSubmission(gp GuestPreference) {
	a.GuestPreferences[gp.Key] = &gp
	a.record(OpPut, CollectionGuestPreferences, gp.Key, GuardNone)
}

func (a *Aggregate) RemoveSubmission(key string) {
	if _, ok := a.GuestPreferences[key]; !ok {
		return
	}
	delete(a.GuestPreferences, key)
	a.record(OpDelete, CollectionGuestPreferences, key, GuardNone)
}

func (a *Aggregate) SelectGame(pick GamePick, now time.Time) {
	selectedAt := now
	a.Session.SelectedGame = &pick
	a.Session.SelectedAt = &selectedAt
	a.touchSession()
}

// Close moves the session to its terminal state. A nil result leaves
// whatever result is already stored.
func (a *Aggregate) Close(result *GamePick, now time.Time) {
	closedAt := now
	a.Session.StoredStatus = StatusClosed
	a.Session.ClosedAt = &closedAt
	if result != nil {
		r := *result
		a.Session.Result = &r
	}
	a.touchSession()
}

func (a *Aggregate) MarkHostSynced(now time.Time) {
	syncedAt := now
	a.Session.HostPreferencesSyncedAt = &syncedAt
	a.touchSession()
}

// Participants ordered by seat position.
func (a *Aggregate) SortedParticipants() []Participant {
	out := make([]Participant, 0, len(a.Participants))
	for _, p := range a.Participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UnclaimedSlots returns at most limit free seats in seat order.
func (a *Aggregate) UnclaimedSlots(limit int) []Participant {
	out := make([]Participant, 0)
	for _, p := range a.SortedParticipants() {
		if p.Claimed {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, p)
	}
	return out
}

func (a *Aggregate) ClaimedCount() int {
	n := 0
	for _, p := range a.Participants {
		if p.Claimed {
			n++
		}
	}
	return n
}

// Members with the host first, then by join time.
func (a *Aggregate) SortedMembers() []Member {
	out := make([]Member, 0, len(a.Members))
	for _, m := range a.Members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Role == RoleHost) != (out[j].Role == RoleHost) {
			return out[i].Role == RoleHost
		}
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UID < out[j].UID
	})
	return out
}

func (a *Aggregate) SortedGames() []SessionGame {
	out := make([]SessionGame, 0, len(a.Games))
	for _, g := range a.Games {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].GameID < out[j].GameID
	})
	return out
}

func (a *Aggregate) GameIDs() []string {
	games := a.SortedGames()
	ids := make([]string, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.GameID)
	}
	return ids
}

func (a *Aggregate) HasGame(gameID string) bool {
	_, ok := a.Games[gameID]
	return ok
}

func (a *Aggregate) HostMember() (*Member, bool) {
	m, ok := a.Members[a.Session.HostUID]
	return m, ok
}

// DocumentCount is the number of documents the aggregate spans, session included.
func (a *Aggregate) DocumentCount() int {
	return 1 + len(a.Participants) + len(a.Members) + len(a.Games) +
		len(a.SharedPreferences) + len(a.GuestPreferences)
}
