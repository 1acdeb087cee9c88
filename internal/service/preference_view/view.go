package preference_view

import (
	"sort"

	"github.com/humanbelnik/gamenight/internal/model"
)

type Source string

const (
	// SourceSubmitted entries come from the holder's own submission.
	SourceSubmitted Source = "submitted"
	// SourcePreShared entries were entered for the seat by the host.
	SourcePreShared Source = "preshared"
)

type Participant struct {
	ParticipantID string                  `json:"participantId"`
	DisplayName   string                  `json:"displayName"`
	Role          model.Role              `json:"role,omitempty"`
	Source        Source                  `json:"source"`
	Preferences   []model.PreferenceEntry `json:"preferences"`
}

// ReadyParticipants builds the view a member sees of everyone else's picks.
//
// Ready members contribute their live submission, or their seat's pre-shared
// entries when they never submitted. Named seats nobody holds and local
// sub-user rows contribute pre-shared entries when there are any. Open seats
// and seats held by a member who is not ready contribute nothing, since their
// shared row mirrors the holder's unpublished picks. The host seat stays
// hidden until the host has synced once. The caller never sees their own seat.
func ReadyParticipants(agg *model.Aggregate, callerUID string) []Participant {
	hostSynced := agg.Session.HostPreferencesSyncedAt != nil

	seen := make(map[string]bool)
	if caller, ok := agg.Members[callerUID]; ok {
		seen[caller.ParticipantID] = true
	}
	if !hostSynced {
		seen[model.HostParticipantID] = true
	}

	holders := make(map[string]*model.Member, len(agg.Members))
	for _, m := range agg.Members {
		holders[m.ParticipantID] = m
	}

	out := make([]Participant, 0)
	for _, m := range agg.SortedMembers() {
		if m.UID == callerUID || !m.Ready || seen[m.ParticipantID] {
			continue
		}
		seen[m.ParticipantID] = true

		entries, source := memberEntries(agg, m)
		if len(entries) == 0 {
			continue
		}
		out = append(out, Participant{
			ParticipantID: m.ParticipantID,
			DisplayName:   m.DisplayName,
			Role:          m.Role,
			Source:        source,
			Preferences:   SortForDisplay(entries),
		})
	}

	for _, sp := range sharedInSeatOrder(agg) {
		if seen[sp.ParticipantID] || len(sp.Preferences) == 0 || !publishedSeat(agg, holders, sp.ParticipantID) {
			continue
		}
		seen[sp.ParticipantID] = true
		out = append(out, Participant{
			ParticipantID: sp.ParticipantID,
			DisplayName:   sp.DisplayName,
			Source:        SourcePreShared,
			Preferences:   SortForDisplay(sp.Preferences),
		})
	}
	return out
}

// publishedSeat reports whether a seat's shared row may be shown to others.
func publishedSeat(agg *model.Aggregate, holders map[string]*model.Member, participantID string) bool {
	seat, ok := agg.Participants[participantID]
	if !ok {
		return true
	}
	if seat.SlotType == model.SlotOpen {
		return false
	}
	if holder, held := holders[participantID]; held && !holder.Ready {
		return false
	}
	if seat.ClaimedByUID != nil {
		if holder, held := agg.Members[*seat.ClaimedByUID]; held && !holder.Ready {
			return false
		}
	}
	return true
}

func memberEntries(agg *model.Aggregate, m model.Member) ([]model.PreferenceEntry, Source) {
	if gp, ok := agg.GuestPreferences[model.GuestPreferenceKey(m.UID, "")]; ok {
		return gp.Preferences, SourceSubmitted
	}
	if sp, ok := agg.SharedPreferences[m.ParticipantID]; ok {
		return sp.Preferences, SourcePreShared
	}
	return nil, SourcePreShared
}

// sharedInSeatOrder lists seat rows by seat position; rows for local
// sub-users have no seat and come last.
func sharedInSeatOrder(agg *model.Aggregate) []model.SharedPreference {
	out := make([]model.SharedPreference, 0, len(agg.SharedPreferences))
	for _, sp := range agg.SharedPreferences {
		out = append(out, *sp)
	}
	position := func(id string) int {
		if p, ok := agg.Participants[id]; ok {
			return p.Position
		}
		return len(agg.Participants)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := position(out[i].ParticipantID), position(out[j].ParticipantID)
		if pi != pj {
			return pi < pj
		}
		return out[i].ParticipantID < out[j].ParticipantID
	})
	return out
}

// SortForDisplay orders a copy of entries: disliked first, then top picks,
// then by ascending rank with unranked entries last.
func SortForDisplay(entries []model.PreferenceEntry) []model.PreferenceEntry {
	out := append([]model.PreferenceEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := bucket(out[i]), bucket(out[j])
		if bi != bj {
			return bi < bj
		}
		if bi == bucketRanked {
			return *out[i].Rank < *out[j].Rank
		}
		return false
	})
	return out
}

const (
	bucketDisliked = iota
	bucketTopPick
	bucketRanked
	bucketUnranked
)

func bucket(e model.PreferenceEntry) int {
	switch {
	case e.IsDisliked:
		return bucketDisliked
	case e.IsTopPick:
		return bucketTopPick
	case e.Rank != nil:
		return bucketRanked
	default:
		return bucketUnranked
	}
}
