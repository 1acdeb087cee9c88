package usecase_session

import (
	"context"
	"time"

	"github.com/humanbelnik/gamenight/internal/model"
)

type NamedSlot struct {
	ParticipantID        string
	DisplayName          string
	HasSharedPreferences bool
}

type Preview struct {
	SessionID                  string
	Title                      string
	HostName                   string
	ScheduledFor               time.Time
	Capacity                   int
	ClaimedCount               int
	AvailableSlots             int
	NamedSlots                 []NamedSlot
	Filters                    model.Filters
	ShareMode                  model.ShareMode
	ShowOtherParticipantsPicks bool
	Status                     model.SessionStatus
	SelectedGame               *model.GamePick
	Result                     *model.GamePick
	ExpiresAt                  time.Time

	// Set only when the caller is a member.
	CallerRole          *model.Role
	CallerReady         *bool
	CallerParticipantID string
}

// Preview needs no identity. Expired sessions are reported as expired,
// not rejected, so a waiting guest learns what happened.
func (u *Usecase) Preview(ctx context.Context, callerUID string, sessionID string) (Preview, error) {
	agg, err := u.load(ctx, sessionID)
	if err != nil {
		return Preview{}, err
	}

	s := agg.Session
	claimed := agg.ClaimedCount()
	p := Preview{
		SessionID:                  s.ID,
		Title:                      s.Title,
		HostName:                   s.HostName,
		ScheduledFor:               s.ScheduledFor,
		Capacity:                   s.Capacity,
		ClaimedCount:               claimed,
		AvailableSlots:             len(agg.Participants) - claimed,
		NamedSlots:                 make([]NamedSlot, 0),
		Filters:                    s.Filters,
		ShareMode:                  s.ShareMode,
		ShowOtherParticipantsPicks: s.ShowOtherParticipantsPicks,
		Status:                     s.Status(u.now()),
		SelectedGame:               s.SelectedGame,
		Result:                     s.Result,
		ExpiresAt:                  s.ExpiresAt,
	}

	for _, slot := range agg.SortedParticipants() {
		if slot.Claimed || slot.SlotType != model.SlotNamed {
			continue
		}
		_, shared := agg.SharedPreferences[slot.ID]
		p.NamedSlots = append(p.NamedSlots, NamedSlot{
			ParticipantID:        slot.ID,
			DisplayName:          slot.Name(),
			HasSharedPreferences: shared,
		})
	}

	if m, ok := agg.Members[callerUID]; ok && callerUID != "" {
		role := m.Role
		ready := m.Ready
		p.CallerRole = &role
		p.CallerReady = &ready
		p.CallerParticipantID = m.ParticipantID
	}
	return p, nil
}
