package usecase_session

import (
	"context"
	"time"

	"github.com/humanbelnik/gamenight/internal/model"
)

type MemberView struct {
	UID           string
	ParticipantID string
	Role          model.Role
	DisplayName   string
	Ready         bool
	JoinedAt      time.Time
	HasSubmitted  bool
}

// Members is the host's dashboard of who joined and who is done.
func (u *Usecase) Members(ctx context.Context, uid string, sessionID string) ([]MemberView, error) {
	if err := requireCaller(uid); err != nil {
		return nil, err
	}
	agg, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireHost(agg, uid); err != nil {
		return nil, err
	}
	if err := requireNotExpired(agg.Session, u.now()); err != nil {
		return nil, err
	}

	out := make([]MemberView, 0, len(agg.Members))
	for _, m := range agg.SortedMembers() {
		_, submitted := agg.GuestPreferences[model.GuestPreferenceKey(m.UID, "")]
		out = append(out, MemberView{
			UID:           m.UID,
			ParticipantID: m.ParticipantID,
			Role:          m.Role,
			DisplayName:   m.DisplayName,
			Ready:         m.Ready,
			JoinedAt:      m.JoinedAt,
			HasSubmitted:  submitted,
		})
	}
	return out, nil
}

// RemoveGuest frees the guest's seat. An open seat also loses its name and
// shared row so the next claimant starts clean; a named seat keeps both.
func (u *Usecase) RemoveGuest(ctx context.Context, uid string, sessionID string, guestUID string) error {
	if err := requireCaller(uid); err != nil {
		return err
	}

	err := u.repo.Update(ctx, sessionID, func(agg *model.Aggregate) error {
		if err := requireHost(agg, uid); err != nil {
			return err
		}
		if err := requireOpen(agg.Session, u.now()); err != nil {
			return err
		}
		target, ok := agg.Members[guestUID]
		if !ok {
			return ErrMemberNotFound
		}
		if target.Role != model.RoleGuest {
			return ErrCannotRemoveHost
		}

		seatID := target.ParticipantID
		agg.RemoveMember(guestUID)
		agg.RemoveSubmission(model.GuestPreferenceKey(guestUID, ""))
		if seat, ok := agg.Participants[seatID]; ok && seat.SlotType == model.SlotOpen {
			agg.RemoveSharedPreference(seatID)
		}
		agg.ReleaseSlot(seatID)
		return nil
	})
	return storeError(err)
}

// Games lists the session's games from the catalog, in the host's order.
// Who added a game is not exposed.
func (u *Usecase) Games(ctx context.Context, uid string, sessionID string) ([]model.SharedGame, error) {
	if err := requireCaller(uid); err != nil {
		return nil, err
	}
	agg, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(agg, uid); err != nil {
		return nil, err
	}
	if err := requireNotExpired(agg.Session, u.now()); err != nil {
		return nil, err
	}

	ids := agg.GameIDs()
	catalog, err := u.repo.CatalogGames(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}
	byID := make(map[string]model.SharedGame, len(catalog))
	for _, g := range catalog {
		byID[g.ID] = g
	}

	out := make([]model.SharedGame, 0, len(ids))
	for _, id := range ids {
		g, ok := byID[id]
		if !ok {
			g = model.SharedGame{ID: id}
		}
		out = append(out, g)
	}
	return out, nil
}

// Delete destroys the session and all of its children. Allowed in any state.
func (u *Usecase) Delete(ctx context.Context, uid string, sessionID string) (string, error) {
	if err := requireCaller(uid); err != nil {
		return "", err
	}
	agg, err := u.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if err := requireHost(agg, uid); err != nil {
		return "", err
	}
	if err := u.repo.Delete(ctx, sessionID); err != nil {
		return "", storeError(err)
	}

	projection := agg.Session.Projection(u.now())
	projection.Deleted = true
	u.publish(ctx, projection)
	return sessionID, nil
}
