package usecase_session

import (
	"context"
	"errors"

	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/slot_selector"
	"github.com/humanbelnik/gamenight/internal/service/validation"
)

type ClaimInput struct {
	DisplayName   string
	ParticipantID string
}

type ClaimResult struct {
	ParticipantID        string
	HasSharedPreferences bool
}

// Claim binds the caller to one seat inside a single transaction. The seat's
// claimed flag is re-checked at commit, so of two racing claims for the same
// seat only one commits and the other gets ErrSlotTaken.
//
// Claims are not idempotent and must never be retried automatically.
func (u *Usecase) Claim(ctx context.Context, uid string, sessionID string, in ClaimInput) (ClaimResult, error) {
	if err := requireCaller(uid); err != nil {
		return ClaimResult{}, err
	}
	name, err := validation.NormalizeDisplayName(in.DisplayName)
	if err != nil {
		return ClaimResult{}, err
	}

	var result ClaimResult
	err = u.repo.Update(ctx, sessionID, func(agg *model.Aggregate) error {
		now := u.now()
		if err := requireOpen(agg.Session, now); err != nil {
			return err
		}
		agg.RequireOpen()

		if _, joined := agg.Members[uid]; joined {
			return ErrAlreadyJoined
		}

		slotID, err := chooseSlot(agg, in.ParticipantID, name)
		if err != nil {
			return err
		}

		slot, err := agg.ClaimSlot(slotID, uid, name, now)
		switch {
		case errors.Is(err, model.ErrNotFound):
			return ErrParticipantNotFound
		case errors.Is(err, model.ErrSlotAlreadyClaimed):
			return ErrSlotTaken
		case err != nil:
			return err
		}

		if err := agg.AddMember(model.Member{
			UID:           uid,
			ParticipantID: slot.ID,
			Role:          model.RoleGuest,
			DisplayName:   slot.Name(),
			Ready:         false,
			JoinedAt:      now,
			ExpiresAt:     agg.Session.ExpiresAt,
		}); err != nil {
			return ErrAlreadyJoined
		}

		_, shared := agg.SharedPreferences[slot.ID]
		result = ClaimResult{ParticipantID: slot.ID, HasSharedPreferences: shared}
		return nil
	})
	if err != nil {
		return ClaimResult{}, storeError(err)
	}
	return result, nil
}

func chooseSlot(agg *model.Aggregate, explicitID string, name string) (string, error) {
	if explicitID != "" {
		slot, ok := agg.Participants[explicitID]
		if !ok {
			return "", ErrParticipantNotFound
		}
		if slot.Claimed {
			return "", ErrSlotTaken
		}
		return slot.ID, nil
	}

	selection := slot_selector.Select(agg.UnclaimedSlots(slot_selector.FetchLimit), name)
	switch selection.Kind {
	case slot_selector.KindNamed, slot_selector.KindOpen:
		return selection.Slot.ID, nil
	case slot_selector.KindAmbiguous:
		return "", ErrAmbiguousName
	default:
		return "", ErrSessionFull
	}
}
