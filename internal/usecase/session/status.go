package usecase_session

import (
	"context"
	"errors"
	"time"

	"github.com/humanbelnik/gamenight/internal/model"
	"github.com/humanbelnik/gamenight/internal/service/validation"
)

type StatusChange struct {
	Status model.SessionStatus
	At     time.Time
}

// SetReady is a guest's own, one-way action.
func (u *Usecase) SetReady(ctx context.Context, uid string, sessionID string) error {
	if err := requireCaller(uid); err != nil {
		return err
	}

	err := u.repo.Update(ctx, sessionID, func(agg *model.Aggregate) error {
		if err := requireOpen(agg.Session, u.now()); err != nil {
			return err
		}
		m, err := requireMember(agg, uid)
		if err != nil {
			return err
		}
		if m.Role != model.RoleGuest {
			return ErrGuestOnly
		}
		agg.MarkReady(uid, u.now())
		return nil
	})
	return storeError(err)
}

func validatePick(agg *model.Aggregate, pick model.GamePick) error {
	if !validation.ValidGameID(pick.GameID) || !agg.HasGame(pick.GameID) {
		return ErrGameNotInSession
	}
	return nil
}

// SetSelectedGame overwrites the selected-game snapshot. The session stays open.
func (u *Usecase) SetSelectedGame(ctx context.Context, uid string, sessionID string, pick model.GamePick) (StatusChange, error) {
	if err := requireCaller(uid); err != nil {
		return StatusChange{}, err
	}

	var (
		change     StatusChange
		projection model.StatusProjection
	)
	err := u.repo.Update(ctx, sessionID, func(agg *model.Aggregate) error {
		now := u.now()
		if err := requireHost(agg, uid); err != nil {
			return err
		}
		if err := requireOpen(agg.Session, now); err != nil {
			return err
		}
		if err := validatePick(agg, pick); err != nil {
			return err
		}

		agg.RequireOpen()
		agg.SelectGame(pick, now)
		change = StatusChange{Status: model.StatusOpen, At: now}
		projection = agg.Session.Projection(now)
		return nil
	})
	if err != nil {
		return StatusChange{}, storeError(err)
	}

	u.publish(ctx, projection)
	return change, nil
}

// Close is idempotent. Closing a closed session returns the stored close
// time and never touches the stored result, even when a different one is passed.
func (u *Usecase) Close(ctx context.Context, uid string, sessionID string, result *model.GamePick) (StatusChange, error) {
	if err := requireCaller(uid); err != nil {
		return StatusChange{}, err
	}

	var (
		change     StatusChange
		projection model.StatusProjection
		written    bool
	)
	err := u.repo.Update(ctx, sessionID, func(agg *model.Aggregate) error {
		now := u.now()
		if err := requireHost(agg, uid); err != nil {
			return err
		}
		if agg.Session.StoredStatus == model.StatusClosed {
			change = closedChange(agg.Session)
			return nil
		}
		if err := requireOpen(agg.Session, now); err != nil {
			return err
		}
		if result != nil {
			if err := validatePick(agg, *result); err != nil {
				return err
			}
		}

		agg.RequireOpen()
		agg.Close(result, now)
		change = StatusChange{Status: model.StatusClosed, At: now}
		projection = agg.Session.Projection(now)
		written = true
		return nil
	})

	// A concurrent close won the race; the outcome is the same.
	if errors.Is(err, model.ErrSessionNotOpen) {
		agg, loadErr := u.load(ctx, sessionID)
		if loadErr == nil && agg.Session.StoredStatus == model.StatusClosed {
			return closedChange(agg.Session), nil
		}
	}
	if err != nil {
		return StatusChange{}, storeError(err)
	}

	if written {
		u.publish(ctx, projection)
	}
	return change, nil
}

func closedChange(s model.Session) StatusChange {
	change := StatusChange{Status: model.StatusClosed}
	if s.ClosedAt != nil {
		change.At = *s.ClosedAt
	}
	return change
}
