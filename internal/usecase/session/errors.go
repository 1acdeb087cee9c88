package usecase_session

import (
	"errors"

	"github.com/humanbelnik/gamenight/internal/apperr"
	"github.com/humanbelnik/gamenight/internal/model"
)

var (
	ErrUnauthenticated     = apperr.Unauthenticated("sign in required")
	ErrSessionNotFound     = apperr.NotFound("session not found")
	ErrParticipantNotFound = apperr.NotFound("participant not found")
	ErrMemberNotFound      = apperr.NotFound("member not found")
	ErrNotHost             = apperr.PermissionDenied("only the host can do this")
	ErrNotMember           = apperr.PermissionDenied("only session members can do this")
	ErrGuestOnly           = apperr.PermissionDenied("only guests can do this")
	ErrCannotRemoveHost    = apperr.InvalidArgument("the host cannot be removed")
	ErrGameNotInSession    = apperr.InvalidArgument("game is not part of this session")
	ErrMissingGameMetadata = apperr.InvalidArgument("game metadata missing")
	ErrSessionClosed       = apperr.FailedPrecondition("session is closed")
	ErrSessionExpired      = apperr.FailedPrecondition("session has expired")
	ErrAmbiguousName       = apperr.FailedPrecondition("several seats match this name, pick one explicitly")
	ErrAlreadyJoined       = apperr.AlreadyExists("already joined this session")
	ErrSlotTaken           = apperr.AlreadyExists("slot already claimed")
	ErrSessionFull         = apperr.ResourceExhausted("no seats left")
)

// storeError maps store failures onto error kinds. Errors that already carry
// a kind, such as the ones returned from inside an update, pass through.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, model.ErrSlotAlreadyClaimed):
		return ErrSlotTaken
	case errors.Is(err, model.ErrMemberAlreadyExists):
		return ErrAlreadyJoined
	case errors.Is(err, model.ErrSessionNotOpen):
		return ErrSessionClosed
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(err)
}
