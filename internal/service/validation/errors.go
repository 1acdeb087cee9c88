package validation

import "github.com/humanbelnik/gamenight/internal/apperr"

var (
	ErrDisplayNameLength  = apperr.InvalidArgument("display name must be between 2 and 30 characters")
	ErrHostNameRequired   = apperr.InvalidArgument("host display name is required")
	ErrCapacityOutOfRange = apperr.InvalidArgument("capacity must be between 2 and 12")
	ErrNoGames            = apperr.InvalidArgument("at least one game is required")
	ErrTooManyGames       = apperr.InvalidArgument("a session holds at most 50 games")
	ErrInvalidGameID      = apperr.InvalidArgument("invalid game id")
	ErrInvalidFilters     = apperr.InvalidArgument("invalid player or playing time filters")
	ErrScheduleRequired   = apperr.InvalidArgument("scheduled time is required")
	ErrInvalidShareMode   = apperr.InvalidArgument("share mode must be quick or detailed")
	ErrTitleTooLong       = apperr.InvalidArgument("title must be at most 100 characters")
	ErrTooManyNamed       = apperr.InvalidArgument("named participants exceed the seats left after the host")

	ErrInviteRevoked   = apperr.PermissionDenied("invite has been revoked")
	ErrInviteExpired   = apperr.PermissionDenied("invite has expired")
	ErrInviteExhausted = apperr.PermissionDenied("invite has no uses left")
)
