package validation

import (
	"time"

	"github.com/humanbelnik/gamenight/internal/model"
)

// ValidateInvite reports the highest priority reason an invite is unusable:
// revoked, then expired, then exhausted. An invite is still valid at the
// exact expiry instant. A non-positive MaxUses means unlimited.
func ValidateInvite(inv model.Invite, now time.Time) error {
	if inv.Revoked {
		return ErrInviteRevoked
	}
	if inv.ExpiresAt != nil && now.After(*inv.ExpiresAt) {
		return ErrInviteExpired
	}
	if inv.MaxUses > 0 && inv.UsedCount >= inv.MaxUses {
		return ErrInviteExhausted
	}
	return nil
}
