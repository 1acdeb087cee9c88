package model

import "time"

// User is the host-eligibility record for an identity.
type User struct {
	UID       string    `json:"uid"`
	Invited   bool      `json:"invited"`
	Invite    *Invite   `json:"invite,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Invite is the grant a user was admitted with.
type Invite struct {
	Code      string     `json:"code"`
	MaxUses   int        `json:"maxUses"`
	UsedCount int        `json:"usedCount"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Revoked   bool       `json:"revoked"`
}
