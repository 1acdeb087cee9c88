package model

import "time"

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Member binds a caller identity to the seat it holds. Keyed by UID.
type Member struct {
	UID           string     `json:"uid"`
	ParticipantID string     `json:"participantId"`
	Role          Role       `json:"role"`
	DisplayName   string     `json:"displayName"`
	Ready         bool       `json:"ready"`
	JoinedAt      time.Time  `json:"joinedAt"`
	ReadyAt       *time.Time `json:"readyAt,omitempty"`
	ExpiresAt     time.Time  `json:"expiresAt"`
}
