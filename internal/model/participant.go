package model

import (
	"fmt"
	"time"
)

type SlotType string

const (
	SlotNamed SlotType = "named"
	SlotOpen  SlotType = "open"
)

const HostParticipantID = "host"

func NamedParticipantID(n int) string { return fmt.Sprintf("named-%d", n) }
func OpenParticipantID(n int) string  { return fmt.Sprintf("open-%d", n) }

// LocalParticipantID addresses a host-proxied person without a device of their own.
func LocalParticipantID(localUserID string) string { return "local-" + localUserID }

// Participant is one reservable seat.
type Participant struct {
	ID           string     `json:"id"`
	Position     int        `json:"position"`
	SlotType     SlotType   `json:"slotType"`
	DisplayName  *string    `json:"displayName,omitempty"`
	Claimed      bool       `json:"claimed"`
	ClaimedByUID *string    `json:"claimedByUid,omitempty"`
	ClaimedAt    *time.Time `json:"claimedAt,omitempty"`
	ExpiresAt    time.Time  `json:"expiresAt"`
}

func (p Participant) IsHostSeat() bool {
	return p.ID == HostParticipantID
}

func (p Participant) Name() string {
	if p.DisplayName == nil {
		return ""
	}
	return *p.DisplayName
}
