package model

import "time"

type PreferenceEntry struct {
	GameID     string `json:"gameId"`
	Rank       *int   `json:"rank"`
	IsTopPick  bool   `json:"isTopPick"`
	IsDisliked bool   `json:"isDisliked"`
}

// SharedPreference is what a seat currently shows, whoever holds it.
type SharedPreference struct {
	ParticipantID string            `json:"participantId"`
	DisplayName   string            `json:"displayName"`
	Preferences   []PreferenceEntry `json:"preferences"`
	SharedAt      time.Time         `json:"sharedAt"`
	SharedByUID   string            `json:"sharedByUid"`
}

// GuestPreference records one submission, keyed by identity
// or by identity plus local sub-user for host-proxied submissions.
type GuestPreference struct {
	Key           string            `json:"key"`
	UID           string            `json:"uid"`
	ParticipantID string            `json:"participantId"`
	DisplayName   string            `json:"displayName"`
	LocalUserID   *string           `json:"localUserId,omitempty"`
	Preferences   []PreferenceEntry `json:"preferences"`
	SubmittedAt   time.Time         `json:"submittedAt"`
}

func GuestPreferenceKey(uid string, localUserID string) string {
	if localUserID == "" {
		return uid
	}
	return uid + "_" + localUserID
}

// LocalUser describes a person sitting next to the host without their own identity.
type LocalUser struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	ParticipantID string `json:"participantId,omitempty"`
}
