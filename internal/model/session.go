package model

import "time"

const (
	DefaultSessionTTL = 24 * time.Hour

	MinCapacity     = 2
	MaxCapacity     = 12
	DefaultCapacity = 6

	MaxGamesPerSession = 50
)

// GamePick is the snapshot stored as a session's selected game or final result.
type GamePick struct {
	GameID        string `json:"gameId"`
	Name          string `json:"name"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	YearPublished *int   `json:"yearPublished,omitempty"`
}

type Filters struct {
	MinPlayers            *int `json:"minPlayers,omitempty"`
	MaxPlayers            *int `json:"maxPlayers,omitempty"`
	MinPlayingTimeMinutes *int `json:"minPlayingTimeMinutes,omitempty"`
	MaxPlayingTimeMinutes *int `json:"maxPlayingTimeMinutes,omitempty"`
}

type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	HostName     string    `json:"hostName"`
	HostUID      string    `json:"hostUid"`
	ScheduledFor time.Time `json:"scheduledFor"`
	Capacity     int       `json:"capacity"`
	Filters      Filters   `json:"filters"`

	// Stored status, either open or closed. Use Status for the effective one.
	StoredStatus               SessionStatus `json:"status"`
	ShareMode                  ShareMode     `json:"shareMode"`
	ShowOtherParticipantsPicks bool          `json:"showOtherParticipantsPicks"`

	SelectedGame *GamePick  `json:"selectedGame,omitempty"`
	SelectedAt   *time.Time `json:"selectedAt,omitempty"`
	Result       *GamePick  `json:"result,omitempty"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`

	HostPreferencesSyncedAt *time.Time `json:"hostPreferencesSyncedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s Session) Status(now time.Time) SessionStatus {
	return DeriveStatus(s.StoredStatus, s.ExpiresAt, now)
}

// PicksVisibleToGuests reports whether guests may read other participants' preferences.
func (s Session) PicksVisibleToGuests() bool {
	return s.ShareMode == ShareModeDetailed && s.ShowOtherParticipantsPicks
}

// StatusProjection is what change listeners receive on every session document change.
type StatusProjection struct {
	SessionID                  string        `json:"sessionId"`
	Status                     SessionStatus `json:"status"`
	ShareMode                  ShareMode     `json:"shareMode"`
	ShowOtherParticipantsPicks bool          `json:"showOtherParticipantsPicks"`
	SelectedGame               *GamePick     `json:"selectedGame,omitempty"`
	Result                     *GamePick     `json:"result,omitempty"`
	ExpiresAt                  time.Time     `json:"expiresAt"`
	Deleted                    bool          `json:"deleted,omitempty"`
}

func (s Session) Projection(now time.Time) StatusProjection {
	return StatusProjection{
		SessionID:                  s.ID,
		Status:                     s.Status(now),
		ShareMode:                  s.ShareMode,
		ShowOtherParticipantsPicks: s.ShowOtherParticipantsPicks,
		SelectedGame:               s.SelectedGame,
		Result:                     s.Result,
		ExpiresAt:                  s.ExpiresAt,
	}
}

// Equal compares projections field by field, following pointers.
func (p StatusProjection) Equal(o StatusProjection) bool {
	return p.SessionID == o.SessionID &&
		p.Status == o.Status &&
		p.ShareMode == o.ShareMode &&
		p.ShowOtherParticipantsPicks == o.ShowOtherParticipantsPicks &&
		p.ExpiresAt.Equal(o.ExpiresAt) &&
		p.Deleted == o.Deleted &&
		pickEqual(p.SelectedGame, o.SelectedGame) &&
		pickEqual(p.Result, o.Result)
}

func pickEqual(a, b *GamePick) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.GameID == b.GameID && a.Name == b.Name && a.Thumbnail == b.Thumbnail
}
