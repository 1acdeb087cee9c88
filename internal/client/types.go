package client

import (
	"time"

	"github.com/humanbelnik/gamenight/internal/model"
)

type NamedParticipant struct {
	DisplayName string                  `json:"displayName"`
	Preferences []model.PreferenceEntry `json:"preferences,omitempty"`
}

type CreateSessionRequest struct {
	Title                      string             `json:"title,omitempty"`
	ScheduledFor               time.Time          `json:"scheduledFor"`
	Capacity                   *int               `json:"capacity,omitempty"`
	MinPlayers                 *int               `json:"minPlayers,omitempty"`
	MaxPlayers                 *int               `json:"maxPlayers,omitempty"`
	MinPlayingTimeMinutes      *int               `json:"minPlayingTimeMinutes,omitempty"`
	MaxPlayingTimeMinutes      *int               `json:"maxPlayingTimeMinutes,omitempty"`
	HostDisplayName            string             `json:"hostDisplayName"`
	ShareMode                  string             `json:"shareMode,omitempty"`
	ShowOtherParticipantsPicks *bool              `json:"showOtherParticipantsPicks,omitempty"`
	GameIDs                    []string           `json:"gameIds"`
	Games                      []model.SharedGame `json:"games"`
	NamedParticipants          []NamedParticipant `json:"namedParticipants,omitempty"`
}

type CreateSessionResult struct {
	SessionID     string `json:"sessionId"`
	GamesUploaded int    `json:"gamesUploaded"`
}

type NamedSlot struct {
	ParticipantID        string `json:"participantId"`
	DisplayName          string `json:"displayName"`
	HasSharedPreferences bool   `json:"hasSharedPreferences"`
}

type Preview struct {
	SessionID                  string              `json:"sessionId"`
	Title                      string              `json:"title"`
	HostName                   string              `json:"hostName,omitempty"`
	ScheduledFor               time.Time           `json:"scheduledFor"`
	Capacity                   int                 `json:"capacity"`
	ClaimedCount               int                 `json:"claimedCount"`
	AvailableSlots             int                 `json:"availableSlots"`
	NamedSlots                 []NamedSlot         `json:"namedSlots"`
	Filters                    model.Filters       `json:"filters"`
	ShareMode                  model.ShareMode     `json:"shareMode"`
	ShowOtherParticipantsPicks bool                `json:"showOtherParticipantsPicks"`
	Status                     model.SessionStatus `json:"status"`
	SelectedGame               *model.GamePick     `json:"selectedGame,omitempty"`
	Result                     *model.GamePick     `json:"result,omitempty"`
	ExpiresAt                  time.Time           `json:"expiresAt"`
	CallerRole                 *model.Role         `json:"callerRole,omitempty"`
	CallerReady                *bool               `json:"callerReady,omitempty"`
	CallerParticipantID        string              `json:"callerParticipantId,omitempty"`
}

// Projection is the part of a preview change listeners care about.
func (p Preview) Projection() model.StatusProjection {
	return model.StatusProjection{
		SessionID:                  p.SessionID,
		Status:                     p.Status,
		ShareMode:                  p.ShareMode,
		ShowOtherParticipantsPicks: p.ShowOtherParticipantsPicks,
		SelectedGame:               p.SelectedGame,
		Result:                     p.Result,
		ExpiresAt:                  p.ExpiresAt,
	}
}

type ClaimResult struct {
	ParticipantID        string `json:"participantId"`
	HasSharedPreferences bool   `json:"hasSharedPreferences"`
}

type Member struct {
	UID           string     `json:"uid"`
	ParticipantID string     `json:"participantId"`
	Role          model.Role `json:"role"`
	DisplayName   string     `json:"displayName"`
	Ready         bool       `json:"ready"`
	JoinedAt      time.Time  `json:"joinedAt"`
	HasSubmitted  bool       `json:"hasSubmitted"`
}

type ReadyParticipant struct {
	ParticipantID string                  `json:"participantId"`
	DisplayName   string                  `json:"displayName"`
	Role          model.Role              `json:"role,omitempty"`
	Source        string                  `json:"source"`
	Preferences   []model.PreferenceEntry `json:"preferences"`
}

type StatusChange struct {
	Status     model.SessionStatus `json:"status"`
	SelectedAt *time.Time          `json:"selectedAt,omitempty"`
	ClosedAt   *time.Time          `json:"closedAt,omitempty"`
}
