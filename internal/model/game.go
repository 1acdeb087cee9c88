package model

import "time"

// SharedGame is a write-once global catalog entry keyed by external game ID.
type SharedGame struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	YearPublished      *int      `json:"yearPublished,omitempty"`
	Thumbnail          string    `json:"thumbnail,omitempty"`
	Image              string    `json:"image,omitempty"`
	MinPlayers         *int      `json:"minPlayers,omitempty"`
	MaxPlayers         *int      `json:"maxPlayers,omitempty"`
	PlayingTimeMinutes *int      `json:"playingTimeMinutes,omitempty"`
	MinPlayTimeMinutes *int      `json:"minPlayTimeMinutes,omitempty"`
	MaxPlayTimeMinutes *int      `json:"maxPlayTimeMinutes,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// SessionGame references a catalog entry from one session.
// AddedByUID is owner info and never leaves the server.
type SessionGame struct {
	GameID     string    `json:"gameId"`
	Position   int       `json:"position"`
	AddedByUID string    `json:"addedByUid"`
	AddedAt    time.Time `json:"addedAt"`
}

func (g SharedGame) Pick() GamePick {
	return GamePick{
		GameID:        g.ID,
		Name:          g.Name,
		Thumbnail:     g.Thumbnail,
		YearPublished: g.YearPublished,
	}
}
