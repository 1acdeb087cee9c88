package model

import "time"

type SessionStatus string

const (
	StatusOpen    SessionStatus = "open"
	StatusClosed  SessionStatus = "closed"
	StatusExpired SessionStatus = "expired"
)

// DeriveStatus is the single place where lazy expiry is detected.
// Only open and closed are ever stored; expired is computed on read.
// A session is still open at the exact expiry instant.
func DeriveStatus(stored SessionStatus, expiresAt time.Time, now time.Time) SessionStatus {
	if stored == StatusClosed {
		return StatusClosed
	}
	if now.After(expiresAt) {
		return StatusExpired
	}
	return StatusOpen
}

type ShareMode string

const (
	ShareModeQuick    ShareMode = "quick"
	ShareModeDetailed ShareMode = "detailed"
)

func (m ShareMode) Valid() bool {
	return m == ShareModeQuick || m == ShareModeDetailed
}
