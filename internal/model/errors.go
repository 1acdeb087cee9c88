package model

import "errors"

// Store level failures. Usecases translate them into error kinds.
var (
	ErrNotFound            = errors.New("document not found")
	ErrAlreadyExists       = errors.New("document already exists")
	ErrSlotAlreadyClaimed  = errors.New("slot already claimed")
	ErrMemberAlreadyExists = errors.New("member already exists")
	ErrSessionNotOpen      = errors.New("session is no longer open")
)
