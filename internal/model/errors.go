package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Lobby errors
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrLobbyExists   = errors.New("lobby with this code already exists")
	ErrNotInLobby    = errors.New("player is not in lobby")
	ErrNotAdmin      = errors.New("player is not a lobby admin")
	ErrLastAdmin     = errors.New("cannot remove the last admin of the lobby")

	// Realtime errors: local and non-fatal, the triggering event is
	// dropped and the connection stays open
	ErrDuplicateConnection = errors.New("connection already has a live session")
	ErrUnknownSender       = errors.New("event from an unregistered connection")
	ErrMalformedJoin       = errors.New("join is missing a required field")
)
