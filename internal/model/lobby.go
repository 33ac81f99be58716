package model

import "time"

// LobbyCode is a human-readable identifier for joining lobbies
type LobbyCode string

// Lobby represents the durable record of a room: who belongs to it and
// who administers it. Live presence is tracked separately by the
// realtime layer; this struct never holds connection state.
type Lobby struct {
	Code      LobbyCode
	Players   []PlayerID // membership, in join order
	Admins    []PlayerID // subset of Players with elevated rights
	Active    bool       // soft-delete flag; inactive lobbies are invisible
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPlayer reports whether the player is a member of the lobby
func (l *Lobby) HasPlayer(id PlayerID) bool {
	for _, p := range l.Players {
		if p == id {
			return true
		}
	}
	return false
}

// HasAdmin reports whether the player is in the lobby's admin set
func (l *Lobby) HasAdmin(id PlayerID) bool {
	for _, a := range l.Admins {
		if a == id {
			return true
		}
	}
	return false
}
