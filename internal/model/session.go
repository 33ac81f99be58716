package model

import "time"

// ConnectionID is the opaque handle of one live transport connection
type ConnectionID string

// PlayerSession binds a live connection to a player identity and the
// lobby it joined. Valid only while the connection is open; never
// persisted, rebuilt empty on restart.
type PlayerSession struct {
	ConnectionID ConnectionID
	PlayerID     PlayerID
	PlayerName   string
	LobbyCode    LobbyCode
	JoinedAt     time.Time
}
