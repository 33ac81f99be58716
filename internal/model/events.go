package model

import (
	"encoding/json"
	"time"
)

// EventType identifies the type of a realtime event
type EventType string

const (
	// Client -> server
	EventJoinLobby EventType = "join-lobby"

	// Client -> server -> lobby
	EventChatMessage    EventType = "chat-message"
	EventCardMessage    EventType = "card-message"
	EventAdminAction    EventType = "admin-action"
	EventSequenceChange EventType = "sequence-change"

	// Server -> lobby
	EventRosterUpdate EventType = "roster-update"
	EventLobbyMessage EventType = "lobby-message"

	// Server -> single connection, when its own event was rejected
	EventError EventType = "error"
)

// Envelope is the wire frame for every realtime event, both directions
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals a payload into an Envelope
func NewEnvelope(t EventType, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Payload: data}, nil
}

// JoinLobbyPayload is sent by a client to attach its connection to a lobby
type JoinLobbyPayload struct {
	PlayerID   PlayerID   `json:"player_id"`
	PlayerName string     `json:"player_name"`
	LobbyCode  LobbyCode  `json:"lobby_code"`
}

// RosterEntry is one member in a roster-update
type RosterEntry struct {
	PlayerID   PlayerID `json:"player_id"`
	PlayerName string   `json:"player_name"`
}

// RosterUpdatePayload carries the full member list of a lobby
type RosterUpdatePayload struct {
	LobbyCode LobbyCode     `json:"lobby_code"`
	Players   []RosterEntry `json:"players"`
}

// ChatMessagePayload is the inbound chat shape
type ChatMessagePayload struct {
	Text string `json:"text"`
}

// ChatBroadcastPayload is the outbound chat shape with sender attached
type ChatBroadcastPayload struct {
	SenderID  PlayerID  `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CardMessagePayload is the inbound card action; CardChosen is opaque
// and echoed verbatim to the lobby
type CardMessagePayload struct {
	CardChosen json.RawMessage `json:"card_chosen"`
	LobbyCode  LobbyCode       `json:"lobby_code"`
}

// CardBroadcastPayload is the outbound card action with sender attached
type CardBroadcastPayload struct {
	SenderID   PlayerID        `json:"sender_id"`
	CardChosen json.RawMessage `json:"card_chosen"`
	LobbyCode  LobbyCode       `json:"lobby_code"`
	Timestamp  time.Time       `json:"timestamp"`
}

// AdminActionPayload is the inbound admin action shape
type AdminActionPayload struct {
	Action string `json:"action"`
}

// AdminBroadcastPayload is the outbound admin action shape
type AdminBroadcastPayload struct {
	LobbyCode LobbyCode `json:"lobby_code"`
	Action    string    `json:"action"`
}

// SequenceChangePayload is echoed to the lobby unchanged; Sequence is
// an opaque reorder signal
type SequenceChangePayload struct {
	Sequence json.RawMessage `json:"sequence"`
}

// LobbyMessagePayload is a server-composed notice (welcome, join/leave)
type LobbyMessagePayload struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload reports a rejected event back to its sender
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
