package response

import (
	"time"

	"github.com/scrumdeck/scrumdeck/internal/model"
	"github.com/scrumdeck/scrumdeck/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
	}
}

// Lobby represents a lobby in API responses
type Lobby struct {
	Code      string    `json:"code"`
	Players   []string  `json:"players"`
	Admins    []string  `json:"admins"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LobbyFromModel converts model.Lobby
func LobbyFromModel(l *model.Lobby) Lobby {
	return Lobby{
		Code:      string(l.Code),
		Players:   playerIDs(l.Players),
		Admins:    playerIDs(l.Admins),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

// LobbyList is the response for listing lobbies
type LobbyList struct {
	Lobbies []Lobby `json:"lobbies"`
}

// LobbyListFromModel converts a slice of model.Lobby
func LobbyListFromModel(lobbies []*model.Lobby) LobbyList {
	out := LobbyList{Lobbies: make([]Lobby, len(lobbies))}
	for i, l := range lobbies {
		out.Lobbies[i] = LobbyFromModel(l)
	}
	return out
}

func playerIDs(ids []model.PlayerID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
