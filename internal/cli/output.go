package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case Lobby:
		o.printLobby(v)
	case LobbyList:
		o.printLobbyList(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// Lobby response type
type Lobby struct {
	Code      string    `json:"code"`
	Players   []string  `json:"players"`
	Admins    []string  `json:"admins"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LobbyList response type
type LobbyList struct {
	Lobbies []Lobby `json:"lobbies"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayer(p Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Printf("Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printLobby(l Lobby) {
	admins := make(map[string]bool, len(l.Admins))
	for _, id := range l.Admins {
		admins[id] = true
	}

	fmt.Printf("Lobby: %s\n", l.Code)
	fmt.Printf("Created: %s\n", l.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Players (%d):\n", len(l.Players))
	for _, id := range l.Players {
		adminStr := ""
		if admins[id] {
			adminStr = " [admin]"
		}
		fmt.Printf("  - %s%s\n", id, adminStr)
	}
}

func (o *Output) printLobbyList(l LobbyList) {
	if len(l.Lobbies) == 0 {
		fmt.Println("No active lobbies")
		return
	}

	fmt.Printf("Lobbies (%d):\n", len(l.Lobbies))
	for _, lobby := range l.Lobbies {
		fmt.Printf("  - %s (%d players)\n", lobby.Code, len(lobby.Players))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
