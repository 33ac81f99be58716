package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newListenCmd() *cobra.Command {
	var jsonOutput bool
	var name string

	cmd := &cobra.Command{
		Use:   "listen <code>",
		Short: "Stream realtime events from a lobby",
		Long: `Connect to the WebSocket event endpoint, join the given lobby, and
stream events in real-time.

Events include:
  - roster-update: Lobby roster changed
  - chat-message: A player sent a chat message
  - card-message: A player selected a card
  - admin-action: An admin triggered a table action
  - sequence-change: The card sequence changed
  - lobby-message: Server notice
  - error: The server rejected a frame

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]
			return streamEvents(code, name, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")
	cmd.Flags().StringVar(&name, "name", "", "Display name to join with (default: player profile name)")

	return cmd
}

// StreamedEvent is a received event decorated with arrival time
type StreamedEvent struct {
	Time    time.Time       `json:"time"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type eventEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func streamEvents(lobbyCode, name string, jsonOutput bool) error {
	// Resolve the player identity for the join frame
	var me Player
	if err := client.Get("/api/v1/players/me", &me); err != nil {
		return fmt.Errorf("failed to resolve player: %w", err)
	}
	if name == "" {
		name = me.DisplayName
	}

	url := "ws" + strings.TrimPrefix(strings.TrimSuffix(cfg.ServerURL, "/"), "http") + "/api/v1/events"

	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	// Set up cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed: %w (HTTP %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		// A close frame lets the server tear the session down cleanly
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	// Join the lobby
	join := eventEnvelope{Type: "join-lobby"}
	joinPayload, _ := json.Marshal(map[string]string{
		"player_id":   me.ID,
		"player_name": name,
		"lobby_code":  lobbyCode,
	})
	join.Payload = joinPayload
	if err := conn.WriteJSON(join); err != nil {
		return fmt.Errorf("failed to send join: %w", err)
	}

	if !jsonOutput {
		fmt.Printf("Connected to lobby %s as %s\n", lobbyCode, name)
	}

	for {
		var env eventEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !jsonOutput {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		printEvent(env, jsonOutput)
	}
}

func printEvent(env eventEnvelope, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		evt := StreamedEvent{
			Time:    now,
			Event:   env.Type,
			Payload: env.Payload,
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Println(string(jsonData))
	} else {
		timestamp := now.Format("2006-01-02 15:04:05")
		// Truncate payloads that are too long for display
		displayData := string(env.Payload)
		if len(displayData) > 100 {
			displayData = displayData[:100] + "..."
		}
		displayData = strings.ReplaceAll(displayData, "\n", " ")
		fmt.Printf("[%s] %s: %s\n", timestamp, env.Type, displayData)
	}
}
