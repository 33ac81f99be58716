package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/scrumdeck/scrumdeck/internal/dependencies/clock"
	"github.com/scrumdeck/scrumdeck/internal/model"
	"github.com/scrumdeck/scrumdeck/internal/storage"
)

const botName = "Scrumdeck Bot"

// Lifecycle handles connections entering and leaving lobbies. Join and
// Disconnect apply registry and hub changes before queueing any
// broadcast, so every frame a lobby sees reflects presence state at
// the time it was sent.
type Lifecycle struct {
	registry *Registry
	hubs     *HubManager
	store    storage.Storage
	clock    clock.Clock
	logger   *slog.Logger
}

func NewLifecycle(registry *Registry, hubs *HubManager, store storage.Storage, clk clock.Clock, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		registry: registry,
		hubs:     hubs,
		store:    store,
		clock:    clk,
		logger:   logger.With(slog.String("component", "lifecycle")),
	}
}

// Join attaches a connection to a lobby: the session is recorded, the
// connection is subscribed to the lobby's hub, and the lobby is told
// about the arrival. If the player already had a live connection the
// old one is evicted first.
func (l *Lifecycle) Join(ctx context.Context, client *Client, payload model.JoinLobbyPayload) error {
	if payload.PlayerID == "" || payload.PlayerName == "" || payload.LobbyCode == "" {
		return fmt.Errorf("join from connection %s: %w", client.ConnID(), model.ErrMalformedJoin)
	}

	lobby, err := l.store.GetLobby(ctx, payload.LobbyCode)
	if err != nil {
		return fmt.Errorf("joining lobby %s: %w", payload.LobbyCode, err)
	}
	if !lobby.Active {
		return fmt.Errorf("joining lobby %s: %w", payload.LobbyCode, model.ErrLobbyNotFound)
	}

	sess := model.PlayerSession{
		ConnectionID: client.ConnID(),
		PlayerID:     payload.PlayerID,
		PlayerName:   payload.PlayerName,
		LobbyCode:    payload.LobbyCode,
		JoinedAt:     l.clock.Now(),
	}

	evicted, err := l.registry.Register(sess)
	if err != nil {
		return fmt.Errorf("registering connection %s: %w", client.ConnID(), err)
	}
	if evicted != nil {
		if hub := l.hubs.GetHub(evicted.LobbyCode); hub != nil {
			hub.Unregister(evicted.ConnectionID)
		}
		// A rejoin into another lobby may have drained the old one
		l.hubs.RemoveHubIf(evicted.LobbyCode, l.lobbyEmpty(evicted.LobbyCode))
		l.logger.Info("replaced existing session for player",
			slog.String("player_id", string(sess.PlayerID)),
			slog.String("old_connection_id", string(evicted.ConnectionID)))
	}

	hub := l.hubs.Subscribe(payload.LobbyCode, client)

	l.logger.Info("player joined lobby",
		slog.String("lobby", string(payload.LobbyCode)),
		slog.String("player_id", string(sess.PlayerID)),
		slog.String("player_name", sess.PlayerName),
		slog.String("connection_id", string(client.ConnID())))

	now := l.clock.Now()
	if data, err := lobbyMessage(botName, fmt.Sprintf("Welcome to lobby %s, %s!", payload.LobbyCode, payload.PlayerName), now); err == nil {
		hub.SendTo(client.ConnID(), data)
	}
	if data, err := lobbyMessage(botName, fmt.Sprintf("%s has joined the lobby", payload.PlayerName), now); err == nil {
		hub.BroadcastExcept(client.ConnID(), data)
	}
	l.broadcastRoster(hub, payload.LobbyCode)

	return nil
}

// Disconnect detaches a connection from whatever lobby it joined. A
// connection that never joined is ignored.
func (l *Lifecycle) Disconnect(connID model.ConnectionID) {
	sess, ok := l.registry.Remove(connID)
	if !ok {
		return
	}

	hub := l.hubs.GetHub(sess.LobbyCode)
	if hub == nil {
		return
	}
	hub.Unregister(connID)

	l.logger.Info("player left lobby",
		slog.String("lobby", string(sess.LobbyCode)),
		slog.String("player_id", string(sess.PlayerID)),
		slog.String("connection_id", string(connID)))

	// The emptiness check runs atomically with Subscribe, so a join
	// landing between our registry removal and here keeps the hub
	if l.hubs.RemoveHubIf(sess.LobbyCode, l.lobbyEmpty(sess.LobbyCode)) {
		return
	}

	if data, err := lobbyMessage(botName, fmt.Sprintf("%s has left the lobby", sess.PlayerName), l.clock.Now()); err == nil {
		hub.Broadcast(data)
	}
	l.broadcastRoster(hub, sess.LobbyCode)
}

func (l *Lifecycle) lobbyEmpty(code model.LobbyCode) func() bool {
	return func() bool { return l.registry.CountByLobby(code) == 0 }
}

// broadcastRoster sends the current lobby roster to every connection
// in the lobby
func (l *Lifecycle) broadcastRoster(hub *Hub, code model.LobbyCode) {
	sessions := l.registry.ListByLobby(code)
	entries := make([]model.RosterEntry, 0, len(sessions))
	for _, s := range sessions {
		entries = append(entries, model.RosterEntry{
			PlayerID:   s.PlayerID,
			PlayerName: s.PlayerName,
		})
	}

	env, err := model.NewEnvelope(model.EventRosterUpdate, model.RosterUpdatePayload{
		LobbyCode: code,
		Players:   entries,
	})
	if err != nil {
		l.logger.Error("building roster update", slog.String("error", err.Error()))
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		l.logger.Error("encoding roster update", slog.String("error", err.Error()))
		return
	}
	hub.Broadcast(data)
}

func lobbyMessage(sender, text string, at time.Time) ([]byte, error) {
	env, err := model.NewEnvelope(model.EventLobbyMessage, model.LobbyMessagePayload{
		Sender:    sender,
		Text:      text,
		Timestamp: at,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
