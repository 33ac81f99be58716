package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/scrumdeck/scrumdeck/internal/dependencies/clock"
	"github.com/scrumdeck/scrumdeck/internal/model"
)

// Router resolves the sender of an inbound event and rebroadcasts it to
// the sender's lobby with identity and timestamp attached. The
// transport routes by connection id; server-side callers route by
// player id. Events whose sender never joined a lobby are dropped.
type Router struct {
	registry *Registry
	hubs     *HubManager
	clock    clock.Clock
	logger   *slog.Logger
}

func NewRouter(registry *Registry, hubs *HubManager, clk clock.Clock, logger *slog.Logger) *Router {
	return &Router{
		registry: registry,
		hubs:     hubs,
		clock:    clk,
		logger:   logger.With(slog.String("component", "router")),
	}
}

// resolve looks up the session for a connection, or fails with
// ErrUnknownSender
func (r *Router) resolve(connID model.ConnectionID) (model.PlayerSession, error) {
	sess, ok := r.registry.FindByConnection(connID)
	if !ok {
		return model.PlayerSession{}, fmt.Errorf("connection %s: %w", connID, model.ErrUnknownSender)
	}
	return sess, nil
}

// resolvePlayer looks up the live session for a player, or fails with
// ErrUnknownSender
func (r *Router) resolvePlayer(playerID model.PlayerID) (model.PlayerSession, error) {
	sess, ok := r.registry.FindByPlayer(playerID)
	if !ok {
		return model.PlayerSession{}, fmt.Errorf("player %s: %w", playerID, model.ErrUnknownSender)
	}
	return sess, nil
}

// broadcast marshals an event envelope and fans it to the lobby's hub
func (r *Router) broadcast(lobbyCode model.LobbyCode, eventType model.EventType, payload any) error {
	env, err := model.NewEnvelope(eventType, payload)
	if err != nil {
		return fmt.Errorf("building %s event: %w", eventType, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", eventType, err)
	}

	hub := r.hubs.GetHub(lobbyCode)
	if hub == nil {
		r.logger.Warn("broadcast to lobby with no hub",
			slog.String("lobby", string(lobbyCode)),
			slog.String("event_type", string(eventType)))
		return nil
	}
	hub.Broadcast(data)
	return nil
}

func (r *Router) chat(sess model.PlayerSession, payload model.ChatMessagePayload) error {
	return r.broadcast(sess.LobbyCode, model.EventChatMessage, model.ChatBroadcastPayload{
		SenderID:  sess.PlayerID,
		Text:      payload.Text,
		Timestamp: r.clock.Now(),
	})
}

func (r *Router) card(sess model.PlayerSession, payload model.CardMessagePayload) error {
	return r.broadcast(sess.LobbyCode, model.EventCardMessage, model.CardBroadcastPayload{
		SenderID:   sess.PlayerID,
		CardChosen: payload.CardChosen,
		LobbyCode:  sess.LobbyCode,
		Timestamp:  r.clock.Now(),
	})
}

func (r *Router) adminAction(sess model.PlayerSession, payload model.AdminActionPayload) error {
	return r.broadcast(sess.LobbyCode, model.EventAdminAction, model.AdminBroadcastPayload{
		LobbyCode: sess.LobbyCode,
		Action:    payload.Action,
	})
}

func (r *Router) sequenceChange(sess model.PlayerSession, payload model.SequenceChangePayload) error {
	return r.broadcast(sess.LobbyCode, model.EventSequenceChange, payload)
}

// RouteChat rebroadcasts a chat message to the sender's lobby
func (r *Router) RouteChat(connID model.ConnectionID, payload model.ChatMessagePayload) error {
	sess, err := r.resolve(connID)
	if err != nil {
		return err
	}
	return r.chat(sess, payload)
}

// RouteChatByPlayer is RouteChat with the sender resolved by player id
func (r *Router) RouteChatByPlayer(playerID model.PlayerID, payload model.ChatMessagePayload) error {
	sess, err := r.resolvePlayer(playerID)
	if err != nil {
		return err
	}
	return r.chat(sess, payload)
}

// RouteCard rebroadcasts a card selection to the sender's lobby
func (r *Router) RouteCard(connID model.ConnectionID, payload model.CardMessagePayload) error {
	sess, err := r.resolve(connID)
	if err != nil {
		return err
	}
	return r.card(sess, payload)
}

// RouteCardByPlayer is RouteCard with the sender resolved by player id
func (r *Router) RouteCardByPlayer(playerID model.PlayerID, payload model.CardMessagePayload) error {
	sess, err := r.resolvePlayer(playerID)
	if err != nil {
		return err
	}
	return r.card(sess, payload)
}

// RouteAdminAction rebroadcasts an admin control action to the
// sender's lobby
func (r *Router) RouteAdminAction(connID model.ConnectionID, payload model.AdminActionPayload) error {
	sess, err := r.resolve(connID)
	if err != nil {
		return err
	}
	return r.adminAction(sess, payload)
}

// RouteAdminActionByPlayer is RouteAdminAction with the sender
// resolved by player id
func (r *Router) RouteAdminActionByPlayer(playerID model.PlayerID, payload model.AdminActionPayload) error {
	sess, err := r.resolvePlayer(playerID)
	if err != nil {
		return err
	}
	return r.adminAction(sess, payload)
}

// RouteSequenceChange rebroadcasts a card sequence change to the
// sender's lobby
func (r *Router) RouteSequenceChange(connID model.ConnectionID, payload model.SequenceChangePayload) error {
	sess, err := r.resolve(connID)
	if err != nil {
		return err
	}
	return r.sequenceChange(sess, payload)
}

// RouteSequenceChangeByPlayer is RouteSequenceChange with the sender
// resolved by player id
func (r *Router) RouteSequenceChangeByPlayer(playerID model.PlayerID, payload model.SequenceChangePayload) error {
	sess, err := r.resolvePlayer(playerID)
	if err != nil {
		return err
	}
	return r.sequenceChange(sess, payload)
}
