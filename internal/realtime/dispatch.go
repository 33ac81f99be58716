package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/scrumdeck/scrumdeck/internal/dependencies/clock"
	"github.com/scrumdeck/scrumdeck/internal/model"
	"github.com/scrumdeck/scrumdeck/internal/storage"
)

// Service is the entry point for the realtime layer. The transport
// hands it decoded event envelopes and disconnect notices; it owns the
// presence registry, the per-lobby hubs, and event routing.
type Service struct {
	Registry  *Registry
	Hubs      *HubManager
	Router    *Router
	lifecycle *Lifecycle
	logger    *slog.Logger
}

func NewService(store storage.Storage, clk clock.Clock, logger *slog.Logger) *Service {
	registry := NewRegistry()
	hubs := NewHubManager(logger)
	return &Service{
		Registry:  registry,
		Hubs:      hubs,
		Router:    NewRouter(registry, hubs, clk, logger),
		lifecycle: NewLifecycle(registry, hubs, store, clk, logger),
		logger:    logger.With(slog.String("component", "realtime")),
	}
}

// HandleEvent dispatches one inbound event from a connection. Errors
// are scoped to the sending connection; the transport reports them
// back on that connection and keeps it open.
func (s *Service) HandleEvent(ctx context.Context, client *Client, env model.Envelope) error {
	switch env.Type {
	case model.EventJoinLobby:
		var payload model.JoinLobbyPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("decoding join payload: %w", model.ErrMalformedJoin)
		}
		return s.lifecycle.Join(ctx, client, payload)

	case model.EventChatMessage:
		var payload model.ChatMessagePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("decoding chat payload: %w", err)
		}
		return s.Router.RouteChat(client.ConnID(), payload)

	case model.EventCardMessage:
		var payload model.CardMessagePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("decoding card payload: %w", err)
		}
		return s.Router.RouteCard(client.ConnID(), payload)

	case model.EventAdminAction:
		var payload model.AdminActionPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("decoding admin action payload: %w", err)
		}
		return s.Router.RouteAdminAction(client.ConnID(), payload)

	case model.EventSequenceChange:
		var payload model.SequenceChangePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return fmt.Errorf("decoding sequence change payload: %w", err)
		}
		return s.Router.RouteSequenceChange(client.ConnID(), payload)

	default:
		s.logger.Warn("unrecognised event type dropped",
			slog.String("connection_id", string(client.ConnID())),
			slog.String("event_type", string(env.Type)))
		return nil
	}
}

// HandleDisconnect tears down whatever presence a connection holds
func (s *Service) HandleDisconnect(connID model.ConnectionID) {
	s.lifecycle.Disconnect(connID)
}

// Shutdown closes all lobby hubs
func (s *Service) Shutdown() {
	s.Hubs.Shutdown()
}
