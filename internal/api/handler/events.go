package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/scrumdeck/scrumdeck/internal/api/middleware"
	"github.com/scrumdeck/scrumdeck/internal/model"
	"github.com/scrumdeck/scrumdeck/internal/realtime"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Send pings with this period; must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Session tokens gate the endpoint; origins are not restricted
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandler upgrades connections to WebSocket and bridges them to
// the realtime layer
type EventsHandler struct {
	realtimeService *realtime.Service
	logger          *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(realtimeService *realtime.Service, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		realtimeService: realtimeService,
		logger:          logger.With(slog.String("component", "events")),
	}
}

// Stream handles GET /api/v1/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	// Auth middleware has already vetted the session; the player's
	// lobby identity is bound later by its join event
	_ = middleware.MustGetPlayer(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	connID := model.ConnectionID(uuid.NewString())
	client := realtime.NewClient(connID)

	h.logger.Info("websocket connected", slog.String("connection_id", string(connID)))

	go h.writePump(conn, client)
	h.readPump(r.Context(), conn, client)
}

// readPump reads inbound frames until the connection dies, feeding
// each decoded event to the realtime layer. Event errors are reported
// back on this connection only; the connection stays open.
func (h *EventsHandler) readPump(ctx context.Context, conn *websocket.Conn, client *realtime.Client) {
	connID := client.ConnID()
	defer func() {
		h.realtimeService.HandleDisconnect(connID)
		_ = conn.Close()
		h.logger.Info("websocket disconnected", slog.String("connection_id", string(connID)))
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error",
					slog.String("connection_id", string(connID)),
					slog.String("error", err.Error()))
			}
			return
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.sendError(client, "INVALID_FRAME", "frame is not a valid event envelope")
			continue
		}

		if err := h.realtimeService.HandleEvent(ctx, client, env); err != nil {
			h.logger.Info("event rejected",
				slog.String("connection_id", string(connID)),
				slog.String("event_type", string(env.Type)),
				slog.String("error", err.Error()))
			h.sendError(client, eventErrorCode(err), err.Error())
		}
	}
}

// writePump drains the client's outbox onto the socket and keeps the
// connection alive with pings. It exits when the outbox is closed or
// the socket breaks.
func (h *EventsHandler) writePump(conn *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Outbox():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendError pushes an error frame straight to the connection,
// bypassing the lobby hub, since the sender may not have joined one
func (h *EventsHandler) sendError(client *realtime.Client, code, message string) {
	env, err := model.NewEnvelope(model.EventError, model.ErrorPayload{
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	client.Send(data)
}

func eventErrorCode(err error) string {
	switch {
	case errors.Is(err, model.ErrMalformedJoin):
		return "MALFORMED_JOIN"
	case errors.Is(err, model.ErrDuplicateConnection):
		return "DUPLICATE_CONNECTION"
	case errors.Is(err, model.ErrUnknownSender):
		return "UNKNOWN_SENDER"
	case errors.Is(err, model.ErrLobbyNotFound):
		return "LOBBY_NOT_FOUND"
	default:
		return "EVENT_REJECTED"
	}
}
