package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scrumdeck/scrumdeck/internal/model"
)

// hubOp is a message to a hub's run loop
type hubOp interface{ isHubOp() }

type registerOp struct{ client *Client }

type unregisterOp struct{ connID model.ConnectionID }

type deliverOp struct {
	data []byte
	only model.ConnectionID // when set, deliver only to this connection
	skip model.ConnectionID // when set, deliver to everyone else
}

func (registerOp) isHubOp()   {}
func (unregisterOp) isHubOp() {}
func (deliverOp) isHubOp()    {}

// Hub owns the set of connections subscribed to a single lobby and fans
// outbound frames to them. All mutation and delivery goes through one
// run loop, so operations enqueued in order are applied in order: a
// roster broadcast queued after a registration is seen by the client
// that registration added.
type Hub struct {
	lobbyCode model.LobbyCode
	clients   map[model.ConnectionID]*Client
	count     atomic.Int64
	logger    *slog.Logger

	ops  chan hubOp
	done chan struct{}
	once sync.Once
}

// NewHub creates a hub for a lobby
func NewHub(lobbyCode model.LobbyCode, logger *slog.Logger) *Hub {
	return &Hub{
		lobbyCode: lobbyCode,
		clients:   make(map[model.ConnectionID]*Client),
		logger:    logger.With(slog.String("lobby", string(lobbyCode))),
		ops:       make(chan hubOp, 256),
		done:      make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("lobby hub started")
	for {
		select {
		case op := <-h.ops:
			h.apply(op)

		case <-h.done:
			for connID, client := range h.clients {
				client.closeOutbox()
				delete(h.clients, connID)
			}
			h.count.Store(0)
			h.logger.Info("lobby hub stopped")
			return
		}
	}
}

func (h *Hub) apply(op hubOp) {
	switch op := op.(type) {
	case registerOp:
		h.clients[op.client.connID] = op.client
		h.count.Store(int64(len(h.clients)))
		h.logger.Info("connection subscribed",
			slog.String("connection_id", string(op.client.connID)),
			slog.Int("total_clients", len(h.clients)))

	case unregisterOp:
		client, ok := h.clients[op.connID]
		if !ok {
			return
		}
		delete(h.clients, op.connID)
		client.closeOutbox()
		h.count.Store(int64(len(h.clients)))
		h.logger.Info("connection unsubscribed",
			slog.String("connection_id", string(op.connID)),
			slog.Duration("connection_duration", time.Since(client.connectedAt)),
			slog.Int("total_clients", len(h.clients)))

	case deliverOp:
		if op.only != "" {
			if client, ok := h.clients[op.only]; ok {
				h.push(client, op.data)
			}
			return
		}
		for connID, client := range h.clients {
			if connID == op.skip {
				continue
			}
			h.push(client, op.data)
		}
	}
}

// push hands a frame to one client without blocking. A full buffer
// means the client is too slow; the frame is dropped for that client
// only.
func (h *Hub) push(client *Client, data []byte) {
	if !client.Send(data) {
		h.logger.Warn("frame dropped - client buffer full",
			slog.String("connection_id", string(client.connID)))
	}
}

// Register subscribes a client to the hub
func (h *Hub) Register(client *Client) {
	h.enqueue(registerOp{client: client})
}

// Unregister removes a connection's subscription and closes its outbox
func (h *Hub) Unregister(connID model.ConnectionID) {
	h.enqueue(unregisterOp{connID: connID})
}

// Broadcast sends a frame to every subscribed connection
func (h *Hub) Broadcast(data []byte) {
	h.enqueue(deliverOp{data: data})
}

// BroadcastExcept sends a frame to every subscribed connection but one
func (h *Hub) BroadcastExcept(skip model.ConnectionID, data []byte) {
	h.enqueue(deliverOp{data: data, skip: skip})
}

// SendTo sends a frame to a single subscribed connection
func (h *Hub) SendTo(connID model.ConnectionID, data []byte) {
	h.enqueue(deliverOp{data: data, only: connID})
}

// enqueue hands an op to the run loop unless the hub is shut down
func (h *Hub) enqueue(op hubOp) {
	select {
	case h.ops <- op:
	case <-h.done:
	}
}

// Close shuts down the hub and disconnects all clients
func (h *Hub) Close() {
	h.once.Do(func() { close(h.done) })
}

// ClientCount returns the number of subscribed connections
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// HubManager tracks the hub for each lobby with live subscribers
type HubManager struct {
	hubs   map[model.LobbyCode]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.LobbyCode]*Hub),
		logger: logger.With(slog.String("component", "realtime")),
	}
}

// GetOrCreateHub returns the hub for a lobby, starting one if needed
func (m *HubManager) GetOrCreateHub(lobbyCode model.LobbyCode) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateLocked(lobbyCode)
}

// Subscribe registers a client with a lobby's hub, creating the hub if
// needed. Lookup and registration happen under the manager lock, so a
// hub handed out here cannot be retired by RemoveHubIf before the
// registration is enqueued.
func (m *HubManager) Subscribe(lobbyCode model.LobbyCode, client *Client) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub := m.getOrCreateLocked(lobbyCode)
	hub.Register(client)
	return hub
}

func (m *HubManager) getOrCreateLocked(lobbyCode model.LobbyCode) *Hub {
	if hub, ok := m.hubs[lobbyCode]; ok {
		return hub
	}

	hub := NewHub(lobbyCode, m.logger)
	m.hubs[lobbyCode] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a lobby, or nil if it doesn't exist
func (m *HubManager) GetHub(lobbyCode model.LobbyCode) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[lobbyCode]
}

// RemoveHubIf removes and closes a lobby's hub when the condition
// holds. The condition is evaluated under the manager lock, atomically
// with Subscribe: a caller whose emptiness check raced with an arriving
// subscriber re-reads the truth here and leaves the hub alone.
func (m *HubManager) RemoveHubIf(lobbyCode model.LobbyCode, condition func() bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[lobbyCode]
	if !ok || !condition() {
		return false
	}

	hub.Close()
	delete(m.hubs, lobbyCode)
	m.logger.Info("lobby hub removed", slog.String("lobby", string(lobbyCode)))
	return true
}

// Shutdown closes every hub
func (m *HubManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for code, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, code)
	}
}
