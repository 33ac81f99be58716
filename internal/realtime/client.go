package realtime

import (
	"sync"
	"time"

	"github.com/scrumdeck/scrumdeck/internal/model"
)

const (
	// Buffer size for a client's outgoing messages
	sendBufferSize = 256
)

// Client is the hub-side handle for one live connection. The transport
// layer drains Outbox in its own goroutine; the hub closes the outbox
// when the client is unregistered. Send and the close path can race on
// eviction, so both go through the mutex.
type Client struct {
	connID      model.ConnectionID
	connectedAt time.Time

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// NewClient creates a client handle for a connection
func NewClient(connID model.ConnectionID) *Client {
	return &Client{
		connID:      connID,
		connectedAt: time.Now(),
		send:        make(chan []byte, sendBufferSize),
	}
}

// ConnID returns the connection id this client handle belongs to
func (c *Client) ConnID() model.ConnectionID {
	return c.connID
}

// Outbox returns the channel of outbound frames for this connection.
// It is closed when the client is unregistered from its hub.
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

// Send queues a frame for delivery without blocking. It reports false
// when the outbox is closed or full.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeOutbox closes the outbox exactly once
func (c *Client) closeOutbox() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
