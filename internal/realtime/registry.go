package realtime

import (
	"sync"

	"github.com/scrumdeck/scrumdeck/internal/model"
)

// Registry is the authoritative in-memory table of live player sessions.
// It is indexed by connection id and by player id, with per-lobby
// registration order preserved for roster snapshots. All state lives
// behind one mutex; reads return copies, never live views.
type Registry struct {
	mu       sync.RWMutex
	byConn   map[model.ConnectionID]model.PlayerSession
	byPlayer map[model.PlayerID]model.ConnectionID
	byLobby  map[model.LobbyCode][]model.ConnectionID
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		byConn:   make(map[model.ConnectionID]model.PlayerSession),
		byPlayer: make(map[model.PlayerID]model.ConnectionID),
		byLobby:  make(map[model.LobbyCode][]model.ConnectionID),
	}
}

// Register inserts a new session. A connection id that already has a
// live session is rejected with ErrDuplicateConnection. A player id
// that already has a live session under another connection is treated
// as a rejoin: the old session is evicted and returned so the caller
// can tear down its subscription.
func (r *Registry) Register(sess model.PlayerSession) (*model.PlayerSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[sess.ConnectionID]; ok {
		return nil, model.ErrDuplicateConnection
	}

	var evicted *model.PlayerSession
	if oldConn, ok := r.byPlayer[sess.PlayerID]; ok {
		old := r.byConn[oldConn]
		r.removeLocked(oldConn)
		evicted = &old
	}

	r.byConn[sess.ConnectionID] = sess
	r.byPlayer[sess.PlayerID] = sess.ConnectionID
	r.byLobby[sess.LobbyCode] = append(r.byLobby[sess.LobbyCode], sess.ConnectionID)

	return evicted, nil
}

// FindByConnection looks up the session for a connection id
func (r *Registry) FindByConnection(id model.ConnectionID) (model.PlayerSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byConn[id]
	return sess, ok
}

// FindByPlayer looks up the session for a player id
func (r *Registry) FindByPlayer(id model.PlayerID) (model.PlayerSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byPlayer[id]
	if !ok {
		return model.PlayerSession{}, false
	}
	sess, ok := r.byConn[connID]
	return sess, ok
}

// Remove deletes and returns the session for a connection id.
// Removing an unregistered connection is not an error.
func (r *Registry) Remove(id model.ConnectionID) (model.PlayerSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.byConn[id]
	if !ok {
		return model.PlayerSession{}, false
	}
	r.removeLocked(id)
	return sess, true
}

// ListByLobby returns a point-in-time copy of the sessions attached to
// a lobby, in registration order
func (r *Registry) ListByLobby(code model.LobbyCode) []model.PlayerSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byLobby[code]
	sessions := make([]model.PlayerSession, 0, len(conns))
	for _, connID := range conns {
		if sess, ok := r.byConn[connID]; ok {
			sessions = append(sessions, sess)
		}
	}
	return sessions
}

// CountByLobby returns the number of live sessions attached to a lobby
func (r *Registry) CountByLobby(code model.LobbyCode) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byLobby[code])
}

// Len returns the total number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// removeLocked deletes a session from every index. Caller holds the lock.
func (r *Registry) removeLocked(id model.ConnectionID) {
	sess, ok := r.byConn[id]
	if !ok {
		return
	}

	delete(r.byConn, id)
	if r.byPlayer[sess.PlayerID] == id {
		delete(r.byPlayer, sess.PlayerID)
	}

	conns := r.byLobby[sess.LobbyCode]
	for i, c := range conns {
		if c == id {
			r.byLobby[sess.LobbyCode] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(r.byLobby[sess.LobbyCode]) == 0 {
		delete(r.byLobby, sess.LobbyCode)
	}
}
