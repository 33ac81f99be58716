package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/scrumdeck/scrumdeck/internal/model"
	"github.com/scrumdeck/scrumdeck/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players           map[model.PlayerID]*model.Player
	registeredPlayers map[model.PlayerID]*model.RegisteredPlayer
	usernameIndex     map[string]model.PlayerID
	lobbies           map[model.LobbyCode]*model.Lobby
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.PlayerID]*model.Player),
		registeredPlayers: make(map[model.PlayerID]*model.RegisteredPlayer),
		usernameIndex:     make(map[string]model.PlayerID),
		lobbies:           make(map[model.LobbyCode]*model.Lobby),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = player
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registeredPlayers[rp.PlayerID] = rp
	s.usernameIndex[rp.Username] = rp.PlayerID
	return nil
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playerID, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return rp, nil
}

// Lobby operations

// Lobbies are copied on save and get: Players and Admins are slices,
// and callers append to them
func (s *Storage) SaveLobby(ctx context.Context, lobby *model.Lobby) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobbies[lobby.Code] = copyLobby(lobby)
	return nil
}

func (s *Storage) GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lobby, ok := s.lobbies[code]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return copyLobby(lobby), nil
}

func (s *Storage) DeleteLobby(ctx context.Context, code model.LobbyCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, code)
	return nil
}

func (s *Storage) LobbyExists(ctx context.Context, code model.LobbyCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lobbies[code]
	return ok, nil
}

func (s *Storage) ListActiveLobbies(ctx context.Context) ([]*model.Lobby, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lobbies := make([]*model.Lobby, 0)
	for _, l := range s.lobbies {
		if l.Active {
			lobbies = append(lobbies, copyLobby(l))
		}
	}
	// Map iteration order is random; keep listings stable for callers
	sort.Slice(lobbies, func(i, j int) bool {
		return lobbies[i].Code < lobbies[j].Code
	})
	return lobbies, nil
}

func copyLobby(l *model.Lobby) *model.Lobby {
	out := *l
	out.Players = append([]model.PlayerID(nil), l.Players...)
	out.Admins = append([]model.PlayerID(nil), l.Admins...)
	return &out
}
