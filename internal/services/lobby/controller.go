package lobby

import (
	"context"

	"github.com/scrumdeck/scrumdeck/internal/dependencies/clock"
	"github.com/scrumdeck/scrumdeck/internal/dependencies/random"
	"github.com/scrumdeck/scrumdeck/internal/model"
	"github.com/scrumdeck/scrumdeck/internal/storage"
)

const (
	// LobbyCodeLength is the length of generated lobby codes
	LobbyCodeLength = 6
	// LobbyCodeAlphabet is the characters used in lobby codes (avoid confusing chars)
	LobbyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Controller manages the durable lobby records: creation, membership
// and the admin set. It knows nothing about live connections.
type Controller struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
}

// NewController creates a new lobby Controller
func NewController(storage storage.Storage, clock clock.Clock, random random.Random) *Controller {
	return &Controller{
		storage: storage,
		clock:   clock,
		random:  random,
	}
}

// CreateLobby creates a new lobby with the creator as its first member
// and admin. An empty code requests a generated one; a caller-supplied
// code that is already taken fails with ErrLobbyExists.
func (c *Controller) CreateLobby(ctx context.Context, code model.LobbyCode, creator model.PlayerID) (*model.Lobby, error) {
	now := c.clock.Now()

	if code == "" {
		generated, err := c.generateCode(ctx)
		if err != nil {
			return nil, err
		}
		code = generated
	} else {
		exists, err := c.storage.LobbyExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, model.ErrLobbyExists
		}
	}

	lobby := &model.Lobby{
		Code:      code,
		Players:   []model.PlayerID{creator},
		Admins:    []model.PlayerID{creator},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}
	return lobby, nil
}

// generateCode draws codes until one is free
func (c *Controller) generateCode(ctx context.Context) (model.LobbyCode, error) {
	for {
		code := model.LobbyCode(c.random.String(LobbyCodeLength, LobbyCodeAlphabet))
		exists, err := c.storage.LobbyExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

// GetLobby retrieves an active lobby by code. Soft-deleted lobbies are
// reported as not found.
func (c *Controller) GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error) {
	lobby, err := c.storage.GetLobby(ctx, code)
	if err != nil {
		return nil, err
	}
	if !lobby.Active {
		return nil, model.ErrLobbyNotFound
	}
	return lobby, nil
}

// ListLobbies returns all active lobbies
func (c *Controller) ListLobbies(ctx context.Context) ([]*model.Lobby, error) {
	return c.storage.ListActiveLobbies(ctx)
}

// EnterLobby adds a player to a lobby's member list. Entering a lobby
// the player already belongs to is a no-op.
func (c *Controller) EnterLobby(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) (*model.Lobby, error) {
	lobby, err := c.GetLobby(ctx, code)
	if err != nil {
		return nil, err
	}

	if lobby.HasPlayer(playerID) {
		return lobby, nil
	}

	lobby.Players = append(lobby.Players, playerID)
	lobby.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}
	return lobby, nil
}

// LeaveLobby removes a player from a lobby's member list. A departing
// admin also loses their admin slot; if they were the last admin the
// oldest remaining member is promoted so the lobby stays manageable.
func (c *Controller) LeaveLobby(ctx context.Context, code model.LobbyCode, playerID model.PlayerID) error {
	lobby, err := c.GetLobby(ctx, code)
	if err != nil {
		return err
	}

	if !lobby.HasPlayer(playerID) {
		return model.ErrNotInLobby
	}

	lobby.Players = removeID(lobby.Players, playerID)
	lobby.Admins = removeID(lobby.Admins, playerID)
	if len(lobby.Admins) == 0 && len(lobby.Players) > 0 {
		lobby.Admins = []model.PlayerID{lobby.Players[0]}
	}
	lobby.UpdatedAt = c.clock.Now()

	return c.storage.SaveLobby(ctx, lobby)
}

// DeleteLobby soft-deletes a lobby. Only an admin may delete it; the
// record is kept with Active cleared so the code cannot be reused.
func (c *Controller) DeleteLobby(ctx context.Context, code model.LobbyCode, actor model.PlayerID) error {
	lobby, err := c.GetLobby(ctx, code)
	if err != nil {
		return err
	}

	if !lobby.HasAdmin(actor) {
		return model.ErrNotAdmin
	}

	lobby.Active = false
	lobby.UpdatedAt = c.clock.Now()

	return c.storage.SaveLobby(ctx, lobby)
}

// AddAdmin grants a member admin rights. The actor must already be an
// admin and the target must be a member.
func (c *Controller) AddAdmin(ctx context.Context, code model.LobbyCode, actor, target model.PlayerID) (*model.Lobby, error) {
	lobby, err := c.GetLobby(ctx, code)
	if err != nil {
		return nil, err
	}

	if !lobby.HasAdmin(actor) {
		return nil, model.ErrNotAdmin
	}
	if !lobby.HasPlayer(target) {
		return nil, model.ErrNotInLobby
	}
	if lobby.HasAdmin(target) {
		return lobby, nil
	}

	lobby.Admins = append(lobby.Admins, target)
	lobby.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}
	return lobby, nil
}

// RemoveAdmin revokes a member's admin rights. The lobby must always
// keep at least one admin.
func (c *Controller) RemoveAdmin(ctx context.Context, code model.LobbyCode, actor, target model.PlayerID) (*model.Lobby, error) {
	lobby, err := c.GetLobby(ctx, code)
	if err != nil {
		return nil, err
	}

	if !lobby.HasAdmin(actor) {
		return nil, model.ErrNotAdmin
	}
	if !lobby.HasAdmin(target) {
		return nil, model.ErrNotInLobby
	}
	if len(lobby.Admins) == 1 {
		return nil, model.ErrLastAdmin
	}

	lobby.Admins = removeID(lobby.Admins, target)
	lobby.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveLobby(ctx, lobby); err != nil {
		return nil, err
	}
	return lobby, nil
}

func removeID(ids []model.PlayerID, id model.PlayerID) []model.PlayerID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
