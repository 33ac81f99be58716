package storage

import (
	"context"

	"github.com/scrumdeck/scrumdeck/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error)
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Lobby operations
	SaveLobby(ctx context.Context, lobby *model.Lobby) error
	GetLobby(ctx context.Context, code model.LobbyCode) (*model.Lobby, error)
	DeleteLobby(ctx context.Context, code model.LobbyCode) error
	LobbyExists(ctx context.Context, code model.LobbyCode) (bool, error)
	ListActiveLobbies(ctx context.Context) ([]*model.Lobby, error)
}
