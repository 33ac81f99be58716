package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/scrumdeck/scrumdeck/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// Player tests

func (s *StorageSuite) TestSaveAndGetPlayer() {
	player := &model.Player{
		ID:          "player-1",
		DisplayName: "Alice",
		IsGuest:     true,
		CreatedAt:   time.Now(),
	}

	err := s.storage.SavePlayer(s.ctx, player)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(player.ID, retrieved.ID)
	s.Equal(player.DisplayName, retrieved.DisplayName)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestDeletePlayer() {
	player := &model.Player{ID: "player-1", DisplayName: "Alice"}
	_ = s.storage.SavePlayer(s.ctx, player)

	err := s.storage.DeletePlayer(s.ctx, "player-1")
	s.Require().NoError(err)

	_, err = s.storage.GetPlayer(s.ctx, "player-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Registered player tests

func (s *StorageSuite) TestSaveAndGetRegisteredPlayer() {
	rp := &model.RegisteredPlayer{
		PlayerID:     "player-1",
		Username:     "alice",
		PasswordHash: "hashed",
	}
	s.Require().NoError(s.storage.SaveRegisteredPlayer(s.ctx, rp))

	byID, err := s.storage.GetRegisteredPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)

	byName, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), byName.PlayerID)
}

func (s *StorageSuite) TestGetRegisteredPlayerNotFound() {
	_, err := s.storage.GetRegisteredPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.storage.GetRegisteredPlayerByUsername(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Lobby tests

func (s *StorageSuite) TestSaveAndGetLobby() {
	lobby := &model.Lobby{
		Code:    "ABC123",
		Players: []model.PlayerID{"p1", "p2"},
		Admins:  []model.PlayerID{"p1"},
		Active:  true,
	}
	s.Require().NoError(s.storage.SaveLobby(s.ctx, lobby))

	retrieved, err := s.storage.GetLobby(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(lobby.Players, retrieved.Players)
	s.Equal(lobby.Admins, retrieved.Admins)
}

func (s *StorageSuite) TestGetLobbyReturnsACopy() {
	lobby := &model.Lobby{
		Code:    "ABC123",
		Players: []model.PlayerID{"p1"},
		Active:  true,
	}
	s.Require().NoError(s.storage.SaveLobby(s.ctx, lobby))

	retrieved, err := s.storage.GetLobby(s.ctx, "ABC123")
	s.Require().NoError(err)
	retrieved.Players = append(retrieved.Players, "intruder")

	again, err := s.storage.GetLobby(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal([]model.PlayerID{"p1"}, again.Players)
}

func (s *StorageSuite) TestGetLobbyNotFound() {
	_, err := s.storage.GetLobby(s.ctx, "NOPE99")
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *StorageSuite) TestLobbyExists() {
	exists, err := s.storage.LobbyExists(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.storage.SaveLobby(s.ctx, &model.Lobby{Code: "ABC123", Active: true}))

	exists, err = s.storage.LobbyExists(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestLobbyExistsIncludesInactive() {
	s.Require().NoError(s.storage.SaveLobby(s.ctx, &model.Lobby{Code: "ABC123", Active: false}))

	// Soft-deleted lobbies still reserve their code
	exists, err := s.storage.LobbyExists(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *StorageSuite) TestDeleteLobby() {
	s.Require().NoError(s.storage.SaveLobby(s.ctx, &model.Lobby{Code: "ABC123", Active: true}))

	s.Require().NoError(s.storage.DeleteLobby(s.ctx, "ABC123"))

	_, err := s.storage.GetLobby(s.ctx, "ABC123")
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *StorageSuite) TestListActiveLobbies() {
	s.Require().NoError(s.storage.SaveLobby(s.ctx, &model.Lobby{Code: "BBBBBB", Active: true}))
	s.Require().NoError(s.storage.SaveLobby(s.ctx, &model.Lobby{Code: "AAAAAA", Active: true}))
	s.Require().NoError(s.storage.SaveLobby(s.ctx, &model.Lobby{Code: "CCCCCC", Active: false}))

	lobbies, err := s.storage.ListActiveLobbies(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(lobbies, 2)

	// Sorted by code for stable listings
	s.Equal(model.LobbyCode("AAAAAA"), lobbies[0].Code)
	s.Equal(model.LobbyCode("BBBBBB"), lobbies[1].Code)
}
