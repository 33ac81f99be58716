package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/scrumdeck/scrumdeck/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.GuestPlayerTTL = time.Hour
	cfg.LobbyTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Player tests

func (s *StorageSuite) TestSaveAndGetPlayer() {
	player := &model.Player{
		ID:          "player-1",
		DisplayName: "Alice",
		IsGuest:     false,
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

func (s *StorageSuite) TestGuestPlayerTTL() {
	guest := &model.Player{
		ID:      "guest-1",
		IsGuest: true,
	}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, guest))

	// Guests expire; registered players do not
	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetPlayer(s.ctx, "guest-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestRegisteredPlayerDoesNotExpire() {
	player := &model.Player{ID: "player-1", IsGuest: false}
	s.Require().NoError(s.storage.SavePlayer(s.ctx, player))

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.NoError(err)
}

// Registered player tests

func (s *StorageSuite) TestSaveAndGetRegisteredPlayer() {
	rp := &model.RegisteredPlayer{
		PlayerID:     "player-1",
		Username:     "alice",
		PasswordHash: "hashed",
		CreatedAt:    time.Now(),
	}
	s.Require().NoError(s.storage.SaveRegisteredPlayer(s.ctx, rp))

	byID, err := s.storage.GetRegisteredPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)

	byName, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), byName.PlayerID)
}

func (s *StorageSuite) TestGetRegisteredPlayerByUsernameNotFound() {
	_, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "nobody")
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
	s.True(retrieved.Active)
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

func (s *StorageSuite) TestDeleteLobby() {
	s.Require().NoError(s.storage.SaveLobby(s.ctx, &model.Lobby{Code: "ABC123", Active: true}))

	s.Require().NoError(s.storage.DeleteLobby(s.ctx, "ABC123"))

	_, err := s.storage.GetLobby(s.ctx, "ABC123")
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *StorageSuite) TestListActiveLobbies() {
	s.Require().NoError(s.storage.SaveLobby(s.ctx, &model.Lobby{Code: "AAAAAA", Active: true}))
	s.Require().NoError(s.storage.SaveLobby(s.ctx, &model.Lobby{Code: "BBBBBB", Active: true}))
	s.Require().NoError(s.storage.SaveLobby(s.ctx, &model.Lobby{Code: "CCCCCC", Active: false}))

	lobbies, err := s.storage.ListActiveLobbies(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(lobbies, 2)

	codes := []model.LobbyCode{lobbies[0].Code, lobbies[1].Code}
	s.ElementsMatch([]model.LobbyCode{"AAAAAA", "BBBBBB"}, codes)
}

func (s *StorageSuite) TestSoftDeleteDropsFromActiveIndex() {
	lobby := &model.Lobby{Code: "ABC123", Active: true}
	s.Require().NoError(s.storage.SaveLobby(s.ctx, lobby))

	lobby.Active = false
	s.Require().NoError(s.storage.SaveLobby(s.ctx, lobby))

	lobbies, err := s.storage.ListActiveLobbies(s.ctx)
	s.Require().NoError(err)
	s.Empty(lobbies)

	// The record itself is still readable
	retrieved, err := s.storage.GetLobby(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.False(retrieved.Active)
}
