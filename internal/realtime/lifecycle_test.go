package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/scrumdeck/scrumdeck/internal/dependencies/mocks"
	"github.com/scrumdeck/scrumdeck/internal/model"
	"github.com/scrumdeck/scrumdeck/internal/storage/memory"
	"github.com/scrumdeck/scrumdeck/internal/testutil"
)

type LifecycleTestSuite struct {
	suite.Suite
	store     *memory.Storage
	clock     *mocks.MockClock
	registry  *Registry
	hubs      *HubManager
	lifecycle *Lifecycle
	ctx       context.Context
}

func (s *LifecycleTestSuite) SetupTest() {
	s.store = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s.registry = NewRegistry()
	s.hubs = NewHubManager(testutil.NopLogger())
	s.lifecycle = NewLifecycle(s.registry, s.hubs, s.store, s.clock, testutil.NopLogger())
	s.ctx = context.Background()

	s.Require().NoError(s.store.SaveLobby(s.ctx, &model.Lobby{
		Code:      "ABC123",
		Active:    true,
		CreatedAt: s.clock.Now(),
		UpdatedAt: s.clock.Now(),
	}))
}

func (s *LifecycleTestSuite) TearDownTest() {
	s.hubs.Shutdown()
}

// recvEvent pulls one frame off a client's outbox and decodes the
// envelope
func (s *LifecycleTestSuite) recvEvent(c *Client) model.Envelope {
	s.T().Helper()
	select {
	case data, ok := <-c.Outbox():
		s.Require().True(ok, "outbox closed")
		var env model.Envelope
		s.Require().NoError(json.Unmarshal(data, &env))
		return env
	case <-time.After(time.Second):
		s.T().Fatal("timed out waiting for frame")
		return model.Envelope{}
	}
}

func (s *LifecycleTestSuite) recvRoster(c *Client) model.RosterUpdatePayload {
	s.T().Helper()
	env := s.recvEvent(c)
	s.Require().Equal(model.EventRosterUpdate, env.Type)
	var payload model.RosterUpdatePayload
	s.Require().NoError(json.Unmarshal(env.Payload, &payload))
	return payload
}

func (s *LifecycleTestSuite) recvNotice(c *Client) model.LobbyMessagePayload {
	s.T().Helper()
	env := s.recvEvent(c)
	s.Require().Equal(model.EventLobbyMessage, env.Type)
	var payload model.LobbyMessagePayload
	s.Require().NoError(json.Unmarshal(env.Payload, &payload))
	return payload
}

func (s *LifecycleTestSuite) join(c *Client, playerID, playerName string) {
	s.T().Helper()
	s.Require().NoError(s.lifecycle.Join(s.ctx, c, model.JoinLobbyPayload{
		PlayerID:   model.PlayerID(playerID),
		PlayerName: playerName,
		LobbyCode:  "ABC123",
	}))
}

func (s *LifecycleTestSuite) TestJoinDeliversWelcomeAndRoster() {
	c1 := NewClient("conn1")
	s.join(c1, "p1", "Alice")

	welcome := s.recvNotice(c1)
	s.Equal("Scrumdeck Bot", welcome.Sender)
	s.Contains(welcome.Text, "Welcome to lobby ABC123, Alice")
	s.Equal(s.clock.Now(), welcome.Timestamp)

	roster := s.recvRoster(c1)
	s.Equal(model.LobbyCode("ABC123"), roster.LobbyCode)
	s.Require().Len(roster.Players, 1)
	s.Equal(model.PlayerID("p1"), roster.Players[0].PlayerID)
	s.Equal("Alice", roster.Players[0].PlayerName)
}

func (s *LifecycleTestSuite) TestSecondJoinNotifiesExistingMembers() {
	c1 := NewClient("conn1")
	s.join(c1, "p1", "Alice")
	s.recvNotice(c1)
	s.recvRoster(c1)

	c2 := NewClient("conn2")
	s.join(c2, "p2", "Bob")

	// Existing member sees the arrival notice then the new roster
	notice := s.recvNotice(c1)
	s.Contains(notice.Text, "Bob has joined")

	roster := s.recvRoster(c1)
	s.Require().Len(roster.Players, 2)
	s.Equal(model.PlayerID("p1"), roster.Players[0].PlayerID)
	s.Equal(model.PlayerID("p2"), roster.Players[1].PlayerID)

	// Joiner gets its own welcome, not the arrival notice
	welcome := s.recvNotice(c2)
	s.Contains(welcome.Text, "Welcome to lobby ABC123, Bob")
	s.recvRoster(c2)
}

func (s *LifecycleTestSuite) TestJoinMissingFieldIsRejected() {
	c1 := NewClient("conn1")
	err := s.lifecycle.Join(s.ctx, c1, model.JoinLobbyPayload{
		PlayerID:  "p1",
		LobbyCode: "ABC123",
	})
	s.ErrorIs(err, model.ErrMalformedJoin)
	s.Equal(0, s.registry.Len())
	s.Nil(s.hubs.GetHub("ABC123"))
}

func (s *LifecycleTestSuite) TestJoinUnknownLobbyIsRejected() {
	c1 := NewClient("conn1")
	err := s.lifecycle.Join(s.ctx, c1, model.JoinLobbyPayload{
		PlayerID:   "p1",
		PlayerName: "Alice",
		LobbyCode:  "NOPE99",
	})
	s.ErrorIs(err, model.ErrLobbyNotFound)
	s.Equal(0, s.registry.Len())
}

func (s *LifecycleTestSuite) TestJoinInactiveLobbyIsRejected() {
	s.Require().NoError(s.store.SaveLobby(s.ctx, &model.Lobby{
		Code:   "GONE01",
		Active: false,
	}))

	c1 := NewClient("conn1")
	err := s.lifecycle.Join(s.ctx, c1, model.JoinLobbyPayload{
		PlayerID:   "p1",
		PlayerName: "Alice",
		LobbyCode:  "GONE01",
	})
	s.ErrorIs(err, model.ErrLobbyNotFound)
	s.Equal(0, s.registry.Len())
}

func (s *LifecycleTestSuite) TestRejoinEvictsOldConnection() {
	c1 := NewClient("conn1")
	s.join(c1, "p1", "Alice")
	s.recvNotice(c1)
	s.recvRoster(c1)

	c2 := NewClient("conn2")
	s.join(c2, "p1", "Alice")

	// The replaced connection's outbox is closed once any in-flight
	// frames drain
	deadline := time.After(time.Second)
	for open := true; open; {
		select {
		case _, ok := <-c1.Outbox():
			open = ok
		case <-deadline:
			s.T().Fatal("old connection outbox never closed")
		}
	}

	sess, ok := s.registry.FindByPlayer("p1")
	s.Require().True(ok)
	s.Equal(model.ConnectionID("conn2"), sess.ConnectionID)
	s.Equal(1, s.registry.Len())

	// Same-lobby rejoin keeps the lobby's hub alive
	s.NotNil(s.hubs.GetHub("ABC123"))

	s.recvNotice(c2)
	roster := s.recvRoster(c2)
	s.Require().Len(roster.Players, 1)
}

func (s *LifecycleTestSuite) TestRejoinIntoAnotherLobbyRetiresOldHub() {
	s.Require().NoError(s.store.SaveLobby(s.ctx, &model.Lobby{
		Code:      "XYZ789",
		Active:    true,
		CreatedAt: s.clock.Now(),
		UpdatedAt: s.clock.Now(),
	}))

	c1 := NewClient("conn1")
	s.join(c1, "p1", "Alice")
	s.recvNotice(c1)
	s.recvRoster(c1)

	c2 := NewClient("conn2")
	s.Require().NoError(s.lifecycle.Join(s.ctx, c2, model.JoinLobbyPayload{
		PlayerID:   "p1",
		PlayerName: "Alice",
		LobbyCode:  "XYZ789",
	}))

	// The eviction emptied the old lobby; its hub goes with it
	s.Equal(0, s.registry.CountByLobby("ABC123"))
	s.Nil(s.hubs.GetHub("ABC123"))
	s.NotNil(s.hubs.GetHub("XYZ789"))

	// The evicted connection is torn down
	deadline := time.After(time.Second)
	for open := true; open; {
		select {
		case _, ok := <-c1.Outbox():
			open = ok
		case <-deadline:
			s.T().Fatal("old connection outbox never closed")
		}
	}

	s.recvNotice(c2)
	roster := s.recvRoster(c2)
	s.Require().Len(roster.Players, 1)
	s.Equal(model.LobbyCode("XYZ789"), roster.LobbyCode)
}

func (s *LifecycleTestSuite) TestJoinAfterLastDisconnectGetsFreshHub() {
	c1 := NewClient("conn1")
	s.join(c1, "p1", "Alice")
	s.recvNotice(c1)
	s.recvRoster(c1)

	s.lifecycle.Disconnect("conn1")
	s.Require().Nil(s.hubs.GetHub("ABC123"))

	c2 := NewClient("conn2")
	s.join(c2, "p1", "Alice")

	s.recvNotice(c2)
	roster := s.recvRoster(c2)
	s.Require().Len(roster.Players, 1)
	s.Equal(model.PlayerID("p1"), roster.Players[0].PlayerID)
}

func (s *LifecycleTestSuite) TestDisconnectNotifiesRemainingMembers() {
	c1 := NewClient("conn1")
	s.join(c1, "p1", "Alice")
	s.recvNotice(c1)
	s.recvRoster(c1)

	c2 := NewClient("conn2")
	s.join(c2, "p2", "Bob")
	s.recvNotice(c1)
	s.recvRoster(c1)
	s.recvNotice(c2)
	s.recvRoster(c2)

	s.lifecycle.Disconnect("conn2")

	notice := s.recvNotice(c1)
	s.Contains(notice.Text, "Bob has left")

	roster := s.recvRoster(c1)
	s.Require().Len(roster.Players, 1)
	s.Equal(model.PlayerID("p1"), roster.Players[0].PlayerID)
}

func (s *LifecycleTestSuite) TestLastDisconnectRemovesHub() {
	c1 := NewClient("conn1")
	s.join(c1, "p1", "Alice")
	s.recvNotice(c1)
	s.recvRoster(c1)

	s.lifecycle.Disconnect("conn1")

	s.Equal(0, s.registry.Len())
	s.Nil(s.hubs.GetHub("ABC123"))
}

func (s *LifecycleTestSuite) TestDisconnectUnknownConnectionIsNoop() {
	c1 := NewClient("conn1")
	s.join(c1, "p1", "Alice")
	s.recvNotice(c1)
	s.recvRoster(c1)

	s.lifecycle.Disconnect("never-joined")

	s.Equal(1, s.registry.Len())
	s.NotNil(s.hubs.GetHub("ABC123"))
}

func TestLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(LifecycleTestSuite))
}
