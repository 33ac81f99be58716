package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/scrumdeck/scrumdeck/internal/dependencies/mocks"
	"github.com/scrumdeck/scrumdeck/internal/model"
	"github.com/scrumdeck/scrumdeck/internal/testutil"
)

type RouterTestSuite struct {
	suite.Suite
	clock    *mocks.MockClock
	registry *Registry
	hubs     *HubManager
	router   *Router
}

func (s *RouterTestSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s.registry = NewRegistry()
	s.hubs = NewHubManager(testutil.NopLogger())
	s.router = NewRouter(s.registry, s.hubs, s.clock, testutil.NopLogger())
}

func (s *RouterTestSuite) TearDownTest() {
	s.hubs.Shutdown()
}

// attach registers a session and subscribes its client to the lobby hub
func (s *RouterTestSuite) attach(connID, playerID string, lobby model.LobbyCode) *Client {
	s.T().Helper()
	_, err := s.registry.Register(model.PlayerSession{
		ConnectionID: model.ConnectionID(connID),
		PlayerID:     model.PlayerID(playerID),
		PlayerName:   playerID,
		LobbyCode:    lobby,
		JoinedAt:     s.clock.Now(),
	})
	s.Require().NoError(err)

	c := NewClient(model.ConnectionID(connID))
	s.hubs.Subscribe(lobby, c)
	return c
}

func (s *RouterTestSuite) recvEvent(c *Client) model.Envelope {
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

func (s *RouterTestSuite) assertIdle(c *Client) {
	s.T().Helper()
	select {
	case data := <-c.Outbox():
		s.T().Fatalf("unexpected frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *RouterTestSuite) TestChatByPlayerReachesSendersLobby() {
	c1 := s.attach("conn1", "p1", "ABC123")
	c2 := s.attach("conn2", "p2", "ABC123")

	s.Require().NoError(s.router.RouteChatByPlayer("p1", model.ChatMessagePayload{Text: "hello"}))

	for _, c := range []*Client{c1, c2} {
		env := s.recvEvent(c)
		s.Equal(model.EventChatMessage, env.Type)
		var payload model.ChatBroadcastPayload
		s.Require().NoError(json.Unmarshal(env.Payload, &payload))
		s.Equal(model.PlayerID("p1"), payload.SenderID)
		s.Equal("hello", payload.Text)
		s.Equal(s.clock.Now(), payload.Timestamp)
	}
}

func (s *RouterTestSuite) TestCardByPlayerEchoesCardWithSender() {
	c1 := s.attach("conn1", "p1", "ABC123")

	s.Require().NoError(s.router.RouteCardByPlayer("p1", model.CardMessagePayload{
		CardChosen: json.RawMessage(`{"value":8}`),
	}))

	env := s.recvEvent(c1)
	s.Equal(model.EventCardMessage, env.Type)
	var payload model.CardBroadcastPayload
	s.Require().NoError(json.Unmarshal(env.Payload, &payload))
	s.Equal(model.PlayerID("p1"), payload.SenderID)
	s.Equal(model.LobbyCode("ABC123"), payload.LobbyCode)
	s.JSONEq(`{"value":8}`, string(payload.CardChosen))
}

func (s *RouterTestSuite) TestByPlayerResolvesCurrentConnectionAfterRejoin() {
	c1 := s.attach("conn1", "p1", "ABC123")

	// Rejoin under a new connection in another lobby
	evicted, err := s.registry.Register(model.PlayerSession{
		ConnectionID: "conn2",
		PlayerID:     "p1",
		PlayerName:   "p1",
		LobbyCode:    "XYZ789",
		JoinedAt:     s.clock.Now(),
	})
	s.Require().NoError(err)
	s.Require().NotNil(evicted)
	c2 := NewClient("conn2")
	s.hubs.Subscribe("XYZ789", c2)

	s.Require().NoError(s.router.RouteChatByPlayer("p1", model.ChatMessagePayload{Text: "moved"}))

	s.Equal(model.EventChatMessage, s.recvEvent(c2).Type)
	s.assertIdle(c1)
}

func (s *RouterTestSuite) TestUnknownPlayerIsDropped() {
	c1 := s.attach("conn1", "p1", "ABC123")

	err := s.router.RouteChatByPlayer("ghost", model.ChatMessagePayload{Text: "boo"})
	s.ErrorIs(err, model.ErrUnknownSender)
	s.assertIdle(c1)

	err = s.router.RouteAdminActionByPlayer("ghost", model.AdminActionPayload{Action: "show-cards"})
	s.ErrorIs(err, model.ErrUnknownSender)

	err = s.router.RouteSequenceChangeByPlayer("ghost", model.SequenceChangePayload{
		Sequence: json.RawMessage(`[1,2,3]`),
	})
	s.ErrorIs(err, model.ErrUnknownSender)

	err = s.router.RouteCardByPlayer("ghost", model.CardMessagePayload{
		CardChosen: json.RawMessage(`{"value":1}`),
	})
	s.ErrorIs(err, model.ErrUnknownSender)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
