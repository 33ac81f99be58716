package redis

import (
	"fmt"

	"github.com/scrumdeck/scrumdeck/internal/model"
)

// Key prefix for all scrumdeck data
const keyPrefix = "scrumdeck"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// registeredPlayerKey returns the Redis key for a RegisteredPlayer
func registeredPlayerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// lobbyKey returns the Redis key for a Lobby
func lobbyKey(code model.LobbyCode) string {
	return fmt.Sprintf("%s:lobby:%s", keyPrefix, code)
}

// activeLobbiesKey returns the Redis key for the SET of active lobby codes
func activeLobbiesKey() string {
	return fmt.Sprintf("%s:idx:active_lobbies", keyPrefix)
}
