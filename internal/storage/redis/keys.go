package redis

import (
	"fmt"

	"github.com/mcoot/paintergame/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "painter"

// displayNameKey returns the Redis key holding the session that claimed a display name
func displayNameKey(name string) string {
	return fmt.Sprintf("%s:name:%s", keyPrefix, name)
}

// lobbyKey returns the Redis key for a LobbySummary
func lobbyKey(id model.LobbyID) string {
	return fmt.Sprintf("%s:lobby:%s", keyPrefix, id)
}

// lobbiesIndexKey returns the Redis key for the SET of known lobby keys
func lobbiesIndexKey() string {
	return fmt.Sprintf("%s:idx:lobbies", keyPrefix)
}

// resultsKey returns the Redis key for the LIST of results of a lobby
func resultsKey(id model.LobbyID) string {
	return fmt.Sprintf("%s:results:%s", keyPrefix, id)
}

// wordPoolKey returns the Redis key for the word pool LIST
func wordPoolKey() string {
	return fmt.Sprintf("%s:words", keyPrefix)
}
