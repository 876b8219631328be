package redis

import (
	"time"

	"github.com/mcoot/paintergame/internal/storage"
)

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// NameClaimTTL bounds how long a display name stays claimed without a refresh.
	// Live sessions refresh their claim on every keep-alive, so it must exceed the pong wait.
	NameClaimTTL time.Duration
	LobbyTTL     time.Duration
	ResultTTL    time.Duration

	// MaxResults caps the stored results per lobby
	MaxResults int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		NameClaimTTL: 5 * time.Minute,
		LobbyTTL:     24 * time.Hour,
		ResultTTL:    7 * 24 * time.Hour,
		MaxResults:   storage.DefaultMaxResults,
	}
}
