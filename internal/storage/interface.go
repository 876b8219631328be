package storage

import (
	"context"

	"github.com/mcoot/paintergame/internal/model"
)

// DefaultMaxResults is how many finished games are kept per lobby
const DefaultMaxResults = 20

// Storage defines the interface for data persistence
type Storage interface {
	// Display name claims
	ClaimDisplayName(ctx context.Context, name string, owner model.SessionID) (bool, error)
	ReleaseDisplayName(ctx context.Context, name string, owner model.SessionID) error
	RefreshDisplayName(ctx context.Context, name string, owner model.SessionID) (bool, error)

	// Lobby directory operations
	SaveLobbySummary(ctx context.Context, summary *model.LobbySummary) error
	GetLobbySummary(ctx context.Context, id model.LobbyID) (*model.LobbySummary, error)
	ListLobbySummaries(ctx context.Context) ([]*model.LobbySummary, error)
	DeleteLobbySummary(ctx context.Context, id model.LobbyID) error
	LobbyExists(ctx context.Context, id model.LobbyID) (bool, error)

	// Game result operations
	AppendGameResult(ctx context.Context, result *model.GameResult) error
	GetGameResults(ctx context.Context, id model.LobbyID) ([]*model.GameResult, error)

	// Word pool operations
	GetWordPool(ctx context.Context) ([]string, error)
	SaveWordPool(ctx context.Context, words []string) error
}
