package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/paintergame/internal/dependencies/clock"
	"github.com/mcoot/paintergame/internal/dependencies/random"
	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/services/dictionary"
	"github.com/mcoot/paintergame/internal/services/session"
	"github.com/mcoot/paintergame/internal/storage"
)

const (
	// LobbyCodeLength is the length of generated lobby codes
	LobbyCodeLength = 6
	// LobbyCodeAlphabet excludes confusable characters (0, O, 1, I)
	LobbyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxCodeAttempts = 100
)

// ErrCodeSpaceExhausted is returned when no free lobby code could be found
var ErrCodeSpaceExhausted = errors.New("could not allocate a lobby code")

// Config tunes the games lobbies run
type Config struct {
	MaxSampleAttempts int
}

// Controller owns every live lobby in the process
type Controller struct {
	storage    storage.Storage
	dictionary dictionary.ServiceInterface
	clock      clock.Clock
	random     random.Random
	logger     *slog.Logger
	config     Config

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	lobbies map[model.LobbyID]*Lobby
}

// NewController creates a new lobby Controller
func NewController(
	storage storage.Storage,
	dictionary dictionary.ServiceInterface,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	config Config,
) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		storage:    storage,
		dictionary: dictionary,
		clock:      clock,
		random:     random,
		logger:     logger.With(slog.String("component", "lobby")),
		config:     config,
		ctx:        ctx,
		cancel:     cancel,
		lobbies:    make(map[model.LobbyID]*Lobby),
	}
}

// Create opens a new lobby owned by owner
func (c *Controller) Create(ctx context.Context, owner *session.Session) (*Lobby, error) {
	if owner.LobbyID() != "" {
		return nil, model.ErrAlreadyInLobby
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	l := newLobby(c.ctx, id, owner, deps{
		storage:           c.storage,
		clock:             c.clock,
		random:            c.random,
		logger:            c.logger,
		words:             c.dictionary.Words,
		maxSampleAttempts: c.config.MaxSampleAttempts,
		onEmpty:           c.remove,
	})
	c.lobbies[id] = l

	c.logger.Info("lobby created",
		slog.String("lobby_id", string(id)),
		slog.String("owner", string(owner.ID)),
	)
	return l, nil
}

// generateCode picks a code unused both locally and in storage. Caller holds mu.
func (c *Controller) generateCode(ctx context.Context) (model.LobbyID, error) {
	for range maxCodeAttempts {
		id := model.LobbyID(c.random.String(LobbyCodeLength, LobbyCodeAlphabet))
		if id == "" {
			continue
		}
		if _, taken := c.lobbies[id]; taken {
			continue
		}
		exists, err := c.storage.LobbyExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("checking lobby code: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Join adds sess to the lobby with the given code
func (c *Controller) Join(ctx context.Context, id model.LobbyID, sess *session.Session) (*Lobby, error) {
	if sess.LobbyID() != "" {
		return nil, model.ErrAlreadyInLobby
	}
	l, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if err := l.Join(ctx, sess); err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns a live lobby
func (c *Controller) Get(id model.LobbyID) (*Lobby, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lobbies[id]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return l, nil
}

// Count returns the number of live lobbies
func (c *Controller) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lobbies)
}

// List returns the lobby directory
func (c *Controller) List(ctx context.Context) ([]*model.LobbySummary, error) {
	return c.storage.ListLobbySummaries(ctx)
}

// Summary returns the directory entry of one lobby
func (c *Controller) Summary(ctx context.Context, id model.LobbyID) (*model.LobbySummary, error) {
	return c.storage.GetLobbySummary(ctx, id)
}

// Results returns the finished games of a lobby
func (c *Controller) Results(ctx context.Context, id model.LobbyID) ([]*model.GameResult, error) {
	return c.storage.GetGameResults(ctx, id)
}

// Shutdown stops every lobby and forgets their directory entries
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	lobbies := make([]*Lobby, 0, len(c.lobbies))
	for _, l := range c.lobbies {
		lobbies = append(lobbies, l)
	}
	c.lobbies = make(map[model.LobbyID]*Lobby)
	c.mu.Unlock()

	c.cancel()
	for _, l := range lobbies {
		<-l.Done()
		if err := c.storage.DeleteLobbySummary(ctx, l.ID()); err != nil {
			c.logger.Error("failed to delete lobby summary",
				slog.String("lobby_id", string(l.ID())),
				slog.String("error", err.Error()),
			)
		}
	}
	c.logger.Info("lobbies shut down", slog.Int("count", len(lobbies)))
}

// remove is called from a lobby's loop once it has emptied
func (c *Controller) remove(id model.LobbyID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lobbies, id)
}

// ControllerInterface is the lobby contract used by the dispatcher and API
type ControllerInterface interface {
	Create(ctx context.Context, owner *session.Session) (*Lobby, error)
	Join(ctx context.Context, id model.LobbyID, sess *session.Session) (*Lobby, error)
	Get(id model.LobbyID) (*Lobby, error)
	Count() int
	List(ctx context.Context) ([]*model.LobbySummary, error)
	Summary(ctx context.Context, id model.LobbyID) (*model.LobbySummary, error)
	Results(ctx context.Context, id model.LobbyID) ([]*model.GameResult, error)
	Shutdown(ctx context.Context)
}

var _ ControllerInterface = (*Controller)(nil)
