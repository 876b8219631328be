package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/paintergame/internal/api"
	"github.com/mcoot/paintergame/internal/config"
	"github.com/mcoot/paintergame/internal/dependencies/clock"
	"github.com/mcoot/paintergame/internal/dependencies/random"
	"github.com/mcoot/paintergame/internal/services/dictionary"
	"github.com/mcoot/paintergame/internal/services/dispatch"
	"github.com/mcoot/paintergame/internal/services/lobby"
	"github.com/mcoot/paintergame/internal/services/session"
	"github.com/mcoot/paintergame/internal/storage"
	"github.com/mcoot/paintergame/internal/storage/memory"
	redisstorage "github.com/mcoot/paintergame/internal/storage/redis"
	"github.com/mcoot/paintergame/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	DictionaryService *dictionary.Service
	SessionRegistry   *session.Registry
	LobbyController   *lobby.Controller
	Dispatcher        *dispatch.Dispatcher

	// Transport
	WebSocketHandler *ws.Handler
	Router           http.Handler

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// WordsPath is the word pool file (optional)
	// If empty, the pool cached in storage is used, falling back to the built-in pool
	WordsPath string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config

	HandshakeTimeout  time.Duration
	MaxSampleAttempts int
	WebSocket         ws.Config
}

// ConfigFromEnv maps the environment configuration onto a factory Config
func ConfigFromEnv(env config.Config, logger *slog.Logger) Config {
	cfg := Config{
		WordsPath:         env.WordsPath,
		Logger:            logger,
		StorageType:       env.StorageType,
		HandshakeTimeout:  env.HandshakeTimeout,
		MaxSampleAttempts: env.MaxWordSampleAttempts,
		WebSocket:         ws.DefaultConfig(),
	}
	cfg.WebSocket.InboundRate = env.InboundRate
	cfg.WebSocket.InboundBurst = env.InboundBurst

	if env.StorageType == StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = env.RedisURL
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *App {
	dictService := dictionary.New(store)
	registry := session.NewRegistry(store, clk, rnd, logger, cfg.HandshakeTimeout)
	lobbyController := lobby.NewController(store, dictService, clk, rnd, logger, lobby.Config{
		MaxSampleAttempts: cfg.MaxSampleAttempts,
	})
	dispatcher := dispatch.New(registry, lobbyController, logger)
	wsHandler := ws.NewHandler(dispatcher, cfg.WebSocket, logger)

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		Sessions:        registry,
		LobbyController: lobbyController,
		Words:           dictService,
		WebSocket:       wsHandler,
	})

	return &App{
		Storage:           store,
		Clock:             clk,
		Random:            rnd,
		DictionaryService: dictService,
		SessionRegistry:   registry,
		LobbyController:   lobbyController,
		Dispatcher:        dispatcher,
		WebSocketHandler:  wsHandler,
		Router:            router,
		logger:            logger,
	}
}

// LoadDictionary fills the word pool from path, or from storage and then the built-in pool when path is empty
func (a *App) LoadDictionary(ctx context.Context, path string) error {
	if path != "" {
		if err := a.DictionaryService.LoadFromFile(ctx, path); err != nil {
			return fmt.Errorf("load word pool %s: %w", path, err)
		}
		return nil
	}

	err := a.DictionaryService.LoadFromStorage(ctx)
	if err == nil {
		return nil
	}
	a.logger.Info("no cached word pool, using built-in words", slog.String("error", err.Error()))
	return a.DictionaryService.LoadDefault(ctx)
}

// Logger returns the application logger
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Shutdown stops every lobby, closes every live session so its display name is released,
// then releases the storage backend. WebSocket connections are hijacked, so the HTTP server does not close them.
func (a *App) Shutdown(ctx context.Context) error {
	a.LobbyController.Shutdown(ctx)
	a.SessionRegistry.Shutdown(ctx)
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
