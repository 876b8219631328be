package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/paintergame/internal/api/apierr"
	"github.com/mcoot/paintergame/internal/api/handler"
	"github.com/mcoot/paintergame/internal/middleware"
	"github.com/mcoot/paintergame/internal/services/lobby"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	Sessions        handler.Counter
	LobbyController lobby.ControllerInterface
	Words           handler.WordPool
	WebSocket       http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	lobbyHandler := handler.NewLobbyHandler(cfg.LobbyController)
	healthHandler := handler.NewHealthHandler(cfg.Sessions, cfg.LobbyController, cfg.Words)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, apiPanicHandler)

	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)

	// Game connections
	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/lobbies", lobbyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/lobbies/{id}", lobbyHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/lobbies/{id}/results", lobbyHandler.Results).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(notFound)
	return r
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}

func notFound(w http.ResponseWriter, r *http.Request) {
	apierr.WriteError(w, apierr.NewNotFoundError("No route for "+r.URL.Path))
}
