package handler

import (
	"net/http"

	"github.com/mcoot/paintergame/internal/api/response"
)

// Counter reports how many of something are live
type Counter interface {
	Count() int
}

// WordPool reports whether games can draw words
type WordPool interface {
	IsLoaded() bool
	WordCount() int
}

// HealthHandler reports liveness with session, lobby and word counts
type HealthHandler struct {
	sessions Counter
	lobbies  Counter
	words    WordPool
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sessions, lobbies Counter, words WordPool) *HealthHandler {
	return &HealthHandler{sessions: sessions, lobbies: lobbies, words: words}
}

// Get handles GET /api/v1/health; the status is degraded until a word pool is loaded
func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if !h.words.IsLoaded() {
		status = "degraded"
	}
	response.JSON(w, http.StatusOK, response.Health{
		Status:   status,
		Sessions: h.sessions.Count(),
		Lobbies:  h.lobbies.Count(),
		Words:    h.words.WordCount(),
	})
}
