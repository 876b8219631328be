package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/paintergame/internal/api/apierr"
	"github.com/mcoot/paintergame/internal/api/response"
	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/services/lobby"
)

// LobbyHandler serves the read-only lobby directory
type LobbyHandler struct {
	lobbyController lobby.ControllerInterface
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(lobbyController lobby.ControllerInterface) *LobbyHandler {
	return &LobbyHandler{lobbyController: lobbyController}
}

// List handles GET /api/v1/lobbies
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.lobbyController.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.LobbyListFromModel(summaries))
}

// Get handles GET /api/v1/lobbies/{id}
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := lobbyID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	summary, err := h.lobbyController.Summary(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.LobbyFromModel(summary))
}

// Results handles GET /api/v1/lobbies/{id}/results
func (h *LobbyHandler) Results(w http.ResponseWriter, r *http.Request) {
	id, err := lobbyID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	results, err := h.lobbyController.Results(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.GameResults{
		LobbyID: string(id),
		Results: make([]response.GameResult, len(results)),
	}
	for i, res := range results {
		resp.Results[i] = response.GameResultFromModel(res)
	}
	response.JSON(w, http.StatusOK, resp)
}

// lobbyID reads the {id} path variable; codes are case-insensitive
func lobbyID(r *http.Request) (model.LobbyID, error) {
	id := strings.ToUpper(mux.Vars(r)["id"])
	if len(id) != lobby.LobbyCodeLength || strings.Trim(id, lobby.LobbyCodeAlphabet) != "" {
		return "", apierr.NewInvalidRequestError("Malformed lobby ID")
	}
	return model.LobbyID(id), nil
}
