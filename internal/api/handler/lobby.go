package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scrumdeck/scrumdeck/internal/api/middleware"
	"github.com/scrumdeck/scrumdeck/internal/api/request"
	"github.com/scrumdeck/scrumdeck/internal/api/response"
	"github.com/scrumdeck/scrumdeck/internal/model"
	"github.com/scrumdeck/scrumdeck/internal/services/lobby"
)

// LobbyHandler handles lobby-related endpoints
type LobbyHandler struct {
	lobbyController *lobby.Controller
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(lobbyController *lobby.Controller) *LobbyHandler {
	return &LobbyHandler{
		lobbyController: lobbyController,
	}
}

// Create handles POST /api/v1/lobbies
func (h *LobbyHandler) Create(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.CreateLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		// Empty body means a generated code
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	created, err := h.lobbyController.CreateLobby(r.Context(), model.LobbyCode(req.Code), player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.LobbyFromModel(created))
}

// List handles GET /api/v1/lobbies
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	lobbies, err := h.lobbyController.ListLobbies(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyListFromModel(lobbies))
}

// Get handles GET /api/v1/lobbies/{code}
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := model.LobbyCode(mux.Vars(r)["code"])

	found, err := h.lobbyController.GetLobby(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyFromModel(found))
}

// Delete handles DELETE /api/v1/lobbies/{code}
func (h *LobbyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	if err := h.lobbyController.DeleteLobby(r.Context(), code, player.ID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Enter handles POST /api/v1/lobbies/{code}/enter
func (h *LobbyHandler) Enter(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	entered, err := h.lobbyController.EnterLobby(r.Context(), code, player.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyFromModel(entered))
}

// Leave handles POST /api/v1/lobbies/{code}/leave
func (h *LobbyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	if err := h.lobbyController.LeaveLobby(r.Context(), code, player.ID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// AddAdmin handles PUT /api/v1/lobbies/{code}/admins
func (h *LobbyHandler) AddAdmin(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	code := model.LobbyCode(mux.Vars(r)["code"])

	var req request.AddAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.PlayerID == "" {
		WriteError(w, NewInvalidRequestError("player_id is required"))
		return
	}

	updated, err := h.lobbyController.AddAdmin(r.Context(), code, player.ID, model.PlayerID(req.PlayerID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyFromModel(updated))
}

// RemoveAdmin handles DELETE /api/v1/lobbies/{code}/admins/{player_id}
func (h *LobbyHandler) RemoveAdmin(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	vars := mux.Vars(r)
	code := model.LobbyCode(vars["code"])
	target := model.PlayerID(vars["player_id"])

	updated, err := h.lobbyController.RemoveAdmin(r.Context(), code, player.ID, target)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LobbyFromModel(updated))
}
