package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/scrumdeck/scrumdeck/internal/api/handler"
	"github.com/scrumdeck/scrumdeck/internal/api/middleware"
	basemiddleware "github.com/scrumdeck/scrumdeck/internal/middleware"
	"github.com/scrumdeck/scrumdeck/internal/realtime"
	"github.com/scrumdeck/scrumdeck/internal/services/auth"
	"github.com/scrumdeck/scrumdeck/internal/services/lobby"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AuthService     *auth.Service
	LobbyController *lobby.Controller
	RealtimeService *realtime.Service
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	lobbyHandler := handler.NewLobbyHandler(cfg.LobbyController)
	eventsHandler := handler.NewEventsHandler(cfg.RealtimeService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := basemiddleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)

	// Lobby routes (all require auth)
	lobbies := api.PathPrefix("/lobbies").Subrouter()
	lobbies.Use(authMiddleware)
	lobbies.HandleFunc("", lobbyHandler.Create).Methods(http.MethodPost)
	lobbies.HandleFunc("", lobbyHandler.List).Methods(http.MethodGet)
	lobbies.HandleFunc("/{code}", lobbyHandler.Get).Methods(http.MethodGet)
	lobbies.HandleFunc("/{code}", lobbyHandler.Delete).Methods(http.MethodDelete)
	lobbies.HandleFunc("/{code}/enter", lobbyHandler.Enter).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/leave", lobbyHandler.Leave).Methods(http.MethodPost)
	lobbies.HandleFunc("/{code}/admins", lobbyHandler.AddAdmin).Methods(http.MethodPut)
	lobbies.HandleFunc("/{code}/admins/{player_id}", lobbyHandler.RemoveAdmin).Methods(http.MethodDelete)

	// Realtime event stream (auth required; token may arrive via query
	// parameter for browser WebSocket clients)
	events := api.PathPrefix("/events").Subrouter()
	events.Use(authMiddleware)
	events.HandleFunc("", eventsHandler.Stream).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
