package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/game-invites/internal/auth"
	"github.com/game-invites/internal/domain"
	"github.com/game-invites/internal/service"
	"github.com/game-invites/internal/websocket"
)

// Handler provides HTTP handlers for the invite API
type Handler struct {
	invites  *service.InviteService
	players  *service.PlayerService
	sessions *service.SessionService
	servers  *service.ServerService
	registry *websocket.Registry
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	invites *service.InviteService,
	players *service.PlayerService,
	sessions *service.SessionService,
	servers *service.ServerService,
	registry *websocket.Registry,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		invites:  invites,
		players:  players,
		sessions: sessions,
		servers:  servers,
		registry: registry,
		tokens:   tokens,
		logger:   logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint (authenticates before upgrading)
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Game-server facing endpoints, no player token
		r.Route("/servers", func(r chi.Router) {
			r.Post("/register", h.RegisterServer)
			r.Post("/heartbeat", h.ServerHeartbeat)
			r.Post("/occupancy", h.ServerOccupancy)
		})

		// Maintenance sweep, callable without a token like the cron path
		r.Delete("/invites/expired", h.SweepInvites)

		// Player-authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(h.tokens.Middleware)

			r.Route("/invites", func(r chi.Router) {
				r.Post("/", h.SendInvite)
				r.Get("/pending", h.PendingInvites)
				r.Post("/respond", h.RespondInvite)
			})

			r.Route("/players", func(r chi.Router) {
				r.Post("/heartbeat", h.PlayerHeartbeat)
				r.Get("/", h.ListOnlinePlayers)
				r.Get("/lookup", h.LookupPlayer)
			})

			r.Post("/sessions", h.HostSession)
		})

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeServiceError maps domain sentinels to HTTP statuses
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrInvalidDecision):
		h.writeError(w, http.StatusBadRequest, err)
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case domain.IsConflictError(err):
		h.writeError(w, http.StatusConflict, err)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternal)
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// HandleWebSocket authenticates and upgrades a connection
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Verify(auth.FromRequest(r))
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
		return
	}
	websocket.ServeWS(h.registry, h.invites, h.players, claims, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.registry.Connections(),
	})
}

// SendInvite creates and delivers an invite over the polling path
func (h *Handler) SendInvite(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
		return
	}

	var req service.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	receipt, err := h.invites.Send(r.Context(), claims.PlayerID, claims.FullName(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidRequest:
			h.writeError(w, http.StatusBadRequest, err)
		case domain.ErrDuplicateInvite:
			h.writeError(w, http.StatusConflict, err)
		case domain.ErrReceiverUnavailable:
			h.writeError(w, http.StatusUnprocessableEntity, err)
		default:
			h.writeServiceError(w, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    receipt,
	})
}

// PendingInvites returns undelivered pending invites for the caller
func (h *Handler) PendingInvites(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
		return
	}

	pending, err := h.invites.CheckPending(r.Context(), claims.PlayerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"invitations": pending,
		"count":       len(pending),
	})
}

// RespondInvite settles an invite over the polling path
func (h *Handler) RespondInvite(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
		return
	}

	var req struct {
		InviteID int64  `json:"invite_id"`
		Response string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.invites.Respond(r.Context(), claims.PlayerID, req.InviteID, req.Response)
	if err != nil {
		switch err {
		case domain.ErrInvalidRequest, domain.ErrInvalidDecision:
			h.writeError(w, http.StatusBadRequest, err)
		case domain.ErrInviteNotActionable:
			h.writeError(w, http.StatusNotFound, err)
		default:
			h.writeServiceError(w, err)
		}
		return
	}

	h.writeSuccess(w, result)
}

// SweepInvites purges expired and settled invites
func (h *Handler) SweepInvites(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.invites.Cleanup(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"status":  "cleaned",
		"deleted": deleted,
	})
}

// PlayerHeartbeat records a liveness signal over the polling path
func (h *Handler) PlayerHeartbeat(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
		return
	}

	var req struct {
		GameOpen bool `json:"game_open"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return
		}
	}

	if err := h.players.Heartbeat(r.Context(), claims.PlayerID, req.GameOpen); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "ok"})
}

// ListOnlinePlayers returns online players other than the caller
func (h *Handler) ListOnlinePlayers(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
		return
	}

	players, err := h.players.ListOnline(r.Context(), claims.PlayerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeSuccess(w, players)
}

// LookupPlayer resolves a player by display name and tag
func (h *Handler) LookupPlayer(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("display_name")
	tag := r.URL.Query().Get("player_tag")
	if name == "" || tag == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	player, err := h.players.Lookup(r.Context(), name, tag)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeSuccess(w, player)
}

// HostSession allocates a server and creates a session for the caller
func (h *Handler) HostSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
		return
	}

	info, err := h.sessions.HostSession(r.Context(), claims.PlayerID)
	if err != nil {
		switch err {
		case domain.ErrServerUnavailable:
			h.writeError(w, http.StatusServiceUnavailable, err)
		default:
			h.writeServiceError(w, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    info,
	})
}

// RegisterServer registers a compute server
func (h *Handler) RegisterServer(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if req.Address == "" || req.Port <= 0 {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	serverID, err := h.servers.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    map[string]int64{"server_id": serverID},
	})
}

// ServerHeartbeat records a compute-server liveness signal
func (h *Handler) ServerHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServerID int64 `json:"server_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ServerID <= 0 {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.servers.ServerHeartbeat(r.Context(), req.ServerID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "ok"})
}

// ServerOccupancy records a compute-server player count report
func (h *Handler) ServerOccupancy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServerID       int64 `json:"server_id"`
		CurrentPlayers int   `json:"current_players"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ServerID <= 0 || req.CurrentPlayers < 0 {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.servers.ServerOccupancy(r.Context(), req.ServerID, req.CurrentPlayers); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "ok"})
}
