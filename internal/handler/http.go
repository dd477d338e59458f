package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/progression-hub/internal/config"
	"github.com/progression-hub/internal/domain"
	"github.com/progression-hub/internal/linking"
	"github.com/progression-hub/internal/service"
	"github.com/progression-hub/internal/websocket"
)

// maxBatchEvents bounds a single batch request
const maxBatchEvents = 1000

// Pinger is a backend checked by the readiness check
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// Handler provides HTTP handlers for the progression API
type Handler struct {
	service  *service.PlayerService
	hub      *websocket.Hub
	cors     config.CORSConfig
	trusted  []netip.Prefix
	backends []Pinger
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	service *service.PlayerService,
	hub *websocket.Hub,
	corsCfg config.CORSConfig,
	trustedProxies []netip.Prefix,
	logger *slog.Logger,
	backends ...Pinger,
) *Handler {
	return &Handler{
		service:  service,
		hub:      hub,
		cors:     corsCfg,
		trusted:  trustedProxies,
		backends: backends,
		logger:   logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// BatchRequest carries several plugin events
type BatchRequest struct {
	Events []domain.Event `json:"events"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(capturePeer)
	r.Use(h.trustedRealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		// Plugin ingestion
		r.Post("/player-action", h.PlayerAction)
		r.Post("/player-actions/batch", h.PlayerActionBatch)
		r.Post("/coin-transfer", h.CoinTransfer)

		// Account linking
		r.Post("/generate-link-code", h.GenerateLinkCode)
		r.Post("/verify-code", h.VerifyCode)

		r.Route("/player", func(r chi.Router) {
			r.Get("/profile/{playerID}", h.GetProfile)
			r.Get("/coins/{playerID}", h.GetCoins)
			r.Get("/level/{playerID}", h.GetLevel)
			r.Get("/stats/{playerID}", h.GetStats)
			r.Get("/by-discord/{discordID}", h.GetByDiscord)
		})

		r.Get("/leaderboard/{category}", h.GetLeaderboard)
		r.Get("/players/online", h.GetOnline)
		r.Get("/players/online-detailed", h.GetOnlineDetailed)
		r.Get("/discord-links", h.GetDiscordLinks)
		r.Get("/server-stats", h.GetServerStats)

		// Maintenance
		r.Post("/clean-duplicates", h.CleanDuplicates)
		r.Post("/clear-test-data", h.ClearTestData)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return h.corsHandler().Handler(r)
}

func (h *Handler) corsHandler() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   h.cors.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: h.cors.AllowCredentials,
		MaxAge:           h.cors.MaxAge,
	})
}

type contextKey int

const peerAddrKey contextKey = iota

// capturePeer keeps the socket peer address before any header rewrite
func capturePeer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerAddrKey, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// trustedRealIP applies middleware.RealIP only to requests relayed by a trusted proxy
func (h *Handler) trustedRealIP(next http.Handler) http.Handler {
	realIP := middleware.RealIP(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.isTrusted(r.RemoteAddr) {
			realIP.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isTrusted reports whether addr, with or without a port, is a configured proxy
func (h *Handler) isTrusted(addr string) bool {
	if len(h.trusted) == 0 {
		return false
	}
	var ip netip.Addr
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		ip = ap.Addr()
	} else if ip, err = netip.ParseAddr(addr); err != nil {
		return false
	}
	ip = ip.Unmap()
	for _, prefix := range h.trusted {
		if prefix.Contains(ip) {
			return true
		}
	}
	return false
}

// guardClient returns the address failed redemptions are counted against. Forwarding
// headers count only when the socket peer is a trusted proxy; the right-most
// X-Forwarded-For hop that is not itself a trusted proxy is the client.
func (h *Handler) guardClient(r *http.Request) string {
	peer, _ := r.Context().Value(peerAddrKey).(string)
	if peer == "" {
		peer = r.RemoteAddr
	}
	if !h.isTrusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop != "" && !h.isTrusted(hop) {
			return hop
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" && !h.isTrusted(realIP) {
		return realIP
	}
	return peer
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

// writeServiceError maps a service error onto a status code. Unexpected errors
// are logged and hidden behind ErrInternalError.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case domain.IsClientError(err):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrTemporarilyBanned):
		h.writeError(w, http.StatusForbidden, err)
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// decode reads a JSON body into v, answering 400 on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.InvalidInput("malformed JSON body"))
		return false
	}
	return true
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.cors.AllowedOrigins, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"totalConnections": h.hub.GetTotalConnections(),
		"activeTopics":     h.hub.GetTopicCount(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck pings every configured backend
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.backends))
	ready := true
	for _, b := range h.backends {
		if err := b.Ping(ctx); err != nil {
			h.logger.Warn("backend not ready", "backend", b.Name(), "error", err)
			checks[b.Name()] = err.Error()
			ready = false
			continue
		}
		checks[b.Name()] = "ok"
	}

	if !ready {
		h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    map[string]interface{}{"status": "not ready", "backends": checks},
			Error:   domain.ErrUnavailable.Error(),
		})
		return
	}
	h.writeSuccess(w, map[string]interface{}{"status": "ready", "backends": checks})
}

// PlayerAction ingests one plugin event
func (h *Handler) PlayerAction(w http.ResponseWriter, r *http.Request) {
	var ev domain.Event
	if !h.decode(w, r, &ev) {
		return
	}

	if _, err := h.service.HandleEvent(r.Context(), ev); err != nil {
		h.writeServiceError(w, "player action", err)
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"status": "processed",
		"action": ev.Action,
	})
}

// PlayerActionBatch ingests several plugin events in order
func (h *Handler) PlayerActionBatch(w http.ResponseWriter, r *http.Request) {
	var batch BatchRequest
	if !h.decode(w, r, &batch) {
		return
	}
	if len(batch.Events) == 0 {
		h.writeError(w, http.StatusBadRequest, domain.InvalidInput("events must not be empty"))
		return
	}
	if len(batch.Events) > maxBatchEvents {
		h.writeError(w, http.StatusBadRequest, domain.InvalidInput("at most %d events per batch", maxBatchEvents))
		return
	}

	h.writeSuccess(w, h.service.HandleEventBatch(r.Context(), batch.Events))
}

// CoinTransfer moves coins between two players
func (h *Handler) CoinTransfer(w http.ResponseWriter, r *http.Request) {
	var req service.TransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.Transfer(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "coin transfer", err)
		return
	}
	h.writeSuccess(w, res)
}

// GenerateLinkCode issues a one-time link code for a Discord identity
func (h *Handler) GenerateLinkCode(w http.ResponseWriter, r *http.Request) {
	var id linking.Identity
	if !h.decode(w, r, &id) {
		return
	}

	code, err := h.service.IssueLinkCode(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "generate link code", err)
		return
	}
	h.writeSuccess(w, code)
}

// VerifyCode redeems a link code typed in game
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req service.RedeemRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Client = h.guardClient(r)

	res, err := h.service.RedeemCode(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "verify code", err)
		return
	}
	h.writeSuccess(w, res)
}

// GetProfile returns a player's profile card
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetProfile(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		h.writeServiceError(w, "get profile", err)
		return
	}
	h.writeSuccess(w, profile)
}

// GetCoins returns a player's balance
func (h *Handler) GetCoins(w http.ResponseWriter, r *http.Request) {
	coins, err := h.service.GetCoins(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		h.writeServiceError(w, "get coins", err)
		return
	}
	h.writeSuccess(w, coins)
}

// GetLevel returns a player's level progress
func (h *Handler) GetLevel(w http.ResponseWriter, r *http.Request) {
	level, err := h.service.GetLevel(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		h.writeServiceError(w, "get level", err)
		return
	}
	h.writeSuccess(w, level)
}

// GetStats returns a player's combat statistics
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		h.writeServiceError(w, "get stats", err)
		return
	}
	h.writeSuccess(w, stats)
}

// GetByDiscord finds the player linked to a Discord account
func (h *Handler) GetByDiscord(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.FindByDiscord(r.Context(), chi.URLParam(r, "discordID"))
	if err != nil {
		h.writeServiceError(w, "get by discord", err)
		return
	}
	h.writeSuccess(w, link)
}

// GetLeaderboard ranks players by a category
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	lb, err := h.service.GetLeaderboard(r.Context(), chi.URLParam(r, "category"), limit)
	if err != nil {
		h.writeServiceError(w, "get leaderboard", err)
		return
	}
	h.writeSuccess(w, lb)
}

// GetOnline lists recently active players
func (h *Handler) GetOnline(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.service.GetOnlineSummary(r.Context()))
}

// GetOnlineDetailed lists recently active players with progression
func (h *Handler) GetOnlineDetailed(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.service.GetOnlineDetailed(r.Context()))
}

// GetDiscordLinks lists every linked player
func (h *Handler) GetDiscordLinks(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.service.ListLinks(r.Context()))
}

// GetServerStats returns player totals
func (h *Handler) GetServerStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.service.GetServerStats(r.Context()))
}

// CleanDuplicates removes records sharing a display name
func (h *Handler) CleanDuplicates(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.service.CleanDuplicates(r.Context()))
}

// ClearTestData purges test records
func (h *Handler) ClearTestData(w http.ResponseWriter, r *http.Request) {
	var req service.PurgeRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.ClearTestData(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "clear test data", err)
		return
	}
	h.writeSuccess(w, res)
}
