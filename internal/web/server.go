package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/registry"
	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/state"
	"github.com/elys-network/autofarm/internal/types"
	"github.com/elys-network/autofarm/internal/vault"
)

var webLogger = logger.GetForComponent("web_server")

// EngineView is the read side of the engine served by the API.
type EngineView interface {
	UserEntry(user sdk.AccAddress) (registry.Entry, error)
	RegisteredUsers() ([]registry.Entry, error)
	AccumulatedFees() (rewards.Wrapper, error)
	Settings() (vault.Settings, error)
	FarmConfigs() ([]types.FarmConfig, error)
	MetastakingConfigs() ([]types.MetastakingConfig, error)
}

// HistoryReader serves stored keeper snapshots.
type HistoryReader interface {
	RecentSnapshots(limit int) ([]types.CompoundSnapshot, error)
	SnapshotsForUser(userAddress string, limit int) ([]types.CompoundSnapshot, error)
	FeeSummary() (*state.FeeSummary, error)
	Ping() error
}

// WebServer handles HTTP queries of engine state and keeper history.
type WebServer struct {
	router  *mux.Router
	handler http.Handler
	port    string
	engine  EngineView
	history HistoryReader
	server  *http.Server
	started time.Time
}

// NewWebServer creates a new web server instance. history may be nil when no database is configured.
func NewWebServer(port string, engine EngineView, history HistoryReader) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		engine:  engine,
		history: history,
		started: time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/settings", ws.handleGetSettings).Methods("GET")
	api.HandleFunc("/users", ws.handleGetUsers).Methods("GET")
	api.HandleFunc("/users/{address}", ws.handleGetUser).Methods("GET")
	api.HandleFunc("/fees", ws.handleGetFees).Methods("GET")
	api.HandleFunc("/farms", ws.handleGetFarms).Methods("GET")
	api.HandleFunc("/metastaking", ws.handleGetMetastaking).Methods("GET")
	api.HandleFunc("/compounds", ws.handleGetCompounds).Methods("GET")
	api.HandleFunc("/compounds/{address}", ws.handleGetUserCompounds).Methods("GET")

	// CORS wraps the router so preflight requests never reach method matching.
	ws.handler = ws.corsMiddleware(ws.loggingMiddleware(ws.router))
}

// Handler returns the routed handler.
func (ws *WebServer) Handler() http.Handler {
	return ws.handler
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	ws.server = &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a started server.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	if ws.server == nil {
		return nil
	}
	return ws.server.Shutdown(ctx)
}

// handleHealth reports runtime and storage status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false
	storeHealthy := true
	if _, err := ws.engine.Settings(); err != nil {
		storeHealthy = false
		hasErrors = true
	}

	historyStatus := "disabled"
	if ws.history != nil {
		historyStatus = "healthy"
		if err := ws.history.Ping(); err != nil {
			historyStatus = "unreachable"
			hasErrors = true
		}
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if hasErrors {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "autofarm-position-engine",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"store_healthy":  storeHealthy,
			"history_status": historyStatus,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

func (ws *WebServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := ws.engine.Settings()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get settings")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve settings")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, settings)
}

// handleGetUsers lists every registered user with its inventory
func (ws *WebServer) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := ws.engine.RegisteredUsers()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get registered users")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

func (ws *WebServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	address, ok := ws.parseAddress(w, r)
	if !ok {
		return
	}
	entry, err := ws.engine.UserEntry(address)
	if err != nil {
		webLogger.Error().Err(err).Str("address", address.String()).Msg("Failed to get user")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}
	if !entry.Exists() {
		ws.writeErrorResponse(w, http.StatusNotFound, "User not registered")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, entry)
}

// handleGetFees returns the fees awaiting the proxy and, when history is stored, the lifetime summary
func (ws *WebServer) handleGetFees(w http.ResponseWriter, r *http.Request) {
	fees, err := ws.engine.AccumulatedFees()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get accumulated fees")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve fees")
		return
	}

	response := map[string]interface{}{"accumulated": fees}
	if ws.history != nil {
		summary, err := ws.history.FeeSummary()
		if err != nil {
			webLogger.Warn().Err(err).Msg("Failed to get fee summary")
		} else {
			response["history"] = summary
		}
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

func (ws *WebServer) handleGetFarms(w http.ResponseWriter, r *http.Request) {
	farms, err := ws.engine.FarmConfigs()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get farms")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve farms")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"farms": farms, "count": len(farms)})
}

func (ws *WebServer) handleGetMetastaking(w http.ResponseWriter, r *http.Request) {
	configs, err := ws.engine.MetastakingConfigs()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get metastaking contracts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve metastaking contracts")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"metastaking": configs, "count": len(configs)})
}

// handleGetCompounds returns the most recent keeper snapshots
func (ws *WebServer) handleGetCompounds(w http.ResponseWriter, r *http.Request) {
	if ws.history == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "History store not configured")
		return
	}
	limit := parseLimit(r)
	snapshots, err := ws.history.RecentSnapshots(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve compounds")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"compounds": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	})
}

func (ws *WebServer) handleGetUserCompounds(w http.ResponseWriter, r *http.Request) {
	if ws.history == nil {
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "History store not configured")
		return
	}
	address, ok := ws.parseAddress(w, r)
	if !ok {
		return
	}
	limit := parseLimit(r)
	snapshots, err := ws.history.SnapshotsForUser(address.String(), limit)
	if err != nil {
		webLogger.Error().Err(err).Str("address", address.String()).Msg("Failed to get user snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve compounds")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"address":   address.String(),
		"compounds": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	})
}

func (ws *WebServer) parseAddress(w http.ResponseWriter, r *http.Request) (sdk.AccAddress, bool) {
	address, err := sdk.AccAddressFromBech32(mux.Vars(r)["address"])
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid address")
		return nil, false
	}
	return address, true
}

// parseLimit reads ?limit=, defaulting to 20 and capped at 100.
func parseLimit(r *http.Request) int {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}
	return limit
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
