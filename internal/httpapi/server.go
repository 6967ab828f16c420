// Package httpapi serves the marketview HTTP API: cookie auth, per-user
// preferences and watchlists, market-data endpoints with the offline
// sentinel, the admin surface, and the live refresh WebSocket.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/7tzy/marketview/internal/config"
	"github.com/7tzy/marketview/internal/marketdata"
	"github.com/7tzy/marketview/internal/session"
	"github.com/7tzy/marketview/internal/userstore"
)

// quoteFreshness is how long a cached quote may be served before the
// provider is asked again.
const quoteFreshness = 15 * time.Minute

// DashboardServer serves the marketview HTTP API.
type DashboardServer struct {
	users    *userstore.Store
	provider marketdata.Provider
	cache    *marketdata.SnapshotCache  // nil in offline mode
	archive  *marketdata.HistoryArchive // nil in offline mode
	hub      *Hub
	admins   []config.AdminCredential
	dataDir  string
	log      *slog.Logger
}

// NewDashboardServer creates the API server. cache and archive may be nil
// when the provider is offline-only.
func NewDashboardServer(
	users *userstore.Store,
	provider marketdata.Provider,
	cache *marketdata.SnapshotCache,
	archive *marketdata.HistoryArchive,
	admins []config.AdminCredential,
	dataDir string,
	log *slog.Logger,
) *DashboardServer {
	return &DashboardServer{
		users:    users,
		provider: provider,
		cache:    cache,
		archive:  archive,
		hub:      NewHub(log),
		admins:   admins,
		dataDir:  dataDir,
		log:      log,
	}
}

// Hub returns the WebSocket hub so the caller can run its event loop.
func (s *DashboardServer) Hub() *Hub {
	return s.hub
}

// RegisterRoutes registers all API routes on the given mux.
func (s *DashboardServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)

	mux.HandleFunc("GET /api/user-preferences", s.handleGetPreferences)
	mux.HandleFunc("POST /api/user-preferences", s.handleSavePreferences)

	mux.HandleFunc("GET /api/market-data", s.handleMarketData)
	mux.HandleFunc("GET /api/stock-lists/{listNumber}", s.handleStockList)
	mux.HandleFunc("GET /api/random-stock/{symbol}", s.handleRandomStock)
	mux.HandleFunc("GET /api/market-history", s.handleMarketHistory)

	mux.HandleFunc("GET /api/user-stock-list", s.handleGetUserList)
	mux.HandleFunc("POST /api/user-stock-list", s.handleAddUserList)
	mux.HandleFunc("DELETE /api/user-stock-list", s.handleClearUserList)
	mux.HandleFunc("DELETE /api/user-stock-list/{ticker}", s.handleRemoveUserTicker)

	mux.HandleFunc("GET /api/auth/admin/users", s.handleAdminListUsers)
	mux.HandleFunc("POST /api/auth/admin/users", s.handleAdminCreateUser)
	mux.HandleFunc("GET /api/auth/admin/user-data", s.handleAdminUserData)
	mux.HandleFunc("DELETE /api/auth/admin/users/{username}", s.handleAdminDeleteUser)
	mux.HandleFunc("POST /api/auth/admin/api-keys", s.handleAdminAPIKeys)

	mux.HandleFunc("GET /api/live", s.handleLive)
}

// Handler returns an http.Handler with CORS middleware.
func (s *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeOffline emits the offline sentinel. The two-field shape is load
// bearing: clients distinguish deliberate offline mode from generic failure
// by the "Offline mode" error string.
func writeOffline(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(OfflineResponse{
		Error:   "Offline mode",
		Message: message,
	})
}

// userFrom resolves the request's session and returns the plain-user
// identity. Admin-only sessions are rejected here: the admin cookie does
// not grant access to user-scoped endpoints.
func userFrom(r *http.Request) (string, bool) {
	return session.FromRequest(r).User()
}

// adminFrom reports whether the request's session carries the admin flag.
func adminFrom(r *http.Request) bool {
	return session.FromRequest(r).IsAdmin
}
