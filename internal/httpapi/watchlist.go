package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/7tzy/marketview/internal/marketdata"
)

func (s *DashboardServer) handleGetUserList(w http.ResponseWriter, r *http.Request) {
	username, ok := userFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	tickers := s.users.Watchlist(username)
	resp := UserListResponse{Tickers: tickers}
	if resp.Tickers == nil {
		resp.Tickers = []string{}
	}

	quotes, err := s.provider.Quotes(r.Context(), tickers)
	if err != nil {
		if errors.Is(err, marketdata.ErrOffline) {
			writeOffline(w, "You are offline, please go online to use Your Lists")
			return
		}
		// Quotes are best effort: the saved list is still served.
		s.log.Warn("fetching watchlist quotes", "username", username, "error", err)
	}
	resp.Stocks = toStockJSON(quotes)
	writeJSON(w, resp)
}

func (s *DashboardServer) handleAddUserList(w http.ResponseWriter, r *http.Request) {
	username, ok := userFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	if s.offline() {
		writeOffline(w, "You are offline, please go online to use Your Lists")
		return
	}

	var req UserListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tickers := req.Tickers
	if req.Ticker != "" {
		tickers = append(tickers, req.Ticker)
	}
	if len(tickers) == 0 {
		writeError(w, http.StatusBadRequest, "Ticker required")
		return
	}

	updated, err := s.users.AddToWatchlist(username, tickers)
	if err != nil {
		s.log.Error("updating watchlist", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update list")
		return
	}
	writeJSON(w, UserListResponse{Tickers: updated})
}

func (s *DashboardServer) handleClearUserList(w http.ResponseWriter, r *http.Request) {
	username, ok := userFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	if s.offline() {
		writeOffline(w, "You are offline, please go online to use Your Lists")
		return
	}

	if err := s.users.ClearWatchlist(username); err != nil {
		s.log.Error("clearing watchlist", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to clear list")
		return
	}
	writeJSON(w, StatusResponse{Success: true, Message: "List cleared"})
}

func (s *DashboardServer) handleRemoveUserTicker(w http.ResponseWriter, r *http.Request) {
	username, ok := userFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	if s.offline() {
		writeOffline(w, "You are offline, please go online to use Your Lists")
		return
	}

	updated, err := s.users.RemoveFromWatchlist(username, r.PathValue("ticker"))
	if err != nil {
		s.log.Error("removing from watchlist", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update list")
		return
	}
	writeJSON(w, UserListResponse{Tickers: updated})
}

// offline reports whether the configured provider is the offline sentinel
// provider. Mutating list endpoints refuse to run offline, matching the
// read side.
func (s *DashboardServer) offline() bool {
	_, ok := s.provider.(marketdata.OfflineProvider)
	return ok
}
