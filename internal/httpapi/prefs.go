package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/7tzy/marketview/internal/domain"
)

// handleGetPreferences never fails: anonymous requests and unreadable
// preference files both get the defaults.
func (s *DashboardServer) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	username, ok := userFrom(r)
	if !ok {
		writeJSON(w, domain.DefaultPreferences())
		return
	}
	writeJSON(w, s.users.Preferences(username))
}

func (s *DashboardServer) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	username, ok := userFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	var req SavePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ShowMarketOverview == nil || req.ShowContent == nil {
		writeError(w, http.StatusBadRequest, "Invalid preference values")
		return
	}

	if err := s.users.SavePreferences(username, *req.ShowMarketOverview, *req.ShowContent); err != nil {
		s.log.Error("saving preferences", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save user preferences")
		return
	}
	writeJSON(w, StatusResponse{Success: true, Message: "Preferences saved successfully"})
}
