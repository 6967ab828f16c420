package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/7tzy/marketview/internal/domain"
	"github.com/7tzy/marketview/internal/userstore"
)

func (s *DashboardServer) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	if !adminFrom(r) {
		writeError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	users := s.users.ListUsers()
	out := make([]AdminUserJSON, len(users))
	for i, u := range users {
		out[i] = AdminUserJSON{
			Username:  u.Username,
			CreatedAt: u.CreatedAt,
			UserIP:    u.SourceIP,
			Location:  u.Location,
		}
	}
	writeJSON(w, out)
}

func (s *DashboardServer) handleAdminUserData(w http.ResponseWriter, r *http.Request) {
	if !adminFrom(r) {
		writeError(w, http.StatusUnauthorized, "Admin access required")
		return
	}
	writeJSON(w, s.users.RawLoginData())
}

func (s *DashboardServer) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	if !adminFrom(r) {
		writeError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	var req AdminCreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	if _, err := s.users.CreateUser(req.Username, req.Password, "Admin Created", "Admin"); err != nil {
		if errors.Is(err, userstore.ErrExists) {
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		s.log.Error("admin creating user", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	writeJSON(w, StatusResponse{Success: true, Message: "User created successfully"})
}

func (s *DashboardServer) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !adminFrom(r) {
		writeError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	username := r.PathValue("username")
	if err := s.users.DeleteUser(username); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.log.Error("admin deleting user", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	writeJSON(w, StatusResponse{Success: true, Message: "User deleted and data archived successfully"})
}

// handleAdminAPIKeys persists provider credentials to api-config.json in
// the data dir. They take effect on the next server start.
func (s *DashboardServer) handleAdminAPIKeys(w http.ResponseWriter, r *http.Request) {
	if !adminFrom(r) {
		writeError(w, http.StatusUnauthorized, "Admin access required")
		return
	}

	var req APIKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.APIKey == "" && req.APISecret == "") {
		writeError(w, http.StatusBadRequest, "No API keys provided")
		return
	}

	cfg := map[string]string{"lastUpdated": domain.Timestamp(time.Now())}
	if req.APIKey != "" {
		cfg["apiKey"] = req.APIKey
	}
	if req.APISecret != "" {
		cfg["apiSecret"] = req.APISecret
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save API keys")
		return
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, "api-config.json"), data, 0o600); err != nil {
		s.log.Error("saving api config", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save API keys")
		return
	}
	writeJSON(w, StatusResponse{Success: true, Message: "API keys updated and saved successfully"})
}
