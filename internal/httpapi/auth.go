package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/7tzy/marketview/internal/session"
	"github.com/7tzy/marketview/internal/userstore"
)

func (s *DashboardServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	if req.IsAdmin {
		s.adminLogin(w, req)
		return
	}
	if req.IsSignUp {
		s.signUp(w, r, req)
		return
	}
	s.userLogin(w, req)
}

func (s *DashboardServer) adminLogin(w http.ResponseWriter, req LoginRequest) {
	for _, cred := range s.admins {
		if cred.Username == req.Username && cred.Password == req.Password {
			maxAge := session.MaxAge(true, req.RememberMe)
			http.SetCookie(w, session.LoginCookie(req.Username, true, maxAge))
			writeJSON(w, LoginResponse{
				Success: true,
				Message: "Admin login successful",
				IsAdmin: true,
				MaxAge:  maxAge.Milliseconds(),
			})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Invalid admin credentials")
}

func (s *DashboardServer) signUp(w http.ResponseWriter, r *http.Request, req LoginRequest) {
	ip := clientIP(r)
	if _, err := s.users.CreateUser(req.Username, req.Password, ip, "Unknown"); err != nil {
		if errors.Is(err, userstore.ErrExists) {
			writeError(w, http.StatusBadRequest, "Username already exists")
			return
		}
		s.log.Error("creating user", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Authentication failed")
		return
	}
	s.log.Info("user created", "username", req.Username, "ip", ip)
	writeJSON(w, LoginResponse{Success: true, Message: "Account created successfully"})
}

func (s *DashboardServer) userLogin(w http.ResponseWriter, req LoginRequest) {
	if _, err := s.users.Authenticate(req.Username, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	maxAge := session.MaxAge(false, req.RememberMe)
	http.SetCookie(w, session.LoginCookie(req.Username, false, maxAge))
	writeJSON(w, LoginResponse{
		Success: true,
		Message: "Login successful",
		MaxAge:  maxAge.Milliseconds(),
		UserData: map[string]any{
			"list1": s.users.Watchlist(req.Username),
		},
	})
}

func (s *DashboardServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	for _, c := range session.LogoutCookies() {
		http.SetCookie(w, c)
	}
	writeJSON(w, StatusResponse{Success: true, Message: "Logged out"})
}

// clientIP extracts the requester's address, preferring X-Forwarded-For
// when a proxy set it.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
