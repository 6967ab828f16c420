// Package session derives login state from the two marketview session
// cookies. There is no server-side session store: the cookie value is the
// username, trusted verbatim by both sides, and expiry is whatever max-age
// was set at login time.
package session

import (
	"net/http"
	"time"
)

// Cookie names. Keeplogin_u carries an ordinary user's name, Keeplogin_a an
// admin's name. Either one's presence means logged in.
const (
	UserCookie  = "Keeplogin_u"
	AdminCookie = "Keeplogin_a"
)

// Session is the resolved login state for one request.
type Session struct {
	LoggedIn bool
	Username string
	IsAdmin  bool

	hasUser bool
}

// User returns the identity backed by the plain-user cookie. Admin-only
// sessions answer false: the admin cookie never grants user-scoped access.
func (s Session) User() (string, bool) {
	if !s.hasUser {
		return "", false
	}
	return s.Username, true
}

// FromRequest resolves the session from an incoming request's cookies.
func FromRequest(r *http.Request) Session {
	return FromCookies(r.Cookies())
}

// FromCookies resolves the session from a cookie set. The admin cookie wins
// for the admin flag; the user cookie wins for the username when both are
// present. Absence of both yields the zero (logged-out) session.
func FromCookies(cookies []*http.Cookie) Session {
	var s Session
	for _, c := range cookies {
		switch c.Name {
		case UserCookie:
			if c.Value != "" {
				s.LoggedIn = true
				s.Username = c.Value
				s.hasUser = true
			}
		case AdminCookie:
			if c.Value != "" {
				s.LoggedIn = true
				s.IsAdmin = true
				if s.Username == "" {
					s.Username = c.Value
				}
			}
		}
	}
	return s
}

// MaxAge returns the cookie lifetime set at login. Admins get 12h, or 48h
// with remember-me; users get 12h, or 30 days with remember-me. These are
// the rules of the system this replaces, kept as-is.
func MaxAge(admin, rememberMe bool) time.Duration {
	switch {
	case admin && rememberMe:
		return 48 * time.Hour
	case rememberMe:
		return 30 * 24 * time.Hour
	default:
		return 12 * time.Hour
	}
}

// LoginCookie builds the Set-Cookie for a successful login.
func LoginCookie(username string, admin bool, maxAge time.Duration) *http.Cookie {
	name := UserCookie
	if admin {
		name = AdminCookie
	}
	return &http.Cookie{
		Name:   name,
		Value:  username,
		Path:   "/",
		MaxAge: int(maxAge.Seconds()),
	}
}

// LogoutCookies returns both session cookies re-set to an already-expired
// date, which is how logout works here.
func LogoutCookies() []*http.Cookie {
	expired := time.Unix(0, 0)
	return []*http.Cookie{
		{Name: UserCookie, Value: "", Path: "/", Expires: expired, MaxAge: -1},
		{Name: AdminCookie, Value: "", Path: "/", Expires: expired, MaxAge: -1},
	}
}
