// Package marketview provides a Go SDK for the marketview-server API. It
// keeps the session cookie from a successful login and attaches it to
// every subsequent request, the same contract a browser client follows.
package marketview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/7tzy/marketview/internal/domain"
)

// OfflineError is the decoded offline sentinel. It satisfies error so
// callers can detect deliberate offline mode with errors.As.
type OfflineError struct {
	Message string
}

func (e *OfflineError) Error() string {
	return "offline mode: " + e.Message
}

// APIError is any non-2xx response that is not the offline sentinel.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client is a marketview API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cookies    []*http.Cookie
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	IsAdmin  bool           `json:"isAdmin"`
	MaxAge   int64          `json:"maxAge"`
	UserData map[string]any `json:"userData"`
}

// Preferences mirrors the server's preference payload.
type Preferences = domain.Preferences

// UserList is the watchlist payload.
type UserList struct {
	Tickers []string            `json:"tickers"`
	Stocks  []domain.StockQuote `json:"stocks"`
}

// StockList is a curated featured list with quotes attached.
type StockList struct {
	ListNumber int                 `json:"listNumber"`
	Name       string              `json:"name"`
	Stocks     []domain.StockQuote `json:"stocks"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if cookies := resp.Cookies(); len(cookies) > 0 {
		c.storeCookies(cookies)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error == "Offline mode" {
			return &OfflineError{Message: errBody.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// storeCookies merges Set-Cookie values into the jar, replacing by name.
func (c *Client) storeCookies(cookies []*http.Cookie) {
	for _, nc := range cookies {
		replaced := false
		for i, old := range c.cookies {
			if old.Name == nc.Name {
				c.cookies[i] = nc
				replaced = true
				break
			}
		}
		if !replaced {
			c.cookies = append(c.cookies, nc)
		}
	}
	// Drop expired cookies so logout actually logs out.
	kept := c.cookies[:0]
	for _, cookie := range c.cookies {
		if cookie.MaxAge >= 0 && cookie.Value != "" {
			kept = append(kept, cookie)
		}
	}
	c.cookies = kept
}

// Login authenticates a user and keeps the session cookie.
func (c *Client) Login(ctx context.Context, username, password string, rememberMe bool) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"username":   username,
		"password":   password,
		"rememberMe": rememberMe,
	}, &out)
	return out, err
}

// SignUp creates a new account.
func (c *Client) SignUp(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"username": username,
		"password": password,
		"isSignUp": true,
	}, &out)
	return out, err
}

// AdminLogin authenticates against the admin credential pairs.
func (c *Client) AdminLogin(ctx context.Context, username, password string, rememberMe bool) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"username":   username,
		"password":   password,
		"isAdmin":    true,
		"rememberMe": rememberMe,
	}, &out)
	return out, err
}

// Logout expires the session server-side and clears the local cookies.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", struct{}{}, nil)
	if err == nil {
		c.cookies = nil
	}
	return err
}

// BaseURL returns the server address this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoggedIn reports whether a session cookie is held.
func (c *Client) LoggedIn() bool {
	return len(c.cookies) > 0
}

// Username returns the name carried by the session cookie, "" when logged
// out.
func (c *Client) Username() string {
	for _, cookie := range c.cookies {
		if cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

// Preferences fetches the caller's preferences; the server answers
// defaults for anonymous sessions.
func (c *Client) Preferences(ctx context.Context) (Preferences, error) {
	var out Preferences
	err := c.do(ctx, http.MethodGet, "/api/user-preferences", nil, &out)
	return out, err
}

// SavePreferences writes both toggles.
func (c *Client) SavePreferences(ctx context.Context, showMarketOverview, showContent bool) error {
	return c.do(ctx, http.MethodPost, "/api/user-preferences", map[string]bool{
		"showMarketOverview": showMarketOverview,
		"showContent":        showContent,
	}, nil)
}

// MarketData fetches the market overview.
func (c *Client) MarketData(ctx context.Context) (domain.MarketData, error) {
	var out domain.MarketData
	err := c.do(ctx, http.MethodGet, "/api/market-data", nil, &out)
	return out, err
}

// FeaturedList fetches curated list n.
func (c *Client) FeaturedList(ctx context.Context, n int) (StockList, error) {
	var out StockList
	err := c.do(ctx, http.MethodGet, "/api/stock-lists/"+strconv.Itoa(n), nil, &out)
	return out, err
}

// RandomStock fetches a single quote.
func (c *Client) RandomStock(ctx context.Context, symbol string) (domain.StockQuote, error) {
	var out domain.StockQuote
	err := c.do(ctx, http.MethodGet, "/api/random-stock/"+symbol, nil, &out)
	return out, err
}

// UserList fetches the caller's watchlist with quotes attached.
func (c *Client) UserList(ctx context.Context) (UserList, error) {
	var out UserList
	err := c.do(ctx, http.MethodGet, "/api/user-stock-list", nil, &out)
	return out, err
}

// AddTickers appends tickers to the caller's watchlist.
func (c *Client) AddTickers(ctx context.Context, tickers ...string) (UserList, error) {
	var out UserList
	err := c.do(ctx, http.MethodPost, "/api/user-stock-list", map[string]any{
		"tickers": tickers,
	}, &out)
	return out, err
}

// RemoveTicker drops one ticker from the caller's watchlist.
func (c *Client) RemoveTicker(ctx context.Context, ticker string) (UserList, error) {
	var out UserList
	err := c.do(ctx, http.MethodDelete, "/api/user-stock-list/"+ticker, nil, &out)
	return out, err
}

// ClearList empties the caller's watchlist.
func (c *Client) ClearList(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/user-stock-list", nil, nil)
}
