package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/7tzy/marketview/internal/config"
	"github.com/7tzy/marketview/internal/domain"
	"github.com/7tzy/marketview/internal/marketdata"
	"github.com/7tzy/marketview/internal/session"
	"github.com/7tzy/marketview/internal/userstore"
)

// fakeProvider serves canned data for live-mode tests.
type fakeProvider struct {
	md     domain.MarketData
	quotes map[string]domain.StockQuote
	err    error
}

func (f *fakeProvider) MarketData(context.Context) (domain.MarketData, error) {
	return f.md, f.err
}

func (f *fakeProvider) Quote(_ context.Context, symbol string) (domain.StockQuote, error) {
	if f.err != nil {
		return domain.StockQuote{}, f.err
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return domain.StockQuote{}, fmt.Errorf("no data for %s", symbol)
	}
	return q, nil
}

func (f *fakeProvider) Quotes(_ context.Context, symbols []string) ([]domain.StockQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.StockQuote
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, provider marketdata.Provider) (*DashboardServer, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	users, err := userstore.New(dir)
	if err != nil {
		t.Fatalf("userstore.New: %v", err)
	}
	s := NewDashboardServer(users, provider, nil, nil, config.Default().Admin.Credentials, dir, testLogger())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func get(t *testing.T, url string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func del(t *testing.T, url string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodDelete, url, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func userCookie(name string) *http.Cookie {
	return &http.Cookie{Name: session.UserCookie, Value: name}
}

func adminCookie(name string) *http.Cookie {
	return &http.Cookie{Name: session.AdminCookie, Value: name}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestLoginMissingFields(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := postJSON(t, ts.URL+"/api/auth/login", LoginRequest{Username: "alice"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSignUpAndLogin(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := postJSON(t, ts.URL+"/api/auth/login", LoginRequest{Username: "alice", Password: "pw", IsSignUp: true})
	body := decode[LoginResponse](t, resp)
	if !body.Success || body.Message != "Account created successfully" {
		t.Errorf("signup response = %+v", body)
	}

	// Duplicate signup.
	resp = postJSON(t, ts.URL+"/api/auth/login", LoginRequest{Username: "alice", Password: "pw", IsSignUp: true})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate signup status = %d, want 400", resp.StatusCode)
	}
	errBody := decode[map[string]string](t, resp)
	if errBody["error"] != "Username already exists" {
		t.Errorf("duplicate signup error = %q", errBody["error"])
	}

	// Login sets the user cookie and reports max age in milliseconds.
	resp = postJSON(t, ts.URL+"/api/auth/login", LoginRequest{Username: "alice", Password: "pw"})
	var loginCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == session.UserCookie {
			loginCookie = c
		}
	}
	if loginCookie == nil || loginCookie.Value != "alice" {
		t.Fatalf("login cookie = %+v, want Keeplogin_u=alice", loginCookie)
	}
	login := decode[LoginResponse](t, resp)
	if login.MaxAge != (12 * time.Hour).Milliseconds() {
		t.Errorf("maxAge = %d, want %d", login.MaxAge, (12 * time.Hour).Milliseconds())
	}
	if login.IsAdmin {
		t.Error("user login reported isAdmin")
	}
}

func TestLoginRememberMe(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	postJSON(t, ts.URL+"/api/auth/login", LoginRequest{Username: "bob", Password: "pw", IsSignUp: true}).Body.Close()
	resp := postJSON(t, ts.URL+"/api/auth/login", LoginRequest{Username: "bob", Password: "pw", RememberMe: true})
	login := decode[LoginResponse](t, resp)
	if login.MaxAge != (30 * 24 * time.Hour).Milliseconds() {
		t.Errorf("maxAge = %d, want 30 days in ms", login.MaxAge)
	}
}

func TestBadCredentials(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := postJSON(t, ts.URL+"/api/auth/login", LoginRequest{Username: "ghost", Password: "pw"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAdminLogin(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := postJSON(t, ts.URL+"/api/auth/login", LoginRequest{Username: "admin11", Password: "mview1", IsAdmin: true, RememberMe: true})
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == session.AdminCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != "admin11" {
		t.Fatalf("admin cookie = %+v", cookie)
	}
	login := decode[LoginResponse](t, resp)
	if !login.IsAdmin || login.MaxAge != (48*time.Hour).Milliseconds() {
		t.Errorf("admin login = %+v", login)
	}

	resp = postJSON(t, ts.URL+"/api/auth/login", LoginRequest{Username: "admin11", Password: "wrong", IsAdmin: true})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad admin status = %d, want 401", resp.StatusCode)
	}
}

func TestLogoutExpiresBothCookies(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := postJSON(t, ts.URL+"/api/auth/logout", struct{}{})
	defer resp.Body.Close()
	names := map[string]bool{}
	for _, c := range resp.Cookies() {
		names[c.Name] = true
		if c.MaxAge >= 0 {
			t.Errorf("cookie %s not expired, MaxAge = %d", c.Name, c.MaxAge)
		}
	}
	if !names[session.UserCookie] || !names[session.AdminCookie] {
		t.Errorf("logout cookies = %v, want both", names)
	}
}

// ---------------------------------------------------------------------------
// Preferences
// ---------------------------------------------------------------------------

func TestPreferencesAnonymousDefaults(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := get(t, ts.URL+"/api/user-preferences")
	prefs := decode[domain.Preferences](t, resp)
	if !prefs.ShowMarketOverview || !prefs.ShowContent {
		t.Errorf("anonymous prefs = %+v, want defaults", prefs)
	}
}

func TestPreferencesSaveRequiresLogin(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := postJSON(t, ts.URL+"/api/user-preferences", map[string]bool{"showMarketOverview": true, "showContent": true})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestPreferencesRejectsNonBoolean(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := postJSON(t, ts.URL+"/api/user-preferences",
		map[string]any{"showMarketOverview": "yes", "showContent": true}, userCookie("alice"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := postJSON(t, ts.URL+"/api/user-preferences",
		map[string]bool{"showMarketOverview": false, "showContent": true}, userCookie("alice"))
	status := decode[StatusResponse](t, resp)
	if !status.Success {
		t.Fatalf("save response = %+v", status)
	}

	resp = get(t, ts.URL+"/api/user-preferences", userCookie("alice"))
	prefs := decode[domain.Preferences](t, resp)
	if prefs.ShowMarketOverview || !prefs.ShowContent || prefs.Username != "alice" {
		t.Errorf("prefs = %+v", prefs)
	}
}

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

func TestMarketDataOffline(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := get(t, ts.URL+"/api/market-data")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	body := decode[OfflineResponse](t, resp)
	if body.Error != "Offline mode" {
		t.Errorf("error = %q, want Offline mode", body.Error)
	}
	if body.Message != "You are offline, please go online to use Market Overview" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestMarketDataLive(t *testing.T) {
	provider := &fakeProvider{
		md: domain.MarketData{
			SP500:       domain.MarketIndex{Symbol: "SPY", Name: "S&P 500", Value: 512.3},
			DowJones:    domain.MarketIndex{Symbol: "DIA", Name: "Dow Jones", Value: 390.1},
			Nasdaq:      domain.MarketIndex{Symbol: "QQQ", Name: "NASDAQ", Value: 441.8},
			LastRefresh: domain.Timestamp(time.Now()),
		},
	}
	_, ts := newTestServer(t, provider)

	resp := get(t, ts.URL+"/api/market-data")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	md := decode[domain.MarketData](t, resp)
	if md.SP500.Value != 512.3 || md.Nasdaq.Symbol != "QQQ" {
		t.Errorf("market data = %+v", md)
	}
}

func TestRandomStockOfflineMessage(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := get(t, ts.URL+"/api/random-stock/AAPL")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	body := decode[OfflineResponse](t, resp)
	if body.Message != "You are offline, please go online to use stock data" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestStockListOfflineMessage(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := get(t, ts.URL+"/api/stock-lists/1")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	body := decode[OfflineResponse](t, resp)
	if body.Message != "You are offline, please go online to use Your Lists" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestStockListOfflineUnknownNumber(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	// Offline mode wins over list-number validation.
	resp := get(t, ts.URL+"/api/stock-lists/9")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	body := decode[OfflineResponse](t, resp)
	if body.Error != "Offline mode" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestStockListLive(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]domain.StockQuote{
		"AAPL": {Symbol: "AAPL", Name: "AAPL", Value: 230.5, Change: 1.1, ChangePercent: 0.48},
		"MSFT": {Symbol: "MSFT", Name: "MSFT", Value: 512.0},
	}}
	_, ts := newTestServer(t, provider)

	resp := get(t, ts.URL+"/api/stock-lists/1")
	list := decode[StockListResponse](t, resp)
	if list.ListNumber != 1 || len(list.Stocks) != 2 {
		t.Errorf("list = %+v", list)
	}

	resp = get(t, ts.URL+"/api/stock-lists/9")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown list status = %d, want 400", resp.StatusCode)
	}
}

// ---------------------------------------------------------------------------
// User stock list
// ---------------------------------------------------------------------------

func TestUserListRequiresLogin(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	for _, resp := range []*http.Response{
		get(t, ts.URL+"/api/user-stock-list"),
		postJSON(t, ts.URL+"/api/user-stock-list", UserListRequest{Ticker: "AAPL"}),
		del(t, ts.URL+"/api/user-stock-list"),
		del(t, ts.URL+"/api/user-stock-list/AAPL"),
	} {
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestAdminCookieDoesNotGrantUserEndpoints(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := get(t, ts.URL+"/api/user-stock-list", adminCookie("admin11"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestUserListOfflineWithSession(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	resp := get(t, ts.URL+"/api/user-stock-list", userCookie("alice"))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	body := decode[OfflineResponse](t, resp)
	if body.Error != "Offline mode" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestUserListLifecycle(t *testing.T) {
	provider := &fakeProvider{quotes: map[string]domain.StockQuote{
		"AAPL": {Symbol: "AAPL", Name: "AAPL", Value: 230.5},
	}}
	s, ts := newTestServer(t, provider)
	s.users.CreateUser("alice", "pw", "1.2.3.4", "Unknown")
	alice := userCookie("alice")

	resp := postJSON(t, ts.URL+"/api/user-stock-list", UserListRequest{Tickers: []string{"aapl", "msft"}}, alice)
	list := decode[UserListResponse](t, resp)
	if len(list.Tickers) != 2 || list.Tickers[0] != "AAPL" {
		t.Errorf("after add = %+v", list)
	}

	resp = get(t, ts.URL+"/api/user-stock-list", alice)
	list = decode[UserListResponse](t, resp)
	if len(list.Tickers) != 2 || len(list.Stocks) != 1 {
		t.Errorf("get = %+v", list)
	}

	resp = del(t, ts.URL+"/api/user-stock-list/MSFT", alice)
	list = decode[UserListResponse](t, resp)
	if len(list.Tickers) != 1 || list.Tickers[0] != "AAPL" {
		t.Errorf("after remove = %+v", list)
	}

	resp = del(t, ts.URL+"/api/user-stock-list", alice)
	status := decode[StatusResponse](t, resp)
	if !status.Success {
		t.Errorf("clear = %+v", status)
	}

	resp = get(t, ts.URL+"/api/user-stock-list", alice)
	list = decode[UserListResponse](t, resp)
	if len(list.Tickers) != 0 {
		t.Errorf("after clear = %+v", list)
	}
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func TestAdminEndpointsRequireAdminCookie(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})

	// A plain user cookie is not enough.
	for _, resp := range []*http.Response{
		get(t, ts.URL+"/api/auth/admin/users", userCookie("alice")),
		get(t, ts.URL+"/api/auth/admin/user-data"),
		postJSON(t, ts.URL+"/api/auth/admin/users", AdminCreateUserRequest{Username: "x", Password: "y"}),
		del(t, ts.URL+"/api/auth/admin/users/alice"),
		postJSON(t, ts.URL+"/api/auth/admin/api-keys", APIKeysRequest{APIKey: "k"}),
	} {
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestAdminUserManagement(t *testing.T) {
	_, ts := newTestServer(t, marketdata.OfflineProvider{})
	admin := adminCookie("admin11")

	resp := postJSON(t, ts.URL+"/api/auth/admin/users", AdminCreateUserRequest{Username: "carol", Password: "pw"}, admin)
	status := decode[StatusResponse](t, resp)
	if !status.Success {
		t.Fatalf("create = %+v", status)
	}

	resp = get(t, ts.URL+"/api/auth/admin/users", admin)
	users := decode[[]AdminUserJSON](t, resp)
	if len(users) != 1 || users[0].Username != "carol" || users[0].UserIP != "Admin Created" {
		t.Errorf("users = %+v", users)
	}

	resp = del(t, ts.URL+"/api/auth/admin/users/carol", admin)
	status = decode[StatusResponse](t, resp)
	if !status.Success || !strings.Contains(status.Message, "archived") {
		t.Errorf("delete = %+v", status)
	}

	resp = del(t, ts.URL+"/api/auth/admin/users/carol", admin)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete unknown status = %d, want 404", resp.StatusCode)
	}
}
