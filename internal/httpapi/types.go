package httpapi

import "github.com/7tzy/marketview/internal/marketdata"

// LoginRequest is the body of POST /api/auth/login. One endpoint covers
// user login, signup, and admin login, switched by the two flags.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	IsSignUp   bool   `json:"isSignUp"`
	IsAdmin    bool   `json:"isAdmin"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse is the success payload of POST /api/auth/login. MaxAge is
// the cookie lifetime in milliseconds, the convention clients expect.
type LoginResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	IsAdmin  bool           `json:"isAdmin,omitempty"`
	MaxAge   int64          `json:"maxAge,omitempty"`
	UserData map[string]any `json:"userData,omitempty"`
}

// StatusResponse is the generic success payload for mutating endpoints.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OfflineResponse is the sentinel returned by market endpoints in offline
// mode, always with status 503 and Error == "Offline mode".
type OfflineResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SavePreferencesRequest uses pointers so that missing or non-boolean
// fields are rejected rather than defaulted.
type SavePreferencesRequest struct {
	ShowMarketOverview *bool `json:"showMarketOverview"`
	ShowContent        *bool `json:"showContent"`
}

// AdminUserJSON is one row of GET /api/auth/admin/users. Passwords are
// never included here.
type AdminUserJSON struct {
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
	UserIP    string `json:"userIP"`
	Location  string `json:"location"`
}

// AdminCreateUserRequest is the body of POST /api/auth/admin/users.
type AdminCreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// APIKeysRequest is the body of POST /api/auth/admin/api-keys.
type APIKeysRequest struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

// UserListRequest is the body of POST /api/user-stock-list. Either a
// single ticker or a batch may be supplied.
type UserListRequest struct {
	Ticker  string   `json:"ticker,omitempty"`
	Tickers []string `json:"tickers,omitempty"`
}

// UserListResponse is the payload of the user-stock-list read and mutate
// endpoints. Stocks carries live quotes for the tickers when the provider
// has them.
type UserListResponse struct {
	Tickers []string    `json:"tickers"`
	Stocks  []StockJSON `json:"stocks,omitempty"`
}

// StockJSON mirrors domain.StockQuote on the wire.
type StockJSON struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// StockListResponse is the payload of GET /api/stock-lists/{listNumber}.
type StockListResponse struct {
	ListNumber int         `json:"listNumber"`
	Name       string      `json:"name"`
	Stocks     []StockJSON `json:"stocks"`
}

// MarketHistoryResponse is the payload of GET /api/market-history.
type MarketHistoryResponse struct {
	Records []marketdata.SnapshotRecord `json:"records"`
}
