// Package domain defines the core types shared between the marketview
// server, the API client, and the terminal dashboard.
package domain

import "time"

// MarketIndex is a single tracked index (S&P 500, Dow Jones, Nasdaq).
type MarketIndex struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	LastUpdated   string  `json:"lastUpdated"`
}

// MarketData is the market-overview payload served by /api/market-data.
type MarketData struct {
	SP500       MarketIndex `json:"sp500"`
	DowJones    MarketIndex `json:"dowJones"`
	Nasdaq      MarketIndex `json:"nasdaq"`
	LastRefresh string      `json:"lastRefresh"`
}

// StockQuote is a single stock row as rendered in list views and the
// random-stock spotlight.
type StockQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// Preferences holds a user's display toggles. Both default to true and are
// always written as a whole object; there is no partial update.
type Preferences struct {
	Username           string `json:"username,omitempty"`
	ShowMarketOverview bool   `json:"showMarketOverview"`
	ShowContent        bool   `json:"showContent"`
	LastUpdated        string `json:"lastUpdated,omitempty"`
}

// DefaultPreferences returns the preferences used for anonymous sessions
// and whenever a stored preferences file is missing or unreadable.
func DefaultPreferences() Preferences {
	return Preferences{ShowMarketOverview: true, ShowContent: true}
}

// User is a stored account record. The password is kept in plain text to
// match the system this replaces; see DESIGN.md before reusing this store
// anywhere that matters.
type User struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	CreatedAt string `json:"createdAt"`
	SourceIP  string `json:"userIP"`
	Location  string `json:"location"`
}

// Timestamp returns t formatted the way all persisted records store time.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
