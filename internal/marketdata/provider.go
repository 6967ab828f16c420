// Package marketdata supplies market-overview and per-symbol quote data to
// the HTTP layer, either from an upstream provider or as the deliberate
// offline sentinel.
package marketdata

import (
	"context"
	"errors"

	"github.com/7tzy/marketview/internal/domain"
)

// ErrOffline is the sentinel for deliberate offline mode. It is distinct
// from ordinary fetch failures: consumers render a specific "you are
// offline" message for it and a generic one for everything else.
var ErrOffline = errors.New("offline mode")

// Provider serves market data. Implementations must be safe for concurrent
// use by HTTP handlers.
type Provider interface {
	// MarketData returns the three tracked indexes.
	MarketData(ctx context.Context) (domain.MarketData, error)
	// Quote returns a single symbol's quote.
	Quote(ctx context.Context, symbol string) (domain.StockQuote, error)
	// Quotes returns quotes for several symbols at once, preserving order.
	// Symbols with no available data are skipped, not errors.
	Quotes(ctx context.Context, symbols []string) ([]domain.StockQuote, error)
}

// OfflineProvider is the deployment default: every call answers ErrOffline
// and nothing upstream is contacted.
type OfflineProvider struct{}

// MarketData always returns ErrOffline.
func (OfflineProvider) MarketData(context.Context) (domain.MarketData, error) {
	return domain.MarketData{}, ErrOffline
}

// Quote always returns ErrOffline.
func (OfflineProvider) Quote(context.Context, string) (domain.StockQuote, error) {
	return domain.StockQuote{}, ErrOffline
}

// Quotes always returns ErrOffline.
func (OfflineProvider) Quotes(context.Context, []string) ([]domain.StockQuote, error) {
	return nil, ErrOffline
}
