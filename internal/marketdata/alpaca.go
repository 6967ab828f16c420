package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	alpaca "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/7tzy/marketview/internal/domain"
	"github.com/7tzy/marketview/internal/util"
)

var _ Provider = (*AlpacaProvider)(nil)

// indexProxy maps a tracked index to the ETF used as its price proxy.
type indexProxy struct {
	symbol string
	name   string
}

// The overview tracks three indexes via their liquid ETF proxies.
var indexProxies = []indexProxy{
	{"SPY", "S&P 500"},
	{"DIA", "Dow Jones"},
	{"QQQ", "NASDAQ"},
}

// AlpacaProvider fetches quotes from the Alpaca market-data API. Index
// values are derived from ETF proxies (SPY, DIA, QQQ): the latest daily
// close is the value, and change is measured against the prior daily close.
type AlpacaProvider struct {
	client  *alpaca.Client
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaProvider builds a provider with the given credentials.
// rateLimitPerMin bounds upstream calls; dataURL overrides the default API
// base when set.
func NewAlpacaProvider(apiKey, apiSecret, dataURL string, rateLimitPerMin int) *AlpacaProvider {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaProvider{
		client:  alpaca.NewClient(opts),
		limiter: util.NewRateLimiter(rateLimitPerMin),
		log:     slog.Default().With("provider", "alpaca"),
	}
}

// MarketData fetches the three index proxies in one multi-bar call.
func (p *AlpacaProvider) MarketData(ctx context.Context) (domain.MarketData, error) {
	symbols := make([]string, len(indexProxies))
	for i, ix := range indexProxies {
		symbols[i] = ix.symbol
	}

	quotes, err := p.fetchQuotes(ctx, symbols)
	if err != nil {
		return domain.MarketData{}, err
	}

	now := domain.Timestamp(time.Now())
	md := domain.MarketData{LastRefresh: now}
	for _, ix := range indexProxies {
		q, ok := quotes[ix.symbol]
		if !ok {
			return domain.MarketData{}, fmt.Errorf("no bars for %s", ix.symbol)
		}
		idx := domain.MarketIndex{
			Symbol:        ix.symbol,
			Name:          ix.name,
			Value:         q.Value,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			LastUpdated:   now,
		}
		switch ix.symbol {
		case "SPY":
			md.SP500 = idx
		case "DIA":
			md.DowJones = idx
		case "QQQ":
			md.Nasdaq = idx
		}
	}
	return md, nil
}

// Quote fetches a single symbol.
func (p *AlpacaProvider) Quote(ctx context.Context, symbol string) (domain.StockQuote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	quotes, err := p.fetchQuotes(ctx, []string{symbol})
	if err != nil {
		return domain.StockQuote{}, err
	}
	q, ok := quotes[symbol]
	if !ok {
		return domain.StockQuote{}, fmt.Errorf("no data for %s", symbol)
	}
	return q, nil
}

// Quotes fetches several symbols in one call, skipping symbols the upstream
// has no data for.
func (p *AlpacaProvider) Quotes(ctx context.Context, symbols []string) ([]domain.StockQuote, error) {
	upper := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			upper = append(upper, s)
		}
	}
	if len(upper) == 0 {
		return nil, nil
	}

	bysym, err := p.fetchQuotes(ctx, upper)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StockQuote, 0, len(upper))
	for _, s := range upper {
		if q, ok := bysym[s]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// fetchQuotes pulls the last two daily bars per symbol and derives the
// current value and day-over-day change from them.
func (p *AlpacaProvider) fetchQuotes(ctx context.Context, symbols []string) (map[string]domain.StockQuote, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var multiBars map[string][]alpaca.Bar
	// Two weeks back covers holidays and long weekends around the two most
	// recent sessions.
	start := time.Now().AddDate(0, 0, -14)
	err := util.Retry(ctx, 3, time.Second, func() error {
		var err error
		multiBars, err = p.client.GetMultiBars(symbols, alpaca.GetBarsRequest{
			TimeFrame: alpaca.OneDay,
			Start:     start,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	quotes := make(map[string]domain.StockQuote, len(multiBars))
	for symbol, bars := range multiBars {
		if len(bars) == 0 {
			continue
		}
		latest := bars[len(bars)-1]
		q := domain.StockQuote{
			Symbol: strings.ToUpper(symbol),
			Name:   strings.ToUpper(symbol),
			Value:  latest.Close,
		}
		if len(bars) > 1 {
			prev := bars[len(bars)-2].Close
			q.Change = latest.Close - prev
			if prev != 0 {
				q.ChangePercent = q.Change / prev * 100
			}
		}
		quotes[q.Symbol] = q
	}
	return quotes, nil
}
