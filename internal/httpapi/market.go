package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/7tzy/marketview/internal/domain"
	"github.com/7tzy/marketview/internal/marketdata"
)

// featuredLists are the curated lists behind /api/stock-lists/{n}.
var featuredLists = map[int]struct {
	name    string
	symbols []string
}{
	1: {"Tech Leaders", []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA"}},
	2: {"Blue Chips", []string{"JPM", "JNJ", "PG", "KO", "WMT"}},
	3: {"Index ETFs", []string{"SPY", "DIA", "QQQ", "IWM", "VTI"}},
}

func (s *DashboardServer) handleMarketData(w http.ResponseWriter, r *http.Request) {
	if md, ok := s.cachedMarketData(); ok {
		writeJSON(w, md)
		return
	}

	md, err := s.provider.MarketData(r.Context())
	if err != nil {
		if errors.Is(err, marketdata.ErrOffline) {
			writeOffline(w, "You are offline, please go online to use Market Overview")
			return
		}
		s.log.Error("fetching market data", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch market data")
		return
	}

	s.acceptRefresh(md)
	writeJSON(w, md)
}

// cachedMarketData rebuilds the overview from cached index quotes when all
// three are fresh.
func (s *DashboardServer) cachedMarketData() (domain.MarketData, bool) {
	if s.cache == nil {
		return domain.MarketData{}, false
	}

	var md domain.MarketData
	now := domain.Timestamp(time.Now())
	for _, ix := range []struct {
		symbol string
		name   string
		dst    *domain.MarketIndex
	}{
		{"SPY", "S&P 500", &md.SP500},
		{"DIA", "Dow Jones", &md.DowJones},
		{"QQQ", "NASDAQ", &md.Nasdaq},
	} {
		q, ok := s.cache.Get(ix.symbol, quoteFreshness)
		if !ok {
			return domain.MarketData{}, false
		}
		*ix.dst = domain.MarketIndex{
			Symbol:        q.Symbol,
			Name:          ix.name,
			Value:         q.Value,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			LastUpdated:   now,
		}
	}
	md.LastRefresh = now
	return md, true
}

// acceptRefresh records a successful live fetch: cache the index quotes,
// archive the snapshot, and notify WebSocket subscribers.
func (s *DashboardServer) acceptRefresh(md domain.MarketData) {
	now := time.Now()
	if s.cache != nil {
		for _, ix := range []domain.MarketIndex{md.SP500, md.DowJones, md.Nasdaq} {
			q := domain.StockQuote{
				Symbol:        ix.Symbol,
				Name:          ix.Name,
				Value:         ix.Value,
				Change:        ix.Change,
				ChangePercent: ix.ChangePercent,
			}
			if err := s.cache.Put(q); err != nil {
				s.log.Warn("caching index quote", "symbol", ix.Symbol, "error", err)
			}
		}
	}
	if s.archive != nil {
		if err := s.archive.Append(md, now); err != nil {
			s.log.Warn("archiving market snapshot", "error", err)
		}
	}
	s.hub.Broadcast("market-refresh")
}

func (s *DashboardServer) handleStockList(w http.ResponseWriter, r *http.Request) {
	// Offline mode answers the sentinel for any list number, known or not.
	if s.offline() {
		writeOffline(w, "You are offline, please go online to use Your Lists")
		return
	}

	n, err := strconv.Atoi(r.PathValue("listNumber"))
	list, ok := featuredLists[n]
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, "Unknown list")
		return
	}

	quotes, err := s.provider.Quotes(r.Context(), list.symbols)
	if err != nil {
		if errors.Is(err, marketdata.ErrOffline) {
			writeOffline(w, "You are offline, please go online to use Your Lists")
			return
		}
		s.log.Error("fetching stock list", "list", n, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch stock list")
		return
	}

	writeJSON(w, StockListResponse{ListNumber: n, Name: list.name, Stocks: toStockJSON(quotes)})
}

func (s *DashboardServer) handleRandomStock(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	q, err := s.quoteFor(r, symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrOffline) {
			writeOffline(w, "You are offline, please go online to use stock data")
			return
		}
		s.log.Error("fetching quote", "symbol", symbol, "error", err)
		writeError(w, http.StatusNotFound, "No data for "+symbol)
		return
	}
	writeJSON(w, toStockJSON([]domain.StockQuote{q})[0])
}

// quoteFor serves a single quote, cache first.
func (s *DashboardServer) quoteFor(r *http.Request, symbol string) (domain.StockQuote, error) {
	if s.cache != nil {
		if q, ok := s.cache.Get(symbol, quoteFreshness); ok {
			return q, nil
		}
	}
	q, err := s.provider.Quote(r.Context(), symbol)
	if err != nil {
		return domain.StockQuote{}, err
	}
	if s.cache != nil {
		if err := s.cache.Put(q); err != nil {
			s.log.Warn("caching quote", "symbol", symbol, "error", err)
		}
	}
	return q, nil
}

func (s *DashboardServer) handleMarketHistory(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeOffline(w, "You are offline, please go online to use Market Overview")
		return
	}

	end := time.Now()
	start := end.AddDate(0, 0, -7)
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := parseHistoryTime(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start time")
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := parseHistoryTime(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end time")
			return
		}
		end = t
	}

	records, err := s.archive.Read(start, end)
	if err != nil {
		s.log.Error("reading market history", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read market history")
		return
	}
	if records == nil {
		records = []marketdata.SnapshotRecord{}
	}
	writeJSON(w, MarketHistoryResponse{Records: records})
}

// parseHistoryTime accepts RFC 3339 or a bare date.
func parseHistoryTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func toStockJSON(quotes []domain.StockQuote) []StockJSON {
	out := make([]StockJSON, len(quotes))
	for i, q := range quotes {
		out[i] = StockJSON(q)
	}
	return out
}
