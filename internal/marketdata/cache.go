package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/7tzy/marketview/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// SnapshotCache stores the most recent quote per symbol in SQLite so that a
// provider outage serves slightly stale data instead of nothing.
type SnapshotCache struct {
	db *sql.DB
}

// NewSnapshotCache opens (or creates) the cache database at dbPath.
func NewSnapshotCache(dbPath string) (*SnapshotCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	symbol         TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	value          REAL NOT NULL,
	change         REAL NOT NULL,
	change_percent REAL NOT NULL,
	fetched_at     INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating quotes table: %w", err)
	}
	return &SnapshotCache{db: db}, nil
}

// Close closes the underlying database connection.
func (c *SnapshotCache) Close() error {
	return c.db.Close()
}

// Put upserts a quote with the current time as its fetch timestamp.
func (c *SnapshotCache) Put(q domain.StockQuote) error {
	return c.PutAt(q, time.Now())
}

// PutAt upserts a quote with an explicit fetch timestamp.
func (c *SnapshotCache) PutAt(q domain.StockQuote, fetchedAt time.Time) error {
	_, err := c.db.Exec(`
INSERT INTO quotes (symbol, name, value, change, change_percent, fetched_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(symbol) DO UPDATE SET
	name = excluded.name,
	value = excluded.value,
	change = excluded.change,
	change_percent = excluded.change_percent,
	fetched_at = excluded.fetched_at`,
		q.Symbol, q.Name, q.Value, q.Change, q.ChangePercent, fetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("caching quote %s: %w", q.Symbol, err)
	}
	return nil
}

// Get returns the cached quote for symbol if one exists no older than
// maxAge. The second return reports whether a usable entry was found.
func (c *SnapshotCache) Get(symbol string, maxAge time.Duration) (domain.StockQuote, bool) {
	var (
		q         domain.StockQuote
		fetchedAt int64
	)
	err := c.db.QueryRow(`
SELECT symbol, name, value, change, change_percent, fetched_at
FROM quotes WHERE symbol = ?`, symbol).
		Scan(&q.Symbol, &q.Name, &q.Value, &q.Change, &q.ChangePercent, &fetchedAt)
	if err != nil {
		return domain.StockQuote{}, false
	}
	if time.Since(time.UnixMilli(fetchedAt)) > maxAge {
		return domain.StockQuote{}, false
	}
	return q, true
}
