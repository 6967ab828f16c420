// Package tickercache holds tickers the user has picked but not yet acted
// on. Entries live for ten seconds; a background sweeper prunes them so
// stale picks never linger in the entry panel.
package tickercache

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// TTL is how long a selected ticker stays pending.
const TTL = 10_000 * time.Millisecond

// SweepInterval is how often the background sweeper flushes.
const SweepInterval = time.Second

// Entry is one pending ticker with its selection time in Unix
// milliseconds.
type Entry struct {
	Ticker     string `json:"ticker"`
	SelectedAt int64  `json:"selectedAt"`
}

// Cache is a JSON-file backed expiry cache. Order of insertion is
// preserved. All methods are safe for concurrent use.
type Cache struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
	log  *slog.Logger

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a cache persisted at path.
func New(path string, log *slog.Logger) *Cache {
	return &Cache{
		path: path,
		now:  time.Now,
		log:  log,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// SetClock replaces the time source. Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// load reads the persisted entries. A corrupt or unreadable file resets
// the cache: the file is cleared and an empty list returned.
func (c *Cache) load() []Entry {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.log.Warn("resetting corrupt ticker cache", "path", c.path, "error", err)
		c.persist(nil)
		return nil
	}
	return entries
}

func (c *Cache) persist(entries []Entry) {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		c.log.Warn("persisting ticker cache", "path", c.path, "error", err)
	}
}

// Add records a ticker as pending. The symbol is uppercased; adding one
// already present refreshes nothing and keeps the original position.
func (c *Cache) Add(ticker string) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load()
	for _, e := range entries {
		if e.Ticker == ticker {
			return
		}
	}
	entries = append(entries, Entry{Ticker: ticker, SelectedAt: c.now().UnixMilli()})
	c.persist(entries)
}

// Remove drops a ticker regardless of age.
func (c *Cache) Remove(ticker string) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load()
	kept := entries[:0]
	for _, e := range entries {
		if e.Ticker != ticker {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(entries) {
		c.persist(kept)
	}
}

// Flush prunes expired entries, persists the survivors when anything
// expired, and returns the surviving tickers in insertion order.
func (c *Cache) Flush() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.load()
	nowMS := c.now().UnixMilli()

	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if nowMS-e.SelectedAt < TTL.Milliseconds() {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(entries) {
		c.persist(kept)
	}

	tickers := make([]string, len(kept))
	for i, e := range kept {
		tickers[i] = e.Ticker
	}
	return tickers
}

// StartSweeper runs Flush every SweepInterval until Stop is called. One
// flush runs immediately.
func (c *Cache) StartSweeper() {
	c.started = true
	go func() {
		defer close(c.done)
		c.Flush()
		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				c.Flush()
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit. Safe to call more than
// once, and safe even if the sweeper never started.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	if !c.started {
		return
	}
	select {
	case <-c.done:
	case <-time.After(SweepInterval * 2):
	}
}
