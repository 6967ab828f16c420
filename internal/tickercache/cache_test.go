package tickercache

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T) (*Cache, *time.Time) {
	t.Helper()
	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	now := base
	c := New(filepath.Join(t.TempDir(), "cache.json"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.SetClock(func() time.Time { return now })
	return c, &now
}

func TestAddUppercasesAndFlushReturns(t *testing.T) {
	c, _ := newTestCache(t)

	c.Add("aapl")
	got := c.Flush()
	if len(got) != 1 || got[0] != "AAPL" {
		t.Errorf("Flush = %v, want [AAPL]", got)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	c, _ := newTestCache(t)

	c.Add("AAPL")
	c.Add("aapl")
	c.Add(" AAPL ")
	if got := c.Flush(); len(got) != 1 {
		t.Errorf("Flush = %v, want one entry", got)
	}
}

func TestFlushPreservesInsertionOrder(t *testing.T) {
	c, _ := newTestCache(t)

	c.Add("MSFT")
	c.Add("AAPL")
	c.Add("TSLA")
	got := c.Flush()
	want := []string{"MSFT", "AAPL", "TSLA"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Flush = %v, want %v", got, want)
		}
	}
}

func TestExpiryBoundary(t *testing.T) {
	c, now := newTestCache(t)
	base := *now

	c.Add("AAPL")

	// One millisecond before the deadline: still present.
	*now = base.Add(9999 * time.Millisecond)
	if got := c.Flush(); len(got) != 1 {
		t.Errorf("at T+9999ms Flush = %v, want [AAPL]", got)
	}

	// Past the deadline: gone.
	*now = base.Add(10001 * time.Millisecond)
	if got := c.Flush(); len(got) != 0 {
		t.Errorf("at T+10001ms Flush = %v, want empty", got)
	}
}

func TestFlushPrunesOnlyExpired(t *testing.T) {
	c, now := newTestCache(t)
	base := *now

	c.Add("OLD")
	*now = base.Add(8 * time.Second)
	c.Add("NEW")

	*now = base.Add(11 * time.Second)
	got := c.Flush()
	if len(got) != 1 || got[0] != "NEW" {
		t.Errorf("Flush = %v, want [NEW]", got)
	}
}

func TestRemove(t *testing.T) {
	c, _ := newTestCache(t)

	c.Add("AAPL")
	c.Add("MSFT")
	c.Remove("aapl")
	got := c.Flush()
	if len(got) != 1 || got[0] != "MSFT" {
		t.Errorf("Flush = %v, want [MSFT]", got)
	}
}

func TestCorruptFileResets(t *testing.T) {
	c, _ := newTestCache(t)

	c.Add("AAPL")
	if err := os.WriteFile(c.path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := c.Flush(); len(got) != 0 {
		t.Errorf("Flush after corruption = %v, want empty", got)
	}
	// The persisted value is cleared too.
	data, err := os.ReadFile(c.path)
	if err != nil {
		t.Fatalf("reading cache file: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("persisted value = %q, want []", data)
	}
}

func TestSweeperStop(t *testing.T) {
	c, _ := newTestCache(t)
	c.StartSweeper()
	c.Stop()
	c.Stop() // idempotent
}

func TestStopWithoutStart(t *testing.T) {
	c, _ := newTestCache(t)
	c.Stop()
}
