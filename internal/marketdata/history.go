package marketdata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/7tzy/marketview/internal/domain"
)

// SnapshotRecord is the Parquet schema for archived index snapshots.
type SnapshotRecord struct {
	Symbol        string  `parquet:"symbol"`
	Name          string  `parquet:"name"`
	Timestamp     int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Value         float64 `parquet:"value"`
	Change        float64 `parquet:"change"`
	ChangePercent float64 `parquet:"change_percent"`
}

// HistoryArchive appends one record per index to a Parquet file per day,
// keeping a durable trail of every accepted market refresh.
//
// Layout: <DataDir>/history/<YYYY-MM-DD>.parquet
type HistoryArchive struct {
	DataDir string
}

// NewHistoryArchive creates an archive rooted at dataDir.
func NewHistoryArchive(dataDir string) *HistoryArchive {
	return &HistoryArchive{DataDir: dataDir}
}

func (a *HistoryArchive) dayPath(t time.Time) string {
	return filepath.Join(a.DataDir, "history", t.UTC().Format("2006-01-02")+".parquet")
}

// Append records all three indexes of a market-overview snapshot.
func (a *HistoryArchive) Append(md domain.MarketData, at time.Time) error {
	records := make([]SnapshotRecord, 0, 3)
	for _, ix := range []domain.MarketIndex{md.SP500, md.DowJones, md.Nasdaq} {
		if ix.Symbol == "" {
			continue
		}
		records = append(records, SnapshotRecord{
			Symbol:        ix.Symbol,
			Name:          ix.Name,
			Timestamp:     at.UnixMilli(),
			Value:         ix.Value,
			Change:        ix.Change,
			ChangePercent: ix.ChangePercent,
		})
	}
	if len(records) == 0 {
		return nil
	}

	path := a.dayPath(at)
	existing, _ := readParquetFile[SnapshotRecord](path)
	merged := mergeSnapshotRecords(existing, records)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing history for %s: %w", at.UTC().Format("2006-01-02"), err)
	}
	return nil
}

// Read returns archived records with timestamps in [start, end], ordered by
// time. Days with no archive file are skipped.
func (a *HistoryArchive) Read(start, end time.Time) ([]SnapshotRecord, error) {
	var out []SnapshotRecord
	for d := start.UTC().Truncate(24 * time.Hour); !d.After(end); d = d.AddDate(0, 0, 1) {
		records, err := readParquetFile[SnapshotRecord](a.dayPath(d))
		if err != nil {
			continue
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp)
			if (ts.Equal(start) || ts.After(start)) && (ts.Equal(end) || ts.Before(end)) {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeSnapshotRecords deduplicates by (symbol, timestamp), preferring new
// records over existing ones.
func mergeSnapshotRecords(existing, incoming []SnapshotRecord) []SnapshotRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]SnapshotRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]SnapshotRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
