package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// requiredColumns are the columns every tick table must provide.
var requiredColumns = []string{"timestamp", "symbol", "open", "high", "low", "close", "volume"}

// timestampLayouts are tried in order when a timestamp cell is not a plain
// Unix-seconds integer.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ReadTicks parses a CSV tick table from r. The header row must contain all
// required columns (extra columns are ignored); a missing column or an empty
// table is a fatal input error.
func ReadTicks(r io.Reader) ([]domain.Tick, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("feed: %w", domain.ErrEmptyFeed)
	}
	if err != nil {
		return nil, fmt.Errorf("feed: read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("feed: %w: %s", domain.ErrMissingColumn, col)
		}
	}

	var ticks []domain.Tick
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("feed: read row %d: %w", line, err)
		}

		ts, err := parseTimestamp(rec[idx["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("feed: row %d: %w", line, err)
		}
		tick := domain.Tick{Timestamp: ts, Symbol: strings.TrimSpace(rec[idx["symbol"]])}

		for col, dst := range map[string]*float64{
			"open":   &tick.Open,
			"high":   &tick.High,
			"low":    &tick.Low,
			"close":  &tick.Close,
			"volume": &tick.Volume,
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("feed: row %d: parse %s: %w", line, col, err)
			}
			*dst = v
		}
		ticks = append(ticks, tick)
	}

	if len(ticks) == 0 {
		return nil, fmt.Errorf("feed: %w", domain.ErrEmptyFeed)
	}
	return ticks, nil
}

// ReadTicksFile reads and parses the tick table at path.
func ReadTicksFile(path string) ([]domain.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTicks(f)
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", s)
}
