// Package feed restructures a flat table of per-asset ticks into
// chronologically ordered, per-timestamp market snapshots.
package feed

import (
	"fmt"
	"sort"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// Feed is a finite, forward-only iterator over market snapshots. Ticks are
// stable-sorted by timestamp (ties keep original row order) and consecutive
// rows sharing a timestamp are grouped into one snapshot. A Feed cannot be
// restarted; build a new one to replay again.
type Feed struct {
	ticks []domain.Tick
	fee   float64
	pos   int
	cur   domain.MarketSnapshot
}

// New builds a Feed over the given tick table with the proportional fee that
// every snapshot will carry. It returns an error when the table is empty.
func New(ticks []domain.Tick, fee float64) (*Feed, error) {
	if len(ticks) == 0 {
		return nil, fmt.Errorf("feed: %w", domain.ErrEmptyFeed)
	}

	sorted := make([]domain.Tick, len(ticks))
	copy(sorted, ticks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	return &Feed{ticks: sorted, fee: fee}, nil
}

// Next advances to the next snapshot. It returns false when the feed is
// exhausted.
func (f *Feed) Next() bool {
	if f.pos >= len(f.ticks) {
		return false
	}

	ts := f.ticks[f.pos].Timestamp
	snap := domain.MarketSnapshot{
		Timestamp: ts,
		Fee:       f.fee,
		Ticks:     make(map[string]domain.Tick),
	}
	for f.pos < len(f.ticks) && f.ticks[f.pos].Timestamp.Equal(ts) {
		t := f.ticks[f.pos]
		if _, seen := snap.Ticks[t.Symbol]; !seen {
			snap.Pairs = append(snap.Pairs, t.Symbol)
		}
		// Duplicate rows for the same pair at the same timestamp collapse to
		// the last one, matching the last-update-wins rule for prices.
		snap.Ticks[t.Symbol] = t
		f.pos++
	}
	f.cur = snap
	return true
}

// Snapshot returns the snapshot produced by the last successful Next call.
func (f *Feed) Snapshot() domain.MarketSnapshot {
	return f.cur
}

// Len returns the total number of ticks behind the feed.
func (f *Feed) Len() int {
	return len(f.ticks)
}
