package domain

import (
	"sort"
	"strings"
	"time"
)

// Tick is a single observation of one trading pair at one instant. Ticks are
// immutable once read from the input table.
type Tick struct {
	Timestamp time.Time
	Symbol    string // pair identifier, e.g. "token_1/fiat"
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// MarketSnapshot bundles every tick sharing one timestamp together with the
// proportional fee in force for the run. A snapshot is built fresh per
// timestamp by the feed and is never mutated after creation.
type MarketSnapshot struct {
	Timestamp time.Time
	Fee       float64
	Ticks     map[string]Tick

	// Pairs lists the pair symbols in original row order, so consumers that
	// care about deterministic tie-breaking iterate this instead of the map.
	Pairs []string
}

// Pair returns the tick for the given pair symbol and whether it is present
// in this snapshot.
func (s MarketSnapshot) Pair(pair string) (Tick, bool) {
	t, ok := s.Ticks[pair]
	return t, ok
}

// Has reports whether every named pair is quoted in this snapshot.
func (s MarketSnapshot) Has(pairs ...string) bool {
	for _, p := range pairs {
		if _, ok := s.Ticks[p]; !ok {
			return false
		}
	}
	return true
}

// SortedPairs returns the pair symbols in lexical order. Useful for logging
// and stable output; the replay order itself uses Pairs.
func (s MarketSnapshot) SortedPairs() []string {
	out := make([]string, len(s.Pairs))
	copy(out, s.Pairs)
	sort.Strings(out)
	return out
}

// SplitPair splits a "BASE/QUOTE" pair symbol into its two legs. ok is false
// when the symbol does not contain exactly one separator.
func SplitPair(pair string) (base, quote string, ok bool) {
	base, quote, ok = strings.Cut(pair, "/")
	if !ok || base == "" || quote == "" || strings.Contains(quote, "/") {
		return "", "", false
	}
	return base, quote, true
}
