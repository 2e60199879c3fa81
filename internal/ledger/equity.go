package ledger

import (
	"sort"
	"time"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// EquityTracker accumulates the equity curve of a run. Timestamps are
// strictly increasing in the curve: sampling the same timestamp twice
// replaces the previous point, so a batch of same-timestamp market updates
// contributes exactly one point computed after the last of them.
type EquityTracker struct {
	reference string
	points    []domain.EquityPoint
}

// NewEquityTracker creates a tracker valuing equity in the reference asset.
func NewEquityTracker(reference string) *EquityTracker {
	return &EquityTracker{reference: reference}
}

// Sample records the equity at ts, collapsing duplicate timestamps to the
// last sample.
func (t *EquityTracker) Sample(ts time.Time, equity float64) {
	if n := len(t.points); n > 0 && t.points[n-1].Timestamp.Equal(ts) {
		t.points[n-1].Equity = equity
		return
	}
	t.points = append(t.points, domain.EquityPoint{Timestamp: ts, Equity: equity})
}

// Curve returns the sampled equity points in timestamp order.
func (t *EquityTracker) Curve() []domain.EquityPoint {
	return t.points
}

// PortfolioValue computes the total value of balances in the reference asset
// given the last known close per pair.
//
// Price resolution per asset: the direct asset/reference pair when known;
// otherwise a triangular route through any other pair with a known cross
// price to the reference asset (both pair orientations are considered, in
// lexical pair order for determinism); otherwise the asset contributes zero,
// its value not being observable yet.
func PortfolioValue(balances domain.Balances, prices map[string]float64, reference string) float64 {
	value := balances.Get(reference)
	for asset, qty := range balances {
		if asset == reference || qty == 0 {
			continue
		}
		if px, ok := resolvePrice(asset, prices, reference); ok {
			value += qty * px
		}
	}
	return value
}

// resolvePrice returns the value of one unit of asset in the reference asset.
func resolvePrice(asset string, prices map[string]float64, reference string) (float64, bool) {
	if px, ok := prices[asset+"/"+reference]; ok {
		return px, true
	}

	pairs := make([]string, 0, len(prices))
	for p := range prices {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)

	for _, pair := range pairs {
		base, quote, ok := domain.SplitPair(pair)
		if !ok {
			continue
		}
		switch {
		case base == asset && quote != reference:
			// asset/X known; route through X/reference.
			if cross, ok := prices[quote+"/"+reference]; ok {
				return prices[pair] * cross, true
			}
		case quote == asset:
			// X/asset known; one asset is 1/price units of X.
			if px := prices[pair]; px != 0 {
				if cross, ok := prices[base+"/"+reference]; ok {
					return cross / px, true
				}
			}
		}
	}
	return 0, false
}
