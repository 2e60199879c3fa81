package strategy

import (
	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// pushWindows records the snapshot's closes into the per-pair rolling
// windows, creating windows lazily for the configured direct pairs and any
// cross pairs that actually trade. It reports whether every direct pair's
// window is warm; cross-pair windows never gate warm-up since a cross pair
// may legitimately be absent from the data.
func pushWindows(windows map[string]*Window, size int, cfg Config, snap domain.MarketSnapshot) bool {
	tracked := append(append([]string{}, cfg.Pairs...), crossPairs(cfg)...)
	for _, pair := range tracked {
		tick, ok := snap.Pair(pair)
		if !ok {
			continue
		}
		w, ok := windows[pair]
		if !ok {
			w = NewWindow(size)
			windows[pair] = w
		}
		w.Push(tick.Close)
	}

	for _, pair := range cfg.Pairs {
		w, ok := windows[pair]
		if !ok || !w.Full() {
			return false
		}
	}
	return true
}

// arbitrageOrders emits triangular arbitrage trades: when a cross pair a/b is
// quoted and both direct legs a/ref and b/ref are quoted in the same
// snapshot, the implied cross price is close(a/ref)/close(b/ref). A quoted
// cross price below the implied price (beyond margin) is a cheap way to
// acquire a paying b; above it, a is sold for b.
func arbitrageOrders(cfg Config, snap domain.MarketSnapshot, balances domain.Balances, margin float64, qty func(pair string) float64) []domain.OrderRequest {
	var orders []domain.OrderRequest
	for _, cross := range crossPairs(cfg) {
		tick, ok := snap.Pair(cross)
		if !ok {
			continue
		}
		base, quote, _ := domain.SplitPair(cross)
		baseSym, quoteSym := base+"/"+cfg.Reference, quote+"/"+cfg.Reference
		if !snap.Has(baseSym, quoteSym) {
			continue
		}
		baseLeg, _ := snap.Pair(baseSym)
		quoteLeg, _ := snap.Pair(quoteSym)
		if quoteLeg.Close == 0 {
			continue
		}

		implied := baseLeg.Close / quoteLeg.Close
		q := qty(cross)

		switch {
		case tick.Close < implied*(1-margin):
			if balances.Get(quote) >= q*tick.Close*(1+snap.Fee) {
				orders = append(orders, domain.OrderRequest{Pair: cross, Side: domain.OrderSideBuy, Qty: q})
			}
		case tick.Close > implied*(1+margin):
			if sell := min(q, balances.Get(base)); sell > 0 {
				orders = append(orders, domain.OrderRequest{Pair: cross, Side: domain.OrderSideSell, Qty: sell})
			}
		}
	}
	return orders
}
