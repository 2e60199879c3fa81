package strategy

import (
	"math"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

const (
	defaultFastPeriod   = 12
	defaultSlowPeriod   = 26
	defaultSignalPeriod = 9
	defaultCapitalRisk  = 0.01

	// Hysteresis around the signal line: entries need the MACD 2% above it,
	// exits 2% below, to filter marginal crossovers.
	macdEntryRatio = 1.02
	macdExitRatio  = 0.98
)

// MACD trades EMA-crossover momentum filtered by the MACD signal line, with
// risk-managed position sizing (a fixed fraction of the reference balance per
// entry), plus a triangular arbitrage leg sized the same way.
type MACD struct {
	cfg         Config
	windows     map[string]*Window
	fast        int
	slow        int
	signal      int
	capitalRisk float64
	initialized bool
}

// NewMACD creates a MACD strategy. cfg.Params keys:
//
//   - "fast_period" (int): fast EMA span. Defaults to 12.
//   - "slow_period" (int): slow EMA span. Defaults to 26.
//   - "signal_period" (int): signal-line EMA span. Defaults to 9.
//   - "capital_risk" (float64): fraction of the reference balance allocated
//     per entry. Defaults to 0.01.
func NewMACD(cfg Config) *MACD {
	return &MACD{
		cfg:         cfg,
		windows:     make(map[string]*Window),
		fast:        paramInt(cfg.Params, "fast_period", defaultFastPeriod),
		slow:        paramInt(cfg.Params, "slow_period", defaultSlowPeriod),
		signal:      paramInt(cfg.Params, "signal_period", defaultSignalPeriod),
		capitalRisk: paramFloat(cfg.Params, "capital_risk", defaultCapitalRisk),
	}
}

// Name returns the strategy identifier.
func (m *MACD) Name() string { return "macd" }

// OnData computes MACD and its signal line over the rolling window for each
// direct pair and sizes entries by capital risk.
func (m *MACD) OnData(snap domain.MarketSnapshot, balances domain.Balances) []domain.OrderRequest {
	if !pushWindows(m.windows, m.slow+m.signal, m.cfg, snap) {
		return nil
	}
	if !m.initialized {
		m.initialized = true
		return nil
	}

	var orders []domain.OrderRequest
	fiat := balances.Get(m.cfg.Reference)

	for _, pair := range m.cfg.Pairs {
		w, ok := m.windows[pair]
		if !ok {
			continue
		}
		price := w.Last()
		if price == 0 {
			continue
		}
		macdVal, sigVal := m.macd(w.Values())
		base, _, _ := domain.SplitPair(pair)

		switch {
		case macdVal > sigVal*macdEntryRatio:
			alloc := fiat * m.capitalRisk
			qty := roundQty(alloc / price)
			if qty > 0 && qty*price*(1+snap.Fee) <= fiat {
				orders = append(orders, domain.OrderRequest{Pair: pair, Side: domain.OrderSideBuy, Qty: qty})
			}
		case macdVal < sigVal*macdExitRatio:
			if qty := roundQty(balances.Get(base) * m.capitalRisk); qty > 0 {
				orders = append(orders, domain.OrderRequest{Pair: pair, Side: domain.OrderSideSell, Qty: qty})
			}
		}
	}

	// Arbitrage leg: margin scales with the fee so the edge survives both legs.
	riskQty := func(cross string) float64 {
		_, quote, _ := domain.SplitPair(cross)
		return roundQty(balances.Get(quote) * m.capitalRisk)
	}
	orders = append(orders, arbitrageOrders(m.cfg, snap, balances, snap.Fee*2, riskQty)...)
	return orders
}

// macd returns the latest MACD value and signal-line value over xs.
func (m *MACD) macd(xs []float64) (macdVal, signalVal float64) {
	fast := emaSeries(xs, m.fast)
	slow := emaSeries(xs, m.slow)
	macdSeries := make([]float64, len(xs))
	for i := range xs {
		macdSeries[i] = fast[i] - slow[i]
	}
	sig := emaSeries(macdSeries, m.signal)
	return macdSeries[len(macdSeries)-1], sig[len(sig)-1]
}

// roundQty truncates quantities to 8 decimal places, the precision the
// ledger's quantities are expressed in.
func roundQty(q float64) float64 {
	return math.Round(q*1e8) / 1e8
}
