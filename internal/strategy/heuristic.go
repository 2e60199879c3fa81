package strategy

import (
	"github.com/alanyoungcy/backtestbot/internal/domain"
)

const (
	defaultHeuristicWindow = 25
	defaultMomentumWindow  = 5
	defaultVolMultiplier   = 2.5
	defaultHeuristicMargin = 0.004
	heuristicRSIBuyCeiling = 40
	heuristicRSISellFloor  = 60
)

// Heuristic combines a volatility band, short-horizon momentum, and a
// smoothed RSI filter: it buys a pair only when the price is stretched below
// the band while momentum has already turned up and the RSI is depressed,
// and sells on the mirrored condition. A triangular arbitrage leg runs on
// top with its own margin.
type Heuristic struct {
	cfg            Config
	windows        map[string]*Window
	window         int
	momentumWindow int
	volMultiplier  float64
	arbMargin      float64
	initialized    bool
}

// NewHeuristic creates a Heuristic strategy. cfg.Params keys:
//
//   - "window" (int): band window length. Defaults to 25.
//   - "momentum_window" (int): momentum / RSI horizon. Defaults to 5.
//   - "vol_multiplier" (float64): band width in standard deviations. Defaults to 2.5.
//   - "arb_margin" (float64): triangular mispricing margin. Defaults to 0.004.
func NewHeuristic(cfg Config) *Heuristic {
	return &Heuristic{
		cfg:            cfg,
		windows:        make(map[string]*Window),
		window:         paramInt(cfg.Params, "window", defaultHeuristicWindow),
		momentumWindow: paramInt(cfg.Params, "momentum_window", defaultMomentumWindow),
		volMultiplier:  paramFloat(cfg.Params, "vol_multiplier", defaultVolMultiplier),
		arbMargin:      paramFloat(cfg.Params, "arb_margin", defaultHeuristicMargin),
	}
}

// Name returns the strategy identifier.
func (h *Heuristic) Name() string { return "heuristic" }

// OnData evaluates the band+momentum+RSI filter per direct pair, then the
// arbitrage leg.
func (h *Heuristic) OnData(snap domain.MarketSnapshot, balances domain.Balances) []domain.OrderRequest {
	if !pushWindows(h.windows, h.window, h.cfg, snap) {
		return nil
	}
	if !h.initialized {
		h.initialized = true
		return nil
	}

	var orders []domain.OrderRequest
	for _, pair := range h.cfg.Pairs {
		w, ok := h.windows[pair]
		if !ok || w.Len() <= h.momentumWindow {
			continue
		}
		price := w.Last()
		mu, sigma := w.Mean(), w.StdDev()
		momentum := price - w.At(h.momentumWindow-1)
		rsi := smoothedRSI(w.Values(), h.momentumWindow)
		qty := h.cfg.Qty(pair)
		base, _, _ := domain.SplitPair(pair)

		switch {
		case price < mu-h.volMultiplier*sigma && momentum > 0 && rsi < heuristicRSIBuyCeiling:
			if balances.Get(h.cfg.Reference) >= qty*price*(1+snap.Fee) {
				orders = append(orders, domain.OrderRequest{Pair: pair, Side: domain.OrderSideBuy, Qty: qty})
			}
		case price > mu+h.volMultiplier*sigma && momentum < 0 && rsi > heuristicRSISellFloor:
			if sell := min(qty, balances.Get(base)); sell > 0 {
				orders = append(orders, domain.OrderRequest{Pair: pair, Side: domain.OrderSideSell, Qty: sell})
			}
		}
	}

	orders = append(orders, arbitrageOrders(h.cfg, snap, balances, h.arbMargin, h.cfg.Qty)...)
	return orders
}
