package strategy

import (
	"github.com/alanyoungcy/backtestbot/internal/domain"
)

const (
	defaultSMAWindow    = 25
	defaultSMAThreshold = 2.1
	defaultArbMargin    = 0.005
)

// SMA trades a volatility band around a simple moving average: buy when the
// price drops below mean - threshold*sigma, sell when it rises above
// mean + threshold*sigma. It additionally takes triangular arbitrage trades
// on a cross pair when its quoted price drifts from the price implied by the
// two direct legs.
type SMA struct {
	cfg         Config
	windows     map[string]*Window
	window      int
	threshold   float64
	arbMargin   float64
	initialized bool
}

// NewSMA creates an SMA strategy. The following keys are read from
// cfg.Params:
//
//   - "window" (int): moving-average window length. Defaults to 25.
//   - "threshold" (float64): band width in standard deviations. Defaults to 2.1.
//   - "arb_margin" (float64): relative mispricing required before taking the
//     triangular leg. Defaults to 0.005.
func NewSMA(cfg Config) *SMA {
	return &SMA{
		cfg:       cfg,
		windows:   make(map[string]*Window),
		window:    paramInt(cfg.Params, "window", defaultSMAWindow),
		threshold: paramFloat(cfg.Params, "threshold", defaultSMAThreshold),
		arbMargin: paramFloat(cfg.Params, "arb_margin", defaultArbMargin),
	}
}

// Name returns the strategy identifier.
func (s *SMA) Name() string { return "sma" }

// OnData records the snapshot into the rolling windows and evaluates the
// band and arbitrage signals once every tracked window is warm.
func (s *SMA) OnData(snap domain.MarketSnapshot, balances domain.Balances) []domain.OrderRequest {
	if !pushWindows(s.windows, s.window, s.cfg, snap) {
		return nil
	}

	// The first warm round only establishes the baseline.
	if !s.initialized {
		s.initialized = true
		return nil
	}

	var orders []domain.OrderRequest
	for _, pair := range s.cfg.Pairs {
		w, ok := s.windows[pair]
		if !ok {
			continue
		}
		price := w.Last()
		mu, sigma := w.Mean(), w.StdDev()
		qty := s.cfg.Qty(pair)
		base, _, _ := domain.SplitPair(pair)

		switch {
		case price < mu-s.threshold*sigma:
			if balances.Get(s.cfg.Reference) >= qty*price*(1+snap.Fee) {
				orders = append(orders, domain.OrderRequest{Pair: pair, Side: domain.OrderSideBuy, Qty: qty})
			}
		case price > mu+s.threshold*sigma:
			if sell := min(qty, balances.Get(base)); sell > 0 {
				orders = append(orders, domain.OrderRequest{Pair: pair, Side: domain.OrderSideSell, Qty: sell})
			}
		}
	}

	orders = append(orders, arbitrageOrders(s.cfg, snap, balances, s.arbMargin, s.cfg.Qty)...)
	return orders
}
