package strategy

import (
	"github.com/alanyoungcy/backtestbot/internal/domain"
)

const (
	defaultMRWindow    = 30
	defaultMRThreshold = 1.5
)

// MeanReversion trades the first configured pair on a z-score band: buy when
// the price is more than threshold standard deviations below the rolling
// mean, sell when it is the same distance above.
type MeanReversion struct {
	cfg       Config
	window    *Window
	threshold float64
}

// NewMeanReversion creates a MeanReversion strategy. cfg.Params keys:
//
//   - "window" (int): rolling window length. Defaults to 30.
//   - "threshold" (float64): band width in standard deviations. Defaults to 1.5.
func NewMeanReversion(cfg Config) *MeanReversion {
	return &MeanReversion{
		cfg:       cfg,
		window:    NewWindow(paramInt(cfg.Params, "window", defaultMRWindow)),
		threshold: paramFloat(cfg.Params, "threshold", defaultMRThreshold),
	}
}

// Name returns the strategy identifier.
func (mr *MeanReversion) Name() string { return "mean_reversion" }

// OnData evaluates the band for the primary pair.
func (mr *MeanReversion) OnData(snap domain.MarketSnapshot, balances domain.Balances) []domain.OrderRequest {
	if len(mr.cfg.Pairs) == 0 {
		return nil
	}
	pair := mr.cfg.Pairs[0]
	tick, ok := snap.Pair(pair)
	if !ok {
		return nil
	}
	mr.window.Push(tick.Close)
	if !mr.window.Full() {
		return nil
	}

	mu, sigma := mr.window.Mean(), mr.window.StdDev()
	price := tick.Close
	qty := mr.cfg.Qty(pair)
	base, _, _ := domain.SplitPair(pair)

	switch {
	case price < mu-mr.threshold*sigma:
		if balances.Get(mr.cfg.Reference) >= qty*price*(1+snap.Fee) {
			return []domain.OrderRequest{{Pair: pair, Side: domain.OrderSideBuy, Qty: qty}}
		}
	case price > mu+mr.threshold*sigma:
		if sell := min(qty, balances.Get(base)); sell > 0 {
			return []domain.OrderRequest{{Pair: pair, Side: domain.OrderSideSell, Qty: sell}}
		}
	}
	return nil
}
