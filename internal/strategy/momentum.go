package strategy

import (
	"github.com/alanyoungcy/backtestbot/internal/domain"
)

const defaultLookback = 20

// Momentum buys a pair when the price trades above its rolling mean and
// sells when it trades below, one decision per direct pair per timestamp.
type Momentum struct {
	cfg      Config
	windows  map[string]*Window
	lookback int
}

// NewMomentum creates a Momentum strategy. cfg.Params keys:
//
//   - "lookback" (int): rolling mean window length. Defaults to 20.
func NewMomentum(cfg Config) *Momentum {
	return &Momentum{
		cfg:      cfg,
		windows:  make(map[string]*Window),
		lookback: paramInt(cfg.Params, "lookback", defaultLookback),
	}
}

// Name returns the strategy identifier.
func (m *Momentum) Name() string { return "momentum" }

// OnData compares each pair's latest close against its rolling mean.
func (m *Momentum) OnData(snap domain.MarketSnapshot, balances domain.Balances) []domain.OrderRequest {
	var orders []domain.OrderRequest
	for _, pair := range m.cfg.Pairs {
		tick, ok := snap.Pair(pair)
		if !ok {
			continue
		}
		w, ok := m.windows[pair]
		if !ok {
			w = NewWindow(m.lookback)
			m.windows[pair] = w
		}
		w.Push(tick.Close)
		if !w.Full() {
			continue
		}

		ma := w.Mean()
		qty := m.cfg.Qty(pair)
		base, _, _ := domain.SplitPair(pair)

		if tick.Close > ma {
			if balances.Get(m.cfg.Reference) >= qty*tick.Close*(1+snap.Fee) {
				orders = append(orders, domain.OrderRequest{Pair: pair, Side: domain.OrderSideBuy, Qty: qty})
			}
		} else if sell := min(qty, balances.Get(base)); sell > 0 {
			orders = append(orders, domain.OrderRequest{Pair: pair, Side: domain.OrderSideSell, Qty: sell})
		}
	}
	return orders
}
