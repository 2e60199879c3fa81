package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// snapWith builds a snapshot from (pair, close) tuples in order.
func snapWith(ts int64, fee float64, quotes ...any) domain.MarketSnapshot {
	snap := domain.MarketSnapshot{
		Timestamp: time.Unix(ts, 0).UTC(),
		Fee:       fee,
		Ticks:     make(map[string]domain.Tick),
	}
	for i := 0; i < len(quotes); i += 2 {
		pair := quotes[i].(string)
		close := quotes[i+1].(float64)
		snap.Pairs = append(snap.Pairs, pair)
		snap.Ticks[pair] = domain.Tick{Timestamp: snap.Timestamp, Symbol: pair, Close: close}
	}
	return snap
}

func smaConfig() Config {
	return Config{
		Reference: "fiat",
		Pairs:     []string{"tok/fiat"},
		Params: map[string]any{
			"window":    2,
			"threshold": 0.5,
			"order_qty": 0.1,
		},
	}
}

func TestSMAWarmUpEmitsNothing(t *testing.T) {
	s := NewSMA(smaConfig())
	balances := domain.Balances{"fiat": 1000}

	// First push: window not full.
	assert.Nil(t, s.OnData(snapWith(100, 0, "tok/fiat", 10.0), balances))
	// Window full, but the first warm round only sets the baseline.
	assert.Nil(t, s.OnData(snapWith(200, 0, "tok/fiat", 10.0), balances))
}

func TestSMABuysBelowBand(t *testing.T) {
	s := NewSMA(smaConfig())
	balances := domain.Balances{"fiat": 1000}

	s.OnData(snapWith(100, 0, "tok/fiat", 10.0), balances)
	s.OnData(snapWith(200, 0, "tok/fiat", 10.0), balances)

	// Window {10, 4}: mean 7, sigma 3, lower band 5.5.
	orders := s.OnData(snapWith(300, 0, "tok/fiat", 4.0), balances)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderSideBuy, orders[0].Side)
	assert.Equal(t, "tok/fiat", orders[0].Pair)
	assert.Equal(t, 0.1, orders[0].Qty)
}

func TestSMASellsAboveBandCappedByHoldings(t *testing.T) {
	s := NewSMA(smaConfig())
	balances := domain.Balances{"fiat": 0, "tok": 0.05}

	s.OnData(snapWith(100, 0, "tok/fiat", 10.0), balances)
	s.OnData(snapWith(200, 0, "tok/fiat", 10.0), balances)

	// Window {10, 16}: mean 13, sigma 3, upper band 14.5.
	orders := s.OnData(snapWith(300, 0, "tok/fiat", 16.0), balances)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderSideSell, orders[0].Side)
	assert.Equal(t, 0.05, orders[0].Qty, "sell is capped at held quantity")
}

func TestSMASkipsUnfundedBuy(t *testing.T) {
	s := NewSMA(smaConfig())
	broke := domain.Balances{"fiat": 0}

	s.OnData(snapWith(100, 0, "tok/fiat", 10.0), broke)
	s.OnData(snapWith(200, 0, "tok/fiat", 10.0), broke)

	orders := s.OnData(snapWith(300, 0, "tok/fiat", 4.0), broke)
	assert.Empty(t, orders)
}

func TestArbitrageOrdersBuyBelowImplied(t *testing.T) {
	cfg := Config{
		Reference: "fiat",
		Pairs:     []string{"a/fiat", "b/fiat"},
	}
	balances := domain.Balances{"fiat": 0, "a": 0, "b": 100}
	qty := func(string) float64 { return 1.0 }

	// Implied a/b = 10/5 = 2; quoted 1.5 is cheap beyond a 1% margin.
	snap := snapWith(100, 0, "a/fiat", 10.0, "b/fiat", 5.0, "a/b", 1.5)
	orders := arbitrageOrders(cfg, snap, balances, 0.01, qty)
	require.Len(t, orders, 1)
	assert.Equal(t, "a/b", orders[0].Pair)
	assert.Equal(t, domain.OrderSideBuy, orders[0].Side)
}

func TestArbitrageOrdersSellAboveImplied(t *testing.T) {
	cfg := Config{
		Reference: "fiat",
		Pairs:     []string{"a/fiat", "b/fiat"},
	}
	balances := domain.Balances{"a": 3}
	qty := func(string) float64 { return 1.0 }

	// Implied a/b = 2; quoted 2.5 is rich, so a is sold for b.
	snap := snapWith(100, 0, "a/fiat", 10.0, "b/fiat", 5.0, "a/b", 2.5)
	orders := arbitrageOrders(cfg, snap, balances, 0.01, qty)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderSideSell, orders[0].Side)
	assert.Equal(t, 1.0, orders[0].Qty)
}

func TestArbitrageOrdersQuietInsideMargin(t *testing.T) {
	cfg := Config{
		Reference: "fiat",
		Pairs:     []string{"a/fiat", "b/fiat"},
	}
	balances := domain.Balances{"fiat": 0, "a": 10, "b": 100}
	qty := func(string) float64 { return 1.0 }

	snap := snapWith(100, 0, "a/fiat", 10.0, "b/fiat", 5.0, "a/b", 2.0)
	assert.Empty(t, arbitrageOrders(cfg, snap, balances, 0.01, qty))
}

func TestMomentumBuysAboveMeanSellsBelow(t *testing.T) {
	m := NewMomentum(Config{
		Reference: "fiat",
		Pairs:     []string{"tok/fiat"},
		Params:    map[string]any{"lookback": 2, "order_qty": 1.0},
	})
	balances := domain.Balances{"fiat": 1000, "tok": 5}

	assert.Empty(t, m.OnData(snapWith(100, 0, "tok/fiat", 10.0), balances))

	// Window {10, 12}: mean 11, price 12 above.
	orders := m.OnData(snapWith(200, 0, "tok/fiat", 12.0), balances)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderSideBuy, orders[0].Side)

	// Window {12, 8}: mean 10, price 8 below.
	orders = m.OnData(snapWith(300, 0, "tok/fiat", 8.0), balances)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderSideSell, orders[0].Side)
}

func TestRegistryRoundTrip(t *testing.T) {
	r := Builtin()
	assert.Equal(t, []string{"heuristic", "macd", "mean_reversion", "momentum", "sma"}, r.List())

	factory, err := r.Get("sma")
	require.NoError(t, err)

	// Each factory call yields an independent instance.
	a := factory(smaConfig())
	b := factory(smaConfig())
	assert.NotSame(t, a, b)

	_, err = r.Get("nope")
	require.Error(t, err)
}
