package ledger

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestLedger(fee float64, balances domain.Balances) *Ledger {
	return New(balances, fee, "fiat", testLogger)
}

func quote(l *Ledger, ts int64, pair string, close float64) {
	l.UpdateMarket(pair, domain.Tick{
		Timestamp: time.Unix(ts, 0).UTC(),
		Symbol:    pair,
		Close:     close,
	})
}

func TestExecuteBuyDebitsQuoteWithFee(t *testing.T) {
	l := newTestLedger(0.01, domain.Balances{"fiat": 1000})
	quote(l, 100, "tok/fiat", 10)

	trade, committed, err := l.Execute(
		domain.OrderRequest{Pair: "tok/fiat", Side: domain.OrderSideBuy, Qty: 5},
		time.Unix(100, 0).UTC(),
	)
	require.NoError(t, err)
	require.True(t, committed)
	assert.NotEmpty(t, trade.ID)

	// cost = 5*10 * (1 + 0.01) = 50.5
	bal := l.Balances()
	assert.InDelta(t, 1000-50.5, bal.Get("fiat"), 1e-9)
	assert.InDelta(t, 5, bal.Get("tok"), 1e-9)
	assert.InDelta(t, 50.5, l.Turnover(), 1e-9)
	assert.InDelta(t, 0.5, l.FeesPaid(), 1e-9)
	assert.Equal(t, int64(1), l.TradeCount())
}

func TestExecuteSellCreditsQuoteNetOfFee(t *testing.T) {
	l := newTestLedger(0.01, domain.Balances{"fiat": 0, "tok": 10})
	quote(l, 100, "tok/fiat", 10)

	_, committed, err := l.Execute(
		domain.OrderRequest{Pair: "tok/fiat", Side: domain.OrderSideSell, Qty: 4},
		time.Unix(100, 0).UTC(),
	)
	require.NoError(t, err)
	require.True(t, committed)

	// proceeds = 4*10 * (1 - 0.01) = 39.6
	bal := l.Balances()
	assert.InDelta(t, 39.6, bal.Get("fiat"), 1e-9)
	assert.InDelta(t, 6, bal.Get("tok"), 1e-9)
	assert.InDelta(t, 40, l.Turnover(), 1e-9)
	assert.InDelta(t, 0.4, l.FeesPaid(), 1e-9)
}

func TestRoundTripLosesExactlyFees(t *testing.T) {
	const fee = 0.003
	l := newTestLedger(fee, domain.Balances{"fiat": 1000})
	quote(l, 100, "tok/fiat", 20)

	ts := time.Unix(100, 0).UTC()
	_, committed, err := l.Execute(domain.OrderRequest{Pair: "tok/fiat", Side: domain.OrderSideBuy, Qty: 3}, ts)
	require.NoError(t, err)
	require.True(t, committed)
	_, committed, err = l.Execute(domain.OrderRequest{Pair: "tok/fiat", Side: domain.OrderSideSell, Qty: 3}, ts)
	require.NoError(t, err)
	require.True(t, committed)

	// Buying and selling the same quantity at the same price returns the
	// balances minus two fee legs: 2 * qty * price * fee.
	bal := l.Balances()
	assert.InDelta(t, 1000-2*3*20*fee, bal.Get("fiat"), 1e-9)
	assert.InDelta(t, 0, bal.Get("tok"), 1e-9)
	assert.InDelta(t, 2*3*20*fee, l.FeesPaid(), 1e-9)
}

func TestExecuteBuyInsufficientQuoteIsDropped(t *testing.T) {
	l := newTestLedger(0, domain.Balances{"fiat": 100})
	quote(l, 100, "tok/fiat", 50)

	_, committed, err := l.Execute(
		domain.OrderRequest{Pair: "tok/fiat", Side: domain.OrderSideBuy, Qty: 3},
		time.Unix(100, 0).UTC(),
	)
	require.NoError(t, err)
	assert.False(t, committed)

	bal := l.Balances()
	assert.Equal(t, 100.0, bal.Get("fiat"))
	assert.Zero(t, l.TradeCount())
	assert.Zero(t, l.Turnover())
	assert.Empty(t, l.Trades())
}

func TestExecuteSellInsufficientBaseIsDropped(t *testing.T) {
	l := newTestLedger(0, domain.Balances{"fiat": 0, "tok": 1})
	quote(l, 100, "tok/fiat", 50)

	_, committed, err := l.Execute(
		domain.OrderRequest{Pair: "tok/fiat", Side: domain.OrderSideSell, Qty: 2},
		time.Unix(100, 0).UTC(),
	)
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Equal(t, 1.0, l.Balances().Get("tok"))
}

func TestExecuteUnpricedPairIsDropped(t *testing.T) {
	l := newTestLedger(0, domain.Balances{"fiat": 1000})

	_, committed, err := l.Execute(
		domain.OrderRequest{Pair: "ghost/fiat", Side: domain.OrderSideBuy, Qty: 1},
		time.Unix(100, 0).UTC(),
	)
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Equal(t, 1000.0, l.Balances().Get("fiat"))
}

func TestExecuteInvalidOrderIsFatal(t *testing.T) {
	l := newTestLedger(0, domain.Balances{"fiat": 1000})
	quote(l, 100, "tok/fiat", 10)

	for _, order := range []domain.OrderRequest{
		{Pair: "nokanji", Side: domain.OrderSideBuy, Qty: 1},
		{Pair: "tok/fiat", Side: "hold", Qty: 1},
		{Pair: "tok/fiat", Side: domain.OrderSideBuy, Qty: 0},
		{Pair: "tok/fiat", Side: domain.OrderSideSell, Qty: -1},
	} {
		_, committed, err := l.Execute(order, time.Unix(100, 0).UTC())
		require.ErrorIs(t, err, domain.ErrInvalidOrder, "order %+v", order)
		assert.False(t, committed)
	}
	assert.Zero(t, l.TradeCount())
}

func TestTurnoverGrowsMonotonically(t *testing.T) {
	l := newTestLedger(0.001, domain.Balances{"fiat": 10000, "tok": 100})
	quote(l, 100, "tok/fiat", 10)

	ts := time.Unix(100, 0).UTC()
	prev := 0.0
	for i := 0; i < 5; i++ {
		side := domain.OrderSideBuy
		if i%2 == 1 {
			side = domain.OrderSideSell
		}
		_, committed, err := l.Execute(domain.OrderRequest{Pair: "tok/fiat", Side: side, Qty: 1}, ts)
		require.NoError(t, err)
		require.True(t, committed)
		assert.Greater(t, l.Turnover(), prev)
		prev = l.Turnover()
	}
}

func TestBalancesReturnsCopy(t *testing.T) {
	l := newTestLedger(0, domain.Balances{"fiat": 100})
	bal := l.Balances()
	bal["fiat"] = 0
	assert.Equal(t, 100.0, l.Balances().Get("fiat"))
}

func TestUpdateMarketSamplesEquityPerTimestamp(t *testing.T) {
	l := newTestLedger(0, domain.Balances{"fiat": 100, "a": 1, "b": 1})

	// Two updates within one snapshot collapse to a single fully-applied point.
	quote(l, 100, "a/fiat", 10)
	quote(l, 100, "b/fiat", 20)
	quote(l, 200, "a/fiat", 12)

	curve := l.EquityCurve()
	require.Len(t, curve, 2)
	assert.Equal(t, time.Unix(100, 0).UTC(), curve[0].Timestamp)
	assert.InDelta(t, 100+10+20, curve[0].Equity, 1e-9)
	assert.InDelta(t, 100+12+20, curve[1].Equity, 1e-9)
}

func TestFirstAndLastPrice(t *testing.T) {
	l := newTestLedger(0, domain.Balances{"fiat": 100})
	quote(l, 100, "tok/fiat", 10)
	quote(l, 200, "tok/fiat", 15)

	first, ok := l.FirstPrice("tok/fiat")
	require.True(t, ok)
	assert.Equal(t, 10.0, first)

	last, ok := l.LastPrice("tok/fiat")
	require.True(t, ok)
	assert.Equal(t, 15.0, last)

	_, ok = l.LastPrice("ghost/fiat")
	assert.False(t, ok)
}
