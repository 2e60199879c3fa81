package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/backtestbot/internal/domain"
	"github.com/alanyoungcy/backtestbot/internal/feed"
	"github.com/alanyoungcy/backtestbot/internal/ledger"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// scriptedStrategy emits a fixed order batch per invocation and records what
// it saw.
type scriptedStrategy struct {
	orders    [][]domain.OrderRequest
	snapshots []domain.MarketSnapshot
	balances  []domain.Balances
	calls     int
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) OnData(snap domain.MarketSnapshot, balances domain.Balances) []domain.OrderRequest {
	s.snapshots = append(s.snapshots, snap)
	s.balances = append(s.balances, balances)
	defer func() { s.calls++ }()
	if s.calls < len(s.orders) {
		return s.orders[s.calls]
	}
	return nil
}

type recordingSink struct {
	points []domain.EquityPoint
}

func (r *recordingSink) OnEquity(p domain.EquityPoint) {
	r.points = append(r.points, p)
}

func buildFeed(t *testing.T, ticks []domain.Tick, fee float64) *feed.Feed {
	t.Helper()
	f, err := feed.New(ticks, fee)
	require.NoError(t, err)
	return f
}

func tickRow(ts int64, symbol string, close float64) domain.Tick {
	return domain.Tick{Timestamp: time.Unix(ts, 0).UTC(), Symbol: symbol, Close: close}
}

func TestRunExecutesOrdersInSnapshotOrder(t *testing.T) {
	f := buildFeed(t, []domain.Tick{
		tickRow(100, "tok/fiat", 10),
		tickRow(200, "tok/fiat", 12),
	}, 0)

	strat := &scriptedStrategy{orders: [][]domain.OrderRequest{
		{{Pair: "tok/fiat", Side: domain.OrderSideBuy, Qty: 2}},
		{{Pair: "tok/fiat", Side: domain.OrderSideSell, Qty: 2}},
	}}
	led := ledger.New(domain.Balances{"fiat": 100}, 0, "fiat", testLogger)
	eng := New(f, strat, led, testLogger)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	assert.Equal(t, "scripted", result.Strategy)
	assert.Equal(t, 2, strat.calls)

	require.Len(t, result.Trades, 2)
	assert.Equal(t, domain.OrderSideBuy, result.Trades[0].Side)
	assert.Equal(t, time.Unix(100, 0).UTC(), result.Trades[0].Timestamp)
	assert.Equal(t, domain.OrderSideSell, result.Trades[1].Side)
	assert.Equal(t, time.Unix(200, 0).UTC(), result.Trades[1].Timestamp)

	// Buy 2 @10, sell 2 @12 with no fees: +4 fiat.
	assert.InDelta(t, 104, result.FinalBalances.Get("fiat"), 1e-9)
	assert.InDelta(t, 0, result.FinalBalances.Get("tok"), 1e-9)
	assert.Equal(t, domain.Balances{"fiat": 100}, result.InitialBalances)
}

func TestRunStrategySeesAppliedMarketAndOwnBalances(t *testing.T) {
	f := buildFeed(t, []domain.Tick{
		tickRow(100, "a/fiat", 1),
		tickRow(100, "b/fiat", 2),
	}, 0.5)

	strat := &scriptedStrategy{}
	led := ledger.New(domain.Balances{"fiat": 100}, 0.5, "fiat", testLogger)
	eng := New(f, strat, led, testLogger)

	_, err := eng.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, strat.snapshots, 1)
	snap := strat.snapshots[0]
	assert.Equal(t, 0.5, snap.Fee)
	assert.Equal(t, []string{"a/fiat", "b/fiat"}, snap.Pairs)

	// Mutating the received balances must not reach the ledger.
	strat.balances[0]["fiat"] = 0
	assert.Equal(t, 100.0, led.Balances().Get("fiat"))
}

func TestRunDropsUnderfundedOrdersSilently(t *testing.T) {
	f := buildFeed(t, []domain.Tick{
		tickRow(100, "tok/fiat", 1000),
		tickRow(200, "tok/fiat", 1000),
	}, 0)

	strat := &scriptedStrategy{orders: [][]domain.OrderRequest{
		{{Pair: "tok/fiat", Side: domain.OrderSideBuy, Qty: 2}}, // costs 2000 > 100
	}}
	led := ledger.New(domain.Balances{"fiat": 100}, 0, "fiat", testLogger)
	eng := New(f, strat, led, testLogger)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.Equal(t, 2, strat.calls, "replay continues past the dropped order")
	assert.Equal(t, 100.0, result.FinalBalances.Get("fiat"))
}

func TestRunAbortsOnInvalidOrder(t *testing.T) {
	f := buildFeed(t, []domain.Tick{tickRow(100, "tok/fiat", 10)}, 0)

	strat := &scriptedStrategy{orders: [][]domain.OrderRequest{
		{{Pair: "tok/fiat", Side: domain.OrderSideBuy, Qty: -1}},
	}}
	led := ledger.New(domain.Balances{"fiat": 100}, 0, "fiat", testLogger)
	eng := New(f, strat, led, testLogger)

	_, err := eng.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestRunHonoursContextCancellation(t *testing.T) {
	f := buildFeed(t, []domain.Tick{
		tickRow(100, "tok/fiat", 10),
		tickRow(200, "tok/fiat", 11),
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	led := ledger.New(domain.Balances{"fiat": 100}, 0, "fiat", testLogger)
	eng := New(f, &scriptedStrategy{}, led, testLogger)

	_, err := eng.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunStreamsEquityToSink(t *testing.T) {
	f := buildFeed(t, []domain.Tick{
		tickRow(100, "tok/fiat", 10),
		tickRow(200, "tok/fiat", 12),
	}, 0)

	sink := &recordingSink{}
	led := ledger.New(domain.Balances{"fiat": 100, "tok": 1}, 0, "fiat", testLogger)
	eng := New(f, &scriptedStrategy{}, led, testLogger)
	eng.SetEquitySink(sink)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.points, 2)
	assert.InDelta(t, 110, sink.points[0].Equity, 1e-9)
	assert.InDelta(t, 112, sink.points[1].Equity, 1e-9)
	assert.Equal(t, result.EquityCurve, sink.points)
}
