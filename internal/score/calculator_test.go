package score

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func tickAt(ts time.Time, symbol string, close float64) domain.Tick {
	return domain.Tick{Timestamp: ts, Symbol: symbol, Close: close}
}

func tradeAt(ts time.Time, pair string, side domain.OrderSide, qty float64) domain.ExecutedTrade {
	return domain.ExecutedTrade{ID: "t", Timestamp: ts, Pair: pair, Side: side, Qty: qty}
}

func TestScoreEmptyTicks(t *testing.T) {
	c := Calculator{Reference: "fiat"}
	_, err := c.Score(nil, nil, domain.Balances{"fiat": 1000})
	require.ErrorIs(t, err, domain.ErrEmptyFeed)
}

func TestScoreInsufficientHistory(t *testing.T) {
	c := Calculator{Reference: "fiat"}

	// A single timestamp cannot be annualized.
	ticks := []domain.Tick{tickAt(t0, "tok/fiat", 10)}
	_, err := c.Score(ticks, nil, domain.Balances{"fiat": 1000})
	require.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestScoreFeeFreeBuyThenRally(t *testing.T) {
	t1 := t0.AddDate(1, 0, 0) // not exactly one 365-day year, close enough
	ticks := []domain.Tick{
		tickAt(t0, "tok/fiat", 10),
		tickAt(t1, "tok/fiat", 20),
	}
	trades := []domain.ExecutedTrade{
		tradeAt(t0, "tok/fiat", domain.OrderSideBuy, 0.1),
	}

	c := Calculator{Fee: 0, Reference: "fiat"}
	report, err := c.Score(ticks, trades, domain.Balances{"fiat": 1000})
	require.NoError(t, err)

	// Buying 0.1 at 10 without fees leaves equity unchanged at t0; the rally
	// to 20 adds 0.1 * 10 on the position.
	assert.InDelta(t, 1000, report.InitialEquity, 1e-9)
	assert.InDelta(t, 1001, report.FinalEquity, 1e-9)
	assert.InDelta(t, 1, report.AbsPnL, 1e-9)
	assert.InDelta(t, 0.1, report.PctPnL, 1e-9)
	assert.InDelta(t, 1, report.Turnover, 1e-9)
	assert.Zero(t, report.FeesPaid)
	assert.Equal(t, int64(1), report.TradeCount)
	assert.Zero(t, report.MaxDrawdown)

	// A single return means zero sample volatility, which yields a NaN Sharpe
	// and a NaN composite score.
	assert.Zero(t, report.AnnualizedVolatility)
	assert.True(t, math.IsNaN(report.Sharpe))
	assert.True(t, math.IsNaN(report.Score))
}

func TestScoreBuyAccountsForFee(t *testing.T) {
	t1 := t0.AddDate(0, 6, 0)
	ticks := []domain.Tick{
		tickAt(t0, "tok/fiat", 10),
		tickAt(t1, "tok/fiat", 10),
	}
	trades := []domain.ExecutedTrade{
		tradeAt(t0, "tok/fiat", domain.OrderSideBuy, 10),
	}

	c := Calculator{Fee: 0.01, Reference: "fiat"}
	report, err := c.Score(ticks, trades, domain.Balances{"fiat": 1000})
	require.NoError(t, err)

	// cost = 10*10*(1+0.01) = 101, so equity drops by the 1.0 fee leg.
	assert.InDelta(t, 1000, report.InitialEquity, 1e-9)
	assert.InDelta(t, 999, report.FinalEquity, 1e-9)
	assert.InDelta(t, 101, report.Turnover, 1e-9)
	assert.InDelta(t, 1, report.FeesPaid, 1e-9)
}

func TestScoreNoTradesIsFlat(t *testing.T) {
	t1 := t0.AddDate(0, 3, 0)
	ticks := []domain.Tick{
		tickAt(t0, "tok/fiat", 10),
		tickAt(t1, "tok/fiat", 20),
	}

	c := Calculator{Reference: "fiat"}
	report, err := c.Score(ticks, nil, domain.Balances{"fiat": 1000})
	require.NoError(t, err)

	assert.InDelta(t, 1000, report.FinalEquity, 1e-9)
	assert.Zero(t, report.AbsPnL)
	assert.Zero(t, report.Turnover)
	assert.Zero(t, report.MaxDrawdown)
	assert.Zero(t, report.AnnualizedReturn)
}

func TestScoreInitialEquityValuesHoldingsAtFirstClose(t *testing.T) {
	t1 := t0.AddDate(0, 1, 0)
	ticks := []domain.Tick{
		tickAt(t0, "tok/fiat", 10),
		tickAt(t1, "tok/fiat", 10),
	}

	c := Calculator{Reference: "fiat"}
	report, err := c.Score(ticks, nil, domain.Balances{"fiat": 100, "tok": 2})
	require.NoError(t, err)
	assert.InDelta(t, 120, report.InitialEquity, 1e-9)
}

func TestScoreVolatileCurve(t *testing.T) {
	times := []time.Time{
		t0,
		t0.AddDate(0, 3, 0),
		t0.AddDate(0, 6, 0),
		t0.AddDate(0, 9, 0),
	}
	closes := []float64{10, 12, 9, 11}
	ticks := make([]domain.Tick, len(times))
	for i := range times {
		ticks[i] = tickAt(times[i], "tok/fiat", closes[i])
	}

	c := Calculator{Reference: "fiat"}
	report, err := c.Score(ticks, nil, domain.Balances{"fiat": 0, "tok": 1})
	require.NoError(t, err)

	assert.InDelta(t, 10, report.InitialEquity, 1e-9)
	assert.InDelta(t, 11, report.FinalEquity, 1e-9)

	// Peak 12 down to 9.
	assert.InDelta(t, -0.25, report.MaxDrawdown, 1e-9)
	assert.Greater(t, report.AnnualizedVolatility, 0.0)
	assert.False(t, math.IsNaN(report.Sharpe))

	expected := 0.7*report.Sharpe - 0.2*math.Abs(report.MaxDrawdown) - 0.1*(report.Turnover/1_000_000)
	assert.InDelta(t, expected, report.Score, 1e-12)
}

func TestScoreTradeOnStalePriceUsesLastClose(t *testing.T) {
	t1 := t0.AddDate(0, 1, 0)
	t2 := t0.AddDate(0, 2, 0)
	ticks := []domain.Tick{
		tickAt(t0, "tok/fiat", 10),
		tickAt(t1, "other/fiat", 5), // tok not quoted at t1
		tickAt(t2, "tok/fiat", 10),
	}
	trades := []domain.ExecutedTrade{
		tradeAt(t1, "tok/fiat", domain.OrderSideBuy, 1),
	}

	c := Calculator{Reference: "fiat"}
	report, err := c.Score(ticks, trades, domain.Balances{"fiat": 100})
	require.NoError(t, err)

	// The trade executes at tok's last known close of 10.
	assert.Equal(t, int64(1), report.TradeCount)
	assert.InDelta(t, 10, report.Turnover, 1e-9)
	assert.InDelta(t, 100, report.FinalEquity, 1e-9)
}

func TestMaxDrawdownHelpers(t *testing.T) {
	curve := []domain.EquityPoint{
		{Equity: 100}, {Equity: 110}, {Equity: 88}, {Equity: 120}, {Equity: 90},
	}
	dd := maxDrawdown(curve)
	assert.InDelta(t, -0.25, dd, 1e-9) // 120 -> 90

	assert.Zero(t, maxDrawdown([]domain.EquityPoint{{Equity: 1}, {Equity: 2}}))
}

func TestSampleStdDev(t *testing.T) {
	assert.Zero(t, sampleStdDev(nil))
	assert.Zero(t, sampleStdDev([]float64{1}))
	// Sample stddev of {1,2,3,4} is sqrt(5/3).
	assert.InDelta(t, math.Sqrt(5.0/3.0), sampleStdDev([]float64{1, 2, 3, 4}), 1e-12)
}
