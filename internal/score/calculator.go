// Package score reconstructs an equity curve from a trade ledger and the raw
// price series, independently of the live run, and computes risk-adjusted
// performance metrics.
package score

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/alanyoungcy/backtestbot/internal/domain"
	"github.com/alanyoungcy/backtestbot/internal/ledger"
)

const secondsPerYear = 365 * 24 * 3600

// Composite score weights: Sharpe dominates, drawdown and turnover penalize.
const (
	sharpeWeight   = 0.7
	drawdownWeight = 0.2
	turnoverWeight = 0.1
	turnoverScale  = 1_000_000.0
)

// Calculator scores a completed run. It deliberately does not trust the
// engine's in-run equity track: everything is recomputed from the trade
// ledger and the raw ticks so a score is reproducible from those two inputs
// alone.
type Calculator struct {
	// Fee is the proportional fee applied to both sides of every pair.
	Fee float64
	// Reference is the asset all equity figures are expressed in.
	Reference string
	// RiskFreeRate is the annual risk-free rate used in the Sharpe ratio.
	RiskFreeRate float64
}

// Score replays the trade ledger against the price series and computes the
// report. It fails with domain.ErrInsufficientHistory when there is not
// enough price history to annualize (zero elapsed time or an empty returns
// series); every other degenerate outcome is encoded in the report itself
// (zero volatility yields a NaN Sharpe).
func (c Calculator) Score(ticks []domain.Tick, trades []domain.ExecutedTrade, initial domain.Balances) (domain.ScoreReport, error) {
	if len(ticks) == 0 {
		return domain.ScoreReport{}, fmt.Errorf("score: %w", domain.ErrEmptyFeed)
	}

	ticksByTime, timestamps := groupTicks(ticks)
	tradesByTime := groupTrades(trades)

	// Initial equity uses only the direct asset/reference prices quoted at
	// the earliest timestamp.
	t0 := timestamps[0]
	initialEquity := initial.Get(c.Reference)
	for asset, qty := range initial {
		if asset == c.Reference {
			continue
		}
		for _, tick := range ticksByTime[t0.UnixNano()] {
			if tick.Symbol == asset+"/"+c.Reference {
				initialEquity += qty * tick.Close
				break
			}
		}
	}

	balances := initial.Clone()
	lastPrice := make(map[string]float64)
	var turnover, feesPaid float64
	var tradeCount int64
	curve := make([]domain.EquityPoint, 0, len(timestamps))

	for _, ts := range timestamps {
		for _, tick := range ticksByTime[ts.UnixNano()] {
			lastPrice[tick.Symbol] = tick.Close
		}

		// Apply every trade stamped with this exact timestamp. Order within
		// the batch does not affect conservation: each trade only touches its
		// own pair's two legs.
		for _, tr := range tradesByTime[ts.UnixNano()] {
			price, ok := lastPrice[tr.Pair]
			if !ok {
				continue
			}
			base, quote, ok := domain.SplitPair(tr.Pair)
			if !ok {
				continue
			}
			notional := tr.Qty * price
			feeAmount := notional * c.Fee
			switch tr.Side {
			case domain.OrderSideBuy:
				balances[quote] -= notional + feeAmount
				balances[base] += tr.Qty
				turnover += notional + feeAmount
			case domain.OrderSideSell:
				balances[base] -= tr.Qty
				balances[quote] += notional - feeAmount
				turnover += notional
			}
			feesPaid += feeAmount
			tradeCount++
		}

		curve = append(curve, domain.EquityPoint{
			Timestamp: ts,
			Equity:    ledger.PortfolioValue(balances, lastPrice, c.Reference),
		})
	}

	returns := pctChange(curve)
	years := curve[len(curve)-1].Timestamp.Sub(curve[0].Timestamp).Seconds() / secondsPerYear
	if years <= 0 || len(returns) == 0 {
		return domain.ScoreReport{}, fmt.Errorf("score: %w", domain.ErrInsufficientHistory)
	}

	finalEquity := curve[len(curve)-1].Equity
	annReturn := math.Pow(finalEquity/curve[0].Equity, 1/years) - 1
	annVol := sampleStdDev(returns) * math.Sqrt(float64(len(returns))/years)

	sharpe := math.NaN()
	if annVol > 0 {
		sharpe = (annReturn - c.RiskFreeRate) / annVol
	}

	maxDD := maxDrawdown(curve)
	absPnL := finalEquity - initialEquity

	return domain.ScoreReport{
		InitialEquity:        initialEquity,
		FinalEquity:          finalEquity,
		AbsPnL:               absPnL,
		PctPnL:               absPnL / initialEquity * 100,
		AnnualizedReturn:     annReturn,
		AnnualizedVolatility: annVol,
		Sharpe:               sharpe,
		MaxDrawdown:          maxDD,
		Turnover:             turnover,
		FeesPaid:             feesPaid,
		TradeCount:           tradeCount,
		Score:                sharpeWeight*sharpe - drawdownWeight*math.Abs(maxDD) - turnoverWeight*(turnover/turnoverScale),
	}, nil
}

// groupTicks indexes ticks by timestamp and returns the distinct timestamps
// in ascending order.
func groupTicks(ticks []domain.Tick) (map[int64][]domain.Tick, []time.Time) {
	byTime := make(map[int64][]domain.Tick)
	for _, t := range ticks {
		key := t.Timestamp.UnixNano()
		byTime[key] = append(byTime[key], t)
	}
	keys := make([]int64, 0, len(byTime))
	for k := range byTime {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	timestamps := make([]time.Time, len(keys))
	for i, k := range keys {
		timestamps[i] = time.Unix(0, k).UTC()
	}
	return byTime, timestamps
}

func groupTrades(trades []domain.ExecutedTrade) map[int64][]domain.ExecutedTrade {
	byTime := make(map[int64][]domain.ExecutedTrade)
	for _, t := range trades {
		key := t.Timestamp.UnixNano()
		byTime[key] = append(byTime[key], t)
	}
	return byTime
}

// pctChange returns the period-over-period percentage change of the curve;
// the first point has no return and is dropped.
func pctChange(curve []domain.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (curve[i].Equity-prev)/prev)
	}
	return out
}

// sampleStdDev is the standard deviation with the n-1 denominator. It returns
// zero for fewer than two observations.
func sampleStdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// maxDrawdown is the deepest relative decline from the running peak, a
// non-positive number (zero when the curve never dips below its peak).
func maxDrawdown(curve []domain.EquityPoint) float64 {
	var maxDD float64
	runningMax := math.Inf(-1)
	for _, p := range curve {
		if p.Equity > runningMax {
			runningMax = p.Equity
		}
		if runningMax > 0 {
			if dd := (p.Equity - runningMax) / runningMax; dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
