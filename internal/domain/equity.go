package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// EquityPoint is the total portfolio value in the reference currency at a
// point in time. The ordered sequence of points is the equity curve:
// append-only, one point per distinct timestamp (same-timestamp updates
// collapse to the last one computed).
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// ScoreReport is the fixed set of metrics computed once per completed run.
// Sharpe is NaN when the annualized volatility is zero; that is a legitimate
// degenerate outcome, not an error.
type ScoreReport struct {
	InitialEquity        float64
	FinalEquity          float64
	AbsPnL               float64
	PctPnL               float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	Sharpe               float64
	MaxDrawdown          float64
	Turnover             float64
	FeesPaid             float64
	TradeCount           int64
	Score                float64
}

// MarshalJSON renders the report with NaN and infinite metrics as null, since
// encoding/json refuses raw non-finite floats.
func (r ScoreReport) MarshalJSON() ([]byte, error) {
	metrics := r.Metrics()
	out := make(map[string]json.RawMessage, len(metrics))
	for name, v := range metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[name] = json.RawMessage("null")
			continue
		}
		out[name] = json.RawMessage(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return json.Marshal(out)
}

// Metrics flattens the report into a named float mapping, the shape used for
// caching and API responses.
func (r ScoreReport) Metrics() map[string]float64 {
	return map[string]float64{
		"initial_equity":        r.InitialEquity,
		"final_equity":          r.FinalEquity,
		"abs_pnl":               r.AbsPnL,
		"pct_pnl":               r.PctPnL,
		"annualized_return":     r.AnnualizedReturn,
		"annualized_volatility": r.AnnualizedVolatility,
		"sharpe":                r.Sharpe,
		"max_drawdown":          r.MaxDrawdown,
		"turnover":              r.Turnover,
		"fees_paid":             r.FeesPaid,
		"trade_count":           float64(r.TradeCount),
		"score":                 r.Score,
	}
}
