// Package strategy defines the decision interface the backtest engine calls
// into, a registry of strategy factories, and the built-in strategies.
package strategy

import (
	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// Strategy is the contract for trading strategies. OnData is called exactly
// once per timestamp, in timestamp order, single-threaded and synchronously;
// returning no orders is valid. A strategy instance is stateful across calls
// (rolling price windows live on the instance) and is not safe for concurrent
// use: one instance serves exactly one run.
//
// The balances argument is a read-only copy; mutating it has no effect on the
// ledger.
type Strategy interface {
	Name() string
	OnData(snap domain.MarketSnapshot, balances domain.Balances) []domain.OrderRequest
}

// Config holds strategy construction parameters.
type Config struct {
	// Reference is the asset trades are ultimately valued in.
	Reference string
	// Pairs are the direct BASE/reference pairs the strategy trades.
	Pairs []string
	// Quantities overrides the per-pair order quantity.
	Quantities map[string]float64
	// Params carries free-form tuning knobs (windows, thresholds).
	Params map[string]any
}

// Qty returns the configured order quantity for pair, falling back to the
// "order_qty" param and finally to 0.01.
func (c Config) Qty(pair string) float64 {
	if q, ok := c.Quantities[pair]; ok && q > 0 {
		return q
	}
	return paramFloat(c.Params, "order_qty", 0.01)
}

// crossPairs returns the candidate BASE/BASE pair symbols derivable from the
// configured direct pairs, used for triangular arbitrage legs. For pairs
// [a/ref, b/ref] the candidates are a/b and b/a.
func crossPairs(cfg Config) []string {
	bases := make([]string, 0, len(cfg.Pairs))
	for _, p := range cfg.Pairs {
		if base, quote, ok := domain.SplitPair(p); ok && quote == cfg.Reference {
			bases = append(bases, base)
		}
	}
	var out []string
	for _, a := range bases {
		for _, b := range bases {
			if a != b {
				out = append(out, a+"/"+b)
			}
		}
	}
	return out
}

// paramFloat reads a numeric param, tolerating the integer types TOML
// decoding produces.
func paramFloat(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return def
	}
}

// paramInt reads an integer param.
func paramInt(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}
