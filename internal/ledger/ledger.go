// Package ledger owns portfolio balances and last-known prices, executes
// orders with fee accounting, and tracks the in-run equity curve.
package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// Ledger executes orders against the current market prices. It is the single
// mutable owner of the balances: order execution is the only path that
// changes them. A Ledger is single-owner per run and not safe for concurrent
// use; the replay loop is strictly sequential.
type Ledger struct {
	balances   domain.Balances
	lastPrice  map[string]float64
	firstPrice map[string]float64
	fee        float64
	reference  string

	tracker    *EquityTracker
	trades     []domain.ExecutedTrade
	turnover   float64
	feesPaid   float64
	tradeCount int64

	logger *slog.Logger
}

// New creates a Ledger with the caller-supplied initial balances, a flat
// proportional fee applied to both sides of every pair, and the reference
// asset all equity figures are expressed in.
func New(initial domain.Balances, fee float64, reference string, logger *slog.Logger) *Ledger {
	return &Ledger{
		balances:   initial.Clone(),
		lastPrice:  make(map[string]float64),
		firstPrice: make(map[string]float64),
		fee:        fee,
		reference:  reference,
		tracker:    NewEquityTracker(reference),
		logger:     logger.With(slog.String("component", "ledger")),
	}
}

// UpdateMarket records the tick's close as the last known price for the pair,
// remembers the first observed price for reporting, and samples the equity
// curve at the tick's timestamp. Samples sharing a timestamp collapse to the
// last one, so the externally visible curve never reflects a half-applied
// snapshot.
func (l *Ledger) UpdateMarket(pair string, tick domain.Tick) {
	l.lastPrice[pair] = tick.Close
	if _, seen := l.firstPrice[pair]; !seen {
		l.firstPrice[pair] = tick.Close
	}
	l.tracker.Sample(tick.Timestamp, l.Equity())
}

// Execute attempts to commit the order at the last known close price of its
// pair, stamping committed trades with ts and a fresh ID.
//
// Orders referencing a pair with no known price, and orders whose funding
// precondition fails, are silently dropped: committed is false, balances are
// untouched, and no error is returned. A malformed order (bad pair, side, or
// quantity) is a fatal input error.
func (l *Ledger) Execute(order domain.OrderRequest, ts time.Time) (trade domain.ExecutedTrade, committed bool, err error) {
	if err := order.Validate(); err != nil {
		return domain.ExecutedTrade{}, false, fmt.Errorf("ledger: %w", err)
	}

	price, ok := l.lastPrice[order.Pair]
	if !ok {
		// The market has not quoted this pair yet.
		return domain.ExecutedTrade{}, false, nil
	}
	base, quote, _ := domain.SplitPair(order.Pair)

	notional := order.Qty * price
	feeAmount := notional * l.fee

	switch order.Side {
	case domain.OrderSideBuy:
		cost := notional + feeAmount
		if l.balances[quote] < cost {
			return domain.ExecutedTrade{}, false, nil
		}
		l.balances[quote] -= cost
		l.balances[base] += order.Qty
		l.turnover += cost
	case domain.OrderSideSell:
		if l.balances[base] < order.Qty {
			return domain.ExecutedTrade{}, false, nil
		}
		l.balances[base] -= order.Qty
		l.balances[quote] += notional - feeAmount
		l.turnover += notional
	}

	l.feesPaid += feeAmount
	l.tradeCount++

	trade = domain.ExecutedTrade{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Pair:      order.Pair,
		Side:      order.Side,
		Qty:       order.Qty,
	}
	l.trades = append(l.trades, trade)

	l.logger.Debug("trade committed",
		slog.String("trade_id", trade.ID),
		slog.String("pair", trade.Pair),
		slog.String("side", string(trade.Side)),
		slog.Float64("qty", trade.Qty),
		slog.Float64("price", price),
	)
	return trade, true, nil
}

// Equity returns the current total portfolio value in the reference currency.
func (l *Ledger) Equity() float64 {
	return PortfolioValue(l.balances, l.lastPrice, l.reference)
}

// Balances returns a copy of the current balances. Strategies receive this
// copy and must not be handed the live map.
func (l *Ledger) Balances() domain.Balances {
	return l.balances.Clone()
}

// LastPrice returns the last known close for pair, if any.
func (l *Ledger) LastPrice(pair string) (float64, bool) {
	p, ok := l.lastPrice[pair]
	return p, ok
}

// FirstPrice returns the first observed close for pair, if any.
func (l *Ledger) FirstPrice(pair string) (float64, bool) {
	p, ok := l.firstPrice[pair]
	return p, ok
}

// Trades returns the append-only ledger of committed trades.
func (l *Ledger) Trades() []domain.ExecutedTrade {
	return l.trades
}

// EquityCurve returns the equity points sampled so far.
func (l *Ledger) EquityCurve() []domain.EquityPoint {
	return l.tracker.Curve()
}

// Turnover returns the running sum of absolute notional traded. Buy turnover
// includes the fee (it is part of what the quote leg paid); sell turnover is
// the plain notional.
func (l *Ledger) Turnover() float64 { return l.turnover }

// FeesPaid returns the running sum of fees paid across both sides.
func (l *Ledger) FeesPaid() float64 { return l.feesPaid }

// TradeCount returns the number of committed trades.
func (l *Ledger) TradeCount() int64 { return l.tradeCount }
