package domain

import (
	"fmt"
	"time"
)

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderRequest is a strategy's request to trade against the current snapshot.
// A buy acquires Qty of the base asset paying in the quote asset; a sell is
// the inverse. Quote is usually the reference currency but may be another
// asset (triangular trades).
type OrderRequest struct {
	Pair string
	Side OrderSide
	Qty  float64
}

// Validate checks that the request is well formed: a parseable pair symbol, a
// supported side, and a strictly positive quantity. A malformed request is a
// fatal input error for the engine, not a skippable condition.
func (o OrderRequest) Validate() error {
	if _, _, ok := SplitPair(o.Pair); !ok {
		return fmt.Errorf("%w: bad pair %q", ErrInvalidOrder, o.Pair)
	}
	if o.Side != OrderSideBuy && o.Side != OrderSideSell {
		return fmt.Errorf("%w: unsupported side %q", ErrInvalidOrder, o.Side)
	}
	if o.Qty <= 0 {
		return fmt.Errorf("%w: non-positive qty %v", ErrInvalidOrder, o.Qty)
	}
	return nil
}

// ExecutedTrade is a committed order: the request augmented with a globally
// unique ID and the execution timestamp. Trades live on an append-only
// ledger and are never mutated or removed.
type ExecutedTrade struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Pair      string    `json:"pair"`
	Side      OrderSide `json:"side"`
	Qty       float64   `json:"qty"`
}
