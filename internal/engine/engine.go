// Package engine runs the chronological market-data replay loop: snapshots
// flow from the feed to the strategy, resulting orders flow into the ledger.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanyoungcy/backtestbot/internal/domain"
	"github.com/alanyoungcy/backtestbot/internal/feed"
	"github.com/alanyoungcy/backtestbot/internal/ledger"
	"github.com/alanyoungcy/backtestbot/internal/strategy"
)

// EquitySink receives each equity point as soon as a snapshot's market
// updates have been applied. Used to stream live equity to dashboards; nil
// sinks are fine.
type EquitySink interface {
	OnEquity(point domain.EquityPoint)
}

// Result is the outcome of one completed run.
type Result struct {
	RunID           string
	Strategy        string
	Trades          []domain.ExecutedTrade
	EquityCurve     []domain.EquityPoint
	InitialBalances domain.Balances
	FinalBalances   domain.Balances
	Turnover        float64
	FeesPaid        float64
	TradeCount      int64
}

// Engine drives one backtest run. A run is strictly sequential: within a
// snapshot all per-pair market updates are applied before the strategy is
// invoked, and all orders from one invocation are executed before the next
// timestamp is processed. The engine owns the strategy instance for the
// duration of the run and never calls it concurrently or out of order.
type Engine struct {
	feed   *feed.Feed
	strat  strategy.Strategy
	ledger *ledger.Ledger
	sink   EquitySink
	logger *slog.Logger
}

// New creates an Engine over the given feed, strategy instance, and ledger.
func New(f *feed.Feed, strat strategy.Strategy, l *ledger.Ledger, logger *slog.Logger) *Engine {
	return &Engine{
		feed:   f,
		strat:  strat,
		ledger: l,
		logger: logger.With(
			slog.String("component", "engine"),
			slog.String("strategy", strat.Name()),
		),
	}
}

// SetEquitySink attaches a sink that receives equity points during the run.
func (e *Engine) SetEquitySink(sink EquitySink) {
	e.sink = sink
}

// Run replays the feed to completion. A run is atomic: it either completes
// or fails outright; there is no retry policy. An order with an unsupported
// side or non-positive quantity aborts the run, while unpriced or underfunded
// orders are dropped silently and never block subsequent timestamps.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	initial := e.ledger.Balances()

	e.logger.Info("run started",
		slog.String("run_id", runID),
		slog.Int("ticks", e.feed.Len()),
	)

	for e.feed.Next() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("engine: run %s: %w", runID, err)
		}
		snap := e.feed.Snapshot()
		e.logger.Debug("snapshot",
			slog.Time("timestamp", snap.Timestamp),
			slog.Any("pairs", snap.SortedPairs()),
		)

		for _, pair := range snap.Pairs {
			e.ledger.UpdateMarket(pair, snap.Ticks[pair])
		}
		if e.sink != nil {
			if curve := e.ledger.EquityCurve(); len(curve) > 0 {
				e.sink.OnEquity(curve[len(curve)-1])
			}
		}

		orders := e.strat.OnData(snap, e.ledger.Balances())
		for _, order := range orders {
			if _, _, err := e.ledger.Execute(order, snap.Timestamp); err != nil {
				return nil, fmt.Errorf("engine: run %s at %s: %w", runID, snap.Timestamp, err)
			}
		}
	}

	result := &Result{
		RunID:           runID,
		Strategy:        e.strat.Name(),
		Trades:          e.ledger.Trades(),
		EquityCurve:     e.ledger.EquityCurve(),
		InitialBalances: initial,
		FinalBalances:   e.ledger.Balances(),
		Turnover:        e.ledger.Turnover(),
		FeesPaid:        e.ledger.FeesPaid(),
		TradeCount:      e.ledger.TradeCount(),
	}

	e.logger.Info("run completed",
		slog.String("run_id", runID),
		slog.Int64("trades", result.TradeCount),
		slog.Float64("turnover", result.Turnover),
		slog.Float64("fees_paid", result.FeesPaid),
	)
	return result, nil
}
