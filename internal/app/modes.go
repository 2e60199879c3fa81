package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/backtestbot/internal/domain"
	"github.com/alanyoungcy/backtestbot/internal/engine"
	"github.com/alanyoungcy/backtestbot/internal/feed"
	"github.com/alanyoungcy/backtestbot/internal/ledger"
	"github.com/alanyoungcy/backtestbot/internal/score"
	"github.com/alanyoungcy/backtestbot/internal/server"
	"github.com/alanyoungcy/backtestbot/internal/server/handler"
	"github.com/alanyoungcy/backtestbot/internal/server/ws"
	"github.com/alanyoungcy/backtestbot/internal/strategy"
)

// BacktestMode replays the tick table once with the configured strategy,
// scores the run, persists the artifacts, and exits.
func (a *App) BacktestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backtest mode",
		slog.String("strategy", a.cfg.Backtest.Strategy),
	)

	ticks, err := feed.ReadTicksFile(a.cfg.Data.CSVPath)
	if err != nil {
		return fmt.Errorf("app: read ticks: %w", err)
	}

	result, report, err := a.runOne(ctx, a.cfg.Backtest.Strategy, ticks, nil)
	if err != nil {
		if result != nil {
			_ = deps.Notifier.RunFailed(ctx, result.RunID, a.cfg.Backtest.Strategy, err)
		}
		return err
	}

	a.logReport(result, report)

	if a.cfg.Backtest.LedgerPath != "" {
		if err := writeLedgerCSV(a.cfg.Backtest.LedgerPath, result.Trades); err != nil {
			return fmt.Errorf("app: write ledger: %w", err)
		}
		a.logger.InfoContext(ctx, "trade ledger written",
			slog.String("path", a.cfg.Backtest.LedgerPath),
		)
	}

	a.persistRun(ctx, deps, result, report)
	return nil
}

// CompareMode runs every registered strategy over the same tick table in
// parallel, each with its own fresh strategy instance and ledger, then logs a
// ranking by composite score.
func (a *App) CompareMode(ctx context.Context, deps *Dependencies) error {
	names := a.registry.List()
	a.logger.InfoContext(ctx, "starting compare mode",
		slog.Int("strategies", len(names)),
	)

	ticks, err := feed.ReadTicksFile(a.cfg.Data.CSVPath)
	if err != nil {
		return fmt.Errorf("app: read ticks: %w", err)
	}

	type outcome struct {
		name   string
		result *engine.Result
		report domain.ScoreReport
	}

	var mu sync.Mutex
	outcomes := make([]outcome, 0, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			result, report, err := a.runOne(gctx, name, ticks, nil)
			if err != nil {
				return fmt.Errorf("app: compare %s: %w", name, err)
			}
			mu.Lock()
			outcomes = append(outcomes, outcome{name: name, result: result, report: report})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Rank by score, NaN-scored runs last.
	sort.Slice(outcomes, func(i, j int) bool {
		si, sj := outcomes[i].report.Score, outcomes[j].report.Score
		if si != si {
			return false
		}
		if sj != sj {
			return true
		}
		return si > sj
	})

	for rank, o := range outcomes {
		a.logger.InfoContext(ctx, "compare result",
			slog.Int("rank", rank+1),
			slog.String("strategy", o.name),
			slog.String("run_id", o.result.RunID),
			slog.Float64("score", o.report.Score),
			slog.Float64("sharpe", o.report.Sharpe),
			slog.Float64("final_equity", o.report.FinalEquity),
			slog.Int64("trades", o.report.TradeCount),
		)
		a.persistRun(ctx, deps, o.result, o.report)
	}
	return nil
}

// ServeMode runs the configured strategy while streaming equity points over
// WebSocket, then keeps the HTTP API up until the context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode",
		slog.String("addr", a.cfg.Server.Addr),
		slog.String("strategy", a.cfg.Backtest.Strategy),
	)

	ticks, err := feed.ReadTicksFile(a.cfg.Data.CSVPath)
	if err != nil {
		return fmt.Errorf("app: read ticks: %w", err)
	}

	hub := ws.NewHub(a.logger, ws.Config{
		Mode:         a.cfg.Mode,
		StrategyName: a.cfg.Backtest.Strategy,
		StartedAt:    time.Now().UTC(),
	})

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Strategy: handler.NewStrategyHandler(a.registry, a.logger),
		Report:   handler.NewReportHandler(deps.ReportCache, deps.ReportStore, a.logger),
		Run:      handler.NewRunHandler(deps.TradeStore, a.logger),
	}
	srv := server.NewServer(server.Config{
		Addr:        a.cfg.Server.Addr,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		sink := &hubEquitySink{hub: hub, strategy: a.cfg.Backtest.Strategy}
		result, report, err := a.runOne(gctx, a.cfg.Backtest.Strategy, ticks, sink)
		if err != nil {
			a.logger.ErrorContext(gctx, "serve mode run failed",
				slog.String("error", err.Error()),
			)
			if result != nil {
				_ = deps.Notifier.RunFailed(gctx, result.RunID, a.cfg.Backtest.Strategy, err)
			}
			// Keep serving previously persisted results.
			return nil
		}

		a.logReport(result, report)
		for _, trade := range result.Trades {
			hub.PublishTrade(result.RunID, result.Strategy, trade)
		}
		hub.PublishReport(result.RunID, result.Strategy, report)
		a.persistRun(gctx, deps, result, report)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// hubEquitySink bridges the engine's equity stream onto the WebSocket hub.
type hubEquitySink struct {
	hub      *ws.Hub
	strategy string
}

var _ engine.EquitySink = (*hubEquitySink)(nil)

func (s *hubEquitySink) OnEquity(point domain.EquityPoint) {
	s.hub.PublishEquity("", s.strategy, point)
}

// runOne executes a single run: fresh strategy instance, fresh ledger, one
// full replay, one score. The tick slice is copied so concurrent runs never
// share feed state.
func (a *App) runOne(ctx context.Context, name string, ticks []domain.Tick, sink engine.EquitySink) (*engine.Result, domain.ScoreReport, error) {
	factory, err := a.registry.Get(name)
	if err != nil {
		return nil, domain.ScoreReport{}, fmt.Errorf("app: %w", err)
	}
	strat := factory(strategy.Config{
		Reference:  a.cfg.Data.Reference,
		Pairs:      a.cfg.Backtest.Pairs,
		Quantities: a.cfg.Backtest.Quantities,
		Params:     a.cfg.Backtest.Params,
	})

	owned := append([]domain.Tick(nil), ticks...)
	f, err := feed.New(owned, a.cfg.Data.Fee)
	if err != nil {
		return nil, domain.ScoreReport{}, fmt.Errorf("app: build feed: %w", err)
	}

	led := ledger.New(domain.Balances(a.cfg.Data.Balances), a.cfg.Data.Fee, a.cfg.Data.Reference, a.logger)

	eng := engine.New(f, strat, led, a.logger)
	if sink != nil {
		eng.SetEquitySink(sink)
	}

	result, err := eng.Run(ctx)
	if err != nil {
		return nil, domain.ScoreReport{}, err
	}

	calc := score.Calculator{
		Fee:          a.cfg.Data.Fee,
		Reference:    a.cfg.Data.Reference,
		RiskFreeRate: a.cfg.Backtest.RiskFreeRate,
	}
	report, err := calc.Score(owned, result.Trades, result.InitialBalances)
	if err != nil {
		return result, domain.ScoreReport{}, fmt.Errorf("app: score run %s: %w", result.RunID, err)
	}

	return result, report, nil
}

// persistRun writes the run's artifacts to every configured backend. Failures
// are logged and tolerated: the run result has already been computed and
// reported, losing a replica does not invalidate it.
func (a *App) persistRun(ctx context.Context, deps *Dependencies, result *engine.Result, report domain.ScoreReport) {
	if deps.TradeStore != nil {
		if err := deps.TradeStore.InsertBatch(ctx, result.RunID, result.Trades); err != nil {
			a.logger.WarnContext(ctx, "trade persistence failed",
				slog.String("run_id", result.RunID),
				slog.String("error", err.Error()),
			)
		}
	}
	if deps.EquityStore != nil {
		if err := deps.EquityStore.InsertBatch(ctx, result.RunID, result.EquityCurve); err != nil {
			a.logger.WarnContext(ctx, "equity persistence failed",
				slog.String("run_id", result.RunID),
				slog.String("error", err.Error()),
			)
		}
	}
	if deps.ReportStore != nil {
		if err := deps.ReportStore.Insert(ctx, result.RunID, result.Strategy, report); err != nil {
			a.logger.WarnContext(ctx, "report persistence failed",
				slog.String("run_id", result.RunID),
				slog.String("error", err.Error()),
			)
		}
	}
	if deps.ReportCache != nil {
		if err := deps.ReportCache.SetReport(ctx, result.Strategy, result.RunID, report); err != nil {
			a.logger.WarnContext(ctx, "report cache update failed",
				slog.String("run_id", result.RunID),
				slog.String("error", err.Error()),
			)
		}
	}
	if deps.Archiver != nil {
		prefix, err := deps.Archiver.ArchiveRun(ctx, result.RunID, result.Strategy, result.Trades, result.EquityCurve, report)
		if err != nil {
			a.logger.WarnContext(ctx, "run archival failed",
				slog.String("run_id", result.RunID),
				slog.String("error", err.Error()),
			)
		} else {
			a.logger.InfoContext(ctx, "run archived",
				slog.String("run_id", result.RunID),
				slog.String("prefix", prefix),
			)
		}
	}
	if err := deps.Notifier.RunCompleted(ctx, result.RunID, result.Strategy, report); err != nil {
		a.logger.WarnContext(ctx, "run notification failed",
			slog.String("run_id", result.RunID),
			slog.String("error", err.Error()),
		)
	}
}

// logReport emits the full metric set of a completed run.
func (a *App) logReport(result *engine.Result, report domain.ScoreReport) {
	attrs := []any{
		slog.String("run_id", result.RunID),
		slog.String("strategy", result.Strategy),
	}
	for name, value := range report.Metrics() {
		attrs = append(attrs, slog.Float64(name, value))
	}
	for _, asset := range result.FinalBalances.Assets() {
		attrs = append(attrs, slog.Float64("balance_"+asset, result.FinalBalances.Get(asset)))
	}
	a.logger.Info("run scored", attrs...)
}

// writeLedgerCSV dumps the committed trades as CSV, one row per trade in
// execution order.
func writeLedgerCSV(path string, trades []domain.ExecutedTrade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "timestamp", "pair", "side", "qty"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.ID,
			t.Timestamp.UTC().Format(time.RFC3339Nano),
			t.Pair,
			string(t.Side),
			strconv.FormatFloat(t.Qty, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
