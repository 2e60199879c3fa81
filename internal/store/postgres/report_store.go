package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// ReportStore implements domain.ReportStore using PostgreSQL.
type ReportStore struct {
	pool *pgxpool.Pool
}

// NewReportStore creates a new ReportStore backed by the given connection pool.
func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Insert persists the score report of a completed run.
func (s *ReportStore) Insert(ctx context.Context, runID, strategy string, r domain.ScoreReport) error {
	const query = `
		INSERT INTO score_reports (
			run_id, strategy,
			initial_equity, final_equity, abs_pnl, pct_pnl,
			annualized_return, annualized_volatility, sharpe, max_drawdown,
			turnover, fees_paid, trade_count, score
		) VALUES (
			$1, $2,
			$3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14
		)`

	_, err := s.pool.Exec(ctx, query,
		runID, strategy,
		r.InitialEquity, r.FinalEquity, r.AbsPnL, r.PctPnL,
		r.AnnualizedReturn, r.AnnualizedVolatility, r.Sharpe, r.MaxDrawdown,
		r.Turnover, r.FeesPaid, r.TradeCount, r.Score,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert score report %s: %w", runID, err)
	}
	return nil
}

// GetLatest returns the most recent score report for a strategy. It returns
// domain.ErrNotFound when the strategy has never been scored.
func (s *ReportStore) GetLatest(ctx context.Context, strategy string) (domain.ScoreReport, error) {
	const query = `
		SELECT initial_equity, final_equity, abs_pnl, pct_pnl,
		       annualized_return, annualized_volatility, sharpe, max_drawdown,
		       turnover, fees_paid, trade_count, score
		FROM score_reports
		WHERE strategy = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var r domain.ScoreReport
	err := s.pool.QueryRow(ctx, query, strategy).Scan(
		&r.InitialEquity, &r.FinalEquity, &r.AbsPnL, &r.PctPnL,
		&r.AnnualizedReturn, &r.AnnualizedVolatility, &r.Sharpe, &r.MaxDrawdown,
		&r.Turnover, &r.FeesPaid, &r.TradeCount, &r.Score,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScoreReport{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ScoreReport{}, fmt.Errorf("postgres: get latest report for %s: %w", strategy, err)
	}
	return r, nil
}

// Compile-time interface check.
var _ domain.ReportStore = (*ReportStore)(nil)
