package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// InsertBatch inserts the committed trade ledger of a run using pgx Batch.
// Re-inserting a trade with the same ID is silently skipped, so archiving a
// run twice is harmless.
func (s *TradeStore) InsertBatch(ctx context.Context, runID string, trades []domain.ExecutedTrade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO trades (id, run_id, timestamp, pair, side, qty)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	for _, t := range trades {
		batch.Queue(query, t.ID, runID, t.Timestamp, t.Pair, string(t.Side), t.Qty)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListByRun returns the trade ledger of a run in execution order.
func (s *TradeStore) ListByRun(ctx context.Context, runID string) ([]domain.ExecutedTrade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, timestamp, pair, side, qty FROM trades WHERE run_id = $1 ORDER BY timestamp ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by run: %w", err)
	}
	defer rows.Close()

	var trades []domain.ExecutedTrade
	for rows.Next() {
		var t domain.ExecutedTrade
		var side string
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Pair, &side, &t.Qty); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Side = domain.OrderSide(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
