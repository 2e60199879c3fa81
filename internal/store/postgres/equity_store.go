package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// EquityStore implements domain.EquityStore using PostgreSQL.
type EquityStore struct {
	pool *pgxpool.Pool
}

// NewEquityStore creates a new EquityStore backed by the given connection pool.
func NewEquityStore(pool *pgxpool.Pool) *EquityStore {
	return &EquityStore{pool: pool}
}

// InsertBatch inserts the equity curve of a run. Duplicate (run, timestamp)
// points are skipped.
func (s *EquityStore) InsertBatch(ctx context.Context, runID string, points []domain.EquityPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO equity_points (run_id, timestamp, equity)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, timestamp) DO NOTHING`

	for _, p := range points {
		batch.Queue(query, runID, p.Timestamp, p.Equity)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert equity batch item %d: %w", i, err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.EquityStore = (*EquityStore)(nil)
