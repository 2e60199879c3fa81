package domain

import (
	"context"
	"io"
	"time"
)

// TradeStore persists the committed trade ledger of a run.
type TradeStore interface {
	InsertBatch(ctx context.Context, runID string, trades []ExecutedTrade) error
	ListByRun(ctx context.Context, runID string) ([]ExecutedTrade, error)
}

// EquityStore persists the equity curve of a run.
type EquityStore interface {
	InsertBatch(ctx context.Context, runID string, points []EquityPoint) error
}

// ReportStore persists score reports.
type ReportStore interface {
	Insert(ctx context.Context, runID, strategy string, report ScoreReport) error
	GetLatest(ctx context.Context, strategy string) (ScoreReport, error)
}

// ReportCache caches the most recent score report per strategy for fast
// dashboard reads. Implementations return ErrNotFound when nothing is cached.
type ReportCache interface {
	SetReport(ctx context.Context, strategy, runID string, report ScoreReport) error
	GetReport(ctx context.Context, strategy string) (ScoreReport, error)
}

// RateLimiter enforces a sliding request budget per key. Allow reports
// whether the caller identified by key may proceed given a limit of requests
// per window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads a single object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver uploads the full artifact set of a completed run (trade ledger,
// equity curve, score report) to blob storage and returns the key prefix the
// artifacts were written under.
type Archiver interface {
	ArchiveRun(ctx context.Context, runID, strategy string, trades []ExecutedTrade, curve []EquityPoint, report ScoreReport) (string, error)
}
