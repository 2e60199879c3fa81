package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// RunArchiver uploads completed run artifacts (trade ledger, equity curve,
// score report) to object storage under a per-run prefix.
type RunArchiver struct {
	writer *Writer
	logger *slog.Logger
}

var _ domain.Archiver = (*RunArchiver)(nil)

// NewRunArchiver creates a RunArchiver using the given writer.
func NewRunArchiver(writer *Writer, logger *slog.Logger) *RunArchiver {
	return &RunArchiver{
		writer: writer,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveRun serializes and uploads the run's trades and equity curve as
// JSONL and the score report as JSON. It returns the object prefix the
// artifacts were written under.
func (a *RunArchiver) ArchiveRun(
	ctx context.Context,
	runID string,
	strategy string,
	trades []domain.ExecutedTrade,
	curve []domain.EquityPoint,
	report domain.ScoreReport,
) (string, error) {
	prefix := fmt.Sprintf("runs/%s", runID)

	tradesBody, err := encodeJSONL(trades)
	if err != nil {
		return "", fmt.Errorf("s3blob: encode trades: %w", err)
	}
	if err := a.writer.PutMultipart(ctx, prefix+"/trades.jsonl", tradesBody, "application/x-ndjson"); err != nil {
		return "", err
	}

	curveBody, err := encodeJSONL(curve)
	if err != nil {
		return "", fmt.Errorf("s3blob: encode equity curve: %w", err)
	}
	if err := a.writer.PutMultipart(ctx, prefix+"/equity.jsonl", curveBody, "application/x-ndjson"); err != nil {
		return "", err
	}

	reportDoc := struct {
		RunID      string             `json:"run_id"`
		Strategy   string             `json:"strategy"`
		ArchivedAt time.Time          `json:"archived_at"`
		Report     domain.ScoreReport `json:"report"`
	}{
		RunID:      runID,
		Strategy:   strategy,
		ArchivedAt: time.Now().UTC(),
		Report:     report,
	}
	reportBody, err := json.MarshalIndent(reportDoc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: encode report: %w", err)
	}
	if err := a.writer.Put(ctx, prefix+"/report.json", bytes.NewReader(reportBody), "application/json"); err != nil {
		return "", err
	}

	a.logger.Info("archived run artifacts",
		slog.String("run_id", runID),
		slog.String("strategy", strategy),
		slog.String("prefix", prefix),
		slog.Int("trades", len(trades)),
		slog.Int("equity_points", len(curve)),
	)
	return prefix, nil
}

func encodeJSONL[T any](rows []T) (*bytes.Reader, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, err
		}
	}
	return bytes.NewReader(buf.Bytes()), nil
}
