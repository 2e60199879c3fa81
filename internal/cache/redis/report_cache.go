package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/backtestbot/internal/domain"
)

// ReportCache implements domain.ReportCache using Redis hashes. The most
// recent score report per strategy is stored at key "report:{strategy}" with
// one field per metric plus "run_id" and "ts".
type ReportCache struct {
	rdb *redis.Client
}

// NewReportCache creates a ReportCache backed by the given Client.
func NewReportCache(c *Client) *ReportCache {
	return &ReportCache{rdb: c.Underlying()}
}

func reportKey(strategy string) string {
	return "report:" + strategy
}

// SetReport stores the latest score report for a strategy, replacing any
// previous one.
func (rc *ReportCache) SetReport(ctx context.Context, strategy, runID string, report domain.ScoreReport) error {
	metrics := report.Metrics()
	fields := make(map[string]interface{}, len(metrics)+2)
	for name, value := range metrics {
		fields[name] = strconv.FormatFloat(value, 'f', -1, 64)
	}
	fields["run_id"] = runID
	fields["ts"] = strconv.FormatInt(time.Now().UTC().UnixNano(), 10)

	if err := rc.rdb.HSet(ctx, reportKey(strategy), fields).Err(); err != nil {
		return fmt.Errorf("redis: set report %s: %w", strategy, err)
	}
	return nil
}

// GetReport retrieves the latest cached score report for a strategy. It
// returns domain.ErrNotFound when nothing is cached.
func (rc *ReportCache) GetReport(ctx context.Context, strategy string) (domain.ScoreReport, error) {
	vals, err := rc.rdb.HGetAll(ctx, reportKey(strategy)).Result()
	if err != nil {
		return domain.ScoreReport{}, fmt.Errorf("redis: get report %s: %w", strategy, err)
	}
	if len(vals) == 0 {
		return domain.ScoreReport{}, domain.ErrNotFound
	}

	get := func(field string) (float64, error) {
		s, ok := vals[field]
		if !ok {
			return 0, domain.ErrNotFound
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("redis: parse report field %s: %w", field, err)
		}
		return f, nil
	}

	var r domain.ScoreReport
	for field, dst := range map[string]*float64{
		"initial_equity":        &r.InitialEquity,
		"final_equity":          &r.FinalEquity,
		"abs_pnl":               &r.AbsPnL,
		"pct_pnl":               &r.PctPnL,
		"annualized_return":     &r.AnnualizedReturn,
		"annualized_volatility": &r.AnnualizedVolatility,
		"sharpe":                &r.Sharpe,
		"max_drawdown":          &r.MaxDrawdown,
		"turnover":              &r.Turnover,
		"fees_paid":             &r.FeesPaid,
		"score":                 &r.Score,
	} {
		v, err := get(field)
		if err != nil {
			return domain.ScoreReport{}, err
		}
		*dst = v
	}
	if count, err := get("trade_count"); err == nil {
		r.TradeCount = int64(count)
	}
	return r, nil
}

// Compile-time interface check.
var _ domain.ReportCache = (*ReportCache)(nil)
