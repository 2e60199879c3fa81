// Package config defines the top-level configuration for the backtester and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by BTBOT_* environment variables.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Backtest BacktestConfig `toml:"backtest"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DataConfig describes the input tick table and the market assumptions of
// the run.
type DataConfig struct {
	// CSVPath is the tick table with columns timestamp,symbol,open,high,low,close,volume.
	CSVPath string `toml:"csv_path"`
	// Fee is the proportional fee applied to both sides of every pair
	// (0.0003 means 3 bps).
	Fee float64 `toml:"fee"`
	// Reference is the asset all equity figures are expressed in.
	Reference string `toml:"reference"`
	// Balances are the initial holdings per asset; must include Reference.
	Balances map[string]float64 `toml:"balances"`
}

// BacktestConfig selects and tunes the strategy under test.
type BacktestConfig struct {
	// Strategy is the registered strategy name to run (backtest/serve modes).
	Strategy string `toml:"strategy"`
	// Pairs are the direct BASE/reference pairs the strategy trades.
	Pairs []string `toml:"pairs"`
	// Quantities optionally overrides the per-pair order quantity.
	Quantities map[string]float64 `toml:"quantities"`
	// RiskFreeRate is the annual risk-free rate used by the scorer.
	RiskFreeRate float64 `toml:"risk_free_rate"`
	// LedgerPath, when set, receives the committed trade ledger as CSV.
	LedgerPath string `toml:"ledger_path"`
	// Params carries strategy-specific tuning knobs.
	Params map[string]any `toml:"params"`
}

// PostgresConfig holds PostgreSQL connection parameters. Persistence is
// enabled when either DSN or Host is set.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a database connection is configured.
func (c PostgresConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != "" || strings.TrimSpace(c.Host) != ""
}

// RedisConfig holds Redis connection parameters. Caching is enabled when
// Addr is set.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	PoolSize int    `toml:"pool_size"`
}

// Enabled reports whether the report cache is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// S3Config holds object-storage parameters for run artifact archival.
// Archival is enabled when Bucket is set.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Enabled reports whether run archival is configured.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

// ServerConfig holds the HTTP/WebSocket server parameters for serve mode.
// An empty APIKey disables authentication; a zero RateLimit disables
// per-client rate limiting.
type ServerConfig struct {
	Addr        string   `toml:"addr"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials. A channel is active
// when its credentials are set.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"`
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		Data: DataConfig{
			Fee:       0.0003,
			Reference: "fiat",
			Balances:  map[string]float64{"fiat": 10000},
		},
		Backtest: BacktestConfig{
			Strategy: "sma",
			Pairs:    []string{"token_1/fiat", "token_2/fiat"},
		},
		Postgres: PostgresConfig{
			SSLMode:      "disable",
			PoolMaxConns: 4,
		},
		Server:   ServerConfig{Addr: ":8080"},
		Mode:     "backtest",
		LogLevel: "info",
	}
}

// Validate checks the configuration for the selected mode.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "backtest", "compare", "serve":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if strings.TrimSpace(c.Data.CSVPath) == "" {
		return fmt.Errorf("config: data.csv_path is required")
	}
	if c.Data.Fee < 0 {
		return fmt.Errorf("config: data.fee must be non-negative, got %v", c.Data.Fee)
	}
	if strings.TrimSpace(c.Data.Reference) == "" {
		return fmt.Errorf("config: data.reference is required")
	}
	if _, ok := c.Data.Balances[c.Data.Reference]; !ok {
		return fmt.Errorf("config: data.balances must include the reference asset %q", c.Data.Reference)
	}
	for asset, qty := range c.Data.Balances {
		if qty < 0 {
			return fmt.Errorf("config: data.balances[%s] must be non-negative, got %v", asset, qty)
		}
	}
	if strings.TrimSpace(c.Backtest.Strategy) == "" {
		return fmt.Errorf("config: backtest.strategy is required")
	}
	if len(c.Backtest.Pairs) == 0 {
		return fmt.Errorf("config: backtest.pairs must list at least one pair")
	}
	if c.Mode == "serve" && strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("config: server.addr is required in serve mode")
	}
	return nil
}
