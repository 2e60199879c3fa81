package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BTBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BTBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Data ──
	setStr(&cfg.Data.CSVPath, "BTBOT_DATA_CSV_PATH")
	setFloat64(&cfg.Data.Fee, "BTBOT_DATA_FEE")
	setStr(&cfg.Data.Reference, "BTBOT_DATA_REFERENCE")

	// ── Backtest ──
	setStr(&cfg.Backtest.Strategy, "BTBOT_BACKTEST_STRATEGY")
	setFloat64(&cfg.Backtest.RiskFreeRate, "BTBOT_BACKTEST_RISK_FREE_RATE")
	setStr(&cfg.Backtest.LedgerPath, "BTBOT_BACKTEST_LEDGER_PATH")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "BTBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BTBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BTBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BTBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BTBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BTBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BTBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BTBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BTBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BTBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BTBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BTBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BTBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BTBOT_REDIS_POOL_SIZE")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "BTBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BTBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "BTBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BTBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BTBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BTBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BTBOT_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setStr(&cfg.Server.Addr, "BTBOT_SERVER_ADDR")
	setStr(&cfg.Server.APIKey, "BTBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "BTBOT_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BTBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BTBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "BTBOT_NOTIFY_DISCORD_WEBHOOK")

	// ── Top level ──
	setStr(&cfg.Mode, "BTBOT_MODE")
	setStr(&cfg.LogLevel, "BTBOT_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
