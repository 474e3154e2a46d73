package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BITCOINWORLD_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
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

// applyEnvOverrides reads well-known BITCOINWORLD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Stacks ──
	setStr(&cfg.Stacks.APIURL, "BITCOINWORLD_STACKS_API_URL")
	setStr(&cfg.Stacks.Network, "BITCOINWORLD_STACKS_NETWORK")
	setStr(&cfg.Stacks.ContractAddress, "BITCOINWORLD_STACKS_CONTRACT_ADDRESS")
	setStr(&cfg.Stacks.ContractName, "BITCOINWORLD_STACKS_CONTRACT_NAME")
	setStr(&cfg.Stacks.SenderAddress, "BITCOINWORLD_STACKS_SENDER_ADDRESS")
	setDuration(&cfg.Stacks.RequestTimeout, "BITCOINWORLD_STACKS_REQUEST_TIMEOUT")

	// ── Confirm ──
	setDuration(&cfg.Confirm.Interval, "BITCOINWORLD_CONFIRM_INTERVAL")
	setInt(&cfg.Confirm.MaxAttempts, "BITCOINWORLD_CONFIRM_MAX_ATTEMPTS")

	// ── Snapshot ──
	setDuration(&cfg.Snapshot.RefreshInterval, "BITCOINWORLD_SNAPSHOT_REFRESH_INTERVAL")
	setDuration(&cfg.Snapshot.CacheTTL, "BITCOINWORLD_SNAPSHOT_CACHE_TTL")

	// ── Trade ──
	setInt(&cfg.Trade.MaxPerMinute, "BITCOINWORLD_TRADE_MAX_PER_MINUTE")
	setDuration(&cfg.Trade.WalletTimeout, "BITCOINWORLD_TRADE_WALLET_TIMEOUT")
	setInt(&cfg.Trade.HistoryLimit, "BITCOINWORLD_TRADE_HISTORY_LIMIT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "BITCOINWORLD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BITCOINWORLD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BITCOINWORLD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BITCOINWORLD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BITCOINWORLD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BITCOINWORLD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BITCOINWORLD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BITCOINWORLD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BITCOINWORLD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BITCOINWORLD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BITCOINWORLD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BITCOINWORLD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BITCOINWORLD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BITCOINWORLD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BITCOINWORLD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BITCOINWORLD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "BITCOINWORLD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BITCOINWORLD_S3_REGION")
	setStr(&cfg.S3.Bucket, "BITCOINWORLD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BITCOINWORLD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BITCOINWORLD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BITCOINWORLD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BITCOINWORLD_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "BITCOINWORLD_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "BITCOINWORLD_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "BITCOINWORLD_ARCHIVE_INTERVAL")
	setStr(&cfg.Archive.Cron, "BITCOINWORLD_ARCHIVE_CRON")

	// ── Auth ──
	setDuration(&cfg.Auth.SessionTTL, "BITCOINWORLD_AUTH_SESSION_TTL")
	setInt(&cfg.Auth.BcryptCost, "BITCOINWORLD_AUTH_BCRYPT_COST")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "BITCOINWORLD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "BITCOINWORLD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BITCOINWORLD_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RequestsPerMinute, "BITCOINWORLD_SERVER_REQUESTS_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BITCOINWORLD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BITCOINWORLD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BITCOINWORLD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BITCOINWORLD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "BITCOINWORLD_MODE")
	setStr(&cfg.LogLevel, "BITCOINWORLD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
