// Package config defines the top-level configuration for the bitcoinworld
// market service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BITCOINWORLD_* environment variables.
type Config struct {
	Stacks   StacksConfig   `toml:"stacks"`
	Confirm  ConfirmConfig  `toml:"confirm"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Trade    TradeConfig    `toml:"trade"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Auth     AuthConfig     `toml:"auth"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// StacksConfig holds the node API endpoint and the deployed contract identity.
type StacksConfig struct {
	APIURL          string   `toml:"api_url"`
	Network         string   `toml:"network"`
	ContractAddress string   `toml:"contract_address"`
	ContractName    string   `toml:"contract_name"`
	SenderAddress   string   `toml:"sender_address"`
	RequestTimeout  duration `toml:"request_timeout"`
}

// ConfirmConfig bounds the transaction confirmation poller.
type ConfirmConfig struct {
	Interval    duration `toml:"interval"`
	MaxAttempts int      `toml:"max_attempts"`
}

// SnapshotConfig controls the periodic contract-read refresh for polls
// with active rooms.
type SnapshotConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	CacheTTL        duration `toml:"cache_ttl"`
}

// TradeConfig holds trade workflow limits.
type TradeConfig struct {
	// MaxPerMinute bounds trades per user per minute; 0 disables limiting.
	MaxPerMinute int `toml:"max_per_minute"`
	// WalletTimeout bounds how long a signing prompt may stay open.
	WalletTimeout duration `toml:"wallet_timeout"`
	// HistoryLimit is the default trade-history page size for poll detail.
	HistoryLimit int `toml:"history_limit"`
}

// PostgresConfig holds ledger database connection parameters.
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls archival of resolved polls' trade history.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
	// Cron is an optional 5-field cron expression. When set it replaces
	// the fixed interval, e.g. "0 3 * * *" for 3 AM daily.
	Cron string `toml:"cron"`
}

// AuthConfig holds session and password-hashing parameters.
type AuthConfig struct {
	SessionTTL duration `toml:"session_ttl"`
	BcryptCost int      `toml:"bcrypt_cost"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// RequestsPerMinute caps per-IP request rates; 0 disables the cap.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Stacks: StacksConfig{
			APIURL:          "https://api.testnet.hiro.so",
			Network:         "testnet",
			ContractAddress: "ST1PSHE32YTEE21FGYEVTA24N681KRGSQM4VF9XZP",
			ContractName:    "market-factory-v2",
			SenderAddress:   "ST1PSHE32YTEE21FGYEVTA24N681KRGSQM4VF9XZP",
			RequestTimeout:  duration{10 * time.Second},
		},
		Confirm: ConfirmConfig{
			Interval:    duration{5 * time.Second},
			MaxAttempts: 60,
		},
		Snapshot: SnapshotConfig{
			RefreshInterval: duration{15 * time.Second},
			CacheTTL:        duration{30 * time.Second},
		},
		Trade: TradeConfig{
			MaxPerMinute:  10,
			WalletTimeout: duration{2 * time.Minute},
			HistoryLimit:  50,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "bitcoinworld",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "bitcoinworld-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Auth: AuthConfig{
			SessionTTL: duration{7 * 24 * time.Hour},
			BcryptCost: 10,
		},
		Server: ServerConfig{
			Enabled:           true,
			Port:              5000,
			CORSOrigins:       []string{"http://localhost:3000"},
			RequestsPerMinute: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"poll_resolved", "ledger_write_failed", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"archive": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, archive, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Stacks
	if c.Stacks.APIURL == "" {
		errs = append(errs, "stacks: api_url must not be empty")
	}
	if c.Stacks.ContractAddress == "" {
		errs = append(errs, "stacks: contract_address must not be empty")
	}
	if c.Stacks.ContractName == "" {
		errs = append(errs, "stacks: contract_name must not be empty")
	}
	if c.Stacks.Network != "mainnet" && c.Stacks.Network != "testnet" {
		errs = append(errs, fmt.Sprintf("stacks: network must be mainnet or testnet, got %q", c.Stacks.Network))
	}
	if c.Stacks.RequestTimeout.Duration <= 0 {
		errs = append(errs, "stacks: request_timeout must be positive")
	}

	// Confirm
	if c.Confirm.Interval.Duration <= 0 {
		errs = append(errs, "confirm: interval must be positive")
	}
	if c.Confirm.MaxAttempts < 1 {
		errs = append(errs, "confirm: max_attempts must be >= 1")
	}

	// Snapshot
	if c.Snapshot.RefreshInterval.Duration <= 0 {
		errs = append(errs, "snapshot: refresh_interval must be positive")
	}
	if c.Snapshot.CacheTTL.Duration <= 0 {
		errs = append(errs, "snapshot: cache_ttl must be positive")
	}

	// Trade
	if c.Trade.MaxPerMinute < 0 {
		errs = append(errs, "trade: max_per_minute must be >= 0")
	}
	if c.Trade.WalletTimeout.Duration <= 0 {
		errs = append(errs, "trade: wallet_timeout must be positive")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 only matters when archival is on.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Auth
	if c.Auth.SessionTTL.Duration <= 0 {
		errs = append(errs, "auth: session_ttl must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Sprintf("auth: bcrypt_cost must be 4-31, got %d", c.Auth.BcryptCost))
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RequestsPerMinute < 0 {
			errs = append(errs, "server: requests_per_minute must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
