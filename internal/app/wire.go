package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/Tolujoh-n/bitcoinworld/internal/blob/s3"
	"github.com/Tolujoh-n/bitcoinworld/internal/cache/redis"
	"github.com/Tolujoh-n/bitcoinworld/internal/config"
	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/Tolujoh-n/bitcoinworld/internal/notify"
	"github.com/Tolujoh-n/bitcoinworld/internal/platform/stacks"
	"github.com/Tolujoh-n/bitcoinworld/internal/store/postgres"
	"github.com/Tolujoh-n/bitcoinworld/internal/wallet"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	PollStore    domain.PollStore
	TradeStore   domain.TradeStore
	UserStore    domain.UserStore
	CommentStore domain.CommentStore
	AuditStore   domain.AuditStore

	// Caches
	SnapshotCache domain.SnapshotCache
	SessionStore  domain.SessionStore
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Chain access
	Reader  domain.MarketReader
	Writer  domain.MarketWriter
	Watcher *stacks.TxPoller
	Wallet  *wallet.Bridge

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsS3 returns true for modes that require object storage. The server
// mode never archives, so it runs without a bucket.
func needsS3(cfg *config.Config) bool {
	switch cfg.Mode {
	case "archive":
		return true
	case "full":
		return cfg.Archive.Enabled
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (the trade ledger; every mode needs it) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PollStore = postgres.NewPollStore(pool)
	deps.TradeStore = postgres.NewTradeStore(pool)
	deps.UserStore = postgres.NewUserStore(pool)
	deps.CommentStore = postgres.NewCommentStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.SnapshotCache = redis.NewSnapshotCache(redisClient)
	deps.SessionStore = redis.NewSessionStore(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Stacks chain access ---
	contract := stacks.ContractID{
		Address: cfg.Stacks.ContractAddress,
		Name:    cfg.Stacks.ContractName,
	}
	deps.Reader = stacks.NewReadClient(
		cfg.Stacks.APIURL,
		contract,
		cfg.Stacks.SenderAddress,
		cfg.Stacks.RequestTimeout.Duration,
		logger,
	)
	deps.Watcher = stacks.NewTxPoller(
		cfg.Stacks.APIURL,
		cfg.Confirm.Interval.Duration,
		cfg.Confirm.MaxAttempts,
		cfg.Stacks.RequestTimeout.Duration,
		logger,
	)

	// The wallet bridge relays contract calls to browser wallets over the
	// signal bus; the server never holds a signing key.
	deps.Wallet = wallet.NewBridge(deps.SignalBus, cfg.Trade.WalletTimeout.Duration, logger)
	deps.Writer = stacks.NewWriteClient(contract, deps.Wallet, logger)

	// --- S3 blob storage (only for modes that archive) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			postgres.NewTradeStore(pool),
			postgres.NewPollStore(pool),
			deps.AuditStore,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
