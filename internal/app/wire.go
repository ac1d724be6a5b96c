package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowponder/ponderd/internal/auth"
	s3blob "github.com/flowponder/ponderd/internal/blob/s3"
	"github.com/flowponder/ponderd/internal/cache/redis"
	"github.com/flowponder/ponderd/internal/config"
	"github.com/flowponder/ponderd/internal/crypto"
	"github.com/flowponder/ponderd/internal/domain"
	"github.com/flowponder/ponderd/internal/ledger"
	"github.com/flowponder/ponderd/internal/market"
	"github.com/flowponder/ponderd/internal/notify"
	"github.com/flowponder/ponderd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function. Optional subsystems (journal, caches, blob
// storage) are nil when their configuration section is disabled.
type Dependencies struct {
	Ledger *ledger.Client
	Auth   *auth.Service
	Market *market.Service

	// Operation journal (requires Postgres)
	Postgres *postgres.Client
	Journal  domain.OperationStore

	// Caches and event mirroring (require Redis)
	PonderCache      domain.PonderCache
	LeaderboardCache domain.LeaderboardCache
	BalanceCache     domain.BalanceCache
	Bus              domain.EventBus

	// Blob storage (requires S3)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Ledger access node ---
	deps.Ledger = ledger.New(ledger.Config{
		AccessNodeURL: cfg.Ledger.AccessNodeURL,
		ContractAddr:  cfg.Ledger.ContractAddr,
		TokenAddr:     cfg.Ledger.TokenAddr,
		SealCeiling:   cfg.Ledger.SealCeiling.Duration,
		PollInterval:  cfg.Ledger.PollInterval.Duration,
	}, logger)

	// --- Wallet and authentication ---
	wallet := crypto.NewLocalWallet(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	deps.Auth = auth.New(wallet, deps.Ledger, logger)

	// --- PostgreSQL operation journal ---
	if cfg.Postgres.Enabled {
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

		deps.Postgres = pgClient
		deps.Journal = postgres.NewOperationStore(pgClient.Pool())
	}

	// --- Redis caches and event bus ---
	if cfg.Redis.Enabled {
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

		deps.PonderCache = redis.NewPonderCache(redisClient)
		deps.LeaderboardCache = redis.NewLeaderboardCache(redisClient)
		deps.BalanceCache = redis.NewBalanceCache(redisClient)
		deps.Bus = redis.NewEventBus(redisClient)
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
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

	// --- Market orchestrator ---
	svc := market.NewService(deps.Ledger, deps.Auth, logger).
		WithNotifier(deps.Notifier)
	if deps.Journal != nil {
		svc = svc.WithJournal(deps.Journal)
	}
	if cfg.Redis.Enabled {
		svc = svc.WithCaches(deps.PonderCache, deps.LeaderboardCache, deps.BalanceCache).
			WithEventBus(deps.Bus)
	}
	deps.Market = svc

	// Snapshot archiving reads its views through the orchestrator so uploads
	// see the same cache-through data the API serves.
	if deps.BlobWriter != nil {
		deps.Archiver = s3blob.NewSnapshotArchiver(deps.BlobWriter, deps.Market)
	}

	return deps, cleanup, nil
}
