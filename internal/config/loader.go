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
// built-in defaults, applies PONDERD_* environment variable overrides, and
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

// applyEnvOverrides reads well-known PONDERD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Ledger ──
	setStr(&cfg.Ledger.AccessNodeURL, "PONDERD_LEDGER_ACCESS_NODE_URL")
	setStr(&cfg.Ledger.ContractAddr, "PONDERD_LEDGER_CONTRACT_ADDR")
	setStr(&cfg.Ledger.TokenAddr, "PONDERD_LEDGER_TOKEN_ADDR")
	setDuration(&cfg.Ledger.SealCeiling, "PONDERD_LEDGER_SEAL_CEILING")
	setDuration(&cfg.Ledger.PollInterval, "PONDERD_LEDGER_POLL_INTERVAL")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "PONDERD_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "PONDERD_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "PONDERD_WALLET_KEY_PASSWORD")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "PONDERD_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PONDERD_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PONDERD_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PONDERD_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PONDERD_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PONDERD_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PONDERD_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PONDERD_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PONDERD_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PONDERD_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PONDERD_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PONDERD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PONDERD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PONDERD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PONDERD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PONDERD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PONDERD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PONDERD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PONDERD_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PONDERD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PONDERD_S3_REGION")
	setStr(&cfg.S3.Bucket, "PONDERD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PONDERD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PONDERD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PONDERD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PONDERD_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "PONDERD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PONDERD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PONDERD_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PONDERD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PONDERD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PONDERD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PONDERD_NOTIFY_EVENTS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "PONDERD_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "PONDERD_ARCHIVE_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "PONDERD_MODE")
	setStr(&cfg.LogLevel, "PONDERD_LOG_LEVEL")
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
