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
// built-in defaults, applies ZENTRO_* environment variable overrides, and
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

// applyEnvOverrides reads well-known ZENTRO_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "ZENTRO_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ZENTRO_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "ZENTRO_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "ZENTRO_SERVER_RATE_LIMIT_WINDOW")

	// ── Auth ──
	setStr(&cfg.Auth.APIKey, "ZENTRO_AUTH_API_KEY")
	setStr(&cfg.Auth.HMACKeyID, "ZENTRO_AUTH_HMAC_KEY_ID")
	setStr(&cfg.Auth.HMACSecret, "ZENTRO_AUTH_HMAC_SECRET")
	setStr(&cfg.Auth.EncryptedSecretPath, "ZENTRO_AUTH_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Auth.SecretPassword, "ZENTRO_AUTH_SECRET_PASSWORD")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ZENTRO_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ZENTRO_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ZENTRO_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ZENTRO_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ZENTRO_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ZENTRO_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ZENTRO_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ZENTRO_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ZENTRO_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ZENTRO_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ZENTRO_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ZENTRO_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ZENTRO_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ZENTRO_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ZENTRO_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ZENTRO_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "ZENTRO_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ZENTRO_S3_REGION")
	setStr(&cfg.S3.Bucket, "ZENTRO_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ZENTRO_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ZENTRO_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ZENTRO_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ZENTRO_S3_FORCE_PATH_STYLE")

	// ── Market ──
	setUint64(&cfg.Market.DefaultFeeRateBps, "ZENTRO_MARKET_DEFAULT_FEE_RATE_BPS")
	setUint64(&cfg.Market.DefaultMinBet, "ZENTRO_MARKET_DEFAULT_MIN_BET")
	setUint64(&cfg.Market.DefaultMaxBet, "ZENTRO_MARKET_DEFAULT_MAX_BET")
	setDuration(&cfg.Market.MinDuration, "ZENTRO_MARKET_MIN_DURATION")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "ZENTRO_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "ZENTRO_ARCHIVE_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ZENTRO_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ZENTRO_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ZENTRO_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ZENTRO_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ZENTRO_MODE")
	setStr(&cfg.LogLevel, "ZENTRO_LOG_LEVEL")
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

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
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
