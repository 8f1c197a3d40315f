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
// built-in defaults, applies CARDARB_* environment variable overrides, and
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

// applyEnvOverrides reads well-known CARDARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setBool(&cfg.Server.Enabled, "CARDARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "CARDARB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CARDARB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "CARDARB_SERVER_API_KEY")

	// ── Database ──
	setStr(&cfg.Database.DSN, "CARDARB_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "CARDARB_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "CARDARB_DATABASE_HOST")
	setInt(&cfg.Database.Port, "CARDARB_DATABASE_PORT")
	setStr(&cfg.Database.Database, "CARDARB_DATABASE_NAME")
	setStr(&cfg.Database.User, "CARDARB_DATABASE_USER")
	setStr(&cfg.Database.Password, "CARDARB_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "CARDARB_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "CARDARB_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "CARDARB_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "CARDARB_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CARDARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CARDARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CARDARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CARDARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CARDARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CARDARB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "CARDARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CARDARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "CARDARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CARDARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CARDARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CARDARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CARDARB_S3_FORCE_PATH_STYLE")

	// ── eBay ──
	setBool(&cfg.EBay.Enabled, "CARDARB_EBAY_ENABLED")
	setStr(&cfg.EBay.BaseURL, "CARDARB_EBAY_BASE_URL")
	setStr(&cfg.EBay.OAuthToken, "CARDARB_EBAY_OAUTH_TOKEN")
	setBool(&cfg.EBay.IncludeSold, "CARDARB_EBAY_INCLUDE_SOLD")
	setInt(&cfg.EBay.MaxResults, "CARDARB_EBAY_MAX_RESULTS")

	// ── TCGplayer ──
	setBool(&cfg.TCGPlayer.Enabled, "CARDARB_TCGPLAYER_ENABLED")
	setStr(&cfg.TCGPlayer.BaseURL, "CARDARB_TCGPLAYER_BASE_URL")
	setStr(&cfg.TCGPlayer.BearerToken, "CARDARB_TCGPLAYER_BEARER_TOKEN")
	setInt(&cfg.TCGPlayer.MaxResults, "CARDARB_TCGPLAYER_MAX_RESULTS")

	// ── Scan ──
	setBool(&cfg.Scan.Enabled, "CARDARB_SCAN_ENABLED")
	setStringSlice(&cfg.Scan.Watchlist, "CARDARB_SCAN_WATCHLIST")
	setDuration(&cfg.Scan.Interval, "CARDARB_SCAN_INTERVAL")
	setDuration(&cfg.Scan.Lookback, "CARDARB_SCAN_LOOKBACK")
	setDuration(&cfg.Scan.SearchCooldown, "CARDARB_SCAN_SEARCH_COOLDOWN")
	setDuration(&cfg.Scan.OpportunityTTL, "CARDARB_SCAN_OPPORTUNITY_TTL")
	setFloat64(&cfg.Scan.MinProfitAmount, "CARDARB_SCAN_MIN_PROFIT_AMOUNT")
	setFloat64(&cfg.Scan.DefaultMinProfitMargin, "CARDARB_SCAN_DEFAULT_MIN_PROFIT_MARGIN")
	setFloat64(&cfg.Scan.DefaultMaxRiskScore, "CARDARB_SCAN_DEFAULT_MAX_RISK_SCORE")
	setInt(&cfg.Scan.DefaultLimit, "CARDARB_SCAN_DEFAULT_LIMIT")
	setInt(&cfg.Scan.MaxLimit, "CARDARB_SCAN_MAX_LIMIT")

	// ── Health ──
	setBool(&cfg.Health.Enabled, "CARDARB_HEALTH_ENABLED")
	setStr(&cfg.Health.AWSRegion, "CARDARB_HEALTH_AWS_REGION")
	setStr(&cfg.Health.FunctionPrefix, "CARDARB_HEALTH_FUNCTION_PREFIX")
	setStringSlice(&cfg.Health.Tables, "CARDARB_HEALTH_TABLES")
	setStr(&cfg.Health.APIName, "CARDARB_HEALTH_API_NAME")
	setStr(&cfg.Health.StateMachineARN, "CARDARB_HEALTH_STATE_MACHINE_ARN")
	setDuration(&cfg.Health.Window, "CARDARB_HEALTH_WINDOW")
	setDuration(&cfg.Health.CollectTimeout, "CARDARB_HEALTH_COLLECT_TIMEOUT")
	setStringSlice(&cfg.Health.Expected, "CARDARB_HEALTH_EXPECTED")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CARDARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CARDARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CARDARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CARDARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CARDARB_MODE")
	setStr(&cfg.LogLevel, "CARDARB_LOG_LEVEL")
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
