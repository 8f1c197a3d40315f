// Package config defines the top-level configuration for the card arbitrage
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"cardarb/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CARDARB_* environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	EBay      EBayConfig      `toml:"ebay"`
	TCGPlayer TCGPlayerConfig `toml:"tcgplayer"`
	Fees      FeesConfig      `toml:"fees"`
	Scan      ScanConfig      `toml:"scan"`
	Risk      RiskConfig      `toml:"risk"`
	Health    HealthConfig    `toml:"health"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey protects the mutating endpoints when set. Read endpoints stay
	// open.
	APIKey string `toml:"api_key"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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

// EBayConfig holds eBay Browse API credentials and query parameters.
type EBayConfig struct {
	Enabled     bool   `toml:"enabled"`
	BaseURL     string `toml:"base_url"`
	OAuthToken  string `toml:"oauth_token"`
	IncludeSold bool   `toml:"include_sold"`
	MaxResults  int    `toml:"max_results"`
}

// TCGPlayerConfig holds TCGplayer API credentials.
type TCGPlayerConfig struct {
	Enabled     bool   `toml:"enabled"`
	BaseURL     string `toml:"base_url"`
	BearerToken string `toml:"bearer_token"`
	MaxResults  int    `toml:"max_results"`
}

// FeeRateConfig is one platform's sell-side fee: a fraction of the sale price
// plus a flat amount.
type FeeRateConfig struct {
	Percentage float64 `toml:"percentage"`
	Flat       float64 `toml:"flat"`
}

// FeesConfig holds per-platform sell fees and optional per-pair overrides
// keyed by the "<buy>-to-<sell>" pair format.
type FeesConfig struct {
	Platforms     map[string]FeeRateConfig `toml:"platforms"`
	PairOverrides map[string]FeeRateConfig `toml:"pair_overrides"`
}

// ScanConfig holds the watchlist scanner and opportunity defaults.
type ScanConfig struct {
	Enabled   bool     `toml:"enabled"`
	Watchlist []string `toml:"watchlist"`
	// Interval is the pause between watchlist sweeps.
	Interval duration `toml:"interval"`
	// Lookback bounds how old stored observations may be when serving the
	// opportunities endpoint.
	Lookback duration `toml:"lookback"`
	// SearchCooldown throttles on-demand searches per card.
	SearchCooldown  duration `toml:"search_cooldown"`
	OpportunityTTL  duration `toml:"opportunity_ttl"`
	MinProfitAmount float64  `toml:"min_profit_amount"`
	// Default filter values applied when a request omits them.
	DefaultMinProfitMargin float64 `toml:"default_min_profit_margin"`
	DefaultMaxRiskScore    float64 `toml:"default_max_risk_score"`
	DefaultLimit           int     `toml:"default_limit"`
	MaxLimit               int     `toml:"max_limit"`
}

// RiskConfig holds the tunable weights of the risk score.
type RiskConfig struct {
	ConditionGapWeight     float64 `toml:"condition_gap_weight"`
	AgeWeightPerHour       float64 `toml:"age_weight_per_hour"`
	AgeCap                 float64 `toml:"age_cap"`
	SparseSampleWeight     float64 `toml:"sparse_sample_weight"`
	HighMarginThreshold    float64 `toml:"high_margin_threshold"`
	HighMarginPenalty      float64 `toml:"high_margin_penalty"`
	ExtremeMarginThreshold float64 `toml:"extreme_margin_threshold"`
	ExtremeMarginPenalty   float64 `toml:"extreme_margin_penalty"`
}

// HealthThresholdsConfig holds the severity cutoffs per resource kind.
type HealthThresholdsConfig struct {
	ComputeWarnSuccessRate   float64 `toml:"compute_warn_success_rate"`
	ComputeErrorSuccessRate  float64 `toml:"compute_error_success_rate"`
	ComputeDurationCeilingMs float64 `toml:"compute_duration_ceiling_ms"`
	StorageWarnUtilization   float64 `toml:"storage_warn_utilization"`
	StorageErrorUtilization  float64 `toml:"storage_error_utilization"`
	GatewayWarn5xxRate       float64 `toml:"gateway_warn_5xx_rate"`
	GatewayError5xxRate      float64 `toml:"gateway_error_5xx_rate"`
	GatewayWarn4xxRate       float64 `toml:"gateway_warn_4xx_rate"`
	WorkflowWarnFailureRate  float64 `toml:"workflow_warn_failure_rate"`
	WorkflowErrorFailureRate float64 `toml:"workflow_error_failure_rate"`
}

// HealthConfig holds CloudWatch collection parameters and the expected
// resource inventory.
type HealthConfig struct {
	Enabled    bool                   `toml:"enabled"`
	AWSRegion  string                 `toml:"aws_region"`
	Thresholds HealthThresholdsConfig `toml:"thresholds"`
	// FunctionPrefix selects which Lambda functions the compute collector
	// samples.
	FunctionPrefix  string   `toml:"function_prefix"`
	Tables          []string `toml:"tables"`
	APIName         string   `toml:"api_name"`
	StateMachineARN string   `toml:"state_machine_arn"`
	// Window is the metric sampling window.
	Window duration `toml:"window"`
	// CollectTimeout bounds each collector call.
	CollectTimeout duration `toml:"collect_timeout"`
	// Expected lists resources as "<kind>:<id>"; an expected resource with no
	// sample degrades the health verdict.
	Expected []string `toml:"expected"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
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
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "cardarb",
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
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "cardarb-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		EBay: EBayConfig{
			Enabled:     true,
			BaseURL:     "https://api.ebay.com/buy/browse/v1",
			IncludeSold: true,
			MaxResults:  50,
		},
		TCGPlayer: TCGPlayerConfig{
			Enabled:    true,
			BaseURL:    "https://api.tcgplayer.com",
			MaxResults: 50,
		},
		Fees: FeesConfig{
			Platforms: map[string]FeeRateConfig{
				"ebay":      {Percentage: 0.125},
				"tcgplayer": {Percentage: 0.11},
				"amazon":    {Percentage: 0.10},
				"other":     {Percentage: 0.10},
			},
			PairOverrides: map[string]FeeRateConfig{},
		},
		Scan: ScanConfig{
			Enabled:                true,
			Watchlist:              []string{},
			Interval:               duration{15 * time.Minute},
			Lookback:               duration{24 * time.Hour},
			SearchCooldown:         duration{5 * time.Minute},
			OpportunityTTL:         duration{24 * time.Hour},
			MinProfitAmount:        1.0,
			DefaultMinProfitMargin: 0.05,
			DefaultMaxRiskScore:    5.0,
			DefaultLimit:           50,
			MaxLimit:               200,
		},
		Risk: RiskConfig{
			ConditionGapWeight:     0.5,
			AgeWeightPerHour:       0.05,
			AgeCap:                 1.0,
			SparseSampleWeight:     0.3,
			HighMarginThreshold:    0.5,
			HighMarginPenalty:      0.4,
			ExtremeMarginThreshold: 1.0,
			ExtremeMarginPenalty:   0.8,
		},
		Health: HealthConfig{
			Enabled:   true,
			AWSRegion: "us-east-1",
			Thresholds: HealthThresholdsConfig{
				ComputeWarnSuccessRate:   0.95,
				ComputeErrorSuccessRate:  0.90,
				ComputeDurationCeilingMs: 2000,
				StorageWarnUtilization:   0.70,
				StorageErrorUtilization:  0.90,
				GatewayWarn5xxRate:       0.01,
				GatewayError5xxRate:      0.05,
				GatewayWarn4xxRate:       0.25,
				WorkflowWarnFailureRate:  0.05,
				WorkflowErrorFailureRate: 0.20,
			},
			Window:         duration{time.Hour},
			CollectTimeout: duration{10 * time.Second},
			Expected:       []string{},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity_found", "scan_failed", "health_degraded"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"scan":  true,
	"full":  true,
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

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, scan, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Market sources: at least one must be enabled for scanning modes.
	if c.Mode == "scan" || c.Mode == "full" {
		if !c.EBay.Enabled && !c.TCGPlayer.Enabled {
			errs = append(errs, "markets: at least one of ebay or tcgplayer must be enabled for mode "+c.Mode)
		}
	}
	if c.EBay.Enabled && c.EBay.BaseURL == "" {
		errs = append(errs, "ebay: base_url must not be empty when enabled")
	}
	if c.TCGPlayer.Enabled && c.TCGPlayer.BaseURL == "" {
		errs = append(errs, "tcgplayer: base_url must not be empty when enabled")
	}

	// Fees: every known platform needs a rate; the strict shape checks live
	// in the fee model constructor.
	for _, p := range domain.Platforms {
		if _, ok := c.Fees.Platforms[string(p)]; !ok {
			errs = append(errs, "fees: missing sell rate for platform "+string(p))
		}
	}
	for key := range c.Fees.PairOverrides {
		if _, err := domain.ParsePlatformPair(key); err != nil {
			errs = append(errs, "fees: bad pair override key "+key)
		}
	}

	// Scan
	if c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be positive")
	}
	if c.Scan.Lookback.Duration <= 0 {
		errs = append(errs, "scan: lookback must be positive")
	}
	if c.Scan.SearchCooldown.Duration <= 0 {
		errs = append(errs, "scan: search_cooldown must be positive")
	}
	if c.Scan.DefaultMinProfitMargin < 0 || c.Scan.DefaultMinProfitMargin > 1 {
		errs = append(errs, "scan: default_min_profit_margin must be within [0,1]")
	}
	if c.Scan.DefaultLimit < 1 {
		errs = append(errs, "scan: default_limit must be >= 1")
	}
	if c.Scan.MaxLimit < c.Scan.DefaultLimit {
		errs = append(errs, "scan: max_limit must not be below default_limit")
	}

	// Health
	if c.Health.Enabled {
		if c.Health.AWSRegion == "" {
			errs = append(errs, "health: aws_region must not be empty when enabled")
		}
		if c.Health.Window.Duration <= 0 {
			errs = append(errs, "health: window must be positive")
		}
		for _, raw := range c.Health.Expected {
			if _, err := parseExpectedResource(raw); err != nil {
				errs = append(errs, "health: "+err.Error())
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpectedResources parses the health.expected entries into typed resources.
// Call only after Validate.
func (c *Config) ExpectedResources() []domain.Resource {
	out := make([]domain.Resource, 0, len(c.Health.Expected))
	for _, raw := range c.Health.Expected {
		res, err := parseExpectedResource(raw)
		if err != nil {
			continue
		}
		out = append(out, res)
	}
	return out
}

func parseExpectedResource(raw string) (domain.Resource, error) {
	kindRaw, id, ok := strings.Cut(raw, ":")
	if !ok || id == "" {
		return domain.Resource{}, fmt.Errorf("expected resource %q: want \"<kind>:<id>\"", raw)
	}
	kind := domain.ResourceKind(strings.ToLower(strings.TrimSpace(kindRaw)))
	if !kind.Valid() {
		return domain.Resource{}, fmt.Errorf("expected resource %q: unknown kind %q", raw, kindRaw)
	}
	return domain.Resource{ID: strings.TrimSpace(id), Kind: kind}, nil
}
