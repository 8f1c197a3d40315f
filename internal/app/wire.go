package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"cardarb/internal/arbitrage"
	s3blob "cardarb/internal/blob/s3"
	"cardarb/internal/cache/redis"
	"cardarb/internal/config"
	"cardarb/internal/domain"
	"cardarb/internal/health"
	"cardarb/internal/market"
	"cardarb/internal/market/ebay"
	"cardarb/internal/market/tcgplayer"
	"cardarb/internal/monitor/cloudwatch"
	"cardarb/internal/notify"
	"cardarb/internal/server/ws"
	"cardarb/internal/service"
	"cardarb/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores and caches
	ObservationStore domain.ObservationStore
	OpportunityStore domain.OpportunityStore
	OpportunityCache domain.OpportunityCache
	SearchLimiter    domain.SearchLimiter
	ScanLocker       domain.ScanLocker

	// Cold storage
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.Archiver

	// Marketplaces
	Sources *market.MultiSource

	// Services
	Opportunities *service.OpportunityService
	Scans         *service.ScanService
	Health        *service.HealthService

	// Fan-out
	Notifier *notify.Notifier
	Hub      *ws.Hub
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.ObservationStore = postgres.NewObservationStore(pool)
	deps.OpportunityStore = postgres.NewOpportunityStore(pool)

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

	deps.OpportunityCache = redis.NewOpportunityCache(redisClient)
	deps.SearchLimiter = redis.NewSearchLimiter(redisClient)
	deps.ScanLocker = redis.NewScanLocker(redisClient)

	// --- S3 blob storage ---
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
	deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.OpportunityStore)

	// --- Marketplaces ---
	var sources []domain.ObservationSource
	if cfg.EBay.Enabled {
		sources = append(sources, ebay.NewClient(ebay.Config{
			BaseURL:     cfg.EBay.BaseURL,
			OAuthToken:  cfg.EBay.OAuthToken,
			IncludeSold: cfg.EBay.IncludeSold,
			MaxResults:  cfg.EBay.MaxResults,
		}))
	}
	if cfg.TCGPlayer.Enabled {
		sources = append(sources, tcgplayer.NewClient(tcgplayer.Config{
			BaseURL:     cfg.TCGPlayer.BaseURL,
			BearerToken: cfg.TCGPlayer.BearerToken,
			MaxResults:  cfg.TCGPlayer.MaxResults,
		}))
	}
	deps.Sources = market.NewMultiSource(sources, logger)

	// --- Fee model and evaluator ---
	fees, err := buildFeeModel(cfg.Fees)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: fees: %w", err)
	}
	evaluator, err := arbitrage.NewEvaluator(arbitrage.EvaluatorConfig{
		Fees:            fees,
		MinProfitAmount: decimal.NewFromFloat(cfg.Scan.MinProfitAmount),
		Risk: arbitrage.RiskConfig{
			ConditionGapWeight:     cfg.Risk.ConditionGapWeight,
			AgeWeightPerHour:       cfg.Risk.AgeWeightPerHour,
			AgeCap:                 cfg.Risk.AgeCap,
			SparseSampleWeight:     cfg.Risk.SparseSampleWeight,
			HighMarginThreshold:    cfg.Risk.HighMarginThreshold,
			HighMarginPenalty:      cfg.Risk.HighMarginPenalty,
			ExtremeMarginThreshold: cfg.Risk.ExtremeMarginThreshold,
			ExtremeMarginPenalty:   cfg.Risk.ExtremeMarginPenalty,
		},
		OpportunityTTL: cfg.Scan.OpportunityTTL.Duration,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: evaluator: %w", err)
	}

	// --- Health aggregation ---
	aggregator, err := health.NewAggregator(health.AggregatorConfig{
		Thresholds: health.Thresholds{
			ComputeWarnSuccessRate:   cfg.Health.Thresholds.ComputeWarnSuccessRate,
			ComputeErrorSuccessRate:  cfg.Health.Thresholds.ComputeErrorSuccessRate,
			ComputeDurationCeilingMs: cfg.Health.Thresholds.ComputeDurationCeilingMs,
			StorageWarnUtilization:   cfg.Health.Thresholds.StorageWarnUtilization,
			StorageErrorUtilization:  cfg.Health.Thresholds.StorageErrorUtilization,
			GatewayWarn5xxRate:       cfg.Health.Thresholds.GatewayWarn5xxRate,
			GatewayError5xxRate:      cfg.Health.Thresholds.GatewayError5xxRate,
			GatewayWarn4xxRate:       cfg.Health.Thresholds.GatewayWarn4xxRate,
			WorkflowWarnFailureRate:  cfg.Health.Thresholds.WorkflowWarnFailureRate,
			WorkflowErrorFailureRate: cfg.Health.Thresholds.WorkflowErrorFailureRate,
		},
		Expected: cfg.ExpectedResources(),
		Version:  version,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: health aggregator: %w", err)
	}

	collectors, err := buildCollectors(ctx, cfg.Health)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: health collectors: %w", err)
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

	// --- WebSocket hub ---
	deps.Hub = ws.NewHub(logger, version)

	// --- Services ---
	deps.Opportunities = service.NewOpportunityService(
		deps.ObservationStore,
		deps.OpportunityStore,
		deps.OpportunityCache,
		evaluator,
		cfg.Scan.Lookback.Duration,
		logger,
	)
	deps.Scans = service.NewScanService(
		deps.Sources,
		deps.ObservationStore,
		deps.OpportunityStore,
		deps.OpportunityCache,
		deps.SearchLimiter,
		deps.ScanLocker,
		evaluator,
		deps.Notifier,
		deps.Hub,
		service.ScanServiceConfig{
			SearchCooldown: cfg.Scan.SearchCooldown.Duration,
			FetchLimit:     maxFetchLimit(cfg),
			DefaultFilter:  defaultFilter(cfg),
		},
		logger,
	)
	deps.Health = service.NewHealthService(
		collectors,
		aggregator,
		deps.Notifier,
		deps.Hub,
		cfg.Health.CollectTimeout.Duration,
		logger,
	)

	return deps, cleanup, nil
}

// buildFeeModel converts the TOML fee tables into a validated FeeModel.
func buildFeeModel(cfg config.FeesConfig) (*arbitrage.FeeModel, error) {
	sellRates := make(map[domain.Platform]arbitrage.FeeRate, len(cfg.Platforms))
	for name, rate := range cfg.Platforms {
		sellRates[domain.Platform(name)] = arbitrage.FeeRate{
			Percentage: decimal.NewFromFloat(rate.Percentage),
			Flat:       decimal.NewFromFloat(rate.Flat),
		}
	}

	overrides := make(map[domain.PlatformPair]arbitrage.FeeRate, len(cfg.PairOverrides))
	for key, rate := range cfg.PairOverrides {
		pair, err := domain.ParsePlatformPair(key)
		if err != nil {
			return nil, err
		}
		overrides[pair] = arbitrage.FeeRate{
			Percentage: decimal.NewFromFloat(rate.Percentage),
			Flat:       decimal.NewFromFloat(rate.Flat),
		}
	}

	return arbitrage.NewFeeModel(sellRates, overrides)
}

// buildCollectors constructs a CloudWatch collector per configured resource
// group. Health can be disabled entirely, in which case the aggregator only
// sees the expected-resource inventory.
func buildCollectors(ctx context.Context, cfg config.HealthConfig) ([]domain.SampleCollector, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	clients, err := cloudwatch.New(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}

	window := cfg.Window.Duration
	var collectors []domain.SampleCollector
	if cfg.FunctionPrefix != "" {
		collectors = append(collectors, cloudwatch.NewComputeCollector(clients, cfg.FunctionPrefix, window))
	}
	if len(cfg.Tables) > 0 {
		collectors = append(collectors, cloudwatch.NewStorageCollector(clients, cfg.Tables, window))
	}
	if cfg.APIName != "" {
		collectors = append(collectors, cloudwatch.NewGatewayCollector(clients, cfg.APIName, window))
	}
	if cfg.StateMachineARN != "" {
		collectors = append(collectors, cloudwatch.NewWorkflowCollector(clients, cfg.StateMachineARN, window))
	}
	return collectors, nil
}

// defaultFilter builds the ranking filter applied when a request or scan does
// not supply its own thresholds.
func defaultFilter(cfg *config.Config) domain.OpportunityFilter {
	return domain.OpportunityFilter{
		MinProfitMargin: decimal.NewFromFloat(cfg.Scan.DefaultMinProfitMargin),
		MaxRiskScore:    cfg.Scan.DefaultMaxRiskScore,
		SortBy:          domain.SortByProfitMargin,
		Limit:           cfg.Scan.DefaultLimit,
	}
}

// maxFetchLimit picks the larger of the per-marketplace result caps so one
// fetch satisfies both sources.
func maxFetchLimit(cfg *config.Config) int {
	limit := cfg.EBay.MaxResults
	if cfg.TCGPlayer.MaxResults > limit {
		limit = cfg.TCGPlayer.MaxResults
	}
	return limit
}
