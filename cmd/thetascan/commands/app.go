package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/thetascan/internal/brain"
	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/internal/external/broker"
	"github.com/wonny/thetascan/internal/health"
	"github.com/wonny/thetascan/internal/marketdata"
	"github.com/wonny/thetascan/internal/notify"
	"github.com/wonny/thetascan/internal/refresh"
	"github.com/wonny/thetascan/internal/scanconfig"
	"github.com/wonny/thetascan/internal/selection"
	"github.com/wonny/thetascan/internal/store"
	"github.com/wonny/thetascan/internal/strategy"
	"github.com/wonny/thetascan/internal/universe"
	"github.com/wonny/thetascan/pkg/config"
	"github.com/wonny/thetascan/pkg/database"
	"github.com/wonny/thetascan/pkg/httputil"
	"github.com/wonny/thetascan/pkg/kafka"
	"github.com/wonny/thetascan/pkg/logger"
	"github.com/wonny/thetascan/pkg/metrics"
	"github.com/wonny/thetascan/pkg/redis"
)

// cachePrefix namespaces every Redis key this process writes
const cachePrefix = "thetascan"

// app holds the process-wide dependencies shared by every command
type app struct {
	cfg      *config.Config
	scanCfg  *scanconfig.Config
	scanHash string
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	metrics  *metrics.Recorder
	producer *kafka.Producer
}

// newApp loads configuration and opens the database and Redis connections
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if scanConfigFile != "" {
		cfg.ScanConfigPath = scanConfigFile
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Scan thresholds
	scanCfg, _, err := scanconfig.Load(cfg.ScanConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load scan config: %w", err)
	}
	hash, err := scanconfig.Hash(scanCfg)
	if err != nil {
		return nil, fmt.Errorf("hash scan config: %w", err)
	}

	// 4. Connect to database
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		version, err := db.Migrate()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.WithField("version", version).Info("Database migrated")
	}

	// 5. Redis (disabled client is a no-op)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	a := &app{
		cfg:      cfg,
		scanCfg:  scanCfg,
		scanHash: hash,
		log:      log,
		db:       db,
		redis:    rdb,
		metrics:  metrics.New(prometheus.DefaultRegisterer),
	}

	// 6. Kafka progress producer
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.ProgressTopic,
			kafka.WithBrokers(cfg.Kafka.Brokers),
			kafka.WithAsync(true),
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		a.producer = producer
	}

	log.WithFields(map[string]interface{}{
		"env":         cfg.Env,
		"scan_config": cfg.ScanConfigPath,
		"config_hash": hash,
		"redis":       rdb.Enabled(),
		"kafka":       cfg.Kafka.Enabled,
		"telegram":    cfg.Telegram.Enabled,
	}).Debug("Application initialized")

	return a, nil
}

// Close releases every connection opened by newApp
func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close kafka producer")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) cache() *redis.Cache {
	return redis.NewCache(a.redis, cachePrefix)
}

// broker returns the broker client behind the shared or in-process limiter
func (a *app) broker() *broker.Client {
	hc := httputil.New(a.log)
	if a.redis.Enabled() {
		limiter := redis.NewRateLimiter(a.redis, cachePrefix).Bind(redis.BrokerRateLimit(a.cfg.Broker.RequestsPerSecond))
		hc = hc.WithLimiter(limiter)
	} else {
		hc = hc.WithLimiter(broker.NewLimiter(a.cfg.Broker.RequestsPerSecond))
	}
	return broker.NewClient(a.cfg.Broker, hc, a.cache(), a.log)
}

func (a *app) evaluator() *health.Evaluator {
	fundamentals := marketdata.NewFundamentalsRepository(a.db.Pool, a.cache(), a.log)
	var prices contracts.PriceProvider
	if a.cfg.Broker.AppKey != "" {
		prices = a.broker()
	}
	return health.NewEvaluator(fundamentals, prices, health.Config{
		MinFScore:        a.scanCfg.Health.MinFScore,
		MinZScore:        a.scanCfg.Health.MinZScore,
		BatchConcurrency: a.scanCfg.Health.BatchConcurrency,
	}, a.log)
}

func (a *app) healthRepo() *store.HealthRepository {
	return store.NewHealthRepository(a.db.Pool)
}

func (a *app) refresher(eval *health.Evaluator) *refresh.Refresher {
	return refresh.NewRefresher(
		marketdata.NewDataset(a.db.Pool, a.log),
		eval,
		a.healthRepo(),
		a.metrics,
		refresh.Config{
			BatchSize:        a.scanCfg.Refresh.BatchSize,
			BatchDelay:       a.scanCfg.Refresh.BatchDelay,
			HealthyMinFScore: a.scanCfg.Refresh.HealthyMinFScore,
		},
		a.log,
	)
}

func (a *app) notifier() contracts.ProgressNotifier {
	var sinks []contracts.ProgressNotifier
	if a.producer != nil {
		sinks = append(sinks, notify.NewKafkaNotifier(a.producer, a.log))
	}
	if a.cfg.Telegram.Enabled {
		sinks = append(sinks, notify.NewTelegramNotifier(a.cfg.Telegram, httputil.New(a.log), a.log))
	}
	return notify.New(sinks...)
}

// scanStores are where a scan writes its run record and recommendations
type scanStores struct {
	runs contracts.ScanRunStore
	recs contracts.RecommendationRepository
}

func (a *app) postgresStores() scanStores {
	return scanStores{
		runs: store.NewRunRepository(a.db.Pool),
		recs: store.NewRecommendationRepository(a.db.Pool),
	}
}

// orchestrator wires the full scan pipeline on top of the given stores
func (a *app) orchestrator(stores scanStores) (*brain.Orchestrator, error) {
	registry, err := strategy.NewDefaultRegistry(a.scanCfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("build strategy registry: %w", err)
	}

	selector, err := selection.NewSelector(a.scanCfg.Scan.SelectionPolicy, a.scanCfg.Scan.MinConfidence, a.log)
	if err != nil {
		return nil, fmt.Errorf("build selector: %w", err)
	}

	eval := a.evaluator()
	healthRepo := a.healthRepo()

	var discovery contracts.SymbolDiscovery = contracts.NoopDiscovery{}
	if a.scanCfg.Universe.DiscoveryEnabled {
		discovery = a.broker()
	}

	resolver := universe.NewResolver(
		discovery,
		store.NewWatchlistRepository(a.db.Pool),
		healthRepo,
		eval,
		universe.Config{
			DiscoveryEnabled:    a.scanCfg.Universe.DiscoveryEnabled,
			FallbackToWatchlist: a.scanCfg.Universe.FallbackToWatchlist,
			PrefilterEnabled:    a.scanCfg.Universe.PrefilterEnabled,
			StaticSymbols:       a.scanCfg.Universe.StaticSymbols,
		},
		a.log,
	)

	deps := brain.Deps{
		Runs:            stores.runs,
		Recommendations: stores.recs,
		Staleness:       refresh.NewPolicy(healthRepo, a.scanCfg.Refresh.StaleAfter),
		Refresher:       a.refresher(eval),
		Strategies:      registry,
		Universe:        resolver,
		Health:          eval,
		MarketData:      marketdata.NewAggregator(a.db.Pool, a.log),
		Selector:        selector,
		Notifier:        a.notifier(),
		Metrics:         a.metrics,
	}

	return brain.NewOrchestrator(deps, brain.Config{
		InterSymbolDelay:   a.scanCfg.Scan.InterSymbolDelay,
		ErrorSummaryLimit:  a.scanCfg.Scan.ErrorSummaryLimit,
		ErrorSummaryMaxLen: a.scanCfg.Scan.ErrorSummaryMaxLen,
		ConfigHash:         a.scanHash,
	}, a.log), nil
}
