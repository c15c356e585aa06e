package common

import (
	"context"
	"log"
	"strings"

	"storefront-deposits-go/internal/api"
	"storefront-deposits-go/internal/database"
	"storefront-deposits-go/internal/fees"
	"storefront-deposits-go/internal/formance"
	"storefront-deposits-go/internal/idempotency"
	"storefront-deposits-go/internal/models"
	"storefront-deposits-go/internal/paypal"
	"storefront-deposits-go/internal/processor"
	"storefront-deposits-go/internal/reconcile"
	"storefront-deposits-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService  *database.Service
	Provider   *paypal.Client   // nil when no API credentials are configured
	Mirror     *formance.Service // nil when the external ledger is disabled
	Verifier   *paypal.Verifier
	Processor  *processor.Processor
	Webhooks   *processor.WebhookHandler
	Reconciler *reconcile.Reconciler
	Ledger     *api.LedgerService

	memCache   *idempotency.MemoryCache
	redisCache *idempotency.RedisCache
}

// InitializeLogger builds the production logger at the given level and installs
// it as the global logger.
// InitializeBootstrapLogger installs a production logger as the global logger
// before the configuration, and therefore the log level, is known.
func InitializeBootstrapLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	return logger
}

func InitializeLogger(level string) (*zap.Logger, func()) {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := zcfg.Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	s := &Services{DbService: dbService}

	cache := s.initializeCache(ctx, cfg.Cache)
	guard := idempotency.NewGuard(dbService, cache)

	classifier, err := processor.LoadClassifier(cfg.Processing.EventsFile)
	if err != nil {
		s.Close()
		return nil, err
	}

	var mirror store.LedgerMirror
	if cfg.Formance.Enabled() {
		s.Mirror, err = formance.NewService(ctx, cfg.Formance)
		if err != nil {
			s.Close()
			return nil, err
		}
		mirror = s.Mirror
	}

	var provider reconcile.Provider
	if cfg.PayPal.Configured() {
		s.Provider, err = paypal.NewClient(cfg.PayPal)
		if err != nil {
			s.Close()
			return nil, err
		}
		provider = s.Provider
	} else {
		zap.L().Warn("PayPal API credentials not set, manual processing will use local records only")
	}

	var checker paypal.SignatureChecker
	if s.Provider != nil {
		checker = s.Provider
	}
	s.Verifier = paypal.NewVerifier(checker, cfg.PayPal.WebhookId)
	s.Processor = processor.New(dbService, guard, mirror, processor.Options{
		AllowHeuristicMatch: cfg.Processing.AllowHeuristicMatch,
		OverridePendingOnly: cfg.Processing.OverridePendingOnly,
	})
	s.Webhooks = processor.NewWebhookHandler(s.Processor, classifier)
	s.Reconciler = reconcile.New(dbService, s.Processor, provider, mirror, reconcile.Options{
		ManualRetries:         cfg.Processing.ManualRetries,
		RetryDelay:            cfg.Processing.RetryDelay,
		RecentCompletedWindow: cfg.Processing.RecentCompletedWindow,
		BatchConcurrency:      cfg.Processing.BatchConcurrency,
		Tolerance:             cfg.Processing.ReconcileTolerance,
	})
	s.Ledger = api.NewLedgerService(dbService, fees.NewCalculator(cfg.Fees.Rate, cfg.Fees.Fixed), s.Processor)

	return s, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// initializeCache prefers the shared cache and falls back to process memory.
func (s *Services) initializeCache(ctx context.Context, cfg models.CacheConfig) idempotency.Cache {
	if cfg.Addr != "" {
		rc, err := idempotency.NewRedisCache(ctx, cfg)
		if err == nil {
			s.redisCache = rc
			return rc
		}
		zap.L().Warn("Falling back to in-memory idempotency cache", zap.Error(err))
	}

	s.memCache = idempotency.NewMemoryCache(cfg.TTL, cfg.CleanupInterval)
	s.memCache.Start(ctx)
	return s.memCache
}

func (s *Services) Close() {
	if s.memCache != nil {
		s.memCache.Stop()
	}
	if s.redisCache != nil {
		s.redisCache.Close()
	}
	if s.Mirror != nil {
		s.Mirror.Close()
	}
	if s.DbService != nil {
		s.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
