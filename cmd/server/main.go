package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	appservice "github.com/courierd/courierd/internal/application/service"
	"github.com/courierd/courierd/internal/config"
	"github.com/courierd/courierd/internal/infrastructure/audit"
	"github.com/courierd/courierd/internal/infrastructure/dispatch"
	"github.com/courierd/courierd/internal/infrastructure/kms"
	"github.com/courierd/courierd/internal/infrastructure/monitoring"
	"github.com/courierd/courierd/internal/infrastructure/persistence/postgres"
	redisconn "github.com/courierd/courierd/internal/infrastructure/persistence/redis"
	"github.com/courierd/courierd/internal/infrastructure/ratelimit"
	httpiface "github.com/courierd/courierd/internal/interfaces/http"
	"github.com/courierd/courierd/internal/interfaces/http/handlers"
	"github.com/courierd/courierd/pkg/constants"
	"github.com/courierd/courierd/pkg/logger"
)

func main() {
	// The reload callback only adjusts the log level: everything else needs
	// a restart to take effect.
	var appLogger *monitoring.ZapLogger
	cfg, err := config.Load(func(fresh *config.Config) {
		if appLogger != nil {
			appLogger.SetLevel(fresh.Log.Level)
		}
	})
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err = monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	ctx := context.Background()

	shutdownTracer, err := monitoring.InitTracer(&cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to initialize tracer", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	db, err := postgres.Connect(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to connect to database", err)
	}

	redisClient, err := redisconn.Connect(ctx, &cfg.Redis, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "failed to connect to redis", err)
	}
	defer redisClient.Close()

	metrics := monitoring.NewMetrics()

	// The audit signing secret comes from Vault when enabled, otherwise
	// straight from configuration.
	signingSecret := cfg.Audit.SigningSecret
	if cfg.Vault.Enabled {
		secretSource, err := kms.NewVaultSecretSource(cfg.Vault, appLogger)
		if err != nil {
			appLogger.Fatal(ctx, "failed to create vault client", err)
		}
		signingSecret, err = secretSource.AuditSigningSecret(ctx)
		if err != nil {
			appLogger.Fatal(ctx, "failed to fetch audit signing secret", err)
		}
	}
	signer, err := audit.NewSigner(signingSecret)
	if err != nil {
		appLogger.Fatal(ctx, "failed to create audit signer", err)
	}

	var forwarder audit.Forwarder
	if cfg.Audit.KafkaEnabled {
		kafkaForwarder := audit.NewKafkaForwarder(cfg.Kafka, appLogger)
		defer kafkaForwarder.Close()
		forwarder = kafkaForwarder
	}

	eventRepo := postgres.NewSecurityEventRepository(db)
	keyRepo := postgres.NewAPIKeyRepository(db)

	auditSink := audit.NewAsyncSink(eventRepo, signer, forwarder, cfg.Audit.QueueSize, appLogger, metrics)
	defer auditSink.Close()

	counterStore := ratelimit.NewRedisCounterStore(redisClient, appLogger)
	limiter := ratelimit.NewFixedWindowLimiter(counterStore)

	keySvc := appservice.NewAPIKeyAppService(keyRepo, auditSink,
		cfg.RateLimit.DefaultHourly, cfg.RateLimit.DefaultDaily, appLogger)
	validationSvc := appservice.NewValidationService(keyRepo, limiter, auditSink, metrics, appLogger)
	auditQuerySvc := appservice.NewAuditQueryService(eventRepo, appLogger)
	dispatcher := dispatch.NewLogDispatcher(appLogger)

	router := httpiface.NewRouter(
		cfg,
		appLogger,
		validationSvc,
		metrics,
		handlers.NewHealthHandler(db, redisClient),
		handlers.NewAdminHandler(keySvc, auditQuerySvc),
		handlers.NewNotificationHandler(dispatcher, appLogger),
	)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(router.Start)

	// Expiry sweeper: deactivates keys past their expiry so validation and
	// the sweeper agree on key liveness.
	group.Go(func() error {
		interval := cfg.RateLimit.CleanupInterval
		if interval <= 0 {
			interval = constants.DefaultCleanupInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if _, err := keySvc.CleanupExpired(groupCtx); err != nil {
					appLogger.Warn(groupCtx, "expired key sweep failed", logger.Error(err))
				}
			}
		}
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return router.Shutdown(shutdownCtx)
	})

	appLogger.Info(ctx, "courierd started",
		logger.String("address", cfg.Server.Host),
		logger.Int("port", cfg.Server.Port),
	)

	if err := group.Wait(); err != nil {
		appLogger.Error(ctx, "server exited with error", err)
		os.Exit(1)
	}
	appLogger.Info(ctx, "courierd stopped")
}
