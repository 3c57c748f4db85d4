// Command server runs the content-trust pipeline: scoring, ledger,
// moderation, notifications, appeals, the audit trail, and their background
// jobs behind one HTTP front.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/config"
	"github.com/campusvoice/contenttrust/internal/jobs"
	"github.com/campusvoice/contenttrust/internal/server"
	"github.com/campusvoice/contenttrust/internal/service/appeal"
	"github.com/campusvoice/contenttrust/internal/service/audit"
	"github.com/campusvoice/contenttrust/internal/service/ledger"
	"github.com/campusvoice/contenttrust/internal/service/moderation"
	"github.com/campusvoice/contenttrust/internal/service/notification"
	"github.com/campusvoice/contenttrust/internal/service/scoring"
	"github.com/campusvoice/contenttrust/pkg/di"
	"github.com/campusvoice/contenttrust/pkg/logger"
	"github.com/campusvoice/contenttrust/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Environment: cfg.AppEnv,
		LogLevel:    cfg.LogLevel,
		ServiceName: cfg.AppName,
	})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// redis is optional: without it every read goes to the store
	var (
		contentCache *redis.Cache
		scoringCache *redis.Cache
		unreadCache  *redis.Cache
		redisClient  *redis.Client
	)
	if cfg.RedisHost != "" {
		redisClient, err = redis.NewClient(redis.Config{
			Host:         cfg.RedisHost,
			Port:         cfg.RedisPort,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
			MaxRetries:   cfg.RedisMaxRetries,
		}, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		contentCache = redis.NewCache(redisClient, redis.NamespaceCache, redis.ContextContent)
		scoringCache = redis.NewCache(redisClient, redis.NamespaceCache, redis.ContextScoring)
		unreadCache = redis.NewCache(redisClient, redis.NamespaceCache, redis.ContextNotification)
	} else {
		log.Warn("redis not configured, running without caches")
	}

	// services, wired storage-up
	auditSvc := audit.NewService(log, audit.NewPostgresRepository(db, log))
	analyzer := scoring.NewAnalyzer(cfg.Thresholds)
	scoringSvc := scoring.NewService(log, scoring.NewPostgresRepository(db, log), analyzer, scoringCache)

	dispatcher := notification.NewDispatcher(log, notification.NewLogProvider(log), cfg.NotifyTimeout)
	notifySvc := notification.NewService(log, notification.NewPostgresRepository(db, log), dispatcher, unreadCache)

	modSvc := moderation.NewService(log, moderation.NewPostgresRepository(db, log), scoringSvc, notifySvc,
		contentCache, moderation.Config{AutoApprovePassing: cfg.AutoApprovePassing})

	ledgerSvc := ledger.NewService(log, ledger.NewPostgresRepository(db, log), contentCache, modSvc, auditSvc,
		ledger.Policy{DedupeFlags: cfg.DedupeFlags, FlagAutoThreshold: cfg.FlagAutoThreshold})

	appealSvc := appeal.NewService(log, appeal.NewPostgresRepository(db, log), modSvc, notifySvc)

	container := di.New()
	for _, reg := range []struct {
		iface    interface{}
		instance interface{}
	}{
		{(*audit.Service)(nil), auditSvc},
		{(*scoring.Service)(nil), scoringSvc},
		{(*notification.Service)(nil), notifySvc},
		{(*moderation.Service)(nil), modSvc},
		{(*ledger.Service)(nil), ledgerSvc},
		{(*appeal.Service)(nil), appealSvc},
	} {
		instance := reg.instance
		if err := container.Register(reg.iface, func(_ *di.Container) (interface{}, error) {
			return instance, nil
		}); err != nil {
			return fmt.Errorf("register service: %w", err)
		}
	}

	// live threshold tuning
	if cfg.ThresholdsFile != "" {
		watcher, err := config.NewThresholdWatcher(log, cfg.ThresholdsFile, func(t config.Thresholds) {
			analyzer.SetThresholds(t)
			log.Info("scoring thresholds reloaded",
				zap.Float64("profanity", t.Profanity),
				zap.Float64("spam", t.Spam),
				zap.Float64("quality_floor", t.QualityFloor),
				zap.Float64("sentiment_floor", t.SentimentFloor),
			)
		})
		if err != nil {
			return fmt.Errorf("create threshold watcher: %w", err)
		}
		go func() {
			if err := watcher.Start(ctx); err != nil {
				log.Error("threshold watcher stopped", zap.Error(err))
			}
		}()
	}

	runner := jobs.New(log)
	if err := runner.Register(cfg.ReconcileSchedule, "counter_reconciliation", func(ctx context.Context) error {
		_, err := ledgerSvc.Reconcile(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("register reconcile job: %w", err)
	}
	if err := runner.Register(cfg.ScoringSchedule, "scoring_sweep", func(ctx context.Context) error {
		_, err := scoringSvc.BulkAnalyze(ctx, cfg.ScoringBatchSize, false)
		return err
	}); err != nil {
		return fmt.Errorf("register scoring job: %w", err)
	}
	runner.Start()
	defer runner.Stop()

	return server.New(container, log, cfg).Run(ctx)
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
