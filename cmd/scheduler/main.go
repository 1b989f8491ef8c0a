package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	buyerrepo "lead_broker_backend/internal/buyers/repository"
	"lead_broker_backend/internal/email"
	"lead_broker_backend/internal/events"
	"lead_broker_backend/internal/geo"
	"lead_broker_backend/internal/leads"
	"lead_broker_backend/internal/leads/distribution"
	"lead_broker_backend/internal/leads/pricing"
	leadrepo "lead_broker_backend/internal/leads/repository"
	"lead_broker_backend/internal/maps"
	"lead_broker_backend/internal/notification"
	"lead_broker_backend/internal/notification/sse"
	"lead_broker_backend/internal/scheduler"
	"lead_broker_backend/platform/config"
	"lead_broker_backend/platform/db"
	"lead_broker_backend/platform/logger"
	"lead_broker_backend/platform/redisx"
	"lead_broker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if cfg.UsesMemoryStore() {
		panic("scheduler requires STORE_BACKEND=postgres; in-memory stores are not shared between processes")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	table, err := pricing.LoadTable(cfg.GetTierConfigPath())
	if err != nil {
		log.Error("failed to load tier table", "error", err)
		panic("failed to load tier table: " + err.Error())
	}

	rdb, err := redisx.NewClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to configure redis", "error", err)
		panic("failed to configure redis: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	mapsService := maps.NewService(cfg, log)
	evaluator := geo.NewEvaluator(
		maps.NewCachedGeocoder(mapsService, rdb, cfg.GetGeocodeCacheTTL(), log),
		geo.Options{Timeout: cfg.GetGeocodeTimeout(), FallbackMiles: cfg.GetGeocodeFallbackMiles()},
		log,
	)

	buyerStore := buyerrepo.NewPostgres(pool)
	leadStore := leadrepo.New(pool)
	eventBus := events.NewInMemoryBus(log)

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	// Leads re-distributed by the retry job are delivered like fresh ones.
	deliverer := notification.NewDeliverer(leadStore, buyerStore, email.NewSender(cfg, log), log)
	notification.New(deliverer, queue, sse.New(log), log).RegisterHandlers(eventBus)

	leadsModule := leads.NewModule(
		leadStore,
		buyerStore,
		evaluator,
		table,
		distribution.PolicyFromConfig(cfg),
		eventBus,
		validator.New(),
		log,
	)

	jobs := scheduler.NewCron(log)
	if err := scheduler.RegisterLeadJobs(jobs, cfg, leadsModule.Service(), log); err != nil {
		log.Error("failed to register maintenance jobs", "error", err)
		panic("failed to register maintenance jobs: " + err.Error())
	}

	worker, err := scheduler.NewWorker(cfg, deliverer, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		jobs.Run(gctx)
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	_ = g.Wait()
	eventBus.Wait()
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
