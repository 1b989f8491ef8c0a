package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_broker_backend/internal/analytics"
	analyticsrepo "lead_broker_backend/internal/analytics/repository"
	"lead_broker_backend/internal/buyers"
	buyerrepo "lead_broker_backend/internal/buyers/repository"
	"lead_broker_backend/internal/email"
	"lead_broker_backend/internal/events"
	"lead_broker_backend/internal/geo"
	apphttp "lead_broker_backend/internal/http"
	"lead_broker_backend/internal/http/router"
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
)

// stores holds the persistence backends selected by STORE_BACKEND.
type stores struct {
	buyers    buyerrepo.Repository
	leads     leadrepo.LeadRepository
	analytics analyticsrepo.Repository
	health    apphttp.HealthChecker
	close     func()
}

// memoryHealth reports the in-process store as always reachable.
type memoryHealth struct{}

func (memoryHealth) Ping(context.Context) error { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.GetStoreBackend())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open stores", "error", err)
		panic("failed to open stores: " + err.Error())
	}
	defer st.close()

	table, err := pricing.LoadTable(cfg.GetTierConfigPath())
	if err != nil {
		log.Error("failed to load tier table", "error", err, "path", cfg.GetTierConfigPath())
		panic("failed to load tier table: " + err.Error())
	}
	log.Info("tier table loaded", "tiers", table.Names())

	mapsService := maps.NewService(cfg, log)
	var geocoder geo.Geocoder = mapsService
	if cfg.GetRedisURL() != "" {
		rdb, err := redisx.NewClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
		if err != nil {
			log.Error("failed to configure geocode cache", "error", err)
		} else {
			defer func() { _ = rdb.Close() }()
			geocoder = maps.NewCachedGeocoder(mapsService, rdb, cfg.GetGeocodeCacheTTL(), log)
			log.Info("geocode cache enabled", "ttl", cfg.GetGeocodeCacheTTL().String())
		}
	}
	evaluator := geo.NewEvaluator(geocoder, geo.Options{
		Timeout:       cfg.GetGeocodeTimeout(),
		FallbackMiles: cfg.GetGeocodeFallbackMiles(),
	}, log)

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	deliveryQueue, closeQueue := initDeliveryQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	sender := email.NewSender(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	buyersModule := buyers.NewModule(st.buyers, val, log)
	if cfg.UsesMemoryStore() {
		seeded, err := buyersModule.Service().SeedSampleBuyers(ctx)
		if err != nil {
			log.Error("failed to seed sample buyers", "error", err)
		} else {
			log.Info("sample buyers seeded", "count", seeded.Count)
		}
	}

	leadsModule := leads.NewModule(
		st.leads,
		st.buyers,
		evaluator,
		table,
		distribution.PolicyFromConfig(cfg),
		eventBus,
		val,
		log,
	)
	log.Info("distribution policy", "mode", string(leadsModule.Distributor().Policy().Mode),
		"buyers_per_lead", leadsModule.Distributor().Policy().SelectionCount())

	deliverer := notification.NewDeliverer(st.leads, st.buyers, sender, log)
	notificationModule := notification.New(deliverer, deliveryQueue, sse.New(log), log)
	notificationModule.RegisterHandlers(eventBus)
	defer notificationModule.SSE().Close()

	analyticsModule := analytics.NewModule(st.analytics, eventBus, val, log)
	mapsModule := maps.NewModule(mapsService)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   st.health,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			buyersModule,
			leadsModule,
			mapsModule,
			analyticsModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (stores, error) {
	if cfg.UsesMemoryStore() {
		log.Warn("using in-memory stores; data is lost on restart")
		return stores{
			buyers:    buyerrepo.NewMemory(),
			leads:     leadrepo.NewMemory(),
			analytics: analyticsrepo.NewMemory(),
			health:    memoryHealth{},
			close:     func() {},
		}, nil
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return stores{}, err
	}
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		pool.Close()
		return stores{}, err
	}
	log.Info("database migrations complete")

	return stores{
		buyers:    buyerrepo.NewPostgres(pool),
		leads:     leadrepo.New(pool),
		analytics: analyticsrepo.NewPostgres(pool),
		health:    db.NewPoolAdapter(pool),
		close:     pool.Close,
	}, nil
}

// initDeliveryQueue returns the asynq client when Redis is configured. Without
// one, buyer e-mails are sent from the event handler.
func initDeliveryQueue(cfg config.SchedulerConfig, log *logger.Logger) (notification.DeliveryQueue, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; buyer deliveries run inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize delivery queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
