package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"github.com/zologic/city-ride/internal/app"
	"github.com/zologic/city-ride/internal/cache"
	"github.com/zologic/city-ride/internal/config"
	"github.com/zologic/city-ride/internal/handler"
	"github.com/zologic/city-ride/internal/maps"
	"github.com/zologic/city-ride/internal/payment"
	"github.com/zologic/city-ride/internal/push"
	internalRedis "github.com/zologic/city-ride/internal/redis"
	"github.com/zologic/city-ride/internal/repository/postgres"
	"github.com/zologic/city-ride/internal/service"
	"github.com/zologic/city-ride/internal/settings"
	"github.com/zologic/city-ride/internal/webhook"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database driver can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	server, scheduler, dispatcher := wireServer(db, redisClient, nrApp, cfg)

	// Retry worker for scheduled webhook deliveries.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go scheduler.Run(workerCtx, dispatcher.HandleRetry)

	// Expired rows in the durable cache tier are only filtered on read;
	// purge them periodically so the table does not grow unbounded.
	go purgeExpiredCache(workerCtx, postgres.NewCacheStore(db))

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// purgeExpiredCache deletes expired durable cache rows once an hour.
func purgeExpiredCache(ctx context.Context, store *postgres.CacheStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := store.PurgeExpired(ctx); err != nil {
				log.Printf("cache purge: %v", err)
			} else if n > 0 {
				log.Printf("cache purge: removed %d expired entries", n)
			}
		}
	}
}

// wireServer wires all dependencies and returns the HTTP server plus the
// retry scheduler and webhook dispatcher for the background worker.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *internalRedis.Scheduler, *webhook.Dispatcher) {
	// Operator settings live in the database.
	settingsProvider := settings.NewPostgresStore(db)

	// Two-tier cache: Redis in front of the cache_entries table.
	cacheStore := cache.NewTiered(
		internalRedis.NewCacheStore(redisClient),
		postgres.NewCacheStore(db),
	)

	// Repositories.
	rideRepo := postgres.NewRideRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	discountRepo := postgres.NewDiscountRepository(db)

	// External providers.
	routeProvider := maps.NewGoogleRoutes(settingsProvider)
	paymentProvider := payment.NewStripeProvider(settingsProvider)
	pushSender := push.NewOneSignal(settingsProvider)

	// Outbound webhook delivery. The event dispatcher carries retries; the
	// legacy notifier posts the plain ride row with a single attempt.
	scheduler := internalRedis.NewScheduler(redisClient, cfg.Worker.PollInterval)
	journal := internalRedis.NewFailureJournal(redisClient)
	dispatcher := webhook.NewDispatcher(settingsProvider, scheduler, journal)
	legacyNotifier := webhook.NewLegacyNotifier(settingsProvider, internalRedis.NewDeliveryStatusStore(redisClient))

	// Services.
	pricingService := service.NewPricingService(settingsProvider, routeProvider)
	discountService := service.NewDiscountService(discountRepo)
	bookingService := service.NewBookingService(
		rideRepo, driverRepo, discountRepo,
		paymentProvider, pushSender, dispatcher, legacyNotifier,
		cacheStore, settingsProvider,
	)
	driverService := service.NewDriverService(driverRepo, rideRepo)
	statsService := service.NewStatsService(rideRepo, driverRepo, cacheStore)
	reconcileService := service.NewReconcileService(rideRepo)

	// Handlers.
	router := app.NewRouter(app.RouterDeps{
		PricingHandler:     handler.NewPricingHandler(pricingService, discountService),
		BookingHandler:     handler.NewBookingHandler(bookingService),
		DriverHandler:      handler.NewDriverHandler(driverService),
		DiscountHandler:    handler.NewDiscountHandler(discountService),
		StatsHandler:       handler.NewStatsHandler(statsService),
		IntegrationHandler: handler.NewIntegrationHandler(reconcileService, bookingService),
		WebhookHandler:     handler.NewWebhookHandler(dispatcher, legacyNotifier),
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return server, scheduler, dispatcher
}
