// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tekpay/internal/config"
	"tekpay/internal/events"
	"tekpay/internal/handlers"
	"tekpay/internal/jobs"
	"tekpay/internal/logger"
	"tekpay/internal/metrics"
	"tekpay/internal/middleware"
	"tekpay/internal/providers/fcm"
	"tekpay/internal/providers/flutterwave"
	"tekpay/internal/providers/monnify"
	"tekpay/internal/providers/stripe"
	"tekpay/internal/providers/vtpass"
	"tekpay/internal/repositories"
	"tekpay/internal/repositories/cache"
	"tekpay/internal/routes"
	"tekpay/internal/services/auth"
	"tekpay/internal/services/funding"
	"tekpay/internal/services/notification"
	"tekpay/internal/services/reconciler"
	"tekpay/internal/services/settlement"
	"tekpay/internal/services/transfer"
	"tekpay/internal/services/user"
	"tekpay/internal/services/wallet"
	"tekpay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const version = "1.0.0"

// main initializes and starts the HTTP server.
// It performs the following setup:
// - Loads configuration
// - Initializes database and Redis connections
// - Wires providers, services and handlers
// - Starts the pending sweep and the HTTP server
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	db, err := repositories.InitDB(cfg, zlog)
	if err != nil {
		zlog.Fatal("database init failed", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zlog.Fatal("failed to get database instance", zap.Error(err))
	}
	if err := sqlDB.Ping(); err != nil {
		zlog.Fatal("failed to ping database", zap.Error(err))
	}

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	keys := cache.NewCacheService(redisClient, time.Hour)
	if err := keys.HealthCheck(context.Background()); err != nil {
		zlog.Warn("redis unreachable at startup", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheus(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go logPoolStats(ctx, db, zlog)

	app, scheduler, notifications, publisher := build(cfg, db, keys, registry, recorder, zlog)
	scheduler.Start(ctx)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()
	zlog.Info("tekpay api started", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	<-ctx.Done()
	zlog.Info("shutting down")

	scheduler.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("http shutdown", zap.Error(err))
	}
	notifications.Wait()
	if err := publisher.Close(); err != nil {
		zlog.Warn("failed to close event publisher", zap.Error(err))
	}
	if err := keys.Close(); err != nil {
		zlog.Warn("failed to close Redis connection", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		zlog.Warn("failed to close database connection", zap.Error(err))
	}
}

func build(cfg *config.Config, db *gorm.DB, keys *cache.CacheService, registry *prometheus.Registry, recorder metrics.Recorder, zlog *zap.Logger) (*fiber.App, *jobs.Scheduler, *notification.Service, events.Publisher) {
	store := repositories.NewStore(db)
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}

	// Providers
	biller := vtpass.NewClient(vtpass.Config{
		BaseURL:   cfg.VTpassBaseURL,
		APIKey:    cfg.VTpassAPIKey,
		SecretKey: cfg.VTpassSecretKey,
		PublicKey: cfg.VTpassPublicKey,
		Timeout:   cfg.ProviderTimeout,
	}, httpClient)
	payouts := flutterwave.NewClient(flutterwave.Config{
		BaseURL:   cfg.FlutterwaveBaseURL,
		SecretKey: cfg.FlutterwaveSecretKey,
		Timeout:   cfg.ProviderTimeout,
	}, httpClient, keys)
	monnifyCfg := monnify.Config{
		BaseURL:      cfg.MonnifyBaseURL,
		APIKey:       cfg.MonnifyAPIKey,
		SecretKey:    cfg.MonnifySecretKey,
		ContractCode: cfg.MonnifyContractCode,
		Timeout:      cfg.ProviderTimeout,
	}
	accounts := monnify.NewClient(monnifyCfg, httpClient, monnify.NewTokenSource(monnifyCfg, httpClient, keys))
	pusher := fcm.NewClient(fcm.Config{
		ProjectID:   cfg.FCMProjectID,
		AccessToken: cfg.FCMAccessToken,
		Timeout:     cfg.ProviderTimeout,
	}, httpClient)

	var (
		cards        funding.Cards
		stripeEvents reconciler.StripeEvents
	)
	if cfg.StripeSecretKey != "" {
		client := stripe.NewClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret, nil)
		cards, stripeEvents = client, client
	} else {
		zlog.Info("stripe not configured, card funding disabled")
	}

	// Services
	publisher := events.New(cfg.KafkaBrokerList(), cfg.KafkaTopic, zlog.Named("events"), recorder)
	notifications := notification.NewService(repositories.NewNotificationRepository(db), pusher, publisher, zlog.Named("notifications"))
	tokens := utils.NewJWT(cfg.JWTSecret, cfg.RefreshSecret)

	authService := auth.NewService(store.Users(), tokens, keys, zlog.Named("auth"))
	userService := user.NewService(store, accounts, notifications, decimal.NewFromFloat(cfg.ReferralBonus), zlog.Named("users"))
	walletService := wallet.NewService(store, zlog.Named("wallet"), recorder)
	transferService := transfer.NewService(store, notifications, zlog.Named("transfer"), recorder)
	settlementService := settlement.NewService(store, biller, payouts, notifications, zlog.Named("settlement"), recorder)
	reconcilerService := reconciler.NewService(store, notifications, stripeEvents, zlog.Named("reconciler"), recorder)
	fundingService := funding.NewService(store, cards, zlog.Named("funding"))

	scheduler, err := jobs.NewScheduler(settlementService, jobs.Config{
		Schedule: cfg.SweepSchedule,
		MinAge:   cfg.SweepMinAge,
		Batch:    cfg.SweepBatch,
		Timezone: cfg.Timezone,
	}, zlog.Named("jobs"))
	if err != nil {
		zlog.Fatal("scheduler init failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "Tekpay API " + version,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProviderTimeout + 15*time.Second,
	})

	// CORS middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + middleware.PinHeader,
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: !strings.Contains(cfg.CORSOrigins, "*"),
	}))

	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/register", rateLimit(5))
	app.Use("/api/login", rateLimit(5))
	app.Use("/api/pin", rateLimit(5))

	sqlDB, _ := db.DB()
	routes.SetupRoutes(app, routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService, cfg.IsProduction(), zlog.Named("http")),
		User:          handlers.NewUserHandler(userService, zlog.Named("http")),
		Wallet:        handlers.NewWalletHandler(walletService, fundingService),
		Transfer:      handlers.NewTransferHandler(transferService, userService, settlementService, payouts),
		Bill:          handlers.NewBillHandler(settlementService, biller),
		Notification:  handlers.NewNotificationHandler(notifications),
		Webhook:       handlers.NewWebhookHandler(reconcilerService, cfg.FlutterwaveWebhookHash, zlog),
		Admin:         handlers.NewAdminHandler(settlementService, store.Transactions(), cfg.SweepMinAge, cfg.SweepBatch, zlog.Named("admin")),
		Health:        handlers.NewHealthHandler(version, map[string]handlers.Check{"database": sqlDB.PingContext, "redis": keys.HealthCheck}),
		Middleware:    middleware.NewAuthMiddleware(authService, zlog.Named("http")),
		Pins:          authService,
		MetricsSource: registry,
	})

	return app, scheduler, notifications, publisher
}

func rateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status":  false,
				"message": "Too many requests. Please try again later.",
			})
		},
	})
}

// logPoolStats periodically logs the connection pool state.
func logPoolStats(ctx context.Context, db *gorm.DB, zlog *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := sqlDB.Stats()
			zlog.Debug("db pool",
				zap.Int("open", stats.OpenConnections),
				zap.Int("idle", stats.Idle),
				zap.Int("in_use", stats.InUse),
				zap.Int64("wait_count", stats.WaitCount),
				zap.Duration("wait_duration", stats.WaitDuration))
		}
	}
}
