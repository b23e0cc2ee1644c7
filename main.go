package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"qube-quest/config"
	"qube-quest/handlers"
	"qube-quest/logger"
	"qube-quest/middleware"
	"qube-quest/models"
	"qube-quest/services"
	"qube-quest/utils"
	"qube-quest/workers"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.Must(logger.Options{})
		boot.Fatal("❌ invalid configuration", zap.Error(err))
	}

	log := logger.Must(logger.Options{AppEnv: cfg.AppEnv, LogFile: cfg.LogFile})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	storage, err := proofStorage(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialize proof storage", zap.Error(err))
	}

	// 📣 Account change fan-out: local hub, relayed through redis when configured
	hub := services.NewHub()
	var publisher services.AccountPublisher = hub
	if cfg.RedisURL != "" {
		rdb, err := services.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		broadcaster := services.NewRedisBroadcaster(rdb, hub, log)
		publisher = broadcaster
		go broadcaster.Run(ctx)
	}

	metrics := services.EconomyMetrics()
	store := services.NewGormStore(db)

	identity := services.NewIdentityResolver(store, log, metrics)
	engine := services.NewGachaEngine(store, services.NewSelector(nil), publisher, services.GachaConfig{
		SpinCost:    cfg.SpinCost,
		MaxAttempts: cfg.SpinMaxAttempts,
	}, log, metrics)
	ledger := services.NewSubmissionLedger(store, publisher, log, metrics)
	questService := services.NewQuestService(db, log)
	statsService := services.NewStatsService(db)

	if _, err := workers.NewQuestLifecycleWorker(questService, cfg.QuestSweepInterval, log).Start(ctx); err != nil {
		log.Fatal("failed to start quest lifecycle worker", zap.Error(err))
	}

	var validator middleware.TokenValidator
	if cfg.AuthServiceURL != "" {
		validator = services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.GameServiceToken, log)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 16 * 1024 * 1024,
	})

	// 🔐❗ GLOBAL: only gateway requests, except health and metrics scrapes
	app.Use(middleware.GatewayAuthMiddleware(cfg.GameServiceToken, log, "/healthz", "/metrics"))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Origins(), ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupSystemRoutes(app, db)
	handlers.SetupAccountRoutes(app, identity, hub, middleware.SSEAuthMiddleware(validator, log), log)
	handlers.SetupGachaRoutes(app, engine, middleware.SpinLimiter(cfg.SpinRateLimitPerMinute), log)
	handlers.SetupQuestRoutes(app, questService, ledger, storage, log)
	handlers.SetupAdminRoutes(app, questService, ledger, statsService, log)

	if !cfg.UseR2() {
		app.Static("/uploads", cfg.UploadDir)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	log.Info("✅ Server running",
		zap.String("port", cfg.Port),
		zap.String("db_driver", cfg.DatabaseDriver),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Bool("r2", cfg.UseR2()),
		zap.Strings("cors_origins", cfg.Origins()))

	<-ctx.Done()
	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer; a single connection keeps conditional updates serialized
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	}
}

func proofStorage(ctx context.Context, cfg *config.Config) (utils.ProofStorage, error) {
	if cfg.UseR2() {
		return utils.NewR2Storage(ctx, utils.R2Config{
			AccountID:       cfg.CloudflareAccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2BucketName,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
	}
	return utils.NewLocalStorage(cfg.UploadDir)
}
