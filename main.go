package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-service/common/auth"
	apperrors "marketplace-service/common/errors"
	"marketplace-service/common/logger"
	commonmw "marketplace-service/common/middleware"
	"marketplace-service/controllers"
	"marketplace-service/database"
	"marketplace-service/events"
	"marketplace-service/jobs"
	"marketplace-service/models"
	aws_pkg "marketplace-service/pkg/aws"
	"marketplace-service/repository"
	"marketplace-service/routes"
	"marketplace-service/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
	if err != nil {
		panic("failed to load AWS config: " + err.Error())
	}

	// --- 1. Logging ---
	var cloudWatch io.Writer
	var cloudWatchErr error
	if cfg.CloudWatchEnabled {
		cw, err := aws_pkg.NewCloudWatchLogsClient(context.Background(), awsCfg, cfg.LogGroup, cfg.ServiceName)
		if err != nil {
			cloudWatchErr = err
		} else {
			cloudWatch = cw
		}
	}
	log := logger.Initialize(cfg.Env, logger.Options{
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		CloudWatch: cloudWatch,
	})
	defer log.Sync()
	if cloudWatchErr != nil {
		log.Warn("CloudWatch logs disabled", zap.Error(cloudWatchErr))
	}

	// --- 2. Storage ---
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	mongoClient, db, err := database.ConnectMongo(startupCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	if err := database.EnsureIndexes(startupCtx, db); err != nil {
		log.Warn("Failed to ensure indexes", zap.Error(err))
	}

	rdb, err := database.NewRedisClient(startupCtx, cfg.RedisURL)
	if err != nil {
		log.Warn("Redis unavailable, caching degraded", zap.Error(err))
	}
	cache := services.NewCacheManager(rdb, log)

	var pg *gorm.DB
	var notificationRepo repository.NotificationRepo
	if cfg.Postgres.Enabled() {
		pg, err = database.ConnectPostgres(cfg.Postgres, log, 5, &models.Notification{})
		if err != nil {
			log.Warn("Postgres unavailable, notifications disabled", zap.Error(err))
		} else {
			notificationRepo = repository.NewNotificationRepository(pg)
		}
	}

	// --- 3. Dependency Injection ---
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	brandRepo := repository.NewBrandRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	homepageRepo := repository.NewHomepageRepository(db)
	applicationRepo := repository.NewSellerApplicationRepository(db)
	verificationRepo := repository.NewBrandVerificationRepository(db)
	tx := repository.NewTransactor(mongoClient, cfg.MongoTransactions)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatal("Failed to create token service", zap.Error(err))
	}

	pool, err := ants.NewPool(cfg.UploadWorkers)
	if err != nil {
		log.Fatal("Failed to create upload pool", zap.Error(err))
	}
	defer pool.Release()

	metrics := aws_pkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.CloudWatchEnabled)
	store := aws_pkg.NewObjectStore(awsCfg, cfg.S3Bucket, cfg.S3PublicBaseURL)

	var payments services.PaymentVerifier
	if cfg.StripeSecretKey != "" {
		payments = services.NewStripeVerifier(cfg.StripeSecretKey)
	}

	bus := events.NewBus(log)

	userService := services.NewUserService(userRepo, tokens, cfg.BcryptCost, log)
	catalogService := services.NewCatalogService(categoryRepo, brandRepo, productRepo, bus, log)
	productService := services.NewProductService(productRepo, categoryRepo, brandRepo, userRepo, bus, metrics, log)
	orderService := services.NewOrderService(orderRepo, productRepo, tx, payments, bus, metrics, log)
	revenueService := services.NewRevenueService(orderRepo, productRepo, userRepo, cache, cfg.CacheTTL, log)
	homepageService := services.NewHomepageService(homepageRepo, productRepo, tx, cache, cfg.CacheTTL, bus, log)
	verificationService := services.NewVerificationService(applicationRepo, verificationRepo, userRepo, brandRepo, tx, bus, metrics, log)
	assetService := services.NewAssetService(store, productRepo, pool, cfg.UploadTimeout, metrics, log)
	notificationService := services.NewNotificationService(notificationRepo, log)

	// --- 4. Events and background work ---
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var queue *aws_pkg.Queue
	var sender events.MessageSender
	if cfg.CleanupQueueURL != "" {
		queue = aws_pkg.NewQueue(awsCfg, cfg.CleanupQueueURL, log)
		sender = queue
	}
	cleaner := events.NewAssetCleaner(assetService, sender, log)

	subscribers := events.Subscribers{
		Cache:  events.NewCacheInvalidator(revenueService, homepageService),
		Assets: cleaner,
	}
	if cfg.SNSTopicARN != "" {
		subscribers.SNS = events.NewSNSForwarder(aws_pkg.NewSNSClient(awsCfg), cfg.SNSTopicARN)
	}
	if notificationService.Enabled() {
		subscribers.Notifier = events.NewNotifier(notificationService)
	}
	if err := subscribers.Register(bus); err != nil {
		log.Fatal("Failed to register event subscribers", zap.Error(err))
	}

	if queue != nil {
		go func() {
			if err := queue.StartPolling(workerCtx, cleaner.HandleMessage); err != nil && workerCtx.Err() == nil {
				log.Error("Asset cleanup consumer stopped", zap.Error(err))
			}
		}()
	}

	scheduler := jobs.NewScheduler(time.UTC, log)
	err = jobs.RegisterMaintenance(scheduler, jobs.Config{
		SellerStatsSchedule:  cfg.SellerStatsSchedule,
		HomepageWarmSchedule: cfg.HomepageWarmSchedule,
	}, revenueService, homepageService, log)
	if err != nil {
		log.Fatal("Failed to schedule maintenance jobs", zap.Error(err))
	}
	scheduler.Start()

	// --- 5. HTTP Server & Middleware ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logger.RequestID())
	r.Use(apperrors.Recovery(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.RequestLogger(log))
	r.Use(commonmw.MetricsMiddleware(metrics, cfg.ServiceName))

	limiter := commonmw.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
	limiter.StartCleanup(workerCtx)
	r.Use(commonmw.RateLimitMiddleware(limiter))
	r.Use(commonmw.Timeout(cfg.RequestTimeout))
	r.Use(apperrors.ErrorMiddleware())
	r.NoRoute(apperrors.NoRoute())

	health := controllers.NewHealthController(cfg.ServiceName).
		Require("mongo", func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) })
	if rdb != nil {
		health.Observe("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	if pg != nil {
		health.Observe("postgres", func(ctx context.Context) error {
			sqlDB, err := pg.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	}

	routes.RegisterRoutes(r, routes.Controllers{
		Users:         controllers.NewUserController(userService),
		Catalog:       controllers.NewCatalogController(catalogService),
		Products:      controllers.NewProductController(productService),
		Orders:        controllers.NewOrderController(orderService),
		Revenue:       controllers.NewRevenueController(revenueService),
		Homepage:      controllers.NewHomepageController(homepageService),
		Verification:  controllers.NewVerificationController(verificationService, assetService),
		Uploads:       controllers.NewUploadController(assetService),
		ARModels:      controllers.NewARModelController(assetService),
		Notifications: controllers.NewNotificationController(notificationService),
		Health:        health,
	}, tokens)

	// --- 6. Graceful Shutdown ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Marketplace Service starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down Marketplace Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Warn("Maintenance jobs did not finish", zap.Error(err))
	}
	stopWorkers()
	bus.Close()

	if err := database.DisconnectMongo(mongoClient); err != nil {
		log.Error("Failed to disconnect MongoDB", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}
	if pg != nil {
		if err := database.ClosePostgres(pg); err != nil {
			log.Error("Failed to close Postgres", zap.Error(err))
		}
	}

	log.Info("Marketplace Service stopped gracefully")
}
