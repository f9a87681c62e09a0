package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"grocery_store/config"
	"grocery_store/database"
	"grocery_store/handler"
	"grocery_store/helper"
	"grocery_store/metrics"
	"grocery_store/router"
	"grocery_store/service"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := helper.NewLogger(settings.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.ConnectDB(settings.Database, logger)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("database handle unavailable", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(registry)
	serverMetrics := metrics.NewServerMetrics(registry)

	var blobs service.BlobStore
	if settings.Cloudinary.Enabled() {
		cld, err := helper.InitCloudinary(settings.Cloudinary)
		if err != nil {
			logger.Fatal("cloudinary unavailable", zap.Error(err))
		}
		blobs = helper.NewCloudinaryStore(cld, settings.Cloudinary.Folder)
	} else {
		logger.Warn("cloudinary not configured, screenshot uploads will fail")
	}

	redisClient := helper.NewRedisClient(settings.Redis)
	defer redisClient.Close()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, live notifications disabled until it recovers", zap.Error(err))
	}
	cancelPing()
	publisher := helper.NewRedisPublisher(redisClient, settings.NotificationChannel)

	var mailer service.Mailer
	if settings.SMTP.Enabled() {
		mailer = helper.NewSMTPMailer(settings.SMTP, settings.Merchant.Name)
	}

	users := database.NewUserStore(db)
	notificationStore := database.NewNotificationStore(db)
	dispatcher, err := service.NewNotificationDispatcher(service.NotificationDispatcherDeps{
		Repository: notificationStore,
		Publisher:  publisher,
		Mailer:     mailer,
		Users:      users,
		Logger:     logger.Named("notifications"),
	})
	if err != nil {
		logger.Fatal("notification dispatcher", zap.Error(err))
	}
	notifications := service.NewNotificationService(notificationStore, logger.Named("notifications"), nil)

	orders, err := service.NewOrderService(service.OrderServiceDeps{
		Orders:     database.NewOrderStore(db),
		Products:   database.NewProductStore(db),
		Carts:      database.NewCartStore(db),
		Users:      users,
		Blobs:      blobs,
		Notifier:   dispatcher,
		UnitOfWork: database.NewTransactor(db),
		Payments: service.NewPaymentPathResolver(service.PaymentResolverConfig{
			MerchantUPIID: settings.Merchant.UPIID,
			MerchantName:  settings.Merchant.Name,
		}),
		Metrics: orderMetrics,
		Logger:  logger.Named("orders"),
	})
	if err != nil {
		logger.Fatal("order service", zap.Error(err))
	}

	scheduler, err := helper.StartPurgeScheduler(settings.NotificationPurgeCron, func(ctx context.Context) (int64, error) {
		return notifications.PurgeRead(ctx, settings.NotificationRetention)
	}, logger.Named("scheduler"))
	if err != nil {
		logger.Fatal("purge scheduler", zap.Error(err))
	}
	defer scheduler.Shutdown()

	app := fiber.New(fiber.Config{
		BodyLimit: settings.BodyLimitMB * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     settings.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept",
		AllowCredentials: true,
		ExposeHeaders:    "Set-Cookie",
		MaxAge:           600,
	}))

	router.SetupRoutes(app, router.Dependencies{
		Orders:        handler.NewOrderHandler(orders, logger.Named("http")),
		Notifications: handler.NewNotificationHandler(notifications, publisher, logger.Named("http")),
		Auth:          handler.NewAuthHandler(users, []byte(settings.JWTSecret), logger.Named("http")),
		Health:        handler.Health(sqlDB),
		JWTSecret:     []byte(settings.JWTSecret),
		Gatherer:      registry,
		ServerMetrics: serverMetrics,
	})

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	logger.Info("listening", zap.String("port", settings.Port))
	if err := app.Listen(":" + settings.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
