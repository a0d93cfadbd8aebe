package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/HSouheill/vendor_settlement/config"
	"github.com/HSouheill/vendor_settlement/controllers"
	"github.com/HSouheill/vendor_settlement/logger"
	"github.com/HSouheill/vendor_settlement/metrics"
	"github.com/HSouheill/vendor_settlement/middleware"
	"github.com/HSouheill/vendor_settlement/repositories"
	"github.com/HSouheill/vendor_settlement/routes"
	"github.com/HSouheill/vendor_settlement/services"
	"github.com/HSouheill/vendor_settlement/utils"
	"github.com/HSouheill/vendor_settlement/websocket"
)

const serviceName = "vendor-settlement"

func main() {
	cfg, envLoaded := config.Load()

	zl, err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: serviceName,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()
	if !envLoaded {
		zl.Info(".env file not found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := config.ConnectDB(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	db := client.Database(cfg.DBName)

	var locker services.Locker = services.NewLocalLocker()
	redisClient := config.ConnectRedis(ctx, cfg, zl)
	if redisClient != nil {
		locker = services.NewRedisLocker(redisClient, cfg.LockTTL, zl)
	}

	channels := []services.Channel{}
	if cfg.SMTPHost != "" {
		channels = append(channels, services.NewMailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom))
	} else {
		zl.Warn("SMTP_HOST is not set, admin mail is disabled")
	}
	messagingClient, err := config.InitMessaging(ctx, cfg, zl)
	if err != nil {
		zl.Error("Failed to initialize Firebase messaging, push is disabled", zap.Error(err))
	} else if messagingClient != nil {
		channels = append(channels, services.NewPushSender(messagingClient))
	}
	queue := services.NewNotificationQueue(services.NotificationQueueConfig{
		Workers:  cfg.NotifyWorkers,
		Size:     cfg.NotifyQueueSize,
		Attempts: cfg.NotifyAttempts,
		Delay:    cfg.NotifyDelay,
		MaxDelay: cfg.NotifyMaxDelay,
	}, zl, channels...)
	queue.Start(ctx)

	hub := websocket.NewHub(zl)
	go hub.Run(ctx)

	stores := services.Stores{
		Tx:          repositories.NewMongoTxRunner(client),
		Vendors:     repositories.NewVendorRepository(db),
		Plans:       repositories.NewPlanRepository(db),
		Recharges:   repositories.NewRechargeRepository(db),
		Invites:     repositories.NewInviteRepository(db),
		Ledger:      repositories.NewWalletRepository(db),
		Withdrawals: repositories.NewWithdrawalRepository(db),
		Audit:       repositories.NewCronJobRepository(db),
	}
	opts := services.Options{
		Logger:     zl,
		Locker:     locker,
		Notifier:   queue,
		Events:     hub,
		AdminEmail: cfg.AdminEmail,
	}

	sweeper := services.NewExpirySweeper(stores, opts)
	scheduler := services.NewScheduler(services.SchedulerConfig{
		Name:       services.ExpirySweepJobName,
		Interval:   cfg.SweepInterval,
		Jitter:     cfg.SweepJitter,
		RunAtStart: cfg.SweepRunAtStart,
	}, sweeper.Run, zl)
	go scheduler.Run(ctx)

	rateLimiter := middleware.NewRateLimiter()
	go rateLimiter.Cleanup(ctx, time.Hour)

	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.NewValidator()

	e.Use(logger.Middleware())
	e.Use(echoMiddleware.Recover())
	e.Use(metrics.NewHTTPMetrics(serviceName).Middleware())
	e.Use(middleware.CORSWithConfig(middleware.NewCORSConfig(cfg.AllowedOrigins)))
	e.Use(middleware.SecurityHeaders(middleware.SecurityConfig{
		ConnectDomains: cfg.AllowedOrigins,
		HSTS:           cfg.IsProduction(),
	}))
	e.Use(rateLimiter.RateLimit())

	routes.SetupRoutes(e, routes.Controllers{
		Recharges: controllers.NewRechargeController(
			services.NewRechargeService(stores, opts),
			services.NewSettlementService(stores, opts),
		),
		Referrals:   controllers.NewReferralController(services.NewReferralService(stores, opts)),
		Withdrawals: controllers.NewWithdrawalController(services.NewWithdrawalService(stores, opts)),
		CronLogs:    controllers.NewCronLogController(stores.Audit),
	}, hub, cfg.JWTSecret, zl)

	go func() {
		zl.Info("Starting server", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("Server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("HTTP server shutdown failed", zap.Error(err))
	}
	queue.Stop()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			zl.Warn("Redis close failed", zap.Error(err))
		}
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		zl.Error("MongoDB disconnect failed", zap.Error(err))
	}
}
