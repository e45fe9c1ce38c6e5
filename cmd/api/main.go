package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lealta/campaign-engine/internal/config"
	"github.com/lealta/campaign-engine/internal/handler"
	"github.com/lealta/campaign-engine/internal/infra/postgresql"
	"github.com/lealta/campaign-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/lealta/campaign-engine/internal/infra/redis"
	"github.com/lealta/campaign-engine/internal/observability"
	"github.com/lealta/campaign-engine/internal/provider"
	"github.com/lealta/campaign-engine/internal/queue"
	"github.com/lealta/campaign-engine/internal/repository"
	"github.com/lealta/campaign-engine/internal/service"
	"github.com/lealta/campaign-engine/internal/transport"
)

const consumerPrefetch = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, postgresql.PoolOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		LogQueries:   cfg.LogLevel == "debug",
	})
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	pacer, err := infraredis.NewSendPacer(rdb, cfg.SendRatePerSec)
	if err != nil {
		logger.Fatal("send pacer initialization failed", zap.Error(err))
	}

	rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rmq.Close()

	publisher := queue.NewRabbitMQPublisher(rmq)
	consumer := queue.NewRabbitMQConsumer(rmq, consumerPrefetch, logger)

	sender, err := provider.NewHTTPProvider(cfg.ProviderURL, cfg.SendTimeout())
	if err != nil {
		logger.Fatal("provider initialization failed", zap.Error(err))
	}

	campaignRepo := repository.NewGormCampaignRepo(db)
	contactRepo := repository.NewGormContactRepo(db)
	messageRepo := repository.NewGormMessageRepo(db)
	suppressionRepo := repository.NewGormSuppressionRepo(db)
	accountRepo := repository.NewGormAccountRepo(db)
	heartbeatRepo := repository.NewGormHeartbeatRepo(db)
	templateRepo := repository.NewGormTemplateRepo(db)

	metrics := observability.NewMetrics()
	registry := service.NewRegistry()
	router := service.NewAccountRouter(accountRepo, cfg.QuotaLocation(), logger)

	dispatcher, err := service.NewDispatcher(service.DispatcherDeps{
		Campaigns:      campaignRepo,
		Contacts:       contactRepo,
		Messages:       messageRepo,
		Suppression:    suppressionRepo,
		Heartbeats:     heartbeatRepo,
		Router:         router,
		Provider:       sender,
		Pacer:          pacer,
		Registry:       registry,
		Metrics:        metrics,
		Logger:         logger,
		WorkerName:     cfg.WorkerName,
		SendTimeout:    cfg.SendTimeout(),
		PersistRetries: cfg.PersistRetries,
	})
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	campaignSvc, err := service.NewCampaignService(ctx, campaignRepo, contactRepo, templateRepo, dispatcher, registry, cfg.WorkerName, logger)
	if err != nil {
		logger.Fatal("campaign service initialization failed", zap.Error(err))
	}

	suppressionSvc, err := service.NewSuppressionService(suppressionRepo, logger)
	if err != nil {
		logger.Fatal("suppression service initialization failed", zap.Error(err))
	}

	accountSvc, err := service.NewAccountService(accountRepo, cfg.QuotaLocation(), logger)
	if err != nil {
		logger.Fatal("account service initialization failed", zap.Error(err))
	}

	heartbeatSvc, err := service.NewHeartbeatService(heartbeatRepo, cfg.WorkerName, cfg.HeartbeatThreshold(), logger)
	if err != nil {
		logger.Fatal("heartbeat service initialization failed", zap.Error(err))
	}

	statusConsumer, err := service.NewStatusConsumer(messageRepo, suppressionSvc, consumer, logger)
	if err != nil {
		logger.Fatal("status consumer initialization failed", zap.Error(err))
	}

	if err := heartbeatSvc.Register(ctx); err != nil {
		logger.Fatal("worker registration failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(transport.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterCampaignRoutes(app, campaignSvc); err != nil {
		logger.Fatal("campaign routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterAccountRoutes(app, accountSvc); err != nil {
		logger.Fatal("account routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterSuppressionRoutes(app, suppressionSvc); err != nil {
		logger.Fatal("suppression routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterWorkerRoutes(app, heartbeatSvc); err != nil {
		logger.Fatal("worker routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterCallbackRoutes(app, publisher); err != nil {
		logger.Fatal("callback routes registration failed", zap.Error(err))
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return heartbeatSvc.Start(groupCtx)
	})

	group.Go(func() error {
		return statusConsumer.Start(groupCtx)
	})

	group.Go(func() error {
		logger.Info("campaign-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("service exited with error", zap.Error(err))
	}
	logger.Info("campaign-engine stopped")
}
