package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/cache"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/capture"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/database"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/events"
	middleware "github.com/nimeshabuddhika/split-tender-processor/pkg/middlewares"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/repositories"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/settlement"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/utils"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/configs"
	_ "github.com/nimeshabuddhika/split-tender-processor/services/capture-api/docs"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/handlers"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/services"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const settlementLimiterKey = "split-tender:settlement"

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}

	// Initialize postgres db
	dbConfig := database.Config{
		PrimaryDSN:  cfg.PrimaryDbAddr,
		ReplicaDSNs: []string{cfg.ReplicaDbAddr},
		MaxConns:    cfg.MaxDbCons,
		MinConns:    cfg.MinDbCons,
	}
	db, disconnect, err := database.New(ctx, logger, dbConfig)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){disconnect}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Run migrations on primary
	if err := database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		cleanup()
		return nil, nil, err
	}

	// Settlement throttle, shared across replicas when redis is configured
	var redisClient redis.Cmdable
	if !utils.IsEmpty(cfg.RedisAddr) {
		client, closeRedis, err := cache.New(ctx, logger, cache.Config{Addr: cfg.RedisAddr})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, closeRedis)
		redisClient = client
	}
	limiter := pkg.NewDistributedLimiter(redisClient, settlementLimiterKey, cfg.SettlementRatePerSec, cfg.SettlementBurst, logger)
	gateway := settlement.NewGateway(settlement.Config{
		ProcessorURL:    cfg.SettlementURL,
		Timeout:         cfg.SettlementTimeout,
		MaxThrottleWait: cfg.SettlementMaxWait,
		DeclineModulo:   cfg.SimulatedDeclineModulo,
	}, limiter, logger)

	// Capture events and queued capture requests
	var (
		capturePublisher capture.Publisher
		requestPublisher services.CaptureRequestPublisher
	)
	if !utils.IsEmpty(cfg.KafkaBrokers) {
		publisher, err := events.NewKafkaPublisher(ctx, logger, events.Config{
			Brokers:       cfg.KafkaBrokers,
			EventTopic:    cfg.KafkaEventTopic,
			RequestTopic:  cfg.KafkaCaptureTopic,
			Partitions:    cfg.KafkaPartition,
			Retention:     cfg.KafkaEventRetention,
			CreateTopics:  true,
			DeliveryRetry: cfg.KafkaRetry,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, publisher.Close)
		capturePublisher = publisher
		requestPublisher = publisher
	} else {
		logger.Warn("kafka_disabled", zap.String("reason", "KAFKA_BROKERS is empty"))
	}

	// Setup dependencies
	orderRepo := repositories.NewOrderRepository()
	paymentRepo := repositories.NewPaymentRepository()
	instrumentRepo := repositories.NewInstrumentRepository()

	engine := capture.NewEngine(capture.EngineConfig{
		Logger:      logger,
		DB:          db,
		OrderRepo:   orderRepo,
		PaymentRepo: paymentRepo,
		Gateway:     gateway,
		Publisher:   capturePublisher,
		Concurrency: cfg.SettlementConcurrent,
	})

	svcConfig := services.ServiceConfig{Logger: logger, Reader: db, DB: db}
	baseHandler := handlers.NewBaseHandler(logger)
	instrumentHandler := handlers.NewInstrumentHandler(logger, services.NewInstrumentService(svcConfig, instrumentRepo))
	orderHandler := handlers.NewOrderHandler(logger, services.NewOrderService(svcConfig, orderRepo, paymentRepo))
	paymentHandler := handlers.NewPaymentHandler(logger, services.NewPaymentService(svcConfig, orderRepo, paymentRepo, instrumentRepo))
	captureHandler := handlers.NewCaptureHandler(logger, services.NewCaptureService(svcConfig, engine, orderRepo, requestPublisher))

	// Router
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.Use(middleware.TraceID(logger))
	api.Use(middleware.Metrics())

	instrumentHandler.RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)
	paymentHandler.RegisterRoutes(api)
	captureHandler.RegisterRoutes(api)
	baseHandler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	return srv, cleanup, nil
}
