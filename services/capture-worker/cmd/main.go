package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/cache"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/capture"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/database"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/events"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/repositories"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/settlement"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/utils"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-worker/configs"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-worker/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const settlementLimiterKey = "split-tender:settlement"

// main initializes and runs the capture worker service.
func main() {
	pkg.InitLogger("capture-worker")
	logger := pkg.Logger
	defer func() { _ = logger.Sync() }()

	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed_to_load_config", zap.Error(err))
	}

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL database connection
	db, disconnect, err := database.New(ctx, logger, database.Config{
		PrimaryDSN:  cfg.PrimaryDbAddr,
		ReplicaDSNs: []string{cfg.ReplicaDbAddr},
		MaxConns:    cfg.MaxDbCons,
		MinConns:    cfg.MinDbCons,
	})
	if err != nil {
		logger.Fatal("failed_to_initialize_database", zap.Error(err))
	}
	defer disconnect()
	if err := database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		logger.Fatal("failed_to_run_migrations", zap.Error(err))
	}

	// Settlement throttle shared with capture-api replicas through redis
	var redisClient redis.Cmdable
	if !utils.IsEmpty(cfg.RedisAddr) {
		client, redisCloser, err := cache.New(ctx, logger, cache.Config{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Fatal("failed_to_initialize_redis", zap.Error(err))
		}
		defer redisCloser()
		redisClient = client
	}
	limiter := pkg.NewDistributedLimiter(redisClient, settlementLimiterKey, cfg.SettlementRatePerSec, cfg.SettlementBurst, logger)

	publisher, err := events.NewKafkaPublisher(ctx, logger, events.Config{
		Brokers:       cfg.KafkaBrokers,
		EventTopic:    cfg.KafkaEventTopic,
		RequestTopic:  cfg.KafkaCaptureTopic,
		DLQTopic:      cfg.KafkaDLQTopic,
		Partitions:    cfg.KafkaPartition,
		Retention:     cfg.KafkaEventRetention,
		DLQRetention:  cfg.KafkaDLQRetention,
		CreateTopics:  true,
		DeliveryRetry: cfg.KafkaRetry,
	})
	if err != nil {
		logger.Fatal("failed_to_create_kafka_publisher", zap.Error(err))
	}
	defer publisher.Close()

	engine := capture.NewEngine(capture.EngineConfig{
		Logger:      logger,
		DB:          db,
		OrderRepo:   repositories.NewOrderRepository(),
		PaymentRepo: repositories.NewPaymentRepository(),
		Gateway: settlement.NewGateway(settlement.Config{
			ProcessorURL:    cfg.SettlementURL,
			Timeout:         cfg.SettlementTimeout,
			MaxThrottleWait: cfg.SettlementMaxWait,
			DeclineModulo:   cfg.SimulatedDeclineModulo,
		}, limiter, logger),
		Publisher:   publisher,
		Concurrency: cfg.SettlementConcurrent,
	})

	consumer, err := services.NewKafkaCaptureConsumer(services.KafkaCaptureConfig{
		Context: ctx,
		Logger:  logger,
		Config:  cfg,
		Processor: services.NewCaptureProcessor(services.CaptureProcessorConfig{
			Logger:     logger,
			Engine:     engine,
			DeadLetter: publisher,
		}),
	})
	if err != nil {
		logger.Fatal("failed_to_create_kafka_consumer", zap.Error(err))
	}
	closeConsumer, err := consumer.Start()
	if err != nil {
		logger.Fatal("failed_to_start_kafka_consumer", zap.Error(err))
	}

	// Metrics and liveness
	r := gin.New()
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: r}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_error", zap.Error(err))
		}
	}()
	logger.Info("capture_worker_started", zap.String("metrics_addr", cfg.MetricsAddr))

	<-ctx.Done()
	logger.Info("received_shutdown_signal")
	closeConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics_server_shutdown_error", zap.Error(err))
	}
	logger.Info("service_shutdown_completed")
}
