package configs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds application configuration for capture-api.
type Config struct {
	Port          string `mapstructure:"PORT" validate:"required"`
	PrimaryDbAddr string `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	ReplicaDbAddr string `mapstructure:"REPLICA_DB_ADDR"`
	MaxDbCons     int32  `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons     int32  `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
	// RedisAddr shares the settlement rate limit across replicas. Empty keeps the limit per process.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// KafkaBrokers enables capture events and queued capture requests. Empty disables both.
	KafkaBrokers         string        `mapstructure:"KAFKA_BROKERS"`
	KafkaEventTopic      string        `mapstructure:"KAFKA_EVENT_TOPIC" validate:"required_with=KafkaBrokers"`
	KafkaCaptureTopic    string        `mapstructure:"KAFKA_CAPTURE_TOPIC" validate:"required_with=KafkaBrokers"`
	KafkaPartition       uint32        `mapstructure:"KAFKA_PARTITION" validate:"min=1"`
	KafkaEventRetention  time.Duration `mapstructure:"KAFKA_EVENT_RETENTION" validate:"required"`
	KafkaRetry           int           `mapstructure:"KAFKA_RETRY" validate:"min=1"`
	SettlementURL        string        `mapstructure:"SETTLEMENT_PROCESSOR_URL" validate:"omitempty,url"`
	SettlementTimeout    time.Duration `mapstructure:"SETTLEMENT_TIMEOUT" validate:"required"`
	SettlementConcurrent int           `mapstructure:"SETTLEMENT_CONCURRENCY" validate:"min=1"`
	SettlementRatePerSec int           `mapstructure:"SETTLEMENT_RATE_LIMIT_PER_SEC" validate:"min=1"`
	SettlementBurst      int           `mapstructure:"SETTLEMENT_RATE_BURST" validate:"min=1"`
	// Throttle wait guard: a charge that cannot get a token within this window is failed, never retried.
	SettlementMaxWait      time.Duration `mapstructure:"SETTLEMENT_MAX_THROTTLE_WAIT" validate:"required"`
	SimulatedDeclineModulo uint32        `mapstructure:"SIMULATED_DECLINE_MODULO"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("KAFKA_EVENT_TOPIC", "order-captured")
	viper.SetDefault("KAFKA_CAPTURE_TOPIC", "order-capture-requests")
	viper.SetDefault("KAFKA_PARTITION", "4")
	viper.SetDefault("KAFKA_EVENT_RETENTION", "168h")
	viper.SetDefault("KAFKA_RETRY", "3")
	viper.SetDefault("SETTLEMENT_TIMEOUT", "10s")
	viper.SetDefault("SETTLEMENT_CONCURRENCY", "4")
	viper.SetDefault("SETTLEMENT_RATE_LIMIT_PER_SEC", "50")
	viper.SetDefault("SETTLEMENT_RATE_BURST", "10")
	viper.SetDefault("SETTLEMENT_MAX_THROTTLE_WAIT", "2s")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running_in_test_mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running_in_development_mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/capture-api/configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
