package services

import (
	"context"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	kafkautils "github.com/nimeshabuddhika/split-tender-processor/pkg/kafka"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-worker/configs"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-worker/internal/observability"
	"go.uber.org/zap"
)

// KafkaCaptureConsumer reads capture requests and hands them to the processor with bounded concurrency.
type KafkaCaptureConsumer interface {
	Start() (func(), error)
}

type KafkaCaptureConfig struct {
	Context   context.Context
	Logger    *zap.Logger
	Config    *configs.Config
	Processor *CaptureProcessor

	// internal initialization
	consumer   *kafka.Consumer
	commits    *kafkautils.CommitManager
	captureSem chan struct{} // Semaphore to limit concurrent captures
	inflight   *sync.WaitGroup
}

// NewKafkaCaptureConsumer sets up the Kafka consumer and the semaphore from config values.
func NewKafkaCaptureConsumer(cfg KafkaCaptureConfig) (KafkaCaptureConsumer, error) {
	kafkaConsumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Config.KafkaBrokers,
		"group.id":           cfg.Config.KafkaConsumerGroup,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false, // offsets go through the commit manager
	})
	if err != nil {
		return nil, err
	}
	cfg.consumer = kafkaConsumer
	cfg.commits = kafkautils.NewCommitManager(kafkaConsumer, cfg.Logger)
	cfg.captureSem = make(chan struct{}, cfg.Config.MaxConcurrentCaptures)
	cfg.inflight = &sync.WaitGroup{}
	return &cfg, nil
}

// Start subscribes and runs the read loop in a goroutine. The returned func stops reading,
// waits for in-flight captures and closes the consumer.
func (k *KafkaCaptureConfig) Start() (func(), error) {
	topic := k.Config.KafkaCaptureTopic
	if err := k.consumer.SubscribeTopics([]string{topic}, nil); err != nil {
		return nil, err
	}
	k.Logger.Info("listening_to_kafka_topic",
		zap.String("topic", topic),
		zap.String("group", k.Config.KafkaConsumerGroup))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-k.Context.Done():
				return
			default:
			}
			ev := k.consumer.Poll(250)
			switch e := ev.(type) {
			case nil:
				continue
			case *kafka.Message:
				k.dispatch(e)
			case kafka.Error:
				k.Logger.Error("kafka_consumer_error", zap.Error(e))
			}
		}
	}()

	return func() {
		<-done
		k.inflight.Wait()
		if err := k.consumer.Close(); err != nil {
			k.Logger.Error("failed_to_close_kafka_consumer", zap.Error(err))
			return
		}
		k.Logger.Info("kafka_consumer_closed")
	}, nil
}

func (k *KafkaCaptureConfig) dispatch(msg *kafka.Message) {
	observability.MessagesReceived.WithLabelValues(topicOf(msg)).Inc()
	k.commits.Track(msg)

	// Acquire semaphore slot, blocking if limit is reached
	k.captureSem <- struct{}{}
	observability.InflightCaptures.Inc()
	k.inflight.Add(1)
	go func() {
		defer func() {
			<-k.captureSem
			observability.InflightCaptures.Dec()
			k.inflight.Done()
		}()
		// in-flight captures finish even when shutdown starts, so the outcome is committed
		k.Processor.Process(context.WithoutCancel(k.Context), msg)
		k.commits.Ack(string(msg.Key), msg)
	}()
}
