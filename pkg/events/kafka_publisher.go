// Package events publishes capture requests and committed capture outcomes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	kafkautils "github.com/nimeshabuddhika/split-tender-processor/pkg/kafka"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	"go.uber.org/zap"
)

// Config holds broker and topic settings for the publisher.
type Config struct {
	Brokers       string
	EventTopic    string // committed capture outcomes
	RequestTopic  string // capture requests consumed by the worker; optional
	DLQTopic      string // capture requests the worker gave up on; optional
	DLQRetention  time.Duration
	Partitions    uint32
	Retention     time.Duration
	CreateTopics  bool
	DeliveryRetry int
}

type KafkaPublisher struct {
	logger   *zap.Logger
	producer *kafka.Producer
	cfg      Config
}

// NewKafkaPublisher creates the topics (when asked) and an idempotent producer.
func NewKafkaPublisher(ctx context.Context, logger *zap.Logger, cfg Config) (*KafkaPublisher, error) {
	if cfg.Partitions == 0 {
		cfg.Partitions = 1
	}
	if cfg.CreateTopics {
		dlqRetention := cfg.DLQRetention
		if dlqRetention <= 0 {
			dlqRetention = cfg.Retention
		}
		err := kafkautils.InitKafkaTopics(ctx, logger, kafkautils.KafkaConfig{
			BootstrapServers: cfg.Brokers,
			Topics: []kafkautils.TopicConfig{
				kafkautils.RetentionTopicConfig(cfg.EventTopic, int(cfg.Partitions), cfg.Retention),
				kafkautils.RetentionTopicConfig(cfg.RequestTopic, int(cfg.Partitions), cfg.Retention),
				kafkautils.RetentionTopicConfig(cfg.DLQTopic, int(cfg.Partitions), dlqRetention),
			},
		})
		if err != nil {
			return nil, err
		}
	}

	retries := cfg.DeliveryRetry
	if retries <= 0 {
		retries = 3
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"acks":               "all",  // Wait for all replicas
		"enable.idempotence": "true", // Ensure messages are not sent twice
		"retries":            retries,
		"partitioner":        "consistent_random", // keyed messages hash to a fixed partition
	})
	if err != nil {
		return nil, err
	}
	logger.Info("kafka_producer_created", zap.String("brokers", cfg.Brokers))
	go handleDeliveryReports(logger, p)
	return &KafkaPublisher{logger: logger, producer: p, cfg: cfg}, nil
}

// PublishCaptured emits a committed capture outcome keyed by order id.
func (k *KafkaPublisher) PublishCaptured(_ context.Context, event views.CaptureEvent) error {
	return k.produce(k.cfg.EventTopic, event.OrderID, event.TraceID, event)
}

// PublishCaptureRequest queues an order for the capture worker.
func (k *KafkaPublisher) PublishCaptureRequest(_ context.Context, req views.CaptureRequest) error {
	return k.produce(k.cfg.RequestTopic, req.OrderID, req.TraceID, req)
}

// PublishDeadLetter parks a capture request the worker could not process.
func (k *KafkaPublisher) PublishDeadLetter(_ context.Context, letter views.CaptureDeadLetter) error {
	if k.cfg.DLQTopic == "" {
		return errors.New("dead letter topic is not configured")
	}
	return k.produce(k.cfg.DLQTopic, letter.OrderID, letter.TraceID, letter)
}

func (k *KafkaPublisher) produce(topic, orderID, traceID string, payload any) error {
	msg, err := newMessage(topic, orderID, traceID, payload)
	if err != nil {
		return err
	}
	return k.producer.Produce(msg, nil)
}

// newMessage keys the message by order id. The producer's key hash then keeps every message of one
// order on one partition, whatever the partition count of an existing topic.
func newMessage(topic, orderID, traceID string, payload any) (*kafka.Message, error) {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(orderID),
		Value:          msgBytes,
		Headers:        []kafka.Header{{Key: pkg.HeaderTraceId, Value: []byte(traceID)}},
	}, nil
}

// Close flushes outstanding messages and closes the producer.
func (k *KafkaPublisher) Close() {
	if remaining := k.producer.Flush(5000); remaining > 0 {
		k.logger.Warn("kafka_producer_unflushed_messages", zap.Int("remaining", remaining))
	}
	k.producer.Close()
}

func handleDeliveryReports(logger *zap.Logger, p *kafka.Producer) {
	for e := range p.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logger.Error("failed_to_publish_message",
					zap.String(pkg.OrderId, string(ev.Key)),
					zap.Error(ev.TopicPartition.Error))
			}
		}
	}
}
