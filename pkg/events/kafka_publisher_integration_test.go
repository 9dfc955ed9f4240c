//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	kafkautils "github.com/nimeshabuddhika/split-tender-processor/pkg/kafka"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/testutil"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readOne(t *testing.T, brokers, topic string) *kafka.Message {
	t.Helper()
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"group.id":          "it-" + uuid.NewString(),
		"auto.offset.reset": "earliest",
	})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	require.NoError(t, c.SubscribeTopics([]string{topic}, nil))

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		msg, err := c.ReadMessage(time.Second)
		if err == nil {
			return msg
		}
		if kErr, ok := err.(kafka.Error); ok && kErr.IsTimeout() {
			continue
		}
		require.NoError(t, err)
	}
	t.Fatalf("no message on %s", topic)
	return nil
}

func header(msg *kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_RoundTrip(t *testing.T) {
	brokers := testutil.StartKafka(t)
	ctx := context.Background()

	publisher, err := NewKafkaPublisher(ctx, zap.NewNop(), Config{
		Brokers:      brokers,
		EventTopic:   "it-order-captured",
		RequestTopic: "it-capture-requests",
		DLQTopic:     "it-capture-requests-dlq",
		Partitions:   2,
		Retention:    time.Hour,
		CreateTopics: true,
	})
	require.NoError(t, err)
	t.Cleanup(publisher.Close)

	orderID := uuid.NewString()

	t.Run("capture event", func(t *testing.T) {
		event := views.CaptureEvent{OrderID: orderID, TraceID: "trace-it", Status: pkg.OrderStatusSucceeded}
		require.NoError(t, publisher.PublishCaptured(ctx, event))
		publisher.producer.Flush(5000)

		msg := readOne(t, brokers, "it-order-captured")
		assert.Equal(t, orderID, string(msg.Key))
		assert.Equal(t, "trace-it", header(msg, pkg.HeaderTraceId))
		var got views.CaptureEvent
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, pkg.OrderStatusSucceeded, got.Status)
	})

	t.Run("capture request", func(t *testing.T) {
		req := views.CaptureRequest{OrderID: orderID, TraceID: "trace-req", RequestedAt: time.Now().UTC()}
		require.NoError(t, publisher.PublishCaptureRequest(ctx, req))
		publisher.producer.Flush(5000)

		msg := readOne(t, brokers, "it-capture-requests")
		var got views.CaptureRequest
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, orderID, got.OrderID)
	})

	t.Run("dead letter", func(t *testing.T) {
		letter := views.CaptureDeadLetter{OrderID: orderID, Request: "{}", FailureReason: "order not found", Error: "missing", FailedAt: time.Now().UTC()}
		require.NoError(t, publisher.PublishDeadLetter(ctx, letter))
		publisher.producer.Flush(5000)

		msg := readOne(t, brokers, "it-capture-requests-dlq")
		var got views.CaptureDeadLetter
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, "order not found", got.FailureReason)
	})
}

func TestKafkaPublisher_ExistingTopicWithFewerPartitions(t *testing.T) {
	brokers := testutil.StartKafka(t)
	ctx := context.Background()
	logger := zap.NewNop()

	const topic = "it-narrow-events"
	require.NoError(t, kafkautils.InitKafkaTopics(ctx, logger, kafkautils.KafkaConfig{
		BootstrapServers: brokers,
		Topics:           []kafkautils.TopicConfig{kafkautils.RetentionTopicConfig(topic, 1, time.Hour)},
	}))

	publisher, err := NewKafkaPublisher(ctx, logger, Config{
		Brokers:    brokers,
		EventTopic: topic,
		Partitions: 8,
	})
	require.NoError(t, err)
	t.Cleanup(publisher.Close)

	orderID := uuid.NewString()
	require.NoError(t, publisher.PublishCaptured(ctx, views.CaptureEvent{OrderID: orderID, Status: pkg.OrderStatusSucceeded}))
	require.Zero(t, publisher.producer.Flush(10000))

	msg := readOne(t, brokers, topic)
	assert.Equal(t, orderID, string(msg.Key))
	assert.Equal(t, int32(0), msg.TopicPartition.Partition)
}
