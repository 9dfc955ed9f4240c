package events

import (
	"encoding/json"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_KeysByOrderAndLeavesPartitionToProducer(t *testing.T) {
	orderID := "7f1f3a52-3d1b-4a43-9d5c-0f1d8c1e5a10"
	event := views.CaptureEvent{OrderID: orderID, TraceID: "trace-msg", Status: pkg.OrderStatusFailed}

	msg, err := newMessage("order-captured", orderID, "trace-msg", event)
	require.NoError(t, err)

	require.NotNil(t, msg.TopicPartition.Topic)
	assert.Equal(t, "order-captured", *msg.TopicPartition.Topic)
	assert.Equal(t, kafka.PartitionAny, msg.TopicPartition.Partition)
	assert.Equal(t, []byte(orderID), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, pkg.HeaderTraceId, msg.Headers[0].Key)
	assert.Equal(t, "trace-msg", string(msg.Headers[0].Value))

	var got views.CaptureEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, orderID, got.OrderID)
	assert.Equal(t, pkg.OrderStatusFailed, got.Status)
}

func TestNewMessage_NonUUIDKeyStillUsesAnyPartition(t *testing.T) {
	msg, err := newMessage("capture-dlq", "", "", views.CaptureDeadLetter{Request: "{not json"})
	require.NoError(t, err)
	assert.Equal(t, kafka.PartitionAny, msg.TopicPartition.Partition)
	assert.Empty(t, msg.Key)
}
