package kafkautils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetentionTopicConfig(t *testing.T) {
	cfg := RetentionTopicConfig("order-captured", 4, 168*time.Hour)

	assert.Equal(t, "order-captured", cfg.Topic)
	assert.Equal(t, 4, cfg.NumPartitions)
	assert.Equal(t, 1, cfg.ReplicationFactor)
	assert.Equal(t, "delete", cfg.Config["cleanup.policy"])
	assert.Equal(t, "604800000", cfg.Config["retention.ms"])
}
