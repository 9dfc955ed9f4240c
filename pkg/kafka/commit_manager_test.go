package kafkautils

import (
	"errors"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingCommitter struct {
	commits []int64
	fail    bool
}

func (r *recordingCommitter) CommitOffsets(offsets []kafka.TopicPartition) ([]kafka.TopicPartition, error) {
	if r.fail {
		return nil, errors.New("coordinator unavailable")
	}
	for _, o := range offsets {
		r.commits = append(r.commits, int64(o.Offset))
	}
	return offsets, nil
}

func message(offset int64) *kafka.Message {
	topic := "capture-requests"
	return &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: kafka.Offset(offset)}}
}

func TestCommitManager_CommitsContiguousOffsets(t *testing.T) {
	c := &recordingCommitter{}
	m := NewCommitManager(c, zap.NewNop())
	for _, off := range []int64{100, 101, 102} {
		m.Track(message(off))
	}

	m.Ack("o-2", message(102))
	assert.Empty(t, c.commits)

	m.Ack("o-0", message(100))
	assert.Equal(t, []int64{101}, c.commits)

	m.Ack("o-1", message(101))
	assert.Equal(t, []int64{101, 103}, c.commits)
}

func TestCommitManager_RetriesAfterFailedCommit(t *testing.T) {
	c := &recordingCommitter{fail: true}
	m := NewCommitManager(c, zap.NewNop())
	m.Track(message(0))
	m.Track(message(1))

	m.Ack("o-0", message(0))
	assert.Empty(t, c.commits)

	c.fail = false
	m.Ack("o-1", message(1))
	assert.Equal(t, []int64{2}, c.commits)
}
