package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type topicHandler string

func (h topicHandler) Topic() string                        { return string(h) }
func (h topicHandler) Handle(context.Context, []byte) error { return nil }

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	require.Error(t, err)
}

func TestBackoffWithJitterStaysInRange(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 8; attempt++ {
		exp := min * time.Duration(1<<uint(attempt-1))
		if exp > max {
			exp = max
		}
		for i := 0; i < 50; i++ {
			d := backoffWithJitter(min, max, attempt)
			require.Greater(t, d, exp/2)
			require.LessOrEqual(t, d, exp)
		}
	}
}

func TestStopWithoutStartIsIdempotent(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}), WithConsumerBufferSize(4))
	require.NoError(t, err)
	c.RegisterHandler(topicHandler("tokens.raw"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))
}

func TestNewConsumerRejectsUnknownOffsetReset(t *testing.T) {
	_, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}), WithConsumerAutoOffsetReset("middle"))
	require.ErrorContains(t, err, "offset reset")

	require.Equal(t, kafka.LastOffset, startOffset("latest"))
	require.Equal(t, kafka.FirstOffset, startOffset("earliest"))
}
