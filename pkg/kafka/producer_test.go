package kafka

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func newTestProducer(w batchWriter, at time.Time) *Producer {
	return &Producer{writer: w, comp: "gzip", now: func() time.Time { return at }}
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublishJSONKeysAndTagsEveryMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fw := &fakeWriter{}
	p := newTestProducer(fw, at)

	err := p.PublishJSON(context.Background(), "tokens.snapshot", "1714564800000", []Record{
		{Key: "0xaaa", Value: map[string]float64{"price": 1.5}},
		{Key: "0xbbb", Value: map[string]float64{"price": 2}},
	})
	require.NoError(t, err)
	require.Len(t, fw.msgs, 2)

	m := fw.msgs[1]
	require.Equal(t, "tokens.snapshot", m.Topic)
	require.Equal(t, []byte("0xbbb"), m.Key)
	require.JSONEq(t, `{"price":2}`, string(m.Value))
	require.Equal(t, at, m.Time)
	require.Equal(t, "application/json", header(m, HeaderContentType))
	require.Equal(t, "1714564800000", header(m, HeaderBatchID))
	require.Equal(t, "2", header(m, HeaderBatchSize))
}

func TestPublishJSONWritesNothingWhenEncodingFails(t *testing.T) {
	fw := &fakeWriter{}
	p := newTestProducer(fw, time.Now())

	err := p.PublishJSON(context.Background(), "t", "b", []Record{
		{Key: "ok", Value: 1},
		{Key: "bad", Value: math.Inf(1)},
	})
	require.ErrorContains(t, err, `"bad"`)
	require.Empty(t, fw.msgs)
}

func TestPublishJSONWrapsWriterErrorsAndSkipsEmpty(t *testing.T) {
	fw := &fakeWriter{err: errors.New("leader not available")}
	p := newTestProducer(fw, time.Now())

	require.NoError(t, p.PublishJSON(context.Background(), "t", "b", nil))
	require.Empty(t, fw.msgs)

	err := p.PublishJSON(context.Background(), "t", "b", []Record{{Key: "k", Value: "v"}})
	require.ErrorIs(t, err, fw.err)
}

func TestProducerConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		opts []ProducerOption
		want string
	}{
		{"no brokers", nil, "brokers"},
		{"bad compression", []ProducerOption{WithBrokers([]string{"k:9092"}), WithCompression("brotli")}, "compression"},
		{"bad acks", []ProducerOption{WithBrokers([]string{"k:9092"}), WithRequiredAcks(2)}, "acks"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProducer(tc.opts...)
			require.ErrorContains(t, err, tc.want)
		})
	}

	p, err := NewProducer(WithBrokers([]string{"k:9092"}), WithCompression("none"), WithBatching(10, 0, 0))
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
