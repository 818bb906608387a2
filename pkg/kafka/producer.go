package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Header names set on every published message.
const (
	HeaderContentType = "content-type"
	HeaderBatchID     = "batch-id"
	HeaderBatchSize   = "batch-size"
)

// Record is one keyed payload. Value is encoded as JSON by the producer.
type Record struct {
	Key   string
	Value any
}

type batchWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes keyed JSON batches. Records with the same key always land
// on the same partition, so a compacted topic keeps the latest per key.
type Producer struct {
	writer batchWriter
	comp   string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  compressions[cfg.Compression],
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   int64(cfg.BatchBytes),
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
	}

	initProducerMetricsOnce()
	return &Producer{writer: writer, comp: cfg.Compression, now: time.Now}, nil
}

// PublishJSON encodes records and writes them in one call, tagged with
// batchID. Nothing is written if any record fails to encode.
func (p *Producer) PublishJSON(ctx context.Context, topic, batchID string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	msgs, size, err := encodeBatch(topic, batchID, p.now(), records)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, msgs...)
	observeProducerMetrics(topic, p.comp, size, len(msgs), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), topic, err)
	}
	return nil
}

func encodeBatch(topic, batchID string, at time.Time, records []Record) ([]kafka.Message, int64, error) {
	headers := []kafka.Header{
		{Key: HeaderContentType, Value: []byte("application/json")},
		{Key: HeaderBatchID, Value: []byte(batchID)},
		{Key: HeaderBatchSize, Value: []byte(strconv.Itoa(len(records)))},
	}

	msgs := make([]kafka.Message, len(records))
	var size int64
	for i, r := range records {
		v, err := json.Marshal(r.Value)
		if err != nil {
			return nil, 0, fmt.Errorf("encode record %q: %w", r.Key, err)
		}
		msgs[i] = kafka.Message{
			Topic:   topic,
			Key:     []byte(r.Key),
			Value:   v,
			Headers: headers,
			Time:    at,
		}
		size += int64(len(v))
	}
	return msgs, size, nil
}

// Close flushes pending writes and closes the producer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

var (
	producerMsgsTotal   *prometheus.CounterVec
	producerBytesTotal  *prometheus.CounterVec
	producerLatencyHist *prometheus.HistogramVec
	producerMetricsOnce sync.Once
)

func initProducerMetricsOnce() {
	producerMetricsOnce.Do(func() {
		producerMsgsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenpull_kafka_producer_messages_total",
				Help: "Messages published to Kafka by result",
			},
			[]string{"topic", "compression", "result"},
		)
		producerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenpull_kafka_producer_bytes_total",
				Help: "Encoded payload bytes published",
			},
			[]string{"topic", "compression"},
		)
		producerLatencyHist = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenpull_kafka_producer_batch_seconds",
				Help:    "Time to encode and write one batch",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}

func observeProducerMetrics(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	if producerMsgsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMsgsTotal.WithLabelValues(topic, comp, result).Add(float64(count))
	if err == nil {
		producerBytesTotal.WithLabelValues(topic, comp).Add(float64(bytes))
	}
	producerLatencyHist.WithLabelValues(topic).Observe(dur.Seconds())
}
