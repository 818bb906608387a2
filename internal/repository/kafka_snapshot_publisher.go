package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"TokenPull/internal/domain/models"
	"TokenPull/internal/domain/repository"
	pkgkafka "TokenPull/pkg/kafka"
)

// JSONProducer is the subset of pkg/kafka.Producer the publisher needs.
type JSONProducer interface {
	PublishJSON(ctx context.Context, topic, batchID string, records []pkgkafka.Record) error
	Close() error
}

// KafkaSnapshotPublisher writes a snapshot as one message per record, keyed
// by address so a compacted topic keeps the latest state of every token. All
// messages of one snapshot share a batch id: the snapshot time in unix ms.
type KafkaSnapshotPublisher struct {
	producer JSONProducer
	topic    string
	now      func() time.Time
}

func NewKafkaSnapshotPublisher(producer JSONProducer, topic string) repository.SnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic, now: time.Now}
}

func (p *KafkaSnapshotPublisher) PublishSnapshot(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := make([]pkgkafka.Record, len(records))
	for i, r := range records {
		batch[i] = pkgkafka.Record{Key: r.Address, Value: r}
	}
	batchID := strconv.FormatInt(p.now().UnixMilli(), 10)
	if err := p.producer.PublishJSON(ctx, p.topic, batchID, batch); err != nil {
		return fmt.Errorf("publish snapshot to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaSnapshotPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ JSONProducer = (*pkgkafka.Producer)(nil)
