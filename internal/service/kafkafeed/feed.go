// Package kafkafeed turns a Kafka topic of raw token records into a
// TokenProvider. Each message is one record or a JSON array of records;
// the latest record per address is kept until it ages out.
package kafkafeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"TokenPull/internal/domain/models"
	drepo "TokenPull/internal/domain/repository"
	pkgkafka "TokenPull/pkg/kafka"
	xutil "TokenPull/pkg/util"
)

const Name = "kafka_feed"

type Feed struct {
	topic   string
	maxAge  time.Duration
	metrics drepo.Metrics
	now     func() time.Time

	mu     sync.RWMutex
	latest map[string]entry
}

type entry struct {
	rec      models.RawRecord
	received time.Time
}

func New(topic string, maxAge time.Duration, metrics drepo.Metrics) *Feed {
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	if maxAge <= 0 {
		maxAge = 2 * time.Minute
	}
	return &Feed{
		topic:   topic,
		maxAge:  maxAge,
		metrics: metrics,
		now:     time.Now,
		latest:  make(map[string]entry),
	}
}

func (f *Feed) Topic() string { return f.topic }

func (f *Feed) Name() string { return Name }

// Handle stores every record in the message. A record only replaces the one
// held for its address when it is not older.
func (f *Feed) Handle(_ context.Context, b []byte) error {
	recs, err := decode(b)
	if err != nil {
		f.metrics.RecordError("kafka_feed_unmarshal")
		return err
	}

	now := f.now()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range recs {
		key := models.NormalizeAddress(r.Address)
		if key == "" {
			continue
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		} else {
			f.metrics.RecordLatency("kafka_feed_lag_seconds", now.Sub(r.UpdatedAt).Seconds())
		}
		if r.Source == "" {
			r.Source = Name
		}
		if cur, ok := f.latest[key]; ok && r.UpdatedAt.Before(cur.rec.UpdatedAt) {
			continue
		}
		f.latest[key] = entry{rec: r, received: now}
	}
	return nil
}

// FetchAll returns the retained records received within maxAge, ordered by
// address, and drops the stale ones.
func (f *Feed) FetchAll(context.Context) ([]models.RawRecord, error) {
	cutoff := f.now().Add(-f.maxAge)

	f.mu.Lock()
	out := make([]models.RawRecord, 0, len(f.latest))
	for k, e := range f.latest {
		if e.received.Before(cutoff) {
			delete(f.latest, k)
			continue
		}
		out = append(out, e.rec)
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return models.NormalizeAddress(out[i].Address) < models.NormalizeAddress(out[j].Address)
	})
	return out, nil
}

// wireRecord accepts updated_at as RFC3339 or as unix seconds/milliseconds.
type wireRecord struct {
	models.RawRecord
	UpdatedAt flexTime `json:"updated_at"`
}

func (w wireRecord) record() models.RawRecord {
	r := w.RawRecord
	r.UpdatedAt = time.Time(w.UpdatedAt)
	return r
}

type flexTime time.Time

func (t *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = flexTime{}
		return nil
	}
	v, ok := xutil.ParseTime(s)
	if !ok {
		return fmt.Errorf("invalid updated_at %q", s)
	}
	*t = flexTime(v)
	return nil
}

func decode(b []byte) ([]models.RawRecord, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("kafka feed: empty message")
	}
	var wire []wireRecord
	if b[0] == '[' {
		if err := json.Unmarshal(b, &wire); err != nil {
			return nil, fmt.Errorf("kafka feed: decode batch: %w", err)
		}
	} else {
		var w wireRecord
		if err := json.Unmarshal(b, &w); err != nil {
			return nil, fmt.Errorf("kafka feed: decode record: %w", err)
		}
		wire = append(wire, w)
	}
	recs := make([]models.RawRecord, len(wire))
	for i, w := range wire {
		recs[i] = w.record()
	}
	return recs, nil
}

var (
	_ pkgkafka.MessageHandler = (*Feed)(nil)
	_ drepo.TokenProvider     = (*Feed)(nil)
)
