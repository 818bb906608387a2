package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics and cache.Observer using Prometheus.
type Recorder struct {
	providerFetches *prometheus.CounterVec
	providerRecords *prometheus.GaugeVec
	providerRetries *prometheus.CounterVec
	cacheResults    *prometheus.CounterVec
	tierAvailable   *prometheus.GaugeVec
	snapshotSize    prometheus.Gauge
	broadcastTicks  *prometheus.CounterVec
	pushes          *prometheus.CounterVec
	subscribers     prometheus.Gauge
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		providerFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenpull_provider_fetches_total",
				Help: "Provider fetch attempts after retries, by result",
			},
			[]string{"provider", "result"},
		),
		providerRecords: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenpull_provider_records",
				Help: "Records returned by the last fetch of a provider",
			},
			[]string{"provider"},
		),
		providerRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenpull_provider_retries_total",
				Help: "Retries issued against a provider",
			},
			[]string{"provider"},
		),
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenpull_cache_requests_total",
				Help: "Cache lookups by tier and result",
			},
			[]string{"tier", "result"},
		),
		tierAvailable: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenpull_cache_tier_available",
				Help: "1 when the cache tier is in use",
			},
			[]string{"tier"},
		),
		snapshotSize: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokenpull_snapshot_records",
				Help: "Records in the last computed snapshot",
			},
		),
		broadcastTicks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenpull_broadcast_ticks_total",
				Help: "Broadcast ticks by outcome",
			},
			[]string{"outcome"},
		),
		pushes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenpull_pushes_total",
				Help: "Pushes to subscribers by result",
			},
			[]string{"result"},
		),
		subscribers: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tokenpull_subscribers",
				Help: "Currently registered subscribers",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenpull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordProviderFetch records the outcome of one provider fetch.
func (r *Recorder) RecordProviderFetch(provider string, records int, err error, dur time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.providerFetches.WithLabelValues(provider, result).Inc()
	r.providerRecords.WithLabelValues(provider).Set(float64(records))
	r.latency.WithLabelValues("fetch_" + provider).Observe(dur.Seconds())
}

// RecordRetry records one retry against a provider.
func (r *Recorder) RecordRetry(provider string) {
	r.providerRetries.WithLabelValues(provider).Inc()
}

// RecordSnapshot records a freshly computed snapshot.
func (r *Recorder) RecordSnapshot(size int, dur time.Duration) {
	r.snapshotSize.Set(float64(size))
	r.latency.WithLabelValues("snapshot").Observe(dur.Seconds())
}

// RecordBroadcastTick records a broadcast tick. outcome is "idle", "ok" or "error".
func (r *Recorder) RecordBroadcastTick(outcome string, dur time.Duration) {
	r.broadcastTicks.WithLabelValues(outcome).Inc()
	if outcome != "idle" {
		r.latency.WithLabelValues("broadcast").Observe(dur.Seconds())
	}
}

// RecordPush records one push attempt to a subscriber.
func (r *Recorder) RecordPush(result string) {
	r.pushes.WithLabelValues(result).Inc()
}

// SetSubscribers sets the subscriber gauge.
func (r *Recorder) SetSubscribers(n int) {
	r.subscribers.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCacheResult records a cache lookup.
func (r *Recorder) RecordCacheResult(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheResults.WithLabelValues(tier, result).Inc()
}

// RecordTierAvailability records a cache tier going up or down.
func (r *Recorder) RecordTierAvailability(tier string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	r.tierAvailable.WithLabelValues(tier).Set(v)
}
