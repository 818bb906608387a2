package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tokenpull",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Open websocket connections",
		},
	)

	WSMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tokenpull",
			Subsystem: "ws",
			Name:      "messages_total",
			Help:      "Websocket messages by direction and event",
		},
		[]string{"direction", "event"},
	)

	WSDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tokenpull",
			Subsystem: "ws",
			Name:      "dropped_total",
			Help:      "Outbound messages dropped because a subscriber was slow or gone",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(WSConnections, WSMessages, WSDropped)
	})
}
