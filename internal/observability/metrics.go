package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons for inbound frames that never reach the engine.
const (
	DropDecode = "decode"
	DropFrame  = "frame"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerboard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "peerboard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	eventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerboard",
			Name:      "events_received_total",
			Help:      "Decoded events received from peer links.",
		},
		[]string{"kind"},
	)
	eventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerboard",
			Name:      "events_dropped_total",
			Help:      "Inbound frames dropped before reaching the engine.",
		},
		[]string{"reason"},
	)
	eventsBroadcast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "peerboard",
			Name:      "events_broadcast_total",
			Help:      "Events broadcast to all open links.",
		},
		[]string{"kind"},
	)
	linkWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "peerboard",
			Name:      "link_write_failures_total",
			Help:      "Per-link write failures.",
		},
	)
	linksOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "peerboard",
			Name:      "links_open",
			Help:      "Currently open peer links.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			eventsReceived,
			eventsDropped,
			eventsBroadcast,
			linkWriteFailures,
			linksOpen,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordEventReceived(kind string) {
	RegisterMetrics()
	eventsReceived.WithLabelValues(kind).Inc()
}

func RecordEventDropped(reason string) {
	RegisterMetrics()
	eventsDropped.WithLabelValues(reason).Inc()
}

func RecordBroadcast(kind string) {
	RegisterMetrics()
	eventsBroadcast.WithLabelValues(kind).Inc()
}

func RecordLinkWriteFailure() {
	RegisterMetrics()
	linkWriteFailures.Inc()
}

func SetLinksOpen(n int) {
	RegisterMetrics()
	linksOpen.Set(float64(n))
}
