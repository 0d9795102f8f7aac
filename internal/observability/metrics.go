package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ChatRequests          *prometheus.CounterVec
	CompletionLatency     prometheus.Histogram
	HistoryAppendFailures prometheus.Counter
	StoreErrors           *prometheus.CounterVec
	ActiveWSConnections   prometheus.Gauge
	UserSignups           prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ChatRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat generation requests by trust class and outcome.",
		}, []string{"class", "outcome"}),
		CompletionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_ms",
			Help:      "Latency of external completion calls in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}),
		HistoryAppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_append_failures_total",
			Help:      "Turns that could not be persisted after a successful completion.",
		}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "History store errors swallowed on degrade paths, by operation.",
		}, []string{"op"}),
		ActiveWSConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_ws_connections",
			Help:      "Number of open websocket chat connections.",
		}),
		UserSignups: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_signups_total",
			Help:      "Successful user registrations.",
		}),
	}
}

func (m *Metrics) ObserveCompletionLatency(d time.Duration) {
	m.CompletionLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
