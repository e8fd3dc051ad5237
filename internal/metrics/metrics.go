package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newsalert"

// Pipeline holds the counters updated by a processing cycle. A nil
// *Pipeline is valid and records nothing.
type Pipeline struct {
	registry *prometheus.Registry

	itemsFetched    *prometheus.CounterVec
	fetchErrors     *prometheus.CounterVec
	dedupDrops      *prometheus.CounterVec
	classifications *prometheus.CounterVec
	alertsStored    *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	lastCycle       prometheus.Gauge
}

// New builds the metric set on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Pipeline {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Pipeline{registry: reg}
	m.itemsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_items_fetched_total",
		Help:      "Feed items fetched, by source.",
	}, []string{"source"})
	m.fetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_fetch_errors_total",
		Help:      "Failed feed fetches, by source.",
	}, []string{"source"})
	m.dedupDrops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dedup_dropped_total",
		Help:      "Items dropped as duplicates, by rule.",
	}, []string{"reason"})
	m.classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classifications_total",
		Help:      "Classified items, by method and verdict.",
	}, []string{"method", "security"})
	m.alertsStored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_stored_total",
		Help:      "Alerts inserted into the store, by verdict.",
	}, []string{"security"})
	m.notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notification attempts, by status and matching rule.",
	}, []string{"status", "rule"})
	m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of one processing cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	})
	m.lastCycle = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_cycle_timestamp_seconds",
		Help:      "Unix time of the last completed cycle.",
	})

	reg.MustRegister(
		m.itemsFetched,
		m.fetchErrors,
		m.dedupDrops,
		m.classifications,
		m.alertsStored,
		m.notifications,
		m.cycleDuration,
		m.lastCycle,
	)
	return m
}

func (m *Pipeline) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Pipeline) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.registry
}

func (m *Pipeline) FeedItems(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsFetched.WithLabelValues(source).Add(float64(n))
}

func (m *Pipeline) FeedError(source string) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(source).Inc()
}

func (m *Pipeline) DedupDrop(reason string) {
	if m == nil {
		return
	}
	m.dedupDrops.WithLabelValues(reason).Inc()
}

func (m *Pipeline) Classified(method string, security bool) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(method, boolLabel(security)).Inc()
}

func (m *Pipeline) AlertStored(security bool) {
	if m == nil {
		return
	}
	m.alertsStored.WithLabelValues(boolLabel(security)).Inc()
}

func (m *Pipeline) Notification(status, rule string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(status, rule).Inc()
}

func (m *Pipeline) CycleDone(started, finished time.Time) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(finished.Sub(started).Seconds())
	m.lastCycle.Set(float64(finished.Unix()))
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
