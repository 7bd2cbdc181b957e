package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "site_analytics"

// Import outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Collector holds the service metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	// Import Metrics
	importsTotal  *prometheus.CounterVec
	linesIngested prometheus.Counter
	linesDropped  prometheus.Counter

	// Enrichment Metrics
	enrichDuration prometheus.Histogram
	weatherApplied prometheus.Counter
	placeholders   prometheus.Counter

	// Cache Metrics
	cachedViews prometheus.Gauge
	evictions   prometheus.Counter
	probeErrors prometheus.Counter
}

// New creates a Collector with Go and process metrics registered.
func New() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: registry,
		importsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Total number of statistics imports by outcome and failure kind.",
		}, []string{"outcome", "kind"}),
		linesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_lines_total",
			Help:      "Total number of accepted statistics lines.",
		}),
		linesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_lines_total",
			Help:      "Total number of statistics lines not matching the record shape.",
		}),
		enrichDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Duration of weather enrichment in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		weatherApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_records_applied_total",
			Help:      "Total number of weather records attached to statistics.",
		}),
		placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placeholder_records_total",
			Help:      "Total number of zero-count records created for weather hours without visits.",
		}),
		cachedViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_views",
			Help:      "Number of paginated views held in the session cache.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of views evicted because their session expired.",
		}),
		probeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_probe_errors_total",
			Help:      "Total number of failed session existence checks.",
		}),
	}

	registry.MustRegister(
		c.importsTotal,
		c.linesIngested,
		c.linesDropped,
		c.enrichDuration,
		c.weatherApplied,
		c.placeholders,
		c.cachedViews,
		c.evictions,
		c.probeErrors,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ImportFinished counts one finished import. kind is empty on success.
func (c *Collector) ImportFinished(outcome, kind string) {
	c.importsTotal.WithLabelValues(outcome, kind).Inc()
}

func (c *Collector) Ingested(accepted, dropped int) {
	c.linesIngested.Add(float64(accepted))
	c.linesDropped.Add(float64(dropped))
}

func (c *Collector) Enriched(took time.Duration, applied, placeholders int) {
	c.enrichDuration.Observe(took.Seconds())
	c.weatherApplied.Add(float64(applied))
	c.placeholders.Add(float64(placeholders))
}

func (c *Collector) CachedViews(n int) {
	c.cachedViews.Set(float64(n))
}

func (c *Collector) Evicted(n int) {
	c.evictions.Add(float64(n))
}

func (c *Collector) ProbeFailed() {
	c.probeErrors.Inc()
}
