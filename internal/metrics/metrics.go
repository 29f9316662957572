package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prensa"

// NewRegistry creates the process-wide Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Handler exposes the registry's metrics over HTTP.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// PipelineCollector records ingestion pipeline outcomes. A nil collector is
// valid and records nothing, so the pipeline can run without metrics wired.
type PipelineCollector struct {
	runsTotal      prometheus.Counter
	runDuration    prometheus.Histogram
	itemsTotal     *prometheus.CounterVec
	tierTotal      *prometheus.CounterVec
	exhaustedItems prometheus.Gauge
}

// NewPipelineCollector registers the pipeline metrics on the given registry.
func NewPipelineCollector(registry *prometheus.Registry) (*PipelineCollector, error) {
	c := &PipelineCollector{
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of ingestion runs.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of ingestion runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "items_total",
			Help:      "Processed items by outcome.",
		}, []string{"outcome"}),
		tierTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "model_tier_total",
			Help:      "Provider calls by model tier.",
		}, []string{"tier"}),
		exhaustedItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "exhausted_items",
			Help:      "Failed items that are out of retries and no longer selected.",
		}),
	}

	for _, collector := range []prometheus.Collector{
		c.runsTotal, c.runDuration, c.itemsTotal, c.tierTotal, c.exhaustedItems,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// RunCompleted records one finished run.
func (c *PipelineCollector) RunCompleted(duration time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.Inc()
	c.runDuration.Observe(duration.Seconds())
}

// ItemOutcome records one item's final outcome for a run.
func (c *PipelineCollector) ItemOutcome(outcome string) {
	if c == nil {
		return
	}
	c.itemsTotal.WithLabelValues(outcome).Inc()
}

// TierUsed records one provider call at the given tier.
func (c *PipelineCollector) TierUsed(tier string) {
	if c == nil {
		return
	}
	c.tierTotal.WithLabelValues(tier).Inc()
}

// SetExhausted updates the permanently-failed item gauge.
func (c *PipelineCollector) SetExhausted(count int) {
	if c == nil {
		return
	}
	c.exhaustedItems.Set(float64(count))
}

// HTTPCollector exposes Prometheus metrics for inbound HTTP requests.
type HTTPCollector struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

// NewHTTPCollector registers request histograms/counters on the registry.
func NewHTTPCollector(registry *prometheus.Registry) (*HTTPCollector, error) {
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	if err := registry.Register(requestDuration); err != nil {
		return nil, err
	}
	if err := registry.Register(requestTotal); err != nil {
		return nil, err
	}

	return &HTTPCollector{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *HTTPCollector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
