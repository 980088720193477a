package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventscout"

// Collector exposes Prometheus metrics for inbound HTTP requests and the
// event aggregation pipeline. A nil *Collector is valid and records nothing.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	llmCalls      *prometheus.CounterVec
	llmDuration   *prometheus.HistogramVec
	llmRetries    *prometheus.CounterVec
	sourceFetches *prometheus.CounterVec
	sourceEvents  *prometheus.CounterVec
	candidates    *prometheus.CounterVec
	duplicates    prometheus.Counter
	scanDecisions *prometheus.CounterVec
}

// New constructs a collector on a private registry.
func New() (*Collector, error) {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "path", "status"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Language-model gateway calls by outcome.",
		}, []string{"provider", "operation", "status"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Language-model gateway latency including retries.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"provider", "operation"}),
		llmRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "retries_total",
			Help:      "Retries triggered by rate limiting.",
		}, []string{"provider"}),
		sourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "source_fetches_total",
			Help:      "Source adapter fetches by result.",
		}, []string{"source", "result"}),
		sourceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "source_events_total",
			Help:      "Events returned per source adapter.",
		}, []string{"source"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_total",
			Help:      "AI discovery candidates by filter outcome.",
		}, []string{"outcome"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "duplicates_total",
			Help:      "Candidates merged into an existing representative.",
		}),
		scanDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "scan_decisions_total",
			Help:      "Cooldown gate decisions.",
		}, []string{"decision"}),
	}

	collectors := []prometheus.Collector{
		c.requestDuration, c.requestTotal,
		c.llmCalls, c.llmDuration, c.llmRetries,
		c.sourceFetches, c.sourceEvents, c.candidates, c.duplicates, c.scanDecisions,
	}
	for _, col := range collectors {
		if err := registry.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
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

// ObserveLLMCall records one gateway call.
func (c *Collector) ObserveLLMCall(provider, operation, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.llmCalls.WithLabelValues(provider, operation, status).Inc()
	c.llmDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// IncLLMRetry counts a rate-limit retry.
func (c *Collector) IncLLMRetry(provider string) {
	if c == nil {
		return
	}
	c.llmRetries.WithLabelValues(provider).Inc()
}

// ObserveSourceFetch records a source adapter fetch and its result size.
func (c *Collector) ObserveSourceFetch(source string, err error, count int) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.sourceFetches.WithLabelValues(source, result).Inc()
	c.sourceEvents.WithLabelValues(source).Add(float64(count))
}

// AddCandidates counts discovery candidates for a filter outcome.
func (c *Collector) AddCandidates(outcome string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.candidates.WithLabelValues(outcome).Add(float64(n))
}

// AddDuplicates counts candidates absorbed by deduplication.
func (c *Collector) AddDuplicates(n int) {
	if c == nil || n == 0 {
		return
	}
	c.duplicates.Add(float64(n))
}

// IncScanDecision counts a cooldown gate decision ("run" or "skip").
func (c *Collector) IncScanDecision(decision string) {
	if c == nil {
		return
	}
	c.scanDecisions.WithLabelValues(decision).Inc()
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
