package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prediction outcomes.
const (
	OutcomeMatched = "matched"
	OutcomeNoMatch = "no_match"
	OutcomeError   = "error"
)

// Metrics holds the Prometheus collectors of the API on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	predictionsTotal   *prometheus.CounterVec
	classifierDuration *prometheus.HistogramVec
	matchedRows        prometheus.Histogram
	datasetRows        prometheus.Gauge
	datasetReloads     *prometheus.CounterVec
}

func NewMetrics(service string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	m := &Metrics{
		registry: registry,
		service:  service,
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "budget_insight",
				Subsystem:   "http",
				Name:        "requests_total",
				Help:        "Total HTTP requests processed.",
				ConstLabels: constLabels,
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   "budget_insight",
				Subsystem:   "http",
				Name:        "request_duration_seconds",
				Help:        "HTTP request duration in seconds.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"method", "path"},
		),
		requestInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   "budget_insight",
				Subsystem:   "http",
				Name:        "in_flight_requests",
				Help:        "Number of in-flight HTTP requests.",
				ConstLabels: constLabels,
			},
		),
		predictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "budget_insight",
				Subsystem:   "prediction",
				Name:        "requests_total",
				Help:        "Predictions by outcome and predicted category.",
				ConstLabels: constLabels,
			},
			[]string{"outcome", "category"},
		),
		classifierDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   "budget_insight",
				Subsystem:   "classifier",
				Name:        "duration_seconds",
				Help:        "Classifier call duration in seconds.",
				Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
				ConstLabels: constLabels,
			},
			[]string{"backend", "status"},
		),
		matchedRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   "budget_insight",
				Subsystem:   "prediction",
				Name:        "matched_rows",
				Help:        "Historical rows matched by the predicted category.",
				Buckets:     []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
				ConstLabels: constLabels,
			},
		),
		datasetRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   "budget_insight",
				Subsystem:   "dataset",
				Name:        "rows",
				Help:        "Rows of the loaded reference dataset.",
				ConstLabels: constLabels,
			},
		),
		datasetReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "budget_insight",
				Subsystem:   "dataset",
				Name:        "reloads_total",
				Help:        "Dataset loads by result.",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.predictionsTotal,
		m.classifierDuration,
		m.matchedRows,
		m.datasetRows,
		m.datasetReloads,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is used by tests to gather the collected values.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// GinMiddleware counts requests by route template, so /foo/:id stays one series.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.requestTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// ObservePrediction records one /predict-category outcome.
func (m *Metrics) ObservePrediction(outcome, category string, matched int) {
	if category == "" {
		category = "unknown"
	}
	m.predictionsTotal.WithLabelValues(outcome, category).Inc()
	if outcome != OutcomeError {
		m.matchedRows.Observe(float64(matched))
	}
}

// ObserveClassifier records the latency of one classifier call.
func (m *Metrics) ObserveClassifier(backend string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.classifierDuration.WithLabelValues(backend, status).Observe(d.Seconds())
}

// ObserveDatasetLoad records a dataset load; rows is ignored on failure.
func (m *Metrics) ObserveDatasetLoad(rows int, err error) {
	if err != nil {
		m.datasetReloads.WithLabelValues("error").Inc()
		return
	}
	m.datasetReloads.WithLabelValues("ok").Inc()
	m.datasetRows.Set(float64(rows))
}
