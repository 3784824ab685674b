// Package metrics provides Prometheus metrics for conversion runs.
package metrics

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aliskhannn/image-converter/internal/model"
	"github.com/aliskhannn/image-converter/internal/sink"
)

const namespace = "image_converter"

// Metrics holds the run metrics and the registry they are exposed from.
// It implements sink.Scoped: every run reports its progress through its own
// sink from ForRun, so concurrent runs keep separate gauge series.
type Metrics struct {
	registry *prometheus.Registry

	// Runs in progress, by run_id
	Items *prometheus.GaugeVec

	// Finished runs
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
	ItemsTotal  *prometheus.CounterVec
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Items: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "items",
				Help:      "Counters of each run in progress",
			},
			[]string{"run_id", "counter"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "total",
				Help:      "Total number of finished runs by state",
			},
			[]string{"state"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "duration_seconds",
				Help:      "Wall-clock duration of finished runs",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
			},
		),
		ItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "items",
				Name:      "total",
				Help:      "Total number of processed items by result",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(m.Items, m.RunsTotal, m.RunDuration, m.ItemsTotal)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ForRun returns the sink of one run. Its gauges are removed when the run
// completes.
func (m *Metrics) ForRun(id uuid.UUID) sink.Sink {
	return &runMetrics{m: m, id: id.String()}
}

// OnProgress is a no-op; progress is tracked per run through ForRun.
func (m *Metrics) OnProgress(model.ProgressSnapshot) {}

// OnLog is a no-op.
func (m *Metrics) OnLog(string) {}

// OnComplete counts the finished run and its items.
func (m *Metrics) OnComplete(s model.Summary) {
	m.RunsTotal.WithLabelValues(string(s.State)).Inc()
	m.RunDuration.Observe(s.Elapsed().Seconds())
	m.ItemsTotal.WithLabelValues("converted").Add(float64(s.Converted))
	m.ItemsTotal.WithLabelValues("skipped").Add(float64(s.Skipped))
	m.ItemsTotal.WithLabelValues("errored").Add(float64(s.Errored))
}

type runMetrics struct {
	m  *Metrics
	id string
}

// OnProgress sets the run's gauges.
func (r *runMetrics) OnProgress(s model.ProgressSnapshot) {
	r.m.Items.WithLabelValues(r.id, "total").Set(float64(s.Total))
	r.m.Items.WithLabelValues(r.id, "processed").Set(float64(s.Processed))
	r.m.Items.WithLabelValues(r.id, "converted").Set(float64(s.Converted))
	r.m.Items.WithLabelValues(r.id, "skipped").Set(float64(s.Skipped))
	r.m.Items.WithLabelValues(r.id, "errored").Set(float64(s.Errored))
}

// OnLog is a no-op.
func (r *runMetrics) OnLog(string) {}

// OnComplete drops the run's gauges and counts the finished run.
func (r *runMetrics) OnComplete(s model.Summary) {
	r.m.Items.DeletePartialMatch(prometheus.Labels{"run_id": r.id})
	r.m.OnComplete(s)
}
