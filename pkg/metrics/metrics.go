// Package metrics exposes engine counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "siteflow"

// Metrics groups the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	instancesStarted  *prometheus.CounterVec
	instancesFinished *prometheus.CounterVec
	instanceDuration  *prometheus.HistogramVec
	runningInstances  prometheus.Gauge
	steps             *prometheus.CounterVec
	stepDuration      *prometheus.HistogramVec
	approvalWaiters   prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	return NewWithRegistry(registry, registry)
}

func NewWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		instancesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_started_total",
			Help:      "Workflow instances started, by definition.",
		}, []string{"definition"}),
		instancesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_finished_total",
			Help:      "Workflow instances that reached a terminal status.",
		}, []string{"definition", "status"}),
		instanceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "instance_duration_seconds",
			Help:      "Time from start to terminal status.",
			Buckets:   []float64{1, 10, 60, 600, 3600, 6 * 3600, 24 * 3600, 72 * 3600, 7 * 24 * 3600},
		}, []string{"definition", "status"}),
		runningInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_instances",
			Help:      "Instances currently driven by this engine.",
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Step executions, by kind and outcome.",
		}, []string{"kind", "status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Step execution time, including approval waits.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 10, 9),
		}, []string{"kind"}),
		approvalWaiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "approval_waiters",
			Help:      "Steps parked on a pending approval.",
		}),
	}

	registerer.MustRegister(
		m.instancesStarted,
		m.instancesFinished,
		m.instanceDuration,
		m.runningInstances,
		m.steps,
		m.stepDuration,
		m.approvalWaiters,
	)

	return m
}

func (m *Metrics) InstanceStarted(definitionID string) {
	if m == nil {
		return
	}

	m.instancesStarted.WithLabelValues(definitionID).Inc()
	m.runningInstances.Inc()
}

func (m *Metrics) InstanceFinished(definitionID string, status models.InstanceStatus, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.instancesFinished.WithLabelValues(definitionID, string(status)).Inc()
	m.instanceDuration.WithLabelValues(definitionID, string(status)).Observe(elapsed.Seconds())
	m.runningInstances.Dec()
}

func (m *Metrics) StepFinished(kind models.StepKind, status models.StepStatus, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.steps.WithLabelValues(string(kind), string(status)).Inc()
	m.stepDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// ApprovalWaiters sets the number of parked approval steps.
func (m *Metrics) ApprovalWaiters(n int) {
	if m == nil {
		return
	}

	m.approvalWaiters.Set(float64(n))
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
