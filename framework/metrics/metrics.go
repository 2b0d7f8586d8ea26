// Package metrics exports container activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-carbon/framework/container"
)

const namespace = "carbon"

// Outcome label values of carbon_resolves_total.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Collector implements container.Observer on its own registry.
type Collector struct {
	registry *prometheus.Registry

	resolves *prometheus.CounterVec
	builds   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ container.Observer = (*Collector)(nil)

// Options toggles the process-wide collectors.
type Options struct {
	Go      bool
	Process bool
}

// New creates a Collector and registers its metrics.
func New(opts Options) *Collector {
	m := &Collector{
		registry: prometheus.NewRegistry(),
		resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolves_total",
				Help:      "Total number of definition resolutions",
			},
			[]string{"definition", "scope", "outcome"},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Total number of instances constructed",
			},
			[]string{"definition", "scope"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_duration_seconds",
				Help:      "Definition resolution duration in seconds",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
			},
			[]string{"definition"},
		),
	}
	m.registry.MustRegister(m.resolves, m.builds, m.duration)

	if opts.Go {
		m.registry.MustRegister(collectors.NewGoCollector())
	}
	if opts.Process {
		m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return m
}

func (m *Collector) Resolved(def *container.Definition, took time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.resolves.WithLabelValues(def.Label(), def.Scope().String(), outcome).Inc()
	m.duration.WithLabelValues(def.Label()).Observe(took.Seconds())
}

func (m *Collector) Built(def *container.Definition) {
	m.builds.WithLabelValues(def.Label(), def.Scope().String()).Inc()
}

// Registry returns the registry the metrics live in.
func (m *Collector) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
