// Package metrics provides ComponentRegistry, the small per-component
// Prometheus registration helper used throughout the pipeline stages.
// The teacher's own metrics package (imported as
// "github.com/compose-network/publisher/metrics" /
// "github.com/ssvlabs/rollup-shared-publisher/pkg/metrics" depending on
// call site) is not part of the retrieval pack, but its usage shape is
// visible at every call site in x/publisher/metrics.go and
// internal/network/metrics.go: NewComponentRegistry(namespace,
// subsystem) followed by reg.NewCounter/NewGauge/NewHistogram(Vec)
// calls that auto-prefix and auto-register each metric.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// CountBuckets and NetworkBuckets mirror the teacher's named bucket
// presets referenced at call sites (metrics2.CountBuckets,
// metrics.NetworkBuckets).
var (
	CountBuckets   = []float64{1, 2, 5, 10, 20, 50, 100, 200, 500}
	NetworkBuckets = prometheus.DefBuckets
)

// ComponentRegistry registers every metric created through it under
// namespace_subsystem_<name>, using the default Prometheus registerer so
// all components share one /metrics endpoint.
type ComponentRegistry struct {
	namespace string
	subsystem string
	registerer prometheus.Registerer
}

// NewComponentRegistry returns a registry that prefixes every metric it
// creates with namespace (and subsystem, if non-empty).
func NewComponentRegistry(namespace, subsystem string) *ComponentRegistry {
	return &ComponentRegistry{
		namespace:  namespace,
		subsystem:  subsystem,
		registerer: prometheus.DefaultRegisterer,
	}
}

func (r *ComponentRegistry) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Namespace = r.namespace
	opts.Subsystem = r.subsystem
	c := prometheus.NewCounter(opts)
	r.registerer.MustRegister(c)
	return c
}

func (r *ComponentRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	opts.Namespace = r.namespace
	opts.Subsystem = r.subsystem
	c := prometheus.NewCounterVec(opts, labels)
	r.registerer.MustRegister(c)
	return c
}

func (r *ComponentRegistry) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Namespace = r.namespace
	opts.Subsystem = r.subsystem
	g := prometheus.NewGauge(opts)
	r.registerer.MustRegister(g)
	return g
}

func (r *ComponentRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	opts.Namespace = r.namespace
	opts.Subsystem = r.subsystem
	g := prometheus.NewGaugeVec(opts, labels)
	r.registerer.MustRegister(g)
	return g
}

func (r *ComponentRegistry) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.Namespace = r.namespace
	opts.Subsystem = r.subsystem
	h := prometheus.NewHistogram(opts)
	r.registerer.MustRegister(h)
	return h
}

func (r *ComponentRegistry) NewHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	opts.Namespace = r.namespace
	opts.Subsystem = r.subsystem
	h := prometheus.NewHistogramVec(opts, labels)
	r.registerer.MustRegister(h)
	return h
}
