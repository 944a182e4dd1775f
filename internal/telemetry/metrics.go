// Package telemetry exports per-phase timings and step summaries of a
// coupled run as Prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mixcrop/internal/coupling"
)

// Metrics implements coupling.Observer.
type Metrics struct {
	reg *prometheus.Registry

	phase       *prometheus.HistogramVec
	steps       *prometheus.CounterVec
	plants      prometheus.Gauge
	intercepted prometheus.Gauge
	water       prometheus.Gauge
	transp      prometheus.Counter
	uptake      prometheus.Counter
}

var _ coupling.Observer = (*Metrics)(nil)

// New registers the run metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		phase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mixcrop",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each phase of a coupled step.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}, []string{"phase"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mixcrop",
			Name:      "steps_total",
			Help:      "Completed steps by kind: coupled, light_only, soil_only, bare or plant_only.",
		}, []string{"kind"}),
		plants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mixcrop",
			Name:      "plants",
			Help:      "Plants in the last soil exchange.",
		}),
		intercepted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mixcrop",
			Name:      "intercepted_fraction",
			Help:      "Canopy intercepted fraction of the last light exchange.",
		}),
		water: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mixcrop",
			Name:      "soil_water_mm",
			Help:      "Soil water store after the last step.",
		}),
		transp: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mixcrop",
			Name:      "transpiration_mm_total",
			Help:      "Cumulated plant transpiration.",
		}),
		uptake: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mixcrop",
			Name:      "n_uptake_grams_total",
			Help:      "Cumulated plant nitrogen uptake.",
		}),
	}
	m.reg.MustRegister(m.phase, m.steps, m.plants, m.intercepted, m.water, m.transp, m.uptake)
	return m
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObservePhase(p coupling.Phase, d time.Duration) {
	m.phase.WithLabelValues(string(p)).Observe(d.Seconds())
}

func (m *Metrics) ObserveStep(r coupling.StepReport) {
	m.steps.WithLabelValues(r.Kind()).Inc()
	if r.Light {
		m.intercepted.Set(r.Intercepted)
	}
	if r.Soil {
		m.plants.Set(float64(r.Plants))
		m.water.Set(r.Water)
		if r.Transpiration > 0 {
			m.transp.Add(r.Transpiration)
		}
		if r.Uptake > 0 {
			m.uptake.Add(r.Uptake)
		}
	}
}
