// Package metrics counts log-posterior evaluations for the driver.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bitbucket.org/dtolpin/betaspline/posterior"
)

const namespace = "betaspline"

// Metrics are the evaluation collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	Evaluations  prometheus.Counter
	Gradients    prometheus.Counter
	Infeasible   *prometheus.CounterVec
	LogPosterior prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Evaluations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Log-posterior evaluations.",
		}),
		Gradients: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gradient_evaluations_total",
			Help:      "Log-posterior evaluations with gradient.",
		}),
		Infeasible: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "infeasible_total",
			Help:      "Failed evaluations by the failing term.",
		}, []string{"term"}),
		LogPosterior: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "log_posterior",
			Help:      "Last feasible log-posterior value.",
		}),
	}
}

// Observe records an evaluation with its outcome.
func (m *Metrics) Observe(lp float64, gradient bool, err error) {
	if m == nil {
		return
	}
	m.Evaluations.Inc()
	if gradient {
		m.Gradients.Inc()
	}
	if err != nil {
		m.Infeasible.WithLabelValues(TermOf(err)).Inc()
		return
	}
	m.LogPosterior.Set(lp)
}

// TermOf returns the name of the term an evaluation error comes
// from.
func TermOf(err error) string {
	var aerr *posterior.AggregationError
	var lerr *posterior.LayoutError
	switch {
	case errors.As(err, &aerr):
		return aerr.Term.String()
	case errors.As(err, &lerr):
		return "layout"
	}
	return "other"
}
