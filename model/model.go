package model

import (
	"math"

	"bitbucket.org/dtolpin/betaspline/metrics"
	"bitbucket.org/dtolpin/betaspline/posterior"
)

// Model is the log-posterior of an engine as an elemental infergo
// model: Observe computes the log-posterior and its gradient, which
// Gradient returns. An infeasible point evaluates to -Inf with a zero
// gradient, and Err reports why.
type Model struct {
	Engine  *posterior.Engine
	Metrics *metrics.Metrics
	grad    []float64
	err     error
}

func (m *Model) Observe(x []float64) float64 {
	m.grad = make([]float64, len(x))
	ll, err := m.Engine.LogPosteriorGrad(x, m.grad)
	m.Metrics.Observe(ll, true, err)
	m.err = err
	if err != nil {
		for i := range m.grad {
			m.grad[i] = 0
		}
		return math.Inf(-1)
	}
	return ll
}

func (m *Model) Gradient() []float64 {
	return m.grad
}

// Err returns the error of the last evaluation, if the point was
// infeasible.
func (m *Model) Err() error {
	return m.err
}
