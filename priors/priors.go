package priors

import (
	. "bitbucket.org/dtolpin/infergo/dist"
	"bitbucket.org/dtolpin/infergo/model"
)

// Priors is a hyperprior over the shape parameters. LogpGrad is the
// reentrant form of Observe: it returns the log-density and adds the
// gradient to grad unless grad is nil.
type Priors interface {
	model.Model
	NTheta() int
	LogpGrad(x, grad []float64) float64
}

// LogPrecision is the prior of the log-precision of the
// mean-precision parameterization.
type LogPrecision struct {
	Mu, Sigma float64
	grad      []float64
}

func (m *LogPrecision) NTheta() int {
	return 1
}

func (m *LogPrecision) LogpGrad(x, grad []float64) float64 {
	const (
		phi = iota // log precision
	)

	// Precisions of surveillance proportions are in the tens to
	// thousands, a wide normal on the log scale.
	ll := Normal.Logp(m.Mu, m.Sigma, x[phi])
	if grad != nil {
		grad[phi] -= (x[phi] - m.Mu) / (m.Sigma * m.Sigma)
	}
	return ll
}

func (m *LogPrecision) Observe(x []float64) float64 {
	m.grad = make([]float64, len(x))
	return m.LogpGrad(x, m.grad)
}

func (m *LogPrecision) Gradient() []float64 {
	return m.grad
}

// IID puts independent normal priors on N shape parameters.
type IID struct {
	N         int
	Mu, Sigma float64
	grad      []float64
}

func (m *IID) NTheta() int {
	return m.N
}

func (m *IID) LogpGrad(x, grad []float64) float64 {
	ll := Normal.Logps(m.Mu, m.Sigma, x[:m.N]...)
	if grad != nil {
		for i := 0; i != m.N; i++ {
			grad[i] -= (x[i] - m.Mu) / (m.Sigma * m.Sigma)
		}
	}
	return ll
}

func (m *IID) Observe(x []float64) float64 {
	m.grad = make([]float64, len(x))
	return m.LogpGrad(x, m.grad)
}

func (m *IID) Gradient() []float64 {
	return m.grad
}
