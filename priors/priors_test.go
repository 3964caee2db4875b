package priors

import (
	"bitbucket.org/dtolpin/infergo/model"
	"math"
	"testing"
)

const (
	dx  = 1e-8
	eps = 1e-4
)

func TestGradient(t *testing.T) {
	for i, c := range []struct {
		m Priors
		x []float64
	}{
		{&LogPrecision{Mu: 3, Sigma: 2}, []float64{0}},
		{&LogPrecision{Mu: 3, Sigma: 2}, []float64{5.5}},
		{&IID{N: 3, Mu: 0, Sigma: 1}, []float64{-1, 0.5, 2}},
		{&IID{N: 2, Mu: 1, Sigma: 0.5}, []float64{1, 1}},
	} {
		ll0 := c.m.Observe(c.x)
		grad := model.Gradient(c.m)
		if len(grad) != c.m.NTheta() {
			t.Fatalf("%d: gradient length %d, want %d",
				i, len(grad), c.m.NTheta())
		}
		for j := range c.x {
			x0 := c.x[j]
			c.x[j] += dx
			ll := c.m.Observe(c.x)
			dldx := (ll - ll0) / dx
			c.x[j] = x0
			if math.Abs(grad[j]-dldx) > eps {
				t.Errorf("%d: dl/dx%d mismatch: got %.8f, want %.4f",
					i, j, dldx, grad[j])
			}
		}
	}
}

func TestLogp(t *testing.T) {
	m := &IID{N: 2, Mu: 0, Sigma: 1}
	want := -math.Log(2*math.Pi) - 0.5*(1+4)
	if got := m.LogpGrad([]float64{1, -2}, nil); math.Abs(got-want) > 1e-12 {
		t.Errorf("iid normal: got %.12f, want %.12f", got, want)
	}
	p := &LogPrecision{Mu: 0, Sigma: 1}
	want = -0.5 * math.Log(2*math.Pi)
	if got := p.LogpGrad([]float64{0}, nil); math.Abs(got-want) > 1e-12 {
		t.Errorf("log precision: got %.12f, want %.12f", got, want)
	}
}
