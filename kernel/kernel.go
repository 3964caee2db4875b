// Package kernel builds smoothing prior covariances over the knots
// of a spline from Gaussian process kernels.
package kernel

import (
	"bitbucket.org/dtolpin/gogp/kernel"
	"gonum.org/v1/gonum/mat"
)

// Kernel is the covariance between the values at two knots.
type Kernel interface {
	Cov(a, b float64) float64
}

// The smooth trend kernel.
type Matern52 struct {
	Variance    float64
	LengthScale float64
}

func (k Matern52) Cov(a, b float64) float64 {
	return k.Variance * kernel.Matern52.Cov(k.LengthScale, a, b)
}

// The very smooth trend kernel.
type SquaredExp struct {
	Variance    float64
	LengthScale float64
}

func (k SquaredExp) Cov(a, b float64) float64 {
	return k.Variance * kernel.Normal.Cov(k.LengthScale, a, b)
}

// The seasonal+trend kernel, for knots placed within seasons. We
// pretend we know the period.
type Seasonal struct {
	Variance          float64 // trend variance
	LengthScale       float64 // trend length scale
	SeasonVariance    float64
	SeasonLengthScale float64
	Period            float64
}

func (k Seasonal) Cov(a, b float64) float64 {
	return k.Variance*kernel.Matern52.Cov(k.LengthScale, a, b) +
		k.SeasonVariance*kernel.Periodic.Cov(k.SeasonLengthScale, k.Period, a, b)
}

// Matrix returns the covariance matrix of k over knots, with jitter
// added to the diagonal.
func Matrix(k Kernel, knots []float64, jitter float64) *mat.SymDense {
	n := len(knots)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i != n; i++ {
		for j := i; j != n; j++ {
			c := k.Cov(knots[i], knots[j])
			if i == j {
				c += jitter
			}
			cov.SetSym(i, j, c)
		}
	}
	return cov
}
