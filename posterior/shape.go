package posterior

import (
	"math"

	"bitbucket.org/dtolpin/betaspline/beta"
)

// ShapeTransform maps the predicted trend value mu and the shape
// parameters theta, NTheta entries of the parameter vector, to the
// Beta shape parameters of an observation.
type ShapeTransform interface {
	NTheta() int
	Shape(mu float64, theta []float64) (alpha, beta float64, err error)
}

// ShapeDeriv is a shape transform with derivatives. ShapeGrad
// fills dalpha and dbeta, of length 1+NTheta(), with the partial
// derivatives of alpha and beta with respect to mu and then to each
// of theta.
type ShapeDeriv interface {
	ShapeTransform
	ShapeGrad(mu float64, theta []float64, dalpha, dbeta []float64)
}

func meanError(mu float64) error {
	return &beta.DomainError{Param: "mean", Value: mu, Index: -1}
}

// FixedPrecision is the mean-precision parameterization with a
// known precision: alpha = mu*Phi, beta = (1-mu)*Phi.
type FixedPrecision struct {
	Phi float64
}

func (FixedPrecision) NTheta() int { return 0 }

func (s FixedPrecision) Shape(mu float64, _ []float64) (float64, float64, error) {
	if !(mu > 0 && mu < 1) {
		return 0, 0, meanError(mu)
	}
	return mu * s.Phi, (1 - mu) * s.Phi, nil
}

func (s FixedPrecision) ShapeGrad(_ float64, _ []float64, dalpha, dbeta []float64) {
	dalpha[0] = s.Phi
	dbeta[0] = -s.Phi
}

// MeanPrecision is the mean-precision parameterization with the
// log-precision as the single shape parameter. With Logit set the
// trend is on the log-odds scale.
type MeanPrecision struct {
	Logit bool
}

func (MeanPrecision) NTheta() int { return 1 }

// Mean returns the mean proportion for trend value mu.
func (s MeanPrecision) Mean(mu float64) float64 {
	if s.Logit {
		return 1 / (1 + math.Exp(-mu))
	}
	return mu
}

func (s MeanPrecision) Shape(mu float64, theta []float64) (float64, float64, error) {
	m := s.Mean(mu)
	if !(m > 0 && m < 1) {
		return 0, 0, meanError(mu)
	}
	phi := math.Exp(theta[0])
	return m * phi, (1 - m) * phi, nil
}

func (s MeanPrecision) ShapeGrad(mu float64, theta []float64, dalpha, dbeta []float64) {
	m := s.Mean(mu)
	phi := math.Exp(theta[0])
	dm := 1.
	if s.Logit {
		dm = m * (1 - m)
	}
	dalpha[0] = phi * dm
	dbeta[0] = -phi * dm
	dalpha[1] = m * phi
	dbeta[1] = (1 - m) * phi
}

// ShapeFunc adapts a function of the trend value to a shape
// transform without shape parameters or derivatives.
type ShapeFunc func(mu float64) (alpha, beta float64, err error)

func (ShapeFunc) NTheta() int { return 0 }

func (f ShapeFunc) Shape(mu float64, _ []float64) (float64, float64, error) {
	return f(mu)
}
