// Package beta evaluates the Beta distribution density in log
// space, for scoring observed proportions against a trend.
package beta

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"
)

// Density evaluates the Beta density. The zero value has open
// support (0, 1); with Inclusive set, the boundary points 0 and 1
// are accepted and the density there is the limit from inside.
type Density struct {
	Inclusive bool
}

// Beta is the Beta density with open support.
var Beta Density

// DomainError reports a shape parameter or a data point outside
// the supported range. Index is the position of the data point in
// a batch, or -1.
type DomainError struct {
	Param string
	Value float64
	Index int
}

func (e *DomainError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("beta: %s=%g out of domain at %d",
			e.Param, e.Value, e.Index)
	}
	return fmt.Sprintf("beta: %s=%g out of domain", e.Param, e.Value)
}

// Check returns a *DomainError if alpha, beta or x are outside the
// supported range.
func (dist Density) Check(alpha, beta, x float64) error {
	if err := checkShape(alpha, beta); err != nil {
		return err
	}
	return dist.checkPoint(x, -1)
}

func checkShape(alpha, beta float64) error {
	if !(alpha > 0) || math.IsInf(alpha, 1) {
		return &DomainError{Param: "alpha", Value: alpha, Index: -1}
	}
	if !(beta > 0) || math.IsInf(beta, 1) {
		return &DomainError{Param: "beta", Value: beta, Index: -1}
	}
	return nil
}

func (dist Density) checkPoint(x float64, i int) error {
	if dist.Inclusive {
		if !(x >= 0 && x <= 1) {
			return &DomainError{Param: "x", Value: x, Index: i}
		}
	} else if !(x > 0 && x < 1) {
		return &DomainError{Param: "x", Value: x, Index: i}
	}
	return nil
}

// Logp returns the log-density of x under Beta(alpha, beta).
func (dist Density) Logp(alpha, beta, x float64) (float64, error) {
	if err := dist.Check(alpha, beta, x); err != nil {
		return 0, err
	}
	return logp(alpha, beta, mathext.Lbeta(alpha, beta), x), nil
}

// Pdf returns the density of x under Beta(alpha, beta).
func (dist Density) Pdf(alpha, beta, x float64) (float64, error) {
	lp, err := dist.Logp(alpha, beta, x)
	if err != nil {
		return 0, err
	}
	return math.Exp(lp), nil
}

// Logps returns the log-density of each of xs. The results are not
// summed; the first point out of the support fails the whole batch.
func (dist Density) Logps(alpha, beta float64, xs ...float64) ([]float64, error) {
	if err := checkShape(alpha, beta); err != nil {
		return nil, err
	}
	lbeta := mathext.Lbeta(alpha, beta)
	lps := make([]float64, len(xs))
	for i, x := range xs {
		if err := dist.checkPoint(x, i); err != nil {
			return nil, err
		}
		lps[i] = logp(alpha, beta, lbeta, x)
	}
	return lps, nil
}

// Gradient returns the partial derivatives of the log-density with
// respect to alpha and beta. The arguments are assumed to have
// passed Check; at the boundary the derivatives are infinite.
func (dist Density) Gradient(alpha, beta, x float64) (dalpha, dbeta float64) {
	psi := mathext.Digamma(alpha + beta)
	dalpha = math.Log(x) - mathext.Digamma(alpha) + psi
	dbeta = math.Log1p(-x) - mathext.Digamma(beta) + psi
	return dalpha, dbeta
}

// logp is the log-gamma formulation of the log-density; lbeta is
// log B(alpha, beta).
func logp(alpha, beta, lbeta, x float64) float64 {
	switch x {
	case 0:
		return edge(alpha, beta)
	case 1:
		return edge(beta, alpha)
	}
	return (alpha-1)*math.Log(x) + (beta-1)*math.Log1p(-x) - lbeta
}

// edge is the limit of the log-density at the boundary where the
// exponent a-1 applies; b is the other shape parameter.
func edge(a, b float64) float64 {
	switch {
	case a == 1:
		// B(1, b) = 1/b
		return math.Log(b)
	case a > 1:
		return math.Inf(-1)
	default:
		return math.Inf(1)
	}
}
