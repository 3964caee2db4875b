// Package mvn computes the log-density of the multivariate normal
// distribution through a Cholesky factorization of the covariance
// (or precision) matrix. The matrix is never inverted explicitly.
package mvn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var log2Pi = math.Log(2 * math.Pi)

// NotPositiveDefiniteError reports a matrix that could not be
// factorized.
type NotPositiveDefiniteError struct {
	Dim       int
	Precision bool
	Reason    string
}

func (e *NotPositiveDefiniteError) Error() string {
	what := "covariance"
	if e.Precision {
		what = "precision"
	}
	return fmt.Sprintf("mvn: %dx%d %s matrix is not positive definite: %s",
		e.Dim, e.Dim, what, e.Reason)
}

// DimensionError reports vectors or matrices of mismatched size.
type DimensionError struct {
	What      string
	Want, Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("mvn: %s has dimension %d, want %d",
		e.What, e.Got, e.Want)
}

// MeanError reports a non-finite entry of the mean.
type MeanError struct {
	Index int
	Value float64
}

func (e *MeanError) Error() string {
	return fmt.Sprintf("mvn: mean %d is %g", e.Index, e.Value)
}

// Factor is a factorized covariance or precision matrix. A Factor
// is immutable and may be shared between goroutines.
type Factor struct {
	chol      mat.Cholesky
	precision bool
	// upper factor of the precision matrix
	u         *mat.TriDense
	dim       int
	logDetCov float64
}

// Factorize factorizes a covariance matrix.
func Factorize(cov mat.Symmetric) (*Factor, error) {
	return factorize(cov, false)
}

// FactorizePrecision factorizes a precision matrix, the inverse of
// the covariance.
func FactorizePrecision(prec mat.Symmetric) (*Factor, error) {
	return factorize(prec, true)
}

func factorize(a mat.Symmetric, precision bool) (*Factor, error) {
	if a == nil {
		return nil, &DimensionError{What: "matrix", Want: 1, Got: 0}
	}
	n := a.SymmetricDim()
	if n == 0 {
		return nil, &DimensionError{What: "matrix", Want: 1, Got: 0}
	}
	for i := 0; i != n; i++ {
		for j := i; j != n; j++ {
			if v := a.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &NotPositiveDefiniteError{
					Dim:       n,
					Precision: precision,
					Reason:    fmt.Sprintf("entry (%d, %d) is %g", i, j, v),
				}
			}
		}
	}
	f := &Factor{precision: precision, dim: n}
	if ok := f.chol.Factorize(a); !ok {
		return nil, &NotPositiveDefiniteError{
			Dim:       n,
			Precision: precision,
			Reason:    "Cholesky factorization failed",
		}
	}
	logDet := f.chol.LogDet()
	if precision {
		f.u = mat.NewTriDense(n, mat.Upper, nil)
		f.chol.UTo(f.u)
		logDet = -logDet
	}
	f.logDetCov = logDet
	return f, nil
}

// Dim returns the dimension of the distribution.
func (f *Factor) Dim() int {
	return f.dim
}

// LogDet returns the log-determinant of the covariance matrix.
func (f *Factor) LogDet() float64 {
	return f.logDetCov
}

func (f *Factor) check(x, mu []float64) error {
	if len(x) != f.dim {
		return &DimensionError{What: "query", Want: f.dim, Got: len(x)}
	}
	if len(mu) != f.dim {
		return &DimensionError{What: "mean", Want: f.dim, Got: len(mu)}
	}
	return nil
}

// LogProb returns the log-density of x for mean mu.
func (f *Factor) LogProb(x, mu []float64) (float64, error) {
	return f.LogProbGrad(x, mu, nil)
}

// LogProbGrad returns the log-density of x for mean mu and, when grad
// is not nil, adds the gradient with respect to x, -Σ⁻¹(x-μ), to
// grad.
func (f *Factor) LogProbGrad(x, mu, grad []float64) (float64, error) {
	if err := f.check(x, mu); err != nil {
		return 0, err
	}
	if grad != nil && len(grad) != f.dim {
		return 0, &DimensionError{What: "gradient", Want: f.dim, Got: len(grad)}
	}
	d := make([]float64, f.dim)
	floats.SubTo(d, x, mu)
	dv := mat.NewVecDense(f.dim, d)

	var quad float64
	if f.precision {
		// Pd = Uᵀ(Ud)
		var z mat.VecDense
		z.MulVec(f.u, dv)
		quad = mat.Dot(&z, &z)
		if grad != nil {
			var pd mat.VecDense
			pd.MulVec(f.u.T(), &z)
			for i := range grad {
				grad[i] -= pd.AtVec(i)
			}
		}
	} else {
		// forward and back substitution: Σy = d
		var y mat.VecDense
		if err := f.chol.SolveVecTo(&y, dv); err != nil {
			// only a condition warning, the solution is usable
			if _, ok := err.(mat.Condition); !ok {
				return 0, err
			}
		}
		quad = mat.Dot(dv, &y)
		if grad != nil {
			for i := range grad {
				grad[i] -= y.AtVec(i)
			}
		}
	}
	return -0.5 * (quad + f.logDetCov + float64(f.dim)*log2Pi), nil
}

// LogDensity returns the log-density of x under the normal
// distribution with mean mu and covariance cov.
func LogDensity(x, mu []float64, cov mat.Symmetric) (float64, error) {
	f, err := Factorize(cov)
	if err != nil {
		return 0, err
	}
	return f.LogProb(x, mu)
}

// Prior is a multivariate normal prior: a mean and a covariance
// matrix, or a precision matrix if Precision is set.
type Prior struct {
	Mean      []float64
	Matrix    mat.Symmetric
	Precision bool
}

// Dim returns the dimension of the prior.
func (p *Prior) Dim() int {
	return len(p.Mean)
}

// Validate checks that the mean and the matrix agree in dimension
// and that the mean is finite. Definiteness is checked on
// factorization.
func (p *Prior) Validate() error {
	if p.Matrix == nil {
		return &DimensionError{What: "matrix", Want: len(p.Mean), Got: 0}
	}
	if n := p.Matrix.SymmetricDim(); n != len(p.Mean) {
		return &DimensionError{What: "matrix", Want: len(p.Mean), Got: n}
	}
	for i, m := range p.Mean {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return &MeanError{Index: i, Value: m}
		}
	}
	return nil
}

// Factorize factorizes the prior's matrix.
func (p *Prior) Factorize() (*Factor, error) {
	return factorize(p.Matrix, p.Precision)
}
