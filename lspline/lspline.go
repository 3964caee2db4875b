// Package lspline implements the linear spline: a piecewise-linear
// curve through values at fixed knots.
//
// Outside the knot range the curve is extended with the slope of the
// nearest edge segment. A spline with a single knot is constant.
package lspline

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// InvalidSplineError reports malformed knots or coefficients. Index
// is the offending knot, or -1 if the error is not about a single
// knot.
type InvalidSplineError struct {
	Index  int
	Reason string
}

func (e *InvalidSplineError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("lspline: knot %d: %s", e.Index, e.Reason)
	}
	return "lspline: " + e.Reason
}

// CheckKnots checks that knots are finite and strictly increasing.
func CheckKnots(knots []float64) error {
	if len(knots) == 0 {
		return &InvalidSplineError{Index: -1, Reason: "no knots"}
	}
	for i, k := range knots {
		if math.IsNaN(k) || math.IsInf(k, 0) {
			return &InvalidSplineError{Index: i,
				Reason: fmt.Sprintf("position %g is not finite", k)}
		}
		if i > 0 && !(k > knots[i-1]) {
			return &InvalidSplineError{Index: i,
				Reason: fmt.Sprintf("position %g does not exceed %g",
					k, knots[i-1])}
		}
	}
	return nil
}

// Validate checks a knot and coefficient configuration.
func Validate(knots, coefs []float64) error {
	if err := CheckKnots(knots); err != nil {
		return err
	}
	return checkCoefs(len(knots), coefs)
}

func checkCoefs(n int, coefs []float64) error {
	if len(coefs) != n {
		return &InvalidSplineError{Index: -1,
			Reason: fmt.Sprintf("%d coefficients for %d knots",
				len(coefs), n)}
	}
	return nil
}

// Row is the basis-weight row of a query: the value at T is
// W[0]*coefs[Lo] + W[1]*coefs[Lo+1]. For a single-knot basis only
// W[0] is used.
type Row struct {
	T  float64
	Lo int
	W  [2]float64
}

// Dot returns the value of the row applied to coefs.
func (r Row) Dot(coefs []float64) float64 {
	if r.Lo+1 == len(coefs) {
		return r.W[0] * coefs[r.Lo]
	}
	return r.W[0]*coefs[r.Lo] + r.W[1]*coefs[r.Lo+1]
}

// Basis is the linear spline basis over validated knots.
type Basis struct {
	knots []float64
}

// NewBasis validates knots and returns the basis over them. The
// knots are copied.
func NewBasis(knots []float64) (*Basis, error) {
	if err := CheckKnots(knots); err != nil {
		return nil, err
	}
	return &Basis{knots: append([]float64(nil), knots...)}, nil
}

// Knots returns the knot positions; the slice must not be modified.
func (b *Basis) Knots() []float64 {
	return b.knots
}

// NKnots returns the number of knots.
func (b *Basis) NKnots() int {
	return len(b.knots)
}

// segment returns the index of the left knot of the segment used
// for t: the bracketing segment inside the range, the edge segment
// outside.
func (b *Basis) segment(t float64) int {
	n := len(b.knots)
	// first knot >= t
	i := sort.SearchFloat64s(b.knots, t)
	switch {
	case i == 0:
		return 0
	case i >= n-1:
		return n - 2
	}
	return i - 1
}

// Row returns the basis-weight row for query t.
func (b *Basis) Row(t float64) Row {
	if len(b.knots) == 1 {
		return Row{T: t, Lo: 0, W: [2]float64{1, 0}}
	}
	lo := b.segment(t)
	k0, k1 := b.knots[lo], b.knots[lo+1]
	u := (t - k0) / (k1 - k0)
	// exactly at a knot the row selects that knot alone
	switch t {
	case k0:
		u = 0
	case k1:
		u = 1
	}
	return Row{T: t, Lo: lo, W: [2]float64{1 - u, u}}
}

// Rows returns the basis-weight rows for queries ts.
func (b *Basis) Rows(ts []float64) []Row {
	rows := make([]Row, len(ts))
	for i, t := range ts {
		rows[i] = b.Row(t)
	}
	return rows
}

// Dense returns the design matrix of queries ts: one row per query,
// one column per knot.
func (b *Basis) Dense(ts []float64) *mat.Dense {
	d := mat.NewDense(len(ts), len(b.knots), nil)
	for i, t := range ts {
		r := b.Row(t)
		d.Set(i, r.Lo, r.W[0])
		if r.Lo+1 < len(b.knots) {
			d.Set(i, r.Lo+1, r.W[1])
		}
	}
	return d
}

// Eval returns the value of the spline with coefficients coefs at t.
func (b *Basis) Eval(coefs []float64, t float64) (float64, error) {
	if err := checkCoefs(len(b.knots), coefs); err != nil {
		return 0, err
	}
	return b.Row(t).Dot(coefs), nil
}

// EvalAll returns the values of the spline at each of ts.
func (b *Basis) EvalAll(coefs []float64, ts []float64) ([]float64, error) {
	if err := checkCoefs(len(b.knots), coefs); err != nil {
		return nil, err
	}
	vs := make([]float64, len(ts))
	for i, t := range ts {
		vs[i] = b.Row(t).Dot(coefs)
	}
	return vs, nil
}

// KnotPartials returns the derivatives of the value of row r with
// respect to the positions of knots r.Lo and r.Lo+1. The same
// expressions hold on the edge segments, where the value is
// extrapolated.
func (b *Basis) KnotPartials(coefs []float64, r Row) (dlo, dhi float64) {
	if len(b.knots) == 1 {
		return 0, 0
	}
	k0, k1 := b.knots[r.Lo], b.knots[r.Lo+1]
	h := k1 - k0
	dc := coefs[r.Lo+1] - coefs[r.Lo]
	dlo = dc * (r.T - k1) / (h * h)
	dhi = -dc * (r.T - k0) / (h * h)
	return dlo, dhi
}

// Fit returns the coefficients minimizing the weighted squared
// error of the spline at ts against ys. Nil ws weighs all points
// equally.
func (b *Basis) Fit(ts, ys, ws []float64) ([]float64, error) {
	if len(ys) != len(ts) || (ws != nil && len(ws) != len(ts)) {
		return nil, &InvalidSplineError{Index: -1,
			Reason: "mismatched fit data lengths"}
	}
	if len(ts) < len(b.knots) {
		return nil, &InvalidSplineError{Index: -1,
			Reason: fmt.Sprintf("%d points for %d knots",
				len(ts), len(b.knots))}
	}
	a := b.Dense(ts)
	y := mat.NewVecDense(len(ys), append([]float64(nil), ys...))
	if ws != nil {
		for i, w := range ws {
			if !(w >= 0) {
				return nil, &InvalidSplineError{Index: -1,
					Reason: fmt.Sprintf("fit weight %g at %d", w, i)}
			}
			sw := math.Sqrt(w)
			for j := 0; j != len(b.knots); j++ {
				a.Set(i, j, sw*a.At(i, j))
			}
			y.SetVec(i, sw*y.AtVec(i))
		}
	}
	var qr mat.QR
	qr.Factorize(a)
	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, y); err != nil {
		return nil, fmt.Errorf("lspline: fit: %w", err)
	}
	coefs := make([]float64, len(b.knots))
	for i := range coefs {
		coefs[i] = c.AtVec(i)
	}
	return coefs, nil
}

// Spline is a linear spline with fixed coefficients.
type Spline struct {
	*Basis
	Coefs []float64
}

// New validates knots and coefficients and returns the spline.
func New(knots, coefs []float64) (*Spline, error) {
	if err := Validate(knots, coefs); err != nil {
		return nil, err
	}
	b := &Basis{knots: append([]float64(nil), knots...)}
	return &Spline{
		Basis: b,
		Coefs: append([]float64(nil), coefs...),
	}, nil
}

// At returns the value of the spline at t.
func (s *Spline) At(t float64) float64 {
	return s.Row(t).Dot(s.Coefs)
}

// Values returns the values of the spline at ts.
func (s *Spline) Values(ts []float64) []float64 {
	vs := make([]float64, len(ts))
	for i, t := range ts {
		vs[i] = s.At(t)
	}
	return vs
}
