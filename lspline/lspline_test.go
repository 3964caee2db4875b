package lspline

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-12

func TestAtKnots(t *testing.T) {
	for i, c := range []struct {
		knots, coefs []float64
	}{
		{[]float64{0, 1, 2}, []float64{0.1, 0.5, 0.9}},
		{[]float64{-3, 0.5, 0.7, 10}, []float64{4, -1, 2.25, 0}},
		{[]float64{1980, 1990, 2000, 2010, 2020}, []float64{0.01, 0.2, 0.13, 0.07, 0.3}},
		{[]float64{5}, []float64{0.42}},
	} {
		s, err := New(c.knots, c.coefs)
		if err != nil {
			t.Fatalf("%d: unexpected error: %v", i, err)
		}
		for j, k := range c.knots {
			if got := s.At(k); math.Abs(got-c.coefs[j]) > eps {
				t.Errorf("%d: value at knot %d: got %g, want %g",
					i, j, got, c.coefs[j])
			}
		}
	}
}

func TestMidpoints(t *testing.T) {
	knots := []float64{0, 1, 2, 3, 4}
	coefs := []float64{1, 3, 5, 7, 9}
	s, err := New(knots, coefs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i != len(knots)-1; i++ {
		mid := (knots[i] + knots[i+1]) / 2
		want := (coefs[i] + coefs[i+1]) / 2
		if got := s.At(mid); math.Abs(got-want) > eps {
			t.Errorf("midpoint %d: got %g, want %g", i, got, want)
		}
	}

	// Uneven knots interpolate within the bracketing segment.
	s, _ = New([]float64{0, 1, 4}, []float64{0, 2, -4})
	for _, c := range []struct {
		t, want float64
	}{
		{0.25, 0.5},
		{2, 0},
		{3.5, -3},
	} {
		if got := s.At(c.t); math.Abs(got-c.want) > eps {
			t.Errorf("value at %g: got %g, want %g", c.t, got, c.want)
		}
	}
}

func TestContinuity(t *testing.T) {
	s, _ := New([]float64{0, 0.3, 1, 2.5}, []float64{2, -1, 0.5, 0.5})
	const h = 1e-9
	for _, k := range s.Knots() {
		l, r := s.At(k-h), s.At(k+h)
		if math.Abs(l-r) > 1e-7 {
			t.Errorf("discontinuity at %g: %g vs %g", k, l, r)
		}
	}
}

func TestExtrapolation(t *testing.T) {
	s, _ := New([]float64{0, 1, 2}, []float64{0.1, 0.5, 0.9})
	for _, c := range []struct {
		t, want float64
	}{
		{-1, -0.3},
		{-0.5, -0.1},
		{3, 1.3},
		{2.5, 1.1},
	} {
		if got := s.At(c.t); math.Abs(got-c.want) > eps {
			t.Errorf("extrapolated value at %g: got %g, want %g",
				c.t, got, c.want)
		}
	}

	// The slope of the edge segment, not of the whole curve.
	s, _ = New([]float64{0, 1, 2}, []float64{0, 1, 0})
	if got := s.At(-1); math.Abs(got+1) > eps {
		t.Errorf("left extrapolation: got %g, want -1", got)
	}
	if got := s.At(3); math.Abs(got+1) > eps {
		t.Errorf("right extrapolation: got %g, want -1", got)
	}

	// A single knot is constant everywhere.
	s, _ = New([]float64{1}, []float64{0.7})
	for _, x := range []float64{-10, 1, 10} {
		if got := s.At(x); got != 0.7 {
			t.Errorf("single knot at %g: got %g, want 0.7", x, got)
		}
	}
}

func TestInvalid(t *testing.T) {
	for i, c := range []struct {
		knots, coefs []float64
		index        int
	}{
		{nil, nil, -1},
		{[]float64{0, 1}, []float64{1}, -1},
		{[]float64{0, 1, 1}, []float64{1, 2, 3}, 2},
		{[]float64{0, 2, 1}, []float64{1, 2, 3}, 2},
		{[]float64{0, math.NaN()}, []float64{1, 2}, 1},
		{[]float64{math.Inf(-1), 0}, []float64{1, 2}, 0},
	} {
		_, err := New(c.knots, c.coefs)
		var serr *InvalidSplineError
		if !errors.As(err, &serr) {
			t.Errorf("%d: want InvalidSplineError, got %v", i, err)
			continue
		}
		if serr.Index != c.index {
			t.Errorf("%d: wrong index: got %d, want %d",
				i, serr.Index, c.index)
		}
	}

	b, _ := NewBasis([]float64{0, 1, 2})
	if _, err := b.Eval([]float64{1, 2}, 0.5); err == nil {
		t.Errorf("coefficient count mismatch not detected")
	}
}

func TestRows(t *testing.T) {
	b, _ := NewBasis([]float64{0, 1, 2, 4})
	coefs := []float64{1, -1, 2, 0}
	ts := []float64{-2, 0, 0.5, 1, 1.5, 3, 4, 7}
	vs, err := b.EvalAll(coefs, ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := b.Dense(ts)
	for i, r := range b.Rows(ts) {
		if math.Abs(r.W[0]+r.W[1]-1) > eps {
			t.Errorf("row %d weights do not sum to 1: %v", i, r.W)
		}
		dot := 0.
		for j := range coefs {
			dot += d.At(i, j) * coefs[j]
		}
		if math.Abs(dot-vs[i]) > eps {
			t.Errorf("dense row %d: got %g, want %g", i, dot, vs[i])
		}
	}
}

func TestKnotPartials(t *testing.T) {
	const dx = 1e-7
	knots := []float64{0, 1, 2.5, 4}
	coefs := []float64{0.3, -0.2, 0.8, 0.1}
	for _, q := range []float64{-1, 0.4, 1.7, 3, 5} {
		b, _ := NewBasis(knots)
		r := b.Row(q)
		dlo, dhi := b.KnotPartials(coefs, r)
		v0 := r.Dot(coefs)
		for j, want := range []float64{dlo, dhi} {
			k := append([]float64(nil), knots...)
			k[r.Lo+j] += dx
			bb, _ := NewBasis(k)
			v, _ := bb.Eval(coefs, q)
			if got := (v - v0) / dx; math.Abs(got-want) > 1e-5 {
				t.Errorf("query %g, knot %d: got %.6f, want %.6f",
					q, r.Lo+j, got, want)
			}
		}
	}
}

func TestFit(t *testing.T) {
	b, _ := NewBasis([]float64{0, 1, 2})
	ts := []float64{0, 0.5, 1, 1.5, 2}
	ys := []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	coefs, err := b.Fit(ts, ys, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []float64{0.1, 0.5, 0.9} {
		if math.Abs(coefs[i]-want) > 1e-9 {
			t.Errorf("coefficient %d: got %g, want %g", i, coefs[i], want)
		}
	}

	if _, err := b.Fit(ts[:2], ys[:2], nil); err == nil {
		t.Errorf("underdetermined fit not detected")
	}
	if _, err := b.Fit(ts, ys, []float64{1, 1, -1, 1, 1}); err == nil {
		t.Errorf("negative weight not detected")
	}
}
