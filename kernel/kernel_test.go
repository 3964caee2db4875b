package kernel

import (
	"math"
	"testing"

	"bitbucket.org/dtolpin/betaspline/mvn"
)

func TestMatrix(t *testing.T) {
	knots := []float64{1990, 1995, 2000, 2005, 2010, 2015}
	for i, k := range []Kernel{
		Matern52{Variance: 0.5, LengthScale: 10},
		SquaredExp{Variance: 2, LengthScale: 7},
		Seasonal{Variance: 1, LengthScale: 10,
			SeasonVariance: 0.1, SeasonLengthScale: 1, Period: 12},
	} {
		cov := Matrix(k, knots, 1e-6)
		n := cov.SymmetricDim()
		if n != len(knots) {
			t.Fatalf("%d: dimension %d, want %d", i, n, len(knots))
		}
		d := k.Cov(knots[0], knots[0])
		for j := 0; j != n; j++ {
			if got := cov.At(j, j); math.Abs(got-d-1e-6) > 1e-12 {
				t.Errorf("%d: diagonal %d: got %g, want %g", i, j, got, d+1e-6)
			}
			for l := 0; l != n; l++ {
				if cov.At(j, l) != cov.At(l, j) {
					t.Errorf("%d: asymmetric at (%d, %d)", i, j, l)
				}
			}
		}
		if _, err := mvn.Factorize(cov); err != nil {
			t.Errorf("%d: kernel matrix does not factorize: %v", i, err)
		}
	}
}

func TestDecay(t *testing.T) {
	for i, k := range []Kernel{
		Matern52{Variance: 1, LengthScale: 2},
		SquaredExp{Variance: 1, LengthScale: 2},
	} {
		prev := k.Cov(0, 0)
		for _, x := range []float64{0.5, 1, 2, 4, 8} {
			c := k.Cov(0, x)
			if !(c < prev) || c < 0 {
				t.Errorf("%d: covariance at %g does not decay: %g after %g",
					i, x, c, prev)
			}
			prev = c
		}
	}
}
