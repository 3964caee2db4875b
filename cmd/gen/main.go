package main

import (
	"bitbucket.org/dtolpin/betaspline/kernel"
	"bitbucket.org/dtolpin/betaspline/lspline"
	"flag"
	"fmt"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	KNOTS    = "0,10,20,30,40"
	MEAN     = -3.
	PHI      = 200.
	SEASONAL = false
	SEED     = uint64(0)
	N        = 0
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			`Generate test data. Invocation:
	%s  [OPTIONS] | head -100
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.StringVar(&KNOTS, "knots", KNOTS, "comma-separated knots")
	flag.Float64Var(&MEAN, "mean", MEAN, "mean of the trend on the logit scale")
	flag.Float64Var(&PHI, "phi", PHI, "precision of the observations")
	flag.BoolVar(&SEASONAL, "seasonal", SEASONAL, "seasonal trend")
	flag.Uint64Var(&SEED, "seed", SEED, "random seed, 0 for the clock")
	flag.IntVar(&N, "n", N, "number of records, 0 for no limit")
}

const (
	tVariance            = 1.
	tLengthScale         = 20.
	tPeriod              = 10.
	tSeasonalVariance    = 0.25
	tSeasonalLengthScale = 2.
)

// trend samples the trend on the logit scale from the smoothing
// prior over the knots.
func trend(knots []float64, src rand.Source) (*lspline.Spline, error) {
	var k kernel.Kernel = kernel.Matern52{
		Variance:    tVariance,
		LengthScale: tLengthScale,
	}
	if SEASONAL {
		k = kernel.Seasonal{
			Variance:          tVariance,
			LengthScale:       tLengthScale,
			SeasonVariance:    tSeasonalVariance,
			SeasonLengthScale: tSeasonalLengthScale,
			Period:            tPeriod,
		}
	}
	mu := make([]float64, len(knots))
	for i := range mu {
		mu[i] = MEAN
	}
	prior, ok := distmv.NewNormal(mu, kernel.Matrix(k, knots, 1e-9), src)
	if !ok {
		return nil, fmt.Errorf("trend prior is not positive definite")
	}
	return lspline.New(knots, prior.Rand(nil))
}

func main() {
	flag.Parse()

	var knots []float64
	for _, field := range strings.Split(KNOTS, ",") {
		knot, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			panic(fmt.Errorf("knots: %v", err))
		}
		knots = append(knots, knot)
	}
	if SEED == 0 {
		SEED = uint64(time.Now().UTC().UnixNano())
	}
	if len(knots) < 2 {
		panic("at least two knots are required")
	}
	src := rand.NewPCG(SEED, SEED>>32)

	s, err := trend(knots, src)
	if err != nil {
		panic(err)
	}

	// Sampling times, irregularly spaced over the knots
	ts := make(chan float64, 1)
	go func() {
		defer close(ts)
		step := distuv.Exponential{
			Rate: 10 * float64(len(knots)-1) / (knots[len(knots)-1] - knots[0]),
			Src:  rand.NewPCG(SEED+1, SEED>>32),
		}
		t := knots[0]
		for i := 0; N == 0 || i != N; i++ {
			ts <- t
			t += step.Rand()
		}
	}()

	// Sampling proportions
	for t := range ts {
		mean := 1 / (1 + math.Exp(-s.At(t)))
		y := distuv.Beta{
			Alpha: mean * PHI,
			Beta:  (1 - mean) * PHI,
			Src:   src,
		}.Rand()
		fmt.Printf("%f,%f,1\n", t, y)
	}
}
