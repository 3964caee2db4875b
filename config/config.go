// Package config reads the description of a trend model from YAML
// and builds the posterior engine for it.
package config

import (
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"bitbucket.org/dtolpin/betaspline/beta"
	"bitbucket.org/dtolpin/betaspline/kernel"
	"bitbucket.org/dtolpin/betaspline/mvn"
	"bitbucket.org/dtolpin/betaspline/posterior"
	"bitbucket.org/dtolpin/betaspline/priors"
)

// Shape transform kinds.
const (
	FixedPrecision = "fixed-precision"
	MeanPrecision  = "mean-precision"
)

// Kernel kinds.
const (
	Matern52   = "matern52"
	SquaredExp = "squared-exp"
	Seasonal   = "seasonal"
)

// Config is the model description.
type Config struct {
	// Knots are the knot positions, the initial positions if the
	// knots are free.
	Knots     []float64    `yaml:"knots"`
	FreeKnots bool         `yaml:"free_knots"`
	Inclusive bool         `yaml:"inclusive"`
	Shape     ShapeConfig  `yaml:"shape"`
	Prior     *PriorConfig `yaml:"prior"`
	Hyper     *HyperConfig `yaml:"hyper"`
}

// ShapeConfig selects the shape transform.
type ShapeConfig struct {
	Kind  string  `yaml:"kind"`
	Phi   float64 `yaml:"phi"`
	Logit bool    `yaml:"logit"`
}

// PriorConfig is the prior over the parameters at Index, by default
// the spline coefficients. The matrix is given either explicitly as
// Matrix, a covariance or, with Precision, a precision matrix, or
// as a kernel over the knots.
type PriorConfig struct {
	Mean      []float64     `yaml:"mean"`
	Matrix    [][]float64   `yaml:"matrix"`
	Precision bool          `yaml:"precision"`
	Kernel    *KernelConfig `yaml:"kernel"`
	Index     []int         `yaml:"index"`
}

// KernelConfig is a kernel covariance over the knots.
type KernelConfig struct {
	Kind              string  `yaml:"kind"`
	Variance          float64 `yaml:"variance"`
	LengthScale       float64 `yaml:"length_scale"`
	SeasonVariance    float64 `yaml:"season_variance"`
	SeasonLengthScale float64 `yaml:"season_length_scale"`
	Period            float64 `yaml:"period"`
	Jitter            float64 `yaml:"jitter"`
}

// HyperConfig is the normal prior of the shape parameters.
type HyperConfig struct {
	Mu    float64 `yaml:"mu"`
	Sigma float64 `yaml:"sigma"`
}

// Load reads the model description from r.
func Load(r io.Reader) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads the model description from the file at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks the parts of the description the engine does not
// check itself.
func (c *Config) Validate() error {
	switch c.Shape.Kind {
	case FixedPrecision:
		if !(c.Shape.Phi > 0) {
			return fmt.Errorf("config: shape: phi must be positive, got %g", c.Shape.Phi)
		}
	case MeanPrecision:
	default:
		return fmt.Errorf("config: shape: unknown kind %q", c.Shape.Kind)
	}
	if c.Hyper != nil && !(c.Hyper.Sigma > 0) {
		return fmt.Errorf("config: hyper: sigma must be positive, got %g", c.Hyper.Sigma)
	}
	if p := c.Prior; p != nil {
		if (p.Matrix == nil) == (p.Kernel == nil) {
			return fmt.Errorf("config: prior: exactly one of matrix and kernel is required")
		}
		if p.Kernel != nil && p.Precision {
			return fmt.Errorf("config: prior: kernel gives a covariance, not a precision")
		}
		for i, row := range p.Matrix {
			if len(row) != len(p.Matrix) {
				return fmt.Errorf("config: prior: matrix row %d has %d entries, want %d",
					i, len(row), len(p.Matrix))
			}
			for j := range row[:i] {
				if row[j] != p.Matrix[j][i] {
					return fmt.Errorf("config: prior: matrix is not symmetric at (%d, %d)", i, j)
				}
			}
		}
	}
	return nil
}

// ShapeTransform returns the shape transform.
func (c *Config) ShapeTransform() posterior.ShapeTransform {
	if c.Shape.Kind == FixedPrecision {
		return posterior.FixedPrecision{Phi: c.Shape.Phi}
	}
	return posterior.MeanPrecision{Logit: c.Shape.Logit}
}

// Matrix returns the prior matrix, or nil if there is no prior.
func (c *Config) Matrix() (*mat.SymDense, error) {
	p := c.Prior
	if p == nil {
		return nil, nil
	}
	if p.Matrix != nil {
		n := len(p.Matrix)
		if n == 0 {
			return nil, fmt.Errorf("config: prior: empty matrix")
		}
		m := mat.NewSymDense(n, nil)
		for i := 0; i != n; i++ {
			for j := i; j != n; j++ {
				m.SetSym(i, j, p.Matrix[i][j])
			}
		}
		return m, nil
	}

	k := p.Kernel
	var kern kernel.Kernel
	switch k.Kind {
	case Matern52:
		kern = kernel.Matern52{Variance: k.Variance, LengthScale: k.LengthScale}
	case SquaredExp:
		kern = kernel.SquaredExp{Variance: k.Variance, LengthScale: k.LengthScale}
	case Seasonal:
		kern = kernel.Seasonal{
			Variance:          k.Variance,
			LengthScale:       k.LengthScale,
			SeasonVariance:    k.SeasonVariance,
			SeasonLengthScale: k.SeasonLengthScale,
			Period:            k.Period,
		}
	default:
		return nil, fmt.Errorf("config: prior: unknown kernel %q", k.Kind)
	}
	if len(c.Knots) == 0 {
		return nil, fmt.Errorf("config: prior: kernel without knots")
	}
	return kernel.Matrix(kern, c.Knots, k.Jitter), nil
}

// Engine builds the engine for the observations.
func (c *Config) Engine(obs []posterior.Observation) (*posterior.Engine, error) {
	shape := c.ShapeTransform()
	pc := posterior.Config{
		Knots:        c.Knots,
		FreeKnots:    c.FreeKnots,
		Observations: obs,
		Shape:        shape,
		Density:      beta.Density{Inclusive: c.Inclusive},
	}
	if c.Prior != nil {
		m, err := c.Matrix()
		if err != nil {
			return nil, err
		}
		mean := c.Prior.Mean
		if mean == nil {
			// centered on zero
			mean = make([]float64, m.SymmetricDim())
		}
		pc.Prior = &mvn.Prior{Mean: mean, Matrix: m, Precision: c.Prior.Precision}
		pc.PriorIndex = c.Prior.Index
	}
	if c.Hyper != nil && shape.NTheta() > 0 {
		if shape.NTheta() == 1 {
			pc.Hyper = &priors.LogPrecision{Mu: c.Hyper.Mu, Sigma: c.Hyper.Sigma}
		} else {
			pc.Hyper = &priors.IID{N: shape.NTheta(), Mu: c.Hyper.Mu, Sigma: c.Hyper.Sigma}
		}
	}
	return posterior.New(pc)
}

// Initial returns the initial point for coefficients coefs: the
// knots from the description if free, and the shape parameters at
// the hyperprior mean, or at log 10 without a hyperprior.
func (c *Config) Initial(coefs []float64) []float64 {
	x := append([]float64(nil), coefs...)
	if c.FreeKnots {
		x = append(x, c.Knots...)
	}
	for i := 0; i != c.ShapeTransform().NTheta(); i++ {
		if c.Hyper != nil {
			x = append(x, c.Hyper.Mu)
		} else {
			x = append(x, math.Log(10))
		}
	}
	return x
}
