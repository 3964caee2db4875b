// Package posterior combines the building blocks into the
// log-posterior of a trend model: Beta likelihoods of observed
// proportions around a linear spline trend, weighted per
// observation, plus a multivariate normal prior on the parameters.
//
// The parameter vector is laid out as the spline coefficients, then
// the knot positions if the knots are free, then the parameters of
// the shape transform.
package posterior

import (
	"math"

	"bitbucket.org/dtolpin/betaspline/beta"
	"bitbucket.org/dtolpin/betaspline/lspline"
	"bitbucket.org/dtolpin/betaspline/mvn"
	"bitbucket.org/dtolpin/betaspline/priors"
	"gonum.org/v1/gonum/mat"
)

// Observation is an observed proportion Y at time T with weight W.
type Observation struct {
	T, Y, W float64
}

// Layout is the partition of the parameter vector.
type Layout struct {
	NCoefs    int
	FreeKnots bool
	NShape    int
}

// Len returns the length of the parameter vector.
func (l Layout) Len() int {
	n := l.NCoefs + l.NShape
	if l.FreeKnots {
		n += l.NCoefs
	}
	return n
}

// Coefs returns the spline coefficients of x.
func (l Layout) Coefs(x []float64) []float64 {
	return x[:l.NCoefs]
}

// Knots returns the knot positions of x, or nil if the knots are
// fixed.
func (l Layout) Knots(x []float64) []float64 {
	if !l.FreeKnots {
		return nil
	}
	return x[l.NCoefs : 2*l.NCoefs]
}

// ShapeOffset returns the index of the first shape parameter.
func (l Layout) ShapeOffset() int {
	if l.FreeKnots {
		return 2 * l.NCoefs
	}
	return l.NCoefs
}

// Shape returns the shape parameters of x.
func (l Layout) Shape(x []float64) []float64 {
	off := l.ShapeOffset()
	return x[off : off+l.NShape]
}

// Config configures an engine.
type Config struct {
	// Knots are the knot positions. With FreeKnots the positions
	// are parameters and Knots only fixes their number.
	Knots        []float64
	FreeKnots    bool
	Observations []Observation
	Shape        ShapeTransform
	// Prior is the optional multivariate normal prior over the
	// parameters at PriorIndex, by default the spline coefficients.
	Prior      *mvn.Prior
	PriorIndex []int
	// Hyper is the optional prior over the shape parameters.
	Hyper   priors.Priors
	Density beta.Density
}

// Engine evaluates the log-posterior. Apart from the factorization
// cache of the prior it holds no state between evaluations; the
// configuration is read-only and may be shared by clones evaluating
// in parallel.
type Engine struct {
	layout  Layout
	basis   *lspline.Basis
	rows    []lspline.Row // for fixed knots
	obs     []Observation
	shape   ShapeTransform
	deriv   ShapeDeriv
	prior   *mvn.Cache
	mean    []float64
	index   []int
	hyper   priors.Priors
	density beta.Density
}

// New validates the configuration and returns an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Shape == nil {
		return nil, ErrNoShape
	}
	e := &Engine{
		layout: Layout{
			NCoefs:    len(cfg.Knots),
			FreeKnots: cfg.FreeKnots,
			NShape:    cfg.Shape.NTheta(),
		},
		obs:     append([]Observation(nil), cfg.Observations...),
		shape:   cfg.Shape,
		hyper:   cfg.Hyper,
		density: cfg.Density,
	}
	e.deriv, _ = cfg.Shape.(ShapeDeriv)

	basis, err := lspline.NewBasis(cfg.Knots)
	if err != nil {
		return nil, &AggregationError{Term: TermSpline, Index: -1, Err: err}
	}
	if !cfg.FreeKnots {
		e.basis = basis
	}

	for i, o := range e.obs {
		switch {
		case math.IsNaN(o.T) || math.IsInf(o.T, 0):
			return nil, &ObservationError{Index: i, Reason: "time is not finite"}
		case !(o.W >= 0) || math.IsInf(o.W, 1):
			return nil, &ObservationError{Index: i, Reason: "weight is negative or not finite"}
		}
	}
	if e.basis != nil {
		e.rows = make([]lspline.Row, len(e.obs))
		for i, o := range e.obs {
			e.rows[i] = e.basis.Row(o.T)
		}
	}

	if cfg.Hyper != nil && cfg.Hyper.NTheta() != e.layout.NShape {
		return nil, &LayoutError{Want: e.layout.NShape, Got: cfg.Hyper.NTheta()}
	}

	if cfg.Prior != nil {
		if err := cfg.Prior.Validate(); err != nil {
			return nil, &AggregationError{Term: TermPrior, Index: -1, Err: err}
		}
		e.index = cfg.PriorIndex
		if e.index == nil {
			e.index = make([]int, e.layout.NCoefs)
			for i := range e.index {
				e.index[i] = i
			}
		} else {
			e.index = append([]int(nil), e.index...)
		}
		if len(e.index) != cfg.Prior.Dim() {
			return nil, &AggregationError{Term: TermPrior, Index: -1,
				Err: &mvn.DimensionError{What: "prior index",
					Want: cfg.Prior.Dim(), Got: len(e.index)}}
		}
		for _, j := range e.index {
			if j < 0 || j >= e.layout.Len() {
				return nil, &LayoutError{Want: e.layout.Len(), Got: j + 1}
			}
		}
		e.mean = append([]float64(nil), cfg.Prior.Mean...)
		e.prior = mvn.NewCache(*cfg.Prior)
	}
	return e, nil
}

// Layout returns the layout of the parameter vector.
func (e *Engine) Layout() Layout {
	return e.layout
}

// Differentiable reports whether the engine can compute gradients.
func (e *Engine) Differentiable() bool {
	return e.deriv != nil
}

// Clone returns an engine sharing the configuration with a cold
// factorization cache of its own.
func (e *Engine) Clone() *Engine {
	c := *e
	if e.prior != nil {
		c.prior = e.prior.Clone()
	}
	return &c
}

// InvalidatePrior marks the cached factorization of the prior
// matrix stale, after the matrix was modified in place.
func (e *Engine) InvalidatePrior() {
	if e.prior != nil {
		e.prior.Invalidate()
	}
}

// ResetPrior replaces the prior matrix, which must keep the
// dimension of the prior.
func (e *Engine) ResetPrior(matrix mat.Symmetric) {
	if e.prior != nil {
		e.prior.Reset(matrix)
	}
}

// LogPosterior returns the log-posterior at x.
func (e *Engine) LogPosterior(x []float64) (float64, error) {
	return e.eval(x, nil, nil)
}

// LogPosteriorGrad returns the log-posterior at x and stores its
// gradient in grad, which must have the length of x. On error, grad
// is zeroed.
func (e *Engine) LogPosteriorGrad(x, grad []float64) (float64, error) {
	for i := range grad {
		grad[i] = 0
	}
	if e.deriv == nil {
		return 0, ErrNotDifferentiable
	}
	if len(grad) != len(x) {
		return 0, &LayoutError{Want: len(x), Got: len(grad)}
	}
	lp, err := e.eval(x, grad, nil)
	if err != nil {
		for i := range grad {
			grad[i] = 0
		}
		return 0, err
	}
	return lp, nil
}

// Prediction is the predicted distribution of an observation.
type Prediction struct {
	Trend, Mean, Alpha, Beta float64
}

// Terms is the decomposition of the log-posterior.
type Terms struct {
	Predictions []Prediction
	// Observations are the weighted log-likelihood contributions;
	// zero-weight observations contribute 0.
	Observations []float64
	Prior        float64
	Hyper        float64
	Total        float64
}

// Terms returns the decomposition of the log-posterior at x.
func (e *Engine) Terms(x []float64) (*Terms, error) {
	t := &Terms{
		Predictions:  make([]Prediction, len(e.obs)),
		Observations: make([]float64, len(e.obs)),
	}
	total, err := e.eval(x, nil, t)
	if err != nil {
		return nil, err
	}
	t.Total = total
	return t, nil
}

func (e *Engine) eval(x, grad []float64, terms *Terms) (float64, error) {
	if len(x) != e.layout.Len() {
		return 0, &LayoutError{Want: e.layout.Len(), Got: len(x)}
	}
	coefs := e.layout.Coefs(x)
	theta := e.layout.Shape(x)

	basis, rows := e.basis, e.rows
	if basis == nil {
		var err error
		basis, err = lspline.NewBasis(e.layout.Knots(x))
		if err != nil {
			return 0, &AggregationError{Term: TermSpline, Index: -1, Err: err}
		}
	}

	if rows == nil {
		rows = make([]lspline.Row, len(e.obs))
		for i, o := range e.obs {
			rows[i] = basis.Row(o.T)
		}
	}

	// Predicted trend at every observation, then the likelihood.
	trend := make([]float64, len(e.obs))
	for i, r := range rows {
		trend[i] = r.Dot(coefs)
	}

	var dalpha, dbeta []float64
	if grad != nil {
		dalpha = make([]float64, 1+e.layout.NShape)
		dbeta = make([]float64, 1+e.layout.NShape)
	}
	ll := 0.
	for i, o := range e.obs {
		if o.W == 0 {
			if terms != nil {
				terms.Predictions[i] = e.predict(trend[i], theta)
			}
			continue
		}
		alpha, b, err := e.shape.Shape(trend[i], theta)
		if err != nil {
			return 0, &AggregationError{Term: TermShape, Index: i, Err: err}
		}
		lp, err := e.density.Logp(alpha, b, o.Y)
		if err != nil {
			return 0, &AggregationError{Term: TermObservation, Index: i, Err: err}
		}
		if math.IsNaN(lp) {
			return 0, &AggregationError{Term: TermObservation, Index: i, Err: ErrNaN}
		}
		ll += o.W * lp
		if math.IsNaN(ll) {
			// opposite infinities at the support boundaries
			return 0, &AggregationError{Term: TermObservation, Index: i, Err: ErrNaN}
		}
		if terms != nil {
			terms.Observations[i] = o.W * lp
			terms.Predictions[i] = Prediction{
				Trend: trend[i],
				Mean:  alpha / (alpha + b),
				Alpha: alpha,
				Beta:  b,
			}
		}
		if grad != nil {
			e.likelihoodGrad(x, grad, basis, rows[i], i, alpha, b, dalpha, dbeta)
		}
	}

	lprior := 0.
	if e.prior != nil {
		f, err := e.prior.Factor()
		if err != nil {
			return 0, &AggregationError{Term: TermPrior, Index: -1, Err: err}
		}
		xp := make([]float64, len(e.index))
		for k, j := range e.index {
			xp[k] = x[j]
		}
		var gp []float64
		if grad != nil {
			gp = make([]float64, len(e.index))
		}
		lprior, err = f.LogProbGrad(xp, e.mean, gp)
		if err != nil {
			return 0, &AggregationError{Term: TermPrior, Index: -1, Err: err}
		}
		if math.IsNaN(lprior) || math.IsNaN(ll+lprior) {
			return 0, &AggregationError{Term: TermPrior, Index: -1, Err: ErrNaN}
		}
		if grad != nil {
			for k, j := range e.index {
				grad[j] += gp[k]
			}
		}
	}

	lhyper := 0.
	if e.hyper != nil {
		var gh []float64
		if grad != nil {
			gh = grad[e.layout.ShapeOffset():]
		}
		lhyper = e.hyper.LogpGrad(theta, gh)
		if math.IsNaN(lhyper) || math.IsNaN(ll+lprior+lhyper) {
			return 0, &AggregationError{Term: TermHyper, Index: -1, Err: ErrNaN}
		}
	}

	if terms != nil {
		terms.Prior = lprior
		terms.Hyper = lhyper
	}
	return ll + lprior + lhyper, nil
}

// likelihoodGrad adds the gradient of the weighted log-likelihood
// of observation i.
func (e *Engine) likelihoodGrad(
	x, grad []float64,
	basis *lspline.Basis, r lspline.Row,
	i int, alpha, b float64,
	dalpha, dbeta []float64,
) {
	o := e.obs[i]
	theta := e.layout.Shape(x)
	coefs := e.layout.Coefs(x)
	e.deriv.ShapeGrad(r.Dot(coefs), theta, dalpha, dbeta)
	da, db := e.density.Gradient(alpha, b, o.Y)

	// d(w·logp)/dmu, through the spline row to the coefficients
	// and, for free knots, to the knot positions.
	dmu := o.W * (da*dalpha[0] + db*dbeta[0])
	grad[r.Lo] += dmu * r.W[0]
	if r.Lo+1 < e.layout.NCoefs {
		grad[r.Lo+1] += dmu * r.W[1]
	}
	if e.layout.FreeKnots {
		dlo, dhi := basis.KnotPartials(coefs, r)
		grad[e.layout.NCoefs+r.Lo] += dmu * dlo
		if r.Lo+1 < e.layout.NCoefs {
			grad[e.layout.NCoefs+r.Lo+1] += dmu * dhi
		}
	}

	off := e.layout.ShapeOffset()
	for j := 0; j != e.layout.NShape; j++ {
		grad[off+j] += o.W * (da*dalpha[1+j] + db*dbeta[1+j])
	}
}

// predict returns the prediction for a trend value, leaving the
// shape zero if the transform rejects the value.
func (e *Engine) predict(mu float64, theta []float64) Prediction {
	p := Prediction{Trend: mu}
	if alpha, b, err := e.shape.Shape(mu, theta); err == nil {
		p.Mean, p.Alpha, p.Beta = alpha/(alpha+b), alpha, b
	}
	return p
}
