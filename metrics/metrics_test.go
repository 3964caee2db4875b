package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"bitbucket.org/dtolpin/betaspline/posterior"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe(-3.5, true, nil)
	m.Observe(-2, false, nil)
	m.Observe(0, true, &posterior.AggregationError{
		Term: posterior.TermPrior, Index: -1, Err: errors.New("boom")})
	m.Observe(0, false, &posterior.LayoutError{Want: 3, Got: 2})

	assert.Equal(t, 4., testutil.ToFloat64(m.Evaluations))
	assert.Equal(t, 2., testutil.ToFloat64(m.Gradients))
	assert.Equal(t, -2., testutil.ToFloat64(m.LogPosterior))
	assert.Equal(t, 1., testutil.ToFloat64(m.Infeasible.WithLabelValues("prior")))
	assert.Equal(t, 1., testutil.ToFloat64(m.Infeasible.WithLabelValues("layout")))

	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestNil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.Observe(1, true, errors.New("x")) })
}

func TestTermOf(t *testing.T) {
	for _, c := range []struct {
		err  error
		want string
	}{
		{&posterior.AggregationError{Term: posterior.TermObservation, Index: 2,
			Err: errors.New("x")}, "observation"},
		{&posterior.AggregationError{Term: posterior.TermSpline, Index: -1,
			Err: errors.New("x")}, "spline"},
		{posterior.ErrNotDifferentiable, "other"},
	} {
		assert.Equal(t, c.want, TermOf(c.err))
	}
}
