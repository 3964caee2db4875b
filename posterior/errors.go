package posterior

import (
	"errors"
	"fmt"
)

// Term identifies the part of the log-posterior an error comes from.
type Term int

const (
	TermObservation Term = iota
	TermSpline
	TermShape
	TermPrior
	TermHyper
)

func (t Term) String() string {
	switch t {
	case TermObservation:
		return "observation"
	case TermSpline:
		return "spline"
	case TermShape:
		return "shape"
	case TermPrior:
		return "prior"
	case TermHyper:
		return "hyperprior"
	}
	return fmt.Sprintf("term(%d)", int(t))
}

var (
	// ErrNaN is wrapped by an AggregationError when a term evaluates
	// to NaN.
	ErrNaN = errors.New("posterior: NaN contribution")
	// ErrNotDifferentiable is returned for gradient requests when the
	// shape transform has no derivatives.
	ErrNotDifferentiable = errors.New("posterior: shape transform is not differentiable")
	// ErrNoShape is returned by New without a shape transform.
	ErrNoShape = errors.New("posterior: no shape transform")
)

// AggregationError is the failure of a single term of the
// log-posterior. Index is the observation index for observation and
// shape terms, and -1 otherwise. Err is the underlying error,
// reachable through errors.As.
type AggregationError struct {
	Term  Term
	Index int
	Err   error
}

func (e *AggregationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("posterior: %s %d: %v", e.Term, e.Index, e.Err)
	}
	return fmt.Sprintf("posterior: %s: %v", e.Term, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

// LayoutError reports a parameter vector of the wrong length.
type LayoutError struct {
	Want, Got int
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("posterior: parameter vector has length %d, want %d",
		e.Got, e.Want)
}

// ObservationError reports an invalid observation record.
type ObservationError struct {
	Index  int
	Reason string
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("posterior: observation %d: %s", e.Index, e.Reason)
}
