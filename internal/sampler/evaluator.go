package sampler

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Point is one evaluated location: the hypercube coordinates the engine asked
// for, the physical coordinates the callback saw, and the callback's outputs.
type Point struct {
	Cube    []float64
	Theta   []float64
	Derived []float64
	LogL    float64
}

// Evaluator is the only path from an engine to the user's Likelihood. It
// enforces buffer sizes, the MaxNDead evaluation budget, maps non-finite
// results to LogZero and turns callback panics into errors.
//
// Eval is safe for concurrent use.
type Evaluator struct {
	like     Likelihood
	prior    Prior
	nDims    int
	nDerived int
	budget   int64
	engine   string

	calls    atomic.Int64
	rejected atomic.Int64

	mu      sync.Mutex
	failure error
}

func newEvaluator(like Likelihood, prior Prior, s Settings, engine string) *Evaluator {
	if prior == nil {
		prior = IdentityPrior
	}
	return &Evaluator{
		like:     like,
		prior:    prior,
		nDims:    s.NDims,
		nDerived: s.NDerived,
		budget:   int64(s.MaxNDead),
		engine:   engine,
	}
}

// Eval evaluates the likelihood at a hypercube point. The returned Point owns
// fresh slices; cube is not retained.
func (e *Evaluator) Eval(cube []float64) (Point, error) {
	if len(cube) != e.nDims {
		return Point{}, fmt.Errorf("point has %d coordinates, want %d", len(cube), e.nDims)
	}
	if err := e.Err(); err != nil {
		return Point{}, err
	}
	n := e.calls.Add(1)
	if e.budget > 0 && n > e.budget {
		e.calls.Add(-1)
		rejectedPoints.WithLabelValues(e.engine, "budget").Inc()
		return Point{}, ErrBudgetExhausted
	}
	p := Point{
		Cube:    append([]float64(nil), cube...),
		Theta:   make([]float64, e.nDims),
		Derived: make([]float64, e.nDerived),
	}
	e.prior(p.Cube, p.Theta)
	arg := append([]float64(nil), p.Theta...)
	logL, err := e.call(arg, p.Derived)
	likelihoodCalls.WithLabelValues(e.engine).Inc()
	if err != nil {
		return Point{}, err
	}
	if math.IsNaN(logL) || math.IsInf(logL, 0) {
		e.rejected.Add(1)
		rejectedPoints.WithLabelValues(e.engine, "non_finite").Inc()
		logL = LogZero
	}
	p.LogL = logL
	return p, nil
}

func (e *Evaluator) call(theta, derived []float64) (logL float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = callbackError{cause: r}
			e.fail(err)
		}
	}()
	return e.like(theta, derived), nil
}

func (e *Evaluator) fail(err error) {
	e.mu.Lock()
	if e.failure == nil {
		e.failure = err
	}
	e.mu.Unlock()
}

// Err returns the first callback failure, if any.
func (e *Evaluator) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failure
}

// Calls returns the number of callback invocations charged to this run,
// including those restored with Resume.
func (e *Evaluator) Calls() int64 { return e.calls.Load() }

// Rejected returns how many evaluations produced a non-finite log-likelihood.
func (e *Evaluator) Rejected() int64 { return e.rejected.Load() }

// Remaining returns the evaluations left in the budget, or -1 when unbounded.
func (e *Evaluator) Remaining() int64 {
	if e.budget <= 0 {
		return -1
	}
	if left := e.budget - e.calls.Load(); left > 0 {
		return left
	}
	return 0
}

// Resume charges n evaluations made by an earlier, interrupted run so the
// budget spans the whole logical run.
func (e *Evaluator) Resume(n int64) { e.calls.Store(n) }

// NDims returns the dimensionality every point must have.
func (e *Evaluator) NDims() int { return e.nDims }

// NDerived returns the number of derived outputs per point.
func (e *Evaluator) NDerived() int { return e.nDerived }
