package sampler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeEngine evaluates a fixed list of hypercube points through the
// evaluator and reports a canned result.
type fakeEngine struct {
	name     string
	availErr error
	points   [][]float64
	result   Result
	// block, when set, is waited on before returning.
	block chan struct{}
	// started is closed once Run is entered.
	started chan struct{}
	// panicFirst makes the first Run panic after evaluating its points.
	panicFirst bool

	runs    atomic.Int32
	mu      sync.Mutex
	lastJob Job
}

func (f *fakeEngine) Name() string     { return f.name }
func (f *fakeEngine) Available() error { return f.availErr }

func (f *fakeEngine) Run(ctx context.Context, job Job) (Result, error) {
	f.runs.Add(1)
	f.mu.Lock()
	f.lastJob = job
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	res := f.result
	for _, p := range f.points {
		if _, err := job.Eval.Eval(p); err != nil {
			res.Termination = TerminationAborted
			return res, err
		}
	}
	if f.panicFirst && f.runs.Load() == 1 {
		panic("engine bug")
	}
	job.ReportProgress(Progress{NDead: res.NDead, NLike: job.Eval.Calls(), LogZ: res.LogZ})
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			res.Termination = TerminationAborted
			return res, ctx.Err()
		}
	}
	return res, nil
}

func (f *fakeEngine) job() Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastJob
}

// newFakeRunner registers f and returns a runner bound to it.
func newFakeRunner(t *testing.T, f *fakeEngine, cfg RunnerConfig) *Runner {
	t.Helper()
	Register(f)
	cfg.Engine = f.name
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func validSettings(t *testing.T) Settings {
	s := DefaultSettings(2, 1)
	s.BaseDir = t.TempDir()
	return s
}
