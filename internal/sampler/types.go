package sampler

import "time"

// State is the lifecycle state of a Runner.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
	StateError   State = "error"
)

// Termination records why an engine stopped.
type Termination string

const (
	// TerminationConverged: the remaining live evidence fell below PrecisionCriterion.
	TerminationConverged Termination = "converged"
	// TerminationMaxEvaluations: MaxNDead evaluations or dead points were reached.
	TerminationMaxEvaluations Termination = "max_evaluations_reached"
	// TerminationNoSupport: the likelihood rejected every live point, so the
	// contour could never rise.
	TerminationNoSupport Termination = "no_support"
	// TerminationAborted: the context was canceled or the callback failed.
	TerminationAborted Termination = "aborted"
	// TerminationReturned: an opaque engine returned without saying why.
	TerminationReturned Termination = "returned"
)

// Result summarizes a finished run. Engines that cannot observe a value leave
// it zero.
type Result struct {
	RunID       string
	Engine      string
	Termination Termination
	LogZ        float64
	LogZErr     float64
	NDead       int
	NLike       int64
	NLive       int
	NClusters   int
	// Files lists the artifacts written on termination.
	Files    []string
	Duration time.Duration
}

// Progress is reported by engines each time they refresh their artifacts.
type Progress struct {
	NDead     int
	NLike     int64
	LogZ      float64
	LogZLive  float64
	NClusters int
}
