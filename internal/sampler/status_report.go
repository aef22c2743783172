package sampler

import (
	"time"

	"chordrun/pkg/types"
)

// Snapshot is a read-only projection of the runner state.
type Snapshot struct {
	State    State
	RunID    string
	Progress Progress
	Last     Result
	Err      string
}

// Snapshot returns a read-only view of the runner state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{State: r.state, RunID: r.runID, Progress: r.progress, Last: r.last, Err: r.err}
}

// Ready reports whether the runner is healthy: idle, running or finished
// without error.
func (r *Runner) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state != StateError
}

// Status builds a detailed status response for /status.
func (r *Runner) Status() types.RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	resp := types.RunStatus{
		RunID:          r.runID,
		Engine:         r.engine.Name(),
		State:          string(r.state),
		Termination:    string(r.last.Termination),
		NDims:          r.settings.NDims,
		NDerived:       r.settings.NDerived,
		NLive:          r.settings.NLive,
		NDead:          r.progress.NDead,
		NLike:          r.progress.NLike,
		LogZ:           FiniteLog(r.progress.LogZ),
		LogZLive:       FiniteLog(r.progress.LogZLive),
		LogZErr:        FiniteLog(r.last.LogZErr),
		NClusters:      r.progress.NClusters,
		LastError:      r.err,
		UptimeSeconds:  int64(now.Sub(r.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	if !r.started.IsZero() {
		resp.StartedUnix = r.started.Unix()
	}
	return resp
}
