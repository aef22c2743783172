package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RunnerConfig encapsulates all tunables for Runner construction.
type RunnerConfig struct {
	// Engine selects a registered engine. Empty means DefaultEngine.
	Engine string
	// Prior maps hypercube points to physical coordinates. Nil means identity.
	Prior Prior
	// Logger receives run lifecycle logs. Nil means no logging.
	Logger *zerolog.Logger
	// Publisher receives lifecycle events. Nil drops them.
	Publisher EventPublisher
}

// Runner executes runs on one engine, one run at a time.
type Runner struct {
	mu        sync.RWMutex
	engine    Engine
	prior     Prior
	log       zerolog.Logger
	pub       EventPublisher
	startTime time.Time

	state    State
	runID    string
	settings Settings
	progress Progress
	last     Result
	started  time.Time
	err      string
}

// NewRunner resolves the engine and checks that it can run. Linkage problems
// surface here, before any callback is involved.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	name := cfg.Engine
	if name == "" {
		name = DefaultEngine
	}
	eng, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := eng.Available(); err != nil {
		return nil, err
	}
	r := &Runner{
		engine:    eng,
		prior:     cfg.Prior,
		log:       zerolog.Nop(),
		pub:       noopPublisher{},
		startTime: time.Now(),
		state:     StateIdle,
	}
	if cfg.Logger != nil {
		r.log = cfg.Logger.With().Str("engine", eng.Name()).Logger()
	}
	if cfg.Publisher != nil {
		r.pub = cfg.Publisher
	}
	return r, nil
}

// SetEventPublisher replaces the event publisher. Nil restores the no-op publisher.
func (r *Runner) SetEventPublisher(p EventPublisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == nil {
		r.pub = noopPublisher{}
		return
	}
	r.pub = p
}

// Engine returns the name of the engine this runner drives.
func (r *Runner) Engine() string { return r.engine.Name() }

// Run forwards like and s to the engine and blocks until it terminates.
//
// Settings are validated before the engine is involved; a configuration error
// guarantees the callback was never invoked. On return the artifacts enabled in
// s exist under s.BaseDir. Cancellation of ctx is honoured by engines that can
// be interrupted (the reference engine stops at the next iteration boundary and
// keeps its resume artifact); the native engine only checks ctx before starting.
func (r *Runner) Run(ctx context.Context, like Likelihood, s Settings) (Result, error) {
	if like == nil {
		return Result{}, ErrConfig("likelihood", "callback is nil")
	}
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	if err := r.engine.Available(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	runID, err := r.begin(s)
	if err != nil {
		return Result{}, err
	}
	log := r.log.With().Str("run_id", runID).Logger()
	if s.Feedback == 0 {
		log = log.Level(zerolog.WarnLevel)
	}
	eval := newEvaluator(like, r.prior, s, r.engine.Name())
	job := Job{
		RunID:    runID,
		Settings: s,
		Eval:     eval,
		Log:      log,
		Progress: func(p Progress) { r.report(runID, p) },
	}

	r.publish(Event{Name: EventRunStart, RunID: runID, Fields: map[string]any{
		"ndims": s.NDims, "nderived": s.NDerived, "nlive": s.NLive,
	}})
	log.Info().Int("ndims", s.NDims).Int("nderived", s.NDerived).Int("nlive", s.NLive).
		Int("num_repeats", s.NumRepeats).Str("base_dir", s.BaseDir).Str("file_root", s.FileRoot).
		Msg("run start")

	start := time.Now()
	res, err := r.runEngine(ctx, job)
	if err == nil {
		err = eval.Err()
	}
	res.RunID = runID
	res.Engine = r.engine.Name()
	res.Duration = time.Since(start)
	if res.NLike == 0 {
		res.NLike = eval.Calls()
	}
	observeRun(res.Engine, res.Termination, res.Duration.Seconds())
	r.finish(res, err)

	if err != nil {
		r.publish(Event{Name: EventRunError, RunID: runID, Fields: map[string]any{"error": err.Error()}})
		log.Error().Err(err).Str("termination", string(res.Termination)).Dur("dur", res.Duration).Msg("run failed")
		return res, err
	}
	r.publish(Event{Name: EventRunDone, RunID: runID, Fields: map[string]any{
		"termination": string(res.Termination), "ndead": res.NDead, "nlike": res.NLike, "log_z": res.LogZ,
	}})
	log.Info().Str("termination", string(res.Termination)).Float64("log_z", res.LogZ).
		Float64("log_z_err", res.LogZErr).Int("ndead", res.NDead).Int64("nlike", res.NLike).
		Int("nclusters", res.NClusters).Dur("dur", res.Duration).Msg("run done")
	return res, nil
}

// runEngine calls the engine and turns a panic raised outside the callback
// into an error, so a faulty engine cannot leave the runner in StateRunning.
func (r *Runner) runEngine(ctx context.Context, job Job) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Termination: TerminationAborted}
			err = fmt.Errorf("engine %s panicked: %v", r.engine.Name(), p)
		}
	}()
	return r.engine.Run(ctx, job)
}

// Run executes one run on a fresh Runner using the default engine.
func Run(ctx context.Context, like Likelihood, s Settings) (Result, error) {
	r, err := NewRunner(RunnerConfig{})
	if err != nil {
		return Result{}, err
	}
	return r.Run(ctx, like, s)
}

// begin moves the runner into StateRunning, or reports it busy.
func (r *Runner) begin(s Settings) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRunning {
		return "", busyError{runID: r.runID}
	}
	r.state = StateRunning
	r.runID = uuid.NewString()
	r.settings = s
	r.progress = Progress{}
	r.last = Result{}
	r.started = time.Now()
	r.err = ""
	return r.runID, nil
}

func (r *Runner) finish(res Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = res
	r.progress.NDead = res.NDead
	r.progress.NLike = res.NLike
	r.progress.NClusters = res.NClusters
	if res.LogZ != 0 {
		r.progress.LogZ = res.LogZ
	}
	if err != nil {
		r.state = StateError
		r.err = err.Error()
		return
	}
	r.state = StateDone
}

func (r *Runner) report(runID string, p Progress) {
	observeProgress(p)
	r.mu.Lock()
	r.progress = p
	r.mu.Unlock()
	r.publish(Event{Name: EventRunUpdate, RunID: runID, Fields: map[string]any{
		"ndead": p.NDead, "nlike": p.NLike, "log_z": p.LogZ, "log_z_live": p.LogZLive, "nclusters": p.NClusters,
	}})
}

func (r *Runner) publish(e Event) {
	r.mu.RLock()
	pub := r.pub
	r.mu.RUnlock()
	pub.Publish(e)
}
