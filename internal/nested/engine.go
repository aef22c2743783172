// Package nested is the reference nested-sampling engine. It is a plain Go
// implementation of the engine contract: it honours every Settings field,
// writes the artifacts the flags ask for and resumes bit for bit from its own
// resume artifact. Replacement points come from a random-walk chain
// constrained to the current likelihood contour; modes are tracked by
// k-nearest-neighbour clustering of the live points.
//
// Importing the package registers the engine under sampler.ReferenceEngine.
package nested

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"chordrun/internal/common/fsutil"
	"chordrun/internal/sampler"
)

func init() { sampler.Register(Engine{}) }

// Engine is the reference engine. The zero value is ready to use.
type Engine struct{}

func (Engine) Name() string { return sampler.ReferenceEngine }

func (Engine) Available() error { return nil }

// Run executes one nested-sampling run. It returns ctx.Err() with an aborted
// result when the context is canceled; the resume artifact written at that
// point lets a run with ReadResume continue where this one stopped.
func (Engine) Run(ctx context.Context, job sampler.Job) (sampler.Result, error) {
	s := job.Settings
	dir, err := fsutil.ExpandHome(s.BaseDir)
	if err != nil {
		return sampler.Result{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sampler.Result{}, fmt.Errorf("create base dir: %w", err)
	}
	out := artifacts{dir: dir, root: s.FileRoot}
	st, pcg, resumed, err := loadOrInit(out.resume(), s)
	if err != nil {
		return sampler.Result{}, err
	}
	r := &run{
		job:   job,
		s:     s,
		st:    st,
		pcg:   pcg,
		rng:   rand.New(pcg),
		out:   out,
		log:   job.Log,
		boost: min(int(s.BoostPosterior), s.NumRepeats),
	}
	if resumed {
		job.Eval.Resume(st.NLike)
		r.log.Info().Int("ndead", st.NDead).Int64("nlike", st.NLike).
			Str("path", filepath.Base(out.resume())).Msg("resuming from artifact")
	}
	return r.execute(ctx)
}

// run holds the mutable state of one engine invocation. All fields are owned
// by the engine goroutine; only populate fans evaluations out.
type run struct {
	job   sampler.Job
	s     sampler.Settings
	st    *state
	pcg   *rand.PCG
	rng   *rand.Rand
	out   artifacts
	log   zerolog.Logger
	boost int
}

func (r *run) execute(ctx context.Context) (sampler.Result, error) {
	term, err := r.populate(ctx)
	if term == "" && err == nil {
		term, err = r.iterate(ctx)
	}
	files, werr := r.writeArtifacts(term)
	if err == nil {
		err = werr
	}
	res := r.result(term, files)
	r.job.ReportProgress(r.progress())
	return res, err
}

// result reports every callback invocation. st.NLike may be lower: it counts
// only the evaluations of completed iterations, which is what a resume replays.
func (r *run) result(term sampler.Termination, files []string) sampler.Result {
	post := r.posterior()
	return sampler.Result{
		Termination: term,
		LogZ:        post.logZ,
		LogZErr:     r.logZErr(),
		NDead:       r.st.NDead,
		NLike:       r.job.Eval.Calls(),
		NLive:       r.st.NLive,
		NClusters:   r.st.NClusters,
		Files:       files,
	}
}
