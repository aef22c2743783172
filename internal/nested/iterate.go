package nested

import (
	"context"
	"errors"
	"math"

	"golang.org/x/sync/errgroup"

	"chordrun/internal/sampler"
)

// minSpread keeps the random-walk step from collapsing to zero.
const minSpread = 1e-9

// populate evaluates every live slot that has not been evaluated yet.
// Evaluations fan out over Settings.Workers goroutines; each writes only its
// own slot. When the budget cannot cover all slots, only the first ones in
// slot order are evaluated so the outcome does not depend on scheduling.
func (r *run) populate(ctx context.Context) (sampler.Termination, error) {
	var todo []int
	for i := range r.st.Live {
		if !r.st.Live[i].Done {
			todo = append(todo, i)
		}
	}
	if len(todo) == 0 {
		return "", nil
	}
	capped := false
	if left := r.job.Eval.Remaining(); left >= 0 && int64(len(todo)) > left {
		todo = todo[:left]
		capped = true
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.s.Workers)
	for _, i := range todo {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			p, err := r.job.Eval.Eval(r.st.Live[i].Cube)
			if err != nil {
				return err
			}
			r.st.Live[i] = livePoint(p, r.st.Live[i].Cluster)
			return nil
		})
	}
	err := g.Wait()
	r.st.NLike = r.job.Eval.Calls()

	switch {
	case errors.Is(err, sampler.ErrBudgetExhausted):
		return sampler.TerminationMaxEvaluations, nil
	case err != nil:
		return sampler.TerminationAborted, err
	case ctx.Err() != nil:
		return sampler.TerminationAborted, ctx.Err()
	case capped:
		return sampler.TerminationMaxEvaluations, nil
	}
	r.recluster()
	r.log.Debug().Int("nlive", r.st.NLive).Int64("nlike", r.st.NLike).Msg("live points populated")
	return "", nil
}

// iterate runs the dead-point loop. Cancellation and termination criteria are
// checked only between iterations, so the state is always consistent when the
// loop exits.
func (r *run) iterate(ctx context.Context) (sampler.Termination, error) {
	st := r.st
	shell := log1mExp(1 / float64(st.NLive))
	for {
		if err := ctx.Err(); err != nil {
			return sampler.TerminationAborted, err
		}
		if r.noSupport() {
			r.log.Warn().Int("nlive", st.NLive).Int64("nlike", r.job.Eval.Calls()).
				Msg("likelihood rejected every live point")
			return sampler.TerminationNoSupport, nil
		}
		if st.NDead > 0 && r.converged() {
			return sampler.TerminationConverged, nil
		}
		if r.s.MaxNDead > 0 && st.NDead >= r.s.MaxNDead {
			return sampler.TerminationMaxEvaluations, nil
		}

		mark, err := r.pcg.MarshalBinary()
		if err != nil {
			return sampler.TerminationAborted, err
		}
		worst := r.lowest()
		seed := r.chooseSeed(worst)
		label := st.Live[seed].Cluster
		repl, extras, err := r.chain(st.Live[worst].LogL, seed)
		if err != nil {
			// Roll the random source back so the saved state matches the last
			// completed iteration.
			if uerr := r.pcg.UnmarshalBinary(mark); uerr != nil {
				return sampler.TerminationAborted, uerr
			}
			if errors.Is(err, sampler.ErrBudgetExhausted) {
				return sampler.TerminationMaxEvaluations, nil
			}
			return sampler.TerminationAborted, err
		}
		for i := range extras {
			extras[i].Cluster = r.labelFor(extras[i].Cube, worst, label)
		}
		r.kill(worst, shell, extras)
		repl.Cluster = r.labelFor(repl.Cube, worst, label)
		st.Live[worst] = repl
		st.NLike = r.job.Eval.Calls()

		if r.s.Feedback >= 3 {
			r.log.Debug().Int("ndead", st.NDead).Float64("logl", st.Dead[len(st.Dead)-1].LogL).
				Float64("log_z", st.LogZ).Msg("iteration")
		}
		if r.s.DoClustering && st.NDead%st.NLive == 0 {
			r.recluster()
		}
		if r.s.UpdateFiles > 0 && st.NDead%r.s.UpdateFiles == 0 {
			if _, err := r.writeArtifacts(""); err != nil {
				return sampler.TerminationAborted, err
			}
			p := r.progress()
			if r.s.Feedback >= 2 {
				r.log.Info().Int("ndead", p.NDead).Int64("nlike", p.NLike).Float64("log_z", p.LogZ).
					Float64("log_z_live", p.LogZLive).Int("nclusters", p.NClusters).Msg("update")
			}
			r.job.ReportProgress(p)
		}
	}
}

// kill moves live point i to the dead set and updates evidence, information
// and prior volume (Skilling's recurrences).
func (r *run) kill(i int, shell float64, extras []point) {
	st := r.st
	d := st.Live[i]
	logW := st.LogX + shell
	logZ := logAddExp(st.LogZ, logW+d.LogL)
	if math.IsInf(st.LogZ, -1) {
		st.H = math.Exp(logW+d.LogL-logZ)*d.LogL - logZ
	} else {
		st.H = math.Exp(logW+d.LogL-logZ)*d.LogL + math.Exp(st.LogZ-logZ)*(st.H+st.LogZ) - logZ
	}
	st.LogZ = logZ
	st.LogX -= 1 / float64(st.NLive)
	st.NDead++
	st.Dead = append(st.Dead, clonePoint(d))

	share := logW - math.Log(float64(len(extras)+1))
	st.Samples = append(st.Samples, sampleOf(d, share))
	for _, e := range extras {
		st.Samples = append(st.Samples, sampleOf(e, share))
	}
}

// chain walks num_repeats constrained random-walk steps from live point seed.
// It returns the final position and, when boosting, up to r.boost earlier
// accepted positions as extra posterior samples.
func (r *run) chain(threshold float64, seed int) (point, []point, error) {
	cur := r.st.Live[seed]
	sigma := r.spread(cur.Cluster)
	var accepted []point
	prop := make([]float64, r.st.NDims)
	for step := 0; step < r.s.NumRepeats; step++ {
		inside := true
		for d := range prop {
			prop[d] = cur.Cube[d] + sigma[d]*r.rng.NormFloat64()
			if prop[d] < 0 || prop[d] > 1 {
				inside = false
			}
		}
		if !inside {
			continue
		}
		p, err := r.job.Eval.Eval(prop)
		if err != nil {
			return point{}, nil, err
		}
		if p.LogL > threshold {
			cur = livePoint(p, 0)
			accepted = append(accepted, cur)
		}
	}
	var extras []point
	if r.boost > 0 && len(accepted) > 1 {
		extras = accepted[:len(accepted)-1]
		if len(extras) > r.boost {
			extras = extras[len(extras)-r.boost:]
		}
	}
	return clonePoint(cur), extras, nil
}

// spread is the per-dimension standard deviation of the live points of
// cluster label in the unit hypercube, used as the random-walk step. Clusters
// too small to estimate it fall back to the whole live set.
func (r *run) spread(label int) []float64 {
	st := r.st
	members := st.Live
	if r.s.DoClustering {
		var own []point
		for _, p := range st.Live {
			if p.Cluster == label {
				own = append(own, p)
			}
		}
		if len(own) > st.NDims {
			members = own
		}
	}
	n := float64(len(members))
	out := make([]float64, st.NDims)
	for d := range out {
		var mean, sq float64
		for _, p := range members {
			mean += p.Cube[d]
		}
		mean /= n
		for _, p := range members {
			diff := p.Cube[d] - mean
			sq += diff * diff
		}
		out[d] = max(math.Sqrt(sq/n), minSpread)
	}
	return out
}

// labelFor returns the cluster of the live point nearest to cube, ignoring
// slot skip. A chain can cross into another mode, so the seed's label is only
// kept when clustering is off.
func (r *run) labelFor(cube []float64, skip, seedLabel int) int {
	if !r.s.DoClustering {
		return seedLabel
	}
	best, bestD := -1, 0.0
	for i, p := range r.st.Live {
		if i == skip {
			continue
		}
		if d := sqDist(p.Cube, cube); best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return seedLabel
	}
	return r.st.Live[best].Cluster
}

// lowest returns the live point with the smallest log-likelihood (lowest index on ties).
func (r *run) lowest() int {
	worst := 0
	for i, p := range r.st.Live {
		if p.LogL < r.st.Live[worst].LogL {
			worst = i
		}
	}
	return worst
}

// chooseSeed picks a surviving live point uniformly at random.
func (r *run) chooseSeed(worst int) int {
	n := len(r.st.Live)
	if n == 1 {
		return worst
	}
	j := r.rng.IntN(n - 1)
	if j >= worst {
		j++
	}
	return j
}

// logZLive is the evidence still held by the live points.
func (r *run) logZLive() float64 {
	st := r.st
	live := r.evaluated()
	ls := make([]float64, len(live))
	for i, p := range live {
		ls[i] = p.LogL
	}
	return logSumExp(ls) + st.LogX - math.Log(float64(st.NLive))
}

// noSupport reports whether every evaluated live point sits at LogZero. The
// contour can then never rise and the run would not converge.
func (r *run) noSupport() bool {
	live := r.evaluated()
	if len(live) == 0 {
		return false
	}
	for _, p := range live {
		if p.LogL > sampler.LogZero {
			return false
		}
	}
	return true
}

func (r *run) converged() bool {
	return r.logZLive()-r.st.LogZ < math.Log(r.s.PrecisionCriterion)
}

func (r *run) logZErr() float64 {
	return math.Sqrt(max(r.st.H, 0) / float64(r.st.NLive))
}

// recluster relabels the live points. Labels carry over from the previous
// epoch (see carryLabels). Without clustering everything is cluster 1.
func (r *run) recluster() {
	st := r.st
	if !r.s.DoClustering {
		return
	}
	cubes := make([][]float64, len(st.Live))
	prev := make([]int, len(st.Live))
	for i, p := range st.Live {
		cubes[i] = p.Cube
		prev[i] = p.Cluster
	}
	comp, n := clusterLabels(cubes, st.NDims+1)
	labels := carryLabels(prev, comp, n, &st.NextLabel)
	for i := range st.Live {
		st.Live[i].Cluster = labels[i]
	}
	st.NClusters = n
}

func (r *run) progress() sampler.Progress {
	return sampler.Progress{
		NDead:     r.st.NDead,
		NLike:     r.job.Eval.Calls(),
		LogZ:      r.posterior().logZ,
		LogZLive:  r.logZLive(),
		NClusters: r.st.NClusters,
	}
}
