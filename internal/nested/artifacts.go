package nested

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"chordrun/internal/common/fsutil"
	"chordrun/internal/sampler"
)

// artifacts names the files of one run: <dir>/<root><suffix>.
type artifacts struct {
	dir  string
	root string
}

func (a artifacts) path(suffix string) string { return filepath.Join(a.dir, a.root+suffix) }

func (a artifacts) paramnames() string { return a.path(".paramnames") }
func (a artifacts) dead() string       { return a.path("_dead.txt") }
func (a artifacts) live() string       { return a.path("_phys_live.txt") }
func (a artifacts) stats() string      { return a.path(".stats") }
func (a artifacts) posterior() string  { return a.path(".txt") }
func (a artifacts) equals() string     { return a.path("_equal_weights.txt") }
func (a artifacts) resume() string     { return a.path(".resume") }

func (a artifacts) clusterDir() string { return filepath.Join(a.dir, "clusters") }

func (a artifacts) cluster(label int) string {
	return filepath.Join(a.clusterDir(), fmt.Sprintf("%s_%d.txt", a.root, label))
}

// pruneClusters removes the cluster files of this root whose label is not in
// keep. Labels of split or emptied clusters never come back.
func (a artifacts) pruneClusters(keep []int) error {
	entries, err := os.ReadDir(a.clusterDir())
	if err != nil {
		return fmt.Errorf("list clusters dir: %w", err)
	}
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.Name(), a.root+"_")
		if !ok || e.IsDir() {
			continue
		}
		num, ok := strings.CutSuffix(rest, ".txt")
		if !ok {
			continue
		}
		label, err := strconv.Atoi(num)
		if err != nil || slices.Contains(keep, label) {
			continue
		}
		if err := os.Remove(filepath.Join(a.clusterDir(), e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale cluster file: %w", err)
		}
	}
	return nil
}

// weighted is one row of the posterior: a sample and its normalized weight.
type weighted struct {
	sample
	w float64
}

// posteriorSet is the posterior built from dead points, boosted chain points
// and the current live points.
type posteriorSet struct {
	rows []weighted
	logZ float64
}

// evaluated returns the live points whose initial evaluation is done.
func (r *run) evaluated() []point {
	out := make([]point, 0, len(r.st.Live))
	for _, p := range r.st.Live {
		if p.Done {
			out = append(out, p)
		}
	}
	return out
}

// activeLabels returns the sorted labels carried by the current live points.
func (r *run) activeLabels() []int {
	var out []int
	for _, p := range r.st.Live {
		if !slices.Contains(out, p.Cluster) {
			out = append(out, p.Cluster)
		}
	}
	slices.Sort(out)
	return out
}

func (r *run) posterior() posteriorSet {
	st := r.st
	live := r.evaluated()
	all := make([]sample, 0, len(st.Samples)+len(live))
	all = append(all, st.Samples...)
	liveW := st.LogX - math.Log(float64(st.NLive))
	for _, p := range live {
		all = append(all, sampleOf(p, liveW))
	}
	logs := make([]float64, len(all))
	for i, s := range all {
		logs[i] = s.LogW + s.LogL
	}
	logZ := logSumExp(logs)
	rows := make([]weighted, len(all))
	for i, s := range all {
		w := 0.0
		if !math.IsInf(logZ, -1) {
			w = math.Exp(logs[i] - logZ)
		}
		rows[i] = weighted{sample: s, w: w}
	}
	return posteriorSet{rows: rows, logZ: logZ}
}

// writeArtifacts writes every artifact enabled in Settings and returns the
// paths written. It runs on the engine goroutine only, so each path has a
// single writer.
func (r *run) writeArtifacts(term sampler.Termination) ([]string, error) {
	s := r.s
	var files []string
	write := func(path string, b []byte) error {
		if err := fsutil.WriteFileAtomic(path, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
		files = append(files, path)
		return nil
	}
	post := r.posterior()

	if s.WriteParamnames {
		if err := write(r.out.paramnames(), r.paramnamesFile()); err != nil {
			return files, err
		}
	}
	if s.WriteDead {
		if err := write(r.out.dead(), r.deadFile()); err != nil {
			return files, err
		}
	}
	if s.WriteLive {
		if err := write(r.out.live(), r.liveFile()); err != nil {
			return files, err
		}
	}
	if s.WriteStats {
		if err := write(r.out.stats(), r.statsFile(post, term)); err != nil {
			return files, err
		}
	}
	if s.Posteriors {
		if err := write(r.out.posterior(), chainFile(post.rows, nil)); err != nil {
			return files, err
		}
	}
	if s.Equals {
		if err := write(r.out.equals(), r.equalsFile(post)); err != nil {
			return files, err
		}
	}
	if s.ClusterPosteriors && s.DoClustering {
		if err := os.MkdirAll(r.out.clusterDir(), 0o755); err != nil {
			return files, fmt.Errorf("create clusters dir: %w", err)
		}
		active := r.activeLabels()
		for _, label := range active {
			if err := write(r.out.cluster(label), chainFile(post.rows, func(w weighted) bool { return w.Cluster == label })); err != nil {
				return files, err
			}
		}
		if err := r.out.pruneClusters(active); err != nil {
			return files, err
		}
	}
	if s.WriteResume {
		b, err := r.st.encode(r.pcg)
		if err != nil {
			return files, err
		}
		if err := write(r.out.resume(), b); err != nil {
			return files, err
		}
	}
	return files, nil
}

func (r *run) paramnamesFile() []byte {
	var b bytes.Buffer
	for _, p := range r.s.Params() {
		name := p.Name
		if p.Derived {
			name += "*"
		}
		fmt.Fprintf(&b, "%s\t%s\n", name, p.Label)
	}
	return b.Bytes()
}

// deadFile rows: logL theta... derived...
func (r *run) deadFile() []byte {
	var b bytes.Buffer
	for _, p := range r.st.Dead {
		writeRow(&b, p.LogL, p.Theta, p.Derived)
	}
	return b.Bytes()
}

// liveFile rows: theta... derived... logL
func (r *run) liveFile() []byte {
	var b bytes.Buffer
	for _, p := range r.evaluated() {
		writeRow(&b, math.NaN(), p.Theta, p.Derived, []float64{p.LogL})
	}
	return b.Bytes()
}

// chainFile writes getdist rows: weight -2logL theta... derived...
func chainFile(rows []weighted, keep func(weighted) bool) []byte {
	var b bytes.Buffer
	for _, w := range rows {
		if keep != nil && !keep(w) {
			continue
		}
		writeRow(&b, w.w, []float64{-2 * w.LogL}, w.Theta, w.Derived)
	}
	return b.Bytes()
}

// equalsFile resamples the posterior to unit weights by rejection against the
// largest weight. The random source depends only on the seed and the number of
// dead points, never on the sampler's own stream.
func (r *run) equalsFile(post posteriorSet) []byte {
	var wmax float64
	for _, w := range post.rows {
		wmax = max(wmax, w.w)
	}
	var b bytes.Buffer
	if wmax == 0 {
		return b.Bytes()
	}
	rng := rand.New(rand.NewPCG(r.st.Seed, uint64(r.st.NDead)))
	for _, w := range post.rows {
		if rng.Float64() < w.w/wmax {
			writeRow(&b, 1, []float64{-2 * w.LogL}, w.Theta, w.Derived)
		}
	}
	return b.Bytes()
}

func (r *run) statsFile(post posteriorSet, term sampler.Termination) []byte {
	st := r.st
	var b bytes.Buffer
	b.WriteString("Evidence estimates:\n")
	b.WriteString("===================\n")
	b.WriteString("  - The evidence Z is log-normally distributed; we quote log(Z) = mu +/- sigma.\n\n")
	b.WriteString("Global evidence:\n")
	b.WriteString("----------------\n\n")
	fmt.Fprintf(&b, "log(Z)       = %12.5f +/- %12.5f\n\n", post.logZ, r.logZErr())

	b.WriteString("Local evidences:\n")
	b.WriteString("----------------\n\n")
	for _, label := range clustersOf(post.rows) {
		var logs []float64
		n := 0
		for _, w := range post.rows {
			if w.Cluster == label {
				logs = append(logs, w.LogW+w.LogL)
				n++
			}
		}
		fmt.Fprintf(&b, "log(Z_%3d)   = %12.5f   (%d samples)\n", label, logSumExp(logs), n)
	}
	b.WriteString("\n")

	b.WriteString("Run-time information:\n")
	b.WriteString("---------------------\n\n")
	status := string(term)
	if status == "" {
		status = "running"
	}
	fmt.Fprintf(&b, " ncluster:   %10d\n", st.NClusters)
	fmt.Fprintf(&b, " nlive:      %10d\n", st.NLive)
	fmt.Fprintf(&b, " ndead:      %10d\n", st.NDead)
	fmt.Fprintf(&b, " nlike:      %10d\n", r.job.Eval.Calls())
	fmt.Fprintf(&b, " status:     %10s\n\n", status)

	b.WriteString("Dim No.       Mean        Sigma\n")
	params := r.s.Params()
	for j, p := range params {
		var mean, sq float64
		for _, w := range post.rows {
			mean += w.w * column(w.sample, j, st.NDims)
		}
		for _, w := range post.rows {
			d := column(w.sample, j, st.NDims) - mean
			sq += w.w * d * d
		}
		fmt.Fprintf(&b, "%-4d%-10s%15.7E +/- %15.7E\n", j+1, p.Name, mean, math.Sqrt(sq))
	}
	return b.Bytes()
}

// column returns parameter j of s, counting theta first and derived after.
func column(s sample, j, nDims int) float64 {
	if j < nDims {
		return s.Theta[j]
	}
	return s.Derived[j-nDims]
}

func clustersOf(rows []weighted) []int {
	seen := map[int]bool{}
	var out []int
	for _, w := range rows {
		if !seen[w.Cluster] {
			seen[w.Cluster] = true
			out = append(out, w.Cluster)
		}
	}
	sort.Ints(out)
	return out
}

// writeRow writes one fixed-width row. A NaN lead value is skipped.
func writeRow(b *bytes.Buffer, lead float64, cols ...[]float64) {
	if !math.IsNaN(lead) {
		fmt.Fprintf(b, "%24.15E", lead)
	}
	for _, c := range cols {
		for _, v := range c {
			fmt.Fprintf(b, "%24.15E", v)
		}
	}
	b.WriteByte('\n')
}
