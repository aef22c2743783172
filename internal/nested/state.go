package nested

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"chordrun/internal/common/fsutil"
	"chordrun/internal/sampler"
)

// stateVersion is bumped whenever the resume layout changes incompatibly.
const stateVersion = 2

// pcgStream is the fixed second word of the PCG seed.
const pcgStream = 0x9e3779b97f4a7c15

// point is a live or dead point. Cube is what the engine moves around, Theta
// and Derived are what the callback saw and produced.
type point struct {
	Cube    []float64 `msgpack:"cube"`
	Theta   []float64 `msgpack:"theta"`
	Derived []float64 `msgpack:"derived"`
	LogL    float64   `msgpack:"logl"`
	Cluster int       `msgpack:"cluster"`
	// Done is false for live slots whose initial draw is not evaluated yet.
	Done bool `msgpack:"done"`
}

// sample is a posterior sample: a dead point or a boosted chain point, with
// the log prior volume it represents.
type sample struct {
	Theta   []float64 `msgpack:"theta"`
	Derived []float64 `msgpack:"derived"`
	LogL    float64   `msgpack:"logl"`
	LogW    float64   `msgpack:"logw"`
	Cluster int       `msgpack:"cluster"`
}

// state is the complete sampler state. Everything that influences future
// iterations lives here, so a resumed run continues bit for bit.
type state struct {
	Version   int      `msgpack:"version"`
	NDims     int      `msgpack:"ndims"`
	NDerived  int      `msgpack:"nderived"`
	NLive     int      `msgpack:"nlive"`
	Seed      uint64   `msgpack:"seed"`
	RNG       []byte   `msgpack:"rng"`
	Live      []point  `msgpack:"live"`
	Dead      []point  `msgpack:"dead"`
	Samples   []sample `msgpack:"samples"`
	LogX      float64  `msgpack:"logx"`
	LogZ      float64  `msgpack:"logz"`
	H         float64  `msgpack:"h"`
	NDead     int      `msgpack:"ndead"`
	NLike     int64    `msgpack:"nlike"`
	NClusters int      `msgpack:"nclusters"`
	// NextLabel is the next unused cluster label.
	NextLabel int `msgpack:"next_label"`
}

// newState draws the initial live points. Draws happen here, serially, so the
// later (possibly parallel) evaluation order cannot influence the run.
func newState(s sampler.Settings) (*state, *rand.PCG) {
	seed := uint64(s.Seed)
	if s.Seed < 0 {
		seed = uint64(time.Now().UnixNano())
	}
	pcg := rand.NewPCG(seed, pcgStream)
	rng := rand.New(pcg)
	st := &state{
		Version:   stateVersion,
		NDims:     s.NDims,
		NDerived:  s.NDerived,
		NLive:     s.NLive,
		Seed:      seed,
		Live:      make([]point, s.NLive),
		LogZ:      math.Inf(-1),
		NClusters: 1,
		NextLabel: 2,
	}
	for i := range st.Live {
		cube := make([]float64, s.NDims)
		for d := range cube {
			cube[d] = rng.Float64()
		}
		st.Live[i] = point{Cube: cube, Cluster: 1}
	}
	return st, pcg
}

// loadOrInit restores the resume artifact when asked to and present, and
// draws a fresh state otherwise.
func loadOrInit(path string, s sampler.Settings) (*state, *rand.PCG, bool, error) {
	if s.ReadResume && fsutil.PathExists(path) {
		st, pcg, err := readState(path)
		if err != nil {
			return nil, nil, false, err
		}
		if err := st.compatible(s); err != nil {
			return nil, nil, false, err
		}
		return st, pcg, true, nil
	}
	st, pcg := newState(s)
	return st, pcg, false, nil
}

func readState(path string) (*state, *rand.PCG, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read resume artifact: %w", err)
	}
	var st state
	if err := msgpack.Unmarshal(b, &st); err != nil {
		return nil, nil, fmt.Errorf("decode resume artifact %s: %w", path, err)
	}
	if st.Version != stateVersion {
		return nil, nil, sampler.ErrConfig("read_resume", fmt.Sprintf("resume artifact version %d, want %d", st.Version, stateVersion))
	}
	pcg := new(rand.PCG)
	if err := pcg.UnmarshalBinary(st.RNG); err != nil {
		return nil, nil, fmt.Errorf("decode resume rng: %w", err)
	}
	return &st, pcg, nil
}

func (st *state) compatible(s sampler.Settings) error {
	if st.NDims != s.NDims || st.NDerived != s.NDerived {
		return sampler.ErrConfig("read_resume", fmt.Sprintf("resume artifact has ndims=%d nderived=%d, settings have ndims=%d nderived=%d",
			st.NDims, st.NDerived, s.NDims, s.NDerived))
	}
	if st.NLive != s.NLive || len(st.Live) != s.NLive {
		return sampler.ErrConfig("read_resume", fmt.Sprintf("resume artifact has nlive=%d, settings have nlive=%d", st.NLive, s.NLive))
	}
	return nil
}

func (st *state) encode(pcg *rand.PCG) ([]byte, error) {
	rngState, err := pcg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode rng: %w", err)
	}
	st.RNG = rngState
	return msgpack.Marshal(st)
}

func livePoint(p sampler.Point, cluster int) point {
	return point{Cube: p.Cube, Theta: p.Theta, Derived: p.Derived, LogL: p.LogL, Cluster: cluster, Done: true}
}

func clonePoint(p point) point {
	p.Cube = append([]float64(nil), p.Cube...)
	p.Theta = append([]float64(nil), p.Theta...)
	p.Derived = append([]float64(nil), p.Derived...)
	return p
}

func sampleOf(p point, logW float64) sample {
	return sample{
		Theta:   append([]float64(nil), p.Theta...),
		Derived: append([]float64(nil), p.Derived...),
		LogL:    p.LogL,
		LogW:    logW,
		Cluster: p.Cluster,
	}
}
