package sampler

import (
	"fmt"
	"strings"
)

// Defaults applied by DefaultSettings and WithDefaults.
const (
	defaultLivePerDim    = 25
	defaultRepeatsPerDim = 5
	defaultFeedback      = 1
	defaultPrecision     = 1e-3
	defaultBaseDir       = "chains"
	defaultFileRoot      = "test"
	maxFeedback          = 3
)

// Settings is the run configuration forwarded to an engine. It is a plain value:
// Run takes a copy and never mutates the caller's struct.
//
// The first block of fields mirrors the native PolyChord entry point one to one.
// The second block is consumed by the adapter and the reference engine only.
type Settings struct {
	NLive              int     `json:"nlive" yaml:"nlive" toml:"nlive"`
	NumRepeats         int     `json:"num_repeats" yaml:"num_repeats" toml:"num_repeats"`
	DoClustering       bool    `json:"do_clustering" yaml:"do_clustering" toml:"do_clustering"`
	Feedback           int     `json:"feedback" yaml:"feedback" toml:"feedback"`
	PrecisionCriterion float64 `json:"precision_criterion" yaml:"precision_criterion" toml:"precision_criterion"`
	// MaxNDead caps both likelihood evaluations and dead points. <=0 means unbounded.
	MaxNDead          int     `json:"max_ndead" yaml:"max_ndead" toml:"max_ndead"`
	BoostPosterior    float64 `json:"boost_posterior" yaml:"boost_posterior" toml:"boost_posterior"`
	Posteriors        bool    `json:"posteriors" yaml:"posteriors" toml:"posteriors"`
	Equals            bool    `json:"equals" yaml:"equals" toml:"equals"`
	ClusterPosteriors bool    `json:"cluster_posteriors" yaml:"cluster_posteriors" toml:"cluster_posteriors"`
	WriteResume       bool    `json:"write_resume" yaml:"write_resume" toml:"write_resume"`
	WriteParamnames   bool    `json:"write_paramnames" yaml:"write_paramnames" toml:"write_paramnames"`
	ReadResume        bool    `json:"read_resume" yaml:"read_resume" toml:"read_resume"`
	WriteStats        bool    `json:"write_stats" yaml:"write_stats" toml:"write_stats"`
	WriteLive         bool    `json:"write_live" yaml:"write_live" toml:"write_live"`
	WriteDead         bool    `json:"write_dead" yaml:"write_dead" toml:"write_dead"`
	// UpdateFiles is the number of dead points between artifact refreshes.
	// <=0 writes artifacts only when the run terminates.
	UpdateFiles int `json:"update_files" yaml:"update_files" toml:"update_files"`
	NDims       int `json:"ndims" yaml:"ndims" toml:"ndims"`
	NDerived    int `json:"nderived" yaml:"nderived" toml:"nderived"`

	BaseDir  string `json:"base_dir" yaml:"base_dir" toml:"base_dir"`
	FileRoot string `json:"file_root" yaml:"file_root" toml:"file_root"`
	// Seed for the engine's random source. Negative means derive from the clock.
	Seed int64 `json:"seed" yaml:"seed" toml:"seed"`
	// Workers bounds concurrent likelihood evaluations. The callback must be
	// safe for concurrent use when Workers > 1.
	Workers    int      `json:"workers" yaml:"workers" toml:"workers"`
	ParamNames []string `json:"param_names,omitempty" yaml:"param_names,omitempty" toml:"param_names,omitempty"`
}

// DefaultSettings returns the PolyChord defaults for a problem of the given size.
func DefaultSettings(nDims, nDerived int) Settings {
	s := Settings{
		DoClustering:       true,
		Feedback:           defaultFeedback,
		PrecisionCriterion: defaultPrecision,
		MaxNDead:           -1,
		Posteriors:         true,
		Equals:             true,
		ClusterPosteriors:  true,
		WriteResume:        true,
		WriteStats:         true,
		WriteLive:          true,
		WriteDead:          true,
		NDims:              nDims,
		NDerived:           nDerived,
		BaseDir:            defaultBaseDir,
		FileRoot:           defaultFileRoot,
		Seed:               -1,
		Workers:            1,
	}
	return s.WithDimensionDefaults()
}

// WithDimensionDefaults fills unset (zero) NLive, NumRepeats and UpdateFiles
// from NDims. Run never calls it: a zero NLive reaching Run is rejected.
func (s Settings) WithDimensionDefaults() Settings {
	if s.NLive == 0 {
		s.NLive = defaultLivePerDim * s.NDims
	}
	if s.NumRepeats == 0 {
		s.NumRepeats = defaultRepeatsPerDim * s.NDims
	}
	if s.UpdateFiles == 0 {
		s.UpdateFiles = s.NLive
	}
	return s
}

// WithDefaults fills the adapter-only fields that have a meaningful zero value
// of "unspecified". Engine parameters are left untouched.
func (s Settings) WithDefaults() Settings {
	if strings.TrimSpace(s.BaseDir) == "" {
		s.BaseDir = defaultBaseDir
	}
	if strings.TrimSpace(s.FileRoot) == "" {
		s.FileRoot = defaultFileRoot
	}
	if s.Workers == 0 {
		s.Workers = 1
	}
	if s.ParamNames != nil {
		s.ParamNames = append([]string(nil), s.ParamNames...)
	}
	return s
}

// Validate checks the preconditions of a run. It reports the first violation.
func (s Settings) Validate() error {
	switch {
	case s.NDims < 1:
		return ErrConfig("ndims", fmt.Sprintf("must be >= 1, got %d", s.NDims))
	case s.NDerived < 0:
		return ErrConfig("nderived", fmt.Sprintf("must be >= 0, got %d", s.NDerived))
	case s.NLive < 1:
		return ErrConfig("nlive", fmt.Sprintf("must be >= 1, got %d", s.NLive))
	case s.NumRepeats < 1:
		return ErrConfig("num_repeats", fmt.Sprintf("must be >= 1, got %d", s.NumRepeats))
	case !(s.PrecisionCriterion > 0):
		return ErrConfig("precision_criterion", fmt.Sprintf("must be > 0, got %g", s.PrecisionCriterion))
	case s.Feedback < 0 || s.Feedback > maxFeedback:
		return ErrConfig("feedback", fmt.Sprintf("must be in 0..%d, got %d", maxFeedback, s.Feedback))
	case !(s.BoostPosterior >= 0):
		return ErrConfig("boost_posterior", fmt.Sprintf("must be >= 0, got %g", s.BoostPosterior))
	case s.Workers < 1:
		return ErrConfig("workers", fmt.Sprintf("must be >= 1, got %d", s.Workers))
	case len(s.ParamNames) != 0 && len(s.ParamNames) != s.NDims+s.NDerived:
		return ErrConfig("param_names", fmt.Sprintf("want %d names (ndims+nderived), got %d", s.NDims+s.NDerived, len(s.ParamNames)))
	case strings.TrimSpace(s.FileRoot) == "" || strings.ContainsAny(s.FileRoot, `/\`):
		return ErrConfig("file_root", fmt.Sprintf("must be a plain file name, got %q", s.FileRoot))
	}
	return nil
}

// Param names one column of the output artifacts.
type Param struct {
	Name    string
	Label   string
	Derived bool
}

// Params returns the NDims physical parameters followed by the NDerived derived
// ones. Unnamed parameters are called p1..pN and d1..dM.
func (s Settings) Params() []Param {
	out := make([]Param, 0, s.NDims+s.NDerived)
	for i := 0; i < s.NDims+s.NDerived; i++ {
		derived := i >= s.NDims
		var p Param
		switch {
		case len(s.ParamNames) == s.NDims+s.NDerived:
			p = Param{Name: s.ParamNames[i], Label: s.ParamNames[i]}
		case derived:
			j := i - s.NDims + 1
			p = Param{Name: fmt.Sprintf("d%d", j), Label: fmt.Sprintf(`\phi_{%d}`, j)}
		default:
			p = Param{Name: fmt.Sprintf("p%d", i+1), Label: fmt.Sprintf(`\theta_{%d}`, i+1)}
		}
		p.Derived = derived
		out = append(out, p)
	}
	return out
}
