package sampler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Engine names known to this module.
const (
	ReferenceEngine = "reference"
	PolychordEngine = "polychord"

	// DefaultEngine is used when RunnerConfig.Engine is empty.
	DefaultEngine = ReferenceEngine
)

// Native library defaults. The symbol is the gfortran-mangled name of the
// PolyChord interface routine; both can be overridden with NewPolychordEngine.
const (
	DefaultPolychordLibrary = "libchord.so"
	DefaultPolychordSymbol  = "__interfaces_module_MOD_run_polychord_no_prior_no_setup"
)

// Engine abstracts a nested-sampling implementation. Concrete engines are
// registered by name and selected at configuration time.
type Engine interface {
	// Name is the registry key.
	Name() string
	// Available reports whether the engine can run in this process (linked,
	// loaded, symbol resolved). It must be cheap after the first call.
	Available() error
	// Run blocks until the engine terminates. Every likelihood evaluation must go
	// through job.Eval. Validation of job.Settings has already happened.
	Run(ctx context.Context, job Job) (Result, error)
}

// Job is everything an engine needs for one run.
type Job struct {
	RunID    string
	Settings Settings
	Eval     *Evaluator
	Log      zerolog.Logger
	// Progress is called from the engine goroutine after each artifact refresh.
	Progress func(Progress)
}

// ReportProgress calls j.Progress when set.
func (j Job) ReportProgress(p Progress) {
	if j.Progress != nil {
		j.Progress(p)
	}
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Engine{}
)

func init() {
	Register(NewPolychordEngine(DefaultPolychordLibrary, DefaultPolychordSymbol))
}

// Register makes an engine available by name. A later registration under the
// same name replaces the earlier one.
func Register(e Engine) {
	if e == nil {
		panic("sampler: Register engine is nil")
	}
	name := strings.TrimSpace(e.Name())
	if name == "" {
		panic("sampler: Register engine has empty name")
	}
	registryMu.Lock()
	registry[name] = e
	registryMu.Unlock()
}

// Lookup returns the engine registered under name.
func Lookup(name string) (Engine, error) {
	registryMu.RLock()
	e, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrEngineUnavailable(fmt.Sprintf("engine %q not registered (known: %s)", name, strings.Join(Engines(), ", ")))
	}
	return e, nil
}

// Engines lists registered engine names in sorted order.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
