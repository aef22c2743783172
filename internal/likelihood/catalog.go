// Package likelihood is a catalog of named test likelihoods for the CLI and
// the engine tests. Every entry reports one derived parameter: the Euclidean
// radius |theta| of the evaluated point.
package likelihood

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"chordrun/internal/sampler"
)

// NDerived is the number of derived parameters every catalog entry fills.
const NDerived = 1

// Entry describes one built-in likelihood.
type Entry struct {
	Name        string
	Description string
	// MinDims and MaxDims bound the supported dimensionality. MaxDims 0 means unbounded.
	MinDims int
	MaxDims int

	build func(nDims int) (sampler.Likelihood, sampler.Prior)
}

// Build returns the likelihood and the prior for an nDims-dimensional problem.
func (e Entry) Build(nDims int) (sampler.Likelihood, sampler.Prior, error) {
	if nDims < e.MinDims || (e.MaxDims > 0 && nDims > e.MaxDims) {
		return nil, nil, sampler.ErrConfig("ndims", fmt.Sprintf("likelihood %q supports %s dimensions, got %d", e.Name, e.dims(), nDims))
	}
	like, prior := e.build(nDims)
	return like, prior, nil
}

func (e Entry) dims() string {
	switch {
	case e.MaxDims == 0:
		return fmt.Sprintf(">= %d", e.MinDims)
	case e.MinDims == e.MaxDims:
		return fmt.Sprintf("exactly %d", e.MinDims)
	default:
		return fmt.Sprintf("%d..%d", e.MinDims, e.MaxDims)
	}
}

var catalog = map[string]Entry{
	"gaussian": {
		Name:        "gaussian",
		Description: "isotropic Gaussian, sigma 0.1, uniform prior on [-1,1]^n; log Z = -n log 2",
		MinDims:     1,
		build: func(int) (sampler.Likelihood, sampler.Prior) {
			return withRadius(gaussianAt(0, 0.1)), uniform(-1, 1)
		},
	},
	"twin-gaussian": {
		Name:        "twin-gaussian",
		Description: "equal mixture of two Gaussians at theta_1 = +/-0.5, sigma 0.1, uniform prior on [-1,1]^n",
		MinDims:     1,
		build: func(int) (sampler.Likelihood, sampler.Prior) {
			left, right := gaussianAt(-0.5, 0.1), gaussianAt(0.5, 0.1)
			return withRadius(func(theta []float64) float64 {
				return logMix(left(theta), right(theta))
			}), uniform(-1, 1)
		},
	},
	"eggbox": {
		Name:        "eggbox",
		Description: "(2 + prod cos(theta_i/2))^5 on [0, 10pi]^n",
		MinDims:     1,
		build: func(int) (sampler.Likelihood, sampler.Prior) {
			return withRadius(func(theta []float64) float64 {
				p := 1.0
				for _, x := range theta {
					p *= math.Cos(x / 2)
				}
				return math.Pow(2+p, 5)
			}), uniform(0, 10*math.Pi)
		},
	},
	"rosenbrock": {
		Name:        "rosenbrock",
		Description: "negative Rosenbrock function, uniform prior on [-5,5]^n",
		MinDims:     2,
		build: func(int) (sampler.Likelihood, sampler.Prior) {
			return withRadius(func(theta []float64) float64 {
				var s float64
				for i := 0; i+1 < len(theta); i++ {
					a := theta[i+1] - theta[i]*theta[i]
					b := 1 - theta[i]
					s += 100*a*a + b*b
				}
				return -s
			}), uniform(-5, 5)
		},
	},
	"himmelblau": {
		Name:        "himmelblau",
		Description: "negative Himmelblau function (four modes), uniform prior on [-5,5]^2",
		MinDims:     2,
		MaxDims:     2,
		build: func(int) (sampler.Likelihood, sampler.Prior) {
			return withRadius(func(theta []float64) float64 {
				x, y := theta[0], theta[1]
				a := x*x + y - 11
				b := x + y*y - 7
				return -(a*a + b*b)
			}), uniform(-5, 5)
		},
	},
}

// Lookup returns the entry registered under name.
func Lookup(name string) (Entry, error) {
	e, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Entry{}, fmt.Errorf("unknown likelihood %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return e, nil
}

// List returns all entries sorted by name.
func List() []Entry {
	out := make([]Entry, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the sorted entry names.
func Names() []string {
	var out []string
	for _, e := range List() {
		out = append(out, e.Name)
	}
	return out
}

func uniform(lo, hi float64) sampler.Prior {
	return sampler.UniformPrior([]float64{lo}, []float64{hi})
}

// gaussianAt is a normalized isotropic Gaussian centred at c on the first
// axis and at 0 on the others.
func gaussianAt(c, sigma float64) func([]float64) float64 {
	return func(theta []float64) float64 {
		var r2 float64
		for i, x := range theta {
			d := x
			if i == 0 {
				d -= c
			}
			r2 += d * d
		}
		n := float64(len(theta))
		return -r2/(2*sigma*sigma) - n/2*math.Log(2*math.Pi*sigma*sigma)
	}
}

// logMix is log(exp(a)/2 + exp(b)/2).
func logMix(a, b float64) float64 {
	hi := math.Max(a, b)
	return hi + math.Log(0.5*math.Exp(a-hi)+0.5*math.Exp(b-hi))
}

func withRadius(f func([]float64) float64) sampler.Likelihood {
	return func(theta, derived []float64) float64 {
		if len(derived) > 0 {
			var r2 float64
			for _, x := range theta {
				r2 += x * x
			}
			derived[0] = math.Sqrt(r2)
		}
		return f(theta)
	}
}
