package sampler

import (
	"math"
)

// LogZero is the log-likelihood assigned to rejected points. It matches the
// logzero constant of the native engine.
const LogZero = -1e30

// FiniteLog clamps a log value to LogZero when it is not finite, which keeps
// evidences JSON-encodable before anything was evaluated.
func FiniteLog(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return LogZero
	}
	return v
}

// Likelihood returns the log-likelihood of theta and fills derived.
//
// len(theta) == NDims and len(derived) == NDerived on every call. theta is a
// private copy: the callback may scribble on it without affecting the engine.
// The function must be deterministic in theta. With Settings.Workers > 1 it is
// called concurrently and must not share mutable state without synchronization.
type Likelihood func(theta, derived []float64) float64

// Prior maps a point of the unit hypercube onto physical coordinates.
// len(cube) == len(theta) == NDims.
type Prior func(cube, theta []float64)

// IdentityPrior leaves the point in the unit hypercube.
func IdentityPrior(cube, theta []float64) { copy(theta, cube) }

// UniformPrior maps each coordinate linearly onto [lo[i], hi[i]]. A single
// bound is broadcast to every dimension.
func UniformPrior(lo, hi []float64) Prior {
	return func(cube, theta []float64) {
		for i, c := range cube {
			l, h := bound(lo, i), bound(hi, i)
			theta[i] = l + c*(h-l)
		}
	}
}

// LogUniformPrior maps each coordinate so that log(theta) is uniform on
// [log lo[i], log hi[i]]. Bounds must be positive.
func LogUniformPrior(lo, hi []float64) Prior {
	return func(cube, theta []float64) {
		for i, c := range cube {
			l, h := math.Log(bound(lo, i)), math.Log(bound(hi, i))
			theta[i] = math.Exp(l + c*(h-l))
		}
	}
}

// GaussianPrior maps each coordinate through the inverse normal CDF.
func GaussianPrior(mu, sigma []float64) Prior {
	return func(cube, theta []float64) {
		for i, c := range cube {
			theta[i] = bound(mu, i) + bound(sigma, i)*math.Sqrt2*math.Erfinv(2*c-1)
		}
	}
}

func bound(v []float64, i int) float64 {
	switch {
	case len(v) == 0:
		return 0
	case i < len(v):
		return v[i]
	default:
		return v[len(v)-1]
	}
}
