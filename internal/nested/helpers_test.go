package nested

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chordrun/internal/sampler"
)

const gaussSigma = 0.1

// gaussian is a normalized 2-d Gaussian centred in the unit square, so the
// evidence over the square is very close to 1 (logZ = 0). The derived output
// is the distance from the centre.
func gaussian(theta, derived []float64) float64 {
	var r2 float64
	for _, x := range theta {
		d := x - 0.5
		r2 += d * d
	}
	if len(derived) > 0 {
		derived[0] = math.Sqrt(r2)
	}
	n := float64(len(theta))
	return -r2/(2*gaussSigma*gaussSigma) - n/2*math.Log(2*math.Pi*gaussSigma*gaussSigma)
}

const twinSigma = 0.05

// twinGaussian is an equal mixture of two normalized 2-d Gaussians at
// x=0.25 and x=0.75 (y=0.5), well separated in the unit square.
func twinGaussian(theta, derived []float64) float64 {
	mode := func(cx float64) float64 {
		dx, dy := theta[0]-cx, theta[1]-0.5
		return -(dx*dx+dy*dy)/(2*twinSigma*twinSigma) - math.Log(2*math.Pi*twinSigma*twinSigma)
	}
	if len(derived) > 0 {
		derived[0] = math.Abs(theta[0] - 0.5)
	}
	return logAddExp(mode(0.25), mode(0.75)) - math.Ln2
}

func smallSettings(t *testing.T, dir string) sampler.Settings {
	t.Helper()
	s := sampler.DefaultSettings(2, 1)
	s.NLive = 25
	s.NumRepeats = 6
	s.Feedback = 0
	s.Seed = 7
	s.PrecisionCriterion = 1e-2
	s.BaseDir = dir
	s.FileRoot = "gauss"
	return s
}

func runReference(t *testing.T, ctx context.Context, like sampler.Likelihood, s sampler.Settings) (sampler.Result, error) {
	t.Helper()
	r, err := sampler.NewRunner(sampler.RunnerConfig{Engine: sampler.ReferenceEngine})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r.Run(ctx, like, s)
}

func readArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(b)
}

func countLines(s string) int { return strings.Count(s, "\n") }

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
