package sampler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	likelihoodCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chordrun",
			Subsystem: "sampler",
			Name:      "likelihood_calls_total",
			Help:      "Total number of likelihood callback invocations",
		},
		[]string{"engine"},
	)

	rejectedPoints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chordrun",
			Subsystem: "sampler",
			Name:      "rejected_points_total",
			Help:      "Evaluations rejected by the callback guard",
		},
		[]string{"engine", "reason"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chordrun",
			Subsystem: "sampler",
			Name:      "runs_total",
			Help:      "Finished runs by termination reason",
		},
		[]string{"engine", "termination"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chordrun",
			Subsystem: "sampler",
			Name:      "run_duration_seconds",
			Help:      "Wall time of sampler runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"engine"},
	)

	deadPoints = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chordrun",
			Subsystem: "sampler",
			Name:      "dead_points",
			Help:      "Dead points of the current or last run",
		},
	)

	logEvidence = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chordrun",
			Subsystem: "sampler",
			Name:      "log_evidence",
			Help:      "Running log-evidence estimate of the current or last run",
		},
	)
)

func init() {
	prometheus.MustRegister(likelihoodCalls, rejectedPoints, runsTotal, runDuration, deadPoints, logEvidence)
}

func observeRun(engine string, t Termination, seconds float64) {
	if t == "" {
		t = "error"
	}
	runsTotal.WithLabelValues(engine, string(t)).Inc()
	runDuration.WithLabelValues(engine).Observe(seconds)
}

func observeProgress(p Progress) {
	deadPoints.Set(float64(p.NDead))
	logEvidence.Set(p.LogZ)
}
