// Package sampler is the invocation boundary between a calling program and a
// nested-sampling engine. It owns the run configuration, the likelihood
// callback protocol and the engine registry. It is structured into small files
// by concern:
//
//   - settings.go: Settings value object, DefaultSettings, Validate.
//   - likelihood.go: Likelihood and Prior callback types, built-in priors.
//   - evaluator.go: Evaluator, the guard every engine calls the likelihood through.
//   - engine.go: Engine interface, Job/Progress, the engine registry.
//   - runner.go: Runner and the Run entry point.
//   - types.go: run State, Termination and Result.
//   - errors.go: error types and helpers (IsConfigError, IsEngineUnavailable, ...).
//   - events.go: lifecycle events and publishers.
//   - metrics.go: Prometheus instrumentation.
//
// Engines:
//
//   - reference: pure-Go engine in internal/nested. Registered by importing
//     that package (blank import is enough).
//
//   - polychord: the native PolyChord library loaded with dlopen. Enabled with
//     `-tags=polychord` (cgo required). Files: engine_polychord.go,
//     polychord_bridge.c. Without the tag a stub is registered under the same
//     name and fails fast with an engine-unavailable error.
//
// Engines receive points in the unit hypercube. The Evaluator applies the
// configured Prior, so the Likelihood always sees physical coordinates.
package sampler
