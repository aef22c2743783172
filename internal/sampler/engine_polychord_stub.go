//go:build !polychord || !cgo

package sampler

// This file provides a no-CGO stub for the native PolyChord engine. It is
// compiled when the 'polychord' build tag is NOT set (or cgo is disabled),
// keeping default builds free of the native toolchain. The real engine lives
// in engine_polychord.go.

import (
	"context"
)

// polychordEngine is a stub that satisfies Engine but refuses to run without
// the 'polychord' build tag.
type polychordEngine struct {
	library string
	symbol  string
}

// NewPolychordEngine returns the native engine bound to library and symbol.
func NewPolychordEngine(library, symbol string) Engine {
	return &polychordEngine{library: library, symbol: symbol}
}

func (e *polychordEngine) Name() string { return PolychordEngine }

func (e *polychordEngine) Available() error {
	// Fail fast: native runtime not available in this build.
	return ErrEngineUnavailable("polychord support not built (missing 'polychord' build tag)")
}

func (e *polychordEngine) Run(ctx context.Context, job Job) (Result, error) {
	// Should never be reached because Runner checks Available, but return a clear error anyway.
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}
	return Result{}, e.Available()
}
