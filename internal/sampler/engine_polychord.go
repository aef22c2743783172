//go:build polychord && cgo

package sampler

// cgo binding for the native PolyChord library.
// - The library is opened with dlopen at first use, so a missing libchord is an
//   engine-unavailable error at NewRunner time rather than a link failure.
// - The routine is looked up by name; the default is the gfortran-mangled
//   symbol and can be overridden for other Fortran toolchains.

/*
#cgo LDFLAGS: -ldl
#include <stdlib.h>
#include "polychord_bridge.h"
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

type polychordEngine struct {
	library string
	symbol  string

	once    sync.Once
	fn      unsafe.Pointer
	loadErr error
}

// NewPolychordEngine returns the native engine bound to library and symbol.
func NewPolychordEngine(library, symbol string) Engine {
	return &polychordEngine{library: library, symbol: symbol}
}

func (e *polychordEngine) Name() string { return PolychordEngine }

func (e *polychordEngine) Available() error {
	e.once.Do(e.load)
	return e.loadErr
}

func (e *polychordEngine) load() {
	lib := C.CString(e.library)
	defer C.free(unsafe.Pointer(lib))
	h := C.chordrun_dlopen(lib)
	if h == nil {
		e.loadErr = ErrEngineUnavailable(fmt.Sprintf("polychord: dlopen %s: %s", e.library, C.GoString(C.chordrun_dlerror())))
		return
	}
	sym := C.CString(e.symbol)
	defer C.free(unsafe.Pointer(sym))
	fn := C.chordrun_dlsym(h, sym)
	if fn == nil {
		e.loadErr = ErrEngineUnavailable(fmt.Sprintf("polychord: symbol %s not found in %s: %s", e.symbol, e.library, C.GoString(C.chordrun_dlerror())))
		return
	}
	e.fn = fn
}

// The native routine keeps global state and its callback carries no user
// pointer, so one native run at a time per process.
var (
	nativeMu   sync.Mutex
	nativeEval atomic.Pointer[Evaluator]
)

func (e *polychordEngine) Run(ctx context.Context, job Job) (Result, error) {
	if err := e.Available(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{Termination: TerminationAborted}, err
	}
	nativeMu.Lock()
	defer nativeMu.Unlock()
	nativeEval.Store(job.Eval)
	defer nativeEval.Store(nil)

	s := job.Settings
	job.Log.Debug().Str("library", e.library).Str("symbol", e.symbol).Msg("entering native engine")
	C.chordrun_run(e.fn,
		C.int(s.NLive),
		C.int(s.NumRepeats),
		C.bool(s.DoClustering),
		C.int(s.Feedback),
		C.double(s.PrecisionCriterion),
		C.int(s.MaxNDead),
		C.double(s.BoostPosterior),
		C.bool(s.Posteriors),
		C.bool(s.Equals),
		C.bool(s.ClusterPosteriors),
		C.bool(s.WriteResume),
		C.bool(s.WriteParamnames),
		C.bool(s.ReadResume),
		C.bool(s.WriteStats),
		C.bool(s.WriteLive),
		C.bool(s.WriteDead),
		C.int(s.UpdateFiles),
		C.int(s.NDims),
		C.int(s.NDerived),
	)
	res := Result{Termination: TerminationReturned, NLike: job.Eval.Calls(), NLive: s.NLive}
	if err := job.Eval.Err(); err != nil {
		res.Termination = TerminationAborted
		return res, err
	}
	return res, nil
}

//export chordrunLoglike
func chordrunLoglike(theta *C.double, nDims *C.int, phi *C.double, nDerived *C.int) C.double {
	ev := nativeEval.Load()
	if ev == nil {
		return C.double(LogZero)
	}
	cube := unsafe.Slice((*float64)(unsafe.Pointer(theta)), int(*nDims))
	p, err := ev.Eval(cube)
	if err != nil {
		return C.double(LogZero)
	}
	if n := int(*nDerived); n > 0 {
		copy(unsafe.Slice((*float64)(unsafe.Pointer(phi)), n), p.Derived)
	}
	return C.double(p.LogL)
}
