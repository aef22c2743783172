// Command chordrun runs a nested-sampling engine on one of the built-in
// likelihoods and writes the engine's chain artifacts.
//
//	chordrun run --likelihood gaussian --ndims 4 --nlive 200
//	chordrun run --config run.yaml --metrics-addr :9090
//	chordrun engines
//	chordrun likelihoods
package main

import (
	"fmt"
	"os"

	// Registers the reference engine.
	_ "chordrun/internal/nested"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
