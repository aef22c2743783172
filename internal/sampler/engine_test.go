package sampler

import (
	"context"
	"strings"
	"testing"
)

func TestRegistry_RegisterLookupReplace(t *testing.T) {
	a := &fakeEngine{name: "fake-registry"}
	b := &fakeEngine{name: "fake-registry"}
	Register(a)
	Register(b)
	got, err := Lookup("fake-registry")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != Engine(b) {
		t.Fatalf("later registration should replace earlier one")
	}
	found := false
	for _, n := range Engines() {
		if n == "fake-registry" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Engines() missing fake-registry: %v", Engines())
	}
}

func TestRegistry_LookupUnknownListsKnown(t *testing.T) {
	_, err := Lookup("missing")
	if !IsEngineUnavailable(err) || !strings.Contains(err.Error(), PolychordEngine) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegister_PanicsOnEmptyName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	Register(&fakeEngine{name: "  "})
}

func TestPolychordEngine_RegisteredByDefault(t *testing.T) {
	e, err := Lookup(PolychordEngine)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e.Name() != PolychordEngine {
		t.Fatalf("name=%q", e.Name())
	}
}

func TestPolychordEngine_MissingLibrary(t *testing.T) {
	e := NewPolychordEngine("/nonexistent/libchord.so", DefaultPolychordSymbol)
	err := e.Available()
	if !IsEngineUnavailable(err) {
		t.Fatalf("expected engine unavailable, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx, Job{}); err == nil {
		t.Fatalf("expected error from Run")
	}
}
