package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"chordrun/internal/sampler"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "run.yaml", "engine: reference\nlikelihood: eggbox\nmetrics_addr: :9999\nrun:\n  ndims: 2\n  nderived: 1\n  nlive: 80\n  seed: 3\n  base_dir: out\n  file_root: egg\n  param_names: [x, y, r]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg = cfg.Resolve()
	if cfg.Likelihood != "eggbox" || cfg.MetricsAddr != ":9999" || cfg.Run.NDims != 2 || cfg.Run.NLive != 80 || cfg.Run.Seed != 3 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Run.NumRepeats != 10 || cfg.Run.UpdateFiles != 80 {
		t.Fatalf("dimension defaults: %+v", cfg.Run)
	}
	if !cfg.Run.DoClustering || cfg.Run.PrecisionCriterion != 1e-3 || len(cfg.Run.ParamNames) != 3 {
		t.Fatalf("defaults lost: %+v", cfg.Run)
	}
	if err := cfg.Run.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "run.json", `{"engine":"polychord","polychord_library":"/opt/lib/libchord.so","run":{"ndims":3,"do_clustering":false,"max_ndead":500}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg = cfg.Resolve()
	if cfg.Engine != sampler.PolychordEngine || cfg.PolychordLibrary != "/opt/lib/libchord.so" || cfg.PolychordSymbol != sampler.DefaultPolychordSymbol {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Run.DoClustering || cfg.Run.MaxNDead != 500 || cfg.Run.NLive != 75 {
		t.Fatalf("unexpected run: %+v", cfg.Run)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "run.toml", "likelihood = \"himmelblau\"\nlog_level = \"debug\"\n\n[run]\nndims = 2\nnum_repeats = 4\nequals = false\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg = cfg.Resolve()
	if cfg.Likelihood != "himmelblau" || cfg.Run.NumRepeats != 4 || cfg.Run.Equals || cfg.Run.NLive != 50 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if lvl, _ := cfg.Level(); lvl != zerolog.DebugLevel {
		t.Fatalf("level=%v", lvl)
	}
}

func TestLoadYAML_CORS(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "run.yaml", "metrics_addr: 127.0.0.1:9100\ncors_enabled: true\ncors_origins:\n  - https://dash.test\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.CORSEnabled || len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://dash.test" {
		t.Fatalf("cors: enabled=%v origins=%v", cfg.CORSEnabled, cfg.CORSOrigins)
	}
	if Default().CORSEnabled {
		t.Fatalf("cors must be opt-in")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Engine != sampler.DefaultEngine || cfg.Run.NLive != 0 || !cfg.Run.WriteResume {
		t.Fatalf("unexpected default: %+v", cfg)
	}
	if lvl, err := cfg.Level(); err != nil || lvl != zerolog.InfoLevel {
		t.Fatalf("level=%v err=%v", lvl, err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	p = writeTempFile(t, d, "lvl.yaml", "log_level: loud\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected log level error")
	}
}
