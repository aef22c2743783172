package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"chordrun/internal/sampler"
)

// Config holds everything a chordrun invocation needs besides the likelihood
// code itself. Keys absent from the file keep their Default values.
type Config struct {
	Engine           string `json:"engine" yaml:"engine" toml:"engine"`
	Likelihood       string `json:"likelihood" yaml:"likelihood" toml:"likelihood"`
	PolychordLibrary string `json:"polychord_library" yaml:"polychord_library" toml:"polychord_library"`
	PolychordSymbol  string `json:"polychord_symbol" yaml:"polychord_symbol" toml:"polychord_symbol"`
	LogLevel         string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogJSON          bool   `json:"log_json" yaml:"log_json" toml:"log_json"`
	// MetricsAddr enables the status server when non-empty.
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr"`
	// CORS for the status server. Empty origins with CORSEnabled allow any origin.
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	Run sampler.Settings `json:"run" yaml:"run" toml:"run"`
}

// Default returns the configuration used when no file is given. Run carries
// the dimension-independent defaults; NLive and friends are filled once NDims
// is known (see Resolve).
func Default() Config {
	return Config{
		Engine:           sampler.DefaultEngine,
		Likelihood:       "gaussian",
		PolychordLibrary: sampler.DefaultPolychordLibrary,
		PolychordSymbol:  sampler.DefaultPolychordSymbol,
		LogLevel:         "info",
		Run:              sampler.DefaultSettings(0, 0),
	}
}

// Load reads a configuration file based on its extension on top of Default.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if _, err := cfg.Level(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Resolve fills the dimension-dependent run defaults (nlive = 25*ndims,
// num_repeats = 5*ndims, update_files = nlive) for fields left at zero.
func (c Config) Resolve() Config {
	c.Run = c.Run.WithDimensionDefaults()
	return c
}

// Level parses LogLevel. Empty means info.
func (c Config) Level() (zerolog.Level, error) {
	if strings.TrimSpace(c.LogLevel) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
