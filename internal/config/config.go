// Package config holds interpreter limits and the YAML runtime configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the top-level glox.yaml configuration.
type Config struct {
	Debug DebugConfig `yaml:"debug"`
	GC    GCConfig    `yaml:"gc"`
	Log   LogConfig   `yaml:"log"`
	REPL  REPLConfig  `yaml:"repl"`
}

type DebugConfig struct {
	// PrintCode disassembles every function once it compiles cleanly.
	PrintCode bool `yaml:"print_code"`
	// TraceExecution prints the stack and next instruction before each dispatch.
	TraceExecution bool `yaml:"trace_execution"`
}

// GCConfig controls when the heap collects.
type GCConfig struct {
	// Stress collects before every allocation.
	Stress bool `yaml:"stress"`
	// Log emits a trace record for every allocation and free.
	Log bool `yaml:"log"`
	// InitialThreshold is the live-object count that triggers the first
	// collection, and the floor for every later threshold.
	InitialThreshold int `yaml:"initial_threshold"`
	// GrowthFactor scales the survivor count into the next threshold.
	GrowthFactor int `yaml:"growth_factor"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

type REPLConfig struct {
	// History is the history file. Relative paths are resolved against the
	// home directory; "-" disables history.
	History string `yaml:"history"`
	Prompt  string `yaml:"prompt"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		GC: GCConfig{
			InitialThreshold: DefaultInitialGC,
			GrowthFactor:     DefaultGrowthFactor,
		},
		Log: LogConfig{
			Level:  logrus.WarnLevel.String(),
			Format: "text",
		},
		REPL: REPLConfig{
			History: DefaultHistoryFile,
			Prompt:  DefaultPrompt,
		},
	}
}

// Load reads and parses a glox.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes YAML over the defaults, so omitted keys keep their default.
// Unknown keys are rejected. The path argument is used only for messages.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FindConfig searches for a config file starting from dir and walking up
// to parent directories. It returns "" and a nil error if none is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	if c.GC.InitialThreshold < 1 {
		return fmt.Errorf("%w: gc.initial_threshold must be positive, got %d", ErrInvalidConfig, c.GC.InitialThreshold)
	}
	if c.GC.GrowthFactor < 1 {
		return fmt.Errorf("%w: gc.growth_factor must be at least 1, got %d", ErrInvalidConfig, c.GC.GrowthFactor)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.REPL.Prompt == "" {
		return fmt.Errorf("%w: repl.prompt must not be empty", ErrInvalidConfig)
	}
	return nil
}

// HistoryPath resolves REPL.History against home. It returns "" when
// history is disabled.
func (c *Config) HistoryPath(home string) string {
	h := c.REPL.History
	if h == "" || h == "-" {
		return ""
	}
	if filepath.IsAbs(h) || home == "" {
		return h
	}
	return filepath.Join(home, h)
}
