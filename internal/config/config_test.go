package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Full(t *testing.T) {
	yaml := `
debug:
  print_code: true
  trace_execution: true
gc:
  stress: true
  log: true
  initial_threshold: 16
  growth_factor: 3
log:
  level: debug
  format: json
repl:
  history: "-"
  prompt: "lox> "
`
	cfg, err := Parse([]byte(yaml), "test.yaml")
	require.NoError(t, err)
	assert.True(t, cfg.Debug.PrintCode)
	assert.True(t, cfg.Debug.TraceExecution)
	assert.True(t, cfg.GC.Stress)
	assert.True(t, cfg.GC.Log)
	assert.Equal(t, 16, cfg.GC.InitialThreshold)
	assert.Equal(t, 3, cfg.GC.GrowthFactor)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "lox> ", cfg.REPL.Prompt)
	assert.Equal(t, "", cfg.HistoryPath("/home/u"))
}

func TestParse_KeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("gc:\n  stress: true\n"), "test.yaml")
	require.NoError(t, err)
	assert.True(t, cfg.GC.Stress)
	assert.Equal(t, DefaultInitialGC, cfg.GC.InitialThreshold)
	assert.Equal(t, DefaultPrompt, cfg.REPL.Prompt)

	cfg, err = Parse(nil, "empty.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "gc:\n  stres: true\n", "field stres not found"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"bad threshold", "gc:\n  initial_threshold: 0\n", "gc.initial_threshold"},
		{"bad growth", "gc:\n  growth_factor: 0\n", "gc.growth_factor"},
		{"empty prompt", "repl:\n  prompt: \"\"\n", "repl.prompt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "bad.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "bad.yaml")
		})
	}
}

func TestLoadAndFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path := filepath.Join(root, "glox.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gc:\n  stress: true\n"), 0o644))

	found, err := FindConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	cfg, err := Load(found)
	require.NoError(t, err)
	assert.True(t, cfg.GC.Stress)

	_, err = Load(filepath.Join(root, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHistoryPath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/home/u", DefaultHistoryFile), cfg.HistoryPath("/home/u"))
	cfg.REPL.History = "/tmp/h"
	assert.Equal(t, "/tmp/h", cfg.HistoryPath("/home/u"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLoggerTo(&buf, LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log.WithField("k", 1).Info("hello")
	log.Debug("dropped")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.NotContains(t, buf.String(), "dropped")

	_, err = NewLoggerTo(&buf, LogConfig{Level: "nope"})
	assert.Error(t, err)
	_, err = NewLoggerTo(&buf, LogConfig{Level: "info", Format: "xml"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
