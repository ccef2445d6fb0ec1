package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-balltrack/pkg/gridnet"
	"github.com/teslashibe/go-balltrack/pkg/tracking"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "balltrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func noEnv(string) string { return "" }

func TestDefaultTrackingConfig(t *testing.T) {
	cfg, err := Default().TrackingConfig()
	require.NoError(t, err)

	want := tracking.DefaultConfig()
	assert.Equal(t, tracking.BackendColor, cfg.Backend)
	assert.Equal(t, want.Color.MinGreen, cfg.Color.MinGreen)
	assert.Equal(t, want.Grid.Slot, cfg.Grid.Slot)
	assert.Equal(t, want.Grid.Geometry, cfg.Grid.Geometry)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
backend: neural
addr: ":9000"
log:
  level: debug
  file: /tmp/balltrack.log
model:
  path: /opt/models/gtn.onnx
  layout: nchw
grid:
  slot: 2
  threshold: 0.6
color:
  min_green: 160
  lead_time: 80ms
  max_misses: 0
  gate_radius: 0.2
`)
	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", f.Addr)
	assert.Equal(t, "debug", f.LogOptions().Level)
	assert.Equal(t, "/tmp/balltrack.log", f.LogOptions().File)

	cfg, err := f.TrackingConfig()
	require.NoError(t, err)
	assert.Equal(t, tracking.BackendGrid, cfg.Backend)
	assert.Equal(t, 2, cfg.Grid.Slot)
	assert.InDelta(t, 0.6, cfg.Grid.Geometry.Threshold, 1e-12)
	assert.Equal(t, 160, cfg.Color.MinGreen)
	assert.Equal(t, 80*time.Millisecond, cfg.Color.LeadTime)
	assert.Equal(t, 0, cfg.Color.MaxMisses, "explicit zero miss bound is kept")
	assert.InDelta(t, 0.2, cfg.Color.GateRadius, 1e-12)
	// Unset fields keep defaults
	assert.Equal(t, tracking.DefaultConfig().Color.MaxBlue, cfg.Color.MaxBlue)

	mc, err := f.ModelConfig()
	require.NoError(t, err)
	assert.Equal(t, "/opt/models/gtn.onnx", mc.ModelPath)
	assert.Equal(t, gridnet.NCHW, mc.Layout)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Model, f.Model)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "backend: [color"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvBackend:  "grid",
		EnvModel:    "/data/model.onnx",
		EnvAddr:     ":7000",
		EnvLogLevel: "warn",
	}
	f := Default()
	f.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "grid", f.Backend)
	assert.Equal(t, "/data/model.onnx", f.Model.Path)
	assert.Equal(t, ":7000", f.Addr)
	assert.Equal(t, "warn", f.Log.Level)

	g := Default()
	g.ApplyEnv(noEnv)
	assert.Equal(t, Default(), g)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvBackend, "color")
	f, err := Load(writeConfig(t, "backend: grid\n"))
	require.NoError(t, err)
	assert.Equal(t, "color", f.Backend)
}

func TestTrackingConfigErrors(t *testing.T) {
	slot := 7
	tests := []struct {
		name   string
		mutate func(*File)
	}{
		{"unknown backend", func(f *File) { f.Backend = "sonar" }},
		{"slot out of range", func(f *File) { f.Grid.Slot = &slot }},
		{"unknown resizer", func(f *File) { f.Grid.Resizer = "bicubic" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Default()
			tt.mutate(&f)
			_, err := f.TrackingConfig()
			assert.Error(t, err)
		})
	}
}

func TestModelConfigLayoutError(t *testing.T) {
	f := Default()
	f.Model.Layout = "nwhc"
	_, err := f.ModelConfig()
	assert.Error(t, err)
}

func TestOpenCVResizerSelected(t *testing.T) {
	f := Default()
	f.Grid.Resizer = ResizerOpenCV
	cfg, err := f.TrackingConfig()
	require.NoError(t, err)
	assert.IsType(t, gridnet.Resizer{}, cfg.Grid.Resizer)
}
