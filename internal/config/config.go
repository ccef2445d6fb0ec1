// Package config loads go-balltrack settings from YAML with environment
// overrides and converts them into package configs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-balltrack/internal/log"
	"github.com/teslashibe/go-balltrack/pkg/gridnet"
	"github.com/teslashibe/go-balltrack/pkg/overlay"
	"github.com/teslashibe/go-balltrack/pkg/tracking"
)

// Environment overrides.
const (
	EnvBackend  = "BALLTRACK_BACKEND"
	EnvModel    = "BALLTRACK_MODEL"
	EnvAddr     = "BALLTRACK_ADDR"
	EnvLogLevel = "BALLTRACK_LOG_LEVEL"
)

// Resizer names.
const (
	ResizerAspect = "aspect" // pure Go, x/image/draw
	ResizerOpenCV = "opencv" // gocv, INTER_AREA
)

// File is the on-disk configuration. Zero fields keep their defaults.
type File struct {
	Backend string `yaml:"backend"`
	Addr    string `yaml:"addr"`

	Log   Log   `yaml:"log"`
	Model Model `yaml:"model"`
	Grid  Grid  `yaml:"grid"`
	Color Color `yaml:"color"`
}

// Log configures internal/log.
type Log struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Model locates the neural grid network.
type Model struct {
	Path   string `yaml:"path"`
	Layout string `yaml:"layout"` // nhwc or nchw
}

// Grid configures the neural grid backend.
type Grid struct {
	Slot        *int    `yaml:"slot"`
	Threshold   float64 `yaml:"threshold"`
	InputWidth  int     `yaml:"input_width"`
	InputHeight int     `yaml:"input_height"`
	Resizer     string  `yaml:"resizer"`
}

// Color configures the color threshold backend.
type Color struct {
	MinGreen         int           `yaml:"min_green"`
	MaxBlue          int           `yaml:"max_blue"`
	MinBrightness    int           `yaml:"min_brightness"`
	MinGreenOverRed  int           `yaml:"min_green_over_red"`
	MinGreenOverBlue int           `yaml:"min_green_over_blue"`
	MinRed           int           `yaml:"min_red"`
	Stride           int           `yaml:"stride"`
	ShoulderMargin   float64       `yaml:"shoulder_margin"`
	GateRadius       float64       `yaml:"gate_radius"`
	LeadTime         time.Duration `yaml:"lead_time"`
	MaxMisses        *int          `yaml:"max_misses"`
	ProcessNoise     float64       `yaml:"process_noise"`
	MeasurementNoise float64       `yaml:"measurement_noise"`
}

// Default returns the built-in configuration.
func Default() File {
	return File{
		Backend: string(tracking.BackendColor),
		Addr:    overlay.DefaultAddr,
		Log:     Log{Level: "info", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 14},
		Model:   Model{Path: gridnet.DefaultConfig().ModelPath, Layout: "nhwc"},
		Grid:    Grid{Resizer: ResizerAspect},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (File, error) {
	f := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return f, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &f); err != nil {
				return f, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	f.ApplyEnv(os.Getenv)
	return f, nil
}

// ApplyEnv overrides fields from the BALLTRACK_* variables.
func (f *File) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvBackend); v != "" {
		f.Backend = v
	}
	if v := getenv(EnvModel); v != "" {
		f.Model.Path = v
	}
	if v := getenv(EnvAddr); v != "" {
		f.Addr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		f.Log.Level = v
	}
}

// LogOptions returns the logger options.
func (f File) LogOptions() log.Options {
	return log.Options{
		Level:      f.Log.Level,
		JSON:       f.Log.JSON,
		File:       f.Log.File,
		MaxSizeMB:  f.Log.MaxSizeMB,
		MaxBackups: f.Log.MaxBackups,
		MaxAgeDays: f.Log.MaxAgeDays,
		Compress:   f.Log.Compress,
	}
}

// ModelConfig returns the gocv model configuration.
func (f File) ModelConfig() (gridnet.Config, error) {
	cfg := gridnet.DefaultConfig()
	if f.Model.Path != "" {
		cfg.ModelPath = f.Model.Path
	}
	switch strings.ToLower(f.Model.Layout) {
	case "", "nhwc":
		cfg.Layout = gridnet.NHWC
	case "nchw":
		cfg.Layout = gridnet.NCHW
	default:
		return cfg, fmt.Errorf("unknown model layout %q", f.Model.Layout)
	}
	if f.Grid.InputWidth > 0 {
		cfg.Width = f.Grid.InputWidth
	}
	if f.Grid.InputHeight > 0 {
		cfg.Height = f.Grid.InputHeight
	}
	return cfg, nil
}

// TrackingConfig converts the file into a validated tracking.Config.
func (f File) TrackingConfig() (tracking.Config, error) {
	cfg := tracking.DefaultConfig()

	b, err := tracking.ParseBackend(f.Backend)
	if err != nil {
		return cfg, err
	}
	cfg.Backend = b

	g := &cfg.Grid
	if f.Grid.InputWidth > 0 {
		g.Geometry.InputWidth = f.Grid.InputWidth
	}
	if f.Grid.InputHeight > 0 {
		g.Geometry.InputHeight = f.Grid.InputHeight
	}
	if f.Grid.Threshold > 0 {
		g.Geometry.Threshold = f.Grid.Threshold
	}
	if f.Grid.Slot != nil {
		g.Slot = *f.Grid.Slot
	}
	switch strings.ToLower(f.Grid.Resizer) {
	case "", ResizerAspect:
	case ResizerOpenCV:
		g.Resizer = gridnet.NewResizer()
	default:
		return cfg, fmt.Errorf("unknown resizer %q", f.Grid.Resizer)
	}

	c := &cfg.Color
	setInt(&c.MinGreen, f.Color.MinGreen)
	setInt(&c.MaxBlue, f.Color.MaxBlue)
	setInt(&c.MinBrightness, f.Color.MinBrightness)
	setInt(&c.MinGreenOverRed, f.Color.MinGreenOverRed)
	setInt(&c.MinGreenOverBlue, f.Color.MinGreenOverBlue)
	setInt(&c.MinRed, f.Color.MinRed)
	setInt(&c.Stride, f.Color.Stride)
	setFloat(&c.ShoulderMargin, f.Color.ShoulderMargin)
	setFloat(&c.GateRadius, f.Color.GateRadius)
	setFloat(&c.Kalman.ProcessNoise, f.Color.ProcessNoise)
	setFloat(&c.Kalman.MeasurementNoise, f.Color.MeasurementNoise)
	if f.Color.LeadTime > 0 {
		c.LeadTime = f.Color.LeadTime
	}
	if f.Color.MaxMisses != nil {
		c.MaxMisses = *f.Color.MaxMisses
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}
