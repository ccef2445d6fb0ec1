package tracking

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/teslashibe/go-balltrack/pkg/tracking/detection"
)

// Backend names a detection strategy.
type Backend string

const (
	// BackendColor is the color threshold detector with Kalman smoothing.
	BackendColor Backend = "color"
	// BackendGrid is the five-frame neural grid detector.
	BackendGrid Backend = "grid"
)

// ParseBackend maps a backend name to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case BackendColor:
		return BackendColor, nil
	case BackendGrid, "neural":
		return BackendGrid, nil
	default:
		return "", fmt.Errorf("tracking: unknown backend %q", s)
	}
}

// Config holds all tunable parameters for ball tracking
type Config struct {
	// Backend is active at construction. It can be switched at runtime.
	Backend Backend

	// Color detector thresholds and filter noise
	Color detection.ColorConfig

	// Grid detector geometry, default slot and resizer
	Grid detection.GridConfig

	Logger *slog.Logger
}

// DefaultConfig returns the color backend, which needs no model file.
func DefaultConfig() Config {
	return Config{
		Backend: BackendColor,
		Color:   detection.DefaultColorConfig(),
		Grid:    detection.DefaultGridConfig(),
	}
}

// LiveConfig returns the grid backend decoding the newest slot for the
// lowest latency on a live camera view.
func LiveConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendGrid
	cfg.Grid.Slot = cfg.Grid.Geometry.Grid.Temporal - 1
	return cfg
}

// ReplayConfig returns the grid backend decoding the middle slot, trading
// two frames of latency for lookahead on recorded video.
func ReplayConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendGrid
	cfg.Grid.Slot = cfg.Grid.Geometry.Grid.Temporal / 2
	return cfg
}

// Validate reports configuration errors that would make a backend unusable.
func (c Config) Validate() error {
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	g := c.Grid.Geometry
	if g.Grid.Temporal <= 0 || g.Grid.Rows <= 0 || g.Grid.Cols <= 0 {
		return fmt.Errorf("tracking: invalid grid %dx%dx%d", g.Grid.Temporal, g.Grid.Rows, g.Grid.Cols)
	}
	if g.InputWidth <= 0 || g.InputHeight <= 0 {
		return fmt.Errorf("tracking: invalid model input %dx%d", g.InputWidth, g.InputHeight)
	}
	if c.Grid.Slot < 0 || c.Grid.Slot >= g.Grid.Temporal {
		return fmt.Errorf("tracking: slot %d out of range [0,%d)", c.Grid.Slot, g.Grid.Temporal)
	}
	if c.Color.MaxMisses < 0 {
		return fmt.Errorf("tracking: negative miss bound")
	}
	if c.Color.MinDt <= 0 || c.Color.MaxDt < c.Color.MinDt {
		return fmt.Errorf("tracking: invalid frame interval clamp [%v, %v]", c.Color.MinDt, c.Color.MaxDt)
	}
	return nil
}
