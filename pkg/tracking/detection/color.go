package detection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-balltrack/pkg/debug"
	"github.com/teslashibe/go-balltrack/pkg/frame"
	"github.com/teslashibe/go-balltrack/pkg/kalman"
)

// ColorConfig holds the color detector thresholds and filter settings.
type ColorConfig struct {
	// Stride is the sampling step in pixels along both axes.
	Stride int

	// Ball color classification (8-bit channels).
	MinGreen         int
	MaxBlue          int
	MinBrightness    int // R+G+B
	MinGreenOverRed  int
	MinGreenOverBlue int
	MinRed           int

	// ShoulderMargin is added to the shoulder hint; samples left of
	// shoulderX+ShoulderMargin are ignored.
	ShoulderMargin float64

	// GateRadius is the normalized search radius around the predicted
	// position once a fix exists.
	GateRadius float64

	// LeadTime advances the emitted position to offset display latency.
	LeadTime time.Duration

	// MaxMisses is how many consecutive empty frames are bridged by
	// prediction before the fix is dropped.
	MaxMisses int

	// Frame interval clamp and the interval assumed for the first frame.
	MinDt     time.Duration
	MaxDt     time.Duration
	DefaultDt time.Duration

	Kalman kalman.Config

	Logger *slog.Logger
}

// DefaultColorConfig returns thresholds tuned for an optic-yellow ball
// under outdoor light.
func DefaultColorConfig() ColorConfig {
	return ColorConfig{
		Stride:           2,
		MinGreen:         150,
		MaxBlue:          130,
		MinBrightness:    330,
		MinGreenOverRed:  15,
		MinGreenOverBlue: 70,
		MinRed:           80,
		ShoulderMargin:   0.05,
		GateRadius:       0.12,
		LeadTime:         50 * time.Millisecond,
		MaxMisses:        3,
		MinDt:            time.Second / 240,
		MaxDt:            time.Second / 15,
		DefaultDt:        time.Second / 30,
		Kalman:           kalman.DefaultConfig(),
	}
}

// ColorDetector finds the ball by sparse color thresholding and smooths the
// centroid with one Kalman filter per axis. Detect is synchronous; Reset
// may be called from any goroutine.
type ColorDetector struct {
	mu     sync.Mutex
	config ColorConfig
	logger *slog.Logger

	fx, fy *kalman.Filter
	misses int
	state  State

	lastTS time.Duration
	hasTS  bool
}

// gate restricts the search to a circle around the predicted position.
type gate struct {
	center Point
	radius float64
	active bool
}

func (g gate) admits(p Point) bool {
	return !g.active || g.center.Dist(p) <= g.radius
}

// NewColor creates a color detector with no fix.
func NewColor(config ColorConfig) *ColorDetector {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ColorDetector{
		config: config,
		logger: logger.With("component", "color"),
		fx:     kalman.New(config.Kalman),
		fy:     kalman.New(config.Kalman),
	}
}

// Detect processes one frame and returns the smoothed, lead-adjusted ball
// position. shoulderX is an optional normalized gating hint. An unreadable
// frame counts as a frame without matches.
func (d *ColorDetector) Detect(f frame.Frame, shoulderX *float64) (Point, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dt := d.frameInterval(f.Timestamp)

	g := gate{radius: d.config.GateRadius}
	if d.fx.Initialized() {
		g.active = true
		g.center = Point{X: d.fx.Extrapolate(dt), Y: d.fy.Extrapolate(dt)}
	}

	m, ok := d.scan(f, shoulderX, g)
	if ok {
		d.measure(m, dt)
	} else if !d.coast(dt) {
		return Point{}, false
	}

	lead := d.config.LeadTime.Seconds()
	return Point{X: d.fx.Extrapolate(lead), Y: d.fy.Extrapolate(lead)}.Clamp(), true
}

// measure folds a centroid into the filters.
func (d *ColorDetector) measure(m Point, dt float64) {
	if !d.fx.Initialized() {
		d.fx.Reset(m.X)
		d.fy.Reset(m.Y)
		debug.TrackLog("color fix acquired", "x", m.X, "y", m.Y)
	} else {
		d.fx.Predict(dt)
		d.fy.Predict(dt)
		d.fx.Update(m.X)
		d.fy.Update(m.Y)
	}
	d.misses = 0
	d.state = Tracking
}

// coast bridges a frame without matches. It returns false once the fix is
// gone.
func (d *ColorDetector) coast(dt float64) bool {
	if !d.fx.Initialized() {
		return false
	}
	if d.misses >= d.config.MaxMisses {
		d.logger.Debug("fix lost", "misses", d.misses)
		d.clearLocked()
		return false
	}
	d.misses++
	d.fx.Predict(dt)
	d.fy.Predict(dt)
	d.state = Predicted
	return true
}

// scan returns the centroid of all admitted ball-colored samples.
func (d *ColorDetector) scan(f frame.Frame, shoulderX *float64, g gate) (Point, bool) {
	if err := f.Validate(); err != nil {
		d.logger.Debug("frame skipped", "error", err)
		return Point{}, false
	}

	stride := d.config.Stride
	if stride < 1 {
		stride = 1
	}
	minX := -1.0
	if shoulderX != nil {
		minX = *shoulderX + d.config.ShoulderMargin
	}

	var sumX, sumY float64
	n := 0
	w, h := float64(f.Width), float64(f.Height)
	for y := 0; y < f.Height; y += stride {
		ny := 1 - (float64(y)+0.5)/h
		for x := 0; x < f.Width; x += stride {
			nx := (float64(x) + 0.5) / w
			if nx < minX {
				continue
			}
			if !d.isBall(f.RGB(x, y)) {
				continue
			}
			p := Point{X: nx, Y: ny}
			if !g.admits(p) {
				continue
			}
			sumX += p.X
			sumY += p.Y
			n++
		}
	}

	debug.TrackLog("color scan", "matches", n, "gated", g.active)
	if n == 0 {
		return Point{}, false
	}
	return Point{X: sumX / float64(n), Y: sumY / float64(n)}, true
}

func (d *ColorDetector) isBall(r8, g8, b8 uint8) bool {
	c := &d.config
	r, g, b := int(r8), int(g8), int(b8)
	return g >= c.MinGreen &&
		b <= c.MaxBlue &&
		r+g+b >= c.MinBrightness &&
		g-r >= c.MinGreenOverRed &&
		g-b >= c.MinGreenOverBlue &&
		r >= c.MinRed
}

// frameInterval estimates dt in seconds from consecutive timestamps.
func (d *ColorDetector) frameInterval(ts time.Duration) float64 {
	dt := d.config.DefaultDt
	if d.hasTS {
		dt = ts - d.lastTS
	}
	d.lastTS = ts
	d.hasTS = true

	if dt < d.config.MinDt {
		dt = d.config.MinDt
	}
	if dt > d.config.MaxDt {
		dt = d.config.MaxDt
	}
	return dt.Seconds()
}

// Reset drops the fix and the timestamp history.
func (d *ColorDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
	d.hasTS = false
}

func (d *ColorDetector) clearLocked() {
	d.fx.Clear()
	d.fy.Clear()
	d.misses = 0
	d.state = NoFix
}

// State returns the tracking state after the last frame.
func (d *ColorDetector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Misses returns the number of consecutive frames bridged by prediction.
func (d *ColorDetector) Misses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.misses
}

// Velocity returns the filtered velocity in normalized units per second.
func (d *ColorDetector) Velocity() (vx, vy float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fx.Velocity(), d.fy.Velocity()
}

// Filtered returns the unadvanced filter position.
func (d *ColorDetector) Filtered() (Point, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.fx.Initialized() {
		return Point{}, false
	}
	return Point{X: d.fx.Position(), Y: d.fy.Position()}, true
}

// Config returns the current configuration.
func (d *ColorDetector) Config() ColorConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// SetConfig replaces thresholds and timing. Filter noise changes take effect
// at the next fix.
func (d *ColorDetector) SetConfig(config ColorConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if config.Logger == nil {
		config.Logger = d.config.Logger
	}
	d.config = config
	if !d.fx.Initialized() {
		d.fx = kalman.New(config.Kalman)
		d.fy = kalman.New(config.Kalman)
	}
}
