// Package detection provides the tennis ball detection backends: a color
// threshold detector smoothed by per-axis Kalman filters, and a temporal grid
// detector that decodes neural confidence/offset tensors.
package detection

import (
	"fmt"
	"math"
	"time"
)

// Point is a normalized image position in [0,1]² with a bottom-left origin.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp limits both coordinates to [0,1]. NaN maps to 0.
func (p Point) Clamp() Point {
	return Point{X: clamp01(p.X), Y: clamp01(p.Y)}
}

// Dist returns the Euclidean distance to q in normalized units.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// String implements fmt.Stringer.
func (p Point) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}

// FromPixel converts a top-left-origin pixel coordinate to a normalized
// bottom-left-origin Point. It does not clamp.
func FromPixel(px, py float64, width, height int) Point {
	return Point{
		X: px / float64(width),
		Y: 1 - py/float64(height),
	}
}

// Sample is one decoded temporal slot of a grid inference.
type Sample struct {
	Slot       int           `json:"slot"`       // temporal slot, 0 = oldest
	Timestamp  time.Duration `json:"timestamp"`  // timestamp of the frame buffered in that slot
	Position   Point         `json:"position"`   // valid only when Found
	Found      bool          `json:"found"`      // confidence reached the threshold
	Confidence float64       `json:"confidence"` // maximum cell confidence, reported even when not Found
}

// State is the per-backend tracking state.
type State int

const (
	// NoFix is both the initial state and the state after losing the ball.
	NoFix State = iota
	// Tracking means the last frame produced a measurement.
	Tracking
	// Predicted means the position is being bridged by prediction alone.
	Predicted
)

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for _, v := range []State{NoFix, Tracking, Predicted} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("detection: unknown state %q", b)
}

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case NoFix:
		return "no_fix"
	case Tracking:
		return "tracking"
	case Predicted:
		return "predicted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
