// Package tracking orchestrates the ball detection backends: it feeds frames
// to the active backend, offloads neural inference, and publishes one
// normalized position per frame to its consumers.
package tracking

import "time"

// Bounds applied to runtime tuning values.
const (
	// MaxLeadTime caps the forward extrapolation of the color detector.
	// Longer leads overshoot on bounces.
	MaxLeadTime = 200 * time.Millisecond

	// MaxGateRadius is a third of the frame; wider gates let distractors in.
	MaxGateRadius = 0.33

	// MaxMissBound caps the occlusion bridge at roughly half a second at 30 fps.
	MaxMissBound = 15

	// MaxStride keeps a 3 px ball visible to the sparse scan.
	MaxStride = 3

	// MaxShoulderMargin limits how far right of the shoulder the gate starts.
	MaxShoulderMargin = 0.25
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
