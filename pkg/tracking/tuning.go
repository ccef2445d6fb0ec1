package tracking

import (
	"fmt"
	"time"
)

// TuningParams holds the real-time adjustable tracking parameters.
// These can be modified via the tuning API without restarting.
type TuningParams struct {
	// Color classification (8-bit channels)
	MinGreen         int `json:"min_green"`
	MaxBlue          int `json:"max_blue"`
	MinBrightness    int `json:"min_brightness"`
	MinGreenOverRed  int `json:"min_green_over_red"`
	MinGreenOverBlue int `json:"min_green_over_blue"`
	MinRed           int `json:"min_red"`

	// Color gating and smoothing
	Stride           int     `json:"stride"`
	ShoulderMargin   float64 `json:"shoulder_margin"`
	GateRadius       float64 `json:"gate_radius"`
	LeadTimeMs       float64 `json:"lead_time_ms"`
	MaxMisses        int     `json:"max_misses"`
	ProcessNoise     float64 `json:"process_noise"`
	MeasurementNoise float64 `json:"measurement_noise"`

	// Grid decoding
	Threshold float64 `json:"threshold"`
	Slot      *int    `json:"slot,omitempty"`
}

// GetTuningParams returns current tuning parameters from the tracker.
func (t *Tracker) GetTuningParams() TuningParams {
	c := t.color.Config()
	g := t.grid.Config()
	slot := g.Slot

	return TuningParams{
		MinGreen:         c.MinGreen,
		MaxBlue:          c.MaxBlue,
		MinBrightness:    c.MinBrightness,
		MinGreenOverRed:  c.MinGreenOverRed,
		MinGreenOverBlue: c.MinGreenOverBlue,
		MinRed:           c.MinRed,
		Stride:           c.Stride,
		ShoulderMargin:   c.ShoulderMargin,
		GateRadius:       c.GateRadius,
		LeadTimeMs:       float64(c.LeadTime) / float64(time.Millisecond),
		MaxMisses:        c.MaxMisses,
		ProcessNoise:     c.Kalman.ProcessNoise,
		MeasurementNoise: c.Kalman.MeasurementNoise,
		Threshold:        g.Geometry.Threshold,
		Slot:             &slot,
	}
}

// SetTuningParams updates tuning parameters at runtime.
// Only non-zero values are applied.
func (t *Tracker) SetTuningParams(params TuningParams) error {
	if params.Slot != nil {
		if n := t.grid.Config().Geometry.Grid.Temporal; *params.Slot < 0 || *params.Slot >= n {
			return fmt.Errorf("tracking: slot %d out of range [0,%d)", *params.Slot, n)
		}
	}

	c := t.color.Config()

	// Color classification
	if params.MinGreen > 0 {
		c.MinGreen = clampInt(params.MinGreen, 0, 255)
	}
	if params.MaxBlue > 0 {
		c.MaxBlue = clampInt(params.MaxBlue, 0, 255)
	}
	if params.MinBrightness > 0 {
		c.MinBrightness = clampInt(params.MinBrightness, 0, 3*255)
	}
	if params.MinGreenOverRed > 0 {
		c.MinGreenOverRed = clampInt(params.MinGreenOverRed, 0, 255)
	}
	if params.MinGreenOverBlue > 0 {
		c.MinGreenOverBlue = clampInt(params.MinGreenOverBlue, 0, 255)
	}
	if params.MinRed > 0 {
		c.MinRed = clampInt(params.MinRed, 0, 255)
	}

	// Gating and smoothing
	if params.Stride > 0 {
		c.Stride = clampInt(params.Stride, 1, MaxStride)
	}
	if params.ShoulderMargin > 0 {
		c.ShoulderMargin = clamp(params.ShoulderMargin, 0, MaxShoulderMargin)
	}
	if params.GateRadius > 0 {
		c.GateRadius = clamp(params.GateRadius, 0, MaxGateRadius)
	}
	if params.LeadTimeMs > 0 {
		lead := time.Duration(params.LeadTimeMs * float64(time.Millisecond))
		if lead > MaxLeadTime {
			lead = MaxLeadTime
		}
		c.LeadTime = lead
	}
	if params.MaxMisses > 0 {
		c.MaxMisses = clampInt(params.MaxMisses, 0, MaxMissBound)
	}
	if params.ProcessNoise > 0 {
		c.Kalman.ProcessNoise = params.ProcessNoise
	}
	if params.MeasurementNoise > 0 {
		c.Kalman.MeasurementNoise = params.MeasurementNoise
	}
	t.color.SetConfig(c)

	// Grid decoding
	if params.Threshold > 0 {
		t.grid.SetThreshold(clamp(params.Threshold, 0, 1))
	}
	if params.Slot != nil {
		if err := t.grid.SetSlot(*params.Slot); err != nil {
			return err
		}
		t.mu.Lock()
		t.config.Grid.Slot = *params.Slot
		t.mu.Unlock()
	}

	t.logger.Info("tuning updated", "params", params)
	return nil
}
