package detection

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrInputUnavailable is returned when a frame buffer cannot be read.
	ErrInputUnavailable = errors.New("detection: input unavailable")

	// ErrResize is returned when a frame could not be resized for the model.
	ErrResize = errors.New("detection: resize failed")

	// ErrModelUnavailable is returned when the model failed to load.
	ErrModelUnavailable = errors.New("detection: model unavailable")

	// ErrNotReady is returned when inference is requested before the
	// frame buffer is full.
	ErrNotReady = errors.New("detection: not ready")

	// ErrInferenceInFlight is returned when a previous inference has not finished.
	ErrInferenceInFlight = errors.New("detection: inference in flight")

	// ErrDecodeAmbiguity is returned when tensor axes cannot be identified.
	ErrDecodeAmbiguity = errors.New("detection: ambiguous tensor layout")

	// ErrStaleResult is returned for an inference that completed after a reset.
	ErrStaleResult = errors.New("detection: result invalidated by reset")
)

// AxisError describes why a tensor shape could not be mapped to
// (batch, temporal, rows, cols).
type AxisError struct {
	Shape  []int
	Want   GridShape
	Reason string
}

// Error implements the error interface.
func (e *AxisError) Error() string {
	return fmt.Sprintf("detection: cannot resolve axes of shape %v (want %dx%dx%d): %s",
		e.Shape, e.Want.Temporal, e.Want.Rows, e.Want.Cols, e.Reason)
}

// Unwrap returns ErrDecodeAmbiguity so callers can use errors.Is.
func (e *AxisError) Unwrap() error {
	return ErrDecodeAmbiguity
}
