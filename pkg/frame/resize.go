package frame

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ErrResize is returned when a frame cannot be resized.
var ErrResize = errors.New("frame: resize failed")

// Resizer produces an aspect-filled, center-cropped copy of a frame at
// exactly width x height, in the same pixel format and with the same
// timestamp.
type Resizer interface {
	Resize(f Frame, width, height int) (Frame, error)
}

// AspectFill is a pure Go Resizer backed by golang.org/x/image/draw.
type AspectFill struct {
	// Interpolator defaults to draw.ApproxBiLinear.
	Interpolator draw.Interpolator
}

// Resize implements Resizer.
func (a AspectFill) Resize(f Frame, width, height int) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("%w: target %dx%d", ErrResize, width, height)
	}
	if err := f.Validate(); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrResize, err)
	}

	out := New(width, height, f.Format)
	out.Timestamp = f.Timestamp

	interp := a.Interpolator
	if interp == nil {
		interp = draw.ApproxBiLinear
	}
	interp.Scale(out.rgbaView(), out.rgbaView().Bounds(), f.rgbaView(), CropRect(f.Width, f.Height, width, height), draw.Src, nil)
	return out, nil
}

// CropRect returns the centered source rectangle with the target aspect ratio.
func CropRect(srcW, srcH, dstW, dstH int) image.Rectangle {
	cropW, cropH := srcW, srcH
	if srcW*dstH > srcH*dstW {
		// Source is wider than the target: trim the sides.
		cropW = (srcH*dstW + dstH/2) / dstH
	} else {
		cropH = (srcW*dstH + dstW/2) / dstW
	}
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}
	x0 := (srcW - cropW) / 2
	y0 := (srcH - cropH) / 2
	return image.Rect(x0, y0, x0+cropW, y0+cropH)
}
