package gridnet

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-balltrack/pkg/frame"
)

// Resizer is an OpenCV implementation of frame.Resizer.
type Resizer struct {
	Interpolation gocv.InterpolationFlags
}

// NewResizer returns a Resizer using area interpolation, which suits the
// usual downscale from camera resolution.
func NewResizer() Resizer {
	return Resizer{Interpolation: gocv.InterpolationArea}
}

// Resize implements frame.Resizer.
func (r Resizer) Resize(f frame.Frame, width, height int) (frame.Frame, error) {
	if width <= 0 || height <= 0 {
		return frame.Frame{}, fmt.Errorf("%w: target %dx%d", frame.ErrResize, width, height)
	}
	if err := f.Validate(); err != nil {
		return frame.Frame{}, fmt.Errorf("%w: %v", frame.ErrResize, err)
	}

	tight := f.Tight()
	src, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, tight.Pix[:f.Height*tight.Stride])
	if err != nil {
		return frame.Frame{}, fmt.Errorf("%w: %v", frame.ErrResize, err)
	}
	defer src.Close()

	crop := src.Region(frame.CropRect(f.Width, f.Height, width, height))
	defer crop.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(crop, &dst, image.Pt(width, height), 0, 0, r.Interpolation)

	out := frame.New(width, height, f.Format)
	out.Timestamp = f.Timestamp
	copy(out.Pix, dst.ToBytes())
	return out, nil
}
