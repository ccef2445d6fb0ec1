// Package frame defines the pixel buffers exchanged between frame producers,
// resizers and ball detectors.
package frame

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// BytesPerPixel is fixed for every supported format.
const BytesPerPixel = 4

// ErrUnreadable is returned when a buffer cannot be interpreted as a frame.
var ErrUnreadable = errors.New("frame: buffer unreadable")

// Format is the byte order of a 4-byte pixel.
type Format int

const (
	// BGRA is the native camera layout (blue, green, red, alpha).
	BGRA Format = iota
	// RGBA matches image.RGBA.
	RGBA
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case BGRA:
		return "bgra"
	case RGBA:
		return "rgba"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Frame is a 4-byte-per-pixel color buffer.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
	Stride int // bytes per row, at least Width*4
	Format Format

	// Timestamp is a monotonic presentation time relative to the stream start.
	Timestamp time.Duration
}

// New allocates a zeroed frame with a tight stride.
func New(width, height int, format Format) Frame {
	return Frame{
		Pix:    make([]byte, width*height*BytesPerPixel),
		Width:  width,
		Height: height,
		Stride: width * BytesPerPixel,
		Format: format,
	}
}

// Validate reports ErrUnreadable if the geometry does not fit the buffer.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrUnreadable, f.Width, f.Height)
	}
	if f.Format != BGRA && f.Format != RGBA {
		return fmt.Errorf("%w: unsupported %s", ErrUnreadable, f.Format)
	}
	if f.Stride < f.Width*BytesPerPixel {
		return fmt.Errorf("%w: stride %d < %d", ErrUnreadable, f.Stride, f.Width*BytesPerPixel)
	}
	if need := (f.Height-1)*f.Stride + f.Width*BytesPerPixel; len(f.Pix) < need {
		return fmt.Errorf("%w: %d bytes, need %d", ErrUnreadable, len(f.Pix), need)
	}
	return nil
}

// RGB returns the color channels of pixel (x, y) with a top-left origin.
// The caller must have validated the frame and bounds.
func (f Frame) RGB(x, y int) (r, g, b uint8) {
	i := y*f.Stride + x*BytesPerPixel
	if f.Format == BGRA {
		return f.Pix[i+2], f.Pix[i+1], f.Pix[i]
	}
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB writes an opaque pixel at (x, y).
func (f Frame) SetRGB(x, y int, r, g, b uint8) {
	i := y*f.Stride + x*BytesPerPixel
	if f.Format == BGRA {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
	} else {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
	}
	f.Pix[i+3] = 0xff
}

// Fill paints the whole frame with one opaque color.
func (f Frame) Fill(r, g, b uint8) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			f.SetRGB(x, y, r, g, b)
		}
	}
}

// Tight returns the frame with Stride == Width*4, copying rows if needed.
func (f Frame) Tight() Frame {
	row := f.Width * BytesPerPixel
	if f.Stride == row {
		return f
	}
	out := f
	out.Pix = make([]byte, row*f.Height)
	out.Stride = row
	for y := 0; y < f.Height; y++ {
		copy(out.Pix[y*row:(y+1)*row], f.Pix[y*f.Stride:y*f.Stride+row])
	}
	return out
}

// FromImage converts any image into an RGBA frame.
func FromImage(img image.Image, ts time.Duration) Frame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy(), RGBA)
	f.Timestamp = ts
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < f.Height; y++ {
			off := rgba.PixOffset(b.Min.X, b.Min.Y+y)
			copy(f.Pix[y*f.Stride:(y+1)*f.Stride], rgba.Pix[off:off+f.Stride])
		}
		return f
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			f.SetRGB(x, y, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return f
}

// rgbaView wraps the frame bytes as an image.RGBA without copying. For BGRA
// frames the red and blue channels are swapped in the view, which is harmless
// for per-channel operations such as scaling.
func (f Frame) rgbaView() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Stride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}
