package gridnet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-balltrack/pkg/frame"
)

// ReadFrame decodes an image file into a BGRA frame stamped with ts.
func ReadFrame(path string, ts time.Duration) (frame.Frame, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return frame.Frame{}, fmt.Errorf("%w: cannot decode %s", frame.ErrUnreadable, path)
	}
	defer img.Close()

	bgra := gocv.NewMat()
	defer bgra.Close()
	if err := gocv.CvtColor(img, &bgra, gocv.ColorBGRToBGRA); err != nil {
		return frame.Frame{}, fmt.Errorf("convert %s: %w", path, err)
	}

	pix, err := bgra.ToBytes()
	if err != nil {
		return frame.Frame{}, fmt.Errorf("read %s: %w", path, err)
	}
	return frame.Frame{
		Pix:       pix,
		Width:     bgra.Cols(),
		Height:    bgra.Rows(),
		Stride:    bgra.Cols() * frame.BytesPerPixel,
		Format:    frame.BGRA,
		Timestamp: ts,
	}, nil
}

// WriteFrame encodes f to path; the format follows the file extension.
func WriteFrame(path string, f frame.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	tight := f.Tight()
	src, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, tight.Pix[:f.Height*tight.Stride])
	if err != nil {
		return err
	}
	defer src.Close()

	code := gocv.ColorBGRAToBGR
	if f.Format == frame.RGBA {
		code = gocv.ColorRGBAToBGR
	}
	bgr := gocv.NewMat()
	defer bgr.Close()
	if err := gocv.CvtColor(src, &bgr, code); err != nil {
		return err
	}
	if !gocv.IMWrite(path, bgr) {
		return fmt.Errorf("write %s failed", path)
	}
	return nil
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".bmp": true}

// ListImages returns the image files in dir sorted by name, which is the
// playback order of an extracted frame sequence.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
