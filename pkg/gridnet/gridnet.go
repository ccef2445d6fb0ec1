// Package gridnet runs the five-frame GridTrackNet ONNX export through
// OpenCV's DNN module and exposes it as a detection.Model.
package gridnet

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-balltrack/pkg/debug"
	"github.com/teslashibe/go-balltrack/pkg/frame"
	"github.com/teslashibe/go-balltrack/pkg/tracking/detection"
)

// InputLayout is the memory order the network expects per frame input.
type InputLayout int

const (
	// NHWC feeds each frame as a [1, H, W, 3] float tensor (Keras export).
	NHWC InputLayout = iota
	// NCHW feeds each frame as a [1, 3, H, W] blob.
	NCHW
)

// Config holds model configuration.
type Config struct {
	ModelPath string

	// InputNames are the per-slot inputs, oldest frame first.
	InputNames []string

	// Output names for confidence, x offset and y offset.
	ConfName string
	XOffName string
	YOffName string

	Layout InputLayout
	Width  int
	Height int

	Backend gocv.NetBackendType
	Target  gocv.NetTargetType
}

// DefaultConfig returns production defaults for the exported model.
func DefaultConfig() Config {
	g := detection.DefaultGeometry()
	return Config{
		ModelPath:  "models/gridtracknet5.onnx",
		InputNames: []string{"f1", "f2", "f3", "f4", "f5"},
		ConfName:   "conf",
		XOffName:   "x_off",
		YOffName:   "y_off",
		Layout:     NHWC,
		Width:      g.InputWidth,
		Height:     g.InputHeight,
		Backend:    gocv.NetBackendDefault,
		Target:     gocv.NetTargetCPU,
	}
}

// Model is a loaded GridTrackNet network.
type Model struct {
	net    gocv.Net
	config Config
	mu     sync.Mutex // gocv.Net is not safe for concurrent use
}

// Open loads the ONNX model at cfg.ModelPath.
func Open(cfg Config) (*Model, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s", cfg.ModelPath)
	}

	if err := net.SetPreferableBackend(cfg.Backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(cfg.Target); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	return &Model{net: net, config: cfg}, nil
}

// Loader adapts Open to detection.ModelLoader.
func Loader(cfg Config) detection.ModelLoader {
	return func() (detection.Model, error) {
		m, err := Open(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// Infer implements detection.Model.
func (m *Model) Infer(ctx context.Context, frames []frame.Frame) (detection.Triple, error) {
	if len(frames) != len(m.config.InputNames) {
		return detection.Triple{}, fmt.Errorf("gridnet: got %d frames, want %d", len(frames), len(m.config.InputNames))
	}
	if err := ctx.Err(); err != nil {
		return detection.Triple{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var inputs []gocv.Mat
	var backing [][]float32
	defer func() {
		for _, in := range inputs {
			in.Close()
		}
	}()

	for i, f := range frames {
		if f.Width != m.config.Width || f.Height != m.config.Height {
			return detection.Triple{}, fmt.Errorf("gridnet: frame %d is %dx%d, want %dx%d",
				i, f.Width, f.Height, m.config.Width, m.config.Height)
		}
		data, sizes := InputTensor(f, m.config.Layout)
		in, err := gocv.NewMatWithSizesFromBytes(sizes, gocv.MatTypeCV32F, float32Bytes(data))
		if err != nil {
			return detection.Triple{}, fmt.Errorf("gridnet: input %s: %w", m.config.InputNames[i], err)
		}
		inputs = append(inputs, in)
		backing = append(backing, data)
		m.net.SetInput(in, m.config.InputNames[i])
	}

	names := []string{m.config.ConfName, m.config.XOffName, m.config.YOffName}
	outs := m.net.ForwardLayers(names)
	defer func() {
		for _, o := range outs {
			o.Close()
		}
	}()
	runtime.KeepAlive(backing)

	if len(outs) != len(names) {
		return detection.Triple{}, fmt.Errorf("gridnet: got %d outputs, want %d", len(outs), len(names))
	}

	tensors := make([]detection.Tensor, len(outs))
	for i, o := range outs {
		t, err := toTensor(o)
		if err != nil {
			return detection.Triple{}, fmt.Errorf("gridnet: output %s: %w", names[i], err)
		}
		tensors[i] = t
	}

	debug.TrackLog("gridnet forward", "shape", tensors[0].Shape)
	return detection.Triple{Conf: tensors[0], XOff: tensors[1], YOff: tensors[2]}, nil
}

// Close releases the network.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}

// InputTensor converts a frame to RGB floats scaled to [0,1] in the given
// layout and returns the data with its shape.
func InputTensor(f frame.Frame, layout InputLayout) ([]float32, []int) {
	w, h := f.Width, f.Height
	data := make([]float32, 3*w*h)
	const scale = 1.0 / 255.0

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := f.RGB(x, y)
			rgb := [3]float32{float32(r) * scale, float32(g) * scale, float32(b) * scale}
			for c := 0; c < 3; c++ {
				var i int
				if layout == NCHW {
					i = (c*h+y)*w + x
				} else {
					i = (y*w+x)*3 + c
				}
				data[i] = rgb[c]
			}
		}
	}

	if layout == NCHW {
		return data, []int{1, 3, h, w}
	}
	return data, []int{1, h, w, 3}
}

// toTensor copies a float Mat of any rank into a row-major Tensor.
func toTensor(m gocv.Mat) (detection.Tensor, error) {
	if m.Empty() {
		return detection.Tensor{}, fmt.Errorf("empty output")
	}
	data, err := m.DataPtrFloat32()
	if err != nil {
		return detection.Tensor{}, err
	}
	shape := m.Size()
	out := make([]float32, len(data))
	copy(out, data)
	return detection.NewTensor(shape, out), nil
}

func float32Bytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}
