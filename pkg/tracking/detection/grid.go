package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-balltrack/pkg/debug"
	"github.com/teslashibe/go-balltrack/pkg/frame"
)

// Model runs one batched inference over a full window of resized frames
// (oldest first) and returns the confidence and offset grids.
type Model interface {
	Infer(ctx context.Context, frames []frame.Frame) (Triple, error)
	Close() error
}

// ModelLoader opens a Model. It is called once per detector.
type ModelLoader func() (Model, error)

// GridConfig configures a GridDetector.
type GridConfig struct {
	Geometry Geometry

	// Slot is the temporal slot reported by Result.Target. The newest slot
	// (Temporal-1) minimizes latency; a middle slot gains lookahead.
	Slot int

	// Resizer scales incoming frames to the model input size. Nil means
	// frames are expected at model size already.
	Resizer frame.Resizer

	Logger *slog.Logger
}

// DefaultGridConfig returns a configuration for the exported model,
// decoding the newest slot.
func DefaultGridConfig() GridConfig {
	g := DefaultGeometry()
	return GridConfig{
		Geometry: g,
		Slot:     g.Grid.Temporal - 1,
		Resizer:  frame.AspectFill{},
	}
}

// Result is one completed inference decoded across all slots.
type Result struct {
	Samples []Sample
	Slot    int // target slot requested at submission
	Elapsed time.Duration
	Err     error
}

// Target returns the sample of the configured slot.
func (r Result) Target() (Sample, bool) {
	if r.Err != nil || r.Slot < 0 || r.Slot >= len(r.Samples) {
		return Sample{}, false
	}
	return r.Samples[r.Slot], true
}

// At returns the sample of slot i.
func (r Result) At(i int) (Sample, bool) {
	if r.Err != nil || i < 0 || i >= len(r.Samples) {
		return Sample{}, false
	}
	return r.Samples[i], true
}

// GridStats counts detector activity.
type GridStats struct {
	Pushed    int64
	Dropped   int64 // unreadable or failed resize
	Submitted int64
	Skipped   int64 // busy or not ready
	Failed    int64 // model or decode error
	Stale     int64 // finished after a reset
}

// GridDetector buffers the last frames and decodes the neural grid model.
// Push, Reset and Submit are safe for concurrent use. At most one inference
// runs at a time; requests made while one is in flight are dropped.
type GridDetector struct {
	configMu sync.RWMutex
	config   GridConfig

	logger *slog.Logger
	buf    *FrameBuffer

	modelMu sync.RWMutex
	model   Model
	loadErr error

	inFlight   atomic.Bool
	generation atomic.Uint64

	stateMu sync.Mutex
	state   State

	pushed, dropped, submitted, skipped, failed, stale atomic.Int64
}

// NewGrid creates a grid detector and loads its model. A load failure is
// logged once and leaves the detector permanently not ready.
func NewGrid(config GridConfig, load ModelLoader) *GridDetector {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d := &GridDetector{
		config: config,
		logger: logger.With("component", "grid"),
		buf:    NewFrameBuffer(config.Geometry.Grid.Temporal),
	}

	if load == nil {
		d.loadErr = fmt.Errorf("%w: no loader", ErrModelUnavailable)
	} else if m, err := load(); err != nil {
		d.loadErr = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	} else {
		d.model = m
	}
	if d.loadErr != nil {
		d.logger.Error("model load failed", "error", d.loadErr)
	}
	return d
}

// Push resizes f to the model input and appends it to the window. A frame
// that cannot be read or resized is dropped and the window is unchanged.
func (d *GridDetector) Push(f frame.Frame) error {
	if err := f.Validate(); err != nil {
		d.dropped.Add(1)
		return fmt.Errorf("%w: %v", ErrInputUnavailable, err)
	}

	w, h := d.config.Geometry.InputWidth, d.config.Geometry.InputHeight
	if d.config.Resizer != nil && (f.Width != w || f.Height != h) {
		resized, err := d.config.Resizer.Resize(f, w, h)
		if err != nil {
			d.dropped.Add(1)
			return fmt.Errorf("%w: %v", ErrResize, err)
		}
		f = resized
	}

	d.buf.Push(f)
	d.pushed.Add(1)
	return nil
}

// IsReady reports whether the window is full and the model is loaded.
func (d *GridDetector) IsReady() bool {
	return d.loaded() && d.buf.Full()
}

// Err returns the model load error, if any.
func (d *GridDetector) Err() error {
	return d.loadErr
}

func (d *GridDetector) loaded() bool {
	d.modelMu.RLock()
	defer d.modelMu.RUnlock()
	return d.model != nil
}

// Submit starts an inference on its own goroutine and returns a channel
// that receives exactly one Result. It returns false without starting any
// work when the detector is not ready or an inference is already running.
func (d *GridDetector) Submit(ctx context.Context) (<-chan Result, bool) {
	if !d.IsReady() {
		d.skipped.Add(1)
		return nil, false
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		d.skipped.Add(1)
		debug.TrackLog("inference skipped", "reason", "in flight")
		return nil, false
	}

	ch := make(chan Result, 1)
	go func() {
		res := d.run(ctx)
		d.inFlight.Store(false)
		ch <- res
		close(ch)
	}()
	return ch, true
}

// Infer runs one inference on the calling goroutine.
func (d *GridDetector) Infer(ctx context.Context) (Result, error) {
	if !d.loaded() {
		if d.loadErr != nil {
			return Result{}, d.loadErr
		}
		return Result{}, ErrModelUnavailable
	}
	if !d.buf.Full() {
		return Result{}, ErrNotReady
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		d.skipped.Add(1)
		return Result{}, ErrInferenceInFlight
	}
	defer d.inFlight.Store(false)

	res := d.run(ctx)
	return res, res.Err
}

// InFlight reports whether an inference is running.
func (d *GridDetector) InFlight() bool {
	return d.inFlight.Load()
}

func (d *GridDetector) run(ctx context.Context) Result {
	d.submitted.Add(1)
	gen := d.generation.Load()
	geometry, slot := d.settings()
	frames := d.buf.Snapshot()
	start := time.Now()

	res := Result{Slot: slot}

	d.modelMu.RLock()
	m := d.model
	var tr Triple
	var err error
	if m == nil {
		err = ErrModelUnavailable
	} else {
		tr, err = m.Infer(ctx, frames)
	}
	d.modelMu.RUnlock()

	res.Elapsed = time.Since(start)
	if err != nil {
		d.failed.Add(1)
		d.logger.Warn("inference failed", "error", err)
		res.Err = err
		return res
	}

	samples, err := DecodeAll(tr, geometry)
	if err != nil {
		d.failed.Add(1)
		if errors.Is(err, ErrDecodeAmbiguity) {
			d.logger.Warn("decode skipped", "error", err)
		}
		res.Err = err
		return res
	}
	for i := range samples {
		if i < len(frames) {
			samples[i].Timestamp = frames[i].Timestamp
		}
	}
	res.Samples = samples

	if d.generation.Load() != gen {
		d.stale.Add(1)
		res.Samples = nil
		res.Err = ErrStaleResult
		return res
	}

	d.stateMu.Lock()
	if s, ok := res.Target(); ok && s.Found {
		d.state = Tracking
	} else {
		d.state = NoFix
	}
	d.stateMu.Unlock()

	debug.TrackLog("inference done", "elapsed", res.Elapsed, "slot", slot)
	return res
}

// Reset clears the frame window and invalidates any inference in flight.
// It is safe to call from any goroutine.
func (d *GridDetector) Reset() {
	d.generation.Add(1)
	d.buf.Clear()
	d.stateMu.Lock()
	d.state = NoFix
	d.stateMu.Unlock()
}

// State returns NoFix until an inference finds the ball in the target slot.
func (d *GridDetector) State() State {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.state
}

// Buffered returns the number of frames in the window.
func (d *GridDetector) Buffered() int {
	return d.buf.Len()
}

// Config returns the detector configuration.
func (d *GridDetector) Config() GridConfig {
	d.configMu.RLock()
	defer d.configMu.RUnlock()
	return d.config
}

func (d *GridDetector) settings() (Geometry, int) {
	d.configMu.RLock()
	defer d.configMu.RUnlock()
	return d.config.Geometry, d.config.Slot
}

// SetThreshold changes the decode confidence threshold for later inferences.
func (d *GridDetector) SetThreshold(threshold float64) {
	d.configMu.Lock()
	defer d.configMu.Unlock()
	d.config.Geometry.Threshold = threshold
}

// SetSlot changes the target slot for later inferences.
func (d *GridDetector) SetSlot(slot int) error {
	d.configMu.Lock()
	defer d.configMu.Unlock()
	if slot < 0 || slot >= d.config.Geometry.Grid.Temporal {
		return fmt.Errorf("detection: slot %d out of range [0,%d)", slot, d.config.Geometry.Grid.Temporal)
	}
	d.config.Slot = slot
	return nil
}

// Stats returns a snapshot of the activity counters.
func (d *GridDetector) Stats() GridStats {
	return GridStats{
		Pushed:    d.pushed.Load(),
		Dropped:   d.dropped.Load(),
		Submitted: d.submitted.Load(),
		Skipped:   d.skipped.Load(),
		Failed:    d.failed.Load(),
		Stale:     d.stale.Load(),
	}
}

// Close releases the model after any running inference finishes.
func (d *GridDetector) Close() error {
	d.modelMu.Lock()
	defer d.modelMu.Unlock()
	if d.model == nil {
		return nil
	}
	err := d.model.Close()
	d.model = nil
	return err
}
