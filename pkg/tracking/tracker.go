package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-balltrack/pkg/debug"
	"github.com/teslashibe/go-balltrack/pkg/frame"
	"github.com/teslashibe/go-balltrack/pkg/tracking/detection"
)

// Input is one frame delivered by the capture or playback pipeline.
type Input struct {
	Frame frame.Frame

	// ShoulderX is an optional normalized x of the player's shoulder from
	// pose estimation. The color backend ignores samples left of it.
	ShoulderX *float64
}

// Position is one published tracking result.
type Position struct {
	Point      detection.Point `json:"point"`
	Found      bool            `json:"found"`
	Backend    Backend         `json:"backend"`
	State      detection.State `json:"state"`
	Timestamp  time.Duration   `json:"timestamp"`  // frame timestamp the position refers to
	Slot       int             `json:"slot"`       // temporal slot for the grid backend, -1 otherwise
	Confidence float64         `json:"confidence"`
}

// DefaultSlot makes a consumer follow the tracker's configured grid slot.
const DefaultSlot = -1

// Consumer receives positions. Grid results are decoded once per inference
// and each consumer gets the sample of its preferred slot.
type Consumer struct {
	Name string

	// Slot is the preferred grid slot, or DefaultSlot. The zero value is
	// slot 0, the oldest frame of the window.
	Slot int

	OnPosition func(Position)

	// OnSamples, when set, receives every slot of each grid inference.
	OnSamples func([]detection.Sample)
}

// Tracker owns both detection backends and feeds frames to the active one.
// The inactive backend is reset on deactivation and receives no frames.
type Tracker struct {
	mu     sync.RWMutex
	config Config
	logger *slog.Logger

	session uuid.UUID
	color   *detection.ColorDetector
	grid    *detection.GridDetector
	active  Backend

	consumers []Consumer
	last      Position

	// switches counts backend changes. A frame that started under an older
	// value resets the backend it was fed to.
	switches uint64

	// wg counts frames in progress and inferences awaiting publication.
	wg     sync.WaitGroup
	closed bool

	frames    atomic.Int64
	published atomic.Int64
}

// New creates a tracker. load opens the grid model; a nil loader or a load
// failure leaves the grid backend permanently not ready while the color
// backend keeps working.
func New(cfg Config, load detection.ModelLoader) *Tracker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendColor
	}

	session := uuid.New()
	logger = logger.With("session", session.String())

	cfg.Color.Logger = logger
	cfg.Grid.Logger = logger

	t := &Tracker{
		config:  cfg,
		logger:  logger,
		session: session,
		color:   detection.NewColor(cfg.Color),
		grid:    detection.NewGrid(cfg.Grid, load),
		active:  cfg.Backend,
	}
	t.last = t.emptyPosition(cfg.Backend)

	logger.Info("tracker started", "backend", cfg.Backend, "slot", cfg.Grid.Slot, "grid_ready", t.grid.Err() == nil)
	return t
}

// Session returns the unique id of this tracker instance.
func (t *Tracker) Session() uuid.UUID {
	return t.session
}

// Backend returns the active backend.
func (t *Tracker) Backend() Backend {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// SetBackend activates b and resets the previously active backend so a later
// reactivation starts without a fix.
func (t *Tracker) SetBackend(b Backend) error {
	b, err := ParseBackend(string(b))
	if err != nil {
		return err
	}

	t.mu.Lock()
	prev := t.active
	if prev == b {
		t.mu.Unlock()
		return nil
	}
	t.active = b
	t.switches++
	t.last = t.emptyPosition(b)
	t.mu.Unlock()

	t.deactivate(prev)
	t.logger.Info("backend switched", "from", prev, "to", b)
	return nil
}

func (t *Tracker) deactivate(b Backend) {
	switch b {
	case BackendColor:
		t.color.Reset()
	case BackendGrid:
		t.grid.Reset()
	}
}

// Subscribe registers a consumer and returns a function that removes it.
// Consumers with the same name replace each other.
func (t *Tracker) Subscribe(c Consumer) func() {
	if c.Name == "" {
		c.Name = uuid.NewString()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(c.Name)
	t.consumers = append(t.consumers, c)

	name := c.Name
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.removeLocked(name)
	}
}

func (t *Tracker) removeLocked(name string) {
	kept := t.consumers[:0]
	for _, c := range t.consumers {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	t.consumers = kept
}

// ProcessFrame feeds one frame to the active backend and returns the current
// position, if any. It never fails: unreadable frames, resize failures and
// model errors all degrade to no position.
//
// The color backend answers synchronously. The grid backend buffers the
// frame, starts an inference when none is running, and returns the latest
// completed result for the default slot.
func (t *Tracker) ProcessFrame(ctx context.Context, in Input) (detection.Point, bool) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return detection.Point{}, false
	}
	t.wg.Add(1)
	backend, gen := t.active, t.switches
	t.mu.Unlock()
	defer t.wg.Done()

	t.frames.Add(1)

	switch backend {
	case BackendGrid:
		return t.processGrid(ctx, in, gen)
	default:
		return t.processColor(in, gen)
	}
}

// superseded reports whether the backend changed since gen was read. The
// backend fed by that frame is reset again, because the switch may have
// cleared it before the frame landed.
func (t *Tracker) superseded(b Backend, gen uint64) bool {
	t.mu.RLock()
	changed := t.switches != gen
	t.mu.RUnlock()
	if changed {
		t.deactivate(b)
		debug.TrackLog("frame dropped", "reason", "backend switched", "backend", b)
	}
	return changed
}

func (t *Tracker) processColor(in Input, gen uint64) (detection.Point, bool) {
	p, ok := t.color.Detect(in.Frame, in.ShoulderX)
	if t.superseded(BackendColor, gen) {
		return detection.Point{}, false
	}
	pos := Position{
		Point:     p,
		Found:     ok,
		Backend:   BackendColor,
		State:     t.color.State(),
		Timestamp: in.Frame.Timestamp,
		Slot:      -1,
	}
	if ok {
		pos.Confidence = 1
	}

	t.mu.Lock()
	if t.switches != gen {
		t.mu.Unlock()
		t.deactivate(BackendColor)
		return detection.Point{}, false
	}
	t.last = pos
	consumers := append([]Consumer(nil), t.consumers...)
	t.mu.Unlock()

	for _, c := range consumers {
		if c.OnPosition != nil {
			c.OnPosition(pos)
		}
	}
	t.published.Add(1)
	return p, ok
}

func (t *Tracker) processGrid(ctx context.Context, in Input, gen uint64) (detection.Point, bool) {
	if err := t.grid.Push(in.Frame); err != nil {
		t.logger.Debug("frame dropped", "error", err)
	}

	if t.grid.IsReady() {
		if ch, ok := t.grid.Submit(ctx); ok {
			t.wg.Add(1)
			go t.collect(ch)
		}
	}

	// A reset after Submit marks the running inference stale.
	if t.superseded(BackendGrid, gen) {
		return detection.Point{}, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last.Backend != BackendGrid || !t.last.Found {
		return detection.Point{}, false
	}
	return t.last.Point, true
}

// collect publishes one grid inference result to every consumer.
func (t *Tracker) collect(ch <-chan detection.Result) {
	defer t.wg.Done()

	res := <-ch
	if errors.Is(res.Err, detection.ErrStaleResult) {
		debug.TrackLog("stale inference dropped")
		return
	}

	t.mu.Lock()
	if t.active != BackendGrid {
		t.mu.Unlock()
		return
	}
	state := t.grid.State()
	t.last = gridPosition(res, res.Slot, state)
	consumers := append([]Consumer(nil), t.consumers...)
	t.mu.Unlock()

	var samples []detection.Sample
	if res.Err == nil {
		samples = res.Samples
	}

	for _, c := range consumers {
		slot := c.Slot
		if slot < 0 {
			slot = res.Slot
		}
		if c.OnPosition != nil {
			c.OnPosition(gridPosition(res, slot, state))
		}
		if c.OnSamples != nil && samples != nil {
			c.OnSamples(append([]detection.Sample(nil), samples...))
		}
	}
	t.published.Add(1)
}

func gridPosition(res detection.Result, slot int, state detection.State) Position {
	pos := Position{Backend: BackendGrid, Slot: slot, State: state}
	s, ok := res.At(slot)
	if !ok {
		return pos
	}
	pos.Timestamp = s.Timestamp
	pos.Confidence = s.Confidence
	if s.Found {
		pos.Point = s.Position
		pos.Found = true
	}
	return pos
}

func (t *Tracker) emptyPosition(b Backend) Position {
	slot := -1
	if b == BackendGrid {
		slot = t.config.Grid.Slot
	}
	return Position{Backend: b, Slot: slot}
}

// Last returns the most recently published position of the default slot.
func (t *Tracker) Last() Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// State returns the tracking state of the active backend.
func (t *Tracker) State() detection.State {
	if t.Backend() == BackendGrid {
		return t.grid.State()
	}
	return t.color.State()
}

// Reset clears both backends. It is safe to call from any goroutine.
func (t *Tracker) Reset() {
	t.color.Reset()
	t.grid.Reset()

	t.mu.Lock()
	t.last = t.emptyPosition(t.active)
	t.mu.Unlock()
	t.logger.Info("tracker reset")
}

// Wait blocks until every started inference has been published. It must not
// run concurrently with ProcessFrame.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Close stops accepting frames, waits for frames in progress and in-flight
// inference, then releases the model. It must not be called from a consumer
// callback.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.wg.Wait()
	err := t.grid.Close()
	t.logger.Info("tracker stopped", "frames", t.frames.Load(), "published", t.published.Load())
	return err
}
