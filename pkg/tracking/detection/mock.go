package detection

import (
	"context"
	"sync"

	"github.com/teslashibe/go-balltrack/pkg/frame"
)

// MockModel implements Model for testing.
type MockModel struct {
	// InferFunc is called when Infer is invoked.
	InferFunc func(ctx context.Context, frames []frame.Frame) (Triple, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu     sync.Mutex
	calls  int
	closed bool
}

// NewMockModel returns a model whose every slot sees the ball at the
// center cell of the default geometry with confidence 0.9.
func NewMockModel() *MockModel {
	return &MockModel{
		InferFunc: func(ctx context.Context, frames []frame.Frame) (Triple, error) {
			return PeakTriple(DefaultGeometry().Grid, 13, 24, 0.9), nil
		},
	}
}

// Infer calls InferFunc and records the call.
func (m *MockModel) Infer(ctx context.Context, frames []frame.Frame) (Triple, error) {
	m.mu.Lock()
	m.calls++
	fn := m.InferFunc
	m.mu.Unlock()

	if fn == nil {
		return Triple{}, ErrModelUnavailable
	}
	return fn(ctx, frames)
}

// Close calls CloseFunc if set.
func (m *MockModel) Close() error {
	m.mu.Lock()
	m.closed = true
	fn := m.CloseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

// Calls returns the number of Infer invocations.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockModel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// PeakTriple builds row-major (temporal, rows, cols) outputs with a single
// confidence peak at (row, col) in every slot and centered offsets.
func PeakTriple(g GridShape, row, col int, conf float32) Triple {
	shape := []int{g.Temporal, g.Rows, g.Cols}
	n := g.Temporal * g.Rows * g.Cols
	c := make([]float32, n)
	xo := make([]float32, n)
	yo := make([]float32, n)
	for i := range xo {
		xo[i], yo[i] = 0.5, 0.5
	}
	for t := 0; t < g.Temporal; t++ {
		c[(t*g.Rows+row)*g.Cols+col] = conf
	}
	return Triple{Conf: NewTensor(shape, c), XOff: NewTensor(shape, xo), YOff: NewTensor(shape, yo)}
}
