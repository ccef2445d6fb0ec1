package detection

import (
	"fmt"
)

// Tensor is a dense float32 tensor with explicit strides. Shape and strides
// describe the physical layout; no axis order is assumed.
type Tensor struct {
	Shape   []int
	Strides []int // elements, not bytes
	Data    []float32
}

// NewTensor wraps data laid out contiguously in row-major order.
func NewTensor(shape []int, data []float32) Tensor {
	return Tensor{Shape: shape, Strides: RowMajorStrides(shape), Data: data}
}

// RowMajorStrides returns contiguous strides for shape.
func RowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	step := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = step
		step *= shape[i]
	}
	return strides
}

// Validate checks that strides match the shape and every index is in range.
func (t Tensor) Validate() error {
	if len(t.Strides) != len(t.Shape) {
		return fmt.Errorf("tensor: %d strides for rank %d", len(t.Strides), len(t.Shape))
	}
	last := 0
	for i, n := range t.Shape {
		if n <= 0 {
			return fmt.Errorf("tensor: axis %d has size %d", i, n)
		}
		if t.Strides[i] < 0 {
			return fmt.Errorf("tensor: axis %d has negative stride", i)
		}
		last += (n - 1) * t.Strides[i]
	}
	if last >= len(t.Data) {
		return fmt.Errorf("tensor: %d elements, layout needs %d", len(t.Data), last+1)
	}
	return nil
}

// Triple holds the three co-shaped model outputs.
type Triple struct {
	Conf Tensor
	XOff Tensor
	YOff Tensor
}

// GridShape is the expected logical size of a model output.
type GridShape struct {
	Temporal int
	Rows     int
	Cols     int
}

// Layout maps logical roles to physical axes of a tensor. Batch is -1 for
// rank-3 tensors.
type Layout struct {
	Batch    int
	Temporal int
	Rows     int
	Cols     int

	// Sizes of the resolved axes.
	T, R, C int
}

// offset returns the data index of (slot, row, col) at batch 0.
func (l Layout) offset(t Tensor, slot, row, col int) int {
	return slot*t.Strides[l.Temporal] + row*t.Strides[l.Rows] + col*t.Strides[l.Cols]
}

// ResolveAxes identifies the batch, temporal, row and column axes of shape
// by matching sizes against want. Rank-4 shapes must carry a size-1 batch
// axis. Rows and columns are matched by exact size; when neither ordering
// matches, the larger axis takes whichever role is expected to be larger.
func ResolveAxes(shape []int, want GridShape) (Layout, error) {
	fail := func(reason string) (Layout, error) {
		return Layout{}, &AxisError{Shape: append([]int(nil), shape...), Want: want, Reason: reason}
	}

	if len(shape) != 3 && len(shape) != 4 {
		return fail(fmt.Sprintf("rank %d, want 3 or 4", len(shape)))
	}
	for _, n := range shape {
		if n <= 0 {
			return fail("non-positive axis size")
		}
	}

	l := Layout{Batch: -1, Temporal: -1}
	free := make([]int, 0, len(shape))
	for i := range shape {
		free = append(free, i)
	}

	if len(shape) == 4 {
		// Prefer the leading axis; otherwise the first other size-1 axis.
		for _, i := range free {
			if shape[i] == 1 {
				l.Batch = i
				break
			}
		}
		if l.Batch < 0 {
			return fail("no size-1 batch axis")
		}
		free = remove(free, l.Batch)
	}

	var candidates []int
	for _, i := range free {
		if shape[i] == want.Temporal {
			candidates = append(candidates, i)
		}
	}
	switch len(candidates) {
	case 0:
		return fail("no temporal axis")
	case 1:
		l.Temporal = candidates[0]
	default:
		// Several axes share the temporal size. Only resolvable when the
		// grid sizes pin down the others.
		l.Temporal = -1
		for _, c := range candidates {
			rest := remove(free, c)
			if matchesExactly(shape, rest, want) {
				l.Temporal = c
				break
			}
		}
		if l.Temporal < 0 {
			return fail("several axes match the temporal size")
		}
	}
	free = remove(free, l.Temporal)

	a, b := free[0], free[1]
	switch {
	case shape[a] == want.Rows && shape[b] == want.Cols:
		l.Rows, l.Cols = a, b
	case shape[a] == want.Cols && shape[b] == want.Rows:
		l.Rows, l.Cols = b, a
	case shape[a] == shape[b]:
		return fail("grid axes have equal size and match neither expectation")
	default:
		big, small := a, b
		if shape[b] > shape[a] {
			big, small = b, a
		}
		if want.Cols >= want.Rows {
			l.Cols, l.Rows = big, small
		} else {
			l.Rows, l.Cols = big, small
		}
	}

	l.T, l.R, l.C = shape[l.Temporal], shape[l.Rows], shape[l.Cols]
	return l, nil
}

func matchesExactly(shape []int, axes []int, want GridShape) bool {
	if len(axes) != 2 {
		return false
	}
	a, b := shape[axes[0]], shape[axes[1]]
	return (a == want.Rows && b == want.Cols) || (a == want.Cols && b == want.Rows)
}

func remove(axes []int, axis int) []int {
	out := make([]int, 0, len(axes))
	for _, a := range axes {
		if a != axis {
			out = append(out, a)
		}
	}
	return out
}
