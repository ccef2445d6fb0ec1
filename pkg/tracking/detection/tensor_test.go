package detection

import (
	"errors"
	"testing"
)

func TestResolveAxes(t *testing.T) {
	want := GridShape{Temporal: 5, Rows: 27, Cols: 48}

	tests := []struct {
		name  string
		shape []int
		want  Layout
	}{
		{
			name:  "exported NTWH",
			shape: []int{1, 5, 48, 27},
			want:  Layout{Batch: 0, Temporal: 1, Rows: 3, Cols: 2, T: 5, R: 27, C: 48},
		},
		{
			name:  "rank 3 row major",
			shape: []int{5, 27, 48},
			want:  Layout{Batch: -1, Temporal: 0, Rows: 1, Cols: 2, T: 5, R: 27, C: 48},
		},
		{
			name:  "channels last",
			shape: []int{1, 27, 48, 5},
			want:  Layout{Batch: 0, Temporal: 3, Rows: 1, Cols: 2, T: 5, R: 27, C: 48},
		},
		{
			name:  "temporal in the middle",
			shape: []int{48, 5, 27},
			want:  Layout{Batch: -1, Temporal: 1, Rows: 2, Cols: 0, T: 5, R: 27, C: 48},
		},
		{
			name:  "trailing batch",
			shape: []int{5, 27, 48, 1},
			want:  Layout{Batch: 3, Temporal: 0, Rows: 1, Cols: 2, T: 5, R: 27, C: 48},
		},
		{
			name:  "unexpected grid falls back to size order",
			shape: []int{5, 54, 96},
			want:  Layout{Batch: -1, Temporal: 0, Rows: 1, Cols: 2, T: 5, R: 54, C: 96},
		},
		{
			name:  "unexpected grid transposed",
			shape: []int{1, 5, 96, 54},
			want:  Layout{Batch: 0, Temporal: 1, Rows: 3, Cols: 2, T: 5, R: 54, C: 96},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveAxes(tc.shape, want)
			if err != nil {
				t.Fatalf("ResolveAxes(%v): %v", tc.shape, err)
			}
			if got != tc.want {
				t.Errorf("ResolveAxes(%v):\n got %+v\nwant %+v", tc.shape, got, tc.want)
			}
		})
	}
}

func TestResolveAxes_DuplicateTemporalSize(t *testing.T) {
	got, err := ResolveAxes([]int{1, 5, 5, 5}, GridShape{Temporal: 5, Rows: 5, Cols: 5})
	if err != nil {
		t.Fatalf("ResolveAxes: %v", err)
	}
	if got.Temporal != 1 || got.Rows != 2 || got.Cols != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestResolveAxes_Errors(t *testing.T) {
	want := GridShape{Temporal: 5, Rows: 27, Cols: 48}

	tests := []struct {
		name  string
		shape []int
	}{
		{"rank 2", []int{27, 48}},
		{"rank 5", []int{1, 1, 5, 27, 48}},
		{"batch of two", []int{2, 5, 27, 48}},
		{"no temporal axis", []int{1, 4, 27, 48}},
		{"zero sized axis", []int{5, 0, 48}},
		{"square unknown grid", []int{5, 30, 30}},
		{"several temporal candidates", []int{5, 5, 48}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveAxes(tc.shape, want)
			if !errors.Is(err, ErrDecodeAmbiguity) {
				t.Fatalf("expected ErrDecodeAmbiguity, got %v", err)
			}
			var axisErr *AxisError
			if !errors.As(err, &axisErr) {
				t.Fatalf("expected *AxisError, got %T", err)
			}
			if len(axisErr.Shape) != len(tc.shape) {
				t.Errorf("AxisError.Shape: got %v, want %v", axisErr.Shape, tc.shape)
			}
		})
	}
}

func TestTensor_Validate(t *testing.T) {
	ok := NewTensor([]int{2, 3}, make([]float32, 6))
	if err := ok.Validate(); err != nil {
		t.Errorf("valid tensor: %v", err)
	}

	short := NewTensor([]int{2, 3}, make([]float32, 5))
	if err := short.Validate(); err == nil {
		t.Error("expected error for short data")
	}

	strided := Tensor{Shape: []int{2, 3}, Strides: []int{1, 2}, Data: make([]float32, 6)}
	if err := strided.Validate(); err != nil {
		t.Errorf("column-major tensor: %v", err)
	}

	mismatched := Tensor{Shape: []int{2, 3}, Strides: []int{3}, Data: make([]float32, 6)}
	if err := mismatched.Validate(); err == nil {
		t.Error("expected error for stride/shape rank mismatch")
	}
}

func TestRowMajorStrides(t *testing.T) {
	got := RowMajorStrides([]int{1, 5, 48, 27})
	want := []int{6480, 1296, 27, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
