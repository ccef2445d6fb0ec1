package detection

import (
	"fmt"
	"math"
	"slices"
)

// Geometry describes the model input size and its output grid.
type Geometry struct {
	InputWidth  int
	InputHeight int
	Grid        GridShape
	Threshold   float64 // minimum cell confidence for a position
}

// DefaultGeometry matches the five-frame GridTrackNet export: 768x432 input,
// 48x27 grid of 16 px cells.
func DefaultGeometry() Geometry {
	return Geometry{
		InputWidth:  768,
		InputHeight: 432,
		Grid:        GridShape{Temporal: 5, Rows: 27, Cols: 48},
		Threshold:   0.5,
	}
}

// decoder is a Triple with its resolved layout.
type decoder struct {
	tr  Triple
	lay Layout
	g   Geometry
}

func newDecoder(tr Triple, g Geometry) (*decoder, error) {
	lay, err := ResolveAxes(tr.Conf.Shape, g.Grid)
	if err != nil {
		return nil, err
	}
	outputs := []struct {
		name string
		t    Tensor
	}{{"conf", tr.Conf}, {"x_off", tr.XOff}, {"y_off", tr.YOff}}
	for _, o := range outputs {
		if !slices.Equal(o.t.Shape, tr.Conf.Shape) {
			return nil, fmt.Errorf("%w: %s shape %v differs from conf %v", ErrDecodeAmbiguity, o.name, o.t.Shape, tr.Conf.Shape)
		}
		if err := o.t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrDecodeAmbiguity, o.name, err)
		}
	}
	return &decoder{tr: tr, lay: lay, g: g}, nil
}

// slot decodes one temporal slot: argmax over cells, then sub-cell offset.
func (d *decoder) slot(t int) Sample {
	s := Sample{Slot: t}

	best := float32(math.Inf(-1))
	bestRow, bestCol := 0, 0
	for r := 0; r < d.lay.R; r++ {
		for c := 0; c < d.lay.C; c++ {
			v := d.tr.Conf.Data[d.lay.offset(d.tr.Conf, t, r, c)]
			if v > best { // NaN never wins
				best, bestRow, bestCol = v, r, c
			}
		}
	}
	switch {
	case math.IsInf(float64(best), -1):
		// every cell NaN or -Inf
		return s
	case math.IsInf(float64(best), 1):
		s.Confidence = 1
	default:
		s.Confidence = float64(best)
	}
	if s.Confidence < d.g.Threshold {
		return s
	}

	xo := float64(d.tr.XOff.Data[d.lay.offset(d.tr.XOff, t, bestRow, bestCol)])
	yo := float64(d.tr.YOff.Data[d.lay.offset(d.tr.YOff, t, bestRow, bestCol)])

	w, h := float64(d.g.InputWidth), float64(d.g.InputHeight)
	cellW := w / float64(d.lay.C)
	cellH := h / float64(d.lay.R)

	px := (float64(bestCol) + xo) * cellW
	py := (float64(bestRow) + yo) * cellH
	s.Position = FromPixel(px, py, d.g.InputWidth, d.g.InputHeight).Clamp()
	s.Found = true
	return s
}

// DecodeSlot decodes a single temporal slot of tr.
func DecodeSlot(tr Triple, slot int, g Geometry) (Sample, error) {
	d, err := newDecoder(tr, g)
	if err != nil {
		return Sample{}, err
	}
	if slot < 0 || slot >= d.lay.T {
		return Sample{}, fmt.Errorf("detection: slot %d out of range [0,%d)", slot, d.lay.T)
	}
	return d.slot(slot), nil
}

// DecodeAll decodes every temporal slot of tr, oldest first.
func DecodeAll(tr Triple, g Geometry) ([]Sample, error) {
	d, err := newDecoder(tr, g)
	if err != nil {
		return nil, err
	}
	out := make([]Sample, d.lay.T)
	for t := range out {
		out[t] = d.slot(t)
	}
	return out, nil
}
