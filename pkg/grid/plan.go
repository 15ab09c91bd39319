package grid

import "image"

// Segment is one interval along an axis.
type Segment struct {
	Offset int
	Length int
}

// Rect is a tile rectangle in source pixel coordinates together with its
// position in the output grid.
type Rect struct {
	Row, Col      int
	X, Y          int
	Width, Height int
}

// Bounds returns the rectangle relative to a zero origin.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports a zero-width or zero-height tile.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Segments splits extent pixels according to spec.
//
// The unit length is floor(extent/total weight), at least 1. Every segment
// but the last gets weight*unit pixels; the last takes whatever is left so
// the lengths always sum to extent. When the weights outgrow the extent the
// trailing segments collapse to zero length instead of overrunning.
func Segments(extent int, spec Spec) []Segment {
	if extent <= 0 || spec.IsZero() {
		return nil
	}

	weights := spec.w
	if spec.Shorthand() {
		k := int64(spec.w[0])
		if k > int64(extent) {
			k = int64(extent)
		}
		weights = make([]uint32, k)
		for i := range weights {
			weights[i] = 1
		}
	}

	var total int64
	for _, w := range weights {
		total += int64(w)
	}
	unit := int64(extent) / total
	if unit < 1 {
		unit = 1
	}

	ext := int64(extent)
	segs := make([]Segment, len(weights))
	var start int64
	for i, w := range weights {
		off := min(start, ext)
		length := int64(w) * unit
		if i == len(weights)-1 || length > ext-off {
			length = ext - off
		}
		segs[i] = Segment{Offset: int(off), Length: int(length)}
		start += int64(w) * unit
	}
	return segs
}

// Plan is the immutable partition of one image.
type Plan struct {
	Width, Height int
	Rows, Cols    []Segment
}

// NewPlan partitions a width×height image.
func NewPlan(width, height int, rows, cols Spec) Plan {
	return Plan{
		Width:  width,
		Height: height,
		Rows:   Segments(height, rows),
		Cols:   Segments(width, cols),
	}
}

// Len is the number of tiles in the plan.
func (p Plan) Len() int { return len(p.Rows) * len(p.Cols) }

// Rects enumerates the tiles row-major.
func (p Plan) Rects() []Rect {
	out := make([]Rect, 0, p.Len())
	for r, rs := range p.Rows {
		for c, cs := range p.Cols {
			out = append(out, Rect{
				Row:    r,
				Col:    c,
				X:      cs.Offset,
				Y:      rs.Offset,
				Width:  cs.Length,
				Height: rs.Length,
			})
		}
	}
	return out
}
