// Package grid turns row and column weightings into exact pixel rectangles.
package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptySpec         = errors.New("grid spec has no weights")
	ErrNonPositiveWeight = errors.New("grid weights must be greater than zero")
)

// Spec is an ordered weight sequence for one axis. A single weight n is
// shorthand for n equal partitions; two or more weights split the axis
// proportionally.
type Spec struct {
	w []uint32
}

// Single leaves an axis unsplit.
var Single = Spec{w: []uint32{1}}

// NewSpec validates weights and returns an immutable Spec.
func NewSpec(weights ...int) (Spec, error) {
	if len(weights) == 0 {
		return Spec{}, ErrEmptySpec
	}
	w := make([]uint32, len(weights))
	for i, v := range weights {
		if v <= 0 {
			return Spec{}, fmt.Errorf("weight %d (%d): %w", i, v, ErrNonPositiveWeight)
		}
		if int64(v) > int64(^uint32(0)) {
			return Spec{}, fmt.Errorf("weight %d (%d) out of range", i, v)
		}
		w[i] = uint32(v)
	}
	return Spec{w: w}, nil
}

// MustSpec is NewSpec for literals known to be valid.
func MustSpec(weights ...int) Spec {
	s, err := NewSpec(weights...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Spec) Len() int { return len(s.w) }

func (s Spec) IsZero() bool { return len(s.w) == 0 }

func (s Spec) Shorthand() bool { return len(s.w) == 1 }

// Weights returns a copy of the raw weights.
func (s Spec) Weights() []int {
	out := make([]int, len(s.w))
	for i, v := range s.w {
		out[i] = int(v)
	}
	return out
}

func (s Spec) String() string {
	parts := make([]string, len(s.w))
	for i, v := range s.w {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, ",")
}
