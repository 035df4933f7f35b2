// Package scaler decides which widths a responsive image set is rendered at.
package scaler

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for scaler bounds that cannot produce a
// finite, non-empty sequence.
var ErrInvalidArgument = errors.New("invalid scaler argument")

// Scaler produces target widths. The order of the result is not
// significant; callers sort.
type Scaler interface {
	Scale() []int
	Name() string
}

// Names accepted by New.
const (
	NameRange = "range"
	NameSizes = "sizes"
)

// RangeOptions configures a range scaler.
type RangeOptions struct {
	Min  int
	Max  int
	Step int
}

// Range yields Min, Min+Step, ... up to and including Max. Max itself is
// only produced when a step lands on it exactly.
type Range struct {
	min, max, step int
}

// NewRange validates the bounds and returns a range scaler.
func NewRange(minWidth, maxWidth, step int) (*Range, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %d", ErrInvalidArgument, step)
	}
	if minWidth >= maxWidth {
		return nil, fmt.Errorf("%w: min width %d must be less than max width %d", ErrInvalidArgument, minWidth, maxWidth)
	}
	if minWidth <= 0 {
		return nil, fmt.Errorf("%w: min width must be positive, got %d", ErrInvalidArgument, minWidth)
	}
	return &Range{min: minWidth, max: maxWidth, step: step}, nil
}

func (r *Range) Scale() []int {
	widths := make([]int, 0, (r.max-r.min)/r.step+1)
	for w := r.min; w <= r.max; w += r.step {
		widths = append(widths, w)
	}
	return widths
}

func (r *Range) Name() string { return NameRange }

// Options returns the bounds the scaler was built with.
func (r *Range) Options() RangeOptions {
	return RangeOptions{Min: r.min, Max: r.max, Step: r.step}
}

// Sizes returns a fixed list of widths verbatim.
type Sizes struct {
	widths []int
}

// NewSizes copies widths into a sizes scaler.
func NewSizes(widths []int) *Sizes {
	return &Sizes{widths: append([]int(nil), widths...)}
}

func (s *Sizes) Scale() []int {
	return append([]int(nil), s.widths...)
}

func (s *Sizes) Name() string { return NameSizes }

// New builds a scaler by name.
func New(name string, opts RangeOptions, sizes []int) (Scaler, error) {
	switch name {
	case NameRange:
		return NewRange(opts.Min, opts.Max, opts.Step)
	case NameSizes:
		return NewSizes(sizes), nil
	}
	return nil, fmt.Errorf("%w: unknown scaler %q", ErrInvalidArgument, name)
}
