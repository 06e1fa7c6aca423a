package key

import (
	"fmt"
	"strconv"
)

// Bound is an optional slice bound. The zero value is None.
type Bound struct {
	V   int
	Set bool
}

// None is an unset bound.
var None = Bound{}

// At returns a set bound.
func At(v int) Bound {
	return Bound{V: v, Set: true}
}

func (b Bound) String() string {
	if !b.Set {
		return ""
	}
	return strconv.Itoa(b.V)
}

// Slice is a strided range with the stop bound excluded. Negative bounds
// count from the end of the sequence. Unset bounds extend to the ends in
// the direction of the step.
type Slice struct {
	Start, Stop, Step Bound
}

// Span returns the slice [start, stop) with unit step.
func Span(start, stop int) Slice {
	return Slice{Start: At(start), Stop: At(stop)}
}

// Whole returns the slice selecting everything.
func Whole() Slice {
	return Slice{}
}

// NewSlice returns a slice; step 0 is rejected.
func NewSlice(start, stop, step Bound) (Slice, error) {
	if step.Set && step.V == 0 {
		return Slice{}, fmt.Errorf("%w: slice step cannot be zero", ErrInvalidKey)
	}
	return Slice{Start: start, Stop: stop, Step: step}, nil
}

func (s Slice) step() int {
	if !s.Step.Set {
		return 1
	}
	return s.Step.V
}

func (s Slice) String() string {
	out := s.Start.String() + ":" + s.Stop.String()
	if s.Step.Set {
		out += ":" + s.Step.String()
	}
	return out
}

// Indices normalizes the slice for a sequence of the given size.
func (s Slice) Indices(size int) (start, stop, step int) {
	step = s.step()
	if step > 0 {
		start, stop = 0, size
		if s.Start.Set {
			start = clamp(s.Start.V, size, 0, size)
		}
		if s.Stop.Set {
			stop = clamp(s.Stop.V, size, 0, size)
		}
		return
	}
	start, stop = size-1, -1
	if s.Start.Set {
		start = clamp(s.Start.V, size, -1, size-1)
	}
	if s.Stop.Set {
		stop = clamp(s.Stop.V, size, -1, size-1)
	}
	return
}

func clamp(v, size, lo, hi int) int {
	if v < 0 {
		v += size
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// List returns the indices selected in a sequence of the given size.
func (s Slice) List(size int) []int {
	start, stop, step := s.Indices(size)
	return rangeList(start, stop, step)
}

func rangeList(start, stop, step int) []int {
	out := []int{}
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out
}

func rangeLen(start, stop, step int) int {
	if step > 0 {
		if stop <= start {
			return 0
		}
		return (stop - start + step - 1) / step
	}
	if stop >= start {
		return 0
	}
	return (start - stop - step - 1) / -step
}

// IsNoneSlice reports whether s selects a whole sequence in order.
func IsNoneSlice(s Slice) bool {
	return (!s.Start.Set || s.Start.V == 0) && !s.Stop.Set && s.step() == 1
}

func sameSign(a, b int) bool {
	return (a >= 0 && b >= 0) || (a < 0 && b < 0)
}

// guessBounds returns the explicit range of a slice when it does not depend
// on the size of the sequence.
func guessBounds(s Slice) (start, stop, step int, ok bool) {
	step = s.step()
	switch {
	case s.Start.Set && s.Stop.Set:
		if sameSign(s.Start.V, s.Stop.V) {
			return s.Start.V, s.Stop.V, step, true
		}
	case step > 0:
		if !s.Start.Set && s.Stop.Set && s.Stop.V >= 0 {
			return 0, s.Stop.V, step, true
		}
	default:
		if !s.Stop.Set && s.Start.Set && s.Start.V >= 0 {
			return s.Start.V, -1, step, true
		}
		if !s.Start.Set && s.Stop.Set && s.Stop.V < 0 {
			return -1, s.Stop.V, step, true
		}
	}
	return 0, 0, 0, false
}

// GuessSliceSize returns the number of elements s selects when that does
// not depend on the size of the sequence.
func GuessSliceSize(s Slice) (int, bool) {
	start, stop, step, ok := guessBounds(s)
	if !ok {
		return 0, false
	}
	return rangeLen(start, stop, step), true
}

// GuessToList materializes s without knowing the sequence size. Negative
// bounds produce negative indices.
func GuessToList(s Slice) ([]int, error) {
	start, stop, step, ok := guessBounds(s)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvableSlice, s)
	}
	return rangeList(start, stop, step), nil
}

// ListToSlice converts a constant-step run into a slice. Lists mixing
// negative and non-negative indices, and lists shorter than two elements,
// are not converted.
func ListToSlice(l []int) (Slice, bool) {
	if len(l) < 2 {
		return Slice{}, false
	}
	neg, pos := false, false
	for _, v := range l {
		if v < 0 {
			neg = true
		} else {
			pos = true
		}
	}
	if neg && pos {
		return Slice{}, false
	}
	step := l[1] - l[0]
	if step == 0 {
		return Slice{}, false
	}
	for i := 2; i < len(l); i++ {
		if l[i]-l[i-1] != step {
			return Slice{}, false
		}
	}
	shift := 1
	if step < 0 {
		shift = -1
	}
	stop := At(l[len(l)-1] + shift)
	if (step > 0 && stop.V == 0) || (step < 0 && stop.V == -1) {
		stop = None
	}
	return Slice{Start: At(l[0]), Stop: stop, Step: At(step)}, true
}

// ReverseSliceOrder reverses the order in which a unit-step slice takes its
// indices. The indices themselves do not change.
func ReverseSliceOrder(s Slice) (Slice, error) {
	step := s.step()
	if step != 1 && step != -1 {
		l, err := GuessToList(s)
		if err != nil {
			return Slice{}, err
		}
		return reverseList(l, s)
	}
	shift, over := -1, 0
	if step < 0 {
		shift, over = 1, -1
	}
	start, stop := s.Start, s.Stop
	if start.Set {
		if start.V == over {
			start = None
		} else {
			start.V += shift
		}
	}
	if stop.Set {
		if stop.V == over {
			stop = None
		} else {
			stop.V += shift
		}
	}
	return Slice{Start: stop, Stop: start, Step: At(-step)}, nil
}

func reverseList(l []int, orig Slice) (Slice, error) {
	r := make([]int, len(l))
	for i, v := range l {
		r[len(l)-1-i] = v
	}
	if rs, ok := ListToSlice(r); ok {
		return rs, nil
	}
	if len(r) <= 1 {
		return orig, nil
	}
	return Slice{}, fmt.Errorf("%w: cannot reverse %s", ErrUnresolvableSlice, orig)
}
