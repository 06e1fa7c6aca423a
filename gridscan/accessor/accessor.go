package accessor

import (
	"fmt"

	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-thrower"
)

// Accessor is the set of array primitives the database relies on. Keyrings
// passed to Take, Place and CheckShape list the array axes in order; Int
// keys squeeze their axis.
type Accessor interface {
	Allocate(shape []int) *Array
	Take(kr *key.Keyring, a *Array) (*Array, error)
	Place(kr *key.Keyring, a *Array, chunk *Array) error
	CheckShape(kr *key.Keyring, a *Array, chunk *Array) error
	Reorder(current, target []string, a *Array) (*Array, error)
	MoveAxis(a *Array, src, dst int) (*Array, error)
	ExpandDims(a *Array, axis int) (*Array, error)
	Concatenate(arrays []*Array, axis int) (*Array, error)
}

// Default implements Accessor with outer indexing: a list or slice on
// each axis selects independently of the other axes.
type Default struct{}

var _ Accessor = Default{}

func (Default) Allocate(shape []int) *Array {
	return NewArray(shape...)
}

// selection holds the indices taken along each axis.
type selection struct {
	idx     [][]int
	squeeze []bool
}

func (s selection) shape() []int {
	out := []int{}
	for a, l := range s.idx {
		if !s.squeeze[a] {
			out = append(out, len(l))
		}
	}
	return out
}

func (s selection) size() int {
	n := 1
	for _, l := range s.idx {
		n *= len(l)
	}
	return n
}

// selectKeys resolves the keyring against the array shape. It throws on error.
func selectKeys(kr *key.Keyring, shape []int) selection {
	dims := kr.Dims()
	if len(dims) > len(shape) {
		thrower.Throw(fmt.Errorf("%w: %d keys for %d axes", ErrBadAxis, len(dims), len(shape)))
	}
	s := selection{idx: make([][]int, len(shape)), squeeze: make([]bool, len(shape))}
	for a, n := range shape {
		k := key.All()
		if a < len(dims) {
			k, _ = kr.Get(dims[a])
		}
		l, err := k.Indices(n)
		if err != nil {
			thrower.Throw(fmt.Errorf("axis %s: %w", dims[a], err))
		}
		s.idx[a] = l
		s.squeeze[a] = k.IsInt()
	}
	return s
}

// walk calls f with the flat offset in an array of the given shape for
// every element of the selection, in row-major order of the selection.
func walk(s selection, shape []int, f func(src int)) {
	walkStrides(s, strides(shape), f)
}

func (Default) Take(kr *key.Keyring, a *Array) (out *Array, err error) {
	defer thrower.RecoverError(&err)
	s := selectKeys(kr, a.shape)
	out = NewArray(s.shape()...)
	j := 0
	walk(s, a.shape, func(src int) {
		out.data[j] = a.data[src]
		j++
	})
	return out, nil
}

func (d Default) CheckShape(kr *key.Keyring, a *Array, chunk *Array) (err error) {
	defer thrower.RecoverError(&err)
	s := selectKeys(kr, a.shape)
	return checkShape(s.shape(), chunk.shape)
}

func checkShape(want, got []int) error {
	if len(want) != len(got) {
		return fmt.Errorf("%w: expected %v, got %v", ErrShapeMismatch, want, got)
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%w: expected %v, got %v", ErrShapeMismatch, want, got)
		}
	}
	return nil
}

func (Default) Place(kr *key.Keyring, a *Array, chunk *Array) (err error) {
	defer thrower.RecoverError(&err)
	s := selectKeys(kr, a.shape)
	if err := checkShape(s.shape(), chunk.shape); err != nil {
		return err
	}
	j := 0
	walk(s, a.shape, func(dst int) {
		a.data[dst] = chunk.data[j]
		j++
	})
	return nil
}

// Transpose permutes the axes: axis i of the result is axis perm[i] of a.
func Transpose(a *Array, perm []int) (*Array, error) {
	if len(perm) != len(a.shape) {
		return nil, fmt.Errorf("%w: permutation %v for %d axes", ErrBadAxis, perm, len(a.shape))
	}
	seen := make([]bool, len(perm))
	shape := make([]int, len(perm))
	for i, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("%w: permutation %v", ErrBadAxis, perm)
		}
		seen[p] = true
		shape[i] = a.shape[p]
	}
	out := NewArray(shape...)
	srcStrides := strides(a.shape)
	s := selection{idx: make([][]int, len(shape)), squeeze: make([]bool, len(shape))}
	permStrides := make([]int, len(shape))
	for i, p := range perm {
		s.idx[i] = make([]int, shape[i])
		for j := range s.idx[i] {
			s.idx[i][j] = j
		}
		permStrides[i] = srcStrides[p]
	}
	j := 0
	walkStrides(s, permStrides, func(src int) {
		out.data[j] = a.data[src]
		j++
	})
	return out, nil
}

func walkStrides(s selection, st []int, f func(off int)) {
	if s.size() == 0 {
		return
	}
	counter := make([]int, len(st))
	for {
		off := 0
		for a, c := range counter {
			off += s.idx[a][c] * st[a]
		}
		f(off)
		a := len(counter) - 1
		for ; a >= 0; a-- {
			counter[a]++
			if counter[a] < len(s.idx[a]) {
				break
			}
			counter[a] = 0
		}
		if a < 0 {
			return
		}
	}
}

func (Default) ExpandDims(a *Array, axis int) (*Array, error) {
	if axis < 0 || axis > len(a.shape) {
		return nil, fmt.Errorf("%w: %d for %d axes", ErrBadAxis, axis, len(a.shape))
	}
	shape := append(append(a.Shape()[:axis:axis], 1), a.shape[axis:]...)
	return FromData(a.data, shape...)
}

func (Default) MoveAxis(a *Array, src, dst int) (*Array, error) {
	n := len(a.shape)
	if src < 0 || src >= n || dst < 0 || dst >= n {
		return nil, fmt.Errorf("%w: move %d to %d for %d axes", ErrBadAxis, src, dst, n)
	}
	perm := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if i != src {
			perm = append(perm, i)
		}
	}
	perm = append(perm[:dst], append([]int{src}, perm[dst:]...)...)
	return Transpose(a, perm)
}

// Reorder turns an array whose axes are named current into one whose axes
// are named target. Target dimensions missing from current become axes of
// length one.
func (d Default) Reorder(current, target []string, a *Array) (*Array, error) {
	if len(current) != len(a.shape) {
		return nil, fmt.Errorf("%w: %d names for %d axes", ErrBadAxis, len(current), len(a.shape))
	}
	pos := make(map[string]int, len(target))
	for i, t := range target {
		pos[t] = i
	}
	names := append([]string{}, current...)
	for _, c := range current {
		if _, ok := pos[c]; !ok {
			return nil, fmt.Errorf("%w: dimension %s not in %v", ErrBadAxis, c, target)
		}
	}
	out := a
	for _, t := range target {
		found := false
		for _, n := range names {
			if n == t {
				found = true
				break
			}
		}
		if !found {
			var err error
			out, err = d.ExpandDims(out, len(names))
			if err != nil {
				return nil, err
			}
			names = append(names, t)
		}
	}
	perm := make([]int, len(target))
	for i, n := range names {
		perm[pos[n]] = i
	}
	return Transpose(out, perm)
}

func (Default) Concatenate(arrays []*Array, axis int) (*Array, error) {
	if len(arrays) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrShapeMismatch)
	}
	ref := arrays[0].shape
	if axis < 0 || axis >= len(ref) {
		return nil, fmt.Errorf("%w: %d for %d axes", ErrBadAxis, axis, len(ref))
	}
	total := 0
	for _, a := range arrays {
		if len(a.shape) != len(ref) {
			return nil, fmt.Errorf("%w: %v and %v", ErrShapeMismatch, ref, a.shape)
		}
		for i := range ref {
			if i != axis && a.shape[i] != ref[i] {
				return nil, fmt.Errorf("%w: %v and %v", ErrShapeMismatch, ref, a.shape)
			}
		}
		total += a.shape[axis]
	}
	shape := append([]int{}, ref...)
	shape[axis] = total
	out := NewArray(shape...)
	outer := product(ref[:axis])
	inner := product(ref[axis+1:])
	pos := 0
	for o := 0; o < outer; o++ {
		for _, a := range arrays {
			n := a.shape[axis] * inner
			copy(out.data[pos:pos+n], a.data[o*n:(o+1)*n])
			pos += n
		}
	}
	return out, nil
}

// Stack joins arrays of identical shape along a new axis.
func Stack(acs Accessor, arrays []*Array, axis int) (*Array, error) {
	expanded := make([]*Array, len(arrays))
	for i, a := range arrays {
		e, err := acs.ExpandDims(a, axis)
		if err != nil {
			return nil, err
		}
		expanded[i] = e
	}
	return acs.Concatenate(expanded, axis)
}
