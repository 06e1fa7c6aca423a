// Package accessor moves data between N-dimensional arrays: taking a
// selection described by a keyring, placing a chunk into a larger array,
// reordering axes and concatenating.
package accessor

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrBadAxis       = errors.New("invalid axis")
)

// Array is a dense row-major array of float64.
type Array struct {
	shape []int
	data  []float64
}

// NewArray returns an array of zeros.
func NewArray(shape ...int) *Array {
	return &Array{shape: append([]int{}, shape...), data: make([]float64, product(shape))}
}

// NewFilled returns an array filled with v.
func NewFilled(v float64, shape ...int) *Array {
	a := NewArray(shape...)
	for i := range a.data {
		a.data[i] = v
	}
	return a
}

// FromData wraps data, which must hold exactly the product of shape.
func FromData(data []float64, shape ...int) (*Array, error) {
	if len(data) != product(shape) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(data), shape)
	}
	return &Array{shape: append([]int{}, shape...), data: data}, nil
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func strides(shape []int) []int {
	st := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= shape[i]
	}
	return st
}

func (a *Array) Shape() []int { return append([]int{}, a.shape...) }
func (a *Array) NDim() int    { return len(a.shape) }
func (a *Array) Size() int    { return len(a.data) }

// Data returns the underlying storage, not a copy.
func (a *Array) Data() []float64 { return a.data }

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("%d indices for %d dimensions", len(idx), len(a.shape)))
	}
	off := 0
	st := strides(a.shape)
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("index %d out of range for axis %d of size %d", v, i, a.shape[i]))
		}
		off += v * st[i]
	}
	return off
}

// At returns the element at idx.
func (a *Array) At(idx ...int) float64 {
	return a.data[a.offset(idx)]
}

// Set stores v at idx.
func (a *Array) Set(v float64, idx ...int) {
	a.data[a.offset(idx)] = v
}

func (a *Array) Copy() *Array {
	return &Array{shape: a.Shape(), data: append([]float64{}, a.data...)}
}

// Reshape returns an array sharing the data with a new shape.
func (a *Array) Reshape(shape ...int) (*Array, error) {
	return FromData(a.data, shape...)
}

// Min and Max ignore NaN values; they return NaN for an empty array.
func (a *Array) Min() float64 {
	m := math.NaN()
	for _, v := range a.data {
		if !math.IsNaN(v) && (math.IsNaN(m) || v < m) {
			m = v
		}
	}
	return m
}

func (a *Array) Max() float64 {
	m := math.NaN()
	for _, v := range a.data {
		if !math.IsNaN(v) && (math.IsNaN(m) || v > m) {
			m = v
		}
	}
	return m
}

func (a *Array) String() string {
	return fmt.Sprintf("Array%v", a.shape)
}
