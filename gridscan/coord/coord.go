// Package coord holds one-dimensional coordinates: strictly monotonic
// numeric values (possibly dates) and ordered name lists for variables.
package coord

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/batchatco/go-gridscan/gridscan/key"
)

var (
	ErrNotSorted   = errors.New("coordinate values are not strictly monotonic")
	ErrNoData      = errors.New("coordinate has no values")
	ErrEmptySubset = errors.New("no coordinate value in range")
	ErrBadUnits    = errors.New("invalid units")
	ErrNotTime     = errors.New("coordinate is not a time coordinate")
	ErrDuplicate   = errors.New("duplicate name")

	ErrOutsideRange = errors.New("value outside coordinate")
)

// DefaultThreshold is the tolerance used to compare coordinate values.
const DefaultThreshold = 1e-5

// Kind is the capability of a coordinate.
type Kind int

const (
	KindNumeric Kind = iota
	KindTime
	KindStr
)

func (k Kind) String() string {
	return [...]string{"numeric", "time", "str"}[k]
}

// Loc selects the neighbour returned by GetIndex when a value falls between
// two coordinate values.
type Loc int

const (
	LocClosest Loc = iota
	LocBelow
	LocAbove
)

func (l Loc) String() string {
	return [...]string{"closest", "below", "above"}[l]
}

// Coord is a strictly monotonic sequence of values, ascending or descending.
type Coord struct {
	Name     string
	Units    string
	Fullname string

	values     []float64
	descending bool
	cf         *CFUnits
}

// New returns a coordinate; values may be empty.
func New(name string, values []float64, units string) (*Coord, error) {
	c := &Coord{Name: name, Units: units}
	if err := c.UpdateValues(values); err != nil {
		return nil, err
	}
	return c, nil
}

// NewEmpty returns a coordinate waiting for values.
func NewEmpty(name, units string) *Coord {
	return &Coord{Name: name, Units: units}
}

func (c *Coord) Kind() Kind {
	if c.cf != nil {
		return KindTime
	}
	return KindNumeric
}

// UpdateValues replaces the values, checking monotonicity.
func (c *Coord) UpdateValues(values []float64) error {
	desc, err := checkMonotonic(values)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	c.values = append([]float64{}, values...)
	c.descending = desc
	return nil
}

func checkMonotonic(values []float64) (descending bool, err error) {
	if len(values) < 2 {
		return false, nil
	}
	descending = values[1] < values[0]
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if math.IsNaN(d) || d == 0 || (d < 0) != descending {
			return false, ErrNotSorted
		}
	}
	return descending, nil
}

func (c *Coord) Values() []float64 {
	return append([]float64{}, c.values...)
}

func (c *Coord) Value(i int) float64 {
	return c.values[i]
}

func (c *Coord) Size() int {
	return len(c.values)
}

func (c *Coord) HasData() bool {
	return len(c.values) > 0
}

func (c *Coord) IsDescending() bool {
	return c.descending
}

func (c *Coord) Copy() *Coord {
	cp := *c
	cp.values = append([]float64{}, c.values...)
	return &cp
}

// Empty drops the values.
func (c *Coord) Empty() {
	c.values = nil
	c.descending = false
}

// Slice keeps the values selected by k. An Int key keeps one value.
func (c *Coord) Slice(k key.Key) error {
	if !c.HasData() {
		return nil
	}
	values, err := key.Apply(k, c.values)
	if err != nil {
		return fmt.Errorf("slicing %s: %w", c.Name, err)
	}
	return c.UpdateValues(values)
}

// ascending returns the values in increasing order.
func (c *Coord) ascending() []float64 {
	if !c.descending {
		return c.values
	}
	out := make([]float64, len(c.values))
	for i, v := range c.values {
		out[len(c.values)-1-i] = v
	}
	return out
}

func getClosest(l []float64, v float64, loc Loc) int {
	pos := sort.SearchFloat64s(l, v)
	if pos == 0 {
		return 0
	}
	if pos == len(l) {
		return len(l) - 1
	}
	switch loc {
	case LocBelow:
		if l[pos] == v {
			return pos
		}
		return pos - 1
	case LocAbove:
		return pos
	}
	if v-l[pos-1] <= l[pos]-v {
		return pos - 1
	}
	return pos
}

// GetIndex returns the index of the value closest to v, or the closest
// value below or above it. Values outside the coordinate clamp to its ends.
// Below and above refer to values, so they work the same whether the
// coordinate is ascending or descending.
func (c *Coord) GetIndex(v float64, loc Loc) (int, error) {
	if !c.HasData() {
		return 0, fmt.Errorf("%s: %w", c.Name, ErrNoData)
	}
	i := getClosest(c.ascending(), v, loc)
	if c.descending {
		i = len(c.values) - 1 - i
	}
	return i, nil
}

// GetIndices is GetIndex for several values.
func (c *Coord) GetIndices(values []float64, loc Loc) ([]int, error) {
	out := make([]int, len(values))
	for j, v := range values {
		i, err := c.GetIndex(v, loc)
		if err != nil {
			return nil, err
		}
		out[j] = i
	}
	return out, nil
}

// GetIndexExact returns the index of v if a value lies within threshold.
func (c *Coord) GetIndexExact(v, threshold float64) (int, bool) {
	i, err := c.GetIndex(v, LocClosest)
	if err != nil {
		return 0, false
	}
	if math.Abs(c.values[i]-v) < threshold {
		return i, true
	}
	return 0, false
}

// Subset returns the slice of the values within [vmin, vmax], or within
// (vmin, vmax) if exclude is set. Applying the slice gives values in the
// stored order of the coordinate.
func (c *Coord) Subset(vmin, vmax float64, exclude bool) (key.Slice, error) {
	if vmin > vmax {
		vmin, vmax = vmax, vmin
	}
	return c.subset(vmin, vmax, exclude, exclude)
}

func (c *Coord) subset(vmin, vmax float64, openMin, openMax bool) (key.Slice, error) {
	if !c.HasData() {
		return key.Slice{}, fmt.Errorf("%s: %w", c.Name, ErrNoData)
	}
	asc := c.ascending()
	n := len(asc)
	lo := sort.Search(n, func(i int) bool {
		if openMin {
			return asc[i] > vmin
		}
		return asc[i] >= vmin
	})
	hi := sort.Search(n, func(i int) bool {
		if openMax {
			return asc[i] >= vmax
		}
		return asc[i] > vmax
	}) - 1
	if lo > hi {
		return key.Slice{}, fmt.Errorf("%s [%s, %s]: %w", c.Name, c.Format(vmin), c.Format(vmax), ErrEmptySubset)
	}
	if c.descending {
		lo, hi = n-1-hi, n-1-lo
	}
	return key.Span(lo, hi+1), nil
}

// GetExtent returns the first and last values selected by k.
func (c *Coord) GetExtent(k key.Key) ([2]float64, error) {
	values, err := key.Apply(k, c.values)
	if err != nil {
		return [2]float64{}, err
	}
	if len(values) == 0 {
		return [2]float64{}, fmt.Errorf("%s: %w", c.Name, ErrNoData)
	}
	return [2]float64{values[0], values[len(values)-1]}, nil
}

// GetLimits returns the minimum and maximum values selected by k.
func (c *Coord) GetLimits(k key.Key) ([2]float64, error) {
	ext, err := c.GetExtent(k)
	if err != nil {
		return ext, err
	}
	if ext[0] > ext[1] {
		ext[0], ext[1] = ext[1], ext[0]
	}
	return ext, nil
}

// ExtentString formats the extent of the whole coordinate.
func (c *Coord) ExtentString() string {
	ext, err := c.GetExtent(key.All())
	if err != nil {
		return "empty"
	}
	return c.Format(ext[0]) + " - " + c.Format(ext[1])
}

// Step returns the spacing of a regular coordinate.
func (c *Coord) Step(threshold float64) (float64, bool) {
	if len(c.values) < 2 {
		return 0, false
	}
	step := c.values[1] - c.values[0]
	for i := 2; i < len(c.values); i++ {
		if math.Abs(c.values[i]-c.values[i-1]-step) > threshold {
			return 0, false
		}
	}
	return step, true
}

// IsRegular reports whether values are evenly spaced.
func (c *Coord) IsRegular(threshold float64) bool {
	_, ok := c.Step(threshold)
	return ok
}

// GetCollocated returns the index pairs (in c, in other) of values found in
// both coordinates.
func (c *Coord) GetCollocated(other *Coord, threshold float64) [][2]int {
	var out [][2]int
	for i, v := range c.values {
		if j, ok := other.GetIndexExact(v, threshold); ok {
			out = append(out, [2]int{i, j})
		}
	}
	return out
}

// Format formats a value for messages.
func (c *Coord) Format(v float64) string {
	if c.cf != nil {
		return c.cf.ToTime(v).Format("2006-01-02 15:04:05")
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (c *Coord) String() string {
	s := fmt.Sprintf("%s: %s (%d)", c.Name, c.ExtentString(), c.Size())
	if c.Units != "" {
		s += " [" + c.Units + "]"
	}
	return s
}
