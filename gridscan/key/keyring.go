package key

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-gridscan/gridscan/util"
)

// Keyring maps dimension names to keys. Its order is the order of the axes
// of the array it indexes.
type Keyring struct {
	keys *util.OrderedMap[Key]
}

func NewKeyring() *Keyring {
	return &Keyring{keys: util.New[Key]()}
}

// Set wraps v with New and stores it.
func (kr *Keyring) Set(dim string, v any) error {
	k, err := New(v)
	if err != nil {
		return fmt.Errorf("dimension %s: %w", dim, err)
	}
	kr.keys.Add(dim, k)
	return nil
}

// SetKey stores k and returns the keyring for chaining.
func (kr *Keyring) SetKey(dim string, k Key) *Keyring {
	kr.keys.Add(dim, k)
	return kr
}

func (kr *Keyring) Get(dim string) (Key, bool) {
	k, has := kr.keys.Get(dim)
	return k.Copy(), has
}

func (kr *Keyring) Has(dim string) bool {
	return kr.keys.Has(dim)
}

// Pop removes dim and returns its key.
func (kr *Keyring) Pop(dim string) (Key, bool) {
	k, has := kr.keys.Get(dim)
	kr.keys.Delete(dim)
	return k, has
}

func (kr *Keyring) Dims() []string {
	return kr.keys.Keys()
}

func (kr *Keyring) Len() int {
	return kr.keys.Len()
}

func (kr *Keyring) Copy() *Keyring {
	c := NewKeyring()
	for _, d := range kr.Dims() {
		k, _ := kr.keys.Get(d)
		c.keys.Add(d, k.Copy())
	}
	return c
}

// Subset returns the keys of the given dimensions that are present.
func (kr *Keyring) Subset(dims ...string) *Keyring {
	c := NewKeyring()
	for _, d := range dims {
		if k, has := kr.keys.Get(d); has {
			c.keys.Add(d, k.Copy())
		}
	}
	return c
}

// Update sets every key of other.
func (kr *Keyring) Update(other *Keyring) {
	for _, d := range other.Dims() {
		k, _ := other.keys.Get(d)
		kr.keys.Add(d, k.Copy())
	}
}

func (kr *Keyring) modify(dims []string, f func(k *Key) error) error {
	if len(dims) == 0 {
		dims = kr.Dims()
	}
	for _, d := range dims {
		k, has := kr.keys.Get(d)
		if !has {
			continue
		}
		k = k.Copy()
		if err := f(&k); err != nil {
			return fmt.Errorf("dimension %s: %w", d, err)
		}
		kr.keys.Add(d, k)
	}
	return nil
}

// MakeFull adds a None key for every missing dimension of dims. Dimensions
// already present but absent from dims are reported, not removed.
func (kr *Keyring) MakeFull(dims ...string) {
	kr.MakeFullWith(NoneKey(), dims...)
}

// MakeFullWith is MakeFull with a custom fill key.
func (kr *Keyring) MakeFullWith(fill Key, dims ...string) {
	want := make(map[string]bool, len(dims))
	for _, d := range dims {
		want[d] = true
		if !kr.keys.Has(d) {
			kr.keys.Add(d, fill.Copy())
		}
	}
	for _, d := range kr.Dims() {
		if !want[d] {
			logger.Warnf("keyring has dimension %s which is not expected (%v)", d, dims)
		}
	}
}

// MakeTotal replaces None keys with a slice selecting everything. Without
// arguments every dimension is considered.
func (kr *Keyring) MakeTotal(dims ...string) {
	kr.modify(dims, func(k *Key) error {
		if k.kind == KindNone {
			ps, has := k.psize, k.hasPSize
			*k = All()
			k.psize, k.hasPSize = ps, has
		}
		return nil
	})
}

// MakeSingle replaces None keys with Int(idx).
func (kr *Keyring) MakeSingle(idx int, dims ...string) {
	kr.modify(dims, func(k *Key) error {
		if k.kind == KindNone {
			*k = Int(idx)
		}
		return nil
	})
}

func (kr *Keyring) MakeIntList(dims ...string) {
	kr.modify(dims, func(k *Key) error {
		k.MakeIntList()
		return nil
	})
}

func (kr *Keyring) MakeListInt(dims ...string) {
	kr.modify(dims, func(k *Key) error {
		k.MakeListInt()
		return nil
	})
}

// Simplify turns constant-step lists into slices; string keys are left alone.
func (kr *Keyring) Simplify(dims ...string) {
	kr.modify(dims, func(k *Key) error {
		if !k.str {
			k.Simplify()
		}
		return nil
	})
}

func (kr *Keyring) SortKeys(dims ...string) error {
	return kr.modify(dims, func(k *Key) error {
		return k.Sort()
	})
}

// SetParentSize records the size of dim's parent sequence.
func (kr *Keyring) SetParentSize(dim string, n int) {
	if k, has := kr.keys.Get(dim); has {
		k.SetParentSize(n)
		kr.keys.Add(dim, k)
	}
}

// SetShape records parent sizes for the dimensions present in sizes.
func (kr *Keyring) SetShape(sizes map[string]int) {
	for d, n := range sizes {
		kr.SetParentSize(d, n)
	}
}

// MakeStrIdx translates the names of dim into positions.
func (kr *Keyring) MakeStrIdx(dim string, n Namer) error {
	return kr.modify([]string{dim}, func(k *Key) error {
		return k.MakeStrIdx(n)
	})
}

// MakeIdxStr translates the positions of dim into names.
func (kr *Keyring) MakeIdxStr(dim string, n Namer) error {
	return kr.modify([]string{dim}, func(k *Key) error {
		return k.MakeIdxStr(n)
	})
}

// SortBy reorders the keyring. Names of order that are not present are
// ignored; every present dimension must appear in order.
func (kr *Keyring) SortBy(order []string) error {
	newOrder := make([]string, 0, kr.Len())
	for _, d := range order {
		if kr.keys.Has(d) {
			newOrder = append(newOrder, d)
		}
	}
	if len(newOrder) != kr.Len() {
		return fmt.Errorf("%w: %v for %v", ErrOrderTooShort, order, kr.Dims())
	}
	return kr.keys.Reorder(newOrder)
}

// GetNonZeros returns the dimensions that will not be squeezed: those whose
// key is a list or a slice.
func (kr *Keyring) GetNonZeros() []string {
	out := []string{}
	for _, d := range kr.Dims() {
		k, _ := kr.keys.Get(d)
		if k.kind == KindList || k.kind == KindSlice {
			out = append(out, d)
		}
	}
	return out
}

// Shape returns the sizes of the non-squeezed dimensions, -1 when unknown.
func (kr *Keyring) Shape() []int {
	out := []int{}
	for _, d := range kr.GetNonZeros() {
		k, _ := kr.keys.Get(d)
		n, ok := k.Size()
		if !ok {
			n = -1
		}
		out = append(out, n)
	}
	return out
}

// IsShapeEquivalent compares the keyring shape to shape, unknown sizes
// matching anything.
func (kr *Keyring) IsShapeEquivalent(shape []int) bool {
	own := kr.Shape()
	if len(own) != len(shape) {
		return false
	}
	for i := range own {
		if own[i] >= 0 && shape[i] >= 0 && own[i] != shape[i] {
			return false
		}
	}
	return true
}

// Mul composes every key of kr with the matching key of other. Dimensions
// missing from other are taken whole.
func (kr *Keyring) Mul(other *Keyring) (*Keyring, error) {
	o := other.Copy()
	o.MakeFull(kr.Dims()...)
	o.MakeTotal()
	res := NewKeyring()
	for _, d := range kr.Dims() {
		a, _ := kr.keys.Get(d)
		b, _ := o.keys.Get(d)
		c, err := a.Mul(b)
		if err != nil {
			return nil, fmt.Errorf("dimension %s: %w", d, err)
		}
		res.keys.Add(d, c)
	}
	return res, nil
}

// Add concatenates every key of kr with the matching key of other.
func (kr *Keyring) Add(other *Keyring) (*Keyring, error) {
	o := other.Copy()
	o.MakeFull(kr.Dims()...)
	res := NewKeyring()
	for _, d := range kr.Dims() {
		a, _ := kr.keys.Get(d)
		b, _ := o.keys.Get(d)
		c, err := a.Add(b)
		if err != nil {
			return nil, fmt.Errorf("dimension %s: %w", d, err)
		}
		res.keys.Add(d, c)
	}
	return res, nil
}

// Equal compares dimensions, order and keys.
func (kr *Keyring) Equal(other *Keyring) bool {
	if !equalSlices(kr.Dims(), other.Dims()) {
		return false
	}
	for _, d := range kr.Dims() {
		a, _ := kr.keys.Get(d)
		b, _ := other.keys.Get(d)
		if !a.Equal(b) {
			return false
		}
	}
	return true
}

func (kr *Keyring) String() string {
	parts := make([]string, 0, kr.Len())
	for _, d := range kr.Dims() {
		k, _ := kr.keys.Get(d)
		parts = append(parts, d+": "+k.String())
	}
	return strings.Join(parts, ", ")
}

// Print returns the keys only, in order.
func (kr *Keyring) Print() string {
	parts := make([]string, 0, kr.Len())
	for _, d := range kr.Dims() {
		k, _ := kr.keys.Get(d)
		parts = append(parts, k.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
