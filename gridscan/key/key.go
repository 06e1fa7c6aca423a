// Package key implements the indexing algebra: a Key selects along one
// dimension, a Keyring bundles keys for several named dimensions.
package key

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/batchatco/go-gridscan/internal"
)

var (
	ErrInvalidKey        = errors.New("invalid key")
	ErrUnresolvableSlice = errors.New("slice cannot be resolved without the sequence size")
	ErrTypeMismatch      = errors.New("key type mismatch")
	ErrOrderTooShort     = errors.New("order does not cover every dimension")
	ErrOutOfRange        = errors.New("index out of range")
	ErrStringKey         = errors.New("operation not supported on string keys")
)

var logger = internal.Std()

// VarDim is the dimension holding variable names.
const VarDim = "var"

type Kind int

const (
	KindNone Kind = iota
	KindInt
	KindList
	KindSlice
)

var kindNames = []string{"none", "int", "list", "slice"}

func (k Kind) String() string {
	return kindNames[k]
}

// Key selects along one dimension. The zero value is a None key.
//
// In string mode the key holds names instead of positions (a single name for
// KindInt, a list of names for KindList, names as bounds for KindSlice). Names
// are translated to positions with MakeStrIdx.
type Key struct {
	kind  Kind
	i     int
	list  []int
	slc   Slice
	str   bool
	names []string

	psize    int
	hasPSize bool
}

// NoneKey returns a key selecting nothing in particular.
func NoneKey() Key { return Key{} }

// Int returns a key selecting one index; the dimension is squeezed.
func Int(i int) Key { return Key{kind: KindInt, i: i} }

// List returns a key selecting the given indices in order.
func List(indices ...int) Key {
	return Key{kind: KindList, list: append([]int{}, indices...)}
}

// SliceKey returns a key holding a slice.
func SliceKey(s Slice) Key { return Key{kind: KindSlice, slc: s} }

// All returns a key selecting a whole dimension.
func All() Key { return SliceKey(Whole()) }

// Name returns a string-mode key selecting one name.
func Name(name string) Key {
	return Key{kind: KindInt, str: true, names: []string{name}}
}

// Names returns a string-mode key selecting names in order.
func Names(names ...string) Key {
	return Key{kind: KindList, str: true, names: append([]string{}, names...)}
}

// NameSlice returns a string-mode slice between two names, stop excluded.
// An empty name is an unset bound.
func NameSlice(start, stop string) Key {
	return Key{kind: KindSlice, str: true, names: []string{start, stop}}
}

// New wraps a value into a Key. It accepts nil, int, []int, string,
// []string, Slice, Key and []any holding only ints or only strings.
func New(v any) (Key, error) {
	switch v := v.(type) {
	case nil:
		return NoneKey(), nil
	case Key:
		return v.Copy(), nil
	case int:
		return Int(v), nil
	case int64:
		return Int(int(v)), nil
	case int32:
		return Int(int(v)), nil
	case []int:
		return List(v...), nil
	case string:
		return Name(v), nil
	case []string:
		return Names(v...), nil
	case Slice:
		if v.Step.Set && v.Step.V == 0 {
			return Key{}, fmt.Errorf("%w: slice step cannot be zero", ErrInvalidKey)
		}
		return SliceKey(v), nil
	case []any:
		return fromMixed(v)
	}
	return Key{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidKey, v)
}

func fromMixed(v []any) (Key, error) {
	var ints []int
	var names []string
	for _, e := range v {
		switch e := e.(type) {
		case int:
			ints = append(ints, e)
		case string:
			names = append(names, e)
		default:
			return Key{}, fmt.Errorf("%w: unsupported list element %T", ErrInvalidKey, e)
		}
	}
	switch {
	case len(ints) > 0 && len(names) > 0:
		return Key{}, fmt.Errorf("%w: list mixes integers and strings", ErrInvalidKey)
	case len(names) > 0:
		return Names(names...), nil
	}
	return List(ints...), nil
}

func (k Key) Kind() Kind      { return k.kind }
func (k Key) IsString() bool  { return k.str }
func (k Key) IsNone() bool    { return k.kind == KindNone }
func (k Key) IsInt() bool     { return k.kind == KindInt }
func (k Key) IsList() bool    { return k.kind == KindList }
func (k Key) IsSlice() bool   { return k.kind == KindSlice }
func (k Key) Slice() Slice    { return k.slc }
func (k Key) IntValue() int   { return k.i }
func (k Key) Ints() []int     { return append([]int{}, k.list...) }
func (k Key) Names() []string { return append([]string{}, k.names...) }

// ParentSize returns the size of the sequence the key applies to, if known.
func (k Key) ParentSize() (int, bool) { return k.psize, k.hasPSize }

// SetParentSize records the size of the sequence the key applies to, which
// resolves otherwise ambiguous slices.
func (k *Key) SetParentSize(n int) {
	k.psize = n
	k.hasPSize = true
}

// WithParentSize is SetParentSize on a copy.
func (k Key) WithParentSize(n int) Key {
	c := k.Copy()
	c.SetParentSize(n)
	return c
}

func (k Key) Copy() Key {
	c := k
	if k.list != nil {
		c.list = append([]int{}, k.list...)
	}
	if k.names != nil {
		c.names = append([]string{}, k.names...)
	}
	return c
}

// Size is the number of elements the key selects. None and Int keys have
// size 0 since they squeeze the dimension. The size of a slice may be
// unknown without a parent size.
func (k Key) Size() (int, bool) {
	switch k.kind {
	case KindNone, KindInt:
		return 0, true
	case KindList:
		if k.str {
			return len(k.names), true
		}
		return len(k.list), true
	}
	if k.str {
		return 0, false
	}
	if k.hasPSize {
		start, stop, step := k.slc.Indices(k.psize)
		return rangeLen(start, stop, step), true
	}
	return GuessSliceSize(k.slc)
}

// IsWhole reports whether the key selects every element in order.
func (k Key) IsWhole() bool {
	if k.kind != KindSlice || k.str {
		return false
	}
	if IsNoneSlice(k.slc) {
		return true
	}
	if !k.hasPSize {
		return false
	}
	start, stop, step := k.slc.Indices(k.psize)
	return step == 1 && start == 0 && stop == k.psize
}

// AsList materializes the selected indices. A parent size, when known,
// normalizes negative indices and checks bounds. A None key without parent
// size gives nil.
func (k Key) AsList() ([]int, error) {
	if k.hasPSize {
		return k.Indices(k.psize)
	}
	if k.str {
		return nil, fmt.Errorf("%w: as list", ErrStringKey)
	}
	switch k.kind {
	case KindInt:
		return []int{k.i}, nil
	case KindList:
		return append([]int{}, k.list...), nil
	case KindSlice:
		return GuessToList(k.slc)
	}
	return nil, nil
}

// Indices materializes the selected indices for a sequence of size n. A
// None key selects everything.
func (k Key) Indices(n int) ([]int, error) {
	if k.str {
		return nil, fmt.Errorf("%w: indices", ErrStringKey)
	}
	switch k.kind {
	case KindInt:
		i, err := normIndex(k.i, n)
		if err != nil {
			return nil, err
		}
		return []int{i}, nil
	case KindList:
		out := make([]int, len(k.list))
		for j, v := range k.list {
			i, err := normIndex(v, n)
			if err != nil {
				return nil, err
			}
			out[j] = i
		}
		return out, nil
	case KindSlice:
		return k.slc.List(n), nil
	}
	return rangeList(0, n, 1), nil
}

func normIndex(i, n int) (int, error) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: %d for size %d", ErrOutOfRange, i, n)
	}
	return i, nil
}

// Apply selects from seq as array indexing would. An Int key returns a
// single element. A None key returns the whole sequence. String-mode keys
// only apply to string sequences and select by name.
func Apply[T any](k Key, seq []T) ([]T, error) {
	if k.str {
		names, ok := any(seq).([]string)
		if !ok {
			return nil, fmt.Errorf("%w: applying names to %T", ErrTypeMismatch, seq)
		}
		sel, err := k.applyNames(names)
		if err != nil {
			return nil, err
		}
		return any(sel).([]T), nil
	}
	if k.kind == KindNone {
		return append([]T{}, seq...), nil
	}
	idx, err := k.Indices(len(seq))
	if err != nil {
		return nil, err
	}
	out := make([]T, len(idx))
	for j, i := range idx {
		out[j] = seq[i]
	}
	return out, nil
}

func (k Key) applyNames(seq []string) ([]string, error) {
	pos := make(map[string]int, len(seq))
	for i, s := range seq {
		pos[s] = i
	}
	switch k.kind {
	case KindSlice:
		s, err := nameSliceToSlice(k.names, func(n string) (int, bool) {
			i, ok := pos[n]
			return i, ok
		})
		if err != nil {
			return nil, err
		}
		return Apply(SliceKey(s), seq)
	case KindNone:
		return append([]string{}, seq...), nil
	}
	out := make([]string, 0, len(k.names))
	for _, n := range k.names {
		if _, ok := pos[n]; !ok {
			return nil, fmt.Errorf("%w: name %q", ErrOutOfRange, n)
		}
		out = append(out, n)
	}
	return out, nil
}

func nameSliceToSlice(names []string, index func(string) (int, bool)) (Slice, error) {
	var s Slice
	if names[0] != "" {
		i, ok := index(names[0])
		if !ok {
			return s, fmt.Errorf("%w: name %q", ErrOutOfRange, names[0])
		}
		s.Start = At(i)
	}
	if names[1] != "" {
		i, ok := index(names[1])
		if !ok {
			return s, fmt.Errorf("%w: name %q", ErrOutOfRange, names[1])
		}
		s.Stop = At(i)
	}
	return s, nil
}

// Simplify turns a constant-step list into a slice.
func (k *Key) Simplify() error {
	if k.str {
		return fmt.Errorf("%w: simplify", ErrStringKey)
	}
	if k.kind != KindList {
		return nil
	}
	if s, ok := ListToSlice(k.list); ok {
		k.kind = KindSlice
		k.slc = s
		k.list = nil
	}
	return nil
}

// Reverse reverses the order in which indices are selected.
func (k *Key) Reverse() error {
	if k.str {
		return fmt.Errorf("%w: reverse", ErrStringKey)
	}
	switch k.kind {
	case KindList:
		for i, j := 0, len(k.list)-1; i < j; i, j = i+1, j-1 {
			k.list[i], k.list[j] = k.list[j], k.list[i]
		}
	case KindSlice:
		if k.hasPSize {
			l := k.slc.List(k.psize)
			s, err := reverseList(l, k.slc)
			if err == nil {
				k.slc = s
				return nil
			}
			k.kind = KindList
			for i, j := 0, len(l)-1; i < j; i, j = i+1, j-1 {
				l[i], l[j] = l[j], l[i]
			}
			k.list = l
			return nil
		}
		s, err := ReverseSliceOrder(k.slc)
		if err != nil {
			return err
		}
		k.slc = s
	}
	return nil
}

// Sort makes the selection ascending.
func (k *Key) Sort() error {
	switch {
	case k.str:
		return nil
	case k.kind == KindList:
		sort.Ints(k.list)
	case k.kind == KindSlice && k.slc.step() < 0:
		return k.Reverse()
	}
	return nil
}

// MakeIntList turns an Int key into a one-element List.
func (k *Key) MakeIntList() {
	if k.kind != KindInt {
		return
	}
	k.kind = KindList
	if !k.str {
		k.list = []int{k.i}
	}
}

// MakeListInt turns a one-element List key into an Int.
func (k *Key) MakeListInt() {
	if k.kind != KindList {
		return
	}
	if k.str && len(k.names) == 1 {
		k.kind = KindInt
		return
	}
	if !k.str && len(k.list) == 1 {
		k.kind = KindInt
		k.i = k.list[0]
		k.list = nil
	}
}

// Namer translates between names and positions.
type Namer interface {
	Index(name string) (int, bool)
	NameAt(i int) (string, bool)
	Len() int
}

// MakeStrIdx turns a string-mode key into positions.
func (k *Key) MakeStrIdx(n Namer) error {
	if !k.str {
		return nil
	}
	switch k.kind {
	case KindInt:
		i, ok := n.Index(k.names[0])
		if !ok {
			return fmt.Errorf("%w: name %q", ErrOutOfRange, k.names[0])
		}
		k.i = i
	case KindList:
		k.list = make([]int, len(k.names))
		for j, name := range k.names {
			i, ok := n.Index(name)
			if !ok {
				return fmt.Errorf("%w: name %q", ErrOutOfRange, name)
			}
			k.list[j] = i
		}
	case KindSlice:
		s, err := nameSliceToSlice(k.names, n.Index)
		if err != nil {
			return err
		}
		k.slc = s
	}
	k.str = false
	k.names = nil
	return nil
}

// MakeIdxStr turns a positional key into names.
func (k *Key) MakeIdxStr(n Namer) error {
	if k.str || k.kind == KindNone {
		return nil
	}
	idx, err := k.Indices(n.Len())
	if err != nil {
		return err
	}
	names := make([]string, len(idx))
	for j, i := range idx {
		names[j], _ = n.NameAt(i)
	}
	if k.kind == KindSlice {
		k.kind = KindList
	}
	k.str = true
	k.names = names
	k.list = nil
	return nil
}

// Mul composes two keys: if B = A[k] and C = B[other] then C = A[k*other].
// The result is an Int if either operand is, else a List if either is,
// else a Slice when the composed run allows it.
func (k Key) Mul(other Key) (Key, error) {
	if other.kind == KindNone || (!other.str && IsNoneSlice(other.slc) && other.kind == KindSlice) {
		return k.Copy(), nil
	}
	if other.str && !k.str && k.kind != KindNone {
		return Key{}, fmt.Errorf("%w: %s * %s", ErrTypeMismatch, k, other)
	}
	if k.kind == KindNone || k.IsWhole() {
		res := other.Copy()
		if k.hasPSize {
			res.SetParentSize(k.psize)
		}
		return res, nil
	}
	if k.str {
		return k.mulNames(other)
	}
	a, err := k.AsList()
	if err != nil {
		return Key{}, err
	}
	out, err := Apply(other, a)
	if err != nil {
		return Key{}, err
	}
	var res Key
	switch {
	case k.kind == KindInt || other.kind == KindInt:
		if len(out) != 1 {
			return Key{}, fmt.Errorf("%w: %s * %s", ErrInvalidKey, k, other)
		}
		res = Int(out[0])
	case k.kind == KindList || other.kind == KindList:
		res = List(out...)
	default:
		res = runKey(out)
	}
	res.hasPSize, res.psize = k.hasPSize, k.psize
	return res, nil
}

func (k Key) mulNames(other Key) (Key, error) {
	if k.kind == KindSlice {
		return Key{}, fmt.Errorf("%w: composing a name slice", ErrStringKey)
	}
	var sel []string
	var err error
	if other.str {
		sel, err = other.applyNames(k.allNames())
	} else {
		sel, err = Apply(other, k.allNames())
	}
	if err != nil {
		return Key{}, err
	}
	if k.kind == KindInt || other.kind == KindInt {
		if len(sel) != 1 {
			return Key{}, fmt.Errorf("%w: %s * %s", ErrInvalidKey, k, other)
		}
		return Name(sel[0]), nil
	}
	return Names(sel...), nil
}

func (k Key) allNames() []string {
	return k.names
}

// runKey returns a slice key when l is a constant-step run.
func runKey(l []int) Key {
	if len(l) == 1 {
		stop := At(l[0] + 1)
		if stop.V == 0 {
			stop = None
		}
		return SliceKey(Slice{Start: At(l[0]), Stop: stop})
	}
	if s, ok := ListToSlice(l); ok {
		return SliceKey(s)
	}
	return List(l...)
}

// Add concatenates two selections. The result is a List, or a Slice when
// a slice operand is involved and the concatenation is still a run.
func (k Key) Add(other Key) (Key, error) {
	if other.kind == KindNone {
		return k.Copy(), nil
	}
	if k.kind == KindNone {
		return other.Copy(), nil
	}
	if k.str != other.str {
		return Key{}, fmt.Errorf("%w: %s + %s", ErrTypeMismatch, k, other)
	}
	if k.str {
		if k.kind == KindSlice || other.kind == KindSlice {
			return Key{}, fmt.Errorf("%w: adding name slices", ErrStringKey)
		}
		return Names(append(k.Names(), other.names...)...), nil
	}
	a, err := k.AsList()
	if err != nil {
		return Key{}, err
	}
	b, err := other.AsList()
	if err != nil {
		return Key{}, err
	}
	out := append(a, b...)
	var res Key
	if k.kind == KindSlice || other.kind == KindSlice {
		res = runKey(out)
	} else {
		res = List(out...)
	}
	res.hasPSize, res.psize = k.hasPSize, k.psize
	return res, nil
}

// Equal compares the selections, ignoring parent sizes.
func (k Key) Equal(o Key) bool {
	if k.kind != o.kind || k.str != o.str {
		return false
	}
	if k.str {
		return equalSlices(k.names, o.names)
	}
	switch k.kind {
	case KindInt:
		return k.i == o.i
	case KindList:
		return equalSlices(k.list, o.list)
	case KindSlice:
		return k.slc == o.slc
	}
	return true
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	if k.str {
		switch k.kind {
		case KindInt:
			return k.names[0]
		case KindSlice:
			return k.names[0] + ":" + k.names[1]
		}
		return "[" + strings.Join(k.names, " ") + "]"
	}
	switch k.kind {
	case KindNone:
		return "None"
	case KindInt:
		return fmt.Sprint(k.i)
	case KindList:
		return fmt.Sprint(k.list)
	}
	return k.slc.String()
}
