// Package scope describes a part of a dataset: its variables and the values
// of its coordinates. A database has an available scope, a loaded scope
// and a selected scope.
package scope

import (
	"errors"
	"fmt"
	"strings"

	"github.com/batchatco/go-gridscan/gridscan/coord"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/gridscan/util"
	pkgerrors "github.com/pkg/errors"
)

var ErrUnknownDim = errors.New("unknown dimension")

// Scope holds copies of coordinates. A scope derived from another keeps
// the keyring that, applied to its parent, gives it back.
type Scope struct {
	Name string
	Var  *coord.Str

	coords   *util.OrderedMap[*coord.Coord]
	parent   *Scope
	parentKr *key.Keyring
}

// New returns a scope over copies of coords.
func New(name string, variables []string, coords []*coord.Coord) (*Scope, error) {
	v, err := coord.NewStr(key.VarDim, variables)
	if err != nil {
		return nil, err
	}
	s := &Scope{Name: name, Var: v, coords: util.New[*coord.Coord]()}
	for _, c := range coords {
		s.coords.Add(c.Name, c.Copy())
	}
	s.ResetParentKeyring()
	return s, nil
}

// Dims returns the dimensions, the variable first.
func (s *Scope) Dims() []string {
	return append([]string{key.VarDim}, s.coords.Keys()...)
}

// CoordDims returns the dimensions of the coordinates.
func (s *Scope) CoordDims() []string {
	return s.coords.Keys()
}

func (s *Scope) Coord(dim string) (*coord.Coord, bool) {
	return s.coords.Get(dim)
}

func (s *Scope) Coords() []*coord.Coord {
	out := make([]*coord.Coord, 0, s.coords.Len())
	for _, d := range s.coords.Keys() {
		c, _ := s.coords.Get(d)
		out = append(out, c)
	}
	return out
}

func (s *Scope) Variables() []string {
	return s.Var.Values()
}

// Shape returns the size of every coordinate.
func (s *Scope) Shape() []int {
	out := make([]int, 0, s.coords.Len())
	for _, c := range s.Coords() {
		out = append(out, c.Size())
	}
	return out
}

// Sizes returns the size of every dimension, the variable included.
func (s *Scope) Sizes() map[string]int {
	out := map[string]int{key.VarDim: s.Var.Size()}
	for _, c := range s.Coords() {
		out[c.Name] = c.Size()
	}
	return out
}

func (s *Scope) ParentScope() *Scope         { return s.parent }
func (s *Scope) ParentKeyring() *key.Keyring { return s.parentKr.Copy() }

// SetParent makes s a subscope of parent, reached with kr.
func (s *Scope) SetParent(parent *Scope, kr *key.Keyring) {
	s.parent = parent
	s.parentKr = kr.Copy()
}

// ResetParentKeyring makes the scope its own reference: the parent keyring
// selects everything.
func (s *Scope) ResetParentKeyring() {
	s.parentKr = key.NewKeyring()
	s.parentKr.MakeFull(s.Dims()...)
}

// Slice narrows the scope. Keys are composed with the parent keyring.
// Int keys become lists when int2list is set, so that the dimension is
// kept in the parent keyring. On the variable dimension the variables are
// restricted to the ones requested, in the requested order.
func (s *Scope) Slice(kr *key.Keyring, int2list bool) error {
	for _, dim := range kr.Dims() {
		k, _ := kr.Get(dim)
		if int2list {
			k.MakeIntList()
		}
		if dim == key.VarDim {
			if err := s.sliceVar(k); err != nil {
				return err
			}
			continue
		}
		c, has := s.coords.Get(dim)
		if !has {
			return pkgerrors.Wrapf(ErrUnknownDim, "scope %s: %s", s.Name, dim)
		}
		k.SetParentSize(c.Size())
		prev, _ := s.parentKr.Get(dim)
		composed, err := prev.Mul(k)
		if err != nil {
			return pkgerrors.Wrapf(err, "scope %s: %s", s.Name, dim)
		}
		if err := c.Slice(k); err != nil {
			return err
		}
		s.parentKr.SetKey(dim, composed)
	}
	return nil
}

func (s *Scope) sliceVar(k key.Key) error {
	if k.IsNone() {
		return nil
	}
	if err := k.MakeIdxStr(s.Var); err != nil {
		return pkgerrors.Wrapf(err, "scope %s: variables", s.Name)
	}
	names := k.Names()
	if k.IsSlice() {
		var err error
		if names, err = key.Apply(k, s.Var.Values()); err != nil {
			return err
		}
	}
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if s.Var.Has(n) {
			kept = append(kept, n)
		}
	}
	if err := s.Var.UpdateValues(kept); err != nil {
		return err
	}
	if k.IsInt() && len(kept) == 1 {
		s.parentKr.SetKey(key.VarDim, key.Name(kept[0]))
	} else {
		s.parentKr.SetKey(key.VarDim, key.Names(kept...))
	}
	return nil
}

// Copy copies the scope; the parent is shared.
func (s *Scope) Copy() *Scope {
	c := &Scope{
		Name:     s.Name,
		Var:      s.Var.Copy(),
		coords:   util.New[*coord.Coord](),
		parent:   s.parent,
		parentKr: s.parentKr.Copy(),
	}
	for _, co := range s.Coords() {
		c.coords.Add(co.Name, co.Copy())
	}
	return c
}

// IsEmpty reports whether the scope lacks variables or values.
func (s *Scope) IsEmpty() bool {
	if !s.Var.HasData() {
		return true
	}
	for _, c := range s.Coords() {
		if !c.HasData() {
			return true
		}
	}
	return false
}

// Empty drops every variable and value.
func (s *Scope) Empty() {
	s.Var.Empty()
	for _, c := range s.Coords() {
		c.Empty()
	}
	s.parent = nil
	s.ResetParentKeyring()
}

// GetExtent returns the first and last values of dim selected by k.
func (s *Scope) GetExtent(dim string, k key.Key) ([2]float64, error) {
	c, has := s.coords.Get(dim)
	if !has {
		return [2]float64{}, pkgerrors.Wrapf(ErrUnknownDim, "scope %s: %s", s.Name, dim)
	}
	return c.GetExtent(k)
}

// GetLimits returns the minimum and maximum values of dim selected by k.
func (s *Scope) GetLimits(dim string, k key.Key) ([2]float64, error) {
	c, has := s.coords.Get(dim)
	if !has {
		return [2]float64{}, pkgerrors.Wrapf(ErrUnknownDim, "scope %s: %s", s.Name, dim)
	}
	return c.GetLimits(k)
}

// GetKeyringByValue resolves value keys against the coordinates.
func (s *Scope) GetKeyringByValue(values map[string]coord.ValueKey) (*key.Keyring, error) {
	kr := key.NewKeyring()
	for _, dim := range s.CoordDims() {
		vk, has := values[dim]
		if !has {
			continue
		}
		c, _ := s.coords.Get(dim)
		k, err := vk.Resolve(c)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "scope %s: %s", s.Name, dim)
		}
		kr.SetKey(dim, k)
	}
	for dim := range values {
		if !s.coords.Has(dim) {
			return nil, pkgerrors.Wrapf(ErrUnknownDim, "scope %s: %s", s.Name, dim)
		}
	}
	return kr, nil
}

// IterSlices splits dim into consecutive slices of size values.
func (s *Scope) IterSlices(dim string, size int) ([]key.Key, error) {
	c, has := s.coords.Get(dim)
	if !has {
		return nil, pkgerrors.Wrapf(ErrUnknownDim, "scope %s: %s", s.Name, dim)
	}
	if size <= 0 {
		return nil, pkgerrors.Errorf("scope %s: slices of %d values", s.Name, size)
	}
	var out []key.Key
	for start := 0; start < c.Size(); start += size {
		stop := start + size
		if stop > c.Size() {
			stop = c.Size()
		}
		out = append(out, key.SliceKey(key.Span(start, stop)))
	}
	return out, nil
}

// IterSlicesMonth splits the time dimension dim by month.
func (s *Scope) IterSlicesMonth(dim string) ([]key.Key, error) {
	c, has := s.coords.Get(dim)
	if !has {
		return nil, pkgerrors.Wrapf(ErrUnknownDim, "scope %s: %s", s.Name, dim)
	}
	months, err := c.IterMonths()
	if err != nil {
		return nil, err
	}
	out := make([]key.Key, len(months))
	for i, m := range months {
		out[i] = key.SliceKey(key.Span(m[0], m[len(m)-1]+1))
	}
	return out, nil
}

func (s *Scope) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s scope", s.Name)
	if s.IsEmpty() {
		b.WriteString(" (empty)")
	}
	b.WriteString("\n  " + s.Var.String())
	for _, c := range s.Coords() {
		b.WriteString("\n  " + c.String())
	}
	return b.String()
}
