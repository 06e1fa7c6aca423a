package database

import (
	"math"
	"sort"

	"github.com/batchatco/go-gridscan/gridscan/accessor"
	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/coord"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/gridscan/scope"
	"github.com/batchatco/go-gridscan/gridscan/varinfo"
	"github.com/batchatco/go-gridscan/internal"
	pkgerrors "github.com/pkg/errors"
)

// selectVariables returns the names of the loaded variables selected by k.
func (db *DataBase) selectVariables(k key.Key) ([]string, error) {
	if k.IsNone() {
		return db.Loaded.Variables(), nil
	}
	if err := k.MakeIdxStr(db.Loaded.Var); err != nil {
		return nil, pkgerrors.Wrap(ErrUnknownVariable, err.Error())
	}
	names := k.Names()
	if k.IsSlice() {
		var err error
		if names, err = key.Apply(k, db.Loaded.Variables()); err != nil {
			return nil, err
		}
	}
	for _, n := range names {
		if !db.Loaded.Var.Has(n) {
			return nil, pkgerrors.Wrapf(ErrUnknownVariable, "%s is not loaded", n)
		}
	}
	return names, nil
}

// View returns parts of the loaded arrays, by variable. Int keys drop
// their dimension.
func (db *DataBase) View(kr *key.Keyring) (map[string]*accessor.Array, error) {
	if !db.IsLoaded() {
		return nil, ErrNotLoaded
	}
	kr = kr.Copy()
	varKey, _ := kr.Pop(key.VarDim)
	names, err := db.selectVariables(varKey)
	if err != nil {
		return nil, err
	}
	for _, d := range kr.Dims() {
		if !contains(db.CoordDims(), d) {
			return nil, pkgerrors.Wrapf(scope.ErrUnknownDim, "%s", d)
		}
	}
	kr.MakeFull(db.CoordDims()...)
	kr.MakeTotal(db.CoordDims()...)
	kr.SetShape(db.Loaded.Sizes())
	if err := kr.SortBy(db.CoordDims()); err != nil {
		return nil, err
	}
	out := make(map[string]*accessor.Array, len(names))
	for _, n := range names {
		a, err := db.acs.Take(kr, db.data[n])
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "viewing %s", n)
		}
		out[n] = a
	}
	return out, nil
}

// ViewByValue is View with value keys.
func (db *DataBase) ViewByValue(values map[string]coord.ValueKey, variables ...string) (map[string]*accessor.Array, error) {
	kr, err := db.Loaded.GetKeyringByValue(values)
	if err != nil {
		return nil, err
	}
	if len(variables) > 0 {
		kr.SetKey(key.VarDim, key.Names(variables...))
	}
	return db.View(kr)
}

// ViewSelected views the selected scope, further narrowed by kr if not
// nil. The selection must have been made on the loaded scope.
func (db *DataBase) ViewSelected(kr *key.Keyring) (map[string]*accessor.Array, error) {
	if db.Selected.IsEmpty() {
		return nil, pkgerrors.Wrap(ErrEmptyScope, "selection")
	}
	if db.Selected.ParentScope() != db.Loaded {
		return nil, ErrNotFromLoaded
	}
	sel := db.Selected
	if kr != nil {
		sel = sel.Copy()
		if err := sel.Slice(kr, false); err != nil {
			return nil, err
		}
	}
	return db.View(sel.ParentKeyring())
}

// ViewStacked views variables stacked along a new first axis, in the
// order of the variable key.
func (db *DataBase) ViewStacked(kr *key.Keyring) (*accessor.Array, error) {
	varKey, _ := kr.Get(key.VarDim)
	names, err := db.selectVariables(varKey)
	if err != nil {
		return nil, err
	}
	views, err := db.View(kr)
	if err != nil {
		return nil, err
	}
	arrays := make([]*accessor.Array, len(names))
	for i, n := range names {
		arrays[i] = views[n]
	}
	return accessor.Stack(db.acs, arrays, 0)
}

// GetSubscope returns the part of parent selected by kr. Int keys keep
// their dimension.
func (db *DataBase) GetSubscope(parent *scope.Scope, kr *key.Keyring) (*scope.Scope, error) {
	if parent.IsEmpty() {
		return nil, pkgerrors.Wrapf(ErrEmptyScope, "%s", parent.Name)
	}
	sub := parent.Copy()
	sub.SetParent(parent, key.NewKeyring())
	sub.ResetParentKeyring()
	if err := sub.Slice(kr, true); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetSubscopeByValue is GetSubscope with value keys.
func (db *DataBase) GetSubscopeByValue(parent *scope.Scope, values map[string]coord.ValueKey) (*scope.Scope, error) {
	kr, err := parent.GetKeyringByValue(values)
	if err != nil {
		return nil, err
	}
	return db.GetSubscope(parent, kr)
}

// Select replaces the selection by a part of parent, which is the
// available or the loaded scope.
func (db *DataBase) Select(parent *scope.Scope, kr *key.Keyring) error {
	sub, err := db.GetSubscope(parent, kr)
	if err != nil {
		return err
	}
	sub.Name = "selected"
	db.Selected = sub
	return nil
}

// SelectByValue is Select with value keys.
func (db *DataBase) SelectByValue(parent *scope.Scope, values map[string]coord.ValueKey) error {
	kr, err := parent.GetKeyringByValue(values)
	if err != nil {
		return err
	}
	return db.Select(parent, kr)
}

// AddToSelection extends the selection with the part of its parent
// selected by kr. Every dimension of the result holds the union of the
// indices of both parts. An empty selection is started on the available
// scope.
func (db *DataBase) AddToSelection(kr *key.Keyring) error {
	if db.Selected.IsEmpty() {
		return db.Select(db.Avail, kr)
	}
	parent := db.Selected.ParentScope()
	sub, err := db.GetSubscope(parent, kr)
	if err != nil {
		return err
	}
	prev, next := db.Selected.ParentKeyring(), sub.ParentKeyring()
	union := key.NewKeyring()
	sizes := parent.Sizes()
	for _, d := range parent.CoordDims() {
		a, _ := prev.Get(d)
		b, _ := next.Get(d)
		k, err := unionKeys(a, b, sizes[d])
		if err != nil {
			return pkgerrors.Wrapf(err, "%s", d)
		}
		union.SetKey(d, k)
	}
	names := db.Selected.Variables()
	for _, n := range sub.Variables() {
		if !contains(names, n) {
			names = append(names, n)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		a, _ := parent.Var.Index(names[i])
		b, _ := parent.Var.Index(names[j])
		return a < b
	})
	union.SetKey(key.VarDim, key.Names(names...))
	return db.Select(parent, union)
}

// unionKeys returns the sorted union of the indices of two keys over a
// sequence of n elements.
func unionKeys(a, b key.Key, n int) (key.Key, error) {
	if a.IsNone() || b.IsNone() {
		return key.All(), nil
	}
	ia, err := a.Indices(n)
	if err != nil {
		return key.Key{}, err
	}
	ib, err := b.Indices(n)
	if err != nil {
		return key.Key{}, err
	}
	seen := make(map[int]bool, len(ia)+len(ib))
	var out []int
	for _, i := range append(ia, ib...) {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	k := key.List(out...)
	k.Simplify()
	return k, nil
}

// SliceData narrows the loaded data, and the loaded scope, to kr.
func (db *DataBase) SliceData(kr *key.Keyring) error {
	if !db.IsLoaded() {
		return ErrNotLoaded
	}
	kr = kr.Copy()
	kr.MakeIntList()
	views, err := db.View(kr)
	if err != nil {
		return err
	}
	loaded := db.Loaded.Copy()
	if err := loaded.Slice(kr, true); err != nil {
		return err
	}
	db.Loaded = loaded
	db.data = views
	return nil
}

// Variable returns the loaded array of a variable.
func (db *DataBase) Variable(name string) (*accessor.Array, error) {
	if !db.IsLoaded() {
		return nil, ErrNotLoaded
	}
	a, has := db.data[name]
	if !has {
		return nil, pkgerrors.Wrapf(ErrUnknownVariable, "%s is not loaded", name)
	}
	return a, nil
}

// SetData replaces the loaded array of a variable. Its shape must be the
// one of the loaded scope.
func (db *DataBase) SetData(name string, a *accessor.Array) error {
	if !db.IsLoaded() {
		return ErrNotLoaded
	}
	if !db.Loaded.Var.Has(name) {
		return pkgerrors.Wrapf(ErrUnknownVariable, "%s is not loaded", name)
	}
	want, got := db.Loaded.Shape(), a.Shape()
	if len(want) != len(got) {
		return pkgerrors.Wrapf(accessor.ErrShapeMismatch, "%s: %v for %v", name, got, want)
	}
	for i := range want {
		if want[i] != got[i] {
			return pkgerrors.Wrapf(accessor.ErrShapeMismatch, "%s: %v for %v", name, got, want)
		}
	}
	db.data[name] = a
	return nil
}

// AddVariable declares a variable computed rather than read. It is
// available, and loaded filled with NaN if data is in memory.
func (db *DataBase) AddVariable(name string, attrs map[string]varinfo.AttrValue) error {
	if db.Avail.Var.Has(name) {
		return pkgerrors.Errorf("variable %s already exists", name)
	}
	if !internal.ValidName(name) {
		return pkgerrors.Wrapf(api.ErrBadName, "variable %q", name)
	}
	db.VI.AddVariable(name, attrs)
	if err := db.Avail.Var.Append(name); err != nil {
		return err
	}
	db.computed[name] = true
	db.remapVariables()
	if db.IsLoaded() {
		if err := db.Loaded.Var.Append(name); err != nil {
			return err
		}
		db.data[name] = db.acs.Allocate(db.Loaded.Shape())
		fill(db.data[name], math.NaN())
	}
	return nil
}

// remapVariables maps the variables of the filegroups onto the available
// ones after these changed.
func (db *DataBase) remapVariables() {
	for _, fg := range db.filegroups {
		fg.Var().FindContainedNames(db.Avail.Variables())
	}
}

// RemoveVariable forgets a variable everywhere.
func (db *DataBase) RemoveVariable(name string) error {
	if !db.Avail.Var.Has(name) {
		return pkgerrors.Wrapf(ErrUnknownVariable, "%s", name)
	}
	db.VI.RemoveVariable(name)
	db.Avail.Var.Remove(name)
	db.Loaded.Var.Remove(name)
	db.Selected.Var.Remove(name)
	delete(db.data, name)
	delete(db.computed, name)
	db.remapVariables()
	if db.Loaded.Var.Size() == 0 {
		db.UnloadData()
	}
	return nil
}

// Write writes loaded variables, all of them if none is given, to path.
// The backend of the first filegroup holding the first variable is used.
func (db *DataBase) Write(path string, variables ...string) error {
	if !db.IsLoaded() {
		return ErrNotLoaded
	}
	if len(variables) == 0 {
		variables = db.Loaded.Variables()
	}
	data := make(map[string]*accessor.Array, len(variables))
	for _, v := range variables {
		a, err := db.Variable(v)
		if err != nil {
			return err
		}
		data[v] = a
	}
	fg := db.filegroups[0]
	for _, g := range db.filegroups {
		if contains(g.Var().Names(), variables[0]) {
			fg = g
			break
		}
	}
	logger.Infof("writing %v to %s", variables, path)
	return fg.WriteData(path, db.Loaded.Coords(), data, db.VI)
}
