package database

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/batchatco/go-gridscan/gridscan/accessor"
	"github.com/batchatco/go-gridscan/gridscan/coord"
	"github.com/batchatco/go-gridscan/gridscan/filegroup"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/gridscan/scope"
	pkgerrors "github.com/pkg/errors"
)

// availKeyring normalizes kr, over the available scope, for loading: every
// dimension present, variables as indices, nothing squeezed.
func (db *DataBase) availKeyring(kr *key.Keyring) (*key.Keyring, error) {
	kr = kr.Copy()
	for _, d := range kr.Dims() {
		if d != key.VarDim && !contains(db.CoordDims(), d) {
			return nil, pkgerrors.Wrapf(scope.ErrUnknownDim, "%s", d)
		}
	}
	kr.MakeFull(db.Dims()...)
	if err := kr.MakeStrIdx(key.VarDim, db.Avail.Var); err != nil {
		return nil, pkgerrors.Wrap(ErrUnknownVariable, err.Error())
	}
	kr.MakeTotal(db.Dims()...)
	kr.MakeIntList(db.Dims()...)
	kr.SetShape(db.Avail.Sizes())
	if err := kr.SortBy(db.Dims()); err != nil {
		return nil, err
	}
	return kr, nil
}

// Commands returns, by filegroup, the reads a load of kr would do.
// Filegroups with nothing to read are left out.
func (db *DataBase) Commands(kr *key.Keyring) (map[string][]*filegroup.Command, error) {
	kr, err := db.availKeyring(kr)
	if err != nil {
		return nil, err
	}
	out := map[string][]*filegroup.Command{}
	for _, fg := range db.filegroups {
		cmds, err := fg.GetCommands(kr)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
		}
		if len(cmds) > 0 {
			out[fg.Name] = cmds
		}
	}
	return out, nil
}

// Load reads the selection kr of the available scope into memory. Keys
// of the variable dimension can be names. Nothing is read unless the
// filegroups cover the whole selection. On error the data previously
// loaded is kept.
func (db *DataBase) Load(kr *key.Keyring) error {
	kr, err := db.availKeyring(kr)
	if err != nil {
		return err
	}
	loaded := db.Avail.Copy()
	loaded.Name = "loaded"
	loaded.SetParent(db.Avail, key.NewKeyring())
	loaded.ResetParentKeyring()
	if err := loaded.Slice(kr, true); err != nil {
		return err
	}
	if loaded.IsEmpty() {
		return pkgerrors.Wrap(ErrEmptyScope, "load")
	}
	if err := db.checkCoverage(kr, loaded); err != nil {
		return err
	}

	dest := make(map[string]*accessor.Array, loaded.Var.Size())
	for _, v := range loaded.Variables() {
		dest[v] = db.acs.Allocate(loaded.Shape())
		fill(dest[v], math.NaN())
	}
	for _, fg := range db.filegroups {
		if err := fg.LoadFromAvailable(kr, db.acs, dest, db.CoordDims()); err != nil {
			return pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
		}
	}
	db.Loaded = loaded
	db.data = dest
	logger.Infof("loaded %s", loaded)
	return db.runPostLoad()
}

func fill(a *accessor.Array, v float64) {
	data := a.Data()
	for i := range data {
		data[i] = v
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// checkCoverage fails unless every point of the selection is provided by
// exactly one filegroup. A filegroup provides the product of the indices
// it serves along each dimension. Computed variables are not read.
func (db *DataBase) checkCoverage(kr *key.Keyring, loaded *scope.Scope) error {
	served := make([]map[string][]int, len(db.filegroups))
	for i, fg := range db.filegroups {
		s, err := fg.Served(kr)
		if err != nil {
			return err
		}
		served[i] = s
	}
	coords := loaded.Coords()
	for vm, v := range loaded.Variables() {
		if db.computed[v] {
			continue
		}
		var holders []map[string][]int
		for _, s := range served {
			if containsInt(s[key.VarDim], vm) {
				holders = append(holders, s)
			}
		}
		if len(holders) == 0 {
			return pkgerrors.Wrapf(ErrNotCovered, "variable %s", v)
		}
		classes := make([][]coverClass, len(coords))
		for d, c := range coords {
			classes[d] = coverClasses(c.Size(), holders, c.Name)
		}
		point := make([]int, len(coords))
		var walk func(d int, common []bool) error
		walk = func(d int, common []bool) error {
			if d == len(coords) {
				n := 0
				for _, ok := range common {
					if ok {
						n++
					}
				}
				switch {
				case n == 0:
					return pkgerrors.Wrapf(ErrNotCovered, "variable %s at %s", v, formatPoint(coords, point))
				case n > 1:
					return pkgerrors.Wrapf(ErrDuplicateData, "variable %s at %s", v, formatPoint(coords, point))
				}
				return nil
			}
			for _, cl := range classes[d] {
				next := make([]bool, len(common))
				for h := range common {
					next[h] = common[h] && cl.holders[h]
				}
				point[d] = cl.first
				if err := walk(d+1, next); err != nil {
					return err
				}
			}
			return nil
		}
		all := make([]bool, len(holders))
		for h := range all {
			all[h] = true
		}
		if err := walk(0, all); err != nil {
			return err
		}
	}
	return nil
}

// coverClass groups the indices of a dimension served by the same
// filegroups.
type coverClass struct {
	holders []bool
	first   int
}

func coverClasses(n int, holders []map[string][]int, dim string) []coverClass {
	sigs := make([][]bool, n)
	for i := range sigs {
		sigs[i] = make([]bool, len(holders))
	}
	for h, s := range holders {
		for _, m := range s[dim] {
			sigs[m][h] = true
		}
	}
	seen := map[string]bool{}
	var out []coverClass
	for i, sig := range sigs {
		b := make([]byte, len(sig))
		for h, ok := range sig {
			if ok {
				b[h] = 1
			}
		}
		if seen[string(b)] {
			continue
		}
		seen[string(b)] = true
		out = append(out, coverClass{holders: sig, first: i})
	}
	return out
}

func formatPoint(coords []*coord.Coord, point []int) string {
	parts := make([]string, len(coords))
	for d, c := range coords {
		parts[d] = c.Name + " = " + c.Format(c.Value(point[d]))
	}
	return strings.Join(parts, ", ")
}

func containsInt(list []int, i int) bool {
	for _, x := range list {
		if x == i {
			return true
		}
	}
	return false
}

// LoadByValue loads the values selected by value keys, for variables or
// every available variable if none is given. A value outside the available
// scope is not covered.
func (db *DataBase) LoadByValue(values map[string]coord.ValueKey, variables ...string) error {
	kr, err := db.Avail.GetKeyringByValue(values)
	if errors.Is(err, coord.ErrOutsideRange) {
		return fmt.Errorf("%w: %w", ErrNotCovered, err)
	}
	if err != nil {
		return err
	}
	if len(variables) > 0 {
		kr.SetKey(key.VarDim, key.Names(variables...))
	}
	return db.Load(kr)
}

// LoadSelected loads the selected scope, further narrowed by kr if not
// nil. The selection must have been made on the available scope.
func (db *DataBase) LoadSelected(kr *key.Keyring) error {
	if db.Selected.IsEmpty() {
		return pkgerrors.Wrap(ErrEmptyScope, "selection")
	}
	if db.Selected.ParentScope() != db.Avail {
		return ErrNotFromAvail
	}
	sel := db.Selected
	if kr != nil {
		sel = sel.Copy()
		if err := sel.Slice(kr, true); err != nil {
			return err
		}
	}
	return db.Load(sel.ParentKeyring())
}

// UnloadData drops the loaded data.
func (db *DataBase) UnloadData() {
	db.data = nil
	db.Loaded.Empty()
}

// IsLoaded reports whether data is in memory.
func (db *DataBase) IsLoaded() bool {
	return !db.Loaded.IsEmpty() && db.data != nil
}
