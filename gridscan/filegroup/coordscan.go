package filegroup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/coord"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/gridscan/varinfo"
	pkgerrors "github.com/pkg/errors"
)

// NoIndex marks a value whose dimension is absent from the file, or an
// available value absent from a filegroup.
const NoIndex = -1

// ScanKind tells whether values of a coordinate differ between files.
type ScanKind int

const (
	// ScanIn coordinates are identical in every file of the filegroup.
	ScanIn ScanKind = iota
	// ScanShared coordinates vary from file to file.
	ScanShared
)

func (k ScanKind) String() string {
	return [...]string{"in", "shared"}[k]
}

type State int

const (
	StateUnscanned State = iota
	StateScanning
	StateFinalized
	StateChecked
)

func (s State) String() string {
	return [...]string{"unscanned", "scanning", "finalized", "checked"}[s]
}

// UnitsConverter converts values from units to the units of the coordinate.
type UnitsConverter func(values []float64, from, to string) ([]float64, error)

// CoordScan accumulates, for one filegroup and one dimension, the values
// found while scanning with their index in the files. For a shared
// coordinate it also keeps the text matched in the filename for each value.
//
// Numeric and time coordinates hold values; the variable coordinate holds
// names, and in-file names in place of in-file indices.
type CoordScan struct {
	Name string
	// InName is the name of the dimension and coordinate variable in files.
	InName string
	Kind   coord.Kind
	Scan   ScanKind
	// Units found in files, if any.
	Units     string
	Attrs     map[string]varinfo.AttrValue
	Converter UnitsConverter

	coord    *coord.Coord
	defaults []float64

	matchers  []*Matcher
	filenameS []FilenameScanner
	inFileS   []InFileScanner
	attrS     []AttributeScanner

	values  []float64
	names   []string
	inIdx   []int
	inNames []string
	matches [][]string
	seen    map[string]bool

	fixedIn       *int
	manual        bool
	idxDescending bool
	scannedIn     bool
	state         State
	contains      []int
}

func newCoordScan(c *coord.Coord, kind ScanKind, inName string) *CoordScan {
	if inName == "" {
		inName = c.Name
	}
	cs := &CoordScan{
		Name:     c.Name,
		InName:   inName,
		Kind:     c.Kind(),
		Scan:     kind,
		Attrs:    map[string]varinfo.AttrValue{},
		coord:    c.Copy(),
		defaults: c.Values(),
	}
	cs.coord.Empty()
	return cs
}

func newVarScan(kind ScanKind) *CoordScan {
	return &CoordScan{
		Name:   key.VarDim,
		InName: key.VarDim,
		Kind:   coord.KindStr,
		Scan:   kind,
		Attrs:  map[string]varinfo.AttrValue{},
		manual: kind == ScanIn,
	}
}

func (cs *CoordScan) State() State   { return cs.state }
func (cs *CoordScan) IsShared() bool { return cs.Scan == ScanShared }
func (cs *CoordScan) IsStr() bool    { return cs.Kind == coord.KindStr }

func (cs *CoordScan) Matchers() []*Matcher {
	return append([]*Matcher{}, cs.matchers...)
}

// Coord returns the scanned values as a coordinate with the units of the
// database coordinate.
func (cs *CoordScan) Coord() *coord.Coord {
	return cs.coord
}

func (cs *CoordScan) Size() int {
	if cs.IsStr() {
		return len(cs.names)
	}
	return len(cs.values)
}

func (cs *CoordScan) Values() []float64 { return append([]float64{}, cs.values...) }
func (cs *CoordScan) Names() []string   { return append([]string{}, cs.names...) }
func (cs *CoordScan) InIdx() []int      { return append([]int{}, cs.inIdx...) }
func (cs *CoordScan) InNames() []string { return append([]string{}, cs.inNames...) }

// Contains maps each available index to the local index, or NoIndex.
func (cs *CoordScan) Contains() []int { return append([]int{}, cs.contains...) }

// AddScanner registers a scanner. A value may implement several scanner
// interfaces; it is registered for each.
func (cs *CoordScan) AddScanner(s any) error {
	ok := false
	if f, is := s.(FilenameScanner); is {
		if !cs.IsShared() {
			return pkgerrors.Wrapf(ErrNotShared, "%s cannot scan filenames", cs.Name)
		}
		cs.filenameS = append(cs.filenameS, f)
		ok = true
	}
	if f, is := s.(InFileScanner); is {
		cs.inFileS = append(cs.inFileS, f)
		ok = true
	}
	if f, is := s.(AttributeScanner); is {
		cs.attrS = append(cs.attrS, f)
		ok = true
	}
	if !ok {
		return pkgerrors.Wrapf(ErrNoScanner, "%T", s)
	}
	cs.manual = false
	return nil
}

func (cs *CoordScan) hasScanners() bool {
	return len(cs.filenameS)+len(cs.inFileS) > 0
}

// SetValuesManual sets the values instead of scanning them. inIdx may be
// nil for values in file order.
func (cs *CoordScan) SetValuesManual(values []float64, inIdx []int) error {
	if inIdx == nil {
		inIdx = identity(len(values))
	}
	if len(inIdx) != len(values) {
		return pkgerrors.Errorf("%s: %d values for %d in-file indices", cs.Name, len(values), len(inIdx))
	}
	cs.values = append([]float64{}, values...)
	cs.inIdx = append([]int{}, inIdx...)
	cs.manual = true
	cs.filenameS, cs.inFileS = nil, nil
	return nil
}

// SetInIdxConstant fixes the in-file index of every value. Use NoIndex
// when files lack the dimension.
func (cs *CoordScan) SetInIdxConstant(i int) {
	cs.fixedIn = &i
}

// SetIdxDescending tells that files store the coordinate in descending
// order while its values are given ascending.
func (cs *CoordScan) SetIdxDescending() {
	cs.idxDescending = true
}

func (cs *CoordScan) addMatcher(m *Matcher) {
	cs.matchers = append(cs.matchers, m)
}

func (cs *CoordScan) reset() {
	cs.state = StateScanning
	cs.scannedIn = false
	cs.contains = nil
	if cs.manual {
		return
	}
	cs.values, cs.names = nil, nil
	cs.inIdx, cs.inNames = nil, nil
	cs.matches = nil
	cs.seen = map[string]bool{}
	if cs.coord != nil {
		cs.coord.Empty()
	}
}

// toOpen reports whether the file must be opened to scan it.
func (cs *CoordScan) toOpen() bool {
	if len(cs.attrS) > 0 && !cs.scannedIn {
		return true
	}
	if len(cs.inFileS) == 0 {
		return false
	}
	return cs.IsShared() || !cs.scannedIn
}

func (cs *CoordScan) scanAttributes(f api.File) error {
	if cs.scannedIn && !cs.IsShared() {
		return nil
	}
	for _, s := range cs.attrS {
		attrs, err := s.ScanAttributes(cs, f)
		if err != nil {
			return pkgerrors.Wrapf(err, "attributes of %s", cs.Name)
		}
		for k, v := range attrs {
			if k == "units" {
				cs.Units = v.String()
				continue
			}
			cs.Attrs[k] = v
		}
	}
	return nil
}

// scanFile runs the scanners on one file. matches are the texts of every
// matcher of the pre-regex.
func (cs *CoordScan) scanFile(matches []string, f api.File) error {
	if cs.manual || !cs.hasScanners() {
		return nil
	}
	var own []string
	if cs.IsShared() {
		own = make([]string, len(cs.matchers))
		for i, m := range cs.matchers {
			own[i] = matches[m.Idx]
		}
		tuple := strings.Join(own, "\x00")
		if cs.seen[tuple] {
			return nil
		}
		cs.seen[tuple] = true
	} else if cs.scannedIn {
		return nil
	}
	elts := &Elements{}
	for _, s := range cs.filenameS {
		found := make([]Match, 0, len(cs.matchers))
		for i, m := range cs.matchers {
			found = append(found, Match{Matcher: m, Text: own[i]})
		}
		out, err := s.ScanFilename(cs, found, elts)
		if err != nil {
			return pkgerrors.Wrapf(err, "scanning filename for %s", cs.Name)
		}
		elts.update(out)
	}
	for _, s := range cs.inFileS {
		out, err := s.ScanInFile(cs, f, elts)
		if err != nil {
			return pkgerrors.Wrapf(err, "scanning file for %s", cs.Name)
		}
		elts.update(out)
	}
	if err := cs.appendElements(elts, own); err != nil {
		return err
	}
	cs.scannedIn = true
	return nil
}

func (cs *CoordScan) appendElements(elts *Elements, own []string) error {
	n := len(elts.Values)
	if cs.IsStr() {
		n = len(elts.Names)
		if elts.InNames == nil {
			elts.InNames = elts.Names
		}
		if len(elts.InNames) != n {
			return pkgerrors.Errorf("%s: %d names for %d in-file names", cs.Name, n, len(elts.InNames))
		}
	} else if elts.InIdx == nil {
		fill := NoIndex
		if cs.fixedIn != nil {
			fill = *cs.fixedIn
		}
		elts.InIdx = make([]int, n)
		for i := range elts.InIdx {
			elts.InIdx[i] = fill
		}
	}
	if !cs.IsStr() && len(elts.InIdx) != n {
		return pkgerrors.Errorf("%s: %d values for %d in-file indices", cs.Name, n, len(elts.InIdx))
	}
	switch {
	case n == 0:
		logger.Infof("no value found for %s", cs.Name)
	case n == 1:
		logger.Infof("found value %v for %s", elts.first(), cs.Name)
	default:
		logger.Infof("found %d values for %s", n, cs.Name)
	}
	cs.values = append(cs.values, elts.Values...)
	cs.names = append(cs.names, elts.Names...)
	cs.inIdx = append(cs.inIdx, elts.InIdx...)
	cs.inNames = append(cs.inNames, elts.InNames...)
	if cs.IsShared() {
		for i := 0; i < n; i++ {
			cs.matches = append(cs.matches, own)
		}
	}
	return nil
}

// finalize sorts the values, converts units and pushes values to the
// coordinate.
func (cs *CoordScan) finalize(allowMismatch bool) error {
	if !cs.manual && !cs.hasScanners() && !cs.IsStr() {
		cs.values = append([]float64{}, cs.defaults...)
		cs.inIdx = identity(len(cs.values))
		if cs.idxDescending {
			for i := range cs.inIdx {
				cs.inIdx[i] = len(cs.inIdx) - 1 - i
			}
		}
	}
	if cs.fixedIn != nil && cs.manual {
		for i := range cs.inIdx {
			cs.inIdx[i] = *cs.fixedIn
		}
	}
	if cs.Size() == 0 {
		return pkgerrors.Wrapf(ErrNoValuesFound, "%s", cs.Name)
	}
	if cs.IsStr() {
		cs.state = StateFinalized
		return nil
	}
	cs.SortValues()
	if err := cs.convertUnits(allowMismatch); err != nil {
		return err
	}
	if err := cs.coord.UpdateValues(cs.values); err != nil {
		return pkgerrors.Wrapf(err, "filegroup values of %s", cs.Name)
	}
	cs.state = StateFinalized
	return nil
}

func (cs *CoordScan) convertUnits(allowMismatch bool) error {
	to := cs.coord.Units
	if cs.Units == "" || to == "" || cs.Units == to {
		return nil
	}
	var conv []float64
	var err error
	switch {
	case cs.Converter != nil:
		conv, err = cs.Converter(cs.values, cs.Units, to)
	case cs.Kind == coord.KindTime:
		conv, err = cs.coord.ChangeUnits(cs.values, cs.Units)
	case allowMismatch:
		logger.Warnf("%s: values in %q are used as %q, no conversion is defined", cs.Name, cs.Units, to)
		return nil
	default:
		return pkgerrors.Wrapf(ErrUnitsMismatch, "%s in %q, expected %q", cs.Name, cs.Units, to)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "converting %s from %q", cs.Name, cs.Units)
	}
	cs.values = conv
	return nil
}

// SortValues sorts values ascending and permutes in-file indices and
// matches alike. It detects files storing the coordinate descending.
func (cs *CoordScan) SortValues() []int {
	order := identity(len(cs.values))
	sort.SliceStable(order, func(i, j int) bool {
		return cs.values[order[i]] < cs.values[order[j]]
	})
	cs.permute(order)
	if len(cs.inIdx) > 1 && !cs.idxDescending {
		desc := true
		for i := 1; i < len(cs.inIdx); i++ {
			if cs.inIdx[i] >= cs.inIdx[i-1] || cs.inIdx[i] == NoIndex {
				desc = false
				break
			}
		}
		cs.idxDescending = desc
	}
	return order
}

func (cs *CoordScan) permute(order []int) {
	values := make([]float64, len(order))
	inIdx := make([]int, len(order))
	for i, o := range order {
		values[i] = cs.values[o]
		inIdx[i] = cs.inIdx[o]
	}
	cs.values, cs.inIdx = values, inIdx
	if len(cs.matches) == len(order) {
		matches := make([][]string, len(order))
		for i, o := range order {
			matches[i] = cs.matches[o]
		}
		cs.matches = matches
	}
}

// IsIdxDescending reports whether files store the coordinate descending.
func (cs *CoordScan) IsIdxDescending() bool {
	return cs.idxDescending
}

// Slice keeps the values selected by k. Int keys keep one value.
func (cs *CoordScan) Slice(k key.Key) error {
	k.MakeIntList()
	var err error
	if cs.IsStr() {
		if cs.names, err = key.Apply(k, cs.names); err != nil {
			return err
		}
		cs.inNames, err = key.Apply(k, cs.inNames)
	} else {
		if cs.values, err = key.Apply(k, cs.values); err != nil {
			return err
		}
		if cs.inIdx, err = key.Apply(k, cs.inIdx); err != nil {
			return err
		}
		err = cs.coord.UpdateValues(cs.values)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "slicing %s", cs.Name)
	}
	if len(cs.matches) > 0 {
		cs.matches, err = key.Apply(k, cs.matches)
	}
	return err
}

// SliceFromAvail slices with a key over the available values, using the
// contains mapping. It reports whether values were dropped.
func (cs *CoordScan) SliceFromAvail(k key.Key) (bool, error) {
	sel, err := key.Apply(k, cs.contains)
	if err != nil {
		return false, err
	}
	local := make([]int, 0, len(sel))
	for _, i := range sel {
		if i != NoIndex {
			local = append(local, i)
		}
	}
	changed := len(local) != cs.Size()
	if err := cs.Slice(key.List(local...)); err != nil {
		return false, err
	}
	return changed, nil
}

// FindContained maps every value of outer to the local index of an equal
// value within threshold, or NoIndex.
func (cs *CoordScan) FindContained(outer []float64, threshold float64) {
	cs.contains = make([]int, len(outer))
	for i, v := range outer {
		cs.contains[i] = NoIndex
		if j, ok := cs.coord.GetIndexExact(v, threshold); ok {
			cs.contains[i] = j
		}
	}
}

// FindContainedNames maps every name of outer to its local index, or NoIndex.
func (cs *CoordScan) FindContainedNames(outer []string) {
	pos := make(map[string]int, len(cs.names))
	for i, n := range cs.names {
		pos[n] = i
	}
	cs.contains = make([]int, len(outer))
	for i, n := range outer {
		cs.contains[i] = NoIndex
		if j, ok := pos[n]; ok {
			cs.contains[i] = j
		}
	}
}

// SetChecked marks the end of the reconciliation between filegroups.
func (cs *CoordScan) SetChecked() {
	cs.state = StateChecked
}

// GetInIdx translates a key over local values into a key over the file.
// The result is NoIndex-free only if the file has the dimension.
func (cs *CoordScan) GetInIdx(k key.Key) (key.Key, error) {
	if cs.IsStr() {
		names, err := key.Apply(k, cs.inNames)
		if err != nil {
			return key.Key{}, err
		}
		if k.IsInt() {
			return key.Name(names[0]), nil
		}
		return key.Names(names...), nil
	}
	idx, err := key.Apply(k, cs.inIdx)
	if err != nil {
		return key.Key{}, pkgerrors.Wrapf(err, "in-file indices of %s for %s", cs.Name, k)
	}
	if k.IsInt() {
		return key.Int(idx[0]), nil
	}
	return key.List(idx...), nil
}

func (cs *CoordScan) String() string {
	s := fmt.Sprintf("%s (%s, %s, %s)", cs.Name, cs.Kind, cs.Scan, cs.state)
	switch {
	case cs.IsStr():
		s += ": " + strings.Join(cs.names, ", ")
	case cs.coord.HasData():
		s += ": " + cs.coord.ExtentString()
	}
	for _, m := range cs.matchers {
		s += "\n    " + m.String()
	}
	return s
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
