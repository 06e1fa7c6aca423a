// Package filegroup scans files sharing a structure and a naming pattern,
// and translates requests on the dataset into reads of those files.
package filegroup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/coord"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/gridscan/util"
	"github.com/batchatco/go-gridscan/gridscan/varinfo"
	"github.com/batchatco/go-gridscan/internal"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/afero"
)

var (
	ErrNoFileMatched  = errors.New("no file matched")
	ErrNoValuesFound  = errors.New("no values found")
	ErrMissingRegex   = errors.New("filegroup has shared coordinates but no pre-regex")
	ErrNoMatcher      = errors.New("shared coordinate has no matcher")
	ErrNotShared      = errors.New("coordinate is not shared")
	ErrUnknownCoord   = errors.New("unknown coordinate")
	ErrUnknownElement = errors.New("unknown pre-regex element")
	ErrBadPregex      = errors.New("invalid pre-regex")
	ErrUnitsMismatch  = errors.New("units mismatch")
	ErrNoScanner      = errors.New("not a scanner")
)

var logger = internal.Std()

// DefaultMaxDepth bounds the directories walked below the root.
const DefaultMaxDepth = 3

// Filegroup is a set of files with the same structure. Every dimension of
// the dataset has a CoordScan in the filegroup, the variable dimension
// included.
type Filegroup struct {
	Name string
	Root string
	// AllowUnitsMismatch keeps values whose units cannot be converted.
	AllowUnitsMismatch bool
	// Files are the paths, relative to Root, of the files matched by the
	// last scan.
	Files []string

	fs       afero.Fs
	backend  api.Backend
	cs       *util.OrderedMap[*CoordScan]
	pattern  *Pattern
	override string
	maxDepth int
	infoS    []InfoScanner
	vi       *varinfo.VariablesInfo
	segments []string

	selection      *key.Keyring
	valueSelection map[string]coord.ValueKey
}

func New(name, root string, backend api.Backend) *Filegroup {
	fg := &Filegroup{
		Name:           name,
		Root:           root,
		fs:             afero.NewOsFs(),
		backend:        backend,
		cs:             util.New[*CoordScan](),
		maxDepth:       DefaultMaxDepth,
		vi:             varinfo.New(),
		selection:      key.NewKeyring(),
		valueSelection: map[string]coord.ValueKey{},
	}
	fg.cs.Add(key.VarDim, newVarScan(ScanIn))
	return fg
}

// SetFs replaces the filesystem walked to find files.
func (fg *Filegroup) SetFs(fs afero.Fs) {
	fg.fs = fs
}

func (fg *Filegroup) Backend() api.Backend {
	return fg.backend
}

// AddCoord adds the dimension of c to the filegroup. inName is the name of
// the dimension in files, c.Name if empty.
func (fg *Filegroup) AddCoord(c *coord.Coord, kind ScanKind, inName string) *CoordScan {
	cs := newCoordScan(c, kind, inName)
	fg.cs.Add(c.Name, cs)
	return cs
}

// AddVariable declares a variable found in every file. inName is its
// name in files, name if empty.
func (fg *Filegroup) AddVariable(name, inName string) {
	if inName == "" {
		inName = name
	}
	vcs := fg.Var()
	vcs.names = append(vcs.names, name)
	vcs.inNames = append(vcs.inNames, inName)
	fg.vi.AddVariable(name, nil)
}

// ShareVar makes the variable dimension vary from file to file. Its values
// must then be scanned.
func (fg *Filegroup) ShareVar() *CoordScan {
	vcs := fg.Var()
	vcs.Scan = ScanShared
	vcs.manual = false
	vcs.names, vcs.inNames = nil, nil
	return vcs
}

func (fg *Filegroup) Var() *CoordScan {
	vcs, _ := fg.cs.Get(key.VarDim)
	return vcs
}

// Coord returns the CoordScan of a dimension.
func (fg *Filegroup) Coord(dim string) (*CoordScan, bool) {
	return fg.cs.Get(dim)
}

// CoordScans returns the CoordScan of every dimension, the variable first.
func (fg *Filegroup) CoordScans() []*CoordScan {
	out := make([]*CoordScan, 0, fg.cs.Len())
	for _, d := range fg.cs.Keys() {
		cs, _ := fg.cs.Get(d)
		out = append(out, cs)
	}
	return out
}

// Dims returns the dimension names, the variable first.
func (fg *Filegroup) Dims() []string {
	return fg.cs.Keys()
}

// VariablesInfo returns the attributes found while scanning.
func (fg *Filegroup) VariablesInfo() *varinfo.VariablesInfo {
	return fg.vi
}

// AddInfoScanner adds a scanner of variable or dataset attributes.
func (fg *Filegroup) AddInfoScanner(s InfoScanner) {
	fg.infoS = append(fg.infoS, s)
}

// SetScanRegex sets the pre-regex matching filenames, relative to the
// root. Every matcher must refer to a shared coordinate.
func (fg *Filegroup) SetScanRegex(pregex string, replacements map[string]string) error {
	pat, err := ParsePregex(pregex, replacements)
	if err != nil {
		return pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
	}
	for _, cs := range fg.CoordScans() {
		cs.matchers = nil
	}
	for _, m := range pat.Matchers {
		cs, has := fg.cs.Get(m.Coord)
		if !has {
			return pkgerrors.Wrapf(ErrUnknownCoord, "filegroup %s: matcher %s", fg.Name, m)
		}
		if !cs.IsShared() {
			return pkgerrors.Wrapf(ErrNotShared, "filegroup %s: matcher %s", fg.Name, m)
		}
		cs.addMatcher(m)
	}
	fg.pattern = pat
	return nil
}

// SetFileOverride makes the filegroup a single file, found at path relative
// to the root, whatever the pre-regex.
func (fg *Filegroup) SetFileOverride(path string) {
	fg.override = path
}

func (fg *Filegroup) SetMaxDepth(depth int) {
	fg.maxDepth = depth
}

// CheckRegex verifies that every shared coordinate can be found in
// filenames.
func (fg *Filegroup) CheckRegex() error {
	for _, cs := range fg.CoordScans() {
		if !cs.IsShared() {
			continue
		}
		if fg.pattern == nil {
			return pkgerrors.Wrapf(ErrMissingRegex, "filegroup %s", fg.Name)
		}
		if len(cs.matchers) == 0 {
			return pkgerrors.Wrapf(ErrNoMatcher, "filegroup %s: %s", fg.Name, cs.Name)
		}
	}
	return nil
}

func (fg *Filegroup) path(rel string) string {
	return filepath.Join(fg.Root, rel)
}

// FindFiles lists the files below the root, up to the maximum depth,
// as sorted slash-separated paths relative to the root.
func (fg *Filegroup) FindFiles() ([]string, error) {
	if fg.override != "" {
		return []string{filepath.ToSlash(fg.override)}, nil
	}
	var files []string
	err := afero.Walk(fg.fs, fg.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(fg.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		depth := strings.Count(rel, "/")
		if info.IsDir() {
			if rel != "." && depth >= fg.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "filegroup %s: walking %s", fg.Name, fg.Root)
	}
	sort.Strings(files)
	return files, nil
}

// ScanFile scans one file, given relative to the root. It reports whether
// the file matched the pre-regex.
func (fg *Filegroup) ScanFile(rel string) (matched bool, err error) {
	var matches []string
	if fg.pattern != nil {
		matches = fg.pattern.Match(rel)
		if matches == nil {
			return false, nil
		}
		if fg.segments == nil {
			segments, err := fg.pattern.Segments(rel)
			if err != nil {
				return false, err
			}
			fg.segments = segments
		}
	}
	open := len(fg.infoS) > 0 && len(fg.Files) == 0
	for _, cs := range fg.CoordScans() {
		open = open || cs.toOpen()
	}
	var f api.File
	if open {
		f, err = fg.backend.Open(fg.path(rel), api.ModeRead)
		if err != nil {
			return true, err
		}
		defer func() {
			if cerr := f.Close(); err == nil && cerr != nil {
				err = pkgerrors.Wrapf(cerr, "closing %s", rel)
			}
		}()
	}
	for _, cs := range fg.CoordScans() {
		if f != nil {
			if err := cs.scanAttributes(f); err != nil {
				return true, pkgerrors.Wrap(err, rel)
			}
		}
		if err := cs.scanFile(matches, f); err != nil {
			return true, pkgerrors.Wrap(err, rel)
		}
	}
	if f != nil {
		for _, s := range fg.infoS {
			if err := s.ScanInfos(fg, f, fg.vi); err != nil {
				return true, pkgerrors.Wrapf(err, "scanning infos in %s", rel)
			}
		}
	}
	fg.Files = append(fg.Files, rel)
	return true, nil
}

// ScanFiles finds and scans every file, then finalizes the values of
// every coordinate and applies the selection.
func (fg *Filegroup) ScanFiles() error {
	if err := fg.CheckRegex(); err != nil {
		return err
	}
	files, err := fg.FindFiles()
	if err != nil {
		return err
	}
	for _, cs := range fg.CoordScans() {
		cs.reset()
	}
	fg.Files, fg.segments = nil, nil
	for _, rel := range files {
		if _, err := fg.ScanFile(rel); err != nil {
			return pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
		}
	}
	if len(fg.Files) == 0 {
		pregex := ""
		if fg.pattern != nil {
			pregex = fg.pattern.Pregex
		}
		return pkgerrors.Wrapf(ErrNoFileMatched, "filegroup %s: %q in %s", fg.Name, pregex, fg.Root)
	}
	logger.Infof("filegroup %s: %d files matched", fg.Name, len(fg.Files))
	for _, cs := range fg.CoordScans() {
		if err := cs.finalize(fg.AllowUnitsMismatch); err != nil {
			return pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
		}
	}
	for _, name := range fg.Var().Names() {
		if !fg.vi.Has(name) {
			fg.vi.AddVariable(name, nil)
		}
	}
	return fg.applySelection()
}

// SetSelection restricts the values kept for a dimension once scanned.
func (fg *Filegroup) SetSelection(dim string, k key.Key) error {
	if !fg.cs.Has(dim) {
		return pkgerrors.Wrapf(ErrUnknownCoord, "filegroup %s: selection on %s", fg.Name, dim)
	}
	fg.selection.SetKey(dim, k)
	return nil
}

// SetSelectionByValue is SetSelection with values of the coordinate.
func (fg *Filegroup) SetSelectionByValue(dim string, vk coord.ValueKey) error {
	cs, has := fg.cs.Get(dim)
	if !has || cs.IsStr() {
		return pkgerrors.Wrapf(ErrUnknownCoord, "filegroup %s: selection by value on %s", fg.Name, dim)
	}
	fg.valueSelection[dim] = vk
	return nil
}

func (fg *Filegroup) applySelection() error {
	for dim, vk := range fg.valueSelection {
		cs, _ := fg.cs.Get(dim)
		k, err := vk.Resolve(cs.Coord())
		if err != nil {
			return pkgerrors.Wrapf(err, "filegroup %s: selecting %s", fg.Name, dim)
		}
		if err := cs.Slice(k); err != nil {
			return err
		}
	}
	for _, dim := range fg.selection.Dims() {
		cs, _ := fg.cs.Get(dim)
		k, _ := fg.selection.Get(dim)
		if k.IsString() {
			names, err := coord.NewStr(dim, cs.names)
			if err != nil {
				return err
			}
			if err := k.MakeStrIdx(names); err != nil {
				return pkgerrors.Wrapf(err, "filegroup %s: selecting %s", fg.Name, dim)
			}
		}
		if err := cs.Slice(k); err != nil {
			return pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
		}
		if cs.Size() == 0 {
			return pkgerrors.Wrapf(ErrNoValuesFound, "filegroup %s: selection %s on %s", fg.Name, k, dim)
		}
	}
	return nil
}

// IsScanned reports whether every coordinate is finalized.
func (fg *Filegroup) IsScanned() bool {
	for _, cs := range fg.CoordScans() {
		if cs.State() < StateFinalized {
			return false
		}
	}
	return true
}

func (fg *Filegroup) String() string {
	s := fmt.Sprintf("filegroup %s in %s", fg.Name, fg.Root)
	if fg.pattern != nil {
		s += "\n  pre-regex: " + fg.pattern.Pregex
	}
	if fg.override != "" {
		s += "\n  file: " + fg.override
	}
	for _, cs := range fg.CoordScans() {
		s += "\n  " + cs.String()
	}
	return s
}
