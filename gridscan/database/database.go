// Package database assembles filegroups into a dataset. It reconciles the
// values found in every filegroup, then loads, views and selects data.
//
// A database has three scopes. The available scope holds everything the
// files provide, the loaded scope what is in memory, the selected scope a
// part of either that the caller marked.
package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/batchatco/go-gridscan/gridscan/accessor"
	"github.com/batchatco/go-gridscan/gridscan/coord"
	"github.com/batchatco/go-gridscan/gridscan/filegroup"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/gridscan/scope"
	"github.com/batchatco/go-gridscan/gridscan/varinfo"
	"github.com/batchatco/go-gridscan/internal"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoCommonValues  = errors.New("no common values between filegroups")
	ErrDuplicateData   = errors.New("data provided by several filegroups")
	ErrNotCovered      = errors.New("selection not covered by any filegroup")
	ErrNotFromAvail    = errors.New("selection is not derived from the available scope")
	ErrNotFromLoaded   = errors.New("selection is not derived from the loaded scope")
	ErrEmptyScope      = errors.New("scope is empty")
	ErrNotLoaded       = errors.New("no data loaded")
	ErrUnknownVariable = errors.New("unknown variable")
	ErrMissingDim      = errors.New("filegroup lacks a dimension of the database")
)

var logger = internal.Std()

// Options tune the construction of a database.
type Options struct {
	// Threshold is the tolerance when comparing coordinate values,
	// coord.DefaultThreshold when zero.
	Threshold float64
	// AllowAdvanced keeps every value found instead of the values common
	// to all filegroups.
	AllowAdvanced bool
	// AllowUnitsMismatch keeps values whose units cannot be converted,
	// with a warning.
	AllowUnitsMismatch bool
	// Accessor manipulates arrays, accessor.Default when nil.
	Accessor accessor.Accessor
	// ConcurrentScan scans the filegroups in parallel. The error reported
	// is then the first to occur rather than that of the first filegroup.
	ConcurrentScan bool
}

func (o Options) threshold() float64 {
	if o.Threshold <= 0 {
		return coord.DefaultThreshold
	}
	return o.Threshold
}

// Builder gathers the definition of a database.
type Builder struct {
	root       string
	coords     []*coord.Coord
	opts       Options
	filegroups []*filegroup.Filegroup
}

// NewBuilder starts a database whose dimensions are coords, in that order,
// after the variable dimension.
func NewBuilder(root string, coords []*coord.Coord, opts Options) *Builder {
	if opts.Accessor == nil {
		opts.Accessor = accessor.Default{}
	}
	return &Builder{root: root, coords: coords, opts: opts}
}

func (b *Builder) Root() string           { return b.root }
func (b *Builder) Coords() []*coord.Coord { return append([]*coord.Coord{}, b.coords...) }

// Coord returns the coordinate of a dimension.
func (b *Builder) Coord(dim string) (*coord.Coord, bool) {
	for _, c := range b.coords {
		if c.Name == dim {
			return c, true
		}
	}
	return nil, false
}

// AddFilegroup adds a filegroup. It must have every dimension of the
// database and no other.
func (b *Builder) AddFilegroup(fg *filegroup.Filegroup) error {
	for _, c := range b.coords {
		if _, has := fg.Coord(c.Name); !has {
			return pkgerrors.Wrapf(ErrMissingDim, "filegroup %s: %s", fg.Name, c.Name)
		}
	}
	for _, d := range fg.Dims() {
		if _, has := b.Coord(d); !has && d != key.VarDim {
			return pkgerrors.Wrapf(filegroup.ErrUnknownCoord, "filegroup %s: %s", fg.Name, d)
		}
	}
	fg.AllowUnitsMismatch = b.opts.AllowUnitsMismatch
	b.filegroups = append(b.filegroups, fg)
	return nil
}

// scan scans the filegroups in order, stopping at the first failure.
func (b *Builder) scan() error {
	if !b.opts.ConcurrentScan {
		for _, fg := range b.filegroups {
			if err := fg.ScanFiles(); err != nil {
				return err
			}
		}
		return nil
	}
	// Filegroups scan their own copies of the coordinates.
	var g errgroup.Group
	for _, fg := range b.filegroups {
		g.Go(fg.ScanFiles)
	}
	return g.Wait()
}

// Build scans every filegroup and reconciles their values. No database is
// returned on error.
func (b *Builder) Build() (*DataBase, error) {
	if len(b.filegroups) == 0 {
		return nil, errors.New("database has no filegroup")
	}
	if err := b.scan(); err != nil {
		return nil, err
	}
	coords := make([]*coord.Coord, len(b.coords))
	for i, c := range b.coords {
		coords[i] = c.Copy()
	}
	names, err := compileScanned(b.filegroups, coords, b.opts)
	if err != nil {
		return nil, err
	}
	db := &DataBase{
		Root:       b.root,
		VI:         varinfo.New(),
		filegroups: b.filegroups,
		acs:        b.opts.Accessor,
		opts:       b.opts,
		computed:   map[string]bool{},
	}
	for _, fg := range b.filegroups {
		mergeInfo(db.VI, fg.VariablesInfo())
	}
	db.Avail, err = scope.New("avail", names, coords)
	if err != nil {
		return nil, err
	}
	db.Loaded = db.Avail.Copy()
	db.Loaded.Name = "loaded"
	db.Loaded.Empty()
	db.Selected = db.Avail.Copy()
	db.Selected.Name = "selected"
	db.Selected.Empty()
	logger.Infof("database in %s: %d filegroups, %d variables", b.root, len(b.filegroups), len(names))
	return db, nil
}

// mergeInfo copies into dst the attributes src has that dst lacks.
func mergeInfo(dst, src *varinfo.VariablesInfo) {
	for _, v := range src.Variables() {
		attrs, _ := src.Attributes(v)
		if !dst.Has(v) {
			dst.AddVariable(v, attrs)
			continue
		}
		for k, a := range attrs {
			if _, has := dst.GetAttr(v, k); !has {
				dst.SetAttr(v, k, a)
			}
		}
	}
	for _, name := range src.Infos() {
		if _, has := dst.GetInfo(name); !has {
			a, _ := src.GetInfo(name)
			dst.SetInfo(name, a)
		}
	}
}

// PostLoadFunc runs after data is loaded.
type PostLoadFunc func(db *DataBase) error

type postLoad struct {
	f         PostLoadFunc
	variables []string
	all       bool
}

// DataBase is a dataset spread over filegroups. It is not safe for
// concurrent use.
type DataBase struct {
	Root     string
	Avail    *scope.Scope
	Loaded   *scope.Scope
	Selected *scope.Scope
	VI       *varinfo.VariablesInfo

	filegroups []*filegroup.Filegroup
	acs        accessor.Accessor
	opts       Options
	data       map[string]*accessor.Array
	computed   map[string]bool
	postLoad   []postLoad
}

func (db *DataBase) Filegroups() []*filegroup.Filegroup {
	return append([]*filegroup.Filegroup{}, db.filegroups...)
}

func (db *DataBase) Filegroup(name string) (*filegroup.Filegroup, bool) {
	for _, fg := range db.filegroups {
		if fg.Name == name {
			return fg, true
		}
	}
	return nil, false
}

// Dims returns the dimensions, the variable first.
func (db *DataBase) Dims() []string {
	return db.Avail.Dims()
}

// CoordDims returns the dimensions of the coordinates, which are the axes
// of loaded arrays.
func (db *DataBase) CoordDims() []string {
	return db.Avail.CoordDims()
}

func (db *DataBase) Accessor() accessor.Accessor {
	return db.acs
}

// AddPostLoadingFunc registers f to run after loads involving variables:
// every one of them if all is set, any otherwise. No variable means any
// load.
func (db *DataBase) AddPostLoadingFunc(f PostLoadFunc, variables []string, all bool) {
	db.postLoad = append(db.postLoad, postLoad{f: f, variables: append([]string{}, variables...), all: all})
}

func (db *DataBase) runPostLoad() error {
	for _, pl := range db.postLoad {
		run := len(pl.variables) == 0 || pl.all
		for _, v := range pl.variables {
			has := db.Loaded.Var.Has(v)
			if pl.all && !has {
				run = false
				break
			}
			if !pl.all && has {
				run = true
				break
			}
		}
		if !run {
			continue
		}
		if err := pl.f(db); err != nil {
			return pkgerrors.Wrap(err, "post-loading")
		}
	}
	return nil
}

// IterSlices splits the available values of dim in slices of size values.
func (db *DataBase) IterSlices(dim string, size int) ([]key.Key, error) {
	return db.Avail.IterSlices(dim, size)
}

func (db *DataBase) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "database in %s\n", db.Root)
	b.WriteString(db.Avail.String())
	if !db.Loaded.IsEmpty() {
		b.WriteString("\n" + db.Loaded.String())
	}
	if !db.Selected.IsEmpty() {
		b.WriteString("\n" + db.Selected.String())
	}
	for _, fg := range db.filegroups {
		b.WriteString("\n" + fg.String())
	}
	return b.String()
}
