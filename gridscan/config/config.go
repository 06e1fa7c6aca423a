// Package config reads dataset definitions written in TOML and builds the
// database they describe.
//
// A definition looks like:
//
//	root = "/data"
//
//	[[coords]]
//	name = "time"
//	units = "hours since 2007-01-01"
//	time = true
//
//	[[filegroups]]
//	name = "sst"
//	subdir = "SST"
//	pregex = '%(prefix)_%(time:Y)%(time:doy)\.nc'
//	replacements = { prefix = "SST" }
//	variables = [{ name = "sst", in = "analysed_sst" }]
//
//	[[filegroups.coords]]
//	name = "time"
//	scan = "shared"
//	scanners = ["date"]
package config

import (
	"os"
	"path/filepath"

	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/backend/netcdf"
	"github.com/batchatco/go-gridscan/gridscan/coord"
	"github.com/batchatco/go-gridscan/gridscan/database"
	"github.com/batchatco/go-gridscan/gridscan/filegroup"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/internal"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var ErrInvalid = errors.New("invalid dataset definition")

// Dataset is a dataset definition.
type Dataset struct {
	Root               string      `toml:"root"`
	Threshold          float64     `toml:"threshold"`
	AllowAdvanced      bool        `toml:"allow_advanced"`
	AllowUnitsMismatch bool        `toml:"allow_units_mismatch"`
	ConcurrentScan     bool        `toml:"concurrent_scan"`
	Coords             []Coord     `toml:"coords"`
	Filegroups         []Filegroup `toml:"filegroups"`
}

// Coord defines a coordinate of the database. Values are scanned.
type Coord struct {
	Name  string `toml:"name"`
	Units string `toml:"units"`
	Time  bool   `toml:"time"`
}

type Variable struct {
	Name string `toml:"name"`
	In   string `toml:"in"`
}

type Filegroup struct {
	Name         string            `toml:"name"`
	Subdir       string            `toml:"subdir"`
	Pregex       string            `toml:"pregex"`
	Replacements map[string]string `toml:"replacements"`
	FileOverride string            `toml:"file_override"`
	MaxDepth     int               `toml:"max_depth"`
	Variables    []Variable        `toml:"variables"`
	// ScanVariables lists the variables from the files instead.
	ScanVariables    bool       `toml:"scan_variables"`
	GlobalAttributes bool       `toml:"global_attributes"`
	Coords           []CoordDef `toml:"coords"`
}

// CoordDef tells how a filegroup finds the values of a coordinate.
type CoordDef struct {
	Name string `toml:"name"`
	// Scan is "in" (default) or "shared".
	Scan string `toml:"scan"`
	In   string `toml:"in"`
	// Scanners are among date, value, string, values, units.
	Scanners []string `toml:"scanners"`
	// Index is a constant in-file index, -1 when files lack the dimension.
	Index *int `toml:"index"`
	// Values are set instead of scanned.
	Values     []float64 `toml:"values"`
	Descending bool      `toml:"descending"`
	// Selection is a key, in the syntax of key.Parse, applied after the
	// scan.
	Selection string `toml:"selection"`
}

// Parse decodes a definition.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := toml.Unmarshal(data, &ds); err != nil {
		return nil, errors.Wrap(err, "parsing dataset definition")
	}
	if err := ds.validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Load reads the definition in path. A relative root is taken from the
// directory of path.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading dataset definition")
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if !filepath.IsAbs(ds.Root) {
		ds.Root = filepath.Join(filepath.Dir(path), ds.Root)
	}
	return ds, nil
}

func (ds *Dataset) validate() error {
	if ds.Root == "" {
		return errors.Wrap(ErrInvalid, "no root")
	}
	if len(ds.Filegroups) == 0 {
		return errors.Wrap(ErrInvalid, "no filegroup")
	}
	known := map[string]bool{}
	for _, c := range ds.Coords {
		if !internal.ValidName(c.Name) || c.Name == key.VarDim || known[c.Name] {
			return errors.Wrapf(ErrInvalid, "coordinate name %q", c.Name)
		}
		known[c.Name] = true
	}
	for _, fg := range ds.Filegroups {
		if len(fg.Variables) == 0 && !fg.ScanVariables {
			return errors.Wrapf(ErrInvalid, "filegroup %s has no variable", fg.Name)
		}
		for _, v := range fg.Variables {
			if !internal.ValidName(v.Name) {
				return errors.Wrapf(ErrInvalid, "filegroup %s: variable name %q", fg.Name, v.Name)
			}
		}
		for _, cd := range fg.Coords {
			if !known[cd.Name] {
				return errors.Wrapf(ErrInvalid, "filegroup %s: unknown coordinate %s", fg.Name, cd.Name)
			}
			if cd.Scan != "" && cd.Scan != "in" && cd.Scan != "shared" {
				return errors.Wrapf(ErrInvalid, "filegroup %s: scan %q", fg.Name, cd.Scan)
			}
		}
	}
	return nil
}

// Build builds the database of a definition. A nil backend reads netCDF
// files, a nil fs is the OS filesystem.
func Build(ds *Dataset, backend api.Backend, fs afero.Fs) (*database.DataBase, error) {
	if backend == nil {
		backend = netcdf.Backend{}
	}
	coords := make([]*coord.Coord, len(ds.Coords))
	for i, c := range ds.Coords {
		var err error
		if c.Time {
			coords[i], err = coord.NewTime(c.Name, nil, c.Units)
		} else {
			coords[i], err = coord.New(c.Name, nil, c.Units)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "coordinate %s", c.Name)
		}
	}
	b := database.NewBuilder(ds.Root, coords, database.Options{
		Threshold:          ds.Threshold,
		AllowAdvanced:      ds.AllowAdvanced,
		AllowUnitsMismatch: ds.AllowUnitsMismatch,
		ConcurrentScan:     ds.ConcurrentScan,
	})
	for _, def := range ds.Filegroups {
		fg, err := buildFilegroup(b, def, backend, fs)
		if err != nil {
			return nil, errors.Wrapf(err, "filegroup %s", def.Name)
		}
		if err := b.AddFilegroup(fg); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func buildFilegroup(b *database.Builder, def Filegroup, backend api.Backend, fs afero.Fs) (*filegroup.Filegroup, error) {
	fg := filegroup.New(def.Name, filepath.Join(b.Root(), def.Subdir), backend)
	if fs != nil {
		fg.SetFs(fs)
	}
	for _, v := range def.Variables {
		fg.AddVariable(v.Name, v.In)
	}
	if def.ScanVariables {
		if err := fg.Var().AddScanner(filegroup.InFileVariables{}); err != nil {
			return nil, err
		}
	}
	fg.AddInfoScanner(filegroup.VariableAttributes{})
	if def.GlobalAttributes {
		fg.AddInfoScanner(filegroup.GlobalAttributes{})
	}
	if def.MaxDepth > 0 {
		fg.SetMaxDepth(def.MaxDepth)
	}
	if def.FileOverride != "" {
		fg.SetFileOverride(def.FileOverride)
	}

	defs := map[string]CoordDef{}
	for _, cd := range def.Coords {
		defs[cd.Name] = cd
	}
	// Every coordinate of the database is in the filegroup; undescribed
	// ones are read whole from the files.
	for _, c := range b.Coords() {
		cd, has := defs[c.Name]
		if !has {
			cd = CoordDef{Name: c.Name, Scanners: []string{"values"}}
		}
		kind := filegroup.ScanIn
		if cd.Scan == "shared" {
			kind = filegroup.ScanShared
		}
		cs := fg.AddCoord(c, kind, cd.In)
		if err := setupCoord(fg, cs, cd); err != nil {
			return nil, err
		}
	}
	if def.Pregex != "" {
		if err := fg.SetScanRegex(def.Pregex, def.Replacements); err != nil {
			return nil, err
		}
	}
	return fg, nil
}

func setupCoord(fg *filegroup.Filegroup, cs *filegroup.CoordScan, cd CoordDef) error {
	for _, name := range cd.Scanners {
		s, err := scanner(name)
		if err != nil {
			return err
		}
		if err := cs.AddScanner(s); err != nil {
			return errors.Wrapf(err, "coordinate %s", cd.Name)
		}
	}
	if len(cd.Values) > 0 {
		if err := cs.SetValuesManual(cd.Values, nil); err != nil {
			return err
		}
	}
	if cd.Index != nil {
		cs.SetInIdxConstant(*cd.Index)
	}
	if cd.Descending {
		cs.SetIdxDescending()
	}
	if cd.Selection != "" {
		k, err := key.Parse(cd.Selection)
		if err != nil {
			return errors.Wrapf(err, "selection of %s", cd.Name)
		}
		if err := fg.SetSelection(cd.Name, k); err != nil {
			return err
		}
	}
	return nil
}

func scanner(name string) (any, error) {
	switch name {
	case "date":
		return filegroup.DateFromMatches{}, nil
	case "value":
		return filegroup.ValueFromMatches{}, nil
	case "string":
		return filegroup.StringFromMatches{}, nil
	case "values":
		return filegroup.InFileValues{}, nil
	case "units":
		return filegroup.UnitsFromFile{}, nil
	}
	return nil, errors.Wrapf(ErrInvalid, "unknown scanner %q", name)
}
