package filegroup

import (
	"sort"

	"github.com/batchatco/go-gridscan/gridscan/accessor"
	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/coord"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/gridscan/varinfo"
	pkgerrors "github.com/pkg/errors"
)

// served is an index to load: its position in memory and its index among
// the values of the filegroup.
type served struct {
	mem, local int
}

// serve maps the available indices selected by kr to the values of the
// filegroup. Dimensions missing from kr are taken whole.
func (fg *Filegroup) serve(kr *key.Keyring) (map[string][]served, error) {
	out := make(map[string][]served, fg.cs.Len())
	for _, cs := range fg.CoordScans() {
		k, has := kr.Get(cs.Name)
		if !has {
			k = key.All()
		}
		avail, err := key.Apply(k, identity(len(cs.contains)))
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "filegroup %s: %s", fg.Name, cs.Name)
		}
		var s []served
		for mem, a := range avail {
			if l := cs.contains[a]; l != NoIndex {
				s = append(s, served{mem: mem, local: l})
			}
		}
		out[cs.Name] = s
	}
	return out, nil
}

// Served returns, for every dimension, the memory indices of the
// selection kr that the filegroup can provide.
func (fg *Filegroup) Served(kr *key.Keyring) (map[string][]int, error) {
	s, err := fg.serve(kr)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]int, len(s))
	for dim, list := range s {
		mem := make([]int, len(list))
		for i, x := range list {
			mem[i] = x.mem
		}
		out[dim] = mem
	}
	return out, nil
}

// GetCommands translates kr, a keyring over the available values of the
// dataset, into the reads to do in the files of the filegroup. Memory
// indices are positions in the selection of kr. The result is empty when
// the filegroup does not hold any of the selection.
func (fg *Filegroup) GetCommands(kr *key.Keyring) ([]*Command, error) {
	if !fg.IsScanned() {
		return nil, pkgerrors.Errorf("filegroup %s is not scanned", fg.Name)
	}
	srv, err := fg.serve(kr)
	if err != nil {
		return nil, err
	}
	for _, s := range srv {
		if len(s) == 0 {
			return nil, nil
		}
	}
	var shared, in []*CoordScan
	for _, cs := range fg.CoordScans() {
		if cs.IsShared() {
			shared = append(shared, cs)
		} else {
			in = append(in, cs)
		}
	}

	byFile := map[string]*Command{}
	var cmds []*Command
	combo := make([]served, len(shared))
	var walk func(i int)
	walk = func(i int) {
		if i < len(shared) {
			for _, s := range srv[shared[i].Name] {
				combo[i] = s
				walk(i + 1)
			}
			return
		}
		texts := map[int]string{}
		infile, memory := key.NewKeyring(), key.NewKeyring()
		for j, cs := range shared {
			s := combo[j]
			for m, matcher := range cs.matchers {
				texts[matcher.Idx] = cs.matches[s.local][m]
			}
			switch {
			case cs.IsStr():
				infile.SetKey(cs.Name, key.List(s.local))
			case cs.inIdx[s.local] != NoIndex:
				infile.SetKey(cs.Name, key.Int(cs.inIdx[s.local]))
			}
			memory.SetKey(cs.Name, key.List(s.mem))
		}
		name := fg.filename(texts)
		cmd, has := byFile[name]
		if !has {
			cmd = &Command{Filename: name}
			byFile[name] = cmd
			cmds = append(cmds, cmd)
		}
		cmd.Append(infile, memory)
	}
	walk(0)

	for _, cs := range in {
		if err := fg.addInKeys(cmds, cs, srv[cs.Name]); err != nil {
			return nil, err
		}
	}
	for _, cs := range shared {
		if cs.IsStr() {
			continue
		}
		if err := MergeCommands(cmds, cs.Name); err != nil {
			return nil, pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
		}
	}
	if err := SeparateVariables(cmds, fg.Var()); err != nil {
		return nil, pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
	}
	if err := SortKeyrings(cmds, fg.Dims()); err != nil {
		return nil, pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
	}
	return cmds, nil
}

func (fg *Filegroup) filename(texts map[int]string) string {
	switch {
	case fg.override != "":
		return fg.override
	case fg.segments != nil:
		return Reconstruct(fg.segments, texts)
	case len(fg.Files) > 0:
		return fg.Files[0]
	}
	return ""
}

// addInKeys adds the keys of an in-file dimension to every pair.
func (fg *Filegroup) addInKeys(cmds []*Command, cs *CoordScan, srv []served) error {
	locals := make([]int, len(srv))
	mems := make([]int, len(srv))
	for i, s := range srv {
		locals[i], mems[i] = s.local, s.mem
	}
	mk := key.List(mems...)
	mk.Simplify()
	var ik key.Key
	absent := false
	if cs.IsStr() {
		ik = key.List(locals...)
	} else {
		k, err := cs.GetInIdx(key.List(locals...))
		if err != nil {
			return pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
		}
		idx := k.Ints()
		missing := 0
		for _, i := range idx {
			if i == NoIndex {
				missing++
			}
		}
		switch missing {
		case 0:
			k.Simplify()
		case len(idx):
			absent = true
		default:
			return pkgerrors.Errorf("filegroup %s: %s is absent from files for some values", fg.Name, cs.Name)
		}
		ik = k
	}
	for _, cmd := range cmds {
		for _, p := range cmd.Pairs {
			if !absent {
				p.Infile.SetKey(cs.Name, ik)
			}
			p.Memory.SetKey(cs.Name, mk)
		}
	}
	return nil
}

// LoadCommand executes cmd. dest holds one array per variable, whose axes
// are dims.
func (fg *Filegroup) LoadCommand(cmd *Command, acs accessor.Accessor, dest map[string]*accessor.Array, dims []string) (err error) {
	f, err := fg.backend.Open(fg.path(cmd.Filename), api.ModeRead)
	if err != nil {
		return pkgerrors.Wrapf(err, "filegroup %s", fg.Name)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	toDataset := map[string]string{}
	for _, cs := range fg.CoordScans() {
		toDataset[cs.InName] = cs.Name
	}
	for _, p := range cmd.Pairs {
		if err := fg.loadPair(f, p, acs, dest, dims, toDataset); err != nil {
			return pkgerrors.Wrapf(err, "loading %s", cmd.Filename)
		}
	}
	return nil
}

func (fg *Filegroup) loadPair(f api.File, p CmdKeyrings, acs accessor.Accessor,
	dest map[string]*accessor.Array, dims []string, toDataset map[string]string) error {
	vk, _ := p.Memory.Get(key.VarDim)
	ik, _ := p.Infile.Get(key.VarDim)
	variable, inVar := vk.Names()[0], ik.Names()[0]
	arr, has := dest[variable]
	if !has {
		return pkgerrors.Errorf("no array for %s", variable)
	}
	fileDims, err := f.VarDimensions(inVar)
	if err != nil {
		return err
	}

	infile := key.NewKeyring()
	datasetDims := make(map[string]string, len(fileDims))
	for _, fd := range fileDims {
		d, ok := toDataset[fd]
		if !ok || d == key.VarDim {
			return pkgerrors.Wrapf(ErrUnknownCoord, "dimension %s of %s", fd, inVar)
		}
		datasetDims[fd] = d
		k, has := p.Infile.Get(d)
		if !has {
			k = key.All()
		}
		if n, ok := f.DimensionSize(fd); ok {
			k.SetParentSize(n)
		}
		infile.SetKey(fd, k)
	}
	for _, d := range p.Infile.Dims() {
		if d == key.VarDim {
			continue
		}
		cs, _ := fg.cs.Get(d)
		if !infile.Has(cs.InName) {
			return pkgerrors.Wrapf(api.ErrNotFound, "dimension %s in %s", cs.InName, inVar)
		}
	}

	chunk, err := f.Read(inVar, infile)
	if err != nil {
		return err
	}
	if !infile.IsShapeEquivalent(chunk.Shape()) {
		return pkgerrors.Wrapf(accessor.ErrShapeMismatch, "%s: read %v for %s", inVar, chunk.Shape(), infile)
	}
	var current []string
	for _, fd := range infile.GetNonZeros() {
		current = append(current, datasetDims[fd])
	}

	memory := p.Memory.Copy()
	memory.Pop(key.VarDim)
	memory.MakeFull(dims...)
	memory.MakeTotal()
	if err := memory.SortBy(dims); err != nil {
		return err
	}
	for i, d := range dims {
		memory.SetParentSize(d, arr.Shape()[i])
	}
	chunk, err = acs.Reorder(current, memory.GetNonZeros(), chunk)
	if err != nil {
		return err
	}
	return acs.Place(memory, arr, chunk)
}

// LoadFromAvailable reads the selection kr, over available values, into
// dest.
func (fg *Filegroup) LoadFromAvailable(kr *key.Keyring, acs accessor.Accessor, dest map[string]*accessor.Array, dims []string) error {
	cmds, err := fg.GetCommands(kr)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		logger.Infof("filegroup %s: %s", fg.Name, cmd)
		if err := fg.LoadCommand(cmd, acs, dest, dims); err != nil {
			return err
		}
	}
	return nil
}

// WriteData writes arrays and their coordinates to path with the backend of
// the filegroup.
func (fg *Filegroup) WriteData(path string, coords []*coord.Coord, data map[string]*accessor.Array, vi *varinfo.VariablesInfo) (err error) {
	w, err := fg.backend.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			err = pkgerrors.Wrapf(cerr, "closing %s", path)
		}
	}()
	dims := make([]string, len(coords))
	for i, c := range coords {
		dims[i] = c.Name
		var attrs api.AttributeMap
		if c.Units != "" {
			cvi := varinfo.New()
			cvi.SetAttr(c.Name, "units", varinfo.String(c.Units))
			attrs, _ = cvi.AttributeMap(c.Name)
		}
		if err := w.WriteDimension(c.Name, c.Values(), attrs); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		var attrs api.AttributeMap
		if vi != nil && vi.Has(name) {
			attrs, _ = vi.AttributeMap(name)
		}
		if err := w.Write(name, data[name], dims, attrs); err != nil {
			return err
		}
	}
	if vi != nil {
		return w.WriteAttributes(vi.GlobalMap())
	}
	return nil
}
