// Package memory is a backend keeping files in memory. Files created through
// it also appear, empty, in an afero filesystem so that file discovery finds
// them.
package memory

import (
	"sync"

	"github.com/batchatco/go-gridscan/gridscan/accessor"
	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/gridscan/util"
	"github.com/batchatco/go-gridscan/internal"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type variable struct {
	dims  []string
	data  *accessor.Array
	attrs api.AttributeMap
}

type file struct {
	dims  *util.OrderedMap[int]
	vars  *util.OrderedMap[*variable]
	attrs api.AttributeMap
}

// Store is the backend. It is safe for concurrent use.
type Store struct {
	lk     sync.Mutex
	fs     afero.Fs
	files  map[string]*file
	opened int
	reads  int
}

var _ api.Backend = (*Store)(nil)

// New returns an empty store mirroring its files in fs. fs may be nil.
func New(fs afero.Fs) *Store {
	return &Store{fs: fs, files: map[string]*file{}}
}

// Open returns a handle on a file previously created.
func (s *Store) Open(path string, mode api.Mode) (api.File, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	f, ok := s.files[path]
	if !ok {
		return nil, errors.Wrapf(api.ErrNotFound, "memory file %s", path)
	}
	s.opened++
	return &handle{store: s, f: f}, nil
}

// Create replaces any file at path. The file is visible to Open once the
// writer is closed.
func (s *Store) Create(path string) (api.Writer, error) {
	if s.fs != nil {
		if err := afero.WriteFile(s.fs, path, nil, 0o644); err != nil {
			return nil, errors.Wrapf(err, "creating %s", path)
		}
	}
	return &writer{
		store: s,
		path:  path,
		f:     &file{dims: util.New[int](), vars: util.New[*variable]()},
	}, nil
}

// Opened returns the number of handles not closed yet.
func (s *Store) Opened() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.opened
}

// Reads returns the number of Read calls made so far.
func (s *Store) Reads() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.reads
}

// Paths lists the files of the store.
func (s *Store) Paths() []string {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	return out
}

type handle struct {
	store  *Store
	f      *file
	closed bool
}

func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.store.lk.Lock()
	h.store.opened--
	h.store.lk.Unlock()
	return nil
}

func (h *handle) Variables() []string  { return h.f.vars.Keys() }
func (h *handle) Dimensions() []string { return h.f.dims.Keys() }

func (h *handle) DimensionSize(dim string) (int, bool) {
	return h.f.dims.Get(dim)
}

func (h *handle) getVar(name string) (*variable, error) {
	v, has := h.f.vars.Get(name)
	if !has {
		return nil, errors.Wrapf(api.ErrNotFound, "variable %s", name)
	}
	return v, nil
}

func (h *handle) VarDimensions(name string) ([]string, error) {
	v, err := h.getVar(name)
	if err != nil {
		return nil, err
	}
	return append([]string{}, v.dims...), nil
}

func (h *handle) Read(name string, infile *key.Keyring) (*accessor.Array, error) {
	v, err := h.getVar(name)
	if err != nil {
		return nil, err
	}
	kr, err := api.OrderKeyring(v.dims, infile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	h.store.lk.Lock()
	h.store.reads++
	h.store.lk.Unlock()
	return accessor.Default{}.Take(kr, v.data)
}

func (h *handle) Attributes() api.AttributeMap {
	return h.f.attrs
}

func (h *handle) VarAttributes(name string) (api.AttributeMap, error) {
	v, err := h.getVar(name)
	if err != nil {
		return nil, err
	}
	return v.attrs, nil
}

type writer struct {
	store *Store
	path  string
	f     *file
}

func (w *writer) defineDims(dims []string, shape []int) error {
	if len(dims) != len(shape) {
		return errors.Wrapf(accessor.ErrShapeMismatch, "%d dimensions for shape %v", len(dims), shape)
	}
	for i, d := range dims {
		n, has := w.f.dims.Get(d)
		if has && n != shape[i] {
			return errors.Wrapf(accessor.ErrShapeMismatch, "dimension %s has size %d, not %d", d, n, shape[i])
		}
		w.f.dims.Add(d, shape[i])
	}
	return nil
}

func (w *writer) WriteDimension(dim string, values []float64, attrs api.AttributeMap) error {
	data, err := accessor.FromData(append([]float64{}, values...), len(values))
	if err != nil {
		return err
	}
	return w.Write(dim, data, []string{dim}, attrs)
}

func (w *writer) Write(name string, data *accessor.Array, dims []string, attrs api.AttributeMap) error {
	for _, n := range append([]string{name}, dims...) {
		if !internal.ValidName(n) {
			return errors.Wrapf(api.ErrBadName, "writing %s: %q", name, n)
		}
	}
	if err := w.defineDims(dims, data.Shape()); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	w.f.vars.Add(name, &variable{dims: append([]string{}, dims...), data: data.Copy(), attrs: attrs})
	return nil
}

func (w *writer) WriteAttributes(attrs api.AttributeMap) error {
	w.f.attrs = attrs
	return nil
}

func (w *writer) Close() error {
	w.store.lk.Lock()
	defer w.store.lk.Unlock()
	w.store.files[w.path] = w.f
	return nil
}
