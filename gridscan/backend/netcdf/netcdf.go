// Package netcdf reads and writes netCDF files with go-native-netcdf.
// Reading accepts CDF and HDF5 (netCDF4) files; writing produces CDF files.
package netcdf

import (
	"math"
	"reflect"

	"github.com/batchatco/go-gridscan/gridscan/accessor"
	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/internal"
	nc "github.com/batchatco/go-native-netcdf/netcdf"
	ncapi "github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-thrower"
	"github.com/pkg/errors"
)

var logger = internal.Std()

// FillValueAttr is the attribute whose value is read as NaN.
const FillValueAttr = "_FillValue"

type Backend struct{}

var _ api.Backend = Backend{}

func (Backend) Open(path string, mode api.Mode) (api.File, error) {
	g, err := nc.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return &file{path: path, g: g}, nil
}

func (Backend) Create(path string) (api.Writer, error) {
	cw, err := nc.OpenWriter(path, nc.KindCDF)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", path)
	}
	return &writer{cw: cw}, nil
}

type file struct {
	path string
	g    ncapi.Group
}

func (f *file) Close() error {
	if f.g != nil {
		f.g.Close()
		f.g = nil
	}
	return nil
}

func (f *file) Variables() []string  { return f.g.ListVariables() }
func (f *file) Dimensions() []string { return f.g.ListDimensions() }

func (f *file) DimensionSize(dim string) (int, bool) {
	n, ok := f.g.GetDimension(dim)
	return int(n), ok
}

func (f *file) getter(name string) (ncapi.VarGetter, error) {
	vg, err := f.g.GetVarGetter(name)
	if err != nil {
		return nil, errors.Wrapf(api.ErrNotFound, "variable %s in %s: %v", name, f.path, err)
	}
	return vg, nil
}

func (f *file) VarDimensions(name string) ([]string, error) {
	vg, err := f.getter(name)
	if err != nil {
		return nil, err
	}
	return vg.Dimensions(), nil
}

// Read fetches the window spanned by the request on every axis with
// GetSliceMD, then takes the selection from it.
func (f *file) Read(name string, infile *key.Keyring) (*accessor.Array, error) {
	vg, err := f.getter(name)
	if err != nil {
		return nil, err
	}
	dims := vg.Dimensions()
	kr, err := api.OrderKeyring(dims, infile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	shape := make([]int, len(dims))
	for i, n := range vg.Shape() {
		shape[i] = int(n)
	}
	var raw any
	if len(dims) == 0 {
		raw, err = vg.Values()
	} else {
		begin := make([]int64, len(dims))
		end := make([]int64, len(dims))
		for i, d := range dims {
			k, _ := kr.Get(d)
			idx, err := k.Indices(shape[i])
			if err != nil {
				return nil, errors.Wrapf(err, "reading %s along %s", name, d)
			}
			b, e := span(idx)
			begin[i], end[i] = int64(b), int64(e)
			shape[i] = e - b
			kr.SetKey(d, shiftKey(k, idx, b))
		}
		raw, err = vg.GetSliceMD(begin, end)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s from %s", name, f.path)
	}
	data, err := Flatten(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	f.maskFill(vg.Attributes(), data)
	a, err := accessor.FromData(data, shape...)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	return accessor.Default{}.Take(kr, a)
}

// shiftKey returns k as indices within a window starting at begin.
func shiftKey(k key.Key, idx []int, begin int) key.Key {
	if k.IsInt() {
		return key.Int(idx[0] - begin)
	}
	out := make([]int, len(idx))
	for i, x := range idx {
		out[i] = x - begin
	}
	return key.List(out...)
}

func span(idx []int) (begin, end int) {
	if len(idx) == 0 {
		return 0, 0
	}
	begin, end = idx[0], idx[0]+1
	for _, i := range idx {
		if i < begin {
			begin = i
		}
		if i+1 > end {
			end = i + 1
		}
	}
	return begin, end
}

func (f *file) maskFill(attrs ncapi.AttributeMap, data []float64) {
	if attrs == nil {
		return
	}
	fv, has := attrs.Get(FillValueAttr)
	if !has {
		return
	}
	fill, err := Flatten(fv)
	if err != nil || len(fill) != 1 {
		logger.Warnf("%s: ignoring %s %v", f.path, FillValueAttr, fv)
		return
	}
	for i, v := range data {
		if v == fill[0] {
			data[i] = math.NaN()
		}
	}
}

func (f *file) Attributes() api.AttributeMap {
	return f.g.Attributes()
}

func (f *file) VarAttributes(name string) (api.AttributeMap, error) {
	vg, err := f.getter(name)
	if err != nil {
		return nil, err
	}
	return vg.Attributes(), nil
}

// Flatten turns a value returned by go-native-netcdf, a number or nested
// slices of numbers, into row-major float64s.
func Flatten(v any) (out []float64, err error) {
	defer thrower.RecoverError(&err)
	flatten(reflect.ValueOf(v), &out)
	return out, nil
}

func flatten(v reflect.Value, out *[]float64) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			flatten(v.Index(i), out)
		}
	case reflect.Float32, reflect.Float64:
		*out = append(*out, v.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		*out = append(*out, float64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		*out = append(*out, float64(v.Uint()))
	default:
		thrower.Throw(errors.Wrapf(api.ErrUnsupported, "%s", v.Kind()))
	}
}

// Nest turns an array into nested float64 slices, the form the writer
// expects. A zero-dimensional array gives a float64.
func Nest(a *accessor.Array) any {
	shape := a.Shape()
	if len(shape) == 0 {
		return a.Data()[0]
	}
	data := a.Data()
	pos := 0
	return nest(shape, data, &pos).Interface()
}

func nest(shape []int, data []float64, pos *int) reflect.Value {
	if len(shape) == 1 {
		out := append([]float64{}, data[*pos:*pos+shape[0]]...)
		*pos += shape[0]
		return reflect.ValueOf(out)
	}
	ty := reflect.TypeOf(float64(0))
	for range shape {
		ty = reflect.SliceOf(ty)
	}
	out := reflect.MakeSlice(ty, shape[0], shape[0])
	for i := 0; i < shape[0]; i++ {
		out.Index(i).Set(nest(shape[1:], data, pos))
	}
	return out
}

type writer struct {
	cw ncapi.Writer
}

func (w *writer) WriteDimension(dim string, values []float64, attrs api.AttributeMap) error {
	err := w.cw.AddVar(dim, ncapi.Variable{
		Values:     append([]float64{}, values...),
		Dimensions: []string{dim},
		Attributes: attrs,
	})
	return errors.Wrapf(err, "writing dimension %s", dim)
}

func (w *writer) Write(name string, data *accessor.Array, dims []string, attrs api.AttributeMap) error {
	if len(dims) != data.NDim() {
		return errors.Wrapf(accessor.ErrShapeMismatch, "writing %s: %d dimensions for %v", name, len(dims), data.Shape())
	}
	err := w.cw.AddVar(name, ncapi.Variable{
		Values:     Nest(data),
		Dimensions: append([]string{}, dims...),
		Attributes: attrs,
	})
	return errors.Wrapf(err, "writing %s", name)
}

func (w *writer) WriteAttributes(attrs api.AttributeMap) error {
	return errors.Wrap(w.cw.AddAttributes(attrs), "writing attributes")
}

func (w *writer) Close() error {
	return w.cw.Close()
}
