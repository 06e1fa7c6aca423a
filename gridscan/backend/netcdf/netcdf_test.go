package netcdf

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/batchatco/go-gridscan/gridscan/accessor"
	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/gridscan/varinfo"
	"github.com/google/go-cmp/cmp"
)

func writeTestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sst.nc")
	w, err := Backend{}.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	vi := varinfo.New()
	vi.SetAttr("sst", "units", varinfo.String("deg_C"))
	vi.SetAttr("sst", FillValueAttr, varinfo.Float(-999))
	vi.SetInfo("title", varinfo.String("test"))
	attrs, _ := vi.AttributeMap("sst")

	if err := w.WriteDimension("time", []float64{0, 1}, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteDimension("lat", []float64{10, 20, 30}, nil); err != nil {
		t.Fatal(err)
	}
	data, _ := accessor.FromData([]float64{0, 1, 2, 3, -999, 5}, 2, 3)
	if err := w.Write("sst", data, []string{"time", "lat"}, attrs); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteAttributes(vi.GlobalMap()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRoundTrip(t *testing.T) {
	path := writeTestFile(t)
	f, err := Backend{}.Open(path, api.ModeRead)
	if err != nil {
		t.Error(err)
		return
	}
	defer f.Close()

	dims, err := f.VarDimensions("sst")
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]string{"time", "lat"}, dims); diff != "" {
		t.Error(diff)
	}
	if n, ok := f.DimensionSize("lat"); !ok || n != 3 {
		t.Error("lat size =", n, ok)
	}

	kr := key.NewKeyring().SetKey("time", key.Int(1)).SetKey("lat", key.List(2, 0))
	got, err := f.Read("sst", kr)
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]int{2}, got.Shape()); diff != "" {
		t.Error(diff)
	}
	if got.At(0) != 5 || got.At(1) != 3 {
		t.Error("read", got.Data())
	}

	all, err := f.Read("sst", key.NewKeyring())
	if err != nil {
		t.Error(err)
		return
	}
	if !math.IsNaN(all.At(1, 1)) {
		t.Error("fill value not masked:", all.At(1, 1))
	}

	attrs, err := f.VarAttributes("sst")
	if err != nil {
		t.Error(err)
		return
	}
	if v, _ := attrs.Get("units"); v != "deg_C" {
		t.Error("units =", v)
	}
	if v, _ := f.Attributes().Get("title"); v != "test" {
		t.Error("title =", v)
	}
}

func TestReadWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.nc")
	w, err := Backend{}.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(10*(i/5) + i%5)
	}
	data, _ := accessor.FromData(values, 4, 5)
	if err := w.Write("grid", data, []string{"y", "x"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f, err := Backend{}.Open(path, api.ModeRead)
	if err != nil {
		t.Error(err)
		return
	}
	defer f.Close()

	tests := []struct {
		kr    *key.Keyring
		shape []int
		want  []float64
	}{
		{
			key.NewKeyring().SetKey("y", key.SliceKey(key.Slice{Start: key.At(3), Stop: key.At(0), Step: key.At(-1)})).SetKey("x", key.List(4, 1)),
			[]int{3, 2},
			[]float64{34, 31, 24, 21, 14, 11},
		},
		{
			key.NewKeyring().SetKey("y", key.Int(2)).SetKey("x", key.SliceKey(key.Slice{Step: key.At(2)})),
			[]int{3},
			[]float64{20, 22, 24},
		},
		{
			key.NewKeyring().SetKey("x", key.Int(3)),
			[]int{4},
			[]float64{3, 13, 23, 33},
		},
	}
	for _, test := range tests {
		got, err := f.Read("grid", test.kr)
		if err != nil {
			t.Error(test.kr, err)
			continue
		}
		if diff := cmp.Diff(test.shape, got.Shape()); diff != "" {
			t.Error(test.kr, diff)
		}
		if diff := cmp.Diff(test.want, got.Data()); diff != "" {
			t.Error(test.kr, diff)
		}
	}
}

func TestFlattenNest(t *testing.T) {
	in := [][]int16{{1, 2, 3}, {4, 5, 6}}
	flat, err := Flatten(in)
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 4, 5, 6}, flat); diff != "" {
		t.Error(diff)
	}
	a, _ := accessor.FromData(flat, 2, 3)
	want := [][]float64{{1, 2, 3}, {4, 5, 6}}
	if diff := cmp.Diff(want, Nest(a)); diff != "" {
		t.Error(diff)
	}
	if _, err := Flatten([]string{"a"}); err == nil {
		t.Error("strings flattened")
	}
}
