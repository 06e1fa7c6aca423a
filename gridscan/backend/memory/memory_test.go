package memory

import (
	"errors"
	"testing"

	"github.com/batchatco/go-gridscan/gridscan/accessor"
	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func TestWriteRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs)
	w, err := s.Create("/data/a.nc")
	if err != nil {
		t.Error(err)
		return
	}
	if err := w.WriteDimension("lat", []float64{0, 1, 2}, nil); err != nil {
		t.Error(err)
		return
	}
	data, _ := accessor.FromData([]float64{0, 1, 2, 3, 4, 5}, 2, 3)
	if err := w.Write("sst", data, []string{"time", "lat"}, nil); err != nil {
		t.Error(err)
		return
	}
	bad := accessor.NewArray(4)
	if err := w.Write("chl", bad, []string{"lat"}, nil); !errors.Is(err, accessor.ErrShapeMismatch) {
		t.Error("inconsistent dimension accepted")
	}
	if err := w.Write("double", accessor.NewArray(3), []string{"lat"}, nil); !errors.Is(err, api.ErrBadName) {
		t.Error("reserved name accepted")
	}
	w.Close()

	if ok, _ := afero.Exists(fs, "/data/a.nc"); !ok {
		t.Error("file not mirrored")
	}
	f, err := s.Open("/data/a.nc", api.ModeRead)
	if err != nil {
		t.Error(err)
		return
	}
	defer f.Close()
	dims, _ := f.VarDimensions("sst")
	if diff := cmp.Diff([]string{"time", "lat"}, dims); diff != "" {
		t.Error(diff)
	}
	kr := key.NewKeyring().SetKey("lat", key.List(2, 0))
	got, err := f.Read("sst", kr)
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]float64{2, 0, 5, 3}, got.Data()); diff != "" {
		t.Error(diff)
	}
	if _, err := f.Read("sst", key.NewKeyring().SetKey("depth", key.Int(0))); !errors.Is(err, api.ErrNotFound) {
		t.Error("unknown dimension accepted")
	}
	if s.Opened() != 1 {
		t.Error("opened =", s.Opened())
	}
	f.Close()
	f.Close()
	if s.Opened() != 0 {
		t.Error("opened after close =", s.Opened())
	}
	if _, err := s.Open("/data/b.nc", api.ModeRead); !errors.Is(err, api.ErrNotFound) {
		t.Error("missing file opened")
	}
}
