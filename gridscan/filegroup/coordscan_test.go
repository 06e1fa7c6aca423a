package filegroup

import (
	"errors"
	"testing"

	"github.com/batchatco/go-gridscan/gridscan/coord"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/google/go-cmp/cmp"
)

func TestSortValues(t *testing.T) {
	lat, _ := coord.New("lat", nil, "degrees_north")
	cs := newCoordScan(lat, ScanIn, "latitude")
	cs.values = []float64{30, 20, 10}
	cs.inIdx = []int{0, 1, 2}
	order := cs.SortValues()
	if diff := cmp.Diff([]int{2, 1, 0}, order); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]int{2, 1, 0}, cs.InIdx()); diff != "" {
		t.Error(diff)
	}
	if !cs.IsIdxDescending() {
		t.Error("descending storage not detected")
	}

	depth, _ := coord.New("depth", nil, "")
	cs = newCoordScan(depth, ScanShared, "")
	cs.values = []float64{5, 0, 10}
	cs.inIdx = []int{NoIndex, NoIndex, NoIndex}
	cs.matches = [][]string{{"b"}, {"a"}, {"c"}}
	cs.SortValues()
	if diff := cmp.Diff([][]string{{"a"}, {"b"}, {"c"}}, cs.matches); diff != "" {
		t.Error(diff)
	}
	if cs.IsIdxDescending() {
		t.Error("absent indices seen as descending")
	}
}

func TestFinalizeUnits(t *testing.T) {
	depth, _ := coord.New("depth", nil, "m")
	cs := newCoordScan(depth, ScanShared, "")
	cs.AddScanner(ValueFromMatches{})
	cs.reset()
	cs.values, cs.inIdx = []float64{2, 1}, []int{NoIndex, NoIndex}
	cs.Units = "km"
	if err := cs.finalize(false); !errors.Is(err, ErrUnitsMismatch) {
		t.Error("mismatch accepted:", err)
	}
	if err := cs.finalize(true); err != nil {
		t.Error(err)
	}
	cs.Converter = func(values []float64, from, to string) ([]float64, error) {
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = v * 1000
		}
		return out, nil
	}
	if err := cs.finalize(false); err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]float64{1000, 2000}, cs.Coord().Values()); diff != "" {
		t.Error(diff)
	}

	time, _ := coord.NewTime("time", nil, "hours since 2007-01-01")
	cs = newCoordScan(time, ScanShared, "")
	cs.AddScanner(DateFromMatches{})
	cs.reset()
	cs.values, cs.inIdx = []float64{1}, []int{0}
	cs.Units = "days since 2007-01-01"
	if err := cs.finalize(false); err != nil {
		t.Error(err)
		return
	}
	if cs.Coord().Value(0) != 24 {
		t.Error("converted to", cs.Coord().Values())
	}
}

func TestCoordScanSlice(t *testing.T) {
	lon, _ := coord.New("lon", nil, "")
	cs := newCoordScan(lon, ScanShared, "")
	cs.values = []float64{0, 1, 2, 3}
	cs.inIdx = []int{3, 2, 1, 0}
	cs.matches = [][]string{{"0"}, {"1"}, {"2"}, {"3"}}
	if err := cs.Slice(key.Int(2)); err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]float64{2}, cs.Values()); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([][]string{{"2"}}, cs.matches); diff != "" {
		t.Error(diff)
	}
	k, err := cs.GetInIdx(key.Int(0))
	if err != nil {
		t.Error(err)
		return
	}
	if !k.Equal(key.Int(1)) {
		t.Error("in-file key", k)
	}

	cs.values = []float64{0, 1, 2, 3}
	cs.inIdx = []int{0, 1, 2, 3}
	cs.matches = nil
	cs.coord.UpdateValues(cs.values)
	cs.FindContained([]float64{-1, 1, 3.000001, 5}, coord.DefaultThreshold)
	if diff := cmp.Diff([]int{NoIndex, 1, 3, NoIndex}, cs.Contains()); diff != "" {
		t.Error(diff)
	}
	changed, err := cs.SliceFromAvail(key.All())
	if err != nil {
		t.Error(err)
		return
	}
	if !changed {
		t.Error("values not dropped")
	}
	if diff := cmp.Diff([]float64{1, 3}, cs.Values()); diff != "" {
		t.Error(diff)
	}
}

func TestAddScanner(t *testing.T) {
	lat, _ := coord.New("lat", nil, "")
	cs := newCoordScan(lat, ScanIn, "")
	if err := cs.AddScanner(ValueFromMatches{}); !errors.Is(err, ErrNotShared) {
		t.Error("filename scanner on in-file coordinate:", err)
	}
	if err := cs.AddScanner(42); !errors.Is(err, ErrNoScanner) {
		t.Error("not a scanner:", err)
	}
	if err := cs.AddScanner(InFileValues{}); err != nil {
		t.Error(err)
	}
	if err := cs.AddScanner(UnitsFromFile{}); err != nil {
		t.Error(err)
	}
	if len(cs.inFileS) != 1 || len(cs.attrS) != 1 {
		t.Error("scanners not registered")
	}
}
