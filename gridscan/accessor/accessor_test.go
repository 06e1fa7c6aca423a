package accessor

import (
	"errors"
	"testing"

	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/google/go-cmp/cmp"
)

// arange returns a 3x4x5 array where element (i,j,k) is 100i+10j+k.
func arange() *Array {
	a := NewArray(3, 4, 5)
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 5; k++ {
				a.Set(float64(100*i+10*j+k), i, j, k)
			}
		}
	}
	return a
}

func TestTake(t *testing.T) {
	a := arange()
	kr := key.NewKeyring()
	kr.SetKey("time", key.Int(1))
	kr.SetKey("lat", key.List(3, 0))
	kr.SetKey("lon", key.SliceKey(key.Slice{Start: key.At(4), Stop: key.None, Step: key.At(-2)}))
	out, err := Default{}.Take(kr, a)
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]int{2, 3}, out.Shape()); diff != "" {
		t.Error(diff)
		return
	}
	want := []float64{134, 132, 130, 104, 102, 100}
	if diff := cmp.Diff(want, out.Data()); diff != "" {
		t.Error(diff)
	}

	short := key.NewKeyring().SetKey("time", key.List(2))
	out, err = Default{}.Take(short, a)
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]int{1, 4, 5}, out.Shape()); diff != "" {
		t.Error(diff)
	}

	bad := key.NewKeyring().SetKey("time", key.Int(3))
	if _, err := (Default{}).Take(bad, a); !errors.Is(err, key.ErrOutOfRange) {
		t.Error("out of range take:", err)
	}
}

func TestPlace(t *testing.T) {
	a := NewArray(3, 4)
	kr := key.NewKeyring()
	kr.SetKey("lat", key.List(2, 0))
	kr.SetKey("lon", key.SliceKey(key.Span(1, 3)))
	chunk, _ := FromData([]float64{1, 2, 3, 4}, 2, 2)
	if err := (Default{}).Place(kr, a, chunk); err != nil {
		t.Error(err)
		return
	}
	want := []float64{
		0, 3, 4, 0,
		0, 0, 0, 0,
		0, 1, 2, 0,
	}
	if diff := cmp.Diff(want, a.Data()); diff != "" {
		t.Error(diff)
	}
	wrong, _ := FromData([]float64{1, 2, 3}, 3)
	if err := (Default{}).Place(kr, a, wrong); !errors.Is(err, ErrShapeMismatch) {
		t.Error("shape mismatch accepted:", err)
	}
	if err := (Default{}).CheckShape(kr, a, chunk); err != nil {
		t.Error(err)
	}
}

func TestReorder(t *testing.T) {
	a := arange()
	out, err := Default{}.Reorder([]string{"time", "lat", "lon"}, []string{"lon", "depth", "time", "lat"}, a)
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]int{5, 1, 3, 4}, out.Shape()); diff != "" {
		t.Error(diff)
		return
	}
	if out.At(4, 0, 2, 1) != a.At(2, 1, 4) {
		t.Error("wrong element after reorder")
	}
	_, err = Default{}.Reorder([]string{"time", "lat", "lon"}, []string{"time", "lat"}, a)
	if !errors.Is(err, ErrBadAxis) {
		t.Error("dropped dimension accepted")
	}
}

func TestMoveAxis(t *testing.T) {
	a := arange()
	out, err := Default{}.MoveAxis(a, 2, 0)
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]int{5, 3, 4}, out.Shape()); diff != "" {
		t.Error(diff)
	}
	if out.At(3, 1, 2) != a.At(1, 2, 3) {
		t.Error("wrong element after move")
	}
}

func TestConcatenate(t *testing.T) {
	a, _ := FromData([]float64{1, 2, 3, 4}, 2, 2)
	b, _ := FromData([]float64{5, 6}, 2, 1)
	out, err := Default{}.Concatenate([]*Array{a, b}, 1)
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]float64{1, 2, 5, 3, 4, 6}, out.Data()); diff != "" {
		t.Error(diff)
	}
	st, err := Stack(Default{}, []*Array{a, a}, 0)
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]int{2, 2, 2}, st.Shape()); diff != "" {
		t.Error(diff)
	}
	if _, err := (Default{}).Concatenate([]*Array{a, b}, 0); !errors.Is(err, ErrShapeMismatch) {
		t.Error("mismatched concatenation accepted")
	}
}
