package key

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMakeTotalIdempotent(t *testing.T) {
	kr := NewKeyring()
	kr.SetKey("time", NoneKey())
	kr.SetKey("lat", List(1, 2))
	kr.MakeFull("time", "lat", "lon")
	kr.MakeTotal()
	once := kr.Copy()
	kr.MakeTotal()
	if !kr.Equal(once) {
		t.Errorf("make total not idempotent: %s vs %s", once, kr)
	}
	if diff := cmp.Diff([]string{"time", "lat", "lon"}, kr.Dims()); diff != "" {
		t.Error(diff)
	}
	k, _ := kr.Get("lon")
	if !k.IsWhole() {
		t.Error("lon is", k)
	}
}

func TestSortBy(t *testing.T) {
	kr := NewKeyring()
	kr.SetKey("lat", Int(0)).SetKey("time", Int(1))
	if err := kr.SortBy([]string{"var", "time", "lat", "lon"}); err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]string{"time", "lat"}, kr.Dims()); diff != "" {
		t.Error(diff)
	}
	err := kr.SortBy([]string{"time"})
	if !errors.Is(err, ErrOrderTooShort) {
		t.Error("short order accepted")
	}
}

func TestNonZerosAndShape(t *testing.T) {
	kr := NewKeyring()
	kr.SetKey("time", Int(3))
	kr.SetKey("lat", SliceKey(Span(0, 10)))
	kr.SetKey("lon", List(4, 5, 6))
	kr.SetKey("depth", All())
	if diff := cmp.Diff([]string{"lat", "lon", "depth"}, kr.GetNonZeros()); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]int{10, 3, -1}, kr.Shape()); diff != "" {
		t.Error(diff)
	}
	if !kr.IsShapeEquivalent([]int{10, 3, 7}) {
		t.Error("unknown size should match anything")
	}
	if kr.IsShapeEquivalent([]int{10, 2, 7}) {
		t.Error("different shape accepted")
	}
	kr.SetParentSize("depth", 5)
	if diff := cmp.Diff([]int{10, 3, 5}, kr.Shape()); diff != "" {
		t.Error(diff)
	}
}

func TestKeyringMul(t *testing.T) {
	a := NewKeyring()
	a.SetKey("time", SliceKey(Span(10, 20)))
	a.SetKey("lat", List(3, 5, 7, 9))
	a.SetShape(map[string]int{"time": 50, "lat": 12})

	b := NewKeyring()
	b.SetKey("lat", SliceKey(Span(1, 3)))
	b.SetKey("lon", Int(0))

	c, err := a.Mul(b)
	if err != nil {
		t.Error(err)
		return
	}
	want := NewKeyring()
	want.SetKey("time", SliceKey(Span(10, 20)))
	want.SetKey("lat", List(5, 7))
	if !c.Equal(want) {
		t.Errorf("got %s, want %s", c, want)
	}
}

func TestKeyringAdd(t *testing.T) {
	a := NewKeyring()
	a.SetKey("time", List(0, 1))
	b := NewKeyring()
	b.SetKey("time", List(5))
	c, err := a.Add(b)
	if err != nil {
		t.Error(err)
		return
	}
	k, _ := c.Get("time")
	if !k.Equal(List(0, 1, 5)) {
		t.Error("got", k)
	}
}

func TestKeyringSetAndNames(t *testing.T) {
	kr := NewKeyring()
	if err := kr.Set("var", []string{"chl", "sst"}); err != nil {
		t.Error(err)
		return
	}
	if err := kr.Set("time", []any{1, "a"}); !errors.Is(err, ErrInvalidKey) {
		t.Error("mixed key accepted")
	}
	if err := kr.MakeStrIdx("var", namer{"sst", "chl"}); err != nil {
		t.Error(err)
		return
	}
	k, _ := kr.Get("var")
	if !k.Equal(List(1, 0)) {
		t.Error("got", k)
	}
	kr.SetKey("time", Int(2))
	kr.MakeIntList()
	k, _ = kr.Get("time")
	if !k.Equal(List(2)) {
		t.Error("make int list gave", k)
	}
	if got := kr.String(); got != "var: [1 0], time: [2]" {
		t.Error("String() =", got)
	}
}
