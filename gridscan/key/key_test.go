package key

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func seq(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func TestListToSlice(t *testing.T) {
	tests := []struct {
		in   []int
		want Slice
		ok   bool
	}{
		{[]int{0, 1}, Slice{At(0), At(2), At(1)}, true},
		{[]int{-3, -2, -1}, Slice{At(-3), None, At(1)}, true},
		{[]int{3, 2, 1, 0}, Slice{At(3), None, At(-1)}, true},
		{[]int{-1, -3, -5}, Slice{At(-1), At(-6), At(-2)}, true},
		{[]int{2, 5, 8, 11}, Slice{At(2), At(12), At(3)}, true},
		{[]int{0, 2, -4, -3}, Slice{}, false},
		{[]int{1, 2, 4}, Slice{}, false},
		{[]int{4, 4}, Slice{}, false},
		{[]int{4}, Slice{}, false},
		{[]int{}, Slice{}, false},
	}
	for _, test := range tests {
		got, ok := ListToSlice(test.in)
		if ok != test.ok {
			t.Errorf("ListToSlice(%v) ok=%v, want %v", test.in, ok, test.ok)
			continue
		}
		if ok && got != test.want {
			t.Errorf("ListToSlice(%v) = %s, want %s", test.in, got, test.want)
		}
	}
}

func TestGuessSliceSize(t *testing.T) {
	tests := []struct {
		in   Slice
		want int
		ok   bool
	}{
		{Slice{At(10), None, At(-1)}, 11, true},
		{Slice{None, At(-5), At(-1)}, 4, true},
		{Slice{None, At(0), None}, 0, true},
		{Slice{None, At(5), None}, 5, true},
		{Slice{At(2), At(12), At(3)}, 4, true},
		{Slice{At(-5), At(-2), None}, 3, true},
		{Slice{At(10), At(2), At(-3)}, 3, true},
		{Slice{At(-3), None, None}, 0, false},
		{Slice{None, None, None}, 0, false},
		{Slice{At(0), At(-2), None}, 0, false},
	}
	for _, test := range tests {
		got, ok := GuessSliceSize(test.in)
		if ok != test.ok || (ok && got != test.want) {
			t.Errorf("GuessSliceSize(%s) = %d,%v want %d,%v", test.in, got, ok, test.want, test.ok)
		}
	}
	_, err := GuessToList(Slice{At(-3), None, None})
	if !errors.Is(err, ErrUnresolvableSlice) {
		t.Error("expected unresolvable slice, got", err)
	}
	l, err := GuessToList(Slice{None, At(5), None})
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, l); diff != "" {
		t.Error(diff)
	}
}

func TestReverseSliceOrder(t *testing.T) {
	tests := []struct {
		in, want Slice
	}{
		{Slice{At(0), At(13), At(3)}, Slice{At(12), None, At(-3)}},
		{Slice{None, At(10), None}, Slice{At(9), None, At(-1)}},
		{Slice{At(0), At(14), At(3)}, Slice{At(12), None, At(-3)}},
		{Slice{None, None, At(-1)}, Slice{None, None, At(1)}},
	}
	for _, test := range tests {
		got, err := ReverseSliceOrder(test.in)
		if err != nil {
			t.Error(err)
			continue
		}
		if got != test.want {
			t.Errorf("ReverseSliceOrder(%s) = %s, want %s", test.in, got, test.want)
		}
	}
	_, err := ReverseSliceOrder(Slice{None, None, At(2)})
	if !errors.Is(err, ErrUnresolvableSlice) {
		t.Error("expected unresolvable slice, got", err)
	}
}

func TestReverseMatchesSelection(t *testing.T) {
	s := seq(17)
	for _, sl := range []Slice{
		{None, None, None},
		{At(2), At(11), At(3)},
		{At(-2), None, At(-4)},
		{None, None, At(2)},
	} {
		k := SliceKey(sl).WithParentSize(len(s))
		want, err := Apply(k, s)
		if err != nil {
			t.Error(err)
			continue
		}
		for i, j := 0, len(want)-1; i < j; i, j = i+1, j-1 {
			want[i], want[j] = want[j], want[i]
		}
		if err := k.Reverse(); err != nil {
			t.Error(err)
			continue
		}
		got, err := Apply(k, s)
		if err != nil {
			t.Error(err)
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("reverse of %s: %s", sl, diff)
		}
	}
}

func TestNew(t *testing.T) {
	_, err := New([]any{1, "a"})
	if !errors.Is(err, ErrInvalidKey) {
		t.Error("mixed list accepted")
	}
	_, err = New(Slice{At(0), At(3), At(0)})
	if !errors.Is(err, ErrInvalidKey) {
		t.Error("zero step accepted")
	}
	_, err = New(3.5)
	if !errors.Is(err, ErrInvalidKey) {
		t.Error("float accepted")
	}
	k, err := New([]any{"sst", "chl"})
	if err != nil {
		t.Error(err)
		return
	}
	if !k.IsString() || !k.IsList() {
		t.Error("wrong key", k)
	}
	k, err = New(nil)
	if err != nil || !k.IsNone() {
		t.Error("nil is not a None key", k, err)
	}
}

func testKeys() []Key {
	return []Key{
		Int(3),
		Int(-1),
		List(1, 5, 2),
		List(0),
		List(),
		SliceKey(Span(2, 10)),
		SliceKey(Slice{At(1), None, At(3)}),
		SliceKey(Slice{None, None, At(-1)}),
		SliceKey(Slice{At(15), At(2), At(-2)}),
		SliceKey(Slice{At(-5), None, None}),
		All(),
	}
}

func TestApplyAsListRoundTrip(t *testing.T) {
	s := seq(20)
	for _, k := range testKeys() {
		direct, err := Apply(k, s)
		if err != nil {
			t.Error(k, err)
			continue
		}
		l, err := k.WithParentSize(len(s)).AsList()
		if err != nil {
			t.Error(k, err)
			continue
		}
		mapped := make([]int, len(l))
		for i, v := range l {
			mapped[i] = s[v]
		}
		if diff := cmp.Diff(direct, mapped); diff != "" {
			t.Errorf("%s: %s", k, diff)
		}
	}
}

func TestMulComposition(t *testing.T) {
	s := seq(20)
	for _, a := range testKeys() {
		if a.IsInt() {
			continue
		}
		sa, err := Apply(a, s)
		if err != nil {
			t.Error(err)
			continue
		}
		for _, b := range testKeys() {
			sab, err := Apply(b, sa)
			if err != nil {
				continue
			}
			ab, err := a.WithParentSize(len(s)).Mul(b)
			if err != nil {
				t.Errorf("%s * %s: %s", a, b, err)
				continue
			}
			got, err := Apply(ab, s)
			if err != nil {
				t.Errorf("%s * %s = %s: %s", a, b, ab, err)
				continue
			}
			if diff := cmp.Diff(sab, got); diff != "" {
				t.Errorf("%s * %s = %s: %s", a, b, ab, diff)
			}
		}
	}
}

func TestMulAssociativity(t *testing.T) {
	s := seq(20)
	for _, a := range testKeys() {
		if a.IsInt() {
			continue
		}
		a = a.WithParentSize(len(s))
		sa, _ := Apply(a, s)
		for _, b := range testKeys() {
			if b.IsInt() {
				continue
			}
			sab, err := Apply(b, sa)
			if err != nil {
				continue
			}
			b = b.WithParentSize(len(sa))
			for _, c := range testKeys() {
				want, err := Apply(c, sab)
				if err != nil {
					continue
				}
				ab, err := a.Mul(b)
				if err != nil {
					t.Error(err)
					continue
				}
				left, err := ab.Mul(c)
				if err != nil {
					t.Errorf("(%s*%s)*%s: %s", a, b, c, err)
					continue
				}
				bc, err := b.Mul(c)
				if err != nil {
					t.Errorf("%s*%s: %s", b, c, err)
					continue
				}
				right, err := a.Mul(bc)
				if err != nil {
					t.Errorf("%s*(%s*%s): %s", a, b, c, err)
					continue
				}
				gotLeft, _ := Apply(left, s)
				gotRight, _ := Apply(right, s)
				if diff := cmp.Diff(want, gotLeft); diff != "" {
					t.Errorf("(%s*%s)*%s: %s", a, b, c, diff)
				}
				if diff := cmp.Diff(want, gotRight); diff != "" {
					t.Errorf("%s*(%s*%s): %s", a, b, c, diff)
				}
			}
		}
	}
}

func TestMulResultKind(t *testing.T) {
	a := SliceKey(Span(0, 10)).WithParentSize(20)
	tests := []struct {
		other Key
		want  Kind
	}{
		{Int(2), KindInt},
		{List(1, 3), KindList},
		{SliceKey(Slice{At(0), None, At(2)}), KindSlice},
	}
	for _, test := range tests {
		got, err := a.Mul(test.other)
		if err != nil {
			t.Error(err)
			continue
		}
		if got.Kind() != test.want {
			t.Errorf("%s * %s gave %s, want kind %s", a, test.other, got, test.want)
		}
	}
	l := List(4, 2, 9).WithParentSize(20)
	got, err := l.Mul(SliceKey(Span(0, 2)))
	if err != nil {
		t.Error(err)
		return
	}
	if !got.Equal(List(4, 2)) {
		t.Error("list * slice =", got)
	}
}

func TestSimplifyIdempotence(t *testing.T) {
	for _, sl := range []Slice{
		{At(2), At(10), At(1)},
		{At(1), At(17), At(3)},
		{At(15), At(4), At(-2)},
		{At(5), None, At(-1)},
	} {
		l, err := SliceKey(sl).Indices(20)
		if err != nil {
			t.Error(err)
			continue
		}
		k := List(l...)
		if err := k.Simplify(); err != nil {
			t.Error(err)
			continue
		}
		if !k.IsSlice() || k.Slice() != sl {
			t.Errorf("simplify(as_list(%s)) = %s", sl, k)
		}
		if err := k.Simplify(); err != nil || k.Slice() != sl {
			t.Errorf("second simplify changed %s", k)
		}
	}
	k := List(3)
	k.Simplify()
	if !k.IsList() {
		t.Error("single element list became", k)
	}
}

func TestAdd(t *testing.T) {
	got, err := SliceKey(Span(0, 3)).Add(SliceKey(Span(3, 6)))
	if err != nil {
		t.Error(err)
		return
	}
	if !got.IsSlice() || got.Slice() != (Slice{At(0), At(6), At(1)}) {
		t.Error("0:3 + 3:6 =", got)
	}
	got, err = List(1, 4).Add(Int(2))
	if err != nil {
		t.Error(err)
		return
	}
	if !got.Equal(List(1, 4, 2)) {
		t.Error("[1 4] + 2 =", got)
	}
	_, err = List(1).Add(Name("sst"))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Error("mixed add accepted")
	}
}

type namer []string

func (n namer) Index(name string) (int, bool) {
	for i, v := range n {
		if v == name {
			return i, true
		}
	}
	return 0, false
}

func (n namer) NameAt(i int) (string, bool) {
	if i < 0 || i >= len(n) {
		return "", false
	}
	return n[i], true
}

func (n namer) Len() int { return len(n) }

func TestStringKeys(t *testing.T) {
	vars := namer{"sst", "chl", "u", "v"}

	k := Names("u", "sst")
	if err := k.Reverse(); !errors.Is(err, ErrStringKey) {
		t.Error("reverse of string key:", err)
	}
	if err := k.Simplify(); !errors.Is(err, ErrStringKey) {
		t.Error("simplify of string key:", err)
	}
	for _, ik := range []Key{List(0, 1), All(), SliceKey(Span(0, 4)).WithParentSize(4)} {
		if _, err := ik.Mul(Name("sst")); !errors.Is(err, ErrTypeMismatch) {
			t.Error(ik, "* string accepted")
		}
	}
	if got, err := (Key{}).Mul(Names("u", "sst")); err != nil || !got.Equal(Names("u", "sst")) {
		t.Error("none * names =", got, err)
	}
	sel, err := Apply(k, []string(vars))
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]string{"u", "sst"}, sel); diff != "" {
		t.Error(diff)
	}
	if err := k.MakeStrIdx(vars); err != nil {
		t.Error(err)
		return
	}
	if !k.Equal(List(2, 0)) {
		t.Error("MakeStrIdx gave", k)
	}
	if err := k.MakeIdxStr(vars); err != nil {
		t.Error(err)
		return
	}
	if !k.Equal(Names("u", "sst")) {
		t.Error("MakeIdxStr gave", k)
	}
	composed, err := Names("sst", "chl", "u").Mul(Int(1))
	if err != nil {
		t.Error(err)
		return
	}
	if !composed.Equal(Name("chl")) {
		t.Error("names * int =", composed)
	}
	ns := NameSlice("chl", "v")
	if err := ns.MakeStrIdx(vars); err != nil {
		t.Error(err)
		return
	}
	if !ns.Equal(SliceKey(Span(1, 3))) {
		t.Error("name slice gave", ns)
	}
}

func TestOutOfRange(t *testing.T) {
	_, err := Apply(Int(5), seq(3))
	if !errors.Is(err, ErrOutOfRange) {
		t.Error("out of range accepted")
	}
	_, err = List(0, 7).Indices(4)
	if !errors.Is(err, ErrOutOfRange) {
		t.Error("out of range accepted")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"3", Int(3)},
		{"-1", Int(-1)},
		{"1,4,7", List(1, 4, 7)},
		{"0:10:2", SliceKey(Slice{At(0), At(10), At(2)})},
		{"::-1", SliceKey(Slice{None, None, At(-1)})},
		{":", All()},
		{"sst", Name("sst")},
		{"sst,chl", Names("sst", "chl")},
		{"sst:u", NameSlice("sst", "u")},
	}
	for _, test := range tests {
		got, err := Parse(test.in)
		if err != nil {
			t.Error(test.in, err)
			continue
		}
		if !got.Equal(test.want) {
			t.Errorf("Parse(%q) = %s, want %s", test.in, got, test.want)
		}
	}
	for _, bad := range []string{"1,a", "0:1:2:3", "0:5:0"} {
		if _, err := Parse(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Parse(%q) accepted", bad)
		}
	}
}
