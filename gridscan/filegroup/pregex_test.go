package filegroup

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePregex(t *testing.T) {
	pat, err := ParsePregex(`%(prefix)_%(time:Y)%(time:doy)\.nc`, map[string]string{"prefix": "SST"})
	if err != nil {
		t.Error(err)
		return
	}
	if len(pat.Matchers) != 2 {
		t.Error("matchers:", pat.Matchers)
		return
	}
	if m := pat.Matchers[1]; m.Coord != "time" || m.Elt != "doy" || m.Idx != 1 {
		t.Error("matcher:", m)
	}
	if diff := cmp.Diff([]string{"2007", "021"}, pat.Match("SST_2007021.nc")); diff != "" {
		t.Error(diff)
	}
	for _, name := range []string{"SST_2007021.nc.gz", "xSST_2007021.nc", "CHL_2007021.nc"} {
		if pat.Match(name) != nil {
			t.Error("matched", name)
		}
	}
}

func TestReplacementOrder(t *testing.T) {
	replacements := map[string]string{"a": "%(b)x", "b": "y"}
	for i := 0; i < 20; i++ {
		pat, err := ParsePregex(`%(a)_%(time:Y)\.nc`, replacements)
		if err != nil {
			t.Error(err)
			return
		}
		if pat.Pregex != `yx_%(time:Y)\.nc` {
			t.Error("replaced as", pat.Pregex)
			return
		}
	}
}

func TestReconstruct(t *testing.T) {
	pat, err := ParsePregex(`%(prefix)_%(time:Y)%(time:j)`, map[string]string{"prefix": "SST"})
	if err != nil {
		t.Error(err)
		return
	}
	segments, err := pat.Segments("SST_2007001")
	if err != nil {
		t.Error(err)
		return
	}
	if diff := cmp.Diff([]string{"SST_", "2007", "", "001", ""}, segments); diff != "" {
		t.Error(diff)
	}
	got := Reconstruct(segments, map[int]string{0: "2007", 1: "021"})
	if got != "SST_2007021" {
		t.Error("reconstructed", got)
	}
	if got := Reconstruct(segments, map[int]string{1: "002"}); got != "SST_2007002" {
		t.Error("reconstructed", got)
	}
}

func TestPregexOptions(t *testing.T) {
	pat, err := ParsePregex(`%(time:Y:custom=(19|20)\d\d:)/%(depth:value)_%(time:Y:dummy)`, nil)
	if err != nil {
		t.Error(err)
		return
	}
	if !pat.Matchers[2].Dummy || pat.Matchers[0].Dummy {
		t.Error("dummy flags:", pat.Matchers)
	}
	// the group of the custom regex does not shift the matches
	if diff := cmp.Diff([]string{"2001", "-12.5", "2001"}, pat.Match("2001/-12.5_2001")); diff != "" {
		t.Error(diff)
	}
	if pat.Match("2101/-12.5_2001") != nil {
		t.Error("custom regex ignored")
	}
}

func TestPregexErrors(t *testing.T) {
	tests := []struct {
		pregex string
		want   error
	}{
		{`%(prefix)_%(time:Y)`, ErrBadPregex},
		{`%(time:century)`, ErrUnknownElement},
		{`%(time:Y`, ErrBadPregex},
		{`%(time:Y:custom=:)`, ErrBadPregex},
	}
	for _, test := range tests {
		_, err := ParsePregex(test.pregex, nil)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: got %v, want %v", test.pregex, err, test.want)
		}
	}
}
