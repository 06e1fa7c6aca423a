package database

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContainsValue(t *testing.T) {
	l := []float64{0, 0.5, 1.1}
	tests := []struct {
		v    float64
		want bool
	}{
		{0.5, true},
		{0.6, true},
		{0.75, false},
		{0.25, false},
		{1, true},
		{-0.25, false},
	}
	for _, test := range tests {
		if got := containsValue(l, test.v, 0.25); got != test.want {
			t.Error(test.v, "got", got, "want", test.want)
		}
	}
}

func TestUnionAndIntersection(t *testing.T) {
	lists := [][]float64{{0, 0.5, 1}, {0.75, 1.1}}
	if diff := cmp.Diff([]float64{1}, intersectValues(lists, 0.25)); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]float64{0, 0.5, 0.75, 1}, unionValues(lists, 0.25)); diff != "" {
		t.Error(diff)
	}
	if diff := cmp.Diff([]float64{0, 0.25}, unionValues([][]float64{{0}, {0.25}}, 0.25)); diff != "" {
		t.Error(diff)
	}
}
