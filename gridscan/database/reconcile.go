package database

import (
	"math"
	"sort"

	"github.com/batchatco/go-gridscan/gridscan/coord"
	"github.com/batchatco/go-gridscan/gridscan/filegroup"
	"github.com/batchatco/go-gridscan/gridscan/key"
	pkgerrors "github.com/pkg/errors"
)

// compileScanned sets the available values of coords from the values the
// filegroups found, maps every filegroup onto them and returns the
// available variables.
func compileScanned(fgs []*filegroup.Filegroup, coords []*coord.Coord, opts Options) ([]string, error) {
	thr := opts.threshold()
	for _, c := range coords {
		lists := make([][]float64, len(fgs))
		for i, fg := range fgs {
			cs, _ := fg.Coord(c.Name)
			lists[i] = cs.Values()
		}
		values := unionValues(lists, thr)
		if !opts.AllowAdvanced && len(fgs) > 1 {
			common := intersectValues(lists, thr)
			if len(common) == 0 {
				return nil, pkgerrors.Wrapf(ErrNoCommonValues, "%s", c.Name)
			}
			if cut := len(values) - len(common); cut > 0 {
				logger.Warnf("%s: %d values are not in every filegroup and are dropped, now from %s to %s",
					c.Name, cut, c.Format(common[0]), c.Format(common[len(common)-1]))
				for _, fg := range fgs {
					cs, _ := fg.Coord(c.Name)
					cs.FindContained(common, thr)
					if _, err := cs.SliceFromAvail(key.All()); err != nil {
						return nil, err
					}
				}
			}
			values = common
		}
		if err := c.UpdateValues(values); err != nil {
			return nil, pkgerrors.Wrapf(err, "%s", c.Name)
		}
		for _, fg := range fgs {
			cs, _ := fg.Coord(c.Name)
			cs.FindContained(values, thr)
			cs.SetChecked()
		}
	}

	var names []string
	seen := map[string]bool{}
	for _, fg := range fgs {
		for _, n := range fg.Var().Names() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	for _, fg := range fgs {
		fg.Var().FindContainedNames(names)
		fg.Var().SetChecked()
	}
	if err := checkDuplicates(fgs); err != nil {
		return nil, err
	}
	return names, nil
}

// checkDuplicates fails if two filegroups can provide the same point of a
// variable. A point is provided by both when they overlap on every
// dimension.
func checkDuplicates(fgs []*filegroup.Filegroup) error {
	for i, a := range fgs {
		for _, b := range fgs[i+1:] {
			overlap := true
			for _, acs := range a.CoordScans() {
				bcs, _ := b.Coord(acs.Name)
				if !overlaps(acs.Contains(), bcs.Contains()) {
					overlap = false
					break
				}
			}
			if overlap {
				return pkgerrors.Wrapf(ErrDuplicateData, "filegroups %s and %s", a.Name, b.Name)
			}
		}
	}
	return nil
}

func overlaps(a, b []int) bool {
	for i := range a {
		if i < len(b) && a[i] != filegroup.NoIndex && b[i] != filegroup.NoIndex {
			return true
		}
	}
	return false
}

// unionValues merges sorted lists, values closer than thr being the same.
func unionValues(lists [][]float64, thr float64) []float64 {
	var all []float64
	for _, l := range lists {
		all = append(all, l...)
	}
	sort.Float64s(all)
	out := make([]float64, 0, len(all))
	for _, v := range all {
		if len(out) == 0 || v-out[len(out)-1] >= thr {
			out = append(out, v)
		}
	}
	return out
}

// intersectValues keeps the values of the first list found in every other.
func intersectValues(lists [][]float64, thr float64) []float64 {
	if len(lists) == 0 {
		return nil
	}
	var out []float64
	for _, v := range unionValues(lists[:1], thr) {
		found := true
		for _, l := range lists[1:] {
			if !containsValue(l, v, thr) {
				found = false
				break
			}
		}
		if found {
			out = append(out, v)
		}
	}
	return out
}

// containsValue reports whether the ascending list l holds a value closer
// to v than thr.
func containsValue(l []float64, v, thr float64) bool {
	for i := sort.SearchFloat64s(l, v-thr); i < len(l) && l[i] < v+thr; i++ {
		if math.Abs(l[i]-v) < thr {
			return true
		}
	}
	return false
}
