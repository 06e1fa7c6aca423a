package coord

import (
	"fmt"
	"time"

	"github.com/batchatco/go-gridscan/gridscan/key"
)

type valueKind int

const (
	valueSingle valueKind = iota
	valueList
	valueRange
	valueDays
)

// ValueKey selects along a coordinate by value instead of index.
type ValueKey struct {
	kind       valueKind
	values     []float64
	vmin, vmax float64
	exclude    bool
	loc        Loc
	days       [2]time.Time
}

// Value selects the index closest to v (Int key). Values beyond the ends of
// the coordinate are rejected.
func Value(v float64) ValueKey {
	return ValueKey{kind: valueSingle, values: []float64{v}}
}

// ValueLoc selects the index of v using loc.
func ValueLoc(v float64, loc Loc) ValueKey {
	return ValueKey{kind: valueSingle, values: []float64{v}, loc: loc}
}

// Values selects the indices closest to each value (List key).
func Values(values ...float64) ValueKey {
	return ValueKey{kind: valueList, values: append([]float64{}, values...)}
}

// Range selects the values within [vmin, vmax] (Slice key).
func Range(vmin, vmax float64) ValueKey {
	return ValueKey{kind: valueRange, vmin: vmin, vmax: vmax}
}

// RangeExclusive selects the values within (vmin, vmax).
func RangeExclusive(vmin, vmax float64) ValueKey {
	return ValueKey{kind: valueRange, vmin: vmin, vmax: vmax, exclude: true}
}

// Days selects every date of a time coordinate from the day of start to the
// day of stop.
func Days(start, stop time.Time) ValueKey {
	return ValueKey{kind: valueDays, days: [2]time.Time{start, stop}}
}

// Resolve turns the value key into an index key for c.
func (vk ValueKey) Resolve(c *Coord) (key.Key, error) {
	switch vk.kind {
	case valueSingle:
		if err := c.checkRange(vk.values[0]); err != nil {
			return key.Key{}, err
		}
		i, err := c.GetIndex(vk.values[0], vk.loc)
		if err != nil {
			return key.Key{}, err
		}
		return key.Int(i), nil
	case valueList:
		for _, v := range vk.values {
			if err := c.checkRange(v); err != nil {
				return key.Key{}, err
			}
		}
		idx, err := c.GetIndices(vk.values, vk.loc)
		if err != nil {
			return key.Key{}, err
		}
		return key.List(idx...), nil
	case valueRange:
		s, err := c.Subset(vk.vmin, vk.vmax, vk.exclude)
		if err != nil {
			return key.Key{}, err
		}
		return key.SliceKey(s), nil
	case valueDays:
		s, err := c.SubsetByDay(vk.days[0], vk.days[1])
		if err != nil {
			return key.Key{}, err
		}
		return key.SliceKey(s), nil
	}
	return key.Key{}, fmt.Errorf("%w: value key", key.ErrInvalidKey)
}

// checkRange fails if v lies beyond the first or last value by more than
// DefaultThreshold.
func (c *Coord) checkRange(v float64) error {
	if !c.HasData() {
		return fmt.Errorf("%s: %w", c.Name, ErrNoData)
	}
	asc := c.ascending()
	if v < asc[0]-DefaultThreshold || v > asc[len(asc)-1]+DefaultThreshold {
		return fmt.Errorf("%s = %s: %w [%s, %s]", c.Name, c.Format(v), ErrOutsideRange,
			c.Format(asc[0]), c.Format(asc[len(asc)-1]))
	}
	return nil
}

func (vk ValueKey) String() string {
	switch vk.kind {
	case valueSingle:
		return fmt.Sprint(vk.values[0])
	case valueList:
		return fmt.Sprint(vk.values)
	case valueRange:
		return fmt.Sprintf("%g:%g", vk.vmin, vk.vmax)
	}
	return vk.days[0].Format("2006-01-02") + ":" + vk.days[1].Format("2006-01-02")
}
