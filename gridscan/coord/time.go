package coord

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/batchatco/go-gridscan/gridscan/key"
)

// CFUnits are time units of the form "<unit> since <reference date>".
type CFUnits struct {
	Unit    time.Duration
	Epoch   time.Time
	literal string
}

var unitNames = map[string]time.Duration{
	"seconds": time.Second, "second": time.Second, "secs": time.Second, "sec": time.Second, "s": time.Second,
	"minutes": time.Minute, "minute": time.Minute, "mins": time.Minute, "min": time.Minute,
	"hours": time.Hour, "hour": time.Hour, "hrs": time.Hour, "h": time.Hour,
	"days": 24 * time.Hour, "day": 24 * time.Hour, "d": 24 * time.Hour,
}

var epochLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-1-2 15:4:5",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2",
}

// ParseUnits parses CF time units.
func ParseUnits(units string) (*CFUnits, error) {
	unit, ref, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadUnits, units)
	}
	d, ok := unitNames[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown time unit %q", ErrBadUnits, unit)
	}
	ref = strings.TrimSpace(ref)
	ref = strings.TrimSuffix(ref, " UTC")
	for _, layout := range epochLayouts {
		if t, err := time.ParseInLocation(layout, ref, time.UTC); err == nil {
			return &CFUnits{Unit: d, Epoch: t, literal: units}, nil
		}
	}
	return nil, fmt.Errorf("%w: reference date %q", ErrBadUnits, ref)
}

func (u *CFUnits) String() string {
	return u.literal
}

// ToNum converts a date to a value in these units.
func (u *CFUnits) ToNum(t time.Time) float64 {
	secs := float64(t.Unix()-u.Epoch.Unix()) + float64(t.Nanosecond()-u.Epoch.Nanosecond())/1e9
	return secs / u.Unit.Seconds()
}

// ToTime converts a value in these units to a date.
func (u *CFUnits) ToTime(v float64) time.Time {
	secs := v * u.Unit.Seconds()
	whole := math.Floor(secs)
	nanos := math.Round((secs - whole) * 1e9)
	return time.Unix(u.Epoch.Unix()+int64(whole), int64(nanos)+int64(u.Epoch.Nanosecond())).UTC()
}

// NewTime returns a time coordinate with CF units.
func NewTime(name string, values []float64, units string) (*Coord, error) {
	cf, err := ParseUnits(units)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c, err := New(name, values, units)
	if err != nil {
		return nil, err
	}
	c.cf = cf
	return c, nil
}

// CF returns the time units of a time coordinate.
func (c *Coord) CF() (*CFUnits, bool) {
	return c.cf, c.cf != nil
}

// DateToNum converts dates into the coordinate units.
func (c *Coord) DateToNum(dates ...time.Time) ([]float64, error) {
	if c.cf == nil {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrNotTime)
	}
	out := make([]float64, len(dates))
	for i, t := range dates {
		out[i] = c.cf.ToNum(t)
	}
	return out, nil
}

// NumToDate converts values in the coordinate units into dates.
func (c *Coord) NumToDate(values ...float64) ([]time.Time, error) {
	if c.cf == nil {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrNotTime)
	}
	out := make([]time.Time, len(values))
	for i, v := range values {
		out[i] = c.cf.ToTime(v)
	}
	return out, nil
}

// IndexToDate returns the date at index i.
func (c *Coord) IndexToDate(i int) (time.Time, error) {
	d, err := c.NumToDate(c.values[i])
	if err != nil {
		return time.Time{}, err
	}
	return d[0], nil
}

// GetIndexDate is GetIndex for a date.
func (c *Coord) GetIndexDate(t time.Time, loc Loc) (int, error) {
	v, err := c.DateToNum(t)
	if err != nil {
		return 0, err
	}
	return c.GetIndex(v[0], loc)
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// GetIndexByDay returns the index of the first value falling on the day of t.
func (c *Coord) GetIndexByDay(t time.Time) (int, error) {
	s, err := c.SubsetByDay(t, t)
	if err != nil {
		return 0, err
	}
	return s.Start.V, nil
}

// SubsetByDay selects every value from the day of start to the day of stop,
// both days included.
func (c *Coord) SubsetByDay(start, stop time.Time) (key.Slice, error) {
	if c.cf == nil {
		return key.Slice{}, fmt.Errorf("%s: %w", c.Name, ErrNotTime)
	}
	lo, _ := dayBounds(start)
	_, hi := dayBounds(stop)
	return c.subset(c.cf.ToNum(lo), c.cf.ToNum(hi), false, true)
}

// ChangeUnits converts values expressed in the CF units from into the
// units of the coordinate.
func (c *Coord) ChangeUnits(values []float64, from string) ([]float64, error) {
	if c.cf == nil {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrNotTime)
	}
	src, err := ParseUnits(from)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = c.cf.ToNum(src.ToTime(v))
	}
	return out, nil
}

// IterMonths splits the coordinate into runs of consecutive indices falling
// in the same month.
func (c *Coord) IterMonths() ([][]int, error) {
	dates, err := c.NumToDate(c.values...)
	if err != nil {
		return nil, err
	}
	var out [][]int
	for i, d := range dates {
		if i == 0 || d.Month() != dates[i-1].Month() || d.Year() != dates[i-1].Year() {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], i)
	}
	return out, nil
}
