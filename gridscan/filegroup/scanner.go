package filegroup

import (
	"strconv"
	"strings"
	"time"

	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/key"
	"github.com/batchatco/go-gridscan/gridscan/varinfo"
	pkgerrors "github.com/pkg/errors"
)

// Match is a matcher with the text it matched in a filename.
type Match struct {
	*Matcher
	Text string
}

// Elements are what scanners find in one file. Scanners run in the order
// they were added; each receives the elements found so far and returns the
// ones it sets, nil fields being left untouched.
type Elements struct {
	Values  []float64
	InIdx   []int
	Names   []string
	InNames []string
}

func (e *Elements) update(o *Elements) {
	if o == nil {
		return
	}
	if o.Values != nil {
		e.Values = o.Values
	}
	if o.InIdx != nil {
		e.InIdx = o.InIdx
	}
	if o.Names != nil {
		e.Names = o.Names
	}
	if o.InNames != nil {
		e.InNames = o.InNames
	}
}

func (e *Elements) first() any {
	if len(e.Names) > 0 {
		return e.Names[0]
	}
	return e.Values[0]
}

// FilenameScanner finds values in the text matched in a filename.
type FilenameScanner interface {
	ScanFilename(cs *CoordScan, matches []Match, prev *Elements) (*Elements, error)
}

// InFileScanner finds values inside a file.
type InFileScanner interface {
	ScanInFile(cs *CoordScan, f api.File, prev *Elements) (*Elements, error)
}

// AttributeScanner finds attributes of a coordinate inside a file. The
// "units" attribute sets the units of the values found.
type AttributeScanner interface {
	ScanAttributes(cs *CoordScan, f api.File) (map[string]varinfo.AttrValue, error)
}

// InfoScanner finds attributes of variables or of the dataset.
type InfoScanner interface {
	ScanInfos(fg *Filegroup, f api.File, vi *varinfo.VariablesInfo) error
}

var months = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

func monthNumber(name string) (int, bool) {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0, false
	}
	for i, m := range months {
		if strings.HasPrefix(name, m) {
			return i + 1, true
		}
	}
	return 0, false
}

// DateFromMatches builds a date from the elements matched for the
// coordinate, which must be a time coordinate. Elements absent from the
// filename are taken from Default, 1970-01-01 12:00:00 when zero.
type DateFromMatches struct {
	Default time.Time
}

func (s DateFromMatches) ScanFilename(cs *CoordScan, matches []Match, _ *Elements) (*Elements, error) {
	def := s.Default
	if def.IsZero() {
		def = time.Date(1970, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	year, month, day := def.Date()
	hour, minute, sec := def.Clock()
	doy := 0
	elts := map[string]string{}
	for _, m := range matches {
		if !m.Dummy {
			elts[m.Elt] = m.Text
		}
	}
	if x, ok := elts["x"]; ok && len(x) == 8 {
		elts["Y"], elts["m"], elts["d"] = x[:4], x[4:6], x[6:]
	}
	if x, ok := elts["X"]; ok && len(x) >= 4 {
		elts["H"], elts["min"] = x[:2], x[2:4]
		if len(x) >= 6 {
			elts["S"] = x[4:6]
		}
	}
	var err error
	atoi := func(name string, dst *int) {
		v, ok := elts[name]
		if !ok || err != nil {
			return
		}
		var n int
		n, err = strconv.Atoi(v)
		if err != nil {
			err = pkgerrors.Wrapf(err, "element %s", name)
			return
		}
		*dst = n
	}
	atoi("Y", &year)
	if yy, ok := elts["yy"]; ok && err == nil {
		var n int
		n, err = strconv.Atoi(yy)
		year = 1900 + n
		if n < 50 {
			year = 2000 + n
		}
	}
	mon := int(month)
	atoi("m", &mon)
	atoi("mm", &mon)
	for _, name := range []string{"M", "B"} {
		if v, ok := elts[name]; ok {
			if n, found := monthNumber(v); found {
				mon = n
			}
		}
	}
	atoi("d", &day)
	atoi("dd", &day)
	atoi("doy", &doy)
	atoi("j", &doy)
	atoi("H", &hour)
	atoi("min", &minute)
	atoi("S", &sec)
	if err != nil {
		return nil, err
	}
	date := time.Date(year, time.Month(mon), day, hour, minute, sec, 0, time.UTC)
	if doy > 0 {
		date = time.Date(year, 1, 1, hour, minute, sec, 0, time.UTC).AddDate(0, 0, doy-1)
	}
	values, err := cs.Coord().DateToNum(date)
	if err != nil {
		return nil, err
	}
	return &Elements{Values: values}, nil
}

// ValueFromMatches parses the first non-dummy match as a number.
type ValueFromMatches struct{}

func (ValueFromMatches) ScanFilename(cs *CoordScan, matches []Match, _ *Elements) (*Elements, error) {
	for _, m := range matches {
		if m.Dummy {
			continue
		}
		v, err := strconv.ParseFloat(m.Text, 64)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "%s", m.Elt)
		}
		return &Elements{Values: []float64{v}}, nil
	}
	return nil, pkgerrors.Wrapf(ErrNoMatcher, "%s has no matcher", cs.Name)
}

// StringFromMatches takes the first non-dummy match as a name, for the
// variable dimension. InNames maps the name to the in-file name; names
// are kept when it is nil or lacks the name.
type StringFromMatches struct {
	InNames map[string]string
}

func (s StringFromMatches) ScanFilename(cs *CoordScan, matches []Match, _ *Elements) (*Elements, error) {
	for _, m := range matches {
		if m.Dummy {
			continue
		}
		in, ok := s.InNames[m.Text]
		if !ok {
			in = m.Text
		}
		return &Elements{Names: []string{m.Text}, InNames: []string{in}}, nil
	}
	return nil, pkgerrors.Wrapf(ErrNoMatcher, "%s has no matcher", cs.Name)
}

// InFileValues reads the values of the coordinate variable of the file.
type InFileValues struct{}

func (InFileValues) ScanInFile(cs *CoordScan, f api.File, _ *Elements) (*Elements, error) {
	a, err := f.Read(cs.InName, key.NewKeyring())
	if err != nil {
		return nil, err
	}
	values := append([]float64{}, a.Data()...)
	return &Elements{Values: values, InIdx: identity(len(values))}, nil
}

// InFileVariables lists the variables of the file that are not
// coordinates. Skip lists other variables to leave out.
type InFileVariables struct {
	Skip []string
}

func (s InFileVariables) ScanInFile(cs *CoordScan, f api.File, _ *Elements) (*Elements, error) {
	skip := map[string]bool{}
	for _, d := range f.Dimensions() {
		skip[d] = true
	}
	for _, n := range s.Skip {
		skip[n] = true
	}
	var names []string
	for _, v := range f.Variables() {
		if !skip[v] {
			names = append(names, v)
		}
	}
	return &Elements{Names: names, InNames: names}, nil
}

// UnitsFromFile reads the units attribute of the coordinate variable.
type UnitsFromFile struct{}

func (UnitsFromFile) ScanAttributes(cs *CoordScan, f api.File) (map[string]varinfo.AttrValue, error) {
	attrs, err := f.VarAttributes(cs.InName)
	if err != nil {
		return nil, err
	}
	out := map[string]varinfo.AttrValue{}
	if attrs == nil {
		return out, nil
	}
	if v, has := attrs.Get("units"); has {
		units, err := varinfo.FromAny(v)
		if err != nil {
			return nil, err
		}
		out["units"] = units
	}
	return out, nil
}

// VariableAttributes copies the attributes of the variables of the
// filegroup found in the file.
type VariableAttributes struct{}

func (VariableAttributes) ScanInfos(fg *Filegroup, f api.File, vi *varinfo.VariablesInfo) error {
	vcs := fg.Var()
	present := map[string]bool{}
	for _, v := range f.Variables() {
		present[v] = true
	}
	names, inNames := vcs.Names(), vcs.InNames()
	for i, name := range names {
		if !present[inNames[i]] {
			continue
		}
		am, err := f.VarAttributes(inNames[i])
		if err != nil {
			return err
		}
		attrs, err := varinfo.FromAttributeMap(am)
		if err != nil {
			logger.Warnf("%s: %v", name, err)
		}
		for k, v := range attrs {
			if _, has := vi.GetAttr(name, k); !has {
				vi.SetAttr(name, k, v)
			}
		}
	}
	return nil
}

// GlobalAttributes copies the attributes of the file to the dataset.
type GlobalAttributes struct{}

func (GlobalAttributes) ScanInfos(fg *Filegroup, f api.File, vi *varinfo.VariablesInfo) error {
	attrs, err := varinfo.FromAttributeMap(f.Attributes())
	if err != nil {
		logger.Warnf("%s: %v", fg.Name, err)
	}
	for k, v := range attrs {
		if _, has := vi.GetInfo(k); !has {
			vi.SetInfo(k, v)
		}
	}
	return nil
}
