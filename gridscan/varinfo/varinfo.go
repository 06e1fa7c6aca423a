// Package varinfo keeps the variables of a dataset with their attributes,
// plus attributes of the dataset itself.
package varinfo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/batchatco/go-gridscan/gridscan/api"
	"github.com/batchatco/go-gridscan/gridscan/util"
)

var (
	ErrUnknownVariable = errors.New("unknown variable")
	ErrBadValue        = errors.New("attribute value not supported")
)

// AttrValue is the value of an attribute. It is one of String, Float, Int or
// Floats.
type AttrValue interface {
	// Any returns the Go value: string, float64, int64 or []float64.
	Any() any
	String() string
	cdlType() string
	goType() string
}

type (
	String string
	Float  float64
	Int    int64
	Floats []float64
)

func (v String) Any() any { return string(v) }
func (v Float) Any() any  { return float64(v) }
func (v Int) Any() any    { return int64(v) }
func (v Floats) Any() any { return append([]float64{}, v...) }

func (String) cdlType() string { return "string" }
func (Float) cdlType() string  { return "double" }
func (Int) cdlType() string    { return "int64" }
func (Floats) cdlType() string { return "double(*)" }

func (String) goType() string { return "string" }
func (Float) goType() string  { return "float64" }
func (Int) goType() string    { return "int64" }
func (Floats) goType() string { return "[]float64" }

func (v String) String() string { return string(v) }
func (v Float) String() string  { return fmt.Sprint(float64(v)) }
func (v Int) String() string    { return fmt.Sprint(int64(v)) }
func (v Floats) String() string { return fmt.Sprint([]float64(v)) }

// FromAny converts a value read from a file. Integer and float types of
// any width are accepted, as are slices of them.
func FromAny(v any) (AttrValue, error) {
	switch t := v.(type) {
	case AttrValue:
		return t, nil
	case string:
		return String(t), nil
	case []byte:
		return String(strings.TrimRight(string(t), "\x00")), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(t), nil
	case int8:
		return Int(t), nil
	case int16:
		return Int(t), nil
	case int32:
		return Int(t), nil
	case int64:
		return Int(t), nil
	case int:
		return Int(t), nil
	case uint16:
		return Int(t), nil
	case uint32:
		return Int(t), nil
	case []float64:
		return singleOrMany(t), nil
	case []float32:
		return singleOrMany(convert(t)), nil
	case []int8:
		return singleOrMany(convert(t)), nil
	case []int16:
		return singleOrMany(convert(t)), nil
	case []int32:
		return singleOrMany(convert(t)), nil
	case []int64:
		return singleOrMany(convert(t)), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrBadValue, v)
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

func convert[T number](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func singleOrMany(v []float64) AttrValue {
	if len(v) == 1 {
		return Float(v[0])
	}
	return Floats(append([]float64{}, v...))
}

// VariablesInfo is the registry of variable names, in order, with their
// attributes. It implements key.Namer.
type VariablesInfo struct {
	names  []string
	attrs  map[string]*util.OrderedMap[AttrValue]
	global *util.OrderedMap[AttrValue]
}

func New(names ...string) *VariablesInfo {
	vi := &VariablesInfo{
		attrs:  map[string]*util.OrderedMap[AttrValue]{},
		global: util.New[AttrValue](),
	}
	for _, n := range names {
		vi.AddVariable(n, nil)
	}
	return vi
}

// AddVariable adds a variable, or merges attrs into an existing one.
// Attributes are set in sorted key order.
func (vi *VariablesInfo) AddVariable(name string, attrs map[string]AttrValue) {
	om, has := vi.attrs[name]
	if !has {
		om = util.New[AttrValue]()
		vi.attrs[name] = om
		vi.names = append(vi.names, name)
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		om.Add(k, attrs[k])
	}
}

// RemoveVariable drops a variable and its attributes.
func (vi *VariablesInfo) RemoveVariable(name string) bool {
	if _, has := vi.attrs[name]; !has {
		return false
	}
	delete(vi.attrs, name)
	for i, n := range vi.names {
		if n == name {
			vi.names = append(vi.names[:i], vi.names[i+1:]...)
			break
		}
	}
	return true
}

func (vi *VariablesInfo) Variables() []string {
	return append([]string{}, vi.names...)
}

func (vi *VariablesInfo) Has(name string) bool {
	_, has := vi.attrs[name]
	return has
}

func (vi *VariablesInfo) Index(name string) (int, bool) {
	for i, n := range vi.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func (vi *VariablesInfo) NameAt(i int) (string, bool) {
	if i < 0 || i >= len(vi.names) {
		return "", false
	}
	return vi.names[i], true
}

func (vi *VariablesInfo) Len() int {
	return len(vi.names)
}

// SetAttr sets an attribute, adding the variable if needed.
func (vi *VariablesInfo) SetAttr(variable, attr string, v AttrValue) {
	if !vi.Has(variable) {
		vi.AddVariable(variable, nil)
	}
	vi.attrs[variable].Add(attr, v)
}

func (vi *VariablesInfo) GetAttr(variable, attr string) (AttrValue, bool) {
	om, has := vi.attrs[variable]
	if !has {
		return nil, false
	}
	return om.Get(attr)
}

// GetAttrDefault returns the attribute, or def if it is not set.
func (vi *VariablesInfo) GetAttrDefault(variable, attr string, def AttrValue) AttrValue {
	if v, has := vi.GetAttr(variable, attr); has {
		return v
	}
	return def
}

// Attributes returns a copy of the attributes of a variable.
func (vi *VariablesInfo) Attributes(variable string) (map[string]AttrValue, error) {
	om, has := vi.attrs[variable]
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, variable)
	}
	out := make(map[string]AttrValue, om.Len())
	for _, k := range om.Keys() {
		out[k], _ = om.Get(k)
	}
	return out, nil
}

// SetInfo sets a dataset attribute.
func (vi *VariablesInfo) SetInfo(name string, v AttrValue) {
	vi.global.Add(name, v)
}

func (vi *VariablesInfo) GetInfo(name string) (AttrValue, bool) {
	return vi.global.Get(name)
}

// Infos lists the dataset attributes.
func (vi *VariablesInfo) Infos() []string {
	return vi.global.Keys()
}

// AttributeMap returns the attributes of a variable for a backend writer.
func (vi *VariablesInfo) AttributeMap(variable string) (api.AttributeMap, error) {
	om, has := vi.attrs[variable]
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, variable)
	}
	return attrMap{om}, nil
}

// GlobalMap returns the dataset attributes for a backend writer.
func (vi *VariablesInfo) GlobalMap() api.AttributeMap {
	return attrMap{vi.global}
}

// FromAttributeMap converts attributes read by a backend. Values of
// unsupported types are skipped and reported in the error.
func FromAttributeMap(am api.AttributeMap) (map[string]AttrValue, error) {
	out := map[string]AttrValue{}
	if am == nil {
		return out, nil
	}
	var bad []string
	for _, k := range am.Keys() {
		raw, _ := am.Get(k)
		v, err := FromAny(raw)
		if err != nil {
			bad = append(bad, k)
			continue
		}
		out[k] = v
	}
	if len(bad) > 0 {
		return out, fmt.Errorf("%w: %s", ErrBadValue, strings.Join(bad, ", "))
	}
	return out, nil
}

func (vi *VariablesInfo) Copy() *VariablesInfo {
	c := &VariablesInfo{
		names:  vi.Variables(),
		attrs:  make(map[string]*util.OrderedMap[AttrValue], len(vi.attrs)),
		global: vi.global.Copy(),
	}
	for n, om := range vi.attrs {
		c.attrs[n] = om.Copy()
	}
	return c
}

func (vi *VariablesInfo) String() string {
	var b strings.Builder
	for _, n := range vi.names {
		b.WriteString(n)
		om := vi.attrs[n]
		for _, k := range om.Keys() {
			v, _ := om.Get(k)
			fmt.Fprintf(&b, "\n    %s: %v", k, v)
		}
		b.WriteString("\n")
	}
	return b.String()
}

type attrMap struct {
	om *util.OrderedMap[AttrValue]
}

func (a attrMap) Keys() []string {
	return a.om.Keys()
}

func (a attrMap) Get(key string) (any, bool) {
	v, has := a.om.Get(key)
	if !has {
		return nil, false
	}
	return v.Any(), true
}

func (a attrMap) GetType(key string) (string, bool) {
	v, has := a.om.Get(key)
	if !has {
		return "", false
	}
	return v.cdlType(), true
}

func (a attrMap) GetGoType(key string) (string, bool) {
	v, has := a.om.Get(key)
	if !has {
		return "", false
	}
	return v.goType(), true
}
