package coord

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-gridscan/gridscan/key"
)

// Str is an ordered list of unique names, used for the variable dimension.
// It implements key.Namer.
type Str struct {
	Name  string
	names []string
	index map[string]int
}

func NewStr(name string, names []string) (*Str, error) {
	s := &Str{Name: name}
	if err := s.UpdateValues(names); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Str) UpdateValues(names []string) error {
	index := make(map[string]int, len(names))
	for i, n := range names {
		if _, has := index[n]; has {
			return fmt.Errorf("%s: %w: %s", s.Name, ErrDuplicate, n)
		}
		index[n] = i
	}
	s.names = append([]string{}, names...)
	s.index = index
	return nil
}

func (s *Str) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

func (s *Str) NameAt(i int) (string, bool) {
	if i < 0 || i >= len(s.names) {
		return "", false
	}
	return s.names[i], true
}

func (s *Str) Len() int         { return len(s.names) }
func (s *Str) Size() int        { return len(s.names) }
func (s *Str) HasData() bool    { return len(s.names) > 0 }
func (s *Str) Values() []string { return append([]string{}, s.names...) }

func (s *Str) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Append adds names at the end.
func (s *Str) Append(names ...string) error {
	return s.UpdateValues(append(s.Values(), names...))
}

// Remove drops a name if present.
func (s *Str) Remove(name string) {
	if !s.Has(name) {
		return
	}
	out := make([]string, 0, len(s.names)-1)
	for _, n := range s.names {
		if n != name {
			out = append(out, n)
		}
	}
	s.UpdateValues(out)
}

// Slice keeps the names selected by k, positional or by name.
func (s *Str) Slice(k key.Key) error {
	names, err := key.Apply(k, s.names)
	if err != nil {
		return fmt.Errorf("slicing %s: %w", s.Name, err)
	}
	return s.UpdateValues(names)
}

func (s *Str) Copy() *Str {
	c, _ := NewStr(s.Name, s.names)
	return c
}

func (s *Str) Empty() {
	s.names = nil
	s.index = map[string]int{}
}

func (s *Str) String() string {
	return s.Name + ": " + strings.Join(s.names, ", ")
}
