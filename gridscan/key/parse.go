package key

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a key written as on a command line: "3", "1,4,7", "0:10:2",
// ":" (everything), "sst" or "sst,chl" (names).
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == ":" {
		return All(), nil
	}
	if strings.Contains(s, ":") {
		return parseSlice(s)
	}
	parts := strings.Split(s, ",")
	if len(parts) == 1 {
		if i, err := strconv.Atoi(s); err == nil {
			return Int(i), nil
		}
		return Name(s), nil
	}
	elts := make([]any, len(parts))
	for j, p := range parts {
		p = strings.TrimSpace(p)
		if i, err := strconv.Atoi(p); err == nil {
			elts[j] = i
		} else {
			elts[j] = p
		}
	}
	return New(elts)
}

func parseSlice(s string) (Key, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	var bounds [3]Bound
	allInts := true
	for j, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		i, err := strconv.Atoi(p)
		if err != nil {
			allInts = false
			continue
		}
		bounds[j] = At(i)
	}
	if !allInts {
		if len(parts) != 2 {
			return Key{}, fmt.Errorf("%w: name slices take no step: %q", ErrInvalidKey, s)
		}
		return NameSlice(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])), nil
	}
	sl, err := NewSlice(bounds[0], bounds[1], bounds[2])
	if err != nil {
		return Key{}, err
	}
	return SliceKey(sl), nil
}

// ParseKeyring reads "dim=key" pairs.
func ParseKeyring(pairs []string) (*Keyring, error) {
	kr := NewKeyring()
	for _, p := range pairs {
		dim, val, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected dim=key, got %q", ErrInvalidKey, p)
		}
		k, err := Parse(val)
		if err != nil {
			return nil, fmt.Errorf("dimension %s: %w", dim, err)
		}
		kr.SetKey(strings.TrimSpace(dim), k)
	}
	return kr, nil
}
