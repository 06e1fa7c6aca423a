package util

import (
	"errors"
	"sort"
)

// OrderedMap is a map that remembers insertion order. Iteration order is
// significant for keyrings (axis order) and attributes (write order).
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

var (
	ErrorKeysDontMatchValues = errors.New("keys don't match values")
)

func NewOrderedMap[V any](keys []string, values map[string]V) (*OrderedMap[V], error) {
	if len(keys) != len(values) {
		return nil, ErrorKeysDontMatchValues
	}
	mapKeys := make([]string, 0, len(values))
	for k := range values {
		mapKeys = append(mapKeys, k)
	}
	sort.Strings(mapKeys)

	sortedKeys := make([]string, len(keys))
	copy(sortedKeys, keys)
	sort.Strings(sortedKeys)

	for i := range sortedKeys {
		if mapKeys[i] != sortedKeys[i] {
			return nil, ErrorKeysDontMatchValues
		}
	}
	om := &OrderedMap[V]{
		keys:   append([]string{}, keys...),
		values: make(map[string]V, len(values)),
	}
	for k, v := range values {
		om.values[k] = v
	}
	return om, nil
}

// New returns an empty map.
func New[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: map[string]V{}}
}

// Add inserts or replaces a value. A replaced key keeps its position.
func (om *OrderedMap[V]) Add(name string, val V) {
	if _, has := om.values[name]; !has {
		om.keys = append(om.keys, name)
	}
	om.values[name] = val
}

func (om *OrderedMap[V]) Get(key string) (val V, has bool) {
	val, has = om.values[key]
	return
}

func (om *OrderedMap[V]) Has(key string) bool {
	_, has := om.values[key]
	return has
}

// Delete removes key and reports whether it was present.
func (om *OrderedMap[V]) Delete(key string) bool {
	if _, has := om.values[key]; !has {
		return false
	}
	delete(om.values, key)
	for i, k := range om.keys {
		if k == key {
			om.keys = append(om.keys[:i:i], om.keys[i+1:]...)
			break
		}
	}
	return true
}

func (om *OrderedMap[V]) Keys() []string {
	return append([]string{}, om.keys...)
}

func (om *OrderedMap[V]) Len() int {
	return len(om.keys)
}

// Reorder sets the key order. keys must be a permutation of the current keys.
func (om *OrderedMap[V]) Reorder(keys []string) error {
	if len(keys) != len(om.keys) {
		return ErrorKeysDontMatchValues
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, has := om.values[k]; !has || seen[k] {
			return ErrorKeysDontMatchValues
		}
		seen[k] = true
	}
	om.keys = append([]string{}, keys...)
	return nil
}

// Copy is shallow with respect to the values.
func (om *OrderedMap[V]) Copy() *OrderedMap[V] {
	c := &OrderedMap[V]{
		keys:   append([]string{}, om.keys...),
		values: make(map[string]V, len(om.values)),
	}
	for k, v := range om.values {
		c.values[k] = v
	}
	return c
}
