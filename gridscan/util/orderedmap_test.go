package util

import (
	"testing"
)

func TestNil(t *testing.T) {
	_, err := NewOrderedMap[int](nil, nil)
	if err != nil {
		t.Error(err)
		return
	}
	_, err = NewOrderedMap(nil, map[string]int{})
	if err != nil {
		t.Error(err)
		return
	}
	_, err = NewOrderedMap[int]([]string{}, nil)
	if err != nil {
		t.Error(err)
		return
	}
}

func TestMismatchedLength(t *testing.T) {
	_, err := NewOrderedMap([]string{"a", "b"},
		map[string]any{"a": nil})
	if err != ErrorKeysDontMatchValues {
		t.Error("Should have returned an error")
		return
	}
}

func TestMismatchedKeys(t *testing.T) {
	_, err := NewOrderedMap([]string{"a", "b"},
		map[string]any{"a": nil, "c": nil})
	if err != ErrorKeysDontMatchValues {
		t.Error("Should have returned an error")
		return
	}
}

func TestAdd(t *testing.T) {
	om := New[int]()
	om.Add("a", 1)
	om.Add("b", 2)
	om.Add("a", 3)
	val, has := om.Get("a")
	if !has {
		t.Error("Did not find expected key")
		return
	}
	if val != 3 {
		t.Error("Did not get expected value back")
		return
	}
	keys := om.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Error("Incorrect key order:", keys)
	}
}

func TestOrder(t *testing.T) {
	myMap := map[string]any{"a": nil, "b": nil, "c": nil}
	om, err := NewOrderedMap([]string{"c", "b", "a"}, myMap)
	if err != nil {
		t.Error(err)
		return
	}
	keys := om.Keys()
	if keys[0] != "c" || keys[1] != "b" || keys[2] != "a" {
		t.Error("Incorrect key order:", keys)
	}
}

func TestDelete(t *testing.T) {
	om := New[string]()
	om.Add("x", "1")
	om.Add("y", "2")
	om.Add("z", "3")
	if !om.Delete("y") {
		t.Error("Delete() did not find key")
		return
	}
	if om.Delete("y") {
		t.Error("Delete() found deleted key")
		return
	}
	keys := om.Keys()
	if len(keys) != 2 || keys[0] != "x" || keys[1] != "z" {
		t.Error("Delete() failed:", keys)
	}
}

func TestReorder(t *testing.T) {
	om := New[int]()
	om.Add("x", 1)
	om.Add("y", 2)
	if err := om.Reorder([]string{"y", "x"}); err != nil {
		t.Error(err)
		return
	}
	if om.Keys()[0] != "y" {
		t.Error("Reorder() failed:", om.Keys())
		return
	}
	if err := om.Reorder([]string{"y", "y"}); err != ErrorKeysDontMatchValues {
		t.Error("Reorder() accepted duplicates")
	}
	c := om.Copy()
	c.Add("w", 0)
	if om.Len() != 2 {
		t.Error("Copy() shares keys")
	}
}
