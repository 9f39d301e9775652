// util/generic_test.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"maps"
	"slices"
	"testing"
)

func TestMapSlice(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	b := MapSlice[int, float64](a, func(i int) float64 { return 2 * float64(i) })
	if len(a) != len(b) {
		t.Errorf("lengths mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if float64(2*a[i]) != b[i] {
			t.Errorf("value %d mismatch %f vs %f", i, float64(2*a[i]), b[i])
		}
	}
}

func TestDeleteSliceElement(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	a = DeleteSliceElement(a, 2)
	if !slices.Equal(a, []int{1, 2, 4, 5}) {
		t.Errorf("Slice element delete incorrect")
	}
	a = DeleteSliceElement(a, 3)
	if !slices.Equal(a, []int{1, 2, 4}) {
		t.Errorf("Slice element delete incorrect")
	}
	a = DeleteSliceElement(a, 0)
	if !slices.Equal(a, []int{2, 4}) {
		t.Errorf("Slice element delete incorrect")
	}
	a = DeleteSliceElement(a, 1)
	if !slices.Equal(a, []int{2}) {
		t.Errorf("Slice element delete incorrect")
	}
	a = DeleteSliceElement(a, 0)
	if !slices.Equal(a, nil) {
		t.Errorf("Slice element delete incorrect")
	}
}

func TestInsertSliceElement(t *testing.T) {
	a := []int{1, 2, 4, 5}
	a = InsertSliceElement(a, 2, 3)
	if !slices.Equal(a, []int{1, 2, 3, 4, 5}) {
		t.Errorf("Slice insert incorrect: %+v", a)
	}

	a = InsertSliceElement(a, 0, 0)
	if !slices.Equal(a, []int{0, 1, 2, 3, 4, 5}) {
		t.Errorf("Slice insert incorrect: %+v", a)
	}

	a = InsertSliceElement(a, 6, 6)
	if !slices.Equal(a, []int{0, 1, 2, 3, 4, 5, 6}) {
		t.Errorf("Slice insert incorrect: %+v", a)
	}
}

func TestFilterSlice(t *testing.T) {
	b := FilterSlice([]int{1, 2, 3, 4, 5}, func(i int) bool { return i%2 == 0 })
	if len(b) != 2 || b[0] != 2 || b[1] != 4 {
		t.Errorf("filter evens failed: %+v", b)
	}

	odd := FilterSlice([]int{1, 2, 3, 4, 5}, func(i int) bool { return i%2 == 1 })
	if len(odd) != 3 || odd[0] != 1 || odd[1] != 3 || odd[2] != 5 {
		t.Errorf("filter odds failed: %+v", b)
	}

	c := FilterSlice([]int{1, 2, 3, 4, 5}, func(i int) bool { return i >= 3 })
	if len(c) != 3 || c[0] != 3 || c[1] != 4 || c[2] != 5 {
		t.Errorf("filter >=3 failed: %+v", c)
	}
}

func TestFilterSliceInPlace(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	b := FilterSliceInPlace(a, func(i int) bool { return i%2 == 0 })
	if len(b) != 2 || b[0] != 2 || b[1] != 4 {
		t.Errorf("filter evens failed: %+v", b)
	}
	if a[0] != 2 || a[1] != 4 {
		t.Errorf("in place didn't reuse memory")
	}
}

func TestReduceSlice(t *testing.T) {
	v := []int{1, -2, 3, 4}

	if r := ReduceSlice(v, func(v int, r int) int { return v + r }, 10); r != 16 {
		t.Errorf("ReduceSlice with + got %d, not 16 expected", r)
	}

	if r := ReduceSlice(v, func(v int, r int) int { return v * r }, 2); r != -48 {
		t.Errorf("ReduceSlice with * got %d, not -48 expected", r)
	}
}

func TestSingleOrArrayJSON(t *testing.T) {
	type test struct {
		json   string
		expect []int
		err    bool
	}
	for _, c := range []test{
		test{json: "null", expect: []int{}},
		test{json: "1234", expect: []int{1234}},
		test{json: "[ 1, 4, 9]", expect: []int{1, 4, 9}},
		test{json: "hai", err: true},
		test{json: `{ "foo": 12 }`, err: true},
	} {
		var s SingleOrArray[int]
		err := s.UnmarshalJSON([]byte(c.json))
		if err != nil && c.err == false {
			t.Errorf("Unexpected error %q -> %v", c.json, err)
		} else if err == nil && c.err == true {
			t.Errorf("Expected error for %q but got none", c.json)
		}

		if slices.Compare(s, c.expect) != 0 {
			t.Errorf("Decode mismatch: %q gave %v expected %v", c.json, s, c.expect)
		}
	}
}

func TestSortedMapKeys(t *testing.T) {
	m := map[int]string{
		3: "three",
		1: "one",
		2: "two",
		4: "four",
	}

	keys := SortedMapKeys(m)
	expected := []int{1, 2, 3, 4}

	if !slices.Equal(keys, expected) {
		t.Errorf("SortedMapKeys returned %v, expected %v", keys, expected)
	}
}

func TestSortedMap(t *testing.T) {
	m := map[string]int{"c": 3, "a": 1, "b": 2}

	var keys []string
	var values []int
	for k, v := range SortedMap(m) {
		keys = append(keys, k)
		values = append(values, v)
	}

	if !slices.Equal(keys, []string{"a", "b", "c"}) {
		t.Errorf("SortedMap keys out of order: %v", keys)
	}
	if !slices.Equal(values, []int{1, 2, 3}) {
		t.Errorf("SortedMap values out of order: %v", values)
	}
}

func TestDuplicateMap(t *testing.T) {
	original := map[string]int{
		"a": 1,
		"b": 2,
		"c": 3,
	}

	duplicate := DuplicateMap(original)

	// Check that the maps are equal
	if !maps.Equal(original, duplicate) {
		t.Error("DuplicateMap should create an identical map")
	}

	// Check that modifying the duplicate doesn't affect the original
	duplicate["d"] = 4
	if maps.Equal(original, duplicate) {
		t.Error("Modifying duplicate should not affect original")
	}
}

func TestMapContains(t *testing.T) {
	m := map[string]int{
		"a": 1,
		"b": 2,
		"c": 3,
	}

	if !MapContains(m, func(k string, v int) bool { return v > 2 }) {
		t.Error("MapContains should find value > 2")
	}

	if MapContains(m, func(k string, v int) bool { return k == "d" }) {
		t.Error("MapContains should not find key \"d\"")
	}
}
