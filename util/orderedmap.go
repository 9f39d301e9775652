// util/orderedmap.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"github.com/iancoleman/orderedmap"
)

// OrderedMap wraps orderedmap.OrderedMap so that JSON objects whose
// iteration order matters (e.g., hold groups that are displayed in the
// order they are defined in configuration files) don't lose their order
// when unmarshaled, the way they would with a regular Go map.
type OrderedMap struct {
	orderedmap.OrderedMap
}

func NewOrderedMap() OrderedMap {
	return OrderedMap{*orderedmap.New()}
}

// CheckJSON implements the JSONChecker interface; any JSON object is
// acceptable for an OrderedMap since values are stored as interface{}.
func (o OrderedMap) CheckJSON(json interface{}) bool {
	_, ok := json.(map[string]interface{})
	return ok
}

// GetStrings returns the value for the given key cast to a slice of
// strings; JSON arrays unmarshal as []interface{}, so this takes care of
// the per-element conversion.
func (o *OrderedMap) GetStrings(key string) ([]string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	var s []string
	for _, e := range arr {
		str, ok := e.(string)
		if !ok {
			return nil, false
		}
		s = append(s, str)
	}
	return s, true
}
