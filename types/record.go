/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package types defines the core value and record model shared across the
// engine: an insertion-order-preserving Record (the JSON-like map every
// pipeline stage consumes) and the dynamic Value it carries.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Value is the dynamic JSON-like value carried by a Record: nil, bool,
// float64, string, []interface{} or *Record. Numbers are always float64;
// the engine never enforces stricter numeric types than the host's double
// semantics.
type Value = interface{}

// Record is an opaque, insertion-order-preserving string-keyed map. Order
// matters: `select`'s `...*` spread must reproduce the input's field order
// followed by newly added fields, so a plain Go map (unordered) cannot be
// used as the wire representation.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// RecordFromMap builds a record from a plain Go map. Since map iteration
// order is undefined, keys are sorted for determinism; callers that need a
// specific order should build the Record with Set calls instead.
func RecordFromMap(m map[string]Value) *Record {
	r := NewRecord()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.Set(k, m[k])
	}
	return r
}

// Get returns the value stored at key and whether it was present.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Set stores value at key, appending key to the order if it is new.
func (r *Record) Set(key string, value Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Delete removes key, preserving the relative order of the remaining keys.
func (r *Record) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone returns an independent deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := NewRecord()
	for _, k := range r.keys {
		out.Set(k, CloneValue(r.values[k]))
	}
	return out
}

// Range iterates fields in insertion order, stopping early if fn returns false.
func (r *Record) Range(fn func(key string, value Value) bool) {
	if r == nil {
		return
	}
	for _, k := range r.keys {
		if !fn(k, r.values[k]) {
			return
		}
	}
}

// CloneValue deep-copies a Value, recursing into arrays, maps and records.
func CloneValue(v Value) Value {
	switch x := v.(type) {
	case *Record:
		return x.Clone()
	case map[string]Value:
		out := make(map[string]Value, len(x))
		for k, val := range x {
			out[k] = CloneValue(val)
		}
		return out
	case []Value:
		out := make([]Value, len(x))
		for i, val := range x {
			out[i] = CloneValue(val)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON renders the record as a compact JSON object, preserving field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object. Top-level keys keep the order they
// appear in the text; nested objects get their keys sorted alphabetically.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("types: expected JSON object")
	}
	*r = *NewRecord()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		r.Set(key, normalizeJSON(raw))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func normalizeJSON(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		f, _ := x.Float64()
		return f
	case map[string]interface{}:
		rec := NewRecord()
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rec.Set(k, normalizeJSON(x[k]))
		}
		return rec
	case []interface{}:
		out := make([]Value, len(x))
		for i, e := range x {
			out[i] = normalizeJSON(e)
		}
		return out
	default:
		return v
	}
}

// SortedKeysDeep returns a deep copy of value with every nested record's
// keys sorted alphabetically — used by the assertion sink so
// comparisons are insensitive to field order.
func SortedKeysDeep(v Value) Value {
	switch x := v.(type) {
	case *Record:
		keys := x.Keys()
		sort.Strings(keys)
		out := NewRecord()
		for _, k := range keys {
			val, _ := x.Get(k)
			out.Set(k, SortedKeysDeep(val))
		}
		return out
	case []Value:
		out := make([]Value, len(x))
		for i, e := range x {
			out[i] = SortedKeysDeep(e)
		}
		return out
	default:
		return v
	}
}
