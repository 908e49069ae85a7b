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

package types

import "google.golang.org/protobuf/types/known/structpb"

// ToPlainJSON renders v as a plain Go value built only from the subset
// encoding/json and structpb.NewStruct accept (map[string]interface{},
// []interface{}, float64, string, bool, nil) — the counterpart of
// normalizeJSON, which widens in the opposite direction. Used wherever a
// Record needs to cross into a library that only understands bare
// interface{} trees: structpb (ToStruct) and jsonpath (functions' `jsonpath`
// builtin).
func ToPlainJSON(v Value) interface{} {
	switch x := v.(type) {
	case *Record:
		m := make(map[string]interface{}, x.Len())
		x.Range(func(key string, val Value) bool {
			m[key] = ToPlainJSON(val)
			return true
		})
		return m
	case []Value:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = ToPlainJSON(e)
		}
		return out
	default:
		return x
	}
}

// ToStruct renders r as a google.protobuf.Struct, the wire shape a gRPC or
// other protobuf-based transport (outside this core's scope) would carry a
// Record over. Used by sketch.AsStruct for serializing sketch state.
func (r *Record) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(ToPlainJSON(r).(map[string]interface{}))
}

// FromPlainJSON widens a bare interface{} tree (as returned by jsonpath.Get,
// or any other library that speaks plain Go JSON types) back into a Value
// tree of *Record/[]Value, reusing UnmarshalJSON's normalization rule.
func FromPlainJSON(v interface{}) Value {
	return normalizeJSON(v)
}

// RecordFromStruct rebuilds a Record from a google.protobuf.Struct,
// reusing the same JSON-shaped normalization UnmarshalJSON applies. A
// Struct's fields are a map, so the rebuilt Record and every nested record
// have their keys in alphabetical order, not the original field order.
func RecordFromStruct(s *structpb.Struct) *Record {
	normalized := normalizeJSON(s.AsMap())
	rec, ok := normalized.(*Record)
	if !ok {
		return NewRecord()
	}
	return rec
}
