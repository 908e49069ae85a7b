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

import (
	"math"

	"github.com/spf13/cast"
)

// IsNumeric reports whether v can be coerced to a float64.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// ToFloat coerces v to float64 using the cast package, returning
// (0, false) for values that are not numeric. Aggregators that ignore
// non-numeric values rely on this.
func ToFloat(v Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if !IsNumeric(v) {
		return 0, false
	}
	return cast.ToFloat64(v), true
}

// Equal implements JSON-type value-equality for the `eq`/`ne` scalar
// functions: numbers compare numerically, everything else
// compares structurally.
func Equal(a, b Value) bool {
	if IsNumeric(a) && IsNumeric(b) {
		af, _ := ToFloat(a)
		bf, _ := ToFloat(b)
		return af == bf
	}
	switch av := a.(type) {
	case []Value:
		bv, ok := b.([]Value)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv, ok := b.(*Record)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		eq := true
		av.Range(func(k string, v Value) bool {
			bvv, ok := bv.Get(k)
			if !ok || !Equal(v, bvv) {
				eq = false
				return false
			}
			return true
		})
		return eq
	default:
		return a == b
	}
}

// Truthy implements the predicate-truthiness rule used by `filter`,
// `scan` conditions and emit_when: nil and false are falsy, zero is
// falsy, the empty string is falsy, everything else is truthy.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	default:
		if IsNumeric(x) {
			f, _ := ToFloat(x)
			return f != 0 && !math.IsNaN(f)
		}
		return true
	}
}

// Less orders two numeric or string values; used by `lt/le/gt/ge` and by
// the sorter's key comparisons.
func Less(a, b Value) (bool, bool) {
	if IsNumeric(a) && IsNumeric(b) {
		af, _ := ToFloat(a)
		bf, _ := ToFloat(b)
		return af < bf, true
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs, true
	}
	return false, false
}
