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

package functions

import (
	"fmt"
	"math"

	"github.com/PaesslerAG/jsonpath"

	"github.com/flowql/enginecore/sketch"
	"github.com/flowql/enginecore/types"
)

// simpleFunction adapts a plain Go closure to the Function interface,
// reusing Signature for argument-count bookkeeping.
type simpleFunction struct {
	Signature
	exec func(args []interface{}) (interface{}, error)
}

func (f *simpleFunction) Execute(args []interface{}) (interface{}, error) {
	return f.exec(args)
}

func newFn(name string, fnType FunctionType, min, max int, exec func(args []interface{}) (interface{}, error)) Function {
	return &simpleFunction{
		Signature: NewSignature(name, fnType, min, max),
		exec:      exec,
	}
}

func num(v interface{}) (float64, error) {
	f, ok := types.ToFloat(v)
	if !ok {
		return 0, fmt.Errorf("expected numeric argument, got %T", v)
	}
	return f, nil
}

// registerBuiltins installs the arithmetic, comparison, logical and math
// built-ins plus the sketch-consumer functions.
func registerBuiltins(r *Registry) {
	binaryArith := func(name string, op func(a, b float64) (float64, error)) {
		r.Register(newFn(name, TypeArithmetic, 2, 2, func(args []interface{}) (interface{}, error) {
			a, err := num(args[0])
			if err != nil {
				return nil, err
			}
			b, err := num(args[1])
			if err != nil {
				return nil, err
			}
			return op(a, b)
		}))
	}

	binaryArith("add", func(a, b float64) (float64, error) { return a + b, nil })
	binaryArith("sub", func(a, b float64) (float64, error) { return a - b, nil })
	binaryArith("mul", func(a, b float64) (float64, error) { return a * b, nil })
	binaryArith("div", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return a / b, nil
	})
	binaryArith("mod", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		return math.Mod(a, b), nil
	})
	binaryArith("pow", func(a, b float64) (float64, error) { return math.Pow(a, b), nil })

	r.Register(newFn("neg", TypeArithmetic, 1, 1, func(args []interface{}) (interface{}, error) {
		a, err := num(args[0])
		if err != nil {
			return nil, err
		}
		return -a, nil
	}))
	r.Register(newFn("abs", TypeMath, 1, 1, func(args []interface{}) (interface{}, error) {
		a, err := num(args[0])
		if err != nil {
			return nil, err
		}
		return math.Abs(a), nil
	}))

	comparison := func(name string, op func(a, b interface{}) bool) {
		r.Register(newFn(name, TypeComparison, 2, 2, func(args []interface{}) (interface{}, error) {
			return op(args[0], args[1]), nil
		}))
	}
	comparison("eq", func(a, b interface{}) bool { return types.Equal(a, b) })
	comparison("ne", func(a, b interface{}) bool { return !types.Equal(a, b) })
	comparison("lt", func(a, b interface{}) bool { r, _ := types.Less(a, b); return r })
	comparison("gt", func(a, b interface{}) bool { r, _ := types.Less(b, a); return r })
	comparison("le", func(a, b interface{}) bool { r, _ := types.Less(b, a); return !r })
	comparison("ge", func(a, b interface{}) bool { r, _ := types.Less(a, b); return !r })

	r.Register(newFn("min", TypeMath, 1, -1, func(args []interface{}) (interface{}, error) {
		return reduceNumeric(args, func(a, b float64) float64 { return math.Min(a, b) })
	}))
	r.Register(newFn("max", TypeMath, 1, -1, func(args []interface{}) (interface{}, error) {
		return reduceNumeric(args, func(a, b float64) float64 { return math.Max(a, b) })
	}))

	r.Register(newFn("and", TypeLogical, 2, -1, func(args []interface{}) (interface{}, error) {
		for _, a := range args {
			if !types.Truthy(a) {
				return false, nil
			}
		}
		return true, nil
	}))
	r.Register(newFn("or", TypeLogical, 2, -1, func(args []interface{}) (interface{}, error) {
		for _, a := range args {
			if types.Truthy(a) {
				return true, nil
			}
		}
		return false, nil
	}))
	r.Register(newFn("not", TypeLogical, 1, 1, func(args []interface{}) (interface{}, error) {
		return !types.Truthy(args[0]), nil
	}))

	r.Register(newFn("exp", TypeMath, 1, 1, func(args []interface{}) (interface{}, error) {
		a, err := num(args[0])
		if err != nil {
			return nil, err
		}
		return math.Exp(a), nil
	}))
	r.Register(newFn("pi", TypeMath, 0, 0, func(args []interface{}) (interface{}, error) {
		return math.Pi, nil
	}))

	r.Register(newFn("like", TypeComparison, 2, 2, func(args []interface{}) (interface{}, error) {
		text, ok1 := args[0].(string)
		pattern, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return false, fmt.Errorf("like requires string arguments")
		}
		return matchesLikePattern(text, pattern), nil
	}))
	r.Register(newFn("is_null", TypeComparison, 1, 1, func(args []interface{}) (interface{}, error) {
		return args[0] == nil, nil
	}))
	r.Register(newFn("is_not_null", TypeComparison, 1, 1, func(args []interface{}) (interface{}, error) {
		return args[0] != nil, nil
	}))

	// jsonpath is the array-wildcard fallback the dotted field-path
	// grammar has no syntax for ("items[*].price"): the dotted path only
	// ever descends through named fields, never through an array, so any
	// query that needs to reach into every element of a nested array goes
	// through this function instead of an extension to the field grammar.
	r.Register(newFn("jsonpath", TypeCustom, 2, 2, func(args []interface{}) (interface{}, error) {
		expr, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("jsonpath: path must be a string")
		}
		result, err := jsonpath.Get(expr, types.ToPlainJSON(args[0]))
		if err != nil {
			return nil, fmt.Errorf("jsonpath: %w", err)
		}
		return types.FromPlainJSON(result), nil
	}))

	registerSketchFunctions(r)
}

// matchesLikePattern implements SQL-style LIKE matching: % matches any
// character run, _ matches exactly one character.
func matchesLikePattern(text, pattern string) bool {
	return likeMatch(text, pattern, 0, 0)
}

func likeMatch(text, pattern string, textIndex, patternIndex int) bool {
	if patternIndex >= len(pattern) {
		return textIndex >= len(text)
	}
	if textIndex >= len(text) {
		for i := patternIndex; i < len(pattern); i++ {
			if pattern[i] != '%' {
				return false
			}
		}
		return true
	}
	switch pattern[patternIndex] {
	case '%':
		if likeMatch(text, pattern, textIndex, patternIndex+1) {
			return true
		}
		for i := textIndex; i < len(text); i++ {
			if likeMatch(text, pattern, i+1, patternIndex+1) {
				return true
			}
		}
		return false
	case '_':
		return likeMatch(text, pattern, textIndex+1, patternIndex+1)
	default:
		if text[textIndex] == pattern[patternIndex] {
			return likeMatch(text, pattern, textIndex+1, patternIndex+1)
		}
		return false
	}
}

func reduceNumeric(args []interface{}, op func(a, b float64) float64) (float64, error) {
	acc, err := num(args[0])
	if err != nil {
		return 0, err
	}
	for _, a := range args[1:] {
		v, err := num(a)
		if err != nil {
			return 0, err
		}
		acc = op(acc, v)
	}
	return acc, nil
}

// registerSketchFunctions registers the sketch-consumer functions, each
// dispatching on the sketch value's `kind` field.
func registerSketchFunctions(r *Registry) {
	r.Register(newFn("quantile", TypeSketch, 2, 2, func(args []interface{}) (interface{}, error) {
		q, err := num(args[1])
		if err != nil {
			return nil, err
		}
		return sketch.Quantile(args[0], q)
	}))
	r.Register(newFn("percentile", TypeSketch, 2, 2, func(args []interface{}) (interface{}, error) {
		p, err := num(args[1])
		if err != nil {
			return nil, err
		}
		return sketch.Quantile(args[0], p/100)
	}))
	r.Register(newFn("median", TypeSketch, 1, 1, func(args []interface{}) (interface{}, error) {
		return sketch.Quantile(args[0], 0.5)
	}))
	r.Register(newFn("cdf", TypeSketch, 2, 2, func(args []interface{}) (interface{}, error) {
		x, err := num(args[1])
		if err != nil {
			return nil, err
		}
		return sketch.CDF(args[0], x)
	}))
	r.Register(newFn("quantile_error", TypeSketch, 2, 2, func(args []interface{}) (interface{}, error) {
		q, err := num(args[1])
		if err != nil {
			return nil, err
		}
		return sketch.QuantileError(args[0], q)
	}))
	r.Register(newFn("cdf_error", TypeSketch, 2, 2, func(args []interface{}) (interface{}, error) {
		x, err := num(args[1])
		if err != nil {
			return nil, err
		}
		return sketch.CDFError(args[0], x)
	}))
}
