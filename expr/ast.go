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

package expr

import "time"

// Node is one value-expression AST node. Concrete types below.
type Node interface {
	node()
}

// NumberLit is a numeric literal, already parsed to float64.
type NumberLit struct{ Value float64 }

// StringLit is a quoted string literal.
type StringLit struct{ Value string }

// BoolLit is true/false.
type BoolLit struct{ Value bool }

// NullLit is null/nil.
type NullLit struct{}

// DurationLit is a duration literal, already parsed to time.Duration.
type DurationLit struct{ Value time.Duration }

// FieldRef is a dotted field path such as user.address.city, or a bare
// identifier such as amount. Path holds the dot-separated segments.
type FieldRef struct{ Path []string }

// SelfRef is the bare "*" wildcard used in a select object literal's
// "...*" spread: it evaluates to the whole input record,
// rather than a named field of it.
type SelfRef struct{}

// Unary is a prefix operator: "-x", "!x".
type Unary struct {
	Op      TokenType
	Operand Node
}

// Binary is an infix operator: arithmetic, comparison or logical.
type Binary struct {
	Op          TokenType
	Left, Right Node
}

// Call is a function/aggregation invocation: name(args...).
type Call struct {
	Name string
	Args []Node
}

// Index is a computed member access: base[index].
type Index struct {
	Base  Node
	Index Node
}

// ObjectProp is one entry of an ObjectLit: either "key: value", a shorthand
// "key" (value is a FieldRef of the same name), a spread "...expr", or an
// exclusion "-key".
type ObjectProp struct {
	Key     string
	Value   Node
	Spread  bool
	Exclude bool // "-key" inside an object literal — drop key from the built object
}

// ObjectLit is an object literal: { a, b: c, ...d, -e }.
type ObjectLit struct {
	Props []ObjectProp
}

func (*NumberLit) node()   {}
func (*StringLit) node()   {}
func (*BoolLit) node()     {}
func (*NullLit) node()     {}
func (*DurationLit) node() {}
func (*FieldRef) node()    {}
func (*SelfRef) node()     {}
func (*Unary) node()       {}
func (*Binary) node()      {}
func (*Call) node()        {}
func (*Index) node()       {}
func (*ObjectLit) node()   {}
