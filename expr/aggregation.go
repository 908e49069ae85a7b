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

import (
	"fmt"

	"github.com/flowql/enginecore/aggregator"
	"github.com/flowql/enginecore/functions"
	"github.com/flowql/enginecore/types"
)

// Kind identifies what an AggregationExpression node does:
// safeGet reads a field from the most recently pushed record, scalar
// recomputes from child results with no state of its own, and aggregation
// owns an incremental Aggregator.
type Kind int

const (
	KindLiteral Kind = iota
	KindSafeGet
	KindAggregation
	KindBinary
	KindUnary
	KindScalarCall
	KindIndex
	KindObject
	KindSelf
)

// AggregationExpression is a compiled summarize item: a tree
// that can be pushed one record at a time and queried for its current
// result without re-scanning pushed records. Pushing forwards to every
// child; an aggregation node additionally feeds its argument's instantaneous
// value into its Aggregator. Result recurses the same way, reading each
// aggregation child's *current* accumulated value — it never re-derives a
// new aggregation mid-read, so a scalar parent (e.g. sum(x)/count(x)) always
// sees a consistent snapshot.
type AggregationExpression struct {
	Kind Kind

	// KindLiteral
	Literal types.Value

	// KindSafeGet
	Path []string

	// KindBinary / KindUnary
	Op TokenType

	// KindScalarCall
	FuncName string

	// KindObject
	ObjectProps []ObjectProp

	// Children holds operands in node-specific order: Binary [left,right],
	// Unary [operand], ScalarCall [args...], Index [base,index], Object
	// [one per ObjectProps entry], Aggregation [] (unused).
	Children []*AggregationExpression

	// KindAggregation
	Aggregator Aggregator
	ArgExpr    Node // evaluated instantaneously per push, must not itself aggregate

	compiler   *Compiler
	lastRecord *types.Record
}

// Aggregator is an alias of aggregator.Aggregator, the interface an
// AggregationExpression drives.
type Aggregator = aggregator.Aggregator

// Compiler classifies parsed Nodes into AggregationExpression trees,
// resolving Call names against both registries.
type Compiler struct {
	Functions   *functions.Registry
	Aggregators *aggregator.Registry
	evaluator   *Evaluator
}

func NewCompiler(funcs *functions.Registry, aggs *aggregator.Registry) *Compiler {
	return &Compiler{Functions: funcs, Aggregators: aggs, evaluator: NewEvaluator(funcs)}
}

// Compile builds an AggregationExpression from a parsed node.
func (c *Compiler) Compile(node Node) (*AggregationExpression, error) {
	switch n := node.(type) {
	case *NumberLit:
		return &AggregationExpression{Kind: KindLiteral, Literal: n.Value, compiler: c}, nil
	case *StringLit:
		return &AggregationExpression{Kind: KindLiteral, Literal: n.Value, compiler: c}, nil
	case *BoolLit:
		return &AggregationExpression{Kind: KindLiteral, Literal: n.Value, compiler: c}, nil
	case *NullLit:
		return &AggregationExpression{Kind: KindLiteral, Literal: nil, compiler: c}, nil
	case *DurationLit:
		return &AggregationExpression{Kind: KindLiteral, Literal: n.Value, compiler: c}, nil
	case *FieldRef:
		return &AggregationExpression{Kind: KindSafeGet, Path: n.Path, compiler: c}, nil
	case *SelfRef:
		return &AggregationExpression{Kind: KindSelf, compiler: c}, nil
	case *Unary:
		operand, err := c.Compile(n.Operand)
		if err != nil {
			return nil, err
		}
		return &AggregationExpression{Kind: KindUnary, Op: n.Op, Children: []*AggregationExpression{operand}, compiler: c}, nil
	case *Binary:
		left, err := c.Compile(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.Compile(n.Right)
		if err != nil {
			return nil, err
		}
		return &AggregationExpression{Kind: KindBinary, Op: n.Op, Children: []*AggregationExpression{left, right}, compiler: c}, nil
	case *Index:
		base, err := c.Compile(n.Base)
		if err != nil {
			return nil, err
		}
		idx, err := c.Compile(n.Index)
		if err != nil {
			return nil, err
		}
		return &AggregationExpression{Kind: KindIndex, Children: []*AggregationExpression{base, idx}, compiler: c}, nil
	case *ObjectLit:
		children := make([]*AggregationExpression, 0, len(n.Props))
		for _, prop := range n.Props {
			if prop.Exclude {
				children = append(children, nil)
				continue
			}
			child, err := c.Compile(prop.Value)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return &AggregationExpression{Kind: KindObject, ObjectProps: n.Props, Children: children, compiler: c}, nil
	case *Call:
		if c.Aggregators.Has(n.Name) {
			return c.compileAggregation(n)
		}
		args := make([]*AggregationExpression, len(n.Args))
		for i, a := range n.Args {
			compiled, err := c.Compile(a)
			if err != nil {
				return nil, err
			}
			args[i] = compiled
		}
		return &AggregationExpression{Kind: KindScalarCall, FuncName: n.Name, Children: args, compiler: c}, nil
	}
	return nil, fmt.Errorf("cannot compile expression node %T", node)
}

// compileAggregation builds the aggregation node for a Call resolved
// against the aggregator registry. args[0], if present, is the pushed
// value expression; remaining args are constructor parameters and must be
// literals — only positional literal parameters are supported, no named
// arguments.
func (c *Compiler) compileAggregation(call *Call) (*AggregationExpression, error) {
	var argExpr Node
	var params []interface{}
	if len(call.Args) > 0 {
		argExpr = call.Args[0]
		if containsAggregationCall(argExpr, c.Aggregators) {
			return nil, fmt.Errorf("aggregation %q argument may not itself aggregate", call.Name)
		}
		for _, a := range call.Args[1:] {
			lit, ok := literalValue(a)
			if !ok {
				return nil, fmt.Errorf("aggregation %q constructor arguments must be literals", call.Name)
			}
			params = append(params, lit)
		}
	}
	agg, err := c.Aggregators.New(call.Name, params)
	if err != nil {
		return nil, err
	}
	return &AggregationExpression{Kind: KindAggregation, Aggregator: agg, ArgExpr: argExpr, compiler: c}, nil
}

func literalValue(n Node) (interface{}, bool) {
	switch v := n.(type) {
	case *NumberLit:
		return v.Value, true
	case *StringLit:
		return v.Value, true
	case *BoolLit:
		return v.Value, true
	case *DurationLit:
		return v.Value, true
	}
	return nil, false
}

func containsAggregationCall(n Node, aggs *aggregator.Registry) bool {
	switch v := n.(type) {
	case *Call:
		if aggs.Has(v.Name) {
			return true
		}
		for _, a := range v.Args {
			if containsAggregationCall(a, aggs) {
				return true
			}
		}
	case *Binary:
		return containsAggregationCall(v.Left, aggs) || containsAggregationCall(v.Right, aggs)
	case *Unary:
		return containsAggregationCall(v.Operand, aggs)
	case *Index:
		return containsAggregationCall(v.Base, aggs) || containsAggregationCall(v.Index, aggs)
	case *ObjectLit:
		for _, p := range v.Props {
			if p.Value != nil && containsAggregationCall(p.Value, aggs) {
				return true
			}
		}
	}
	return false
}

// Push feeds one record through the tree: one call per incoming record
// while the owning window is open.
func (e *AggregationExpression) Push(record *types.Record) error {
	e.lastRecord = record
	switch e.Kind {
	case KindAggregation:
		if e.ArgExpr == nil {
			e.Aggregator.Push(record)
			return nil
		}
		v, err := e.compiler.evaluator.Eval(e.ArgExpr, record)
		if err != nil {
			return err
		}
		e.Aggregator.Push(v)
		return nil
	default:
		for _, child := range e.Children {
			if child == nil {
				continue
			}
			if err := child.Push(record); err != nil {
				return err
			}
		}
		return nil
	}
}

// Result computes the current value of the tree without consuming further
// input; callable any number of times between pushes.
func (e *AggregationExpression) Result() (types.Value, error) {
	switch e.Kind {
	case KindLiteral:
		return e.Literal, nil
	case KindSafeGet:
		v, _ := SafeGet(e.lastRecord, e.Path)
		return v, nil
	case KindSelf:
		return e.lastRecord, nil
	case KindAggregation:
		return e.Aggregator.Result(), nil
	case KindUnary:
		v, err := e.Children[0].Result()
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case MINUS:
			f, ok := types.ToFloat(v)
			if !ok {
				return nil, fmt.Errorf("cannot negate non-numeric value")
			}
			return -f, nil
		case BANG:
			return !types.Truthy(v), nil
		}
		return nil, fmt.Errorf("unknown unary operator")
	case KindBinary:
		l, err := e.Children[0].Result()
		if err != nil {
			return nil, err
		}
		if e.Op == AND && !types.Truthy(l) {
			return l, nil
		}
		if e.Op == OR && types.Truthy(l) {
			return l, nil
		}
		r, err := e.Children[1].Result()
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case AND, OR:
			return r, nil
		case EQ:
			return types.Equal(l, r), nil
		case NEQ:
			return !types.Equal(l, r), nil
		case LT, LE, GT, GE:
			less, ok := types.Less(l, r)
			if !ok {
				return false, nil
			}
			switch e.Op {
			case LT:
				return less, nil
			case LE:
				return less || types.Equal(l, r), nil
			case GT:
				return !less && !types.Equal(l, r), nil
			case GE:
				return !less, nil
			}
		case PLUS, MINUS, STAR, SLASH, PERCENT:
			return arith(l, r, e.Op)
		}
		return nil, fmt.Errorf("unknown binary operator")
	case KindIndex:
		base, err := e.Children[0].Result()
		if err != nil {
			return nil, err
		}
		idx, err := e.Children[1].Result()
		if err != nil {
			return nil, err
		}
		return indexInto(base, idx), nil
	case KindScalarCall:
		args := make([]interface{}, len(e.Children))
		for i, c := range e.Children {
			v, err := c.Result()
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return e.compiler.Functions.Execute(e.FuncName, args)
	case KindObject:
		out := types.NewRecord()
		var excluded []string
		for i, prop := range e.ObjectProps {
			if prop.Exclude {
				excluded = append(excluded, prop.Key)
				continue
			}
			v, err := e.Children[i].Result()
			if err != nil {
				return nil, err
			}
			if prop.Spread {
				if src, ok := v.(*types.Record); ok {
					src.Range(func(k string, val types.Value) bool {
						out.Set(k, val)
						return true
					})
				}
				continue
			}
			out.Set(prop.Key, v)
		}
		for _, k := range excluded {
			out.Delete(k)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown expression kind")
}

func indexInto(base, idx types.Value) types.Value {
	switch b := base.(type) {
	case *types.Record:
		if key, ok := idx.(string); ok {
			v, _ := b.Get(key)
			return v
		}
	case []types.Value:
		if f, ok := types.ToFloat(idx); ok {
			i := int(f)
			if i < 0 {
				i += len(b)
			}
			if i >= 0 && i < len(b) {
				return b[i]
			}
		}
	}
	return nil
}

// Reset returns the tree to its initial, pre-push state, called when a
// window closes and its group is retired.
func (e *AggregationExpression) Reset() {
	if e.Kind == KindAggregation {
		e.Aggregator.Reset()
	}
	for _, child := range e.Children {
		if child != nil {
			child.Reset()
		}
	}
	e.lastRecord = nil
}

// Clone produces an independent copy with its own Aggregator state — used
// to give each active group its own instance of a summarize item.
func (e *AggregationExpression) Clone() *AggregationExpression {
	clone := &AggregationExpression{
		Kind:        e.Kind,
		Literal:     e.Literal,
		Path:        e.Path,
		Op:          e.Op,
		FuncName:    e.FuncName,
		ObjectProps: e.ObjectProps,
		ArgExpr:     e.ArgExpr,
		compiler:    e.compiler,
	}
	if e.Aggregator != nil {
		clone.Aggregator = e.Aggregator.Clone()
	}
	if e.Children != nil {
		clone.Children = make([]*AggregationExpression, len(e.Children))
		for i, c := range e.Children {
			if c != nil {
				clone.Children[i] = c.Clone()
			}
		}
	}
	return clone
}
