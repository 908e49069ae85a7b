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

	"github.com/flowql/enginecore/functions"
	"github.com/flowql/enginecore/types"
)

// Evaluator walks a non-aggregating Node tree against a record. It backs
// filter/scan predicates, map/select projections and window/emit value
// expressions — everywhere a value expression carries no incremental
// aggregation state.
type Evaluator struct {
	Functions *functions.Registry
}

func NewEvaluator(reg *functions.Registry) *Evaluator {
	return &Evaluator{Functions: reg}
}

// Eval evaluates node against record. Missing fields evaluate to nil:
// accessing an absent path never errors.
func (ev *Evaluator) Eval(node Node, record *types.Record) (types.Value, error) {
	switch n := node.(type) {
	case *NumberLit:
		return n.Value, nil
	case *StringLit:
		return n.Value, nil
	case *BoolLit:
		return n.Value, nil
	case *NullLit:
		return nil, nil
	case *DurationLit:
		return n.Value, nil
	case *FieldRef:
		v, _ := SafeGet(record, n.Path)
		return v, nil
	case *SelfRef:
		return record, nil
	case *Unary:
		return ev.evalUnary(n, record)
	case *Binary:
		return ev.evalBinary(n, record)
	case *Index:
		return ev.evalIndex(n, record)
	case *Call:
		return ev.evalCall(n, record)
	case *ObjectLit:
		return ev.evalObject(n, record)
	}
	return nil, fmt.Errorf("unhandled expression node %T", node)
}

// SafeGet resolves a dotted path against a record, descending through
// nested *types.Record and map[string]types.Value values. Absence at any
// step yields (nil, false) rather than an error.
func SafeGet(record *types.Record, path []string) (types.Value, bool) {
	if record == nil || len(path) == 0 {
		return nil, false
	}
	var cur types.Value = record
	for _, seg := range path {
		next, ok := descend(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func descend(cur types.Value, key string) (types.Value, bool) {
	switch v := cur.(type) {
	case *types.Record:
		return v.Get(key)
	case map[string]types.Value:
		val, ok := v[key]
		return val, ok
	default:
		return nil, false
	}
}

func (ev *Evaluator) evalUnary(n *Unary, record *types.Record) (types.Value, error) {
	v, err := ev.Eval(n.Operand, record)
	if err != nil {
		return nil, err
	}
	switch n.Op {
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
}

func (ev *Evaluator) evalBinary(n *Binary, record *types.Record) (types.Value, error) {
	// && and || short-circuit and return the deciding operand's value, so
	// `state.count || 0` is a default, not a boolean.
	if n.Op == AND {
		l, err := ev.Eval(n.Left, record)
		if err != nil {
			return nil, err
		}
		if !types.Truthy(l) {
			return l, nil
		}
		return ev.Eval(n.Right, record)
	}
	if n.Op == OR {
		l, err := ev.Eval(n.Left, record)
		if err != nil {
			return nil, err
		}
		if types.Truthy(l) {
			return l, nil
		}
		return ev.Eval(n.Right, record)
	}

	l, err := ev.Eval(n.Left, record)
	if err != nil {
		return nil, err
	}
	r, err := ev.Eval(n.Right, record)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case EQ:
		return types.Equal(l, r), nil
	case NEQ:
		return !types.Equal(l, r), nil
	case LT, LE, GT, GE:
		less, ok := types.Less(l, r)
		if !ok {
			return false, nil
		}
		switch n.Op {
		case LT:
			return less, nil
		case LE:
			return less || types.Equal(l, r), nil
		case GT:
			return !less && !types.Equal(l, r), nil
		case GE:
			return !less, nil
		}
	case PLUS:
		return arith(l, r, n.Op)
	case MINUS, STAR, SLASH, PERCENT:
		return arith(l, r, n.Op)
	}
	return nil, fmt.Errorf("unknown binary operator")
}

// arith implements numeric arithmetic; PLUS additionally concatenates
// when either operand is non-numeric, so string joining works without a
// dedicated concat operator.
func arith(l, r types.Value, op TokenType) (types.Value, error) {
	lf, lok := types.ToFloat(l)
	rf, rok := types.ToFloat(r)
	if op == PLUS && (!lok || !rok) {
		return fmt.Sprintf("%v%v", l, r), nil
	}
	if !lok || !rok {
		return nil, fmt.Errorf("non-numeric operand for arithmetic operator")
	}
	switch op {
	case PLUS:
		return lf + rf, nil
	case MINUS:
		return lf - rf, nil
	case STAR:
		return lf * rf, nil
	case SLASH:
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return lf / rf, nil
	case PERCENT:
		if rf == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return float64(int64(lf) % int64(rf)), nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator")
}

func (ev *Evaluator) evalIndex(n *Index, record *types.Record) (types.Value, error) {
	base, err := ev.Eval(n.Base, record)
	if err != nil {
		return nil, err
	}
	idx, err := ev.Eval(n.Index, record)
	if err != nil {
		return nil, err
	}
	switch b := base.(type) {
	case *types.Record:
		if key, ok := idx.(string); ok {
			v, _ := b.Get(key)
			return v, nil
		}
	case map[string]types.Value:
		if key, ok := idx.(string); ok {
			return b[key], nil
		}
	case []types.Value:
		if f, ok := types.ToFloat(idx); ok {
			i := int(f)
			if i < 0 {
				i += len(b)
			}
			if i >= 0 && i < len(b) {
				return b[i], nil
			}
		}
	}
	return nil, nil
}

func (ev *Evaluator) evalCall(n *Call, record *types.Record) (types.Value, error) {
	args := make([]interface{}, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.Eval(a, record)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return ev.Functions.Execute(n.Name, args)
}

// evalObject builds a *types.Record from an object literal: shorthand and
// explicit entries set keys in source order, spreads copy every key of the
// spread value in its own order, and exclusion entries ("-key") remove a
// key after every spread and named pair has been applied.
func (ev *Evaluator) evalObject(n *ObjectLit, record *types.Record) (types.Value, error) {
	out := types.NewRecord()
	var excluded []string
	for _, prop := range n.Props {
		if prop.Exclude {
			excluded = append(excluded, prop.Key)
			continue
		}
		if prop.Spread {
			v, err := ev.Eval(prop.Value, record)
			if err != nil {
				return nil, err
			}
			if src, ok := v.(*types.Record); ok {
				src.Range(func(k string, val types.Value) bool {
					out.Set(k, val)
					return true
				})
			}
			continue
		}
		v, err := ev.Eval(prop.Value, record)
		if err != nil {
			return nil, err
		}
		out.Set(prop.Key, v)
	}
	for _, k := range excluded {
		out.Delete(k)
	}
	return out, nil
}
