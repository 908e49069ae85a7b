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

package stream

import (
	"fmt"
	"strings"
	"time"

	"github.com/flowql/enginecore/emit"
	"github.com/flowql/enginecore/expr"
	"github.com/flowql/enginecore/types"
	"github.com/flowql/enginecore/window"
)

// constScalar resolves a window/emit constructor's size-like argument: a
// duration literal (interpreted as seconds) or a plain number literal.
// Non-literal arguments are rejected — window/emit construction happens
// once at compile time, never per-record.
func constScalar(node expr.Node) (float64, error) {
	switch n := node.(type) {
	case *expr.DurationLit:
		return n.Value.Seconds(), nil
	case *expr.NumberLit:
		return n.Value, nil
	}
	return 0, fmt.Errorf("expected a numeric or duration literal, got %T", node)
}

// constMillis is constScalar's counterpart for emit_every's interval: a
// duration literal always measures wall-clock milliseconds; a bare number
// is left to the heuristic (count below 100, milliseconds at or above it)
// emit_every itself implements.
func constMillis(node expr.Node) (float64, error) {
	if d, ok := node.(*expr.DurationLit); ok {
		return float64(d.Value) / float64(time.Millisecond), nil
	}
	return constScalar(node)
}

// floatExtractor compiles a window valueExpr. A bare top-level field name
// goes through window.TimeFieldExtractor so RFC3339 timestamp columns work
// as ordering values; anything else must evaluate to a number.
func floatExtractor(ev *expr.Evaluator, node expr.Node) window.ValueExtractor {
	if ref, ok := node.(*expr.FieldRef); ok && len(ref.Path) == 1 {
		return window.TimeFieldExtractor(ref.Path[0])
	}
	return func(record *types.Record) (float64, error) {
		v, err := ev.Eval(node, record)
		if err != nil {
			return 0, err
		}
		f, ok := types.ToFloat(v)
		if !ok {
			return 0, fmt.Errorf("window value expression did not evaluate to a number")
		}
		return f, nil
	}
}

func valueExtractor(ev *expr.Evaluator, node expr.Node) emit.ValueExtractor {
	return func(record *types.Record) (types.Value, error) { return ev.Eval(node, record) }
}

// compileWindow builds a window.Factory from an `over windowFn(...)`
// clause.
func compileWindow(ev *expr.Evaluator, call *expr.Call) (window.Factory, error) {
	name := strings.ToLower(call.Name)
	args := call.Args
	switch name {
	case "tumbling_window":
		size, err := constScalar(arg(args, 0))
		if err != nil {
			return nil, err
		}
		var extractor window.ValueExtractor
		if len(args) > 1 {
			extractor = floatExtractor(ev, args[1])
		}
		return window.TumblingWindow(size, extractor), nil
	case "tumbling_window_by":
		size, err := constScalar(arg(args, 0))
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, fmt.Errorf("tumbling_window_by requires a value callback")
		}
		return window.TumblingWindowBy(size, floatExtractor(ev, args[1])), nil
	case "count_window":
		count, err := constScalar(arg(args, 0))
		if err != nil {
			return nil, err
		}
		return window.CountWindow(count), nil
	case "hopping_window":
		size, err := constScalar(arg(args, 0))
		if err != nil {
			return nil, err
		}
		hop, err := constScalar(arg(args, 1))
		if err != nil {
			return nil, err
		}
		var extractor window.ValueExtractor
		if len(args) > 2 {
			extractor = floatExtractor(ev, args[2])
		}
		return window.HoppingWindow(size, hop, extractor), nil
	case "hopping_window_by":
		size, err := constScalar(arg(args, 0))
		if err != nil {
			return nil, err
		}
		hop, err := constScalar(arg(args, 1))
		if err != nil {
			return nil, err
		}
		if len(args) < 3 {
			return nil, fmt.Errorf("hopping_window_by requires a value callback")
		}
		return window.HoppingWindowBy(size, hop, floatExtractor(ev, args[2])), nil
	case "sliding_window":
		size, err := constScalar(arg(args, 0))
		if err != nil {
			return nil, err
		}
		var extractor window.ValueExtractor
		if len(args) > 1 {
			extractor = floatExtractor(ev, args[1])
		}
		return window.SlidingWindow(size, extractor), nil
	case "sliding_window_by":
		size, err := constScalar(arg(args, 0))
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, fmt.Errorf("sliding_window_by requires a value callback")
		}
		return window.SlidingWindowBy(size, floatExtractor(ev, args[1])), nil
	case "session_window":
		timeout, err := constScalar(arg(args, 0))
		if err != nil {
			return nil, err
		}
		if len(args) < 2 {
			return nil, fmt.Errorf("session_window requires a value callback")
		}
		return window.SessionWindow(timeout, floatExtractor(ev, args[1])), nil
	}
	return nil, fmt.Errorf("unknown window function %q", call.Name)
}

// compileEmit builds an emit.Factory from an `emit emitFn(...)` clause.
func compileEmit(ev *expr.Evaluator, call *expr.Call) (emit.Factory, error) {
	name := strings.ToLower(call.Name)
	args := call.Args
	switch name {
	case "emit_every":
		interval, err := constMillis(arg(args, 0))
		if err != nil {
			return nil, err
		}
		var extractor emit.ValueExtractor
		if len(args) > 1 {
			extractor = valueExtractor(ev, args[1])
		}
		return emit.Every(interval, extractor), nil
	case "emit_when":
		if len(args) < 1 {
			return nil, fmt.Errorf("emit_when requires a predicate")
		}
		predicate := args[0]
		return emit.When(func(item *types.Record) (bool, error) {
			v, err := ev.Eval(predicate, item)
			if err != nil {
				return false, err
			}
			return types.Truthy(v), nil
		}), nil
	case "emit_on_change":
		if len(args) < 1 {
			return nil, fmt.Errorf("emit_on_change requires a value expression")
		}
		return emit.OnChange(valueExtractor(ev, args[0])), nil
	case "emit_on_group_change":
		return emit.OnGroupChange(), nil
	case "emit_on_update":
		return emit.OnUpdate(), nil
	}
	return nil, fmt.Errorf("unknown emit function %q", call.Name)
}

func arg(args []expr.Node, i int) expr.Node {
	if i < len(args) {
		return args[i]
	}
	return &expr.NullLit{}
}
