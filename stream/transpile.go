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

	"github.com/flowql/enginecore/aggregator"
	"github.com/flowql/enginecore/dsl"
	"github.com/flowql/enginecore/emit"
	"github.com/flowql/enginecore/expr"
	"github.com/flowql/enginecore/functions"
	"github.com/flowql/enginecore/operator"
	"github.com/flowql/enginecore/window"
)

// Transpiler compiles a dsl.PipelineQueryStmt (already parsed into a CST
// by the dsl/expr packages) into an executable pipeline of
// operator.Operator stages.
// It is stateless aside from the registries/evaluator every compiled
// operator needs, so one Transpiler serves every flow an Engine compiles.
type Transpiler struct {
	Evaluator   *expr.Evaluator
	Compiler    *expr.Compiler
	Functions   *functions.Registry
	Aggregators *aggregator.Registry
	Streams     *Manager
}

func NewTranspiler(funcs *functions.Registry, aggs *aggregator.Registry, mgr *Manager) *Transpiler {
	return &Transpiler{
		Evaluator:   expr.NewEvaluator(funcs),
		Compiler:    expr.NewCompiler(funcs, aggs),
		Functions:   funcs,
		Aggregators: aggs,
		Streams:     mgr,
	}
}

// CompiledPipeline is a built operator.Pipeline plus the sink stream names
// it targets via insert_into, required at flow-creation time to validate
// every sink exists.
type CompiledPipeline struct {
	Pipeline *operator.Pipeline
	Sinks    []string
	Collect  *operator.Collector // non-nil if the pipeline ends in `collect`
}

// Compile builds a full pipeline from a PipelineQueryStmt's operation
// chain. The source stream itself is not part of the returned pipeline —
// the caller (Engine.createFlow or Engine.runAdHocQuery) subscribes the resulting pipeline's head
// to q.Source.
func (t *Transpiler) Compile(q *dsl.PipelineQueryStmt) (*CompiledPipeline, error) {
	if len(q.Operations) == 0 {
		return nil, fmt.Errorf("flow pipeline has no operations")
	}
	ops := make([]operator.Operator, 0, len(q.Operations))
	cp := &CompiledPipeline{}
	for _, rawOp := range q.Operations {
		op, sink, collector, err := t.compileOperation(rawOp)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		if sink != "" {
			cp.Sinks = append(cp.Sinks, sink)
		}
		if collector != nil {
			cp.Collect = collector
		}
	}
	cp.Pipeline = operator.NewPipeline(ops...)
	return cp, nil
}

func (t *Transpiler) compileOperation(op dsl.Operation) (operator.Operator, string, *operator.Collector, error) {
	switch o := op.(type) {
	case *dsl.WhereOp:
		return operator.NewFilter(t.Evaluator, o.Predicate), "", nil, nil
	case *dsl.SelectOp:
		return operator.NewProjector(t.Evaluator, o.Projection), "", nil, nil
	case *dsl.MapOp:
		return operator.NewProjector(t.Evaluator, o.Projection), "", nil, nil
	case *dsl.ScanOp:
		steps, err := t.compileScanSteps(o.Steps)
		if err != nil {
			return nil, "", nil, err
		}
		return operator.NewScan(t.Evaluator, steps), "", nil, nil
	case *dsl.SummarizeOp:
		return t.compileSummarize(o)
	case *dsl.InsertIntoOp:
		return operator.NewInsertInto(o.Target, t.Streams), o.Target, nil, nil
	case *dsl.WriteToFileOp:
		return t.compileWriteToFile(o)
	case *dsl.AssertOrSaveOp:
		path, err := t.constString(o.Path)
		if err != nil {
			return nil, "", nil, err
		}
		w, err := operator.NewAssertOrSaveExpected(path, t.Streams)
		return w, "", nil, err
	case *dsl.CollectOp:
		c := operator.NewCollector()
		return c, "", c, nil
	}
	return nil, "", nil, fmt.Errorf("unknown pipeline operation %T", op)
}

func (t *Transpiler) compileSummarize(o *dsl.SummarizeOp) (operator.Operator, string, *operator.Collector, error) {
	agg, ok := o.Aggregation.(*expr.ObjectLit)
	if !ok {
		return nil, "", nil, fmt.Errorf("summarize aggregation must be an object literal")
	}
	template, err := t.Compiler.Compile(agg)
	if err != nil {
		return nil, "", nil, err
	}
	var wf window.Factory
	if o.WindowDef != nil {
		wf, err = compileWindow(t.Evaluator, o.WindowDef)
		if err != nil {
			return nil, "", nil, err
		}
	}
	var ef emit.Factory
	if o.EmitDef != nil {
		ef, err = compileEmit(t.Evaluator, o.EmitDef)
		if err != nil {
			return nil, "", nil, err
		}
	}
	return operator.NewSummarize(t.Evaluator, template, o.GroupKey, wf, ef, "window"), "", nil, nil
}

func (t *Transpiler) compileWriteToFile(o *dsl.WriteToFileOp) (operator.Operator, string, *operator.Collector, error) {
	path, err := t.constString(o.Path)
	if err != nil {
		return nil, "", nil, err
	}
	opts := operator.WriteToFileOptions{Mode: operator.FileModeAppend}
	if o.Options != nil {
		obj, ok := o.Options.(*expr.ObjectLit)
		if !ok {
			return nil, "", nil, fmt.Errorf("write_to_file options must be an object literal")
		}
		for _, prop := range obj.Props {
			switch prop.Key {
			case "mode":
				s, err := t.constString(prop.Value)
				if err != nil {
					return nil, "", nil, err
				}
				if strings.EqualFold(s, "overwrite") {
					opts.Mode = operator.FileModeOverwrite
				} else {
					opts.Mode = operator.FileModeAppend
				}
			case "buffer_size_mb":
				f, err := constScalar(prop.Value)
				if err != nil {
					return nil, "", nil, err
				}
				opts.BufferSizeMB = f
			case "fsync_every":
				d, err := t.constDuration(prop.Value)
				if err != nil {
					return nil, "", nil, err
				}
				opts.FsyncEvery = d
			}
		}
	}
	w, err := operator.NewWriteToFile(path, opts)
	return w, "", nil, err
}

// compileScanSteps rewrites each step's source-level bound identifier
// (`s1` in `step s1: ...`) to the operator's canonical "state" binding and
// lowers the step's statements into the operator's assignment/emit lists.
// An assignment target `s1.count` becomes the state field "count"; a bare
// target `count` is taken as a state field name directly.
func (t *Transpiler) compileScanSteps(specs []dsl.ScanStepSpec) ([]operator.ScanStep, error) {
	steps := make([]operator.ScanStep, len(specs))
	for i, spec := range specs {
		cond := rewriteSelfRef(spec.Condition, spec.Name)
		var assignments []operator.ScanAssignment
		var emitNode expr.Node
		for _, stmt := range spec.Statements {
			switch st := stmt.(type) {
			case *dsl.ScanAssignStmt:
				path := st.Target
				if len(path) > 1 && path[0] == spec.Name {
					path = path[1:]
				}
				if len(path) != 1 {
					return nil, fmt.Errorf("scan step %q: assignment target must be a state field", spec.Name)
				}
				assignments = append(assignments, operator.ScanAssignment{
					Field: path[0],
					Value: rewriteSelfRef(st.Value, spec.Name),
				})
			case *dsl.ScanEmitStmt:
				if emitNode != nil {
					return nil, fmt.Errorf("scan step %q: at most one emit per step", spec.Name)
				}
				emitNode = rewriteSelfRef(st.Value, spec.Name)
			}
		}
		steps[i] = operator.ScanStep{Name: spec.Name, Condition: cond, Assignments: assignments, Emit: emitNode}
	}
	return steps, nil
}

// rewriteSelfRef walks node replacing every FieldRef whose first path
// segment equals selfName with "state" — e.g. `s1.count` becomes
// `state.count` — so the compiled Scan operator only ever sees the
// canonical binding.
func rewriteSelfRef(node expr.Node, selfName string) expr.Node {
	switch n := node.(type) {
	case *expr.FieldRef:
		if len(n.Path) > 0 && n.Path[0] == selfName {
			path := append([]string{"state"}, n.Path[1:]...)
			return &expr.FieldRef{Path: path}
		}
		return n
	case *expr.Unary:
		return &expr.Unary{Op: n.Op, Operand: rewriteSelfRef(n.Operand, selfName)}
	case *expr.Binary:
		return &expr.Binary{Op: n.Op, Left: rewriteSelfRef(n.Left, selfName), Right: rewriteSelfRef(n.Right, selfName)}
	case *expr.Index:
		return &expr.Index{Base: rewriteSelfRef(n.Base, selfName), Index: rewriteSelfRef(n.Index, selfName)}
	case *expr.Call:
		args := make([]expr.Node, len(n.Args))
		for i, a := range n.Args {
			args[i] = rewriteSelfRef(a, selfName)
		}
		return &expr.Call{Name: n.Name, Args: args}
	case *expr.ObjectLit:
		props := make([]expr.ObjectProp, len(n.Props))
		for i, p := range n.Props {
			p.Value = rewriteSelfRef(p.Value, selfName)
			props[i] = p
		}
		return &expr.ObjectLit{Props: props}
	default:
		return node
	}
}

// constString evaluates node as a compile-time string constant (a file
// path or option literal never references a record field).
func (t *Transpiler) constString(node expr.Node) (string, error) {
	s, ok := node.(*expr.StringLit)
	if !ok {
		return "", fmt.Errorf("expected a string literal, got %T", node)
	}
	return s.Value, nil
}

func (t *Transpiler) constDuration(node expr.Node) (time.Duration, error) {
	if d, ok := node.(*expr.DurationLit); ok {
		return d.Value, nil
	}
	if n, ok := node.(*expr.NumberLit); ok {
		return time.Duration(n.Value * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("expected a duration literal, got %T", node)
}
