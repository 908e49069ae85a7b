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

package operator

import (
	"fmt"

	"github.com/flowql/enginecore/emit"
	"github.com/flowql/enginecore/expr"
	"github.com/flowql/enginecore/types"
	"github.com/flowql/enginecore/window"
)

const allWindowID = "__all__"

// allWindowFunc is used when `summarize` carries no window spec: every
// record belongs to the single synthetic window `__all__`.
func allWindowFunc(record *types.Record) ([]window.Descriptor, error) {
	return []window.Descriptor{{ID: allWindowID, WindowID: allWindowID, Type: window.KindCount, Mode: window.ModeCount}}, nil
}

type summarizeWindowState struct {
	descriptor window.Descriptor
	agg        *expr.AggregationExpression
	lastResult types.Value
	hasResult  bool
}

type summarizeGroup struct {
	keyValue types.Value
	windows  map[string]*summarizeWindowState
}

// Summarize implements windowed grouped aggregation. Template is the
// compiled summarize{...} object (a KindObject AggregationExpression);
// each (group, window) pair gets its own Clone so aggregator state never
// leaks across groups or windows.
type Summarize struct {
	base

	Evaluator     *expr.Evaluator
	Template      *expr.AggregationExpression
	GroupKey      expr.Node
	WindowVarName string

	// groupKeyFieldName is the output field the group key is materialized
	// under. When GroupKey is a plain field reference (the common `by
	// product` case) it is that field's own name, matching source examples
	// where the grouped-by column reappears unchanged in the emitted
	// record; for any other grouping expression it falls back to "groupKey".
	groupKeyFieldName string

	windowFunc window.Func
	emitFunc   emit.Func
	hasWindow  bool

	groups map[string]*summarizeGroup
}

func NewSummarize(evaluator *expr.Evaluator, template *expr.AggregationExpression, groupKey expr.Node, windowFactory window.Factory, emitFactory emit.Factory, windowVarName string) *Summarize {
	if windowVarName == "" {
		windowVarName = "window"
	}
	var wf window.Func
	hasWindow := windowFactory != nil
	if hasWindow {
		wf = windowFactory.CreateWindowFunc()
	} else {
		wf = allWindowFunc
	}
	var ef emit.Func
	if emitFactory != nil {
		ef = emitFactory.CreateEmitFunc()
	} else {
		ef = emit.OnFlush().CreateEmitFunc()
	}
	fieldName := "groupKey"
	if fr, ok := groupKey.(*expr.FieldRef); ok && len(fr.Path) > 0 {
		fieldName = fr.Path[len(fr.Path)-1]
	}
	return &Summarize{
		Evaluator:         evaluator,
		Template:          template,
		GroupKey:          groupKey,
		WindowVarName:     windowVarName,
		groupKeyFieldName: fieldName,
		windowFunc:        wf,
		emitFunc:          ef,
		hasWindow:         hasWindow,
		groups:            make(map[string]*summarizeGroup),
	}
}

func groupMapKey(v types.Value) string {
	if v == nil {
		return "\x00null"
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func (s *Summarize) Push(record *types.Record) error {
	var groupValue types.Value
	if s.GroupKey != nil {
		v, err := s.Evaluator.Eval(s.GroupKey, record)
		if err != nil {
			return err
		}
		groupValue = v
	}
	gk := groupMapKey(groupValue)
	g, ok := s.groups[gk]
	if !ok {
		g = &summarizeGroup{keyValue: groupValue, windows: make(map[string]*summarizeWindowState)}
		s.groups[gk] = g
	}

	descriptors, err := s.windowFunc(record)
	if err != nil {
		return err
	}
	for _, d := range descriptors {
		ws, exists := g.windows[d.WindowID]
		if !exists {
			ws = &summarizeWindowState{descriptor: d, agg: s.Template.Clone()}
			g.windows[d.WindowID] = ws
		} else {
			ws.descriptor = d
		}
		if err := ws.agg.Push(record); err != nil {
			return err
		}
		result, err := ws.agg.Result()
		if err != nil {
			return err
		}
		changed := !ws.hasResult || !types.Equal(result, ws.lastResult)
		ws.hasResult = true

		if s.emitFunc.ShouldEmit(record, groupValue, changed) {
			if err := s.materializeAndEmit(g, ws, result); err != nil {
				return err
			}
			ws.lastResult = result
		}
	}
	return nil
}

func (s *Summarize) materializeAndEmit(g *summarizeGroup, ws *summarizeWindowState, result types.Value) error {
	var out *types.Record
	if rec, ok := result.(*types.Record); ok {
		out = rec.Clone()
	} else {
		out = types.NewRecord()
		out.Set("value", result)
	}
	if s.GroupKey != nil {
		out.Set(s.groupKeyFieldName, g.keyValue)
	}
	if s.hasWindow {
		winRec := types.NewRecord()
		winRec.Set("id", ws.descriptor.ID)
		winRec.Set("windowId", ws.descriptor.WindowID)
		winRec.Set("start", ws.descriptor.Start)
		winRec.Set("end", ws.descriptor.End)
		winRec.Set("type", string(ws.descriptor.Type))
		winRec.Set("mode", string(ws.descriptor.Mode))
		out.Set(s.WindowVarName, winRec)
	}
	return s.Emit(out)
}

// Flush forces one final materialization of every live (group, window) —
// the emit policy's forceEmit semantics — then clears state.
func (s *Summarize) Flush() error {
	for _, g := range s.groups {
		for _, ws := range g.windows {
			if !s.emitFunc.ForceEmit() {
				continue
			}
			result, err := ws.agg.Result()
			if err != nil {
				return err
			}
			if err := s.materializeAndEmit(g, ws, result); err != nil {
				return err
			}
		}
	}
	s.groups = make(map[string]*summarizeGroup)
	return s.FlushNext()
}

func (s *Summarize) Cancel() {
	s.groups = make(map[string]*summarizeGroup)
	s.CancelNext()
}

func (s *Summarize) Describe() map[string]types.Value {
	return map[string]types.Value{"kind": "summarize", "groups": float64(len(s.groups))}
}
