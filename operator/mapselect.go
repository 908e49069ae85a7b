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
	"github.com/flowql/enginecore/expr"
	"github.com/flowql/enginecore/types"
)

// Projector implements `map`/`select`: evaluate one projection
// expression per input record and emit exactly one record. `select`'s
// grammar always compiles to an *expr.ObjectLit, whose shorthand/spread/
// exclusion semantics (exclusions applied after spreads and named pairs)
// are already implemented by expr.Evaluator.Eval; `map` allows an arbitrary
// expression, wrapped into a single-field record when it does not already
// evaluate to one.
type Projector struct {
	base
	Evaluator  *expr.Evaluator
	Projection expr.Node
}

func NewProjector(evaluator *expr.Evaluator, projection expr.Node) *Projector {
	return &Projector{Evaluator: evaluator, Projection: projection}
}

func (p *Projector) Push(record *types.Record) error {
	v, err := p.Evaluator.Eval(p.Projection, record)
	if err != nil {
		return err
	}
	out, ok := v.(*types.Record)
	if !ok {
		out = types.NewRecord()
		out.Set("value", v)
	}
	return p.Emit(out)
}

func (p *Projector) Flush() error { return p.FlushNext() }
func (p *Projector) Cancel()      { p.CancelNext() }

func (p *Projector) Describe() map[string]types.Value {
	return map[string]types.Value{"kind": "select"}
}
