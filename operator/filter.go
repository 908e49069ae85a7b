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

// Filter implements `where`: emits the input record iff the compiled
// predicate evaluates truthy. Stateless; flush and cancel only propagate.
type Filter struct {
	base
	Evaluator *expr.Evaluator
	Predicate expr.Node
}

// NewFilter compiles nothing further — predicate is already a parsed Node;
// the Evaluator is shared with the owning pipeline's other operators.
func NewFilter(evaluator *expr.Evaluator, predicate expr.Node) *Filter {
	return &Filter{Evaluator: evaluator, Predicate: predicate}
}

func (f *Filter) Push(record *types.Record) error {
	v, err := f.Evaluator.Eval(f.Predicate, record)
	if err != nil {
		return err
	}
	if !types.Truthy(v) {
		return nil
	}
	return f.Emit(record)
}

func (f *Filter) Flush() error { return f.FlushNext() }
func (f *Filter) Cancel()      { f.CancelNext() }

func (f *Filter) Describe() map[string]types.Value {
	return map[string]types.Value{"kind": "filter"}
}
