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

package emit

import "github.com/flowql/enginecore/types"

// Predicate evaluates a compiled boolean expression against an item.
type Predicate func(item *types.Record) (bool, error)

// whenFactory implements emit_when(predicate).
type whenFactory struct{ predicate Predicate }

func When(predicate Predicate) Factory { return &whenFactory{predicate: predicate} }

func (f *whenFactory) CreateEmitFunc() Func {
	return Func{
		ShouldEmit: func(item *types.Record, groupKey types.Value, changed bool) bool {
			ok, err := f.predicate(item)
			return err == nil && ok
		},
		ForceEmit: func() bool { return true },
		Info:      func() map[string]types.Value { return map[string]types.Value{"kind": "emit_when"} },
	}
}

// onChangeFactory implements emit_on_change(valueExpr): emits
// whenever the extracted value differs from the previously seen one,
// including the very first observation.
type onChangeFactory struct{ extractor ValueExtractor }

func OnChange(extractor ValueExtractor) Factory { return &onChangeFactory{extractor: extractor} }

func (f *onChangeFactory) CreateEmitFunc() Func {
	var (
		hasLast bool
		last    types.Value
	)
	return Func{
		ShouldEmit: func(item *types.Record, groupKey types.Value, changed bool) bool {
			v, err := f.extractor(item)
			if err != nil {
				return false
			}
			if !hasLast || !types.Equal(v, last) {
				hasLast = true
				last = v
				return true
			}
			return false
		},
		ForceEmit: func() bool { return true },
		Info:      func() map[string]types.Value { return map[string]types.Value{"kind": "emit_on_change"} },
	}
}

// onGroupChangeFactory implements emit_on_group_change.
type onGroupChangeFactory struct{}

func OnGroupChange() Factory { return &onGroupChangeFactory{} }

func (f *onGroupChangeFactory) CreateEmitFunc() Func {
	var (
		hasLast bool
		last    types.Value
	)
	return Func{
		ShouldEmit: func(item *types.Record, groupKey types.Value, changed bool) bool {
			if !hasLast || !types.Equal(groupKey, last) {
				hasLast = true
				last = groupKey
				return true
			}
			return false
		},
		ForceEmit: func() bool { return true },
		Info:      func() map[string]types.Value { return map[string]types.Value{"kind": "emit_on_group_change"} },
	}
}

// onUpdateFactory implements emit_on_update: emits only when
// summarize reports at least one aggregator's value changed at this push.
type onUpdateFactory struct{}

func OnUpdate() Factory { return &onUpdateFactory{} }

func (f *onUpdateFactory) CreateEmitFunc() Func {
	return Func{
		ShouldEmit: func(item *types.Record, groupKey types.Value, changed bool) bool { return changed },
		ForceEmit:  func() bool { return true },
		Info:       func() map[string]types.Value { return map[string]types.Value{"kind": "emit_on_update"} },
	}
}
