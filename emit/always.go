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

// alwaysFactory emits on every push: each record re-materializes its
// (group, window) downstream.
type alwaysFactory struct{}

// Always returns the emit-on-every-push policy.
func Always() Factory { return &alwaysFactory{} }

func (alwaysFactory) CreateEmitFunc() Func {
	return Func{
		ShouldEmit: func(item *types.Record, groupKey types.Value, changed bool) bool { return true },
		ForceEmit:  func() bool { return true },
		Info:       func() map[string]types.Value { return map[string]types.Value{"kind": "always"} },
	}
}

// onFlushFactory is the default policy when `summarize` carries no `emit`
// clause: nothing is emitted per push; every live (group, window) is
// materialized exactly once when the pipeline flushes.
type onFlushFactory struct{}

// OnFlush returns the flush-only default emit policy.
func OnFlush() Factory { return &onFlushFactory{} }

func (onFlushFactory) CreateEmitFunc() Func {
	return Func{
		ShouldEmit: func(item *types.Record, groupKey types.Value, changed bool) bool { return false },
		ForceEmit:  func() bool { return true },
		Info:       func() map[string]types.Value { return map[string]types.Value{"kind": "on_flush"} },
	}
}
