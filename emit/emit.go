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

// Package emit implements the emit policies consumed by summarize:
// strategies deciding, per incoming record, whether a (group, window)
// materialization is handed downstream.
package emit

import (
	"time"

	"github.com/flowql/enginecore/types"
)

// Func is the per-record decision surface a policy exposes.
type Func struct {
	ShouldEmit func(item *types.Record, groupKey types.Value, changed bool) bool
	ForceEmit  func() bool
	Info       func() map[string]types.Value
}

// Factory is an emit policy: it yields a fresh Func per
// pipeline instance so policies with internal state (last-seen value,
// last-emitted wall-clock tick) are not shared across pipelines.
type Factory interface {
	CreateEmitFunc() Func
}

// ValueExtractor computes the comparison value an emit policy keys off
// (emit_every's valueExpr, emit_on_change's valueExpr).
type ValueExtractor func(record *types.Record) (types.Value, error)

// now is overridable in tests; production code always uses time.Now.
var now = time.Now
