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

// Package window implements the window factories consumed by summarize:
// tumbling, hopping, sliding, session and count windows, each producing
// zero or more Descriptors for an incoming record.
package window

import (
	"fmt"

	"github.com/flowql/enginecore/types"
)

// Mode distinguishes a window keyed by record count from one keyed by an
// extracted numeric value.
type Mode string

const (
	ModeCount Mode = "count"
	ModeValue Mode = "value"
)

// Kind names the window strategy, carried on Descriptor for diagnostics and
// wire serialization.
type Kind string

const (
	KindTumbling Kind = "tumbling"
	KindHopping  Kind = "hopping"
	KindSliding  Kind = "sliding"
	KindSession  Kind = "session"
	KindCount    Kind = "count"
)

// Descriptor identifies one window instance a record belongs to.
type Descriptor struct {
	ID       string
	WindowID string
	Start    float64
	End      float64
	Type     Kind
	Mode     Mode
}

// ValueExtractor computes the ordering value a value-mode window keys off.
// It mirrors the DSL's valueExpr: a compiled field path or callback.
type ValueExtractor func(record *types.Record) (float64, error)

// FieldExtractor builds a ValueExtractor for a dotted field path, erroring
// when the field is absent or not numeric.
func FieldExtractor(path []string, get func(*types.Record, []string) (types.Value, bool)) ValueExtractor {
	return func(record *types.Record) (float64, error) {
		v, ok := get(record, path)
		if !ok {
			return 0, fmt.Errorf("window value field not present")
		}
		f, ok := types.ToFloat(v)
		if !ok {
			return 0, fmt.Errorf("window value is not numeric")
		}
		return f, nil
	}
}

// Func is a per-record window-assignment callable, produced by a Factory's
// CreateWindowFunc.
type Func func(record *types.Record) ([]Descriptor, error)

// Factory is a window strategy: it yields a fresh per-pipeline
// Func closing over its own counters/buffers, so the same factory can be
// reused across pipeline instances without shared mutable state.
type Factory interface {
	CreateWindowFunc() Func
}

func windowID(kind Kind, start float64) string {
	return fmt.Sprintf("%s:%v", kind, start)
}
