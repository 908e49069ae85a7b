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

	"github.com/flowql/enginecore/functions"
)

// lookupFunction wires the Engine's lookup table into the scalar-function
// registry, so `lookup(name)` is usable from any filter/map/scan/summarize
// expression exactly like a built-in.
type lookupFunction struct {
	functions.Signature
	engine *Engine
}

func (f *lookupFunction) Execute(args []interface{}) (interface{}, error) {
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("lookup: name must be a string")
	}
	f.engine.mu.Lock()
	l, exists := f.engine.lookups[name]
	f.engine.mu.Unlock()
	if !exists {
		return nil, fmt.Errorf("lookup %q not found", name)
	}
	return l.Value, nil
}

// registerLookupFunction installs `lookup` into e.Functions. Called once
// from New, after both the registry and lookup table exist.
func (e *Engine) registerLookupFunction() {
	fn := &lookupFunction{
		Signature: functions.NewSignature("lookup", functions.TypeCustom, 1, 1),
		engine:    e,
	}
	_ = e.Functions.Register(fn)
}
