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

// Package aggregator implements the aggregator registry: a
// name-to-constructor table for incremental aggregators exposing
// push/result/reset/clone.
package aggregator

import (
	"fmt"
	"strings"
	"sync"
)

// Aggregator is an incremental aggregator. Non-numeric values
// pushed to a numeric aggregator (sum, tdigest, uddsketch) are ignored.
type Aggregator interface {
	Push(value interface{})
	Result() interface{}
	Reset()
	Clone() Aggregator
}

// Factory builds an Aggregator instance. params carries any constructor
// configuration evaluated once at compile time (e.g. tdigest's
// compression); it is nil for aggregators that take none.
type Factory func(params []interface{}) (Aggregator, error)

// Registry is a per-engine owned aggregator table.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a Registry pre-populated with the built-in
// aggregators: count, sum, tdigest and uddsketch.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("count", func(params []interface{}) (Aggregator, error) { return NewCount(), nil })
	r.Register("sum", func(params []interface{}) (Aggregator, error) { return NewSum(), nil })
	r.Register("tdigest", newTDigestFactory)
	r.Register("uddsketch", newUDDSketchFactory)
	return r
}

// Register installs a named factory, overwriting any previous registration
// under that name — used both for the built-ins above and for user-defined
// aggregators.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = factory
}

// Has reports whether name is a registered aggregator.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[strings.ToLower(name)]
	return ok
}

// New constructs a fresh aggregator instance for name.
func (r *Registry) New(name string, params []interface{}) (Aggregator, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("aggregator %s not found", name)
	}
	return factory(params)
}
