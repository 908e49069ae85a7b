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

// Package operator implements the pipeline runtime contract and
// the concrete operator kinds a flow's pipeline is built from: filter,
// map/select, scan, sorter, summarize, and the sink operators insert_into,
// write_to_file and assert_or_save_expected.
package operator

import (
	"sync"

	"github.com/flowql/enginecore/types"
)

// Operator is the runtime contract every pipeline stage implements.
// Link installs the downstream operator this one hands records and
// flush/cancel calls to.
type Operator interface {
	Push(record *types.Record) error
	Flush() error
	Cancel()
	Link(next Operator)
	// Describe reports operator-kind-specific introspection state (e.g.
	// scan's live step table) for the `info` control-plane surface.
	Describe() map[string]types.Value
}

// base is embedded by every concrete operator kind. next is resolved once at
// pipeline-build time and held as a plain interface value — the direct link
// to the next stage, avoiding a registry lookup or type switch on the hot
// per-record path.
type base struct {
	next Operator
}

func (b *base) Link(next Operator) { b.next = next }

// Emit hands record to the downstream operator, or does nothing at a
// pipeline's terminal (sink) stage.
func (b *base) Emit(record *types.Record) error {
	if b.next == nil {
		return nil
	}
	return b.next.Push(record)
}

// FlushNext propagates flush downstream; every operator's own Flush calls
// this after draining its own buffers.
func (b *base) FlushNext() error {
	if b.next == nil {
		return nil
	}
	return b.next.Flush()
}

func (b *base) CancelNext() {
	if b.next != nil {
		b.next.Cancel()
	}
}

// Pipeline chains a head-to-tail sequence of Operators and tracks a
// cooperative back-pressure pending count: Finish blocks until every Push
// that has started has completed.
type Pipeline struct {
	Head Operator
	ops  []Operator

	mu      sync.Mutex
	cond    *sync.Cond
	pending int64
}

// NewPipeline links ops in order and returns the owning Pipeline. ops must
// be non-empty; the last element is typically a sink with no further Link
// call.
func NewPipeline(ops ...Operator) *Pipeline {
	p := &Pipeline{ops: ops}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i+1 < len(ops); i++ {
		ops[i].Link(ops[i+1])
	}
	if len(ops) > 0 {
		p.Head = ops[0]
	}
	return p
}

// Push feeds one record to the pipeline head, tracking it against the
// pending counter Finish waits on.
func (p *Pipeline) Push(record *types.Record) error {
	if p.Head == nil {
		return nil
	}
	p.begin()
	defer p.end()
	return p.Head.Push(record)
}

func (p *Pipeline) begin() {
	p.mu.Lock()
	p.pending++
	p.mu.Unlock()
}

func (p *Pipeline) end() {
	p.mu.Lock()
	p.pending--
	if p.pending == 0 {
		p.cond.Broadcast()
	}
	p.mu.Unlock()
}

// Finish blocks until every Push call that has started has returned.
func (p *Pipeline) Finish() {
	p.mu.Lock()
	for p.pending > 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Flush drains the pipeline head (which recursively drains and flushes
// every downstream stage) and then waits for quiescence.
func (p *Pipeline) Flush() error {
	if p.Head == nil {
		return nil
	}
	err := p.Head.Flush()
	p.Finish()
	return err
}

// Cancel tears down every stage from the head.
func (p *Pipeline) Cancel() {
	if p.Head != nil {
		p.Head.Cancel()
	}
}

// Operators returns the pipeline's stages in declaration order, for
// introspection (`info`).
func (p *Pipeline) Operators() []Operator {
	out := make([]Operator, len(p.ops))
	copy(out, p.ops)
	return out
}
