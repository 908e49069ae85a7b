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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowql/enginecore/types"
)

// collector is a terminal test double recording every pushed record and
// flush/cancel call.
type collector struct {
	base
	records []*types.Record
	flushes int
	cancels int
}

func (c *collector) Push(r *types.Record) error { c.records = append(c.records, r); return nil }
func (c *collector) Flush() error               { c.flushes++; return nil }
func (c *collector) Cancel()                    { c.cancels++ }
func (c *collector) Describe() map[string]types.Value {
	return map[string]types.Value{"kind": "collector"}
}

// passthrough is a one-stage no-op used to verify Link/Emit chaining.
type passthrough struct{ base }

func (p *passthrough) Push(r *types.Record) error       { return p.Emit(r) }
func (p *passthrough) Flush() error                     { return p.FlushNext() }
func (p *passthrough) Cancel()                          { p.CancelNext() }
func (p *passthrough) Describe() map[string]types.Value { return nil }

func TestPipelineLinksAndEmits(t *testing.T) {
	pt := &passthrough{}
	c := &collector{}
	pipe := NewPipeline(pt, c)

	rec := types.NewRecord()
	rec.Set("x", 1.0)
	require.NoError(t, pipe.Push(rec))
	pipe.Finish()

	require.Len(t, c.records, 1)
	assert.Equal(t, rec, c.records[0])
}

func TestPipelineFlushPropagatesAndWaits(t *testing.T) {
	pt := &passthrough{}
	c := &collector{}
	pipe := NewPipeline(pt, c)

	require.NoError(t, pipe.Flush())
	assert.Equal(t, 1, c.flushes)
}

func TestPipelineCancelPropagates(t *testing.T) {
	pt := &passthrough{}
	c := &collector{}
	pipe := NewPipeline(pt, c)
	pipe.Cancel()
	assert.Equal(t, 1, c.cancels)
}

func TestBaseEmitIsNoopAtTerminal(t *testing.T) {
	c := &collector{}
	require.NoError(t, c.Emit(types.NewRecord()))
	assert.Empty(t, c.records)
}
