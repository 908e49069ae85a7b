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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowql/enginecore/types"
)

func newTestEngine(t *testing.T) *Engine {
	e := New(WithDiscardLog())
	t.Cleanup(e.Close)
	return e
}

func mustExec(t *testing.T, e *Engine, stmt string) *types.Response {
	t.Helper()
	resp := e.Execute(stmt)
	require.True(t, resp.Success, "statement %q failed: %+v", stmt, resp)
	return resp
}

// recordsOf returns the records the named flow's collect sink has gathered
// so far.
func recordsOf(t *testing.T, e *Engine, flowName string) []*types.Record {
	t.Helper()
	e.mu.Lock()
	flow, ok := e.flows[flowName]
	e.mu.Unlock()
	require.True(t, ok, "no such flow %q", flowName)
	require.NotNil(t, flow.Collect, "flow %q has no collect sink", flowName)
	return flow.Collect.Records()
}

func fieldAsFloat(t *testing.T, r *types.Record, key string) float64 {
	t.Helper()
	v, ok := r.Get(key)
	require.True(t, ok, "record missing field %q", key)
	f, ok := types.ToFloat(v)
	require.True(t, ok, "field %q is not numeric: %v", key, v)
	return f
}

// Summarize without window: grouped sums/counts land
// on the sink stream once per group after a single flush.
func TestSummarizeWithoutWindow(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, "create stream sales")
	mustExec(t, e, "create stream out")
	mustExec(t, e, "create flow f as sales | summarize { total_amount: sum(amount), count: count() } by product | insert_into(out)")
	mustExec(t, e, `create flow collector as out | collect`)

	mustExec(t, e, `insert into sales {product:"laptop", amount:1200}`)
	mustExec(t, e, `insert into sales {product:"laptop", amount:1100}`)
	mustExec(t, e, `insert into sales {product:"mouse", amount:25}`)
	mustExec(t, e, `insert into sales {product:"mouse", amount:30}`)
	mustExec(t, e, "flush sales")

	// With no emit clause the policy is flush-only: exactly one final
	// emission per (group, window) after `flush sales`.
	got := recordsOf(t, e, "collector")
	require.Len(t, got, 2)

	byProduct := map[string]*types.Record{}
	for _, r := range got {
		p, _ := r.Get("product")
		byProduct[p.(string)] = r
	}
	require.Contains(t, byProduct, "laptop")
	require.Contains(t, byProduct, "mouse")
	assert.Equal(t, 2300.0, fieldAsFloat(t, byProduct["laptop"], "total_amount"))
	assert.Equal(t, 2.0, fieldAsFloat(t, byProduct["laptop"], "count"))
	assert.Equal(t, 55.0, fieldAsFloat(t, byProduct["mouse"], "total_amount"))
	assert.Equal(t, 2.0, fieldAsFloat(t, byProduct["mouse"], "count"))
}

// Select features: "...*" spreads every input field,
// additional keys are appended.
func TestSelectSpreadAndExtraField(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, "create stream input")
	mustExec(t, e, `create flow f as input | select {...*, extra: "added" } | collect`)

	mustExec(t, e, `insert into input {x:1, name:"test"}`)
	mustExec(t, e, "flush input")

	got := recordsOf(t, e, "f")
	require.Len(t, got, 1)
	rec := got[0]
	assert.Equal(t, 1.0, fieldAsFloat(t, rec, "x"))
	name, _ := rec.Get("name")
	assert.Equal(t, "test", name)
	extra, _ := rec.Get("extra")
	assert.Equal(t, "added", extra)
}

// Field deletion in select: "-name" drops a spread-in field, applied after
// every spread and named pair.
func TestSelectSpreadWithExclusion(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, "create stream input")
	mustExec(t, e, "create flow f as input | select {...*, -name } | collect")

	mustExec(t, e, `insert into input {x:1, name:"test", value:42}`)
	mustExec(t, e, "flush input")

	got := recordsOf(t, e, "f")
	require.Len(t, got, 1)
	rec := got[0]
	assert.Equal(t, 1.0, fieldAsFloat(t, rec, "x"))
	assert.Equal(t, 42.0, fieldAsFloat(t, rec, "value"))
	_, hasName := rec.Get("name")
	assert.False(t, hasName, "excluded field should not survive the spread")
}

// Scan with step state: a single always-true step
// counts the records it has seen and emits its running state alongside the
// triggering record's own field.
func TestScanStepState(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, "create stream input")
	mustExec(t, e, "create flow f as input | scan(step s1: true => s1.count = (s1.count || 0) + 1, emit({...s1, input: x });) | collect")

	mustExec(t, e, "insert into input {x:5}")
	mustExec(t, e, "flush input")

	got := recordsOf(t, e, "f")
	require.Len(t, got, 1)
	rec := got[0]
	assert.Equal(t, 1.0, fieldAsFloat(t, rec, "count"))
	assert.Equal(t, 5.0, fieldAsFloat(t, rec, "input"))
}

// Lookup values are consulted during expression evaluation via the
// lookup(name) scalar function, and `create or replace` bumps the version.
func TestLookupVersioning(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, `create lookup threshold = 10`)
	mustExec(t, e, "create stream input")
	mustExec(t, e, "create stream out")
	mustExec(t, e, "create flow f as input | where amount > lookup(\"threshold\") | insert_into(out)")
	mustExec(t, e, "create flow collector as out | collect")

	mustExec(t, e, "insert into input {amount:5}")
	mustExec(t, e, "insert into input {amount:15}")
	mustExec(t, e, "flush input")

	got := recordsOf(t, e, "collector")
	require.Len(t, got, 1)
	assert.Equal(t, 15.0, fieldAsFloat(t, got[0], "amount"))

	resp := mustExec(t, e, "create or replace lookup threshold = 1")
	assert.True(t, resp.Success)
	e.mu.Lock()
	bumped := e.lookups["threshold"].Version
	e.mu.Unlock()
	assert.Equal(t, 2, bumped)
}

// Flow TTL expiry deletes the flow on its own, without an explicit delete.
func TestFlowTTLExpires(t *testing.T) {
	e := newTestEngine(t)
	mustExec(t, e, "create stream input")
	events := make(chan string, 4)
	e.OnFlowEvent(func(name, event string) { events <- event })
	mustExec(t, e, "create flow f ttl(1s) as input | collect")

	select {
	case ev := <-events:
		assert.Equal(t, "created", ev)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for created event")
	}
	select {
	case ev := <-events:
		assert.Equal(t, "expired", ev)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for expired event")
	}
	e.mu.Lock()
	_, exists := e.flows["f"]
	e.mu.Unlock()
	assert.False(t, exists)
}
