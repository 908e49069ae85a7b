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

package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowql/enginecore/expr"
)

func parseOne(t *testing.T, src string) Statement {
	t.Helper()
	prog, err := ParseProgram(src)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)
	return prog.Statements[0]
}

func TestParseCreateStream(t *testing.T) {
	st := parseOne(t, "create stream sensor_events")
	cs, ok := st.(*CreateStreamStmt)
	require.True(t, ok)
	assert.Equal(t, "sensor_events", cs.Name)
	assert.Equal(t, CreateDefault, cs.Existence)
}

func TestParseCreateModifiers(t *testing.T) {
	st := parseOne(t, "create or replace stream s")
	assert.Equal(t, CreateOrReplace, st.(*CreateStreamStmt).Existence)

	st = parseOne(t, "create if not exists stream s")
	assert.Equal(t, CreateIfNotExists, st.(*CreateStreamStmt).Existence)
}

func TestParseCreateFlowWithTTL(t *testing.T) {
	st := parseOne(t, "create flow f ttl(5m) as input | where x > 1 | insert_into(out)")
	cf, ok := st.(*CreateFlowStmt)
	require.True(t, ok)
	assert.Equal(t, "f", cf.Name)
	require.NotNil(t, cf.TTL)
	_, ok = cf.TTL.(*expr.DurationLit)
	assert.True(t, ok)
	require.Len(t, cf.Query.Operations, 2)
	_, ok = cf.Query.Operations[0].(*WhereOp)
	assert.True(t, ok)
	ii, ok := cf.Query.Operations[1].(*InsertIntoOp)
	require.True(t, ok)
	assert.Equal(t, "out", ii.Target)
}

func TestParseInsertJSONValue(t *testing.T) {
	st := parseOne(t, `insert into sales {product:"laptop", amount:1200}`)
	ins, ok := st.(*InsertStmt)
	require.True(t, ok)
	assert.Equal(t, "sales", ins.Target)
	_, ok = ins.Value.(*expr.ObjectLit)
	assert.True(t, ok)
}

func TestParseMultipleStatements(t *testing.T) {
	prog, err := ParseProgram("create stream a; create stream b; flush a;")
	require.NoError(t, err)
	assert.Len(t, prog.Statements, 3)
}

func TestParseListKinds(t *testing.T) {
	assert.Equal(t, ListStreams, parseOne(t, "list").(*ListStmt).Kind)
	assert.Equal(t, ListFlows, parseOne(t, "list flows").(*ListStmt).Kind)
	assert.Equal(t, ListSubscriptions, parseOne(t, "list subscriptions").(*ListStmt).Kind)
}

// Command-starting words are ordinary identifiers when they are not at the
// start of a statement.
func TestCommandKeywordAsIdentifier(t *testing.T) {
	st := parseOne(t, "create stream insert")
	assert.Equal(t, "insert", st.(*CreateStreamStmt).Name)

	st = parseOne(t, "events | where list > 3 | collect")
	q, ok := st.(*PipelineQueryStmt)
	require.True(t, ok)
	assert.Equal(t, "events", q.Source)
}

func TestParseScanStatements(t *testing.T) {
	st := parseOne(t, "create flow f as input | scan(step s1: true => s1.count = (s1.count || 0) + 1, emit({x: 1});) | collect")
	cf := st.(*CreateFlowStmt)
	scanOp, ok := cf.Query.Operations[0].(*ScanOp)
	require.True(t, ok)
	require.Len(t, scanOp.Steps, 1)
	step := scanOp.Steps[0]
	assert.Equal(t, "s1", step.Name)
	require.Len(t, step.Statements, 2)
	asn, ok := step.Statements[0].(*ScanAssignStmt)
	require.True(t, ok)
	assert.Equal(t, []string{"s1", "count"}, asn.Target)
	_, ok = step.Statements[1].(*ScanEmitStmt)
	assert.True(t, ok)
}

func TestParseScanMultipleSteps(t *testing.T) {
	st := parseOne(t, "input | scan(step a: state == null => a.low = price, step b: price > b.low => b.high = price, emit({low: b.low, high: b.high});)")
	q := st.(*PipelineQueryStmt)
	scanOp := q.Operations[0].(*ScanOp)
	require.Len(t, scanOp.Steps, 2)
	assert.Equal(t, "a", scanOp.Steps[0].Name)
	assert.Equal(t, "b", scanOp.Steps[1].Name)
	assert.Len(t, scanOp.Steps[1].Statements, 2)
}

func TestParseSummarizeClauses(t *testing.T) {
	st := parseOne(t, "input | summarize { total: sum(amount) } by region over tumbling_window(5m, ts) emit emit_every(10)")
	q := st.(*PipelineQueryStmt)
	sm, ok := q.Operations[0].(*SummarizeOp)
	require.True(t, ok)
	require.NotNil(t, sm.GroupKey)
	require.NotNil(t, sm.WindowDef)
	assert.Equal(t, "tumbling_window", sm.WindowDef.Name)
	require.NotNil(t, sm.EmitDef)
	assert.Equal(t, "emit_every", sm.EmitDef.Name)
}

func TestParseWriteToFileWithOptions(t *testing.T) {
	st := parseOne(t, `input | write_to_file("/tmp/out.ndjson", { mode: "append", fsync_every: 5s })`)
	q := st.(*PipelineQueryStmt)
	w, ok := q.Operations[0].(*WriteToFileOp)
	require.True(t, ok)
	require.NotNil(t, w.Options)
}

func TestParseSyntaxErrorReportsOffset(t *testing.T) {
	_, err := ParseProgram("create stream &bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset")
}
