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

	"github.com/flowql/enginecore/aggregator"
	"github.com/flowql/enginecore/expr"
	"github.com/flowql/enginecore/functions"
	"github.com/flowql/enginecore/types"
)

func compileTemplate(t *testing.T, src string) *expr.AggregationExpression {
	t.Helper()
	node, err := expr.Parse(src)
	require.NoError(t, err)
	compiler := expr.NewCompiler(functions.NewRegistry(), aggregator.NewRegistry())
	tmpl, err := compiler.Compile(node)
	require.NoError(t, err)
	return tmpl
}

func TestSummarizeGroupsAndAggregates(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	tmpl := compileTemplate(t, "{ total_amount: sum(amount), count: count(amount) }")
	groupKey := parseExpr(t, "product")

	s := NewSummarize(ev, tmpl, groupKey, nil, nil, "window")
	c := &collector{}
	NewPipeline(s, c)

	mouse1 := types.NewRecord()
	mouse1.Set("product", "mouse")
	mouse1.Set("amount", 25.0)
	mouse2 := types.NewRecord()
	mouse2.Set("product", "mouse")
	mouse2.Set("amount", 30.0)

	require.NoError(t, s.Push(mouse1))
	require.NoError(t, s.Push(mouse2))
	require.Empty(t, c.records, "flush-only default policy holds emissions back")

	require.NoError(t, s.Flush())
	require.Len(t, c.records, 1, "one final emission per (group, window)")
	last := c.records[0]
	product, _ := last.Get("product")
	total, _ := last.Get("total_amount")
	count, _ := last.Get("count")
	assert.Equal(t, "mouse", product)
	assert.Equal(t, 55.0, total)
	assert.Equal(t, 2.0, count)
}

func TestSummarizeKeepsGroupsIndependent(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	tmpl := compileTemplate(t, "{ total_amount: sum(amount) }")
	groupKey := parseExpr(t, "product")

	s := NewSummarize(ev, tmpl, groupKey, nil, nil, "window")
	c := &collector{}
	NewPipeline(s, c)

	mouse := types.NewRecord()
	mouse.Set("product", "mouse")
	mouse.Set("amount", 10.0)
	keyboard := types.NewRecord()
	keyboard.Set("product", "keyboard")
	keyboard.Set("amount", 99.0)

	require.NoError(t, s.Push(mouse))
	require.NoError(t, s.Push(keyboard))
	require.NoError(t, s.Flush())

	require.Len(t, c.records, 2)
	totals := map[string]types.Value{}
	for _, r := range c.records {
		p, _ := r.Get("product")
		v, _ := r.Get("total_amount")
		totals[p.(string)] = v
	}
	assert.Equal(t, 10.0, totals["mouse"])
	assert.Equal(t, 99.0, totals["keyboard"])
}

func TestSummarizeFlushClearsGroups(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	tmpl := compileTemplate(t, "{ total_amount: sum(amount) }")
	groupKey := parseExpr(t, "product")

	s := NewSummarize(ev, tmpl, groupKey, nil, nil, "window")
	c := &collector{}
	NewPipeline(s, c)

	rec := types.NewRecord()
	rec.Set("product", "mouse")
	rec.Set("amount", 5.0)
	require.NoError(t, s.Push(rec))
	require.NoError(t, s.Flush())

	assert.Empty(t, s.groups)
	assert.Equal(t, 1, c.flushes)
}
