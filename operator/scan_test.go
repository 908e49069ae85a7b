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

	"github.com/flowql/enginecore/expr"
	"github.com/flowql/enginecore/functions"
	"github.com/flowql/enginecore/types"
)

// newTwoStepScan builds a scan matching "low price, then a higher price",
// emitting {low, high} once the second step fires. Both steps reference the
// accumulated state record under the canonical "state" key, as the DSL
// compiler rewrites a source-level step identifier to.
func newTwoStepScan(t *testing.T, ev *expr.Evaluator) *Scan {
	step0 := ScanStep{
		Name:      "s1",
		Condition: parseExpr(t, "state == null"),
		Assignments: []ScanAssignment{
			{Field: "low", Value: parseExpr(t, "price")},
		},
	}
	step1 := ScanStep{
		Name:      "s2",
		Condition: parseExpr(t, "price > state.low"),
		Assignments: []ScanAssignment{
			{Field: "low", Value: parseExpr(t, "state.low")},
			{Field: "high", Value: parseExpr(t, "price")},
		},
		Emit: parseExpr(t, "{ low: state.low, high: state.high }"),
	}
	return NewScan(ev, []ScanStep{step0, step1})
}

func TestScanPromotesAcrossSteps(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	s := newTwoStepScan(t, ev)
	c := &collector{}
	NewPipeline(s, c)

	low := types.NewRecord()
	low.Set("price", 5.0)
	require.NoError(t, s.Push(low))
	require.Empty(t, c.records, "first step alone should not emit")

	high := types.NewRecord()
	high.Set("price", 8.0)
	require.NoError(t, s.Push(high))

	require.Len(t, c.records, 1)
	lowOut, _ := c.records[0].Get("low")
	highOut, _ := c.records[0].Get("high")
	assert.Equal(t, 5.0, lowOut)
	assert.Equal(t, 8.0, highOut)
}

func TestScanDoesNotRetryPromotedStateSameTick(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	s := newTwoStepScan(t, ev)
	c := &collector{}
	NewPipeline(s, c)

	first := types.NewRecord()
	first.Set("price", 5.0)
	require.NoError(t, s.Push(first))

	require.NotNil(t, s.state[0], "step 0 should hold pending state after first push")
}

func TestScanFlushDoesNotEmitPartialMatches(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	s := newTwoStepScan(t, ev)
	c := &collector{}
	NewPipeline(s, c)

	rec := types.NewRecord()
	rec.Set("price", 5.0)
	require.NoError(t, s.Push(rec))
	require.NoError(t, s.Flush())

	assert.Empty(t, c.records)
	assert.Equal(t, 1, c.flushes)
}

func TestScanCancelClearsState(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	s := newTwoStepScan(t, ev)
	c := &collector{}
	NewPipeline(s, c)

	rec := types.NewRecord()
	rec.Set("price", 5.0)
	require.NoError(t, s.Push(rec))
	s.Cancel()

	for _, st := range s.state {
		assert.Nil(t, st)
	}
	assert.Equal(t, 1, c.cancels)
}
