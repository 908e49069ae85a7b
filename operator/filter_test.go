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

func parseExpr(t *testing.T, src string) expr.Node {
	t.Helper()
	node, err := expr.Parse(src)
	require.NoError(t, err)
	return node
}

func TestFilterEmitsOnlyWhenPredicateTruthy(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	pred := parseExpr(t, "amount > 100")
	f := NewFilter(ev, pred)
	c := &collector{}
	NewPipeline(f, c)

	low := types.NewRecord()
	low.Set("amount", 50.0)
	high := types.NewRecord()
	high.Set("amount", 150.0)

	require.NoError(t, f.Push(low))
	require.NoError(t, f.Push(high))

	require.Len(t, c.records, 1)
	assert.Equal(t, high, c.records[0])
}

func TestFilterFlushIsPassthrough(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	f := NewFilter(ev, parseExpr(t, "true"))
	c := &collector{}
	NewPipeline(f, c)
	require.NoError(t, f.Flush())
	assert.Equal(t, 1, c.flushes)
}
