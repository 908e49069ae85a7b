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

func TestProjectorEmitsObjectLitAsRecord(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	proj := parseExpr(t, "{ total: amount * 2 }")
	p := NewProjector(ev, proj)
	c := &collector{}
	NewPipeline(p, c)

	in := types.NewRecord()
	in.Set("amount", 10.0)
	require.NoError(t, p.Push(in))

	require.Len(t, c.records, 1)
	total, ok := c.records[0].Get("total")
	require.True(t, ok)
	assert.Equal(t, 20.0, total)
}

func TestProjectorWrapsNonRecordResult(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	proj := parseExpr(t, "amount * 3")
	p := NewProjector(ev, proj)
	c := &collector{}
	NewPipeline(p, c)

	in := types.NewRecord()
	in.Set("amount", 5.0)
	require.NoError(t, p.Push(in))

	require.Len(t, c.records, 1)
	v, ok := c.records[0].Get("value")
	require.True(t, ok)
	assert.Equal(t, 15.0, v)
}

func TestProjectorFlushIsPassthrough(t *testing.T) {
	ev := expr.NewEvaluator(functions.NewRegistry())
	p := NewProjector(ev, parseExpr(t, "1"))
	c := &collector{}
	NewPipeline(p, c)
	require.NoError(t, p.Flush())
	assert.Equal(t, 1, c.flushes)
}
