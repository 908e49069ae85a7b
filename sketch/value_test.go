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

package sketch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTDigestValueRoundTrip(t *testing.T) {
	td := NewTDigest(50)
	for i := 1; i <= 20; i++ {
		td.Push(float64(i))
	}
	exp := td.Export()

	kind, gotTD, gotUDD, err := FromValue(exp.ToValue())
	require.NoError(t, err)
	assert.Equal(t, TDigestKind, kind)
	assert.Nil(t, gotUDD)
	assert.Equal(t, exp.Count, gotTD.Count)
	assert.Equal(t, exp.Min, gotTD.Min)
	assert.Equal(t, exp.Max, gotTD.Max)
}

func TestTDigestStructRoundTrip(t *testing.T) {
	td := NewTDigest(50)
	for i := 1; i <= 20; i++ {
		td.Push(float64(i))
	}
	exp := td.Export()

	s, err := exp.AsStruct()
	require.NoError(t, err)

	kind, gotTD, gotUDD, err := FromStruct(s)
	require.NoError(t, err)
	assert.Equal(t, TDigestKind, kind)
	assert.Nil(t, gotUDD)
	assert.Equal(t, exp.Count, gotTD.Count)
	assert.InDelta(t, exp.Min, gotTD.Min, 1e-9)
	assert.InDelta(t, exp.Max, gotTD.Max, 1e-9)
}

func TestUDDSketchStructRoundTrip(t *testing.T) {
	u := NewUDDSketch(0.01)
	for i := 1; i <= 20; i++ {
		u.Push(float64(i))
	}
	exp := u.Export()

	s, err := exp.AsStruct()
	require.NoError(t, err)

	kind, gotTD, gotUDD, err := FromStruct(s)
	require.NoError(t, err)
	assert.Equal(t, UDDSketchKind, kind)
	assert.Nil(t, gotTD)
	assert.Equal(t, exp.Count, gotUDD.Count)
}
