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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowql/enginecore/types"
)

type fakeDiagnostics struct {
	entries []*types.LogEntry
}

func (f *fakeDiagnostics) PublishLog(entry *types.LogEntry) { f.entries = append(f.entries, entry) }

func TestAssertOrSaveExpectedSavesWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expected.ndjson")
	a, err := NewAssertOrSaveExpected(path, nil)
	require.NoError(t, err)
	require.True(t, a.saveMode)

	rec := types.NewRecord()
	rec.Set("b", 2.0)
	rec.Set("a", 1.0)
	require.NoError(t, a.Push(rec))
	require.NoError(t, a.Flush())

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestAssertOrSaveExpectedPassesOnMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expected.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1,"b":2}`+"\n"), 0644))

	diag := &fakeDiagnostics{}
	a, err := NewAssertOrSaveExpected(path, diag)
	require.NoError(t, err)
	require.False(t, a.saveMode)

	rec := types.NewRecord()
	rec.Set("b", 2.0)
	rec.Set("a", 1.0)
	require.NoError(t, a.Push(rec))

	assert.Empty(t, diag.entries)
}

func TestAssertOrSaveExpectedReportsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expected.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`+"\n"), 0644))

	diag := &fakeDiagnostics{}
	a, err := NewAssertOrSaveExpected(path, diag)
	require.NoError(t, err)

	rec := types.NewRecord()
	rec.Set("a", 999.0)
	require.NoError(t, a.Push(rec))

	require.Len(t, diag.entries, 1)
	assert.Equal(t, types.LogError, diag.entries[0].Level)
	assert.Equal(t, types.ErrExecutionFailed, diag.entries[0].Code)
}
