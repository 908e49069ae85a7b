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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowql/enginecore/types"
)

type fakeStreamInserter struct {
	calls []string
	recs  []*types.Record
	err   error
}

func (f *fakeStreamInserter) InsertIntoStream(name string, record *types.Record) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, name)
	f.recs = append(f.recs, record)
	return nil
}

func TestInsertIntoRoutesToTargetStream(t *testing.T) {
	streams := &fakeStreamInserter{}
	ins := NewInsertInto("enriched_orders", streams)

	rec := types.NewRecord()
	rec.Set("id", 1.0)
	require.NoError(t, ins.Push(rec))

	require.Len(t, streams.calls, 1)
	assert.Equal(t, "enriched_orders", streams.calls[0])
	assert.Equal(t, rec, streams.recs[0])
}

func TestInsertIntoPropagatesStreamError(t *testing.T) {
	streams := &fakeStreamInserter{err: errors.New("no such stream")}
	ins := NewInsertInto("missing", streams)
	err := ins.Push(types.NewRecord())
	assert.Error(t, err)
}
