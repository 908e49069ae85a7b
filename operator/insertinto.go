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

import "github.com/flowql/enginecore/types"

// StreamInserter is the subset of the stream manager a pipeline sink
// needs; satisfied by *stream.Manager.
type StreamInserter interface {
	InsertIntoStream(name string, record *types.Record) error
}

// InsertInto implements the `insert_into` sink: every pushed record is
// routed into the named target stream.
type InsertInto struct {
	base
	Target  string
	Streams StreamInserter
}

func NewInsertInto(target string, streams StreamInserter) *InsertInto {
	return &InsertInto{Target: target, Streams: streams}
}

func (i *InsertInto) Push(record *types.Record) error {
	return i.Streams.InsertIntoStream(i.Target, record)
}

func (i *InsertInto) Flush() error { return i.FlushNext() }
func (i *InsertInto) Cancel()      { i.CancelNext() }

func (i *InsertInto) Describe() map[string]types.Value {
	return map[string]types.Value{"kind": "insert_into", "target": i.Target}
}
