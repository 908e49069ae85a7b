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
	"sync"

	"github.com/flowql/enginecore/types"
)

// Collector is the `collect` terminal sink (dsl.CollectOp): a diagnostic
// buffer that retains every record handed to it so a test harness or the
// control-plane `info` surface can inspect a flow's output without wiring
// a file or a second stream.
type Collector struct {
	base

	mu      sync.Mutex
	records []*types.Record
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Push(record *types.Record) error {
	c.mu.Lock()
	c.records = append(c.records, record)
	c.mu.Unlock()
	return c.Emit(record)
}

// Records returns a snapshot of every record collected so far.
func (c *Collector) Records() []*types.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.Record, len(c.records))
	copy(out, c.records)
	return out
}

func (c *Collector) Flush() error { return c.FlushNext() }
func (c *Collector) Cancel()      { c.CancelNext() }

func (c *Collector) Describe() map[string]types.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]types.Value{"kind": "collect", "records": float64(len(c.records))}
}
