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

package aggregator

import (
	"github.com/flowql/enginecore/types"
)

// Count counts pushes, ignoring its argument entirely.
type Count struct{ n int64 }

func NewCount() *Count { return &Count{} }

func (c *Count) Push(value interface{}) { c.n++ }
func (c *Count) Result() interface{}    { return float64(c.n) }
func (c *Count) Reset()                 { c.n = 0 }
func (c *Count) Clone() Aggregator      { return &Count{n: c.n} }

// Sum accumulates a numeric total; non-numbers are ignored.
type Sum struct{ total float64 }

func NewSum() *Sum { return &Sum{} }

func (s *Sum) Push(value interface{}) {
	if f, ok := types.ToFloat(value); ok {
		s.total += f
	}
}
func (s *Sum) Result() interface{} { return s.total }
func (s *Sum) Reset()              { s.total = 0 }
func (s *Sum) Clone() Aggregator   { return &Sum{total: s.total} }
