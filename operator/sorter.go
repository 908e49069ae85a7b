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
	"sort"
	"time"

	"github.com/flowql/enginecore/types"
)

// KeyExtractor pulls the ordering key out of a record for the sorter.
type KeyExtractor func(record *types.Record) (types.Value, error)

const (
	DefaultSorterMaxBuffer = 100
	DefaultSorterMaxAge    = 5 * time.Second
)

type sorterEntry struct {
	record  *types.Record
	key     types.Value
	arrived time.Time
}

// Sorter is the bounded out-of-order reordering operator. It keeps two
// orderings of the same buffered entries — by key (for in-order emission)
// and by arrival (whose oldest entry's age decides when to evict) — and
// tracks a watermark, the largest key ever emitted; any push with a
// smaller key is dropped as late. Evictions always emit the smallest
// buffered key, so downstream sees a non-decreasing key sequence no matter
// which trigger (age, capacity, readiness) forced the eviction.
type Sorter struct {
	base

	KeyExtractor  KeyExtractor
	MaxBufferSize int
	MaxAge        time.Duration

	byArrival []*sorterEntry
	byKey     []*sorterEntry

	hasWatermark bool
	watermark    types.Value

	// lateDropped counts records rejected for arriving below the
	// watermark, exposed via Describe so late data is visible without a
	// log line per dropped record.
	lateDropped int64

	now func() time.Time
}

func NewSorter(extractor KeyExtractor, maxBufferSize int, maxAge time.Duration) *Sorter {
	if maxBufferSize <= 0 {
		maxBufferSize = DefaultSorterMaxBuffer
	}
	if maxAge <= 0 {
		maxAge = DefaultSorterMaxAge
	}
	return &Sorter{
		KeyExtractor:  extractor,
		MaxBufferSize: maxBufferSize,
		MaxAge:        maxAge,
		now:           time.Now,
	}
}

func (s *Sorter) Push(record *types.Record) error {
	key, err := s.KeyExtractor(record)
	if err != nil {
		return err
	}
	if s.hasWatermark {
		if less, ok := types.Less(key, s.watermark); ok && less {
			s.lateDropped++
			return nil
		}
	}

	now := s.now()
	if err := s.evictExpired(now); err != nil {
		return err
	}

	entry := &sorterEntry{record: record, key: key, arrived: now}
	s.byArrival = append(s.byArrival, entry)
	s.insertByKey(entry)

	for len(s.byArrival) >= s.MaxBufferSize {
		if err := s.emitSmallest(); err != nil {
			return err
		}
	}

	for len(s.byArrival) > 0 {
		oldest := s.byArrival[0]
		age := now.Sub(oldest.arrived)
		full := float64(len(s.byArrival)) >= 0.8*float64(s.MaxBufferSize)
		if age > s.MaxAge/2 || full {
			if err := s.emitSmallest(); err != nil {
				return err
			}
			continue
		}
		break
	}
	return nil
}

func (s *Sorter) insertByKey(e *sorterEntry) {
	i := sort.Search(len(s.byKey), func(i int) bool {
		less, ok := types.Less(e.key, s.byKey[i].key)
		return ok && less
	})
	s.byKey = append(s.byKey, nil)
	copy(s.byKey[i+1:], s.byKey[i:])
	s.byKey[i] = e
}

func (s *Sorter) evictExpired(now time.Time) error {
	for len(s.byArrival) > 0 && now.Sub(s.byArrival[0].arrived) > s.MaxAge {
		if err := s.emitSmallest(); err != nil {
			return err
		}
	}
	return nil
}

// emitSmallest removes the smallest-key entry from both orderings and hands
// it downstream, advancing the watermark.
func (s *Sorter) emitSmallest() error {
	if len(s.byKey) == 0 {
		return nil
	}
	e := s.byKey[0]
	s.byKey = s.byKey[1:]
	for i, a := range s.byArrival {
		if a == e {
			s.byArrival = append(s.byArrival[:i], s.byArrival[i+1:]...)
			break
		}
	}
	s.advanceWatermark(e.key)
	return s.Emit(e.record)
}

func (s *Sorter) advanceWatermark(key types.Value) {
	if !s.hasWatermark {
		s.hasWatermark = true
		s.watermark = key
		return
	}
	if less, ok := types.Less(s.watermark, key); ok && less {
		s.watermark = key
	}
}

// Flush emits every remaining entry in by-key order, advancing the
// watermark to the last key emitted, then propagates downstream.
func (s *Sorter) Flush() error {
	for _, e := range s.byKey {
		s.advanceWatermark(e.key)
		if err := s.Emit(e.record); err != nil {
			return err
		}
	}
	s.byKey = nil
	s.byArrival = nil
	return s.FlushNext()
}

func (s *Sorter) Cancel() {
	s.byKey = nil
	s.byArrival = nil
	s.CancelNext()
}

func (s *Sorter) Describe() map[string]types.Value {
	return map[string]types.Value{
		"kind":        "sorter",
		"buffered":    float64(len(s.byArrival)),
		"lateDropped": float64(s.lateDropped),
		"watermark":   s.watermark,
	}
}
