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

package window

import (
	"math"

	"github.com/flowql/enginecore/types"
)

// tumblingFactory implements tumbling_window / tumbling_window_by /
// count_window: fixed-size, non-overlapping windows. With no
// extractor it counts records; with one it buckets by floor(v/size)*size.
type tumblingFactory struct {
	size      float64
	extractor ValueExtractor
}

// TumblingWindow implements tumbling_window(size, valueExpr?).
func TumblingWindow(size float64, extractor ValueExtractor) Factory {
	return &tumblingFactory{size: size, extractor: extractor}
}

// TumblingWindowBy implements tumbling_window_by(size, cb): always value-mode.
func TumblingWindowBy(size float64, extractor ValueExtractor) Factory {
	return &tumblingFactory{size: size, extractor: extractor}
}

// CountWindow implements count_window(count): strictly count-based tumbling.
func CountWindow(count float64) Factory {
	return &tumblingFactory{size: count, extractor: nil}
}

func (f *tumblingFactory) CreateWindowFunc() Func {
	var counter int64
	return func(record *types.Record) ([]Descriptor, error) {
		if f.extractor == nil {
			idx := float64(counter) / f.size
			idx = math.Floor(idx)
			start := idx * f.size
			counter++
			return []Descriptor{{
				ID:       windowID(KindTumbling, start),
				WindowID: windowID(KindTumbling, start),
				Start:    start,
				End:      start + f.size,
				Type:     KindTumbling,
				Mode:     ModeCount,
			}}, nil
		}
		v, err := f.extractor(record)
		if err != nil {
			return nil, err
		}
		start := math.Floor(v/f.size) * f.size
		return []Descriptor{{
			ID:       windowID(KindTumbling, start),
			WindowID: windowID(KindTumbling, start),
			Start:    start,
			End:      start + f.size,
			Type:     KindTumbling,
			Mode:     ModeValue,
		}}, nil
	}
}
