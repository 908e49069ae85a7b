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

import "github.com/flowql/enginecore/types"

// slidingFactory implements sliding_window / sliding_window_by: exactly
// one window per record, ending at that record's value.
type slidingFactory struct {
	size      float64
	extractor ValueExtractor
}

func SlidingWindow(size float64, extractor ValueExtractor) Factory {
	return &slidingFactory{size: size, extractor: extractor}
}

func SlidingWindowBy(size float64, extractor ValueExtractor) Factory {
	return &slidingFactory{size: size, extractor: extractor}
}

func (f *slidingFactory) CreateWindowFunc() Func {
	var counter int64
	return func(record *types.Record) ([]Descriptor, error) {
		var v float64
		mode := ModeValue
		if f.extractor == nil {
			v = float64(counter)
			counter++
			mode = ModeCount
		} else {
			var err error
			v, err = f.extractor(record)
			if err != nil {
				return nil, err
			}
		}
		start := v - f.size
		return []Descriptor{{
			ID:       windowID(KindSliding, v),
			WindowID: windowID(KindSliding, v),
			Start:    start,
			End:      v,
			Type:     KindSliding,
			Mode:     mode,
		}}, nil
	}
}
