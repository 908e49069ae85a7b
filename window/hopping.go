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

// hoppingFactory implements hopping_window / hopping_window_by:
// overlapping fixed-size windows starting every `hop` units. A
// record may belong to more than one window, so CreateWindowFunc returns
// every window whose [start, start+size) interval contains the value.
type hoppingFactory struct {
	size, hop float64
	extractor ValueExtractor
}

func HoppingWindow(size, hop float64, extractor ValueExtractor) Factory {
	return &hoppingFactory{size: size, hop: hop, extractor: extractor}
}

func HoppingWindowBy(size, hop float64, extractor ValueExtractor) Factory {
	return &hoppingFactory{size: size, hop: hop, extractor: extractor}
}

func (f *hoppingFactory) CreateWindowFunc() Func {
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
		kMax := math.Floor(v / f.hop)
		kMin := math.Floor((v-f.size)/f.hop) + 1
		var out []Descriptor
		for k := kMin; k <= kMax; k++ {
			start := k * f.hop
			if start > v || v >= start+f.size {
				continue
			}
			out = append(out, Descriptor{
				ID:       windowID(KindHopping, start),
				WindowID: windowID(KindHopping, start),
				Start:    start,
				End:      start + f.size,
				Type:     KindHopping,
				Mode:     mode,
			})
		}
		return out, nil
	}
}
