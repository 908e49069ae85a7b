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

package emit

import (
	"github.com/flowql/enginecore/types"
)

// everyFactory implements emit_every. With no valueExpr, interval < 100
// is treated as a record count and interval >= 100 as milliseconds of
// wall-clock time. With a valueExpr, emission fires once the extracted
// value has advanced by at least interval since the last emission.
type everyFactory struct {
	interval  float64
	extractor ValueExtractor
}

func Every(interval float64, extractor ValueExtractor) Factory {
	return &everyFactory{interval: interval, extractor: extractor}
}

func (f *everyFactory) CreateEmitFunc() Func {
	var (
		first         = true
		count         int64
		lastEmitTime  = now()
		lastEmitValue float64
	)
	shouldEmit := func(item *types.Record, groupKey types.Value, changed bool) bool {
		if first {
			first = false
			count = 1
			lastEmitTime = now()
			if f.extractor != nil {
				if v, err := f.extractor(item); err == nil {
					if fv, ok := types.ToFloat(v); ok {
						lastEmitValue = fv
					}
				}
			}
			return true
		}
		if f.extractor != nil {
			v, err := f.extractor(item)
			if err != nil {
				return false
			}
			fv, ok := types.ToFloat(v)
			if !ok {
				return false
			}
			if fv-lastEmitValue >= f.interval {
				lastEmitValue = fv
				return true
			}
			return false
		}
		count++
		if f.interval < 100 {
			if count >= int64(f.interval) {
				count = 0
				return true
			}
			return false
		}
		if now().Sub(lastEmitTime).Seconds()*1000 >= f.interval {
			lastEmitTime = now()
			return true
		}
		return false
	}
	return Func{
		ShouldEmit: shouldEmit,
		ForceEmit:  func() bool { return true },
		Info: func() map[string]types.Value {
			return map[string]types.Value{"interval": f.interval}
		},
	}
}
