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
	"fmt"
	"time"

	"github.com/flowql/enginecore/types"
)

// TimeFieldExtractor builds a ValueExtractor reading an RFC3339 timestamp or
// a bare Unix-epoch-seconds number out of the named field, returning seconds
// since the epoch. It is the value-mode extractor used whenever a pipeline's
// `valueExpr` names a timestamp column rather than a plain numeric one.
func TimeFieldExtractor(path string) ValueExtractor {
	return func(record *types.Record) (float64, error) {
		v, ok := record.Get(path)
		if !ok {
			return 0, fmt.Errorf("window: field %q not present", path)
		}
		switch x := v.(type) {
		case string:
			t, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return 0, fmt.Errorf("window: field %q is not a valid timestamp: %w", path, err)
			}
			return float64(t.UnixNano()) / float64(time.Second), nil
		default:
			f, ok := types.ToFloat(x)
			if !ok {
				return 0, fmt.Errorf("window: field %q is not numeric or a timestamp", path)
			}
			return f, nil
		}
	}
}

// AlignToWindow truncates t down to the start of the size-wide window
// containing it, for callers that want a human-readable window start
// rather than the raw float boundary CreateWindowFunc computes.
func AlignToWindow(t time.Time, size time.Duration) time.Time {
	if t.IsZero() || size <= 0 {
		return t
	}
	offset := t.UnixNano() % int64(size)
	return t.Add(-time.Duration(offset))
}
