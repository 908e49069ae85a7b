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

	"github.com/flowql/enginecore/types"
)

// sessionFactory implements session_window: a new session starts whenever
// the gap since the last value exceeds timeout. A session's end is never
// retroactively pushed out by values that arrive within the same session;
// each arrival simply re-stamps end to its own value + timeout.
type sessionFactory struct {
	timeout   float64
	extractor ValueExtractor
}

func SessionWindow(timeout float64, extractor ValueExtractor) Factory {
	return &sessionFactory{timeout: timeout, extractor: extractor}
}

func (f *sessionFactory) CreateWindowFunc() Func {
	var (
		hasLast   bool
		lastValue float64
		sessionID int64
		start     float64
	)
	return func(record *types.Record) ([]Descriptor, error) {
		if f.extractor == nil {
			return nil, fmt.Errorf("session_window requires a value callback")
		}
		v, err := f.extractor(record)
		if err != nil {
			return nil, err
		}
		if !hasLast || v-lastValue > f.timeout {
			sessionID++
			start = v
		}
		hasLast = true
		lastValue = v
		id := fmt.Sprintf("%s:%d", KindSession, sessionID)
		return []Descriptor{{
			ID:       id,
			WindowID: id,
			Start:    start,
			End:      v + f.timeout,
			Type:     KindSession,
			Mode:     ModeValue,
		}}, nil
	}
}
