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
	"github.com/flowql/enginecore/sketch"
	"github.com/flowql/enginecore/types"
)

// TDigestAggregator wraps sketch.TDigest with the Aggregator contract.
// Its result is the sketch's serialized record form.
type TDigestAggregator struct {
	digest *sketch.TDigest
}

func newTDigestFactory(params []interface{}) (Aggregator, error) {
	compression := 100.0
	if len(params) > 0 {
		if f, ok := types.ToFloat(params[0]); ok && f > 0 {
			compression = f
		}
	}
	return &TDigestAggregator{digest: sketch.NewTDigest(compression)}, nil
}

func (a *TDigestAggregator) Push(value interface{}) {
	if f, ok := types.ToFloat(value); ok {
		a.digest.Push(f)
	}
}
func (a *TDigestAggregator) Result() interface{} { return a.digest.Export().ToValue() }
func (a *TDigestAggregator) Reset()              { a.digest.Reset() }
func (a *TDigestAggregator) Clone() Aggregator   { return &TDigestAggregator{digest: a.digest.Clone()} }

// UDDSketchAggregator wraps sketch.UDDSketch with the Aggregator contract.
type UDDSketchAggregator struct {
	sk *sketch.UDDSketch
}

func newUDDSketchFactory(params []interface{}) (Aggregator, error) {
	alpha := sketch.DefaultAlpha
	if len(params) > 0 {
		if f, ok := types.ToFloat(params[0]); ok && f > 0 {
			alpha = f
		}
	}
	return &UDDSketchAggregator{sk: sketch.NewUDDSketch(alpha)}, nil
}

func (a *UDDSketchAggregator) Push(value interface{}) {
	if f, ok := types.ToFloat(value); ok {
		a.sk.Push(f)
	}
}
func (a *UDDSketchAggregator) Result() interface{} { return a.sk.Export().ToValue() }
func (a *UDDSketchAggregator) Reset()              { a.sk.Reset() }
func (a *UDDSketchAggregator) Clone() Aggregator   { return &UDDSketchAggregator{sk: a.sk.Clone()} }
