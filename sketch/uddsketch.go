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

package sketch

import (
	"math"
)

// UDDSketchKind is the `kind` discriminator of a serialized UDDSketch.
const UDDSketchKind = "uddsketch:v1"

// DefaultAlpha is the default relative-error target when none is given.
const DefaultAlpha = 0.01

// UDDSketch is a uniform-bucket log-indexed quantile sketch: every bucket
// i covers values in (gamma^(i-1), gamma^i], gamma = (1+alpha)/(1-alpha),
// giving a constant relative error `alpha` at any quantile.
type UDDSketch struct {
	alpha   float64
	gamma   float64
	buckets map[int64]float64
	count   float64
	min     float64
	max     float64
	zeros   float64 // count of exact-zero values, bucketed separately
}

// NewUDDSketch constructs a UDDSketch with the given relative-error target
// alpha (default DefaultAlpha when alpha <= 0).
func NewUDDSketch(alpha float64) *UDDSketch {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	return &UDDSketch{
		alpha:   alpha,
		gamma:   (1 + alpha) / (1 - alpha),
		buckets: make(map[int64]float64),
		min:     math.Inf(1),
		max:     math.Inf(-1),
	}
}

func (u *UDDSketch) bucketIndex(v float64) int64 {
	return int64(math.Ceil(math.Log(v) / math.Log(u.gamma)))
}

// Push folds one value into the sketch. Negative values are ignored —
// UDDSketch as specified tracks a non-negative distribution.
func (u *UDDSketch) Push(v float64) {
	if v < 0 {
		return
	}
	u.count++
	if v < u.min {
		u.min = v
	}
	if v > u.max {
		u.max = v
	}
	if v == 0 {
		u.zeros++
		return
	}
	idx := u.bucketIndex(v)
	u.buckets[idx]++
}

// Reset restores the sketch to its initial empty state.
func (u *UDDSketch) Reset() {
	u.buckets = make(map[int64]float64)
	u.count = 0
	u.zeros = 0
	u.min = math.Inf(1)
	u.max = math.Inf(-1)
}

// Clone returns an independent deep copy.
func (u *UDDSketch) Clone() *UDDSketch {
	out := &UDDSketch{alpha: u.alpha, gamma: u.gamma, count: u.count, zeros: u.zeros, min: u.min, max: u.max}
	out.buckets = make(map[int64]float64, len(u.buckets))
	for k, v := range u.buckets {
		out.buckets[k] = v
	}
	return out
}

// ExportedUDDSketch is the serialized wire form of a UDDSketch.
type ExportedUDDSketch struct {
	Kind    string            `json:"kind"`
	Alpha   float64           `json:"alpha"`
	Count   float64           `json:"count"`
	Min     float64           `json:"min"`
	Max     float64           `json:"max"`
	Zeros   float64           `json:"zeros"`
	Buckets map[int64]float64 `json:"buckets"`
}

// Export returns the serialized form.
func (u *UDDSketch) Export() *ExportedUDDSketch {
	out := &ExportedUDDSketch{
		Kind: UDDSketchKind, Alpha: u.alpha, Count: u.count,
		Min: u.min, Max: u.max, Zeros: u.zeros,
	}
	if u.count == 0 {
		out.Min, out.Max = 0, 0
	}
	out.Buckets = make(map[int64]float64, len(u.buckets))
	for k, v := range u.buckets {
		out.Buckets[k] = v
	}
	return out
}

func (e *ExportedUDDSketch) gamma() float64 {
	return (1 + e.Alpha) / (1 - e.Alpha)
}

// bucketValue returns the representative value for bucket index i:
// the harmonic mean of its bounds, which bounds relative error to alpha.
func (e *ExportedUDDSketch) bucketValue(i int64) float64 {
	g := e.gamma()
	return 2 * math.Pow(g, float64(i)) / (1 + g)
}

// UDDSketchQuantile computes quantile(exported, q) for q in [0,1].
func UDDSketchQuantile(e *ExportedUDDSketch, q float64) float64 {
	if e == nil || e.Count == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return e.Min
	}
	if q >= 1 {
		return e.Max
	}
	target := q * e.Count

	indices := sortedBucketIndices(e.Buckets)
	cum := e.Zeros
	if target <= cum {
		return 0
	}
	for _, idx := range indices {
		cum += e.Buckets[idx]
		if target <= cum {
			return e.bucketValue(idx)
		}
	}
	return e.Max
}

// UDDSketchCDF computes cdf(exported, x).
func UDDSketchCDF(e *ExportedUDDSketch, x float64) float64 {
	if e == nil || e.Count == 0 {
		return math.NaN()
	}
	if x <= e.Min {
		return 0
	}
	if x >= e.Max {
		return 1
	}
	cum := e.Zeros
	if x <= 0 {
		return cum / e.Count
	}
	for _, idx := range sortedBucketIndices(e.Buckets) {
		if e.bucketValue(idx) > x {
			break
		}
		cum += e.Buckets[idx]
	}
	return cum / e.Count
}

// UDDSketchQuantileError returns the sketch's constant relative error,
// independent of q.
func UDDSketchQuantileError(e *ExportedUDDSketch, _ float64) float64 {
	if e == nil {
		return math.NaN()
	}
	return e.Alpha
}

func sortedBucketIndices(buckets map[int64]float64) []int64 {
	out := make([]int64, 0, len(buckets))
	for k := range buckets {
		out = append(out, k)
	}
	// simple insertion sort keeps this allocation-free for typical small bucket counts
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
