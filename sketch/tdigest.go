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

// Package sketch implements the streaming-quantile sketches consumed by
// the aggregation engine: a t-digest and a UDDSketch, plus the scalar
// functions that read their serialized ("exported") form.
package sketch

import (
	"math"
	"sort"
)

// TDigestKind is the `kind` discriminator of a serialized t-digest.
const TDigestKind = "tdigest:v1"

// centroid is one (mean, weight) pair of the digest.
type centroid struct {
	mean   float64
	weight float64
}

// TDigest is an incremental t-digest accumulator.
type TDigest struct {
	compression float64
	centroids   []centroid
	count       float64
	min         float64
	max         float64
}

// NewTDigest constructs a TDigest with the given compression; values <= 0
// fall back to the default of 100.
func NewTDigest(compression float64) *TDigest {
	if compression <= 0 {
		compression = 100
	}
	return &TDigest{
		compression: compression,
		min:         math.Inf(1),
		max:         math.Inf(-1),
	}
}

// Push inserts a unit-weight centroid and compresses once the buffer has
// grown past 6*compression doubled.
func (t *TDigest) Push(v float64) {
	t.centroids = append(t.centroids, centroid{mean: v, weight: 1})
	t.count++
	if v < t.min {
		t.min = v
	}
	if v > t.max {
		t.max = v
	}
	if float64(len(t.centroids)) > 6*t.compression*2 {
		t.compress()
	}
}

// compress sorts centroids by mean and greedily merges adjacent ones while
// the scale-function width between their cumulative-q centers stays <= 1,
// using k(q) = asin(2q-1) * compression / π.
func (t *TDigest) compress() {
	if len(t.centroids) == 0 {
		return
	}
	sort.Slice(t.centroids, func(i, j int) bool { return t.centroids[i].mean < t.centroids[j].mean })

	merged := make([]centroid, 0, len(t.centroids))
	cur := t.centroids[0]
	cumBefore := 0.0
	for i := 1; i < len(t.centroids); i++ {
		next := t.centroids[i]
		qCurCenter := (cumBefore + cur.weight/2) / t.count
		qNextCenter := (cumBefore + cur.weight + next.weight/2) / t.count
		width := scaleFunc(qNextCenter, t.compression) - scaleFunc(qCurCenter, t.compression)
		if width <= 1 {
			newWeight := cur.weight + next.weight
			cur = centroid{
				mean:   (cur.mean*cur.weight + next.mean*next.weight) / newWeight,
				weight: newWeight,
			}
		} else {
			cumBefore += cur.weight
			merged = append(merged, cur)
			cur = next
		}
	}
	merged = append(merged, cur)
	t.centroids = merged
}

func scaleFunc(q, compression float64) float64 {
	q = math.Max(0, math.Min(1, q))
	return math.Asin(2*q-1) * compression / math.Pi
}

// Reset restores the digest to its initial empty state.
func (t *TDigest) Reset() {
	t.centroids = nil
	t.count = 0
	t.min = math.Inf(1)
	t.max = math.Inf(-1)
}

// Clone returns an independent deep copy.
func (t *TDigest) Clone() *TDigest {
	out := &TDigest{compression: t.compression, count: t.count, min: t.min, max: t.max}
	out.centroids = make([]centroid, len(t.centroids))
	copy(out.centroids, t.centroids)
	return out
}

// ExportedTDigest is the serialized wire form of a TDigest.
type ExportedTDigest struct {
	Kind        string       `json:"kind"`
	Compression float64      `json:"compression"`
	Count       float64      `json:"count"`
	Min         float64      `json:"min"`
	Max         float64      `json:"max"`
	Centroids   [][2]float64 `json:"centroids"`
}

// Export returns the serialized form.
func (t *TDigest) Export() *ExportedTDigest {
	t.compress()
	out := &ExportedTDigest{
		Kind:        TDigestKind,
		Compression: t.compression,
		Count:       t.count,
		Min:         t.min,
		Max:         t.max,
	}
	if t.count == 0 {
		out.Min, out.Max = 0, 0
	}
	out.Centroids = make([][2]float64, len(t.centroids))
	for i, c := range t.centroids {
		out.Centroids[i] = [2]float64{c.mean, c.weight}
	}
	return out
}

// TDigestQuantile computes quantile(exported, q): exact min/max at the
// extremes, otherwise interpolation between centroid centers with smoothed
// handling of the first and last centroid intervals.
func TDigestQuantile(e *ExportedTDigest, q float64) float64 {
	if e == nil || e.Count == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return e.Min
	}
	if q >= 1 {
		return e.Max
	}
	n := len(e.Centroids)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return e.Centroids[0][0]
	}

	target := q * e.Count
	cum := 0.0
	for i := 0; i < n; i++ {
		mean, weight := e.Centroids[i][0], e.Centroids[i][1]
		centerCum := cum + weight/2
		var left, right float64
		var leftCum, rightCum float64
		if i == 0 {
			left, leftCum = e.Min, 0
			right, rightCum = mean, centerCum
			if target <= rightCum {
				return interpolate(target, leftCum, left, rightCum, right)
			}
		}
		if i == n-1 {
			left, leftCum = mean, centerCum
			right, rightCum = e.Max, e.Count
			if target >= leftCum {
				return interpolate(target, leftCum, left, rightCum, right)
			}
		}
		if i+1 < n {
			nextMean, nextWeight := e.Centroids[i+1][0], e.Centroids[i+1][1]
			nextCenter := cum + weight + nextWeight/2
			if target >= centerCum && target <= nextCenter {
				return interpolate(target, centerCum, mean, nextCenter, nextMean)
			}
		}
		cum += weight
	}
	return e.Centroids[n-1][0]
}

func interpolate(target, x0, y0, x1, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	frac := (target - x0) / (x1 - x0)
	return y0 + frac*(y1-y0)
}

// TDigestCDF computes cdf(exported, x): accumulated weight up to x,
// splitting the straddling centroid's weight linearly between its
// neighbors.
func TDigestCDF(e *ExportedTDigest, x float64) float64 {
	if e == nil || e.Count == 0 {
		return math.NaN()
	}
	if x <= e.Min {
		return 0
	}
	if x >= e.Max {
		return 1
	}
	cum := 0.0
	for i, c := range e.Centroids {
		mean, weight := c[0], c[1]
		if x < mean {
			if i == 0 {
				frac := (x - e.Min) / (mean - e.Min)
				return frac * (weight / 2) / e.Count
			}
			prevMean := e.Centroids[i-1][0]
			frac := (x - prevMean) / (mean - prevMean)
			return (cum + frac*(weight/2)) / e.Count
		}
		cum += weight
	}
	return 1
}

// TDigestQuantileError estimates relative error at q.
func TDigestQuantileError(e *ExportedTDigest, q float64) float64 {
	if e == nil || e.Compression <= 0 {
		return math.NaN()
	}
	if q <= 0 || q >= 1 {
		return 0
	}
	return 1 / (e.Compression * q * (1 - q))
}
