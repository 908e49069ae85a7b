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
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/flowql/enginecore/types"
)

// ToValue renders an exported t-digest as a generic Record — the shape
// every sketch-consuming scalar function dispatches on via its "kind"
// field.
func (e *ExportedTDigest) ToValue() *types.Record {
	r := types.NewRecord()
	r.Set("kind", e.Kind)
	r.Set("compression", e.Compression)
	r.Set("count", e.Count)
	r.Set("min", e.Min)
	r.Set("max", e.Max)
	centroids := make([]types.Value, len(e.Centroids))
	for i, c := range e.Centroids {
		centroids[i] = []types.Value{c[0], c[1]}
	}
	r.Set("centroids", centroids)
	return r
}

// ToValue renders an exported UDDSketch as a generic Record.
func (e *ExportedUDDSketch) ToValue() *types.Record {
	r := types.NewRecord()
	r.Set("kind", e.Kind)
	r.Set("alpha", e.Alpha)
	r.Set("count", e.Count)
	r.Set("min", e.Min)
	r.Set("max", e.Max)
	r.Set("zeros", e.Zeros)
	buckets := types.NewRecord()
	for k, v := range e.Buckets {
		buckets.Set(fmt.Sprintf("%d", k), v)
	}
	r.Set("buckets", buckets)
	return r
}

// FromValue reconstructs whichever exported sketch kind v represents from
// its generic Record form. Returns an error for an unrecognized or
// malformed kind.
func FromValue(v types.Value) (kind string, tdigest *ExportedTDigest, udd *ExportedUDDSketch, err error) {
	rec, ok := v.(*types.Record)
	if !ok {
		return "", nil, nil, fmt.Errorf("sketch: value is not a sketch record")
	}
	kindVal, _ := rec.Get("kind")
	kindStr, _ := kindVal.(string)
	switch kindStr {
	case TDigestKind:
		td := &ExportedTDigest{Kind: TDigestKind}
		td.Compression = floatField(rec, "compression")
		td.Count = floatField(rec, "count")
		td.Min = floatField(rec, "min")
		td.Max = floatField(rec, "max")
		if cv, ok := rec.Get("centroids"); ok {
			if arr, ok := cv.([]types.Value); ok {
				td.Centroids = make([][2]float64, len(arr))
				for i, item := range arr {
					pair, _ := item.([]types.Value)
					if len(pair) == 2 {
						mean, _ := types.ToFloat(pair[0])
						weight, _ := types.ToFloat(pair[1])
						td.Centroids[i] = [2]float64{mean, weight}
					}
				}
			}
		}
		return TDigestKind, td, nil, nil
	case UDDSketchKind:
		ud := &ExportedUDDSketch{Kind: UDDSketchKind}
		ud.Alpha = floatField(rec, "alpha")
		ud.Count = floatField(rec, "count")
		ud.Min = floatField(rec, "min")
		ud.Max = floatField(rec, "max")
		ud.Zeros = floatField(rec, "zeros")
		ud.Buckets = make(map[int64]float64)
		if bv, ok := rec.Get("buckets"); ok {
			if bucketsRec, ok := bv.(*types.Record); ok {
				bucketsRec.Range(func(key string, val types.Value) bool {
					var idx int64
					fmt.Sscanf(key, "%d", &idx)
					f, _ := types.ToFloat(val)
					ud.Buckets[idx] = f
					return true
				})
			}
		}
		return UDDSketchKind, nil, ud, nil
	default:
		return "", nil, nil, fmt.Errorf("sketch: unknown sketch kind %q", kindStr)
	}
}

// AsStruct renders an exported sketch as a google.protobuf.Struct — the
// shape a protobuf-based transport would carry a compacted sketch over,
// alongside the generic Record form ToValue produces for in-process use.
func (e *ExportedTDigest) AsStruct() (*structpb.Struct, error) {
	return e.ToValue().ToStruct()
}

// AsStruct renders an exported UDDSketch as a google.protobuf.Struct.
func (e *ExportedUDDSketch) AsStruct() (*structpb.Struct, error) {
	return e.ToValue().ToStruct()
}

// FromStruct reconstructs whichever exported sketch kind s represents,
// mirroring FromValue for the protobuf Struct wire form.
func FromStruct(s *structpb.Struct) (kind string, tdigest *ExportedTDigest, udd *ExportedUDDSketch, err error) {
	return FromValue(types.RecordFromStruct(s))
}

func floatField(rec *types.Record, name string) float64 {
	v, _ := rec.Get(name)
	f, _ := types.ToFloat(v)
	return f
}

// Quantile dispatches quantile(sketch, q) on the sketch's kind.
func Quantile(v types.Value, q float64) (float64, error) {
	_, td, udd, err := FromValue(v)
	if err != nil {
		return 0, err
	}
	if td != nil {
		return TDigestQuantile(td, q), nil
	}
	return UDDSketchQuantile(udd, q), nil
}

// CDF dispatches cdf(sketch, x).
func CDF(v types.Value, x float64) (float64, error) {
	_, td, udd, err := FromValue(v)
	if err != nil {
		return 0, err
	}
	if td != nil {
		return TDigestCDF(td, x), nil
	}
	return UDDSketchCDF(udd, x), nil
}

// QuantileError dispatches quantile_error(sketch, q).
func QuantileError(v types.Value, q float64) (float64, error) {
	_, td, udd, err := FromValue(v)
	if err != nil {
		return 0, err
	}
	if td != nil {
		return TDigestQuantileError(td, q), nil
	}
	return UDDSketchQuantileError(udd, q), nil
}

// CDFError estimates the error of a CDF query by converting x to its
// nearest quantile and reusing QuantileError — both sketches document a
// single error curve keyed by quantile, not by value.
func CDFError(v types.Value, x float64) (float64, error) {
	q, err := CDF(v, x)
	if err != nil {
		return 0, err
	}
	return QuantileError(v, q)
}
