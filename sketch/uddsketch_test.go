package sketch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUDDSketchQuantileExtremesAndError(t *testing.T) {
	u := NewUDDSketch(0.01)
	for i := 1; i <= 1000; i++ {
		u.Push(float64(i))
	}
	exp := u.Export()

	assert.Equal(t, exp.Min, UDDSketchQuantile(exp, 0))
	assert.Equal(t, exp.Max, UDDSketchQuantile(exp, 1))

	median := UDDSketchQuantile(exp, 0.5)
	assert.InDelta(t, 500, median, 500*0.01*3)
	assert.Equal(t, 0.01, UDDSketchQuantileError(exp, 0.5))
	assert.Equal(t, 0.01, UDDSketchQuantileError(exp, 0.9))
}

func TestUDDSketchRoundTripThroughValue(t *testing.T) {
	u := NewUDDSketch(0.02)
	for i := 1; i <= 10; i++ {
		u.Push(float64(i))
	}
	exported := u.Export()
	v := exported.ToValue()

	kind, _, udd, err := FromValue(v)
	require.NoError(t, err)
	assert.Equal(t, UDDSketchKind, kind)
	assert.Equal(t, exported.Count, udd.Count)
	assert.InDelta(t, exported.Alpha, udd.Alpha, 1e-9)
}

func TestUDDSketchEmptyQuantileIsNaN(t *testing.T) {
	u := NewUDDSketch(0.01)
	exp := u.Export()
	assert.True(t, math.IsNaN(UDDSketchQuantile(exp, 0.5)))
}
