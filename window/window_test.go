package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowql/enginecore/types"
)

func fieldExtractor(name string) ValueExtractor {
	return func(r *types.Record) (float64, error) {
		v, _ := r.Get(name)
		f, _ := types.ToFloat(v)
		return f, nil
	}
}

func recWithValue(name string, v float64) *types.Record {
	r := types.NewRecord()
	r.Set(name, v)
	return r
}

func TestTumblingCountMode(t *testing.T) {
	f := TumblingWindow(2, nil).CreateWindowFunc()
	d1, err := f(types.NewRecord())
	require.NoError(t, err)
	d2, err := f(types.NewRecord())
	require.NoError(t, err)
	d3, err := f(types.NewRecord())
	require.NoError(t, err)
	assert.Equal(t, d1[0].WindowID, d2[0].WindowID)
	assert.NotEqual(t, d2[0].WindowID, d3[0].WindowID)
}

func TestTumblingValueMode(t *testing.T) {
	f := TumblingWindow(10, fieldExtractor("v")).CreateWindowFunc()
	d, err := f(recWithValue("v", 23))
	require.NoError(t, err)
	assert.Equal(t, 20.0, d[0].Start)
	assert.Equal(t, 30.0, d[0].End)
}

func TestHoppingOverlap(t *testing.T) {
	f := HoppingWindow(10, 5, fieldExtractor("v")).CreateWindowFunc()
	d, err := f(recWithValue("v", 12))
	require.NoError(t, err)
	assert.Len(t, d, 2)
}

func TestSlidingEndsAtCurrentValue(t *testing.T) {
	f := SlidingWindow(5, fieldExtractor("v")).CreateWindowFunc()
	d, err := f(recWithValue("v", 10))
	require.NoError(t, err)
	require.Len(t, d, 1)
	assert.Equal(t, 10.0, d[0].End)
	assert.Equal(t, 5.0, d[0].Start)
}

func TestSessionStartsNewSessionAfterGap(t *testing.T) {
	f := SessionWindow(5, fieldExtractor("v")).CreateWindowFunc()
	d1, err := f(recWithValue("v", 1))
	require.NoError(t, err)
	d2, err := f(recWithValue("v", 3))
	require.NoError(t, err)
	d3, err := f(recWithValue("v", 20))
	require.NoError(t, err)
	assert.Equal(t, d1[0].WindowID, d2[0].WindowID)
	assert.NotEqual(t, d2[0].WindowID, d3[0].WindowID)
}

func TestCountWindowIsStrictlyCountBased(t *testing.T) {
	f := CountWindow(3).CreateWindowFunc()
	var ids []string
	for i := 0; i < 6; i++ {
		d, err := f(types.NewRecord())
		require.NoError(t, err)
		ids = append(ids, d[0].WindowID)
	}
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, ids[1], ids[2])
	assert.NotEqual(t, ids[2], ids[3])
}
