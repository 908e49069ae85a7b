package functions

import (
	"testing"

	"github.com/flowql/enginecore/sketch"
	"github.com/flowql/enginecore/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTDigestValue() interface{} {
	td := sketch.NewTDigest(100)
	for i := 1; i <= 10; i++ {
		td.Push(float64(i))
	}
	return td.Export().ToValue()
}

func TestArithmeticBuiltins(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		name string
		args []interface{}
		want interface{}
	}{
		{"add", []interface{}{1.0, 2.0}, 3.0},
		{"sub", []interface{}{5.0, 2.0}, 3.0},
		{"mul", []interface{}{3.0, 4.0}, 12.0},
		{"div", []interface{}{10.0, 4.0}, 2.5},
		{"mod", []interface{}{10.0, 3.0}, 1.0},
		{"pow", []interface{}{2.0, 10.0}, 1024.0},
		{"neg", []interface{}{5.0}, -5.0},
		{"abs", []interface{}{-5.0}, 5.0},
		{"min", []interface{}{3.0, 1.0, 2.0}, 1.0},
		{"max", []interface{}{3.0, 1.0, 2.0}, 3.0},
		{"eq", []interface{}{1.0, 1}, true},
		{"ne", []interface{}{1.0, 2.0}, true},
		{"lt", []interface{}{1.0, 2.0}, true},
		{"ge", []interface{}{2.0, 2.0}, true},
		{"and", []interface{}{true, 1.0}, true},
		{"or", []interface{}{false, 0.0}, false},
		{"not", []interface{}{false}, true},
		{"pi", nil, 3.141592653589793},
	}
	for _, c := range cases {
		got, err := r.Execute(c.name, c.args)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.want, got, c.name)
	}
}

func TestDivByZeroIsExecutionError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute("div", []interface{}{1.0, 0.0})
	require.Error(t, err)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
}

func TestUnknownFunctionIsNotFoundError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute("nope", []interface{}{1.0})
	require.Error(t, err)
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestSketchFunctionsDispatchOnKind(t *testing.T) {
	r := NewRegistry()
	sketchVal := fakeTDigestValue()
	got, err := r.Execute("quantile", []interface{}{sketchVal, 0.0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestLikePattern(t *testing.T) {
	r := NewRegistry()
	got, err := r.Execute("like", []interface{}{"sensor_42", "sensor_%"})
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = r.Execute("like", []interface{}{"sensor_42", "pump_%"})
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestJSONPathArrayWildcard(t *testing.T) {
	r := NewRegistry()
	rec := types.NewRecord()
	items := []types.Value{}
	for _, price := range []float64{10, 20, 30} {
		item := types.NewRecord()
		item.Set("price", price)
		items = append(items, item)
	}
	rec.Set("items", items)

	got, err := r.Execute("jsonpath", []interface{}{rec, "$.items[*].price"})
	require.NoError(t, err)
	prices, ok := got.([]types.Value)
	require.True(t, ok)
	assert.Equal(t, []types.Value{10.0, 20.0, 30.0}, prices)
}
