package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowql/enginecore/aggregator"
	"github.com/flowql/enginecore/functions"
	"github.com/flowql/enginecore/types"
)

func compileAgg(t *testing.T, source string) *AggregationExpression {
	t.Helper()
	node, err := Parse(source)
	require.NoError(t, err)
	c := NewCompiler(functions.NewRegistry(), aggregator.NewRegistry())
	compiled, err := c.Compile(node)
	require.NoError(t, err)
	return compiled
}

func recordWithAmount(amount float64) *types.Record {
	r := types.NewRecord()
	r.Set("amount", amount)
	return r
}

func TestAggregationSumAccumulates(t *testing.T) {
	agg := compileAgg(t, "sum(amount)")
	for _, v := range []float64{1, 2, 3} {
		require.NoError(t, agg.Push(recordWithAmount(v)))
	}
	result, err := agg.Result()
	require.NoError(t, err)
	assert.Equal(t, 6.0, result)
}

func TestAggregationScalarOverTwoAggregations(t *testing.T) {
	agg := compileAgg(t, "sum(amount) / count(amount)")
	for _, v := range []float64{10, 20, 30} {
		require.NoError(t, agg.Push(recordWithAmount(v)))
	}
	result, err := agg.Result()
	require.NoError(t, err)
	assert.Equal(t, 20.0, result)
}

func TestAggregationResetClearsState(t *testing.T) {
	agg := compileAgg(t, "count(amount)")
	agg.Push(recordWithAmount(1))
	agg.Push(recordWithAmount(2))
	agg.Reset()
	result, err := agg.Result()
	require.NoError(t, err)
	assert.Equal(t, 0.0, result)
}

func TestAggregationCloneIsIndependent(t *testing.T) {
	agg := compileAgg(t, "sum(amount)")
	agg.Push(recordWithAmount(5))
	clone := agg.Clone()
	clone.Push(recordWithAmount(10))

	origResult, _ := agg.Result()
	cloneResult, _ := clone.Result()
	assert.Equal(t, 5.0, origResult)
	assert.Equal(t, 15.0, cloneResult)
}

func TestAggregationRejectsNestedAggregationInArgument(t *testing.T) {
	node, err := Parse("sum(count(amount))")
	require.NoError(t, err)
	c := NewCompiler(functions.NewRegistry(), aggregator.NewRegistry())
	_, err = c.Compile(node)
	require.Error(t, err)
}

func TestAggregationConstructorLiteralParam(t *testing.T) {
	agg := compileAgg(t, "tdigest(amount, 50)")
	for i := 1; i <= 10; i++ {
		require.NoError(t, agg.Push(recordWithAmount(float64(i))))
	}
	result, err := agg.Result()
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestAggregationPassThroughFieldReflectsLastPushedRecord(t *testing.T) {
	agg := compileAgg(t, "region")
	r1 := types.NewRecord()
	r1.Set("region", "us")
	r2 := types.NewRecord()
	r2.Set("region", "eu")
	agg.Push(r1)
	agg.Push(r2)
	result, err := agg.Result()
	require.NoError(t, err)
	assert.Equal(t, "eu", result)
}
