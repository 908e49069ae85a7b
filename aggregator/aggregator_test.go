package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountAndSum(t *testing.T) {
	r := NewRegistry()

	c, err := r.New("count", nil)
	require.NoError(t, err)
	c.Push("anything")
	c.Push(nil)
	assert.Equal(t, float64(2), c.Result())

	s, err := r.New("sum", nil)
	require.NoError(t, err)
	s.Push(1.0)
	s.Push("not a number")
	s.Push(2.0)
	assert.Equal(t, 3.0, s.Result())
}

func TestCloneIsIndependent(t *testing.T) {
	r := NewRegistry()
	s, _ := r.New("sum", nil)
	s.Push(5.0)
	clone := s.Clone()
	clone.Push(10.0)
	assert.Equal(t, 5.0, s.Result())
	assert.Equal(t, 15.0, clone.Result())
}

func TestResetRestoresInitialState(t *testing.T) {
	r := NewRegistry()
	c, _ := r.New("count", nil)
	c.Push(1)
	c.Push(2)
	c.Reset()
	assert.Equal(t, float64(0), c.Result())
}

func TestTDigestAggregatorProducesSketchValue(t *testing.T) {
	r := NewRegistry()
	td, err := r.New("tdigest", []interface{}{50.0})
	require.NoError(t, err)
	for i := 1; i <= 20; i++ {
		td.Push(float64(i))
	}
	result := td.Result()
	assert.NotNil(t, result)
}

func TestUnknownAggregatorErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.New("bogus", nil)
	require.Error(t, err)
}
