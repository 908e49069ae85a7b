package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowql/enginecore/types"
)

func TestEmitEveryCountBasedBoundary(t *testing.T) {
	f := Every(3, nil).CreateEmitFunc()
	emissions := 0
	for i := 0; i < 7; i++ {
		if f.ShouldEmit(types.NewRecord(), nil, false) {
			emissions++
		}
	}
	assert.Equal(t, 3, emissions) // floor(7/3)+1
}

func TestEmitEveryValueBased(t *testing.T) {
	extractor := func(r *types.Record) (types.Value, error) {
		v, _ := r.Get("amount")
		return v, nil
	}
	f := Every(10, extractor).CreateEmitFunc()
	r1 := types.NewRecord()
	r1.Set("amount", 0.0)
	r2 := types.NewRecord()
	r2.Set("amount", 5.0)
	r3 := types.NewRecord()
	r3.Set("amount", 12.0)
	assert.True(t, f.ShouldEmit(r1, nil, false))
	assert.False(t, f.ShouldEmit(r2, nil, false))
	assert.True(t, f.ShouldEmit(r3, nil, false))
}

func TestEmitOnChange(t *testing.T) {
	extractor := func(r *types.Record) (types.Value, error) {
		v, _ := r.Get("status")
		return v, nil
	}
	f := OnChange(extractor).CreateEmitFunc()
	r1 := types.NewRecord()
	r1.Set("status", "ok")
	r2 := types.NewRecord()
	r2.Set("status", "ok")
	r3 := types.NewRecord()
	r3.Set("status", "fail")
	assert.True(t, f.ShouldEmit(r1, nil, false))
	assert.False(t, f.ShouldEmit(r2, nil, false))
	assert.True(t, f.ShouldEmit(r3, nil, false))
}

func TestEmitOnGroupChange(t *testing.T) {
	f := OnGroupChange().CreateEmitFunc()
	assert.True(t, f.ShouldEmit(nil, "a", false))
	assert.False(t, f.ShouldEmit(nil, "a", false))
	assert.True(t, f.ShouldEmit(nil, "b", false))
}

func TestEmitOnUpdateFollowsChangedFlag(t *testing.T) {
	f := OnUpdate().CreateEmitFunc()
	assert.True(t, f.ShouldEmit(nil, nil, true))
	assert.False(t, f.ShouldEmit(nil, nil, false))
}

func TestForceEmitAlwaysTrue(t *testing.T) {
	f := When(func(item *types.Record) (bool, error) { return false, nil }).CreateEmitFunc()
	require.False(t, f.ShouldEmit(types.NewRecord(), nil, false))
	assert.True(t, f.ForceEmit())
}

func TestAlwaysEmitsEveryPush(t *testing.T) {
	f := Always().CreateEmitFunc()
	assert.True(t, f.ShouldEmit(types.NewRecord(), nil, false))
	assert.True(t, f.ShouldEmit(types.NewRecord(), nil, false))
}

func TestOnFlushEmitsOnlyOnForce(t *testing.T) {
	f := OnFlush().CreateEmitFunc()
	assert.False(t, f.ShouldEmit(types.NewRecord(), nil, true))
	assert.True(t, f.ForceEmit())
}
