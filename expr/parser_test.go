package expr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrecedence(t *testing.T) {
	node, err := Parse("1 + 2 * 3")
	require.NoError(t, err)
	bin, ok := node.(*Binary)
	require.True(t, ok)
	assert.Equal(t, PLUS, bin.Op)
	right, ok := bin.Right.(*Binary)
	require.True(t, ok)
	assert.Equal(t, STAR, right.Op)
}

func TestParseComparisonAndLogical(t *testing.T) {
	node, err := Parse("amount > 100 && region == 'us'")
	require.NoError(t, err)
	bin, ok := node.(*Binary)
	require.True(t, ok)
	assert.Equal(t, AND, bin.Op)
}

func TestParseFieldPath(t *testing.T) {
	node, err := Parse("user.address.city")
	require.NoError(t, err)
	ref, ok := node.(*FieldRef)
	require.True(t, ok)
	assert.Equal(t, []string{"user", "address", "city"}, ref.Path)
}

func TestParseFunctionCall(t *testing.T) {
	node, err := Parse("round(amount, 2)")
	require.NoError(t, err)
	call, ok := node.(*Call)
	require.True(t, ok)
	assert.Equal(t, "round", call.Name)
	assert.Len(t, call.Args, 2)
}

func TestParseObjectLiteralShorthandSpreadExclude(t *testing.T) {
	node, err := Parse("{ amount, region: r, ...extra, -secret }")
	require.NoError(t, err)
	obj, ok := node.(*ObjectLit)
	require.True(t, ok)
	require.Len(t, obj.Props, 4)
	assert.Equal(t, "amount", obj.Props[0].Key)
	assert.Equal(t, "region", obj.Props[1].Key)
	assert.True(t, obj.Props[2].Spread)
	assert.True(t, obj.Props[3].Exclude)
}

func TestParseDurationLiteral(t *testing.T) {
	node, err := Parse("5m30s")
	require.NoError(t, err)
	lit, ok := node.(*DurationLit)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute+30*time.Second, lit.Value)
}

func TestParseUnexpectedTrailingTokenErrors(t *testing.T) {
	_, err := Parse("1 + 2)")
	require.Error(t, err)
}

func TestParseIndexAccess(t *testing.T) {
	node, err := Parse("items[0].name")
	require.NoError(t, err)
	idx, ok := node.(*Index)
	require.True(t, ok)
	_, ok = idx.Base.(*FieldRef)
	require.True(t, ok)
}
