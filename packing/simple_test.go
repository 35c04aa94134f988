package packing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackSimpleRoundTrip(t *testing.T) {
	values := []float64{1.0, 2.0, 3.5, -4.25, 10.0}
	enc, err := PackSimple(values, 2, 0, 12)
	require.NoError(t, err)
	require.NotZero(t, enc.NBits)

	got := UnpackSimple(enc.SimpleParams, len(values), enc.Data)
	for i, v := range values {
		assert.InDelta(t, v, got[i], 0.01)
	}
}

func TestPackSimpleConstantField(t *testing.T) {
	values := []float64{7, 7, 7, 7}
	enc, err := PackSimple(values, 0, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, enc.NBits)
	assert.Empty(t, enc.Data)

	got := UnpackSimple(enc.SimpleParams, len(values), enc.Data)
	for _, v := range got {
		assert.Equal(t, 7.0, v)
	}
}

func TestPackSimpleZeroWidthIsDegenerate(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	enc, err := PackSimple(values, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, enc.NBits)
	assert.Equal(t, values[0], enc.Reference)
}

func TestAutoWidthCoversDynamicRange(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	w := autoWidth(values, 0, 0)
	assert.GreaterOrEqual(t, w, 4) // 2^4-1 = 15 >= 10
}
