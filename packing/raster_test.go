package packing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxgrid/grib2/gribmsg"
	"github.com/wxgrid/grib2/rastercodec"
)

func TestPackRasterRoundTripPng(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i)
	}
	enc, err := PackRaster(values, 0, 0, 5, 4, gribmsg.ScanMode(0), rastercodec.Png)
	require.NoError(t, err)
	require.Equal(t, 5, enc.Width)
	require.Equal(t, 4, enc.Height)

	got, err := UnpackRaster(enc, len(values), rastercodec.Png)
	require.NoError(t, err)
	for i, v := range values {
		assert.InDelta(t, v, got[i], 1.0)
	}
}

func TestPackRasterRoundTripWideDynamicRange(t *testing.T) {
	// Values spanning well past 65535 after scaling force depthFor to
	// pick 24-bit (RGB) depth; verify the full sample survives the
	// channel split instead of being truncated to its low byte.
	values := []float64{0, 100000, 5000000, 16777215}
	enc, err := PackRaster(values, 0, 0, 4, 1, gribmsg.ScanMode(0), rastercodec.Png)
	require.NoError(t, err)
	require.Equal(t, 24, enc.Depth)
	require.Equal(t, rastercodec.ColorRGB, enc.ColorType)

	got, err := UnpackRaster(enc, len(values), rastercodec.Png)
	require.NoError(t, err)
	for i, v := range values {
		assert.InDelta(t, v, got[i], 1.0)
	}
}

func TestPackRasterDegenerateShape(t *testing.T) {
	values := []float64{1}
	enc, err := PackRaster(values, 0, 0, 0, 0, gribmsg.ScanMode(0), rastercodec.Png)
	require.NoError(t, err)
	assert.Equal(t, 1, enc.Width)
	assert.Equal(t, 1, enc.Height)
}
