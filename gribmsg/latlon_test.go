package gribmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLatLonGrid() GridDefinition {
	return GridDefinition{
		TemplateNumber: 0,
		Values: []int64{
			0, 0, 0, 0, // shapeOfEarth, scaleFactorRadius, scaleFactorMajorAxis, scaleFactorMinorAxis
			3,           // Ni
			10_000_000,  // La1
			20_000_000,  // Lo1
			2,           // Nj
			8_000_000,   // La2
			22_000_000,  // Lo2
			1_000_000,   // Di
			2_000_000,   // Dj
			0, 0,
		},
	}
}

func TestPointsConsecutiveIScan(t *testing.T) {
	g := testLatLonGrid()
	pts, err := g.Points(ScanMode(0))
	require.NoError(t, err)
	require.Len(t, pts, 6)

	assert.InDelta(t, 10.0, pts[0].Lat.Degrees(), 1e-6)
	assert.InDelta(t, 20.0, pts[0].Lng.Degrees(), 1e-6)
	assert.InDelta(t, 10.0, pts[1].Lat.Degrees(), 1e-6)
	assert.InDelta(t, 21.0, pts[1].Lng.Degrees(), 1e-6)
	assert.InDelta(t, 8.0, pts[3].Lat.Degrees(), 1e-6)
}

func TestPointsRejectsNonLatLonTemplate(t *testing.T) {
	g := GridDefinition{TemplateNumber: 30}
	_, err := g.Points(ScanMode(0))
	require.Error(t, err)
}

func TestPointsRejectsShortValues(t *testing.T) {
	g := GridDefinition{TemplateNumber: 0, Values: []int64{0, 0}}
	_, err := g.Points(ScanMode(0))
	require.Error(t, err)
}
