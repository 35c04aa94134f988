package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxgrid/grib2/assemble"
	"github.com/wxgrid/grib2/gribmsg"
)

func buildMessage(t *testing.T, packing assemble.PackingKind, drtn int, values []float64) []byte {
	t.Helper()
	b, err := assemble.NewBuilder()
	require.NoError(t, err)
	require.NoError(t, b.Create(0, gribmsg.IdentificationRecord{
		OriginatingCentre:   7,
		MasterTableVersion:  2,
		RefTimeSignificance: 1,
		ReferenceTime:       time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, b.AddGrid(gribmsg.GridDefinition{
		NumDataPoints:  uint32(len(values)),
		TemplateNumber: 0,
		Values:         []int64{0, 0, 0, 0, int64(len(values)), 0, 0, 1, 2000000, 2000000, 1000000, 1000000, 0, 0},
	}))
	require.NoError(t, b.AddField(assemble.FieldInput{
		Product:         gribmsg.ProductDefinition{TemplateNumber: 0, Values: []int64{0, 1, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		DRTNumber:       drtn,
		PackingKind:     packing,
		DecimalScale:    1,
		NBits:           12,
		Values:          values,
		Missing:         -9999,
		BitmapIndicator: gribmsg.BitmapNone,
	}))
	msg, err := b.Finalize()
	require.NoError(t, err)
	return msg
}

func TestExtractFieldsSimpleRoundTrip(t *testing.T) {
	values := []float64{1.1, 2.2, 3.3, 4.4}
	msg := buildMessage(t, assemble.PackSimpleKind, 0, values)

	fields, err := ExtractFields(msg, 0, Query{Discipline: -1, PDTNumber: -1, GDTNumber: -1})
	require.NoError(t, err)
	require.Len(t, fields, 1)

	f := fields[0]
	assert.Equal(t, 0, f.Product.TemplateNumber)
	require.Len(t, f.Values, len(values))
	for i, v := range values {
		assert.InDelta(t, v, f.Values[i], 0.1)
	}
}

func TestExtractFieldsMatchTestFiltersByPDTValues(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	msg := buildMessage(t, assemble.PackSimpleKind, 0, values)

	fields, err := ExtractFields(msg, 0, Query{
		Discipline: -1,
		PDTNumber:  -1,
		PDT:        []int64{wildcard, 99},
		GDTNumber:  -1,
	})
	require.NoError(t, err)
	assert.Empty(t, fields)

	fields, err = ExtractFields(msg, 0, Query{
		Discipline: -1,
		PDTNumber:  -1,
		PDT:        []int64{wildcard, 1},
		GDTNumber:  -1,
	})
	require.NoError(t, err)
	require.Len(t, fields, 1)
}

func TestExtractFieldsSkip(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	msg := buildMessage(t, assemble.PackSimpleKind, 0, values)

	fields, err := ExtractFields(msg, 0, Query{Discipline: -1, PDTNumber: -1, GDTNumber: -1, Skip: 1})
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestExtractFieldsComplexRoundTrip(t *testing.T) {
	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(i) * 1.5
	}
	msg := buildMessage(t, assemble.PackComplexKind, 2, values)

	fields, err := ExtractFields(msg, 0, Query{Discipline: -1, PDTNumber: -1, GDTNumber: -1})
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.Len(t, fields[0].Values, len(values))
	for i, v := range values {
		assert.InDelta(t, v, fields[0].Values[i], 0.2)
	}
}

func TestExtractFieldsPreservesNonMidnightReferenceTime(t *testing.T) {
	b, err := assemble.NewBuilder()
	require.NoError(t, err)
	require.NoError(t, b.Create(0, gribmsg.IdentificationRecord{
		OriginatingCentre:   7,
		MasterTableVersion:  2,
		RefTimeSignificance: 1,
		ReferenceTime:       time.Date(2026, 8, 6, 14, 37, 0, 0, time.UTC),
	}))
	require.NoError(t, b.AddGrid(gribmsg.GridDefinition{
		NumDataPoints:  4,
		TemplateNumber: 0,
		Values:         []int64{0, 0, 0, 0, 4, 0, 0, 1, 2000000, 2000000, 1000000, 1000000, 0, 0},
	}))
	require.NoError(t, b.AddField(assemble.FieldInput{
		Product:         gribmsg.ProductDefinition{TemplateNumber: 0, Values: []int64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		DRTNumber:       0,
		PackingKind:     assemble.PackSimpleKind,
		NBits:           8,
		Values:          []float64{1, 2, 3, 4},
		BitmapIndicator: gribmsg.BitmapNone,
	}))
	msg, err := b.Finalize()
	require.NoError(t, err)

	fields, err := ExtractFields(msg, 0, Query{Discipline: -1, PDTNumber: -1, GDTNumber: -1})
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, 14, fields[0].Identification.ReferenceTime.Hour())
	assert.Equal(t, 37, fields[0].Identification.ReferenceTime.Minute())
}

func buildComplexMessage(t *testing.T, diffOrder int, values []float64) []byte {
	t.Helper()
	b, err := assemble.NewBuilder()
	require.NoError(t, err)
	require.NoError(t, b.Create(0, gribmsg.IdentificationRecord{
		OriginatingCentre:   7,
		MasterTableVersion:  2,
		RefTimeSignificance: 1,
		ReferenceTime:       time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, b.AddGrid(gribmsg.GridDefinition{
		NumDataPoints:  uint32(len(values)),
		TemplateNumber: 0,
		Values:         []int64{0, 0, 0, 0, int64(len(values)), 0, 0, 1, 2000000, 2000000, 1000000, 1000000, 0, 0},
	}))
	require.NoError(t, b.AddField(assemble.FieldInput{
		Product:         gribmsg.ProductDefinition{TemplateNumber: 0, Values: []int64{0, 1, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		DRTNumber:       3,
		PackingKind:     assemble.PackComplexKind,
		DecimalScale:    1,
		DiffOrder:       diffOrder,
		Values:          values,
		Missing:         -9999,
		BitmapIndicator: gribmsg.BitmapNone,
	}))
	msg, err := b.Finalize()
	require.NoError(t, err)
	return msg
}

func TestExtractFieldsComplexSpatialDiffingRoundTrip(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i*i) * 0.5
	}

	for _, order := range []int{1, 2} {
		msg := buildComplexMessage(t, order, values)

		fields, err := ExtractFields(msg, 0, Query{Discipline: -1, PDTNumber: -1, GDTNumber: -1})
		require.NoError(t, err)
		require.Len(t, fields, 1)
		require.Len(t, fields[0].Values, len(values))
		for i, v := range values {
			assert.InDelta(t, v, fields[0].Values[i], 0.2)
		}
	}
}

func TestExtractFieldsRejectsBadMagic(t *testing.T) {
	_, err := ExtractFields([]byte("not a grib message"), 0, Query{Discipline: -1, PDTNumber: -1, GDTNumber: -1})
	require.Error(t, err)
}
