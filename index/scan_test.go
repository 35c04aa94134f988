package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxgrid/grib2/assemble"
	"github.com/wxgrid/grib2/gribmsg"
)

type memReader struct{ data []byte }

func (m memReader) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, m.data[off:])
	return n, nil
}
func (m memReader) Size() (int64, error) { return int64(len(m.data)), nil }

func buildTestMessage(t *testing.T, discipline int, fieldCount int) []byte {
	t.Helper()
	b, err := assemble.NewBuilder()
	require.NoError(t, err)
	require.NoError(t, b.Create(discipline, gribmsg.IdentificationRecord{
		OriginatingCentre:   7,
		MasterTableVersion:  2,
		RefTimeSignificance: 1,
		ReferenceTime:       time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, b.AddGrid(gribmsg.GridDefinition{
		NumDataPoints:  4,
		TemplateNumber: 0,
		Values:         []int64{0, 0, 0, 0, 4, 0, 0, 1, 2000000, 2000000, 1000000, 1000000, 0, 0},
	}))
	for i := 0; i < fieldCount; i++ {
		require.NoError(t, b.AddField(assemble.FieldInput{
			Product:         gribmsg.ProductDefinition{TemplateNumber: 0, Values: []int64{0, int64(i), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
			DRTNumber:       0,
			PackingKind:     assemble.PackSimpleKind,
			NBits:           8,
			Values:          []float64{1, 2, 3, 4},
			BitmapIndicator: gribmsg.BitmapNone,
		}))
	}
	msg, err := b.Finalize()
	require.NoError(t, err)
	return msg
}

func TestScanSingleMessageMultipleFields(t *testing.T) {
	msg := buildTestMessage(t, 0, 3)
	records, err := Scan(memReader{msg}, "test.grib2")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, int32(1), r.MsgSeqInFile)
		assert.Equal(t, int32(i+1), r.FieldSeqInMsg)
		assert.Equal(t, int32(0), r.Discipline)
		assert.NotEmpty(t, r.Section1)
		assert.NotEmpty(t, r.Section3)
		assert.NotEmpty(t, r.Section4)
		assert.NotEmpty(t, r.Section5)
	}
}

func TestScanAttributesSection6ToItsOwnField(t *testing.T) {
	b, err := assemble.NewBuilder()
	require.NoError(t, err)
	require.NoError(t, b.Create(0, gribmsg.IdentificationRecord{
		OriginatingCentre:   7,
		MasterTableVersion:  2,
		RefTimeSignificance: 1,
		ReferenceTime:       time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, b.AddGrid(gribmsg.GridDefinition{
		NumDataPoints:  4,
		TemplateNumber: 0,
		Values:         []int64{0, 0, 0, 0, 4, 0, 0, 1, 2000000, 2000000, 1000000, 1000000, 0, 0},
	}))
	// Field 1 carries no bitmap; field 2 carries a specified bitmap.
	// A field that inherits the wrong Section 6 would report field 1's
	// indicator (None=255) on field 2's record, or vice versa.
	require.NoError(t, b.AddField(assemble.FieldInput{
		Product:         gribmsg.ProductDefinition{TemplateNumber: 0, Values: []int64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		DRTNumber:       0,
		PackingKind:     assemble.PackSimpleKind,
		NBits:           8,
		Values:          []float64{1, 2, 3, 4},
		BitmapIndicator: gribmsg.BitmapNone,
	}))
	require.NoError(t, b.AddField(assemble.FieldInput{
		Product:         gribmsg.ProductDefinition{TemplateNumber: 0, Values: []int64{0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		DRTNumber:       0,
		PackingKind:     assemble.PackSimpleKind,
		NBits:           8,
		Values:          []float64{1, 2, 3, 4},
		BitmapIndicator: gribmsg.BitmapSpecified,
		Bitmap:          []byte{0b11110000},
	}))
	msg, err := b.Finalize()
	require.NoError(t, err)

	records, err := Scan(memReader{msg}, "test.grib2")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, byte(gribmsg.BitmapNone), records[0].Section6Prefix[5])
	assert.Equal(t, byte(gribmsg.BitmapSpecified), records[1].Section6Prefix[5])
}

func TestScanMultipleMessages(t *testing.T) {
	msg1 := buildTestMessage(t, 0, 1)
	msg2 := buildTestMessage(t, 2, 2)
	all := append(append([]byte{}, msg1...), msg2...)

	records, err := Scan(memReader{all}, "test.grib2")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int32(1), records[0].MsgSeqInFile)
	assert.Equal(t, int32(2), records[1].MsgSeqInFile)
	assert.Equal(t, int32(2), records[2].MsgSeqInFile)
	assert.Equal(t, int32(0), records[0].Discipline)
	assert.Equal(t, int32(2), records[1].Discipline)
}
