package index

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadIndexFileRoundTrip(t *testing.T) {
	msg := buildTestMessage(t, 0, 2)
	records, err := Scan(memReader{msg}, "source.grib2")
	require.NoError(t, err)
	buf, err := newIndexBuffer("source.grib2", records)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, WriteIndexFile(&out, buf))

	got, err := ReadIndexFile(&out)
	require.NoError(t, err)
	assert.Equal(t, buf.SourceName, got.SourceName)
	assert.Equal(t, buf.Checksum(), got.Checksum())
	require.Len(t, got.Records, len(buf.Records))
	for i := range buf.Records {
		assert.Equal(t, buf.Records[i].Section4, got.Records[i].Section4)
	}
}
