package index

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func framedSection(num int, body []byte) []byte {
	out := make([]byte, 5+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(out)))
	out[4] = byte(num)
	copy(out[5:], body)
	return out
}

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	rec := Record{
		FileOffsetMsg:   1024,
		OffsetSec4InMsg: 64,
		MsgSeqInFile:    3,
		FieldSeqInMsg:   1,
		TotalMsgLength:  2048,
		Discipline:      0,
		Section1:        framedSection(1, []byte{1, 2, 3}),
		Section3:        framedSection(3, []byte{4, 5, 6, 7}),
		Section4:        framedSection(4, []byte{8, 9}),
		Section5:        framedSection(5, []byte{10}),
		Section6Prefix:  [6]byte{1, 0, 0, 0, 0, 0},
	}

	buf, err := rec.Encode()
	require.NoError(t, err)
	assert.Len(t, buf, RecordLen)

	got, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, rec.FileOffsetMsg, got.FileOffsetMsg)
	assert.Equal(t, rec.OffsetSec4InMsg, got.OffsetSec4InMsg)
	assert.Equal(t, rec.MsgSeqInFile, got.MsgSeqInFile)
	assert.Equal(t, rec.FieldSeqInMsg, got.FieldSeqInMsg)
	assert.Equal(t, rec.TotalMsgLength, got.TotalMsgLength)
	assert.Equal(t, rec.Discipline, got.Discipline)
	assert.Equal(t, rec.Section1, got.Section1)
	assert.Equal(t, rec.Section3, got.Section3)
	assert.Equal(t, rec.Section4, got.Section4)
	assert.Equal(t, rec.Section5, got.Section5)
	assert.Equal(t, rec.Section6Prefix, got.Section6Prefix)
}

func TestRecordEncodeRejectsOversizedPayload(t *testing.T) {
	rec := Record{Section1: make([]byte, RecordPayloadCap+10)}
	_, err := rec.Encode()
	require.Error(t, err)
}

func TestFileHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := FileHeader{RecordLen: RecordLen, RecordCount: 7, SourceFileName: "test.grib2", FieldCount: 7}
	buf := h.Encode()
	assert.Len(t, buf, FileHeaderLen)

	got, err := DecodeFileHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}
