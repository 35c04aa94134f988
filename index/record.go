// Package index implements the indexer (C10), its on-disk external
// format, the process-scoped index cache (C11), and wildcarded search
// over an index buffer (C12).
package index

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/wxgrid/grib2/griberr"
)

// FileHeaderLen is the frozen 44-octet index file header (spec.md 6):
// record length (4), record count (4), source file name (32), field
// count (4).
const FileHeaderLen = 44

// RecordHeaderLen is the per-record header: spec.md 6's fixed fields
// (file_offset_msg (8), offset_sec4_within_msg (4), msg_seq_within_file
// (4), field_seq_within_msg (4), total_msg_length (8)) plus a trailing
// 4-octet discipline field. Section 0 (which carries discipline in real
// GRIB2) isn't one of the sections spec.md 6 lists as copied verbatim,
// but C12's match test needs it, so it travels in the header instead of
// being re-derived from a second pass over the data file.
const RecordHeaderLen = 32

// RecordPayloadCap bounds the verbatim section copies (Sections 1, 3, 4,
// 5 and the 6-octet Section 6 prefix) a record carries. It is sized to
// comfortably exceed any currently registered template's serialization;
// see DESIGN.md for the open question this freezes.
const RecordPayloadCap = 4096

// RecordLen is the fixed external record length spec.md 6 requires.
const RecordLen = RecordHeaderLen + RecordPayloadCap

// Record is one field's index entry: its location plus verbatim copies
// of the sections needed to evaluate a search query without re-reading
// the data file.
type Record struct {
	FileOffsetMsg   int64
	OffsetSec4InMsg int32
	MsgSeqInFile    int32
	FieldSeqInMsg   int32
	TotalMsgLength  int64
	Discipline      int32

	Section1       []byte
	Section3       []byte
	Section4       []byte
	Section5       []byte
	Section6Prefix [6]byte
}

// Encode writes r into a RecordLen-sized buffer in the frozen external
// layout: header, then Section1/3/4/5 (each self-describing via its own
// 4-octet length prefix), then the Section 6 prefix, zero-padded to
// RecordLen.
func (r Record) Encode() ([]byte, error) {
	buf := make([]byte, RecordLen)
	binary.BigEndian.PutUint64(buf[0:8], uint64(r.FileOffsetMsg))
	binary.BigEndian.PutUint32(buf[8:12], uint32(r.OffsetSec4InMsg))
	binary.BigEndian.PutUint32(buf[12:16], uint32(r.MsgSeqInFile))
	binary.BigEndian.PutUint32(buf[16:20], uint32(r.FieldSeqInMsg))
	binary.BigEndian.PutUint64(buf[20:28], uint64(r.TotalMsgLength))
	binary.BigEndian.PutUint32(buf[28:32], uint32(r.Discipline))

	off := RecordHeaderLen
	for _, sec := range [][]byte{r.Section1, r.Section3, r.Section4, r.Section5} {
		if off+len(sec) > RecordLen {
			return nil, errors.Wrapf(griberr.ErrIndexIO, "index: record payload %d exceeds cap %d", off+len(sec), RecordLen)
		}
		copy(buf[off:], sec)
		off += len(sec)
	}
	if off+6 > RecordLen {
		return nil, errors.Wrap(griberr.ErrIndexIO, "index: record payload exceeds cap writing section 6 prefix")
	}
	copy(buf[off:off+6], r.Section6Prefix[:])
	return buf, nil
}

// Decode is the inverse of Encode. Because Section1/3/4/5 are stored
// with their own self-describing 4-octet length + 1-octet number
// prefix, Decode can recover each one's extent without knowing its
// template in advance.
func Decode(buf []byte) (Record, error) {
	if len(buf) != RecordLen {
		return Record{}, errors.Wrapf(griberr.ErrIndexIO, "index: record is %d octets, want %d", len(buf), RecordLen)
	}
	r := Record{
		FileOffsetMsg:   int64(binary.BigEndian.Uint64(buf[0:8])),
		OffsetSec4InMsg: int32(binary.BigEndian.Uint32(buf[8:12])),
		MsgSeqInFile:    int32(binary.BigEndian.Uint32(buf[12:16])),
		FieldSeqInMsg:   int32(binary.BigEndian.Uint32(buf[16:20])),
		TotalMsgLength:  int64(binary.BigEndian.Uint64(buf[20:28])),
		Discipline:      int32(binary.BigEndian.Uint32(buf[28:32])),
	}
	off := RecordHeaderLen
	sections := make([][]byte, 4)
	for i := range sections {
		if off+5 > len(buf) {
			return Record{}, errors.Wrap(griberr.ErrIndexIO, "index: truncated record")
		}
		secLen := int(binary.BigEndian.Uint32(buf[off : off+4]))
		if secLen < 5 || off+secLen > len(buf) {
			return Record{}, errors.Wrap(griberr.ErrIndexIO, "index: record section length out of range")
		}
		sections[i] = append([]byte(nil), buf[off:off+secLen]...)
		off += secLen
	}
	r.Section1, r.Section3, r.Section4, r.Section5 = sections[0], sections[1], sections[2], sections[3]
	copy(r.Section6Prefix[:], buf[off:off+6])
	return r, nil
}

// FileHeader is the 44-octet index file header.
type FileHeader struct {
	RecordLen      uint32
	RecordCount    uint32
	SourceFileName string // truncated/padded to 32 octets on disk
	FieldCount     uint32
}

// Encode writes h into a FileHeaderLen-sized buffer.
func (h FileHeader) Encode() []byte {
	buf := make([]byte, FileHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.RecordLen)
	binary.BigEndian.PutUint32(buf[4:8], h.RecordCount)
	name := h.SourceFileName
	if len(name) > 32 {
		name = name[:32]
	}
	copy(buf[8:40], name)
	binary.BigEndian.PutUint32(buf[40:44], h.FieldCount)
	return buf
}

// DecodeFileHeader is the inverse of FileHeader.Encode.
func DecodeFileHeader(buf []byte) (FileHeader, error) {
	if len(buf) != FileHeaderLen {
		return FileHeader{}, errors.Wrapf(griberr.ErrIndexIO, "index: file header is %d octets, want %d", len(buf), FileHeaderLen)
	}
	h := FileHeader{
		RecordLen:   binary.BigEndian.Uint32(buf[0:4]),
		RecordCount: binary.BigEndian.Uint32(buf[4:8]),
		FieldCount:  binary.BigEndian.Uint32(buf[40:44]),
	}
	end := 8
	for end < 40 && buf[end] != 0 {
		end++
	}
	h.SourceFileName = string(buf[8:end])
	return h, nil
}
