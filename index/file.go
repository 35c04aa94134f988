package index

import (
	"io"

	"github.com/pkg/errors"

	"github.com/wxgrid/grib2/griberr"
)

// WriteIndexFile serializes buf to w in the frozen external format
// (spec.md 6): a 44-octet file header followed by one fixed-length
// record per field.
func WriteIndexFile(w io.Writer, buf *IndexBuffer) error {
	header := FileHeader{
		RecordLen:      RecordLen,
		RecordCount:    uint32(len(buf.Records)),
		SourceFileName: buf.SourceName,
		FieldCount:     uint32(len(buf.Records)),
	}
	if _, err := w.Write(header.Encode()); err != nil {
		return errors.Wrap(griberr.ErrIndexIO, err.Error())
	}
	for _, r := range buf.Records {
		enc, err := r.Encode()
		if err != nil {
			return err
		}
		if _, err := w.Write(enc); err != nil {
			return errors.Wrap(griberr.ErrIndexIO, err.Error())
		}
	}
	return nil
}

// ReadIndexFile is the inverse of WriteIndexFile.
func ReadIndexFile(r io.Reader) (*IndexBuffer, error) {
	headerBuf := make([]byte, FileHeaderLen)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, errors.Wrap(griberr.ErrIndexIO, err.Error())
	}
	header, err := DecodeFileHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, header.RecordCount)
	recBuf := make([]byte, header.RecordLen)
	for i := uint32(0); i < header.RecordCount; i++ {
		if _, err := io.ReadFull(r, recBuf); err != nil {
			return nil, errors.Wrap(griberr.ErrIndexIO, err.Error())
		}
		rec, err := Decode(recBuf)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return newIndexBuffer(header.SourceFileName, records)
}
