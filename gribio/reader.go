// Package gribio provides random-access reading of GRIB files: a
// SeekableReader abstraction over whatever backs the bytes (an *os.File,
// an in-memory buffer, a network-backed range reader) and a FileReader
// that walks GRIB message boundaries the way the teacher package's
// ReadFile walked a streamed io.Reader with skipZeros/peekParseType,
// adapted here to offset-addressed scanning for the indexer (C10).
package gribio

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/wxgrid/grib2/griberr"
	"github.com/wxgrid/grib2/gribmsg"
	log "github.com/wxgrid/grib2/internal/log"
)

// SeekableReader is the random-access file collaborator spec.md 1 scopes
// out of this module's concerns: any source that can report its size and
// read at an absolute offset.
type SeekableReader interface {
	io.ReaderAt
	Size() (int64, error)
}

// FileReader scans a SeekableReader for GRIB message boundaries.
type FileReader struct {
	r SeekableReader
}

// NewFileReader wraps r for message-boundary scanning.
func NewFileReader(r SeekableReader) *FileReader {
	return &FileReader{r: r}
}

// Scan window sizes from spec.md 4.10: an initial bounded scan of
// msk1 bytes for the leading sentinel, then msk2-byte blocks beyond it.
const (
	msk1 = 32000
	msk2 = 4000
)

// findMagic scans forward from start for the 4-byte GRIB sentinel,
// bounded to msk1 bytes then msk2-byte blocks, returning its offset.
func (fr *FileReader) findMagic(start int64) (int64, error) {
	size, err := fr.r.Size()
	if err != nil {
		return 0, errors.Wrap(griberr.ErrIndexIO, err.Error())
	}

	window := int64(msk1)
	pos := start
	for pos < size {
		end := pos + window
		if end > size {
			end = size
		}
		buf := make([]byte, end-pos)
		if _, err := fr.r.ReadAt(buf, pos); err != nil && err != io.EOF {
			return 0, errors.Wrap(griberr.ErrIndexIO, err.Error())
		}
		if idx := indexMagic(buf); idx >= 0 {
			return pos + int64(idx), nil
		}
		// Overlap by 3 bytes so a sentinel straddling the boundary isn't missed.
		pos = end - 3
		window = msk2
	}
	return 0, griberr.ErrNotFound
}

func indexMagic(buf []byte) int {
	for i := 0; i+4 <= len(buf); i++ {
		if buf[i] == 'G' && buf[i+1] == 'R' && buf[i+2] == 'I' && buf[i+3] == 'B' {
			return i
		}
	}
	return -1
}

// NextMessageEdition peeks the next message starting at or after
// offset without consuming it, reporting its edition and declared
// length. This supports reading files that mix GRIB1 and GRIB2
// messages, the way the teacher package's peekParseType did for its
// streamed reader.
func (fr *FileReader) NextMessageEdition(offset int64) (msgOffset int64, edition int, length uint64, err error) {
	magicAt, err := fr.findMagic(offset)
	if err != nil {
		return 0, 0, 0, err
	}
	header := make([]byte, 16)
	if _, err := fr.r.ReadAt(header, magicAt); err != nil {
		return 0, 0, 0, errors.Wrap(griberr.ErrIndexIO, err.Error())
	}
	switch header[7] {
	case 1:
		l := uint64(binary.BigEndian.Uint32([]byte{0, header[4], header[5], header[6]}))
		return magicAt, 1, l, nil
	case 2:
		l := binary.BigEndian.Uint64(header[8:16])
		return magicAt, 2, l, nil
	default:
		return magicAt, 0, 0, errors.Errorf("gribio: unrecognized edition octet %d at offset %d", header[7], magicAt)
	}
}

// NextMessage returns the full byte content of the next GRIB2 message at
// or after offset, and the file offset just past it. GRIB1 messages
// encountered along the way are skipped with a warning, matching the
// teacher package's "skipping GRIB edition 2 message" logging (inverted
// here, since this module only decodes edition 2).
func (fr *FileReader) NextMessage(offset int64) (msg []byte, msgOffset int64, next int64, err error) {
	for {
		msgOffset, edition, length, err := fr.NextMessageEdition(offset)
		if err != nil {
			return nil, 0, 0, err
		}
		if edition != gribmsg.Edition {
			log.Warningf("gribio: skipping GRIB edition %d message at offset %d", edition, msgOffset)
			offset = msgOffset + int64(length)
			continue
		}
		buf := make([]byte, length)
		if _, err := fr.r.ReadAt(buf, msgOffset); err != nil {
			return nil, 0, 0, errors.Wrap(griberr.ErrDataIO, err.Error())
		}
		return buf, msgOffset, msgOffset + int64(length), nil
	}
}
