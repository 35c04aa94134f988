package index

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/wxgrid/grib2/gribio"
	"github.com/wxgrid/grib2/griberr"
	"github.com/wxgrid/grib2/gribmsg"
)

type rawSection struct {
	number int
	offset int // offset within the message, at the section's own length prefix
	raw    []byte
}

func walkRawSections(msg []byte) ([]rawSection, error) {
	var sections []rawSection
	off := 16
	for off < len(msg)-4 {
		if off+5 > len(msg) {
			return nil, errors.New("index: truncated section header")
		}
		secLen := int(binary.BigEndian.Uint32(msg[off : off+4]))
		secNum := int(msg[off+4])
		if secLen < 5 || off+secLen > len(msg) {
			return nil, errors.New("index: section length runs past message")
		}
		sections = append(sections, rawSection{number: secNum, offset: off, raw: msg[off : off+secLen]})
		off += secLen
	}
	return sections, nil
}

// Scan implements the indexer (C10): it walks every message in r
// starting at offset 0, emitting one Record per Section 4 encountered.
func Scan(r gribio.SeekableReader, sourceName string) ([]Record, error) {
	fr := gribio.NewFileReader(r)
	size, err := r.Size()
	if err != nil {
		return nil, errors.Wrap(griberr.ErrIndexIO, err.Error())
	}

	var records []Record
	msgSeq := int32(0)
	offset := int64(0)
	for offset < size {
		msg, msgOffset, next, err := fr.NextMessage(offset)
		if err != nil {
			if errors.Is(err, griberr.ErrNotFound) {
				break
			}
			return nil, err
		}
		msgSeq++

		sections, err := walkRawSections(msg)
		if err != nil {
			return nil, err
		}

		discipline := int32(msg[6])
		var sec1, sec3 []byte
		fieldSeq := int32(0)
		for i, sec := range sections {
			switch gribmsg.SectionNumber(sec.number) {
			case gribmsg.SectionIdentification:
				sec1 = sec.raw
			case gribmsg.SectionGridDefinition:
				sec3 = sec.raw
			case gribmsg.SectionProductDef:
				fieldSeq++
				sec4 := sec.raw
				// Sections 5, 6 and 7 of this same field follow Section 4
				// before the next field's own Section 4 (or the message's
				// end); look ahead only that far so a field's Section 6
				// is never attributed to the next field in the message.
				var sec5, sec6Raw []byte
				for j := i + 1; j < len(sections) && sections[j].number != int(gribmsg.SectionProductDef); j++ {
					switch gribmsg.SectionNumber(sections[j].number) {
					case gribmsg.SectionDataRep:
						sec5 = sections[j].raw
					case gribmsg.SectionBitmap:
						sec6Raw = sections[j].raw
					}
				}
				var sec6Prefix [6]byte
				copy(sec6Prefix[:], padTo(sec6Raw, 6))
				records = append(records, Record{
					FileOffsetMsg:   msgOffset,
					OffsetSec4InMsg: int32(sec.offset),
					MsgSeqInFile:    msgSeq,
					FieldSeqInMsg:   fieldSeq,
					TotalMsgLength:  int64(len(msg)),
					Discipline:      discipline,
					Section1:        sec1,
					Section3:        sec3,
					Section4:        sec4,
					Section5:        sec5,
					Section6Prefix:  sec6Prefix,
				})
			}
		}
		offset = next
	}

	// The scan loop above already emits records in message/field order,
	// but sort explicitly so the on-disk record order never depends on
	// anything upstream that isn't a guaranteed-stable slice append.
	slices.SortFunc(records, func(a, b Record) bool {
		if a.MsgSeqInFile != b.MsgSeqInFile {
			return a.MsgSeqInFile < b.MsgSeqInFile
		}
		return a.FieldSeqInMsg < b.FieldSeqInMsg
	})
	return records, nil
}

func padTo(b []byte, n int) []byte {
	if len(b) >= n {
		return b[:n]
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
