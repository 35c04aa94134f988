package index

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/wxgrid/grib2/griberr"
	"github.com/wxgrid/grib2/template"
)

const wildcard = -9999

// Query is the wildcarded match test from spec.md 4.9/4.12: -9999 (or
// -1 for template numbers) matches anything.
type Query struct {
	Discipline int
	PDTNumber  int
	PDT        []int64
	GDTNumber  int
	GDT        []int64
}

func matchInts(query, decoded []int64) bool {
	for i, q := range query {
		if q == wildcard {
			continue
		}
		if i >= len(decoded) || decoded[i] != q {
			return false
		}
	}
	return true
}

// decodeSection4Header reads just the PDT number out of a verbatim
// Section 4 copy, matching C12's "decode just far enough" directive.
func decodeSection4Header(sec4 []byte) (pdtn int, body []byte, err error) {
	if len(sec4) < 5+4 {
		return 0, nil, errors.New("index: section 4 copy too short")
	}
	body = sec4[5:]
	if len(body) < 4 {
		return 0, nil, errors.New("index: section 4 body too short")
	}
	return int(binary.BigEndian.Uint16(body[2:4])), body, nil
}

func decodeSection3Header(sec3 []byte) (gdtn int, body []byte, err error) {
	if len(sec3) < 5+9 {
		return 0, nil, errors.New("index: section 3 copy too short")
	}
	body = sec3[5:]
	return int(binary.BigEndian.Uint16(body[7:9])), body, nil
}

// Matches evaluates the match test for one record against q, decoding
// just enough of its embedded Section 3/4 template bodies to do so.
func (r Record) Matches(reg *template.Registry, q Query) (bool, error) {
	if q.Discipline != -1 && q.Discipline != int(r.Discipline) {
		return false, nil
	}

	if q.PDTNumber != -1 || len(q.PDT) > 0 {
		pdtn, body, err := decodeSection4Header(r.Section4)
		if err != nil {
			return false, err
		}
		if q.PDTNumber != -1 && q.PDTNumber != pdtn {
			return false, nil
		}
		if len(q.PDT) > 0 {
			spec, err := reg.Lookup(template.KindPDT, pdtn)
			if err != nil {
				return false, err
			}
			width := template.WidthOctets(spec.Fields)
			if len(body) < 4+width {
				return false, nil
			}
			prefix := template.Decode(spec.Fields, body[4:4+width])
			fields, err := spec.Extend(prefix)
			if err != nil {
				return false, err
			}
			width = template.WidthOctets(fields)
			if len(body) < 4+width {
				return false, nil
			}
			values := template.Decode(fields, body[4:4+width])
			if !matchInts(q.PDT, values) {
				return false, nil
			}
		}
	}

	if q.GDTNumber != -1 || len(q.GDT) > 0 {
		gdtn, body, err := decodeSection3Header(r.Section3)
		if err != nil {
			return false, err
		}
		if q.GDTNumber != -1 && q.GDTNumber != gdtn {
			return false, nil
		}
		if len(q.GDT) > 0 {
			spec, err := reg.Lookup(template.KindGDT, gdtn)
			if err != nil {
				return false, err
			}
			width := template.WidthOctets(spec.Fields)
			if len(body) < 9+width {
				return false, nil
			}
			values := template.Decode(spec.Fields, body[9:9+width])
			if !matchInts(q.GDT, values) {
				return false, nil
			}
		}
	}
	return true, nil
}

// Search performs the linear scan of C12: the first record in buf
// matching q. Returns griberr.ErrNotFound if none match.
func Search(buf *IndexBuffer, q Query) (*Record, error) {
	reg, err := template.Default()
	if err != nil {
		return nil, err
	}
	for i := range buf.Records {
		ok, err := buf.Records[i].Matches(reg, q)
		if err != nil {
			return nil, err
		}
		if ok {
			return &buf.Records[i], nil
		}
	}
	return nil, griberr.ErrNotFound
}

// SearchAll returns every record in buf matching q, in index order.
func SearchAll(buf *IndexBuffer, q Query) ([]*Record, error) {
	reg, err := template.Default()
	if err != nil {
		return nil, err
	}
	var out []*Record
	for i := range buf.Records {
		ok, err := buf.Records[i].Matches(reg, q)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &buf.Records[i])
		}
	}
	return out, nil
}
