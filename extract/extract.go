// Package extract implements the message parser / field extractor (C9):
// walking the sections of an assembled GRIB2 message, decoding
// templates via the registry, and inverting whichever packer produced
// Section 7's payload.
package extract

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/wxgrid/grib2/bitio"
	"github.com/wxgrid/grib2/griberr"
	"github.com/wxgrid/grib2/gribmsg"
	"github.com/wxgrid/grib2/packing"
	"github.com/wxgrid/grib2/rastercodec"
	"github.com/wxgrid/grib2/template"
)

// Query is a wildcarded field match test, per spec.md 4.9: each entry
// of -9999 (or -1 for template numbers) matches anything.
type Query struct {
	Discipline int // -1 matches anything
	PDTNumber  int // -1 matches anything
	PDT        []int64
	GDTNumber  int // -1 matches anything
	GDT        []int64
	Missing    float64
	Skip       int
}

const wildcard = -9999

func matchValues(query, decoded []int64) bool {
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

func matches(q Query, discipline, pdtn int, pdt []int64, gdtn int, gdt []int64) bool {
	if q.Discipline != -1 && q.Discipline != discipline {
		return false
	}
	if q.PDTNumber != -1 && q.PDTNumber != pdtn {
		return false
	}
	if q.GDTNumber != -1 && q.GDTNumber != gdtn {
		return false
	}
	if !matchValues(q.PDT, pdt) {
		return false
	}
	if !matchValues(q.GDT, gdt) {
		return false
	}
	return true
}

type section struct {
	number int
	body   []byte
}

func walkSections(msg []byte) ([]section, error) {
	if len(msg) < 16 || string(msg[0:4]) != string(gribmsg.Magic[:]) {
		return nil, errors.New("extract: missing GRIB magic")
	}
	totalLen := binary.BigEndian.Uint64(msg[8:16])
	if uint64(len(msg)) != totalLen {
		return nil, errors.Wrap(griberr.ErrInternalLengthMismatch, "extract: total length field disagrees with buffer")
	}
	if string(msg[len(msg)-4:]) != string(gribmsg.Terminator[:]) {
		return nil, errors.New("extract: missing 7777 terminator")
	}

	var sections []section
	off := 16
	for off < len(msg)-4 {
		if off+5 > len(msg) {
			return nil, errors.New("extract: truncated section header")
		}
		secLen := binary.BigEndian.Uint32(msg[off : off+4])
		secNum := int(msg[off+4])
		if int(secLen) < 5 || off+int(secLen) > len(msg) {
			return nil, errors.Wrap(griberr.ErrInternalLengthMismatch, "extract: section length runs past buffer")
		}
		sections = append(sections, section{number: secNum, body: msg[off+5 : off+int(secLen)]})
		off += int(secLen)
	}
	return sections, nil
}

// ExtractFields implements spec.md 4.9's extract_field, returning every
// field in the message that passes the match test, in on-file order,
// after skipping q.Skip prior matches.
func ExtractFields(msg []byte, discipline int, q Query) ([]*gribmsg.GribField, error) {
	reg, err := template.Default()
	if err != nil {
		return nil, err
	}
	sections, err := walkSections(msg)
	if err != nil {
		return nil, err
	}

	var (
		grid       gribmsg.GridDefinition
		haveGrid   bool
		lastBitmap gribmsg.BitmapIndicator
		bitmapBits []byte
		idr        gribmsg.IdentificationRecord
		results    []*gribmsg.GribField
		skipLeft   = q.Skip
	)

	for i := 0; i < len(sections); i++ {
		sec := sections[i]
		switch gribmsg.SectionNumber(sec.number) {
		case gribmsg.SectionIdentification:
			idr = decodeIdentificationSection(sec.body)

		case gribmsg.SectionGridDefinition:
			g, err := decodeGridSection(reg, sec.body)
			if err != nil {
				return nil, err
			}
			grid = g
			haveGrid = true

		case gribmsg.SectionProductDef:
			if i+3 >= len(sections) {
				return nil, errors.New("extract: section 4 without following 5/6/7")
			}
			sec5, sec6, sec7 := sections[i+1], sections[i+2], sections[i+3]

			pdtn, pdtVals, verticals, err := decodeProductSection(reg, sec.body)
			if err != nil {
				return nil, err
			}
			drtn, npts, drtVals, err := decodeDRTHeader(reg, sec5.body)
			if err != nil {
				return nil, err
			}

			bitmapIndicator := gribmsg.BitmapIndicator(sec6.body[0])
			if bitmapIndicator == gribmsg.BitmapSpecified {
				bitmapBits = sec6.body[1:]
				lastBitmap = bitmapIndicator
			} else if bitmapIndicator == gribmsg.BitmapReusePrior {
				if lastBitmap != gribmsg.BitmapSpecified {
					return nil, griberr.ErrMissingPriorBitmap
				}
			}

			if !matches(q, discipline, pdtn, pdtVals, grid.TemplateNumber, grid.Values) {
				i += 3
				continue
			}
			if skipLeft > 0 {
				skipLeft--
				i += 3
				continue
			}

			values, err := unpackPayload(drtn, drtVals, int(npts), sec7.body, grid, haveGrid)
			if err != nil {
				return nil, err
			}
			expanded := expandByBitmap(values, int(grid.NumDataPoints), bitmapIndicator, bitmapBits, q.Missing)

			results = append(results, &gribmsg.GribField{
				Discipline:      discipline,
				Identification:  idr,
				Grid:            grid,
				Product:         gribmsg.ProductDefinition{TemplateNumber: pdtn, Values: pdtVals, VerticalCoordinates: verticals},
				DataRep:         gribmsg.DataRepresentation{NumDataPoints: npts, TemplateNumber: drtn, Values: drtVals},
				BitmapIndicator: bitmapIndicator,
				Bitmap:          bitmapBits,
				Values:          expanded,
				Missing:         q.Missing,
			})
			i += 3
		}
	}
	return results, nil
}

func decodeIdentificationSection(body []byte) gribmsg.IdentificationRecord {
	year := int(binary.BigEndian.Uint16(body[7:9]))
	month, day := int(body[9]), int(body[10])
	hour, minute := 0, 0
	if len(body) >= 13 {
		hour, minute = int(body[11]), int(body[12])
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	return gribmsg.IdentificationRecord{
		OriginatingCentre:    binary.BigEndian.Uint16(body[0:2]),
		OriginatingSubCentre: binary.BigEndian.Uint16(body[2:4]),
		MasterTableVersion:   body[4],
		LocalTableVersion:    body[5],
		RefTimeSignificance:  body[6],
		ReferenceTime:        t,
	}
}

func decodeGridSection(reg *template.Registry, body []byte) (gribmsg.GridDefinition, error) {
	if len(body) < 11 {
		return gribmsg.GridDefinition{}, errors.New("extract: section 3 too short")
	}
	g := gribmsg.GridDefinition{
		Source:                   body[0],
		NumDataPoints:            binary.BigEndian.Uint32(body[1:5]),
		PointCountOctets:         body[5],
		PointCountInterpretation: body[6],
		TemplateNumber:           int(binary.BigEndian.Uint16(body[7:9])),
	}
	spec, err := reg.Lookup(template.KindGDT, g.TemplateNumber)
	if err != nil {
		return gribmsg.GridDefinition{}, err
	}
	width := template.WidthOctets(spec.Fields)
	if len(body) < 9+width {
		return gribmsg.GridDefinition{}, errors.New("extract: section 3 body shorter than template")
	}
	g.Values = template.Decode(spec.Fields, body[9:9+width])
	return g, nil
}

func decodeProductSection(reg *template.Registry, body []byte) (pdtn int, values []int64, verticals []gribmsg.VerticalCoordinate, err error) {
	if len(body) < 4 {
		return 0, nil, nil, errors.New("extract: section 4 too short")
	}
	nCoords := int(binary.BigEndian.Uint16(body[0:2]))
	pdtn = int(binary.BigEndian.Uint16(body[2:4]))
	spec, lookupErr := reg.Lookup(template.KindPDT, pdtn)
	if lookupErr != nil {
		return 0, nil, nil, lookupErr
	}

	prefixWidth := template.WidthOctets(spec.Fields)
	if len(body) < 4+prefixWidth {
		return 0, nil, nil, errors.New("extract: section 4 body shorter than template prefix")
	}
	prefixValues := template.Decode(spec.Fields, body[4:4+prefixWidth])

	fields, extErr := spec.Extend(prefixValues)
	if extErr != nil {
		return 0, nil, nil, extErr
	}
	width := template.WidthOctets(fields)
	if len(body) < 4+width {
		return 0, nil, nil, errors.New("extract: section 4 body shorter than extended template")
	}
	values = template.Decode(fields, body[4:4+width])

	coordStart := 4 + width
	for i := 0; i < nCoords; i++ {
		start := coordStart + i*4
		if start+4 > len(body) {
			break
		}
		verticals = append(verticals, gribmsg.VerticalCoordinate(bitio.U32ToFloat(binary.BigEndian.Uint32(body[start:start+4]))))
	}
	return pdtn, values, verticals, nil
}

func decodeDRTHeader(reg *template.Registry, body []byte) (drtn int, npts uint32, values []int64, err error) {
	if len(body) < 6 {
		return 0, 0, nil, errors.New("extract: section 5 too short")
	}
	npts = binary.BigEndian.Uint32(body[0:4])
	drtn = int(binary.BigEndian.Uint16(body[4:6]))
	spec, lookupErr := reg.Lookup(template.KindDRT, drtn)
	if lookupErr != nil {
		return 0, 0, nil, lookupErr
	}
	width := template.WidthOctets(spec.Fields)
	if len(body) < 6+width {
		return 0, 0, nil, errors.New("extract: section 5 body shorter than template")
	}
	values = template.Decode(spec.Fields, body[6:6+width])
	return drtn, npts, values, nil
}

func unpackPayload(drtn int, drtVals []int64, npts int, payload []byte, grid gribmsg.GridDefinition, haveGrid bool) ([]float64, error) {
	switch drtn {
	case 0:
		params := simpleParams(drtVals)
		return packing.UnpackSimple(params, npts, payload), nil

	case 2, 3:
		params := complexParamsFromDRT(drtVals, drtn)
		firstValues, groupRefs, groupWidths, groupLengths, data := packing.DeserializeStreams(payload, params)
		params.FirstValues = firstValues
		enc := packing.ComplexEncoded{ComplexParams: params, GroupRefs: groupRefs, GroupWidths: groupWidths, GroupLengths: groupLengths, Data: data}
		return packing.UnpackComplex(enc, npts), nil

	case 40, 41:
		kind := rastercodec.Png
		if drtn == 40 {
			kind = rastercodec.Jpeg2000
		}
		if !haveGrid {
			return nil, griberr.ErrMissingGridDefinition
		}
		params := simpleParams(drtVals)
		enc := packing.RasterEncoded{RasterParams: packing.RasterParams{SimpleParams: params}, Data: payload}
		return packing.UnpackRaster(enc, npts, kind)

	case 50:
		full := make([]float64, npts)
		full[0] = bitio.U32ToFloat(uint32(drtVals[0]))
		rest := packing.UnpackSimple(packing.SimpleParams{
			Reference: 0, BinaryScale: int(drtVals[1]), DecimalScale: int(drtVals[2]), NBits: int(drtVals[3]),
		}, npts-1, payload)
		copy(full[1:], rest)
		return full, nil

	case 51:
		full := make([]float64, npts)
		full[0] = bitio.U32ToFloat(uint32(drtVals[8]))
		params := complexParamsFromDRT(drtVals, drtn)
		firstValues, groupRefs, groupWidths, groupLengths, data := packing.DeserializeStreams(payload, params)
		params.FirstValues = firstValues
		enc := packing.ComplexEncoded{ComplexParams: params, GroupRefs: groupRefs, GroupWidths: groupWidths, GroupLengths: groupLengths, Data: data}
		rest := packing.UnpackComplex(enc, npts-1)
		copy(full[1:], rest)
		return full, nil

	default:
		return nil, errors.Wrapf(griberr.ErrUnsupportedTemplate, "DRT %d", drtn)
	}
}

func simpleParams(v []int64) packing.SimpleParams {
	return packing.SimpleParams{
		Reference:    bitio.U32ToFloat(uint32(v[0])),
		BinaryScale:  int(v[1]),
		DecimalScale: int(v[2]),
		NBits:        int(v[3]),
	}
}

func complexParamsFromDRT(v []int64, drtn int) packing.ComplexParams {
	p := packing.ComplexParams{
		SimpleParams:     packing.SimpleParams{Reference: bitio.U32ToFloat(uint32(v[0])), BinaryScale: int(v[1]), DecimalScale: int(v[2])},
		OverallMinimum:   v[7],
		NumGroups:        int(v[9]),
		GroupRefWidth:    int(v[10]),
		GroupWidthWidth:  int(v[11]),
		GroupLengthWidth: int(v[15]),
	}
	if drtn == 3 && len(v) >= 18 {
		p.SpatialDiffOrder = int(v[16])
	}
	return p
}

func expandByBitmap(values []float64, n int, indicator gribmsg.BitmapIndicator, bitmap []byte, missing float64) []float64 {
	out := make([]float64, n)
	if indicator == gribmsg.BitmapNone {
		copy(out, values)
		return out
	}
	vi := 0
	for i := 0; i < n; i++ {
		if bitAt(bitmap, i) {
			if vi < len(values) {
				out[i] = values[vi]
				vi++
			}
		} else {
			out[i] = missing
		}
	}
	return out
}

func bitAt(bitmap []byte, i int) bool {
	byteIdx, bitIdx := i/8, 7-(i%8)
	if byteIdx >= len(bitmap) {
		return false
	}
	return (bitmap[byteIdx]>>uint(bitIdx))&1 != 0
}
